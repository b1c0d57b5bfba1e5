package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	loggerMu sync.RWMutex

	// InfoLogger logs informational messages and warnings
	InfoLogger = zap.NewNop()
	// ErrorLogger logs error and critical messages
	ErrorLogger = zap.NewNop()
	// DebugLogger logs debug messages
	DebugLogger = zap.NewNop()
)

// InitLogger initializes the loggers, writing one file per level and day
// under logsDir.
func InitLogger(logsDir string) error {
	if logsDir == "" {
		logsDir = "logs"
	}
	// Create logs directory if it doesn't exist
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %v", err)
	}

	timestamp := time.Now().Format("2006-01-02")
	open := func(kind string) (*os.File, error) {
		return os.OpenFile(
			filepath.Join(logsDir, fmt.Sprintf("%s-%s.log", kind, timestamp)),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY,
			0644,
		)
	}

	infoFile, err := open("info")
	if err != nil {
		return fmt.Errorf("failed to open info log file: %v", err)
	}
	errorFile, err := open("error")
	if err != nil {
		return fmt.Errorf("failed to open error log file: %v", err)
	}
	debugFile, err := open("debug")
	if err != nil {
		return fmt.Errorf("failed to open debug log file: %v", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encCfg)

	build := func(core zapcore.Core) *zap.Logger {
		return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	}

	// Errors are mirrored to stderr so the operational log survives a broken
	// log directory.
	errorCore := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.AddSync(errorFile), zapcore.ErrorLevel),
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), zapcore.ErrorLevel),
	)

	SetLoggers(
		build(zapcore.NewCore(encoder, zapcore.AddSync(infoFile), zapcore.InfoLevel)),
		build(errorCore),
		build(zapcore.NewCore(encoder, zapcore.AddSync(debugFile), zapcore.DebugLevel)),
	)
	return nil
}

// SetLoggers replaces the package loggers. Nil arguments leave the current
// logger in place.
func SetLoggers(info, errLogger, debug *zap.Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if info != nil {
		InfoLogger = info
	}
	if errLogger != nil {
		ErrorLogger = errLogger
	}
	if debug != nil {
		DebugLogger = debug
	}
}

// SyncLoggers flushes buffered entries
func SyncLoggers() {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	_ = InfoLogger.Sync()
	_ = ErrorLogger.Sync()
	_ = DebugLogger.Sync()
}

func loggers() (info, errLogger, debug *zap.Logger) {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return InfoLogger, ErrorLogger, DebugLogger
}

// LogInfo logs an informational message
func LogInfo(format string, v ...interface{}) {
	info, _, _ := loggers()
	info.Sugar().Infof(format, v...)
}

// LogWarn logs a warning. Warnings go to the info log.
func LogWarn(format string, v ...interface{}) {
	info, _, _ := loggers()
	info.Sugar().Warnf(format, v...)
}

// LogError logs an error message
func LogError(format string, v ...interface{}) {
	_, errLogger, _ := loggers()
	errLogger.Sugar().Errorf(format, v...)
}

// LogDebug logs a debug message
func LogDebug(format string, v ...interface{}) {
	_, _, debug := loggers()
	debug.Sugar().Debugf(format, v...)
}

// SeverityCritical marks entries that need operator action
const SeverityCritical = "CRITICAL"

// LogCritical logs a structured entry at the highest severity the service
// emits.
func LogCritical(msg string, fields ...zap.Field) {
	_, errLogger, _ := loggers()
	errLogger.Error(msg, append([]zap.Field{zap.String("severity", SeverityCritical)}, fields...)...)
}

// LogRequest logs HTTP request details
func LogRequest(method, path, ip string, status int, duration time.Duration) {
	LogInfo("Request: %s %s from %s - Status: %d - Duration: %v", method, path, ip, status, duration)
}

// LogErrorWithStack logs an error with stack trace
func LogErrorWithStack(err error, stack []byte) {
	_, errLogger, _ := loggers()
	errLogger.Error(err.Error(), zap.ByteString("stack", stack))
}
