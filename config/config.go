package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Authentication policies. Exactly one is active per process.
const (
	AuthModeShared   = "shared"
	AuthModeIdentity = "identity"
)

// DefaultAuthSecret matches the shared secret shipped with the first
// mobile clients; production deployments override it.
const DefaultAuthSecret = "sneaky-bear-42"

const merchantEnvPrefix = "MERCHANT_ACCOUNT_"

// Config holds all configuration for the application
type Config struct {
	Port string
	Env  string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	AuthMode       string
	AuthSecret     string
	AuthSecretHash string
	JWTSecret      string
	JWTIssuer      string

	RazorpayKey    string
	RazorpaySecret string

	DefaultCurrency      string
	MerchantAccounts     map[string]string
	MerchantAccountsFile string

	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	EmailFrom     string
	EmailFromName string

	RedisAddr          string
	RateLimitPerMinute int

	CaptureTimeout    time.Duration
	NotifyTimeout     time.Duration
	ReconcileInterval time.Duration

	LogDir string
}

// merchantFile is the layout of MERCHANT_ACCOUNTS_FILE
type merchantFile struct {
	DefaultCurrency  string            `yaml:"default_currency"`
	MerchantAccounts map[string]string `yaml:"merchant_accounts"`
}

// LoadConfig loads configuration from the environment, reading .env first
// when present.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %v", err)
	}

	cfg := &Config{
		Port: getEnv("PORT", "3000"),
		Env:  getEnv("ENV", "development"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "esdukas"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		AuthMode:       strings.ToLower(getEnv("AUTH_MODE", AuthModeShared)),
		AuthSecret:     getEnv("AUTH_SECRET", DefaultAuthSecret),
		AuthSecretHash: os.Getenv("AUTH_SECRET_HASH"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		JWTIssuer:      os.Getenv("JWT_ISSUER"),

		RazorpayKey:    os.Getenv("RAZORPAY_KEY"),
		RazorpaySecret: os.Getenv("RAZORPAY_SECRET"),

		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
		MerchantAccounts: map[string]string{
			"USD": "esdukas",
			"KES": "esdukas_kes",
			"UGX": "esdukas_ugx",
			"EUR": "esdukas_eur",
		},
		MerchantAccountsFile: os.Getenv("MERCHANT_ACCOUNTS_FILE"),

		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPUsername:  os.Getenv("SMTP_USERNAME"),
		SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
		EmailFrom:     os.Getenv("EMAIL_FROM"),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "Esdukas"),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		LogDir: getEnv("LOG_DIR", "logs"),
	}

	var err error
	if cfg.SMTPPort, err = getInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 60); err != nil {
		return nil, err
	}
	if cfg.CaptureTimeout, err = getDuration("CAPTURE_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.NotifyTimeout, err = getDuration("NOTIFY_TIMEOUT", 20*time.Second); err != nil {
		return nil, err
	}
	if cfg.ReconcileInterval, err = getDuration("RECONCILE_INTERVAL", 0); err != nil {
		return nil, err
	}

	if cfg.MerchantAccountsFile != "" {
		if err := cfg.loadMerchantFile(cfg.MerchantAccountsFile); err != nil {
			return nil, err
		}
	}
	// Per-currency env vars win over the file
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, merchantEnvPrefix) || value == "" {
			continue
		}
		cfg.MerchantAccounts[strings.ToUpper(strings.TrimPrefix(key, merchantEnvPrefix))] = value
	}

	return cfg, nil
}

func (c *Config) loadMerchantFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading merchant accounts file: %v", err)
	}
	var file merchantFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("error parsing merchant accounts file: %v", err)
	}
	if file.DefaultCurrency != "" {
		c.DefaultCurrency = strings.ToUpper(file.DefaultCurrency)
	}
	for currency, account := range file.MerchantAccounts {
		c.MerchantAccounts[strings.ToUpper(currency)] = account
	}
	return nil
}

// Validate checks the settings the HTTP server cannot run without
func (c *Config) Validate() error {
	var problems []string
	switch c.AuthMode {
	case AuthModeShared:
		if c.AuthSecret == "" && c.AuthSecretHash == "" {
			problems = append(problems, "AUTH_SECRET or AUTH_SECRET_HASH is required in shared auth mode")
		}
	case AuthModeIdentity:
		if c.JWTSecret == "" {
			problems = append(problems, "JWT_SECRET is required in identity auth mode")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown AUTH_MODE %q", c.AuthMode))
	}
	if c.RazorpayKey == "" || c.RazorpaySecret == "" {
		problems = append(problems, "RAZORPAY_KEY and RAZORPAY_SECRET are required")
	}
	if _, ok := c.MerchantAccounts[c.DefaultCurrency]; !ok {
		problems = append(problems, fmt.Sprintf("no merchant account for default currency %s", c.DefaultCurrency))
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// MailEnabled reports whether receipts can be sent
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && c.EmailFrom != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return n, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return d, nil
}
