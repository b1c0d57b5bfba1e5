package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type LogStats struct {
	TotalErrors        int
	Captures           int
	Declines           int
	GatewayUnavailable int
	ReceiptFailures    int
	DuplicateRecords   int
	StaleLedger        []CriticalEntry
	ErrorPatterns      map[string]int
}

// CriticalEntry is a captured payment the ledger does not reflect
type CriticalEntry struct {
	Time          string `json:"ts"`
	Message       string `json:"msg"`
	CartID        string `json:"cartId"`
	TransactionID string `json:"transactionId"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Step          string `json:"step"`
	Severity      string `json:"severity"`
}

type logLine struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

func main() {
	logDir := flag.String("dir", "./logs", "log directory")
	date := flag.String("date", time.Now().Format("2006-01-02"), "log date (YYYY-MM-DD)")
	flag.Parse()

	stats := &LogStats{ErrorPatterns: make(map[string]int)}

	analyzeErrorLogs(filepath.Join(*logDir, fmt.Sprintf("error-%s.log", *date)), stats)
	analyzeInfoLogs(filepath.Join(*logDir, fmt.Sprintf("info-%s.log", *date)), stats)

	printReport(stats)
	if len(stats.StaleLedger) > 0 {
		os.Exit(2)
	}
}

func analyzeErrorLogs(logFile string, stats *LogStats) {
	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := scanner.Bytes()
		var line logLine
		if err := json.Unmarshal(raw, &line); err != nil {
			continue
		}
		stats.TotalErrors++

		var critical CriticalEntry
		if err := json.Unmarshal(raw, &critical); err == nil && critical.Severity == "CRITICAL" {
			stats.StaleLedger = append(stats.StaleLedger, critical)
			continue
		}

		switch {
		case strings.HasPrefix(line.Msg, "Payment gateway unavailable"):
			stats.GatewayUnavailable++
		case strings.HasPrefix(line.Msg, "Failed to send receipt"):
			stats.ReceiptFailures++
		}
		extractErrorPattern(line.Msg, stats)
	}
}

func analyzeInfoLogs(logFile string, stats *LogStats) {
	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line logLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			continue
		}
		switch {
		case strings.HasPrefix(line.Msg, "Captured "):
			stats.Captures++
		case strings.HasPrefix(line.Msg, "Payment declined"):
			stats.Declines++
		case strings.HasSuffix(line.Msg, "was already recorded"):
			stats.DuplicateRecords++
		}
	}
}

func extractErrorPattern(msg string, stats *LogStats) {
	// Keep the message up to the first colon so ids don't split patterns
	if i := strings.Index(msg, ":"); i > 0 {
		msg = msg[:i]
	}
	stats.ErrorPatterns[strings.TrimSpace(msg)]++
}

func printReport(stats *LogStats) {
	fmt.Println("\n=== Log Analysis Report ===")
	fmt.Println("Generated:", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Println("\n1. Checkout Statistics:")
	fmt.Printf("   Captured: %d\n", stats.Captures)
	fmt.Printf("   Declined: %d\n", stats.Declines)
	fmt.Printf("   Gateway Unavailable: %d\n", stats.GatewayUnavailable)
	fmt.Printf("   Duplicate Transaction Records: %d\n", stats.DuplicateRecords)
	fmt.Printf("   Receipt Failures: %d\n", stats.ReceiptFailures)

	fmt.Println("\n2. Captured Payments Needing Reconciliation:")
	if len(stats.StaleLedger) == 0 {
		fmt.Println("   None")
	}
	for _, e := range stats.StaleLedger {
		fmt.Printf("   %s cart=%s transaction=%s %s %s (step %s)\n",
			e.Time, e.CartID, e.TransactionID, e.Amount, e.Currency, e.Step)
	}

	fmt.Println("\n3. Error Statistics:")
	fmt.Printf("   Total Errors: %d\n", stats.TotalErrors)

	fmt.Println("\n4. Most Common Errors:")
	printTopErrors(stats.ErrorPatterns, 5)
}

func printTopErrors(errors map[string]int, limit int) {
	type errorCount struct {
		error string
		count int
	}

	var errorList []errorCount
	for err, count := range errors {
		errorList = append(errorList, errorCount{err, count})
	}

	sort.Slice(errorList, func(i, j int) bool {
		return errorList[i].count > errorList[j].count
	})

	for i, err := range errorList {
		if i >= limit {
			break
		}
		fmt.Printf("   %s: %d occurrences\n", err.error, err.count)
	}
}
