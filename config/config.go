package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"tradejournal/internal/adapters/logger" // for LogLevel parsing
)

// Source kinds the journal can import executions from.
const (
	SourceFlex    = "flex"    // IBKR Flex Query XML report on disk
	SourceBinance = "binance" // Binance spot trade history API
)

// Config holds all application configuration.
type Config struct {
	// Journal
	DBPath          string
	ReportTimezone  string // IANA zone used for local-day P&L bucketing
	AccountNumber   string // broker account number (required for the binance source)
	AccountCurrency string

	// Import source
	Source             string
	FlexReportPath     string
	FlexSourceTimezone string // zone IBKR timestamps are expressed in

	// Binance API
	BinanceAPIKey    string
	BinanceSecretKey string
	BinanceTestnet   bool
	BinanceSymbols   []string

	// Logging
	LogLevel logger.LogLevel
	LogJSON  bool
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string

	cfg.DBPath = getEnv("DB_PATH", "./data/tradejournal.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	cfg.ReportTimezone = getEnv("REPORT_TIMEZONE", "America/New_York")
	if _, err := time.LoadLocation(cfg.ReportTimezone); err != nil {
		errs = append(errs, fmt.Sprintf("invalid REPORT_TIMEZONE %q: %v", cfg.ReportTimezone, err))
	}

	cfg.AccountNumber = getEnv("ACCOUNT_NUMBER", "")
	cfg.AccountCurrency = getEnv("ACCOUNT_CURRENCY", "USD")

	cfg.Source = strings.ToLower(getEnv("SOURCE", SourceFlex))
	switch cfg.Source {
	case SourceFlex:
		// Path is only required by the import entrypoint; reporting tools
		// load the same config without one.
		cfg.FlexReportPath = getEnv("FLEX_REPORT_PATH", "")
		cfg.FlexSourceTimezone = getEnv("FLEX_SOURCE_TIMEZONE", "America/New_York")
		if _, err := time.LoadLocation(cfg.FlexSourceTimezone); err != nil {
			errs = append(errs, fmt.Sprintf("invalid FLEX_SOURCE_TIMEZONE %q: %v", cfg.FlexSourceTimezone, err))
		}
	case SourceBinance:
		cfg.BinanceAPIKey = getEnv("BINANCE_API_KEY", "")
		cfg.BinanceSecretKey = getEnv("BINANCE_API_SECRET", "")
		if cfg.BinanceAPIKey == "" || cfg.BinanceSecretKey == "" {
			errs = append(errs, "BINANCE_API_KEY and BINANCE_API_SECRET must be set when SOURCE=binance")
		}
		cfg.BinanceTestnet = getEnvAsBool("BINANCE_TESTNET", true)
		cfg.BinanceSymbols = splitList(getEnv("BINANCE_SYMBOLS", ""))
		if len(cfg.BinanceSymbols) == 0 {
			errs = append(errs, "BINANCE_SYMBOLS must be set when SOURCE=binance")
		}
		if cfg.AccountNumber == "" {
			errs = append(errs, "ACCOUNT_NUMBER must be set when SOURCE=binance")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown SOURCE %q (want %s or %s)", cfg.Source, SourceFlex, SourceBinance))
	}

	cfg.LogLevel = logger.ParseLevel(getEnv("LOG_LEVEL", "INFO"))
	cfg.LogJSON = getEnvAsBool("LOG_JSON", false)

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
