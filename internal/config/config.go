package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// HTTP server
	Port string

	// Store
	DataBackend  string
	SQLiteDBPath string
	SeedFile     string

	// AMQP ingest queue; disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Gmail source
	GmailOAuthClientFile string
	GmailOAuthClientJSON string
	GmailOAuthTokenFile  string
	GmailOAuthTokenJSON  string
	GmailQuery           string
	GmailMaxResults      int

	DefaultCurrency string

	// Per-client rate limit
	RateLimitRPS   float64
	RateLimitBurst int

	LogLevel  string
	LogFormat string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/subtrack.db"),
		SeedFile:     getEnv("SEED_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "subtrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ingest_subscriptions"),

		GmailOAuthClientFile: getEnv("GMAIL_OAUTH_CLIENT_FILE", ""),
		GmailOAuthClientJSON: getEnv("GMAIL_OAUTH_CLIENT_JSON", ""),
		GmailOAuthTokenFile:  getEnv("GMAIL_OAUTH_TOKEN_FILE", ""),
		GmailOAuthTokenJSON:  getEnv("GMAIL_OAUTH_TOKEN_JSON", ""),
		GmailQuery:           getEnv("GMAIL_QUERY", ""),
		GmailMaxResults:      getEnvInt("GMAIL_MAX_RESULTS", 50),

		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "EUR"),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// AMQPEnabled reports whether an ingest queue is configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// GmailEnabled reports whether both halves of the Gmail credentials are set.
func (c *Config) GmailEnabled() bool {
	return (c.GmailOAuthClientFile != "" || c.GmailOAuthClientJSON != "") &&
		(c.GmailOAuthTokenFile != "" || c.GmailOAuthTokenJSON != "")
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	validBackends := []string{BackendMemory, BackendSQLite}
	if !slices.Contains(validBackends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == BackendSQLite && c.SQLiteDBPath == "" {
		errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
	}
	if c.SeedFile != "" && c.DataBackend != BackendMemory {
		errs = append(errs, "SEED_FILE is only supported by the memory backend")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	hasClient := c.GmailOAuthClientFile != "" || c.GmailOAuthClientJSON != ""
	hasToken := c.GmailOAuthTokenFile != "" || c.GmailOAuthTokenJSON != ""
	if hasClient != hasToken {
		errs = append(errs, "Gmail needs both an OAuth client (GMAIL_OAUTH_CLIENT_FILE|JSON) and a token (GMAIL_OAUTH_TOKEN_FILE|JSON)")
	}
	for _, f := range []string{c.GmailOAuthClientFile, c.GmailOAuthTokenFile} {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Gmail OAuth file does not exist: %s", f))
		}
	}
	if c.GmailMaxResults < 1 || c.GmailMaxResults > 500 {
		errs = append(errs, fmt.Sprintf("invalid Gmail max results %d: must be between 1 and 500", c.GmailMaxResults))
	}

	if len(c.DefaultCurrency) != 3 {
		errs = append(errs, fmt.Sprintf("invalid default currency '%s': must be a 3-letter code", c.DefaultCurrency))
	}

	if c.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %v: must be positive", c.RateLimitRPS))
	}
	if c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
