// Package config reads the process configuration from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hesab/internal/middleware/auth"
)

// Backends and providers accepted by Validate.
var (
	ValidBackends  = []string{"memory", "sqlite"}
	ValidProviders = []string{"openrouter", "anthropic", "gemini", "rules"}
)

type Config struct {
	// HTTP Server
	Port           string
	RateLimit      int // chat messages per user per minute
	AllowedOrigins []string
	TrustedProxies []string
	// ChatTokens are "secret=user" entries; a user of "*" marks a bridge.
	ChatTokens []string

	// Logging
	LogLevel  string
	LogFormat string

	// Storage
	DataBackend      string
	SQLiteDBPath     string
	CategoryCacheTTL time.Duration

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Model
	LLMProvider    string
	LLMAPIKey      string
	LLMModel       string
	LLMTimeout     time.Duration
	LLMTemperature float64
	LLMMaxTokens   int

	// Conversation history
	HistoryLimit   int
	HistoryContext int
	SessionTTL     time.Duration
	MaxSessions    int

	// Calendar
	Timezone string

	// Recurring worker
	RecurringInterval time.Duration

	// Google Sheets ledger mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8081"),
		RateLimit:      getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),
		ChatTokens:     getEnvList("CHAT_TOKENS"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DataBackend:      getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./data/hesab.db"),
		CategoryCacheTTL: getEnvDuration("CATEGORY_CACHE_TTL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "hesab"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		LLMProvider:    strings.ToLower(getEnv("LLM_PROVIDER", "openrouter")),
		LLMAPIKey:      getEnv("LLM_API_KEY", os.Getenv("AI_KEY")),
		LLMModel:       getEnv("LLM_MODEL", ""),
		LLMTimeout:     getEnvDuration("LLM_TIMEOUT", 30*time.Second),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.6),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 4000),

		HistoryLimit:   getEnvInt("HISTORY_LIMIT", 20),
		HistoryContext: getEnvInt("HISTORY_CONTEXT", 5),
		SessionTTL:     getEnvDuration("SESSION_TTL", 24*time.Hour),
		MaxSessions:    getEnvInt("MAX_SESSIONS", 10000),

		Timezone: getEnv("TIMEZONE", "Asia/Tehran"),

		RecurringInterval: getEnvDuration("RECURRING_INTERVAL", time.Hour),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
	}

	return cfg
}

// Location loads the calendar time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Tokens returns the parsed chat tokens. Call after Validate.
func (c *Config) Tokens() map[string]string {
	tokens, err := auth.ParseTokens(c.ChatTokens)
	if err != nil {
		return nil
	}
	return tokens
}

// MirrorEnabled reports whether a spreadsheet is configured.
func (c *Config) MirrorEnabled() bool {
	return strings.TrimSpace(c.GoogleSpreadsheetID) != ""
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}
	if c.RateLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RateLimit))
	}

	if _, err := auth.ParseTokens(c.ChatTokens); err != nil {
		errors = append(errors, fmt.Sprintf("invalid CHAT_TOKENS: %v", err))
	}

	if !contains(ValidBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, ValidBackends))
	}
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !contains(ValidProviders, c.LLMProvider) {
		errors = append(errors, fmt.Sprintf("invalid LLM provider '%s': must be one of %v", c.LLMProvider, ValidProviders))
	} else if c.LLMProvider != "rules" && c.LLMAPIKey == "" {
		errors = append(errors, fmt.Sprintf("LLM_API_KEY (or AI_KEY) is required for provider '%s'", c.LLMProvider))
	}
	if c.LLMTimeout < time.Second || c.LLMTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid LLM timeout %v: must be between 1 second and 5 minutes", c.LLMTimeout))
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		errors = append(errors, fmt.Sprintf("invalid LLM temperature %v: must be between 0 and 2", c.LLMTemperature))
	}
	if c.LLMMaxTokens < 1 {
		errors = append(errors, fmt.Sprintf("invalid LLM max tokens %d: must be at least 1", c.LLMMaxTokens))
	}

	if c.HistoryLimit < 1 {
		errors = append(errors, fmt.Sprintf("invalid history limit %d: must be at least 1", c.HistoryLimit))
	}
	if c.HistoryContext < 0 || c.HistoryContext > c.HistoryLimit {
		errors = append(errors, fmt.Sprintf("invalid history context %d: must be between 0 and the history limit %d", c.HistoryContext, c.HistoryLimit))
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}
	if c.MaxSessions < 1 {
		errors = append(errors, fmt.Sprintf("invalid max sessions %d: must be at least 1", c.MaxSessions))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.RecurringInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at least 1 minute", c.RecurringInterval))
	} else if c.RecurringInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at most 24 hours", c.RecurringInterval))
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
