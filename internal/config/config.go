package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// UI server
	Port    string
	Theme   string // "light" or "dark", passed explicitly down to templates
	RecentN int    // movements shown in the recent-activity feed

	// Remote ledger service consumed by the UI and the worker
	APIBaseURL  string
	HTTPTimeout time.Duration

	// ledgerd
	LedgerdPort  string
	SQLiteDBPath string

	// AMQP change events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID string
	GoogleSheetName     string
}

func Load() *Config {
	return &Config{
		Port:    getEnv("PORT", "8081"),
		Theme:   getEnv("THEME", "light"),
		RecentN: getEnvInt("RECENT_MOVEMENTS", 5),

		APIBaseURL:  getEnv("API_BASE_URL", "http://127.0.0.1:8000"),
		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		LedgerdPort:  getEnv("LEDGERD_PORT", "8000"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/mibalance.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "mibalance"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Movimientos"),
	}
}

// Validate checks the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var problems []string

	for _, p := range []struct{ name, val string }{
		{"PORT", c.Port},
		{"LEDGERD_PORT", c.LedgerdPort},
	} {
		if port, err := strconv.Atoi(p.val); err != nil {
			problems = append(problems, fmt.Sprintf("invalid %s '%s': must be a number", p.name, p.val))
		} else if port < 1 || port > 65535 {
			problems = append(problems, fmt.Sprintf("invalid %s %d: must be between 1 and 65535", p.name, port))
		}
	}

	if c.Theme != "light" && c.Theme != "dark" {
		problems = append(problems, fmt.Sprintf("invalid theme '%s': must be 'light' or 'dark'", c.Theme))
	}

	if c.RecentN < 1 {
		problems = append(problems, fmt.Sprintf("invalid recent movements count %d: must be at least 1", c.RecentN))
	}

	if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("invalid API base URL '%s'", c.APIBaseURL))
	}

	if c.HTTPTimeout < time.Second {
		problems = append(problems, fmt.Sprintf("invalid HTTP timeout %v: must be at least 1 second", c.HTTPTimeout))
	}

	if c.SQLiteDBPath == "" {
		problems = append(problems, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GoogleSpreadsheetID != "" && c.GoogleSheetName == "" {
		problems = append(problems, "Google sheet name cannot be empty when a spreadsheet id is provided")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
