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
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Loader
	DataDir string

	// AMQP (optional; empty URL disables generation notifications)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Query limits
	DefaultPageSize     int
	MaxPageSize         int
	MaxMembershipValues int
	RegexPatternCap     int
	RegexProgramCap     int
	RegexInputCap       int
	QueryBudget         time.Duration

	// MCP bridge
	APIBaseURL string

	// Logging
	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/ruraldata.db"),
		DataDir:      getEnv("DATA_DIR", "./data"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "ruraldata"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "generation_loaded"),

		DefaultPageSize:     getEnvInt("DEFAULT_PAGE_SIZE", 100),
		MaxPageSize:         getEnvInt("MAX_PAGE_SIZE", 500),
		MaxMembershipValues: getEnvInt("MAX_MEMBERSHIP_VALUES", 500),
		RegexPatternCap:     getEnvInt("REGEX_PATTERN_CAP", 256),
		RegexProgramCap:     getEnvInt("REGEX_PROGRAM_CAP", 1500),
		RegexInputCap:       getEnvInt("REGEX_INPUT_CAP", 1<<16),
		QueryBudget:         getEnvDuration("QUERY_BUDGET", 2*time.Second),

		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8081"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	// Validate AMQP URL if provided
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

	// Validate pagination limits
	if c.DefaultPageSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid default page size %d: must be at least 1", c.DefaultPageSize))
	}
	if c.MaxPageSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid max page size %d: must be at least 1", c.MaxPageSize))
	}
	if c.DefaultPageSize > c.MaxPageSize {
		errors = append(errors, fmt.Sprintf("default page size %d exceeds max page size %d", c.DefaultPageSize, c.MaxPageSize))
	}

	// Validate query hardening limits
	if c.MaxMembershipValues < 1 {
		errors = append(errors, fmt.Sprintf("invalid membership cap %d: must be at least 1", c.MaxMembershipValues))
	}
	if c.RegexPatternCap < 1 {
		errors = append(errors, fmt.Sprintf("invalid regex pattern cap %d: must be at least 1", c.RegexPatternCap))
	}
	if c.RegexProgramCap < 1 {
		errors = append(errors, fmt.Sprintf("invalid regex program cap %d: must be at least 1", c.RegexProgramCap))
	}
	if c.RegexInputCap < 1 {
		errors = append(errors, fmt.Sprintf("invalid regex input cap %d: must be at least 1", c.RegexInputCap))
	}

	if c.QueryBudget < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid query budget %v: must be at least 100ms", c.QueryBudget))
	} else if c.QueryBudget > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid query budget %v: must be at most 1 minute", c.QueryBudget))
	}

	// Validate MCP bridge target
	if c.APIBaseURL != "" {
		if parsedURL, err := url.Parse(c.APIBaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
		} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
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
