package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Reporting API v4 accepts at most 100000 rows per page.
const maxPageSize = 100000

// Application settings
type Config struct {
	Server      ServerConfig
	Logging     LoggingConfig
	Export      ExportConfig
	Credentials CredentialsConfig
	Sinks       SinkConfig
}

// Server settings
type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
}

type ExportConfig struct {
	DefinitionPath     string
	ViewID             string
	PageSize           int
	MaxPages           int
	Output             string
	AllowedOutputs     []string // prefixes a run request may pick instead of Output
	APIEndpoint        string
	RequestTimeout     time.Duration
	RunTimeout         time.Duration
	RateLimitPerSecond int
}

// Where the service-account key comes from. At most one is set.
type CredentialsConfig struct {
	File   string
	JSON   string
	Secret string
}

type SinkConfig struct {
	HTTPSecret  string
	HTTPTimeout time.Duration
	AWSRegion   string
}

// Logging settings
type LoggingConfig struct {
	Level string
}

func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			RequestTimeout: getDurationEnv("SERVER_REQUEST_TIMEOUT", "30m"),
		},
		Export: ExportConfig{
			DefinitionPath:     getEnv("REPORT_DEFINITION", ""),
			ViewID:             getEnv("VIEW_ID", ""),
			PageSize:           getIntEnv("PAGE_SIZE", 10000),
			MaxPages:           getIntEnv("MAX_PAGES", 10000),
			Output:             getEnv("OUTPUT", ""),
			AllowedOutputs:     getListEnv("ALLOWED_OUTPUTS"),
			APIEndpoint:        getEnv("ANALYTICS_API_ENDPOINT", ""),
			RequestTimeout:     getDurationEnv("REQUEST_TIMEOUT", "60s"),
			RunTimeout:         getDurationEnv("RUN_TIMEOUT", "30m"),
			RateLimitPerSecond: getIntEnv("RATE_LIMIT_PER_SECOND", 10),
		},
		Credentials: CredentialsConfig{
			File:   getEnv("GA_CREDENTIALS_FILE", ""),
			JSON:   getEnv("GA_CREDENTIALS_JSON", ""),
			Secret: getEnv("GA_CREDENTIALS_SECRET", ""),
		},
		Sinks: SinkConfig{
			HTTPSecret:  getEnv("SINK_SECRET", ""),
			HTTPTimeout: getDurationEnv("SINK_TIMEOUT", "60s"),
			AWSRegion:   getEnv("AWS_REGION", ""),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return config, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Export.PageSize < 1 || c.Export.PageSize > maxPageSize {
		result = multierror.Append(result, fmt.Errorf("page size must be between 1 and %d, got %d", maxPageSize, c.Export.PageSize))
	}
	if c.Export.MaxPages < 1 {
		result = multierror.Append(result, fmt.Errorf("max pages must be positive, got %d", c.Export.MaxPages))
	}
	if c.Export.RateLimitPerSecond < 1 {
		result = multierror.Append(result, fmt.Errorf("rate limit must be positive, got %d", c.Export.RateLimitPerSecond))
	}

	sources := 0
	for _, s := range []string{c.Credentials.File, c.Credentials.JSON, c.Credentials.Secret} {
		if s != "" {
			sources++
		}
	}
	if sources > 1 {
		result = multierror.Append(result, errors.New("only one of GA_CREDENTIALS_FILE, GA_CREDENTIALS_JSON and GA_CREDENTIALS_SECRET may be set"))
	}

	return result.ErrorOrNil()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getListEnv splits a comma-separated variable, dropping blank entries.
func getListEnv(key string) []string {
	var values []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
