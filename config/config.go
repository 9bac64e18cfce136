package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// DateFormat is the date layout the logs endpoint expects in its "dd"
// query parameter. Dates are passed through to the site verbatim; the
// CLI uses this layout to iterate ranges.
const DateFormat = "2006-01-02"

// Config holds scraper configuration.
type Config struct {
	UserBaseURL        string
	LogsBaseURL        string
	Timeout            time.Duration
	UserAgent          string
	Parallelism        int
	CacheSize          int
	PipelineBufferSize int
	BatchSize          int
	OutputFile         string
	OutputFormat       string // csv, json, or dual
	MetricsAddr        string
	Verbose            bool
}

// DefaultConfig returns defaults pointing at the production site.
func DefaultConfig() *Config {
	return &Config{
		UserBaseURL:        "https://www.jefit.com/user",
		LogsBaseURL:        "https://www.jefit.com/members/user-logs/log/",
		Timeout:            10 * time.Second,
		UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Parallelism:        4,
		CacheSize:          128,
		PipelineBufferSize: 256,
		BatchSize:          32,
		OutputFile:         "output/workouts.csv",
		OutputFormat:       "csv",
		MetricsAddr:        "",
		Verbose:            false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if err := validateURL("user base URL", c.UserBaseURL); err != nil {
		return err
	}
	if err := validateURL("logs base URL", c.LogsBaseURL); err != nil {
		return err
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache size cannot be negative")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	return nil
}

func validateURL(name, value string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", name)
	}
	return nil
}

// EnvString reads an environment variable, reporting whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment variable.
func EnvInt(key string) (int, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, true, nil
}
