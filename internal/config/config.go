package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMaino  = "maino"
	BackendMemory = "memory"
)

type Config struct {
	// HTTP Server
	Port string

	// Maino billing API
	MainoBaseURL     string
	MainoPageSize    int
	MainoHTTPTimeout time.Duration

	// Companies
	CompaniesFile string
	CompaniesYAML string

	// Collection
	FetchConcurrency int

	// Backend selection
	DataBackend string
	FixturesDir string

	// Run history (empty disables)
	SQLiteDBPath string
	// RunRetention is how long runs are kept by boletos-events (0 keeps all)
	RunRetention time.Duration

	// AMQP (empty URL disables)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export (empty spreadsheet ID disables)
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Exports
	ExportCacheTTL time.Duration

	// TrustedProxies are extra CIDRs whose X-Forwarded-For is honoured
	TrustedProxies []string

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		MainoBaseURL:     getEnv("MAINO_BASE_URL", "https://api.maino.com.br"),
		MainoPageSize:    getEnvInt("MAINO_PAGE_SIZE", 50),
		MainoHTTPTimeout: getEnvDuration("MAINO_HTTP_TIMEOUT", 0),

		CompaniesFile: getEnv("COMPANIES_FILE", "./companies.yaml"),
		CompaniesYAML: getEnv("COMPANIES_YAML", ""),

		FetchConcurrency: getEnvInt("FETCH_CONCURRENCY", 1),

		DataBackend: getEnv("DATA_BACKEND", BackendMaino),
		FixturesDir: getEnv("FIXTURES_DIR", "./data/fixtures"),

		SQLiteDBPath: getEnvAllowEmpty("SQLITE_DB_PATH", "./data/boletos.db"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "boletos"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "collection_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Boletos em Aberto"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		ExportCacheTTL: getEnvDuration("EXPORT_CACHE_TTL", 5*time.Minute),
		RunRetention:   getEnvDuration("RUN_RETENTION", 30*24*time.Hour),

		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// SheetsEnabled reports whether the Google Sheets export is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
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

	// Validate data backend
	validBackends := []string{BackendMaino, BackendMemory}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == BackendMaino {
		if u, err := url.Parse(c.MainoBaseURL); err != nil || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid Maino base URL '%s'", c.MainoBaseURL))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid Maino base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
	}
	if c.DataBackend == BackendMemory && c.FixturesDir == "" {
		errors = append(errors, "fixtures directory cannot be empty when using memory backend")
	}

	if c.MainoPageSize < 1 || c.MainoPageSize > 500 {
		errors = append(errors, fmt.Sprintf("invalid page size %d: must be between 1 and 500", c.MainoPageSize))
	}
	if c.MainoHTTPTimeout < 0 {
		errors = append(errors, fmt.Sprintf("invalid HTTP timeout %v: must not be negative", c.MainoHTTPTimeout))
	}
	if c.FetchConcurrency < 1 {
		errors = append(errors, fmt.Sprintf("invalid fetch concurrency %d: must be at least 1", c.FetchConcurrency))
	}

	if c.CompaniesYAML == "" && c.CompaniesFile == "" {
		errors = append(errors, "either COMPANIES_FILE or COMPANIES_YAML must be provided")
	}

	// Check if directory exists or can be created
	if c.SQLiteDBPath != "" {
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

	// Validate Google Sheets export if enabled
	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when GOOGLE_SPREADSHEET_ID is set")
		}
		hasFile := c.GoogleServiceAccountFile != ""
		if !hasFile && c.GoogleServiceAccountJSON == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS must be provided for the sheets export")
		}
		if hasFile {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.RunRetention < 0 {
		errors = append(errors, fmt.Sprintf("invalid run retention %v: must not be negative", c.RunRetention))
	}

	if c.ExportCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid export cache TTL %v: must not be negative", c.ExportCacheTTL))
	}

	for _, cidr := range c.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			errors = append(errors, fmt.Sprintf("invalid trusted proxy '%s': must be a CIDR", cidr))
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
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

// getEnvAllowEmpty distinguishes an unset variable from one set to "".
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
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

// getEnvList splits a comma-separated variable, dropping empty items.
func getEnvList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
