// Package config loads billetera settings from defaults, an optional TOML
// file and environment variables, in that order of precedence (lowest
// first).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Plan horizons accepted by the plan worker.
const (
	HorizonDay   = "day"
	HorizonWeek  = "week"
	HorizonMonth = "month"
)

var validBackends = []string{"memory", "sqlite"}

var validHorizons = []string{HorizonDay, HorizonWeek, HorizonMonth}

type Config struct {
	// Storage
	DataBackend string `toml:"data_backend"`
	DBPath      string `toml:"db_path"`
	UserID      string `toml:"user"`
	LogLevel    string `toml:"log_level"`

	// AMQP
	AMQPURL      string `toml:"amqp_url"`
	AMQPExchange string `toml:"amqp_exchange"`
	AMQPQueue    string `toml:"amqp_queue"`

	// Google Sheets mirror
	GoogleSpreadsheetID      string `toml:"google_spreadsheet_id"`
	GoogleSheetPrefix        string `toml:"google_sheet_prefix"`
	GoogleServiceAccountJSON string `toml:"-"`
	GoogleServiceAccountFile string `toml:"google_service_account_file"`

	// Plan worker
	PlanInterval    Duration `toml:"plan_interval"`
	PlanHorizon     string   `toml:"plan_horizon"`
	PlanConcurrency int      `toml:"plan_concurrency"`

	// Sync worker
	SyncBatchSize        int      `toml:"sync_batch_size"`
	SyncInterval         Duration `toml:"sync_interval"`
	SyncMinWriteInterval Duration `toml:"sync_min_write_interval"`

	// Ledger cache
	CacheSize int      `toml:"cache_size"`
	CacheTTL  Duration `toml:"cache_ttl"`

	// Display
	CurrencySymbol string `toml:"currency_symbol"`
	Locale         string `toml:"locale"`
}

// Duration lets TOML files use strings such as "30s" or "1h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataBackend: "sqlite",
		DBPath:      filepath.Join(DataDir(), "billetera.db"),
		UserID:      "local",
		LogLevel:    "info",

		AMQPExchange: "billetera",
		AMQPQueue:    "ledger_sync",

		GoogleSheetPrefix: "Billetera",

		PlanInterval:    Duration{time.Hour},
		PlanHorizon:     HorizonWeek,
		PlanConcurrency: 4,

		SyncBatchSize:        10,
		SyncInterval:         Duration{30 * time.Second},
		SyncMinWriteInterval: Duration{time.Second},

		CacheSize: 64,
		CacheTTL:  Duration{5 * time.Minute},

		CurrencySymbol: "S/",
		Locale:         "es",
	}
}

// ConfigDir returns the XDG config directory for billetera.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "billetera")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "billetera")
}

// DataDir returns the XDG data directory for billetera.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "billetera")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "billetera")
}

// Path returns the TOML file to read: BILLETERA_CONFIG when set, otherwise
// config.toml in ConfigDir.
func Path() string {
	if p := strings.TrimSpace(os.Getenv("BILLETERA_CONFIG")); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load builds the configuration. A missing TOML file is not an error.
func Load() (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(Path()); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.DBPath = getEnv("BILLETERA_DB_PATH", c.DBPath)
	c.UserID = getEnv("BILLETERA_USER", c.UserID)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetPrefix = getEnv("GOOGLE_SHEET_PREFIX", c.GoogleSheetPrefix)
	c.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleServiceAccountJSON)
	c.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.GoogleServiceAccountFile))

	c.PlanInterval.Duration = getEnvDuration("PLAN_INTERVAL", c.PlanInterval.Duration)
	c.PlanHorizon = getEnv("PLAN_HORIZON", c.PlanHorizon)
	c.PlanConcurrency = getEnvInt("PLAN_CONCURRENCY", c.PlanConcurrency)

	c.SyncBatchSize = getEnvInt("SYNC_BATCH_SIZE", c.SyncBatchSize)
	c.SyncInterval.Duration = getEnvDuration("SYNC_INTERVAL", c.SyncInterval.Duration)
	c.SyncMinWriteInterval.Duration = getEnvDuration("SYNC_MIN_WRITE_INTERVAL", c.SyncMinWriteInterval.Duration)

	c.CacheSize = getEnvInt("CACHE_SIZE", c.CacheSize)
	c.CacheTTL.Duration = getEnvDuration("CACHE_TTL", c.CacheTTL.Duration)

	c.CurrencySymbol = getEnv("CURRENCY_SYMBOL", c.CurrencySymbol)
	c.Locale = getEnv("LOCALE", c.Locale)
}

// Save writes the file-backed settings to path.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// AMQPEnabled reports whether ledger changes should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if !slices.Contains(validBackends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == "sqlite" && strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, "database path cannot be empty when using sqlite backend")
	}
	if strings.TrimSpace(c.UserID) == "" {
		errs = append(errs, "user id cannot be empty")
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

	if c.GoogleSpreadsheetID != "" && strings.TrimSpace(c.GoogleSheetPrefix) == "" {
		errs = append(errs, "Google sheet prefix cannot be empty when a spreadsheet is configured")
	}

	if !slices.Contains(validHorizons, c.PlanHorizon) {
		errs = append(errs, fmt.Sprintf("invalid plan horizon '%s': must be one of %v", c.PlanHorizon, validHorizons))
	}
	if c.PlanInterval.Duration < time.Minute {
		errs = append(errs, fmt.Sprintf("invalid plan interval %v: must be at least 1 minute", c.PlanInterval.Duration))
	}
	if c.PlanConcurrency < 1 || c.PlanConcurrency > 64 {
		errs = append(errs, fmt.Sprintf("invalid plan concurrency %d: must be between 1 and 64", c.PlanConcurrency))
	}

	if c.SyncBatchSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid sync batch size %d: must be at least 1", c.SyncBatchSize))
	} else if c.SyncBatchSize > 1000 {
		errs = append(errs, fmt.Sprintf("invalid sync batch size %d: must be at most 1000", c.SyncBatchSize))
	}
	if c.SyncInterval.Duration < time.Second {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval.Duration))
	} else if c.SyncInterval.Duration > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval.Duration))
	}
	if c.SyncMinWriteInterval.Duration < 0 {
		errs = append(errs, fmt.Sprintf("invalid sync min write interval %v: must not be negative", c.SyncMinWriteInterval.Duration))
	}

	if c.CacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL.Duration <= 0 {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must be positive", c.CacheTTL.Duration))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
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
