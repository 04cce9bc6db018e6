package backend

import (
	"errors"
	"fmt"
	"strings"

	"billetera/internal/config"
)

// FromAppConfig picks the backend settings out of the application config
// and fills in cache defaults.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("app config is nil")
	}

	kind := BackendType(app.DataBackend)
	if !kind.IsValid() {
		return Config{}, fmt.Errorf("unknown data backend %q, want one of %s",
			app.DataBackend, strings.Join(GetBackendTypeStrings(), ", "))
	}

	cfg := Config{
		Type:                     kind,
		SQLiteDBPath:             app.DBPath,
		AMQPURL:                  app.AMQPURL,
		AMQPExchange:             app.AMQPExchange,
		AMQPQueue:                app.AMQPQueue,
		CacheSize:                max(app.CacheSize, 1),
		CacheTTL:                 app.CacheTTL.Duration,
		GoogleSpreadsheetID:      app.GoogleSpreadsheetID,
		GoogleSheetPrefix:        app.GoogleSheetPrefix,
		GoogleServiceAccountJSON: app.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: app.GoogleServiceAccountFile,
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	return cfg, nil
}

// Validate reports every problem with the backend settings at once.
func (c Config) Validate() error {
	var errs []error
	if !c.Type.IsValid() {
		errs = append(errs, fmt.Errorf("invalid backend type: %s", c.Type))
	}
	if c.Type == SQLiteBackend && c.SQLiteDBPath == "" {
		errs = append(errs, errors.New("SQLite database path is required for sqlite backend"))
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		errs = append(errs, errors.New("AMQP exchange and queue are required when AMQP URL is set"))
	}
	if c.GoogleSpreadsheetID != "" && c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		errs = append(errs, errors.New("a service account is required to mirror to a spreadsheet"))
	}
	return errors.Join(errs...)
}

// MirrorsRemotely reports whether ledgers are copied to a spreadsheet.
func (c Config) MirrorsRemotely() bool {
	return c.GoogleSpreadsheetID != ""
}

// GetBackendTypes lists the supported storage backends.
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend}
}

func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
