package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"billetera/internal/config"
	"billetera/internal/sheets/memory"
	"billetera/internal/storage"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) expected error")
	}

	app := config.Default()
	app.DataBackend = "memory"
	app.CacheTTL = config.Duration{Duration: time.Minute}
	got, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if got.Type != MemoryBackend || got.CacheTTL != time.Minute || got.GoogleSheetPrefix != "Billetera" {
		t.Errorf("FromAppConfig() = %+v", got)
	}

	app.CacheSize = 0
	app.CacheTTL = config.Duration{}
	got, err = FromAppConfig(app)
	if err != nil || got.CacheSize != 1 || got.CacheTTL != defaultCacheTTL {
		t.Errorf("FromAppConfig() cache = %d/%v, %v, want 1/%v", got.CacheSize, got.CacheTTL, err, defaultCacheTTL)
	}

	app.DataBackend = "sheets"
	if _, err := FromAppConfig(app); err == nil || !strings.Contains(err.Error(), "memory, sqlite") {
		t.Errorf("FromAppConfig() error = %v, want the supported backends listed", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, ""},
		{"sqlite without path", Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{"unknown", Config{Type: "sheets"}, "invalid backend type: sheets"},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://x", AMQPExchange: "e"}, "AMQP exchange and queue"},
		{"spreadsheet without account", Config{Type: MemoryBackend, GoogleSpreadsheetID: "sheet"}, "service account is required"},
		{"reports every problem", Config{Type: SQLiteBackend, AMQPURL: "amqp://x"}, "path is required for sqlite backend\nAMQP exchange"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestGetBackendTypeStrings(t *testing.T) {
	got := GetBackendTypeStrings()
	if len(got) != 2 || got[0] != "memory" || got[1] != "sqlite" {
		t.Errorf("GetBackendTypeStrings() = %v", got)
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	t.Run("sqlite", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{
			Type:         SQLiteBackend,
			SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db"),
			CacheSize:    4,
			CacheTTL:     time.Minute,
		})
		if err != nil {
			t.Fatalf("CreateBackend() error = %v", err)
		}
		defer res.Cleanup()

		if _, ok := res.Repository.(*storage.SQLiteRepository); !ok {
			t.Errorf("Repository = %T, want *storage.SQLiteRepository", res.Repository)
		}
		if res.Publishing {
			t.Error("Publishing should be false without AMQP")
		}
		if _, err := res.Ledgers.Reset(ctx, "ana"); err != nil {
			t.Fatalf("Reset() error = %v", err)
		}
		if res.Cache.Size() != 1 {
			t.Errorf("Cache.Size() = %d, want 1", res.Cache.Size())
		}
	})

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
		if err != nil {
			t.Fatalf("CreateBackend() error = %v", err)
		}
		if _, ok := res.Repository.(*storage.MemoryRepository); !ok {
			t.Errorf("Repository = %T, want *storage.MemoryRepository", res.Repository)
		}
		if err := res.Cleanup(); err != nil {
			t.Errorf("Cleanup() error = %v", err)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := f.CreateBackend(ctx, Config{Type: "nope"}); err == nil {
			t.Error("CreateBackend() expected error")
		}
	})
}

func TestCreateMirror(t *testing.T) {
	f := NewFactory(nil)

	m, err := f.CreateMirror(context.Background(), Config{GoogleSheetPrefix: "Billetera"})
	if err != nil {
		t.Fatalf("CreateMirror() error = %v", err)
	}
	if _, ok := m.(*memory.Store); !ok {
		t.Errorf("CreateMirror() = %T, want *memory.Store", m)
	}

	_, err = f.CreateMirror(context.Background(), Config{GoogleSpreadsheetID: "abc", GoogleSheetPrefix: "Billetera"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("CreateMirror() error = %v, want missing credentials", err)
	}
}
