// Package backend builds the storage, messaging and cache stack a binary
// needs from the application config.
package backend

import (
	"context"
	"time"

	"billetera/internal/cache"
	"billetera/internal/services"
	"billetera/internal/sheets"
	"billetera/internal/storage"
)

// CleanupFunc releases what CreateBackend opened.
type CleanupFunc func() error

// BackendResult is everything a command needs to read and write ledgers.
type BackendResult struct {
	Repository storage.Repository
	Ledgers    *services.LedgerService
	Cache      *cache.LRUCache[services.Snapshot]
	// Publishing reports whether saves are announced over AMQP.
	Publishing bool
	Cleanup    CleanupFunc
}

// Factory opens ledger stacks and mirrors.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateMirror(ctx context.Context, config Config) (sheets.LedgerMirror, error)
}

// Config selects storage, publishing, caching and the remote mirror.
type Config struct {
	Type BackendType

	SQLiteDBPath string

	// Optional AMQP publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ledger cache
	CacheSize int
	CacheTTL  time.Duration

	// Remote mirror; memory is used when SpreadsheetID is empty
	GoogleSpreadsheetID      string
	GoogleSheetPrefix        string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// BackendType names a storage implementation.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
