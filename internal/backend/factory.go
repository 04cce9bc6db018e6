package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"billetera/internal/amqp"
	"billetera/internal/cache"
	"billetera/internal/log"
	"billetera/internal/services"
	"billetera/internal/sheets"
	gsheet "billetera/internal/sheets/google"
	"billetera/internal/sheets/memory"
	"billetera/internal/storage"
)

const defaultCacheTTL = 5 * time.Minute

type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory logs through logger, or the default logger when nil.
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(log.FieldComponent, log.ComponentBackend),
	}
}

// CreateBackend opens the repository, the optional AMQP publisher and the
// ledger cache, and wires them into a LedgerService.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.createRepository(config)
	if err != nil {
		return nil, err
	}

	// A broker outage must not block local edits; the sync processor
	// catches up from storage later.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without sync", "error", err)
		} else {
			publisher = amqpClient
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	size := config.CacheSize
	if size < 1 {
		size = 1
	}
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	ledgerCache := cache.NewLRUCache[services.Snapshot](size, ttl, cache.WithReplacePolicy(services.NewerRevision))

	f.logger.DebugContext(ctx, "Initialized backend",
		"type", config.Type,
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Repository: repo,
		Ledgers:    services.NewLedgerService(repo, publisher, ledgerCache),
		Cache:      ledgerCache,
		Publishing: publisher != nil,
		Cleanup: func() error {
			var errs []error
			if amqpClient != nil {
				if err := amqpClient.Close(); err != nil {
					errs = append(errs, fmt.Errorf("amqp: %w", err))
				}
			}
			if err := repo.Close(); err != nil {
				errs = append(errs, fmt.Errorf("storage: %w", err))
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createRepository(config Config) (storage.Repository, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case MemoryBackend:
		f.logger.Warn("Using memory backend, ledgers are lost on exit")
		return storage.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// CreateMirror returns the Google Sheets mirror when a spreadsheet is
// configured, otherwise an in-memory one.
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (sheets.LedgerMirror, error) {
	if !config.MirrorsRemotely() {
		f.logger.WarnContext(ctx, "No spreadsheet configured, mirroring ledgers in memory")
		return memory.New(config.GoogleSheetPrefix), nil
	}

	client, err := gsheet.New(ctx, config.GoogleSpreadsheetID, config.GoogleSheetPrefix, gsheet.Credentials{
		JSON: config.GoogleServiceAccountJSON,
		File: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "prefix", config.GoogleSheetPrefix)
	return client, nil
}
