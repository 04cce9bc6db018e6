package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"billetera/internal/log"
	"billetera/internal/storage"
)

// LedgerSyncer mirrors one user's ledger at a given revision.
type LedgerSyncer interface {
	SyncLedger(ctx context.Context, userID string, revision int64) error
}

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// PollInterval is how often to look for unsynced ledgers (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of ledgers handled per poll (default: 10)
	BatchSize int
}

func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
	}
}

// SyncProcessor polls storage for ledgers whose latest revision has not
// been mirrored yet. It backs up the AMQP path when messages are lost or
// the broker is not configured.
type SyncProcessor struct {
	repo   storage.Repository
	syncer LedgerSyncer
	config SyncProcessorConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncProcessor(repo storage.Repository, syncer LedgerSyncer, config SyncProcessorConfig) *SyncProcessor {
	return &SyncProcessor{
		repo:   repo,
		syncer: syncer,
		config: config,
	}
}

// Start begins the polling loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	if p.repo == nil || p.syncer == nil {
		p.mu.Unlock()
		return fmt.Errorf("sync processor not properly initialized")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		log.FieldComponent, log.ComponentWorker,
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop signals the loop and waits for the current batch to finish.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully", log.FieldComponent, log.ComponentWorker)
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out", log.FieldComponent, log.ComponentWorker)
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	// catch up on anything missed while the worker was down
	p.ProcessBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch mirrors up to BatchSize pending ledgers and returns how many
// succeeded.
func (p *SyncProcessor) ProcessBatch(ctx context.Context) int {
	ctx = log.StartTrace(ctx, "poll")
	docs, err := p.repo.PendingSync(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list pending ledgers",
			log.FieldComponent, log.ComponentWorker,
			log.FieldError, err)
		return 0
	}
	if len(docs) == 0 {
		return 0
	}

	slog.DebugContext(ctx, "Processing sync batch", "count", len(docs))

	synced := 0
	for _, doc := range docs {
		select {
		case <-p.stopCh:
			return synced
		case <-ctx.Done():
			return synced
		default:
		}

		if err := p.syncer.SyncLedger(ctx, doc.UserID, doc.Revision); err != nil {
			slog.WarnContext(ctx, "Sync processing failed",
				log.FieldComponent, log.ComponentWorker,
				log.FieldUserID, doc.UserID,
				log.FieldRevision, doc.Revision,
				log.FieldError, err)
			continue
		}
		synced++
	}
	return synced
}
