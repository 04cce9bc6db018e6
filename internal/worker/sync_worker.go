// Package worker mirrors saved ledgers to the remote store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"billetera/internal/amqp"
	"billetera/internal/ledger"
	"billetera/internal/log"
	"billetera/internal/sheets"
	"billetera/internal/storage"
)

// SyncWorker copies a user's stored ledger to a LedgerMirror. At most one
// write per user is in flight, writes for the same user are spaced by
// minInterval, and revisions already mirrored are skipped.
type SyncWorker struct {
	repo        storage.Repository
	mirror      sheets.LedgerMirror
	minInterval time.Duration

	group singleflight.Group

	mu        sync.Mutex
	lastWrite map[string]time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewSyncWorker(repo storage.Repository, mirror sheets.LedgerMirror, minInterval time.Duration) *SyncWorker {
	return &SyncWorker{
		repo:        repo,
		mirror:      mirror,
		minInterval: minInterval,
		lastWrite:   make(map[string]time.Time),
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// HandleSyncMessage processes a single ledger sync message from AMQP.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	ctx = log.StartTrace(ctx, "sync")
	slog.InfoContext(ctx, "Processing sync message",
		log.FieldComponent, log.ComponentWorker,
		log.FieldUserID, msg.UserID,
		log.FieldRevision, msg.Revision)

	return w.SyncLedger(ctx, msg.UserID, msg.Revision)
}

// SyncLedger mirrors userID's ledger if revision has not been mirrored
// yet. A caller that joins an in-flight write for an older revision runs
// once more so its own revision is covered.
func (w *SyncWorker) SyncLedger(ctx context.Context, userID string, revision int64) error {
	for attempt := 0; attempt < 2; attempt++ {
		v, err, _ := w.group.Do(userID, func() (any, error) {
			return w.syncUser(ctx, userID, revision)
		})
		if err != nil {
			return err
		}
		if synced := v.(int64); synced >= revision {
			return nil
		}
	}
	return nil
}

// syncUser returns the revision the mirror holds afterwards.
func (w *SyncWorker) syncUser(ctx context.Context, userID string, revision int64) (int64, error) {
	doc, err := w.repo.Load(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Dropping sync for missing ledger",
			log.FieldComponent, log.ComponentWorker,
			log.FieldUserID, userID)
		return revision, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}

	if revision <= doc.SyncedRevision || doc.Revision <= doc.SyncedRevision {
		slog.DebugContext(ctx, "Dropping stale sync",
			log.FieldComponent, log.ComponentWorker,
			log.FieldUserID, userID,
			log.FieldRevision, revision,
			"synced_revision", doc.SyncedRevision)
		return doc.SyncedRevision, nil
	}

	state, _, err := ledger.Decode(doc.Data)
	if err != nil {
		// keep the last good remote copy instead of overwriting it
		slog.WarnContext(ctx, "Skipping corrupt ledger",
			log.FieldComponent, log.ComponentWorker,
			log.FieldUserID, userID,
			log.FieldRevision, doc.Revision,
			log.FieldErrorType, log.ErrorTypeCorrupt,
			log.FieldError, err)
		if err := w.repo.MarkSynced(ctx, userID, doc.Revision); err != nil {
			return 0, fmt.Errorf("mark synced: %w", err)
		}
		return doc.Revision, nil
	}

	if err := w.throttle(ctx, userID); err != nil {
		return 0, err
	}

	ref, err := w.mirror.WriteLedger(ctx, userID, state, ledger.ComputeTotals(state))
	w.mu.Lock()
	w.lastWrite[userID] = w.now()
	w.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("write mirror: %w", err)
	}

	if err := w.repo.MarkSynced(ctx, userID, doc.Revision); err != nil {
		// the mirror is already current; the next poll rewrites it
		slog.ErrorContext(ctx, "Failed to mark ledger as synced",
			log.FieldComponent, log.ComponentWorker,
			log.FieldUserID, userID,
			log.FieldRevision, doc.Revision,
			log.FieldError, err)
	}

	slog.InfoContext(ctx, "Successfully synced ledger",
		log.FieldComponent, log.ComponentWorker,
		log.FieldOperation, log.OpSync,
		log.FieldUserID, userID,
		log.FieldRevision, doc.Revision,
		log.FieldSheetsRef, ref,
		"expenses", len(state.Expenses))

	return doc.Revision, nil
}

// throttle waits until minInterval has passed since the user's last write.
func (w *SyncWorker) throttle(ctx context.Context, userID string) error {
	if w.minInterval <= 0 {
		return nil
	}

	w.mu.Lock()
	last, ok := w.lastWrite[userID]
	w.mu.Unlock()
	if !ok {
		return nil
	}

	wait := w.minInterval - w.now().Sub(last)
	if wait <= 0 {
		return nil
	}
	return w.sleep(ctx, wait)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
