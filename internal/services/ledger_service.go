package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"billetera/internal/cache"
	"billetera/internal/core"
	"billetera/internal/ledger"
	"billetera/internal/log"
	"billetera/internal/storage"
)

// Publisher announces saved revisions to the sync worker.
type Publisher interface {
	PublishLedgerSync(ctx context.Context, userID string, revision int64) error
}

// Snapshot is a normalized ledger together with the stored revision it was
// read from. Revision 0 means nothing is stored yet.
type Snapshot struct {
	State    core.LedgerState
	Revision int64
}

// Mutation turns the current ledger into the next one. It may run twice
// when a concurrent writer wins the first save.
type Mutation func(core.LedgerState) core.LedgerState

// LedgerService orchestrates load, normalize, mutate, save and publish for
// one document per user.
type LedgerService struct {
	repo      storage.Repository
	publisher Publisher
	cache     cache.Cache[Snapshot]
	locks     *keyedMutex
}

// NewLedgerService wires a repository with an optional publisher and an
// optional cache; either may be nil.
func NewLedgerService(repo storage.Repository, publisher Publisher, c cache.Cache[Snapshot]) *LedgerService {
	return &LedgerService{
		repo:      repo,
		publisher: publisher,
		cache:     c,
		locks:     newKeyedMutex(),
	}
}

// Load returns the user's normalized ledger. A missing document yields the
// default state; a corrupt one yields the default state and a warning. A
// document that needed migration is written back once.
func (s *LedgerService) Load(ctx context.Context, userID string) (Snapshot, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if snap, ok := s.cached(userID); ok {
		return snap, nil
	}
	return s.load(ctx, userID)
}

func (s *LedgerService) load(ctx context.Context, userID string) (Snapshot, error) {
	doc, err := s.repo.Load(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return Snapshot{State: core.DefaultState()}, nil
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load ledger: %w", err)
	}

	state, changed, err := ledger.Decode(doc.Data)
	if err != nil {
		slog.WarnContext(ctx, "Stored ledger is corrupt, using default state",
			log.FieldComponent, log.ComponentLedger,
			log.FieldUserID, userID,
			log.FieldRevision, doc.Revision,
			log.FieldErrorType, log.ErrorTypeCorrupt,
			log.FieldError, err)
		return Snapshot{State: core.DefaultState(), Revision: doc.Revision}, nil
	}

	snap := Snapshot{State: state, Revision: doc.Revision}
	if changed {
		slog.InfoContext(ctx, "Migrated stored ledger",
			log.FieldComponent, log.ComponentLedger,
			log.FieldUserID, userID,
			log.FieldOperation, log.OpNormalize,
			log.FieldRevision, doc.Revision)
		snap, err = s.save(ctx, userID, state, doc.Revision)
		if err != nil {
			return Snapshot{}, err
		}
	}

	s.remember(userID, snap)
	return snap, nil
}

// Apply runs fn against the current ledger and stores the result. On a
// revision conflict the ledger is reloaded and fn is applied once more.
// A mutation that leaves the document unchanged is not written, and a
// missing document stays missing.
func (s *LedgerService) Apply(ctx context.Context, userID string, fn Mutation) (Snapshot, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	current, ok := s.cached(userID)
	if !ok {
		var err error
		if current, err = s.load(ctx, userID); err != nil {
			return Snapshot{}, err
		}
	}

	snap, err := s.applyOnce(ctx, userID, current, fn)
	if errors.Is(err, storage.ErrRevisionConflict) {
		slog.WarnContext(ctx, "Ledger changed underneath, retrying",
			log.FieldComponent, log.ComponentLedger,
			log.FieldUserID, userID,
			log.FieldRevision, current.Revision,
			log.FieldOperation, log.OpApply,
			log.FieldErrorType, log.ErrorTypeConflict)
		s.forget(userID)
		if current, err = s.load(ctx, userID); err != nil {
			return Snapshot{}, err
		}
		snap, err = s.applyOnce(ctx, userID, current, fn)
	}
	if err != nil {
		s.forget(userID)
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *LedgerService) applyOnce(ctx context.Context, userID string, current Snapshot, fn Mutation) (Snapshot, error) {
	next, _ := ledger.Normalize(fn(current.State))

	// a no-op leaves a missing document missing too
	before, err1 := ledger.Encode(current.State)
	after, err2 := ledger.Encode(next)
	if err1 == nil && err2 == nil && bytes.Equal(before, after) {
		return current, nil
	}

	snap, err := s.save(ctx, userID, next, current.Revision)
	if err != nil {
		return Snapshot{}, err
	}
	s.remember(userID, snap)
	return snap, nil
}

func (s *LedgerService) save(ctx context.Context, userID string, state core.LedgerState, expected int64) (Snapshot, error) {
	data, err := ledger.Encode(state)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode ledger: %w", err)
	}

	start := time.Now()
	rev, err := s.repo.Save(ctx, userID, data, expected)
	if err != nil {
		return Snapshot{}, fmt.Errorf("save ledger: %w", err)
	}

	fields := log.NewFields().
		WithComponent(log.ComponentLedger).
		WithUser(userID).
		WithOperation(log.OpSave).
		WithRevision(rev)
	slog.DebugContext(ctx, "Saved ledger",
		append(fields.ToSlice(), log.FieldDuration, time.Since(start).Milliseconds())...)

	s.publish(ctx, userID, rev)
	return Snapshot{State: state, Revision: rev}, nil
}

func (s *LedgerService) publish(ctx context.Context, userID string, rev int64) {
	if s.publisher == nil {
		return
	}
	// the document is already saved; the polling sync path picks it up
	if err := s.publisher.PublishLedgerSync(ctx, userID, rev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger sync",
			log.FieldComponent, log.ComponentLedger,
			log.FieldUserID, userID,
			log.FieldRevision, rev,
			log.FieldError, err)
	}
}

// Totals loads the ledger and derives its aggregates.
func (s *LedgerService) Totals(ctx context.Context, userID string) (core.Totals, error) {
	snap, err := s.Load(ctx, userID)
	if err != nil {
		return core.Totals{}, err
	}
	return ledger.ComputeTotals(snap.State), nil
}

// Reset clears every collection and the initial balance.
func (s *LedgerService) Reset(ctx context.Context, userID string) (Snapshot, error) {
	snap, err := s.Apply(ctx, userID, ledger.ClearAll)
	fields := log.NewFields().
		WithComponent(log.ComponentLedger).
		WithUser(userID).
		WithOperation(log.OpReset).
		WithError(err)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to reset ledger", fields.ToSlice()...)
		return Snapshot{}, err
	}
	slog.InfoContext(ctx, "Ledger reset", fields.WithRevision(snap.Revision).ToSlice()...)
	return snap, nil
}

// Purge removes the user's stored document altogether. The next load
// starts over from the default state at revision 0.
func (s *LedgerService) Purge(ctx context.Context, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	err := s.repo.Delete(ctx, userID)
	s.forget(userID)
	fields := log.NewFields().
		WithComponent(log.ComponentLedger).
		WithUser(userID).
		WithOperation(log.OpReset).
		WithError(err)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to purge ledger", fields.ToSlice()...)
		return fmt.Errorf("purge ledger: %w", err)
	}
	slog.InfoContext(ctx, "Ledger purged", fields.ToSlice()...)
	return nil
}

// Export renders the user's ledger as a backup document.
func (s *LedgerService) Export(ctx context.Context, userID string, now time.Time) ([]byte, error) {
	snap, err := s.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ledger.Export(snap.State, now)
}

// Import replaces the user's ledger with the state inside a backup
// document.
func (s *LedgerService) Import(ctx context.Context, userID string, data []byte) (Snapshot, error) {
	fields := log.NewFields().
		WithComponent(log.ComponentLedger).
		WithUser(userID).
		WithOperation(log.OpImport)

	state, err := ledger.Import(data)
	if err != nil {
		slog.WarnContext(ctx, "Rejected backup", fields.WithError(err).ToSlice()...)
		return Snapshot{}, fmt.Errorf("import ledger: %w", err)
	}
	snap, err := s.Apply(ctx, userID, func(core.LedgerState) core.LedgerState {
		return state
	})
	if err != nil {
		return Snapshot{}, err
	}
	slog.InfoContext(ctx, "Imported backup",
		append(fields.WithRevision(snap.Revision).ToSlice(), "expenses", len(state.Expenses))...)
	return snap, nil
}

// Users lists every user with a stored ledger.
func (s *LedgerService) Users(ctx context.Context) ([]string, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// NewerRevision is the cache replace policy for snapshots: a cached ledger
// only gives way to one at the same or a later revision.
func NewerRevision(old, next Snapshot) bool {
	return next.Revision >= old.Revision
}

func (s *LedgerService) cached(userID string) (Snapshot, bool) {
	if s.cache == nil {
		return Snapshot{}, false
	}
	return s.cache.Get(userID)
}

func (s *LedgerService) remember(userID string, snap Snapshot) {
	if s.cache != nil {
		s.cache.Set(userID, snap)
	}
}

func (s *LedgerService) forget(userID string) {
	if s.cache != nil {
		s.cache.Delete(userID)
	}
}
