package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a user has no stored ledger.
	ErrNotFound = errors.New("ledger not found")
	// ErrRevisionConflict is returned by Save when the stored revision
	// differs from the one the caller read.
	ErrRevisionConflict = errors.New("ledger revision conflict")
)

// Document is one user's persisted ledger. Data is the ledger as UTF-8
// JSON. Revision starts at 1 and grows by one on every save;
// SyncedRevision is the last revision mirrored to the remote store.
type Document struct {
	UserID         string
	Data           []byte
	Revision       int64
	SyncedRevision int64
	UpdatedAt      time.Time
}

// Repository stores one ledger document per user.
type Repository interface {
	Load(ctx context.Context, userID string) (Document, error)
	// Save writes data if the stored revision equals expectedRevision and
	// returns the new revision. An expectedRevision of 0 creates the
	// document and fails if it already exists.
	Save(ctx context.Context, userID string, data []byte, expectedRevision int64) (int64, error)
	ListUsers(ctx context.Context) ([]string, error)
	PendingSync(ctx context.Context, limit int) ([]Document, error)
	MarkSynced(ctx context.Context, userID string, revision int64) error
	Delete(ctx context.Context, userID string) error
	Close() error
}

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := migrateSchema(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Load(ctx context.Context, userID string) (Document, error) {
	row, err := r.queries.GetLedger(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("get ledger: %w", err)
	}
	return toDocument(row), nil
}

func (r *SQLiteRepository) Save(ctx context.Context, userID string, data []byte, expectedRevision int64) (int64, error) {
	now := r.now().UnixMilli()

	if expectedRevision == 0 {
		n, err := r.queries.InsertLedger(ctx, InsertLedgerParams{UserID: userID, Data: string(data), UpdatedAt: now})
		if err != nil {
			return 0, fmt.Errorf("insert ledger: %w", err)
		}
		if n == 0 {
			return 0, ErrRevisionConflict
		}
		slog.DebugContext(ctx, "Ledger created", "user_id", userID, "revision", 1)
		return 1, nil
	}

	n, err := r.queries.UpdateLedger(ctx, UpdateLedgerParams{
		Data:             string(data),
		UpdatedAt:        now,
		UserID:           userID,
		ExpectedRevision: expectedRevision,
	})
	if err != nil {
		return 0, fmt.Errorf("update ledger: %w", err)
	}
	if n == 0 {
		return 0, ErrRevisionConflict
	}

	slog.DebugContext(ctx, "Ledger saved", "user_id", userID, "revision", expectedRevision+1)
	return expectedRevision + 1, nil
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]string, error) {
	users, err := r.queries.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// PendingSync returns ledgers whose latest revision has not been mirrored,
// least recently updated first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]Document, error) {
	rows, err := r.queries.GetPendingSyncLedgers(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync ledgers: %w", err)
	}
	docs := make([]Document, len(rows))
	for i, row := range rows {
		docs[i] = toDocument(row)
	}
	return docs, nil
}

// MarkSynced records that revision has been mirrored. Older revisions never
// overwrite a newer synced revision.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, userID string, revision int64) error {
	if err := r.queries.MarkLedgerSynced(ctx, MarkLedgerSyncedParams{Revision: revision, UserID: userID}); err != nil {
		return fmt.Errorf("mark ledger synced: %w", err)
	}
	slog.InfoContext(ctx, "Ledger marked as synced", "user_id", userID, "revision", revision)
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, userID string) error {
	if err := r.queries.DeleteLedger(ctx, userID); err != nil {
		return fmt.Errorf("delete ledger: %w", err)
	}
	return nil
}

func toDocument(row Ledger) Document {
	return Document{
		UserID:         row.UserID,
		Data:           []byte(row.Data),
		Revision:       row.Revision,
		SyncedRevision: row.SyncedRevision,
		UpdatedAt:      time.UnixMilli(row.UpdatedAt),
	}
}
