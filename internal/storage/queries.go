package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type Ledger struct {
	UserID         string
	Data           string
	Revision       int64
	SyncedRevision int64
	UpdatedAt      int64
}

const getLedger = `-- name: GetLedger :one
SELECT user_id, data, revision, synced_revision, updated_at
FROM ledgers
WHERE user_id = ?
`

func (q *Queries) GetLedger(ctx context.Context, userID string) (Ledger, error) {
	row := q.db.QueryRowContext(ctx, getLedger, userID)
	var i Ledger
	err := row.Scan(&i.UserID, &i.Data, &i.Revision, &i.SyncedRevision, &i.UpdatedAt)
	return i, err
}

const insertLedger = `-- name: InsertLedger :execrows
INSERT INTO ledgers (user_id, data, revision, synced_revision, updated_at)
VALUES (?, ?, 1, 0, ?)
ON CONFLICT(user_id) DO NOTHING
`

type InsertLedgerParams struct {
	UserID    string
	Data      string
	UpdatedAt int64
}

func (q *Queries) InsertLedger(ctx context.Context, arg InsertLedgerParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertLedger, arg.UserID, arg.Data, arg.UpdatedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateLedger = `-- name: UpdateLedger :execrows
UPDATE ledgers
SET data = ?, revision = revision + 1, updated_at = ?
WHERE user_id = ? AND revision = ?
`

type UpdateLedgerParams struct {
	Data             string
	UpdatedAt        int64
	UserID           string
	ExpectedRevision int64
}

func (q *Queries) UpdateLedger(ctx context.Context, arg UpdateLedgerParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateLedger, arg.Data, arg.UpdatedAt, arg.UserID, arg.ExpectedRevision)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listUserIDs = `-- name: ListUserIDs :many
SELECT user_id FROM ledgers ORDER BY user_id
`

func (q *Queries) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listUserIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, err
		}
		items = append(items, userID)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getPendingSyncLedgers = `-- name: GetPendingSyncLedgers :many
SELECT user_id, data, revision, synced_revision, updated_at
FROM ledgers
WHERE synced_revision < revision
ORDER BY updated_at ASC
LIMIT ?
`

func (q *Queries) GetPendingSyncLedgers(ctx context.Context, limit int64) ([]Ledger, error) {
	rows, err := q.db.QueryContext(ctx, getPendingSyncLedgers, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Ledger
	for rows.Next() {
		var i Ledger
		if err := rows.Scan(&i.UserID, &i.Data, &i.Revision, &i.SyncedRevision, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markLedgerSynced = `-- name: MarkLedgerSynced :exec
UPDATE ledgers
SET synced_revision = ?
WHERE user_id = ? AND synced_revision < ?
`

type MarkLedgerSyncedParams struct {
	Revision int64
	UserID   string
}

func (q *Queries) MarkLedgerSynced(ctx context.Context, arg MarkLedgerSyncedParams) error {
	_, err := q.db.ExecContext(ctx, markLedgerSynced, arg.Revision, arg.UserID, arg.Revision)
	return err
}

const deleteLedger = `-- name: DeleteLedger :exec
DELETE FROM ledgers WHERE user_id = ?
`

func (q *Queries) DeleteLedger(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx, deleteLedger, userID)
	return err
}
