package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepository keeps documents in process memory. Nothing survives a
// restart.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]Document
	now  func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]Document), now: time.Now}
}

func (m *MemoryRepository) Load(_ context.Context, userID string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[userID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(doc), nil
}

func (m *MemoryRepository) Save(_ context.Context, userID string, data []byte, expectedRevision int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, exists := m.docs[userID]
	switch {
	case expectedRevision == 0 && exists:
		return 0, ErrRevisionConflict
	case expectedRevision != 0 && (!exists || doc.Revision != expectedRevision):
		return 0, ErrRevisionConflict
	}

	doc.UserID = userID
	doc.Data = append([]byte(nil), data...)
	doc.Revision = expectedRevision + 1
	doc.UpdatedAt = m.now()
	m.docs[userID] = doc
	return doc.Revision, nil
}

func (m *MemoryRepository) ListUsers(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]string, 0, len(m.docs))
	for id := range m.docs {
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

func (m *MemoryRepository) PendingSync(_ context.Context, limit int) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var pending []Document
	for _, doc := range m.docs {
		if doc.SyncedRevision < doc.Revision {
			pending = append(pending, cloneDocument(doc))
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].UpdatedAt.Equal(pending[j].UpdatedAt) {
			return pending[i].UserID < pending[j].UserID
		}
		return pending[i].UpdatedAt.Before(pending[j].UpdatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (m *MemoryRepository) MarkSynced(_ context.Context, userID string, revision int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[userID]
	if !ok || doc.SyncedRevision >= revision {
		return nil
	}
	doc.SyncedRevision = revision
	m.docs[userID] = doc
	return nil
}

func (m *MemoryRepository) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, userID)
	return nil
}

func (m *MemoryRepository) Close() error {
	return nil
}

func cloneDocument(d Document) Document {
	d.Data = append([]byte(nil), d.Data...)
	return d
}
