// Package memory is an in-process LedgerMirror used by tests and by the
// sync worker when no spreadsheet is configured.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"billetera/internal/core"
	ports "billetera/internal/sheets"
)

var _ ports.LedgerMirror = (*Store)(nil)

// Write is the last grid written for a user.
type Write struct {
	Tab    string
	Rows   [][]any
	Totals core.Totals
}

type Store struct {
	mu     sync.Mutex
	prefix string
	tabs   map[string]Write
	writes int
}

func New(prefix string) *Store {
	return &Store{prefix: prefix, tabs: make(map[string]Write)}
}

// WriteLedger stores the grid BuildRows produces and returns a synthetic
// reference.
func (s *Store) WriteLedger(ctx context.Context, userID string, state core.LedgerState, totals core.Totals) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if userID == "" {
		return "", errors.New("missing user id")
	}

	w := Write{
		Tab:    ports.TabName(s.prefix, userID),
		Rows:   ports.BuildRows(state, totals),
		Totals: totals,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[userID] = w
	s.writes++
	return fmt.Sprintf("mem:%s:%d", w.Tab, s.writes), nil
}

// Last returns the most recent write for userID.
func (s *Store) Last(userID string) (Write, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.tabs[userID]
	return w, ok
}

// Writes counts every WriteLedger call that succeeded.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
