package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"billetera/internal/amqp"
	"billetera/internal/core"
	"billetera/internal/ledger"
	"billetera/internal/sheets/memory"
	"billetera/internal/storage"
)

type failingMirror struct{}

func (failingMirror) WriteLedger(context.Context, string, core.LedgerState, core.Totals) (string, error) {
	return "", errors.New("quota exceeded")
}

type fixture struct {
	repo   *storage.MemoryRepository
	mirror *memory.Store
	worker *SyncWorker
	clock  time.Time
	slept  []time.Duration
}

func newFixture(t *testing.T, minInterval time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		repo:   storage.NewMemoryRepository(),
		mirror: memory.New("Billetera"),
		clock:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	f.worker = NewSyncWorker(f.repo, f.mirror, minInterval)
	f.worker.now = func() time.Time { return f.clock }
	f.worker.sleep = func(_ context.Context, d time.Duration) error {
		f.slept = append(f.slept, d)
		f.clock = f.clock.Add(d)
		return nil
	}
	return f
}

func (f *fixture) save(t *testing.T, userID string, s core.LedgerState) int64 {
	t.Helper()
	ctx := context.Background()
	expected := int64(0)
	if doc, err := f.repo.Load(ctx, userID); err == nil {
		expected = doc.Revision
	}
	data, err := ledger.Encode(s)
	if err != nil {
		t.Fatal(err)
	}
	rev, err := f.repo.Save(ctx, userID, data, expected)
	if err != nil {
		t.Fatal(err)
	}
	return rev
}

func TestSyncWorker_MirrorsAndMarksSynced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Second)
	s := ledger.AddIncome(core.DefaultState(), ledger.IncomeInput{Date: "2024-01-01", Amount: 40})
	rev := f.save(t, "ana", s)

	if err := f.worker.HandleSyncMessage(ctx, amqp.NewLedgerSyncMessage("ana", rev)); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}

	w, ok := f.mirror.Last("ana")
	if !ok || w.Totals.Balance != 40 {
		t.Errorf("mirror = %+v, %v, want balance 40", w, ok)
	}
	doc, _ := f.repo.Load(ctx, "ana")
	if doc.SyncedRevision != rev {
		t.Errorf("SyncedRevision = %d, want %d", doc.SyncedRevision, rev)
	}
}

func TestSyncWorker_DropsStaleRevisions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	f.save(t, "ana", core.DefaultState())
	rev := f.save(t, "ana", ledger.SetInitialBalance(core.DefaultState(), 10))

	if err := f.worker.SyncLedger(ctx, "ana", rev); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		revision int64
	}{
		{"older revision", rev - 1},
		{"same revision", rev},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := f.worker.SyncLedger(ctx, "ana", tt.revision); err != nil {
				t.Fatalf("SyncLedger() error = %v", err)
			}
			if f.mirror.Writes() != 1 {
				t.Errorf("Writes() = %d, want 1", f.mirror.Writes())
			}
		})
	}
}

func TestSyncWorker_Throttles(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, time.Second)

	rev := f.save(t, "ana", core.DefaultState())
	if err := f.worker.SyncLedger(ctx, "ana", rev); err != nil {
		t.Fatal(err)
	}

	f.clock = f.clock.Add(300 * time.Millisecond)
	rev = f.save(t, "ana", ledger.SetInitialBalance(core.DefaultState(), 1))
	if err := f.worker.SyncLedger(ctx, "ana", rev); err != nil {
		t.Fatal(err)
	}

	if len(f.slept) != 1 || f.slept[0] != 700*time.Millisecond {
		t.Errorf("slept = %v, want [700ms]", f.slept)
	}

	// other users are not held back
	rev = f.save(t, "beto", core.DefaultState())
	if err := f.worker.SyncLedger(ctx, "beto", rev); err != nil {
		t.Fatal(err)
	}
	if len(f.slept) != 1 {
		t.Errorf("slept = %v, want no wait for a new user", f.slept)
	}
	if f.mirror.Writes() != 3 {
		t.Errorf("Writes() = %d, want 3", f.mirror.Writes())
	}
}

func TestSyncWorker_MissingLedger(t *testing.T) {
	f := newFixture(t, 0)
	if err := f.worker.SyncLedger(context.Background(), "ghost", 3); err != nil {
		t.Fatalf("SyncLedger() error = %v, want nil for a deleted ledger", err)
	}
	if f.mirror.Writes() != 0 {
		t.Errorf("Writes() = %d, want 0", f.mirror.Writes())
	}
}

func TestSyncWorker_CorruptLedgerIsSkipped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0)
	rev, err := f.repo.Save(ctx, "ana", []byte(`"nope"`), 0)
	if err != nil {
		t.Fatal(err)
	}

	if err := f.worker.SyncLedger(ctx, "ana", rev); err != nil {
		t.Fatalf("SyncLedger() error = %v", err)
	}
	if f.mirror.Writes() != 0 {
		t.Errorf("Writes() = %d, want 0", f.mirror.Writes())
	}
	if pending, _ := f.repo.PendingSync(ctx, 10); len(pending) != 0 {
		t.Errorf("PendingSync() = %v, want none", pending)
	}
}

func TestSyncWorker_MirrorFailure(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	rev, err := repo.Save(ctx, "ana", []byte(`{}`), 0)
	if err != nil {
		t.Fatal(err)
	}
	w := NewSyncWorker(repo, failingMirror{}, 0)

	if err := w.SyncLedger(ctx, "ana", rev); err == nil {
		t.Fatal("SyncLedger() expected error")
	}
	if pending, _ := repo.PendingSync(ctx, 10); len(pending) != 1 {
		t.Errorf("PendingSync() = %d docs, want 1", len(pending))
	}
}

func TestSyncWorker_ConcurrentMessages(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	mirror := memory.New("Billetera")
	rev, err := repo.Save(ctx, "ana", []byte(`{}`), 0)
	if err != nil {
		t.Fatal(err)
	}
	w := NewSyncWorker(repo, mirror, 0)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.SyncLedger(ctx, "ana", rev); err != nil {
				t.Errorf("SyncLedger() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if mirror.Writes() != 1 {
		t.Errorf("Writes() = %d, want 1", mirror.Writes())
	}
}

func TestSleepContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); err != context.Canceled {
		t.Errorf("sleepContext() error = %v, want %v", err, context.Canceled)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Errorf("sleepContext() error = %v", err)
	}
}
