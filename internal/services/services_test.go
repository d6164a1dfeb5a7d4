package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"struk/internal/core"
	"struk/internal/sheets/memory"
	"struk/internal/storage"
)

func openStore(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.OpenSQLiteRepository(context.Background(), filepath.Join(t.TempDir(), "struk.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func expenseOn(id, date string, total float64) core.Transaction {
	return core.Transaction{
		ID:          id,
		StoreName:   "Mart " + id,
		Items:       []core.TransactionItem{{ID: id + "-1", Name: "Tea", Qty: 1, Price: total}},
		TotalAmount: total,
		Date:        date,
		Category:    "Food & Drink",
		Type:        core.Expense,
	}
}

func ids(txs []core.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		out[i] = tx.ID
	}
	return out
}

// failingStore rejects writes while fail is set.
type failingStore struct {
	TransactionStore
	fail error
}

func (f *failingStore) PutTransaction(ctx context.Context, tx core.Transaction) error {
	if f.fail != nil {
		return f.fail
	}
	return f.TransactionStore.PutTransaction(ctx, tx)
}

type results struct {
	mu  sync.Mutex
	got []PushResult
	ch  chan PushResult
}

func newResults() *results {
	return &results{ch: make(chan PushResult, 16)}
}

func (r *results) record(res PushResult) {
	r.mu.Lock()
	r.got = append(r.got, res)
	r.mu.Unlock()
	r.ch <- res
}

func (r *results) next(t *testing.T) PushResult {
	t.Helper()
	select {
	case res := <-r.ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for push result")
		return PushResult{}
	}
}

func TestLedgerLoadSortsNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.BulkPutTransactions(ctx, []core.Transaction{
		expenseOn("old", "2024-01-01", 1),
		expenseOn("bad", "someday", 1),
		expenseOn("new", "2025-03-01T10:00:00.000Z", 1),
	}))

	l := NewLedger(store, nil, nil)
	assert.False(t, l.Loaded())
	require.NoError(t, l.Load(ctx))
	assert.True(t, l.Loaded())
	assert.Equal(t, []string{"new", "old", "bad"}, ids(l.Transactions()))
}

func TestLedgerAddValidatesFirst(t *testing.T) {
	store := openStore(t)
	l := NewLedger(store, nil, nil)
	bad := expenseOn("a", "2025-03-01", 1)
	bad.StoreName = ""

	err := l.Add(context.Background(), bad)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Empty(t, l.Transactions())

	stored, err := store.GetAllTransactions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestLedgerAddRollsBackOnStoreFailure(t *testing.T) {
	store := &failingStore{TransactionStore: openStore(t)}
	l := NewLedger(store, nil, nil)
	ctx := context.Background()

	require.NoError(t, l.Add(ctx, expenseOn("a", "2025-03-01", 10)))

	store.fail = core.ErrStorageUnavailable
	err := l.Add(ctx, expenseOn("b", "2025-03-02", 20))
	assert.ErrorIs(t, err, core.ErrStorageUnavailable)

	changed := expenseOn("a", "2025-03-01", 99)
	assert.Error(t, l.Add(ctx, changed))

	got := l.Transactions()
	require.Len(t, got, 1)
	assert.Equal(t, 10.0, got[0].TotalAmount)
}

func TestLedgerPushesOnlyWhenLinked(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	remote := memory.New()
	ref, err := remote.Create(ctx, "backup")
	require.NoError(t, err)

	res := newResults()
	pusher := NewPusher(remote, PusherConfig{Workers: 1, Timeout: time.Second}, res.record)
	l := NewLedger(store, remote, pusher)
	profiles := NewProfile(store)
	_, _, err = profiles.Bootstrap(ctx)
	require.NoError(t, err)

	require.NoError(t, l.Add(ctx, expenseOn("a", "2025-03-01", 10)))
	require.NoError(t, pusher.Close(ctx))
	assert.Zero(t, pusher.Stats().Started, "no sheet linked yet")

	pusher = NewPusher(remote, PusherConfig{Workers: 1, Timeout: time.Second}, res.record)
	l = NewLedger(store, remote, pusher)
	require.NoError(t, l.Load(ctx))
	_, err = profiles.LinkSheet(ctx, ref.ID, ref.Title)
	require.NoError(t, err)

	require.NoError(t, l.Add(ctx, expenseOn("b", "2025-03-02", 20)))
	got := res.next(t)
	assert.NoError(t, got.Err)
	assert.Equal(t, "b", got.TxID)
	assert.Len(t, remote.Rows(ref.ID), 2)
}

func TestPushFailureKeepsLocalWrite(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	remote := memory.New()
	ref, err := remote.Create(ctx, "backup")
	require.NoError(t, err)
	profiles := NewProfile(store)
	_, _, err = profiles.Bootstrap(ctx)
	require.NoError(t, err)
	_, err = profiles.LinkSheet(ctx, ref.ID, ref.Title)
	require.NoError(t, err)

	remote.FailWith(core.ErrRemoteTransient)
	res := newResults()
	pusher := NewPusher(remote, DefaultPusherConfig(), res.record)
	l := NewLedger(store, remote, pusher)

	require.NoError(t, l.Add(ctx, expenseOn("a", "2025-03-01", 10)))
	got := res.next(t)
	assert.ErrorIs(t, got.Err, core.ErrRemoteTransient)

	stored, err := store.GetAllTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
	assert.Len(t, l.Transactions(), 1)
	assert.Equal(t, PushStats{Started: 1, Failed: 1}, pusher.Stats())
}

func TestImportDeduplicates(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	l := NewLedger(store, nil, nil)
	require.NoError(t, l.Add(ctx, expenseOn("a", "2025-03-01", 10)))

	added, err := l.Import(ctx, []core.Transaction{
		expenseOn("a", "2025-03-01", 999),
		expenseOn("b", "2025-03-03", 20),
		expenseOn("b", "2025-03-03", 30),
		expenseOn("c", "2025-02-01", 30),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"b", "a", "c"}, ids(l.Transactions()))

	a, ok := l.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10.0, a.TotalAmount, "local copy wins")

	stored, err := store.GetAllTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	added, err = l.Import(ctx, []core.Transaction{expenseOn("a", "2025-03-01", 1)})
	require.NoError(t, err)
	assert.Zero(t, added)
}

func TestImportBeforeLoadSkipsStoredIDs(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.NoError(t, store.PutTransaction(ctx, expenseOn("a", "2025-03-01", 10)))

	l := NewLedger(store, nil, nil)
	added, err := l.Import(ctx, []core.Transaction{
		expenseOn("a", "2025-03-01", 999),
		expenseOn("b", "2025-03-02", 20),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.True(t, l.Loaded())

	a, ok := l.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10.0, a.TotalAmount)
}

func TestImportIsAtomic(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	l := NewLedger(store, nil, nil)

	bad := expenseOn("bad", "2025-03-01", 1)
	bad.Type = "gift"
	_, err := l.Import(ctx, []core.Transaction{expenseOn("a", "2025-03-01", 1), bad})
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Empty(t, l.Transactions())
}

func TestRestoreFromRemote(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	remote := memory.New()
	ref, err := remote.Create(ctx, "backup")
	require.NoError(t, err)
	require.NoError(t, remote.BulkAppend(ctx, ref.ID, []core.Transaction{
		expenseOn("a", "2025-03-01", 10),
		expenseOn("b", "2025-03-02", 20),
	}))
	require.NoError(t, remote.AddRawRow(ref.ID, []any{"c", "2025-03-03"}))

	l := NewLedger(store, remote, nil)
	require.NoError(t, store.PutTransaction(ctx, expenseOn("a", "2025-03-01", 10)))

	report, err := l.Restore(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Fetched)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Duplicates)
	require.Len(t, report.Malformed, 1)
	assert.Equal(t, []string{"b", "a"}, ids(l.Transactions()))

	again, err := l.Restore(ctx, ref.ID)
	require.NoError(t, err)
	assert.Zero(t, again.Added)
}

func TestRestoreSurfacesRemoteErrors(t *testing.T) {
	store := openStore(t)
	remote := memory.New()
	remote.FailWith(core.ErrRemoteUnauthenticated)
	l := NewLedger(store, remote, nil)

	_, err := l.Restore(context.Background(), "sid")
	assert.ErrorIs(t, err, core.ErrRemoteUnauthenticated)

	_, err = NewLedger(store, nil, nil).Restore(context.Background(), "sid")
	assert.ErrorIs(t, err, core.ErrRemoteUnauthenticated)
}

func TestBackupThenRestoreIntoEmptyStore(t *testing.T) {
	ctx := context.Background()
	remote := memory.New()
	ref, err := remote.Create(ctx, "backup")
	require.NoError(t, err)

	src := NewLedger(openStore(t), remote, nil)
	require.NoError(t, src.Add(ctx, expenseOn("a", "2025-03-01", 10)))
	require.NoError(t, src.Add(ctx, core.NewIncome("Salary", 5000000, time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC), "Salary")))
	n, err := src.Backup(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := NewLedger(openStore(t), remote, nil)
	report, err := dst.Restore(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Added)
	assert.ElementsMatch(t, ids(src.Transactions()), ids(dst.Transactions()))
}

func TestLedgerUpdateAndDelete(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	l := NewLedger(store, nil, nil)
	require.NoError(t, l.Add(ctx, expenseOn("a", "2025-03-01", 10)))

	changed := expenseOn("a", "2025-03-01", 15)
	require.NoError(t, l.Update(ctx, changed))
	got, _ := l.Get("a")
	assert.Equal(t, 15.0, got.TotalAmount)

	require.NoError(t, l.Delete(ctx, "a"))
	require.NoError(t, l.Delete(ctx, "missing"))
	assert.Empty(t, l.Transactions())
}

func TestExportInput(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	l := NewLedger(store, nil, nil)
	require.NoError(t, l.Add(ctx, expenseOn("a", "2025-03-01", 10)))
	require.NoError(t, l.Add(ctx, expenseOn("b", "2025-03-05", 30)))

	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	in := l.ExportInput(core.UserProfile{Name: "Ayu"}, now)
	assert.Equal(t, "Ayu", in.Profile.Name)
	assert.Equal(t, []string{"b", "a"}, ids(in.Transactions))
	assert.Equal(t, 40.0, in.Summary.Expense)
	assert.Equal(t, 40.0, in.Summary.MonthExpense)
	assert.Equal(t, []core.CategoryAmount{{Name: "Food & Drink", Amount: 40}}, in.ByCategory)
}

// blockingRemote holds every append until release is closed.
type blockingRemote struct {
	release chan struct{}
}

func (b blockingRemote) Append(ctx context.Context, _ string, _ core.Transaction) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b blockingRemote) BulkAppend(context.Context, string, []core.Transaction) error { return nil }

func TestPusherCloseWaitsForInFlight(t *testing.T) {
	remote := blockingRemote{release: make(chan struct{})}
	p := NewPusher(remote, PusherConfig{Workers: 1, Timeout: 5 * time.Second}, nil)
	ctx := context.Background()
	require.NoError(t, p.Push(ctx, "sid", expenseOn("a", "2025-03-01", 1)))
	require.NoError(t, p.Push(ctx, "sid", expenseOn("b", "2025-03-01", 1)))

	short, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, p.Close(short), context.DeadlineExceeded)
	assert.ErrorIs(t, p.Push(ctx, "sid", expenseOn("c", "2025-03-01", 1)), ErrPusherClosed)

	close(remote.release)
	require.NoError(t, p.Close(ctx))
	assert.Equal(t, PushStats{Started: 2, Succeeded: 2}, p.Stats())
}

func TestPushOutlivesCallerCancellation(t *testing.T) {
	remote := memory.New()
	ref, err := remote.Create(context.Background(), "backup")
	require.NoError(t, err)
	res := newResults()
	p := NewPusher(remote, DefaultPusherConfig(), res.record)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Push(ctx, ref.ID, expenseOn("a", "2025-03-01", 1)))
	cancel()

	assert.NoError(t, res.next(t).Err)
}

func TestCategories(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	_, _, err := NewProfile(store).Bootstrap(ctx)
	require.NoError(t, err)
	cats := NewCategories(store)

	income, err := cats.List(ctx, core.Income)
	require.NoError(t, err)
	assert.Len(t, income, 4)

	coffee, err := cats.Add(ctx, " Coffee ", "☕", core.Expense)
	require.NoError(t, err)
	assert.Equal(t, "Coffee", coffee.Name)

	_, err = cats.Add(ctx, "coffee", "", core.Expense)
	assert.ErrorIs(t, err, core.ErrDuplicateCategory)
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = cats.Add(ctx, "Coffee", "", core.Income)
	assert.NoError(t, err, "names are unique per type only")

	found, ok, err := cats.Find(ctx, "COFFEE", core.Expense)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, coffee.ID, found.ID)

	all, err := cats.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, core.Expense, all[0].Type)
	assert.Equal(t, core.Income, all[len(all)-1].Type)
}

func TestDeletingCategoryKeepsTransactionCategory(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	cats := NewCategories(store)
	coffee, err := cats.Add(ctx, "Coffee", "☕", core.Expense)
	require.NoError(t, err)

	l := NewLedger(store, nil, nil)
	tx := expenseOn("a", "2025-03-01", 10)
	tx.Category = "Coffee"
	require.NoError(t, l.Add(ctx, tx))

	require.NoError(t, cats.Delete(ctx, coffee.ID))
	require.NoError(t, l.Load(ctx))
	got, _ := l.Get("a")
	assert.Equal(t, "Coffee", got.Category)
}

func TestProfilePIN(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	p := NewProfile(store)
	_, _, err := p.Bootstrap(ctx)
	require.NoError(t, err)

	ok, err := p.CheckPIN(ctx, "")
	require.NoError(t, err)
	assert.True(t, ok, "no pin set")

	assert.ErrorIs(t, p.SetPIN(ctx, "12ab56"), core.ErrInvalidPIN)
	require.NoError(t, p.SetPIN(ctx, "123456"))

	ok, err = p.CheckPIN(ctx, "123456")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = p.CheckPIN(ctx, "654321")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, p.SetPIN(ctx, ""))
	ok, _ = p.CheckPIN(ctx, "anything")
	assert.True(t, ok)
}

func TestProfileSheetLink(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	p := NewProfile(store)

	got, err := p.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile, got)

	_, err = p.LinkSheet(ctx, "", "x")
	assert.ErrorIs(t, err, core.ErrValidation)

	_, _, err = p.Bootstrap(ctx)
	require.NoError(t, err)
	linked, err := p.LinkSheet(ctx, "sid", "Backup")
	require.NoError(t, err)
	assert.Equal(t, "sid", linked.GoogleSheetID)

	withAcct, err := p.SetAccount(ctx, "ayu@example.com", "https://example.com/a.png")
	require.NoError(t, err)
	assert.Equal(t, "sid", withAcct.GoogleSheetID)
	assert.Equal(t, "ayu@example.com", withAcct.GoogleEmail)

	cleared, err := p.UnlinkSheet(ctx)
	require.NoError(t, err)
	assert.Empty(t, cleared.GoogleSheetID)
	assert.Empty(t, cleared.GoogleEmail)
	assert.Equal(t, "User", cleared.Name)
}

func TestBootstrapIsIdempotent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	p := NewProfile(store)

	p1, c1, err := p.Bootstrap(ctx)
	require.NoError(t, err)
	p2, c2, err := p.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
	assert.ElementsMatch(t, c1, c2)
}
