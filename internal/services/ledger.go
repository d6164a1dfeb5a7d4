package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"struk/internal/aggregate"
	"struk/internal/core"
	applog "struk/internal/log"
	"struk/internal/sheets"
)

// TransactionStore is the part of the local store the ledger writes through.
type TransactionStore interface {
	GetAllTransactions(ctx context.Context) ([]core.Transaction, error)
	PutTransaction(ctx context.Context, tx core.Transaction) error
	BulkPutTransactions(ctx context.Context, txs []core.Transaction) error
	DeleteTransaction(ctx context.Context, id string) error
	GetProfile(ctx context.Context) (core.UserProfile, bool, error)
}

// RestoreReport summarizes a pull from the remote sheet.
type RestoreReport struct {
	Fetched    int
	Added      int
	Duplicates int
	Malformed  []*sheets.MalformedRowError
}

// Ledger owns the in-memory transaction list. Every mutation goes through the
// store first; the list only reflects writes the store accepted.
type Ledger struct {
	store  TransactionStore
	remote sheets.Remote
	pusher *Pusher
	logger *applog.Logger

	mu     sync.RWMutex
	cache  []core.Transaction
	loaded bool
}

// NewLedger builds a ledger. remote and pusher may be nil when no remote is
// configured.
func NewLedger(store TransactionStore, remote sheets.Remote, pusher *Pusher) *Ledger {
	return &Ledger{
		store:  store,
		remote: remote,
		pusher: pusher,
		logger: applog.Default().WithComponent(applog.ComponentLedger),
	}
}

// Load replaces the cached list with the store's contents, newest first.
func (l *Ledger) Load(ctx context.Context) error {
	txs, err := l.store.GetAllTransactions(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	aggregate.SortByDateDesc(txs)
	l.mu.Lock()
	l.cache = txs
	l.loaded = true
	l.mu.Unlock()
	return nil
}

// Loaded reports whether Load has completed at least once.
func (l *Ledger) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Transactions returns a copy of the cached list, newest first.
func (l *Ledger) Transactions() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]core.Transaction, len(l.cache))
	for i, tx := range l.cache {
		out[i] = tx.Clone()
	}
	return out
}

// Get returns the cached transaction with id.
func (l *Ledger) Get(id string) (core.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexOf(id); i >= 0 {
		return l.cache[i].Clone(), true
	}
	return core.Transaction{}, false
}

func (l *Ledger) indexOf(id string) int {
	for i := range l.cache {
		if l.cache[i].ID == id {
			return i
		}
	}
	return -1
}

// upsertLocked inserts or replaces tx and returns what it replaced.
func (l *Ledger) upsertLocked(tx core.Transaction) (prev core.Transaction, existed bool) {
	if i := l.indexOf(tx.ID); i >= 0 {
		prev = l.cache[i]
		l.cache[i] = tx
		aggregate.SortByDateDesc(l.cache)
		return prev, true
	}
	l.cache = append(l.cache, tx)
	aggregate.SortByDateDesc(l.cache)
	return core.Transaction{}, false
}

func (l *Ledger) removeLocked(id string) {
	if i := l.indexOf(id); i >= 0 {
		l.cache = append(l.cache[:i], l.cache[i+1:]...)
	}
}

// Add records a new transaction. The list shows it as soon as the write
// starts and drops it again if the store rejects it. When a sheet is linked
// the row is pushed in the background after the local save.
func (l *Ledger) Add(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("add transaction: %w", err)
	}
	tx = tx.Clone()

	l.mu.Lock()
	prev, existed := l.upsertLocked(tx)
	l.mu.Unlock()

	if err := l.store.PutTransaction(ctx, tx); err != nil {
		l.mu.Lock()
		if existed {
			l.upsertLocked(prev)
		} else {
			l.removeLocked(tx.ID)
		}
		l.mu.Unlock()
		return fmt.Errorf("add transaction: %w", err)
	}

	l.logger.InfoContext(ctx, "Transaction saved",
		applog.FieldOperation, applog.OpAdd,
		applog.FieldTxID, tx.ID,
		"type", tx.Type,
		"amount", aggregate.EffectiveAmount(tx))
	l.pushLinked(ctx, tx)
	return nil
}

func (l *Ledger) pushLinked(ctx context.Context, tx core.Transaction) {
	if l.pusher == nil {
		return
	}
	profile, ok, err := l.store.GetProfile(ctx)
	if err != nil {
		l.logger.WarnContext(ctx, "Skipping push, profile unavailable", applog.FieldError, err)
		return
	}
	if !ok || strings.TrimSpace(profile.GoogleSheetID) == "" {
		return
	}
	if err := l.pusher.Push(ctx, profile.GoogleSheetID, tx); err != nil {
		l.logger.WarnContext(ctx, "Push not started", applog.FieldTxID, tx.ID, applog.FieldError, err)
	}
}

// Update replaces an existing transaction once the store has accepted it.
func (l *Ledger) Update(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if err := l.store.PutTransaction(ctx, tx); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	l.mu.Lock()
	l.upsertLocked(tx.Clone())
	l.mu.Unlock()
	l.logger.DebugContext(ctx, "Transaction updated", applog.FieldOperation, applog.OpUpdate, applog.FieldTxID, tx.ID)
	return nil
}

// Delete removes id from the store and then from the list. Unknown ids are
// not an error.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	if err := l.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	l.mu.Lock()
	l.removeLocked(id)
	l.mu.Unlock()
	l.logger.DebugContext(ctx, "Transaction deleted", applog.FieldOperation, applog.OpDelete, applog.FieldTxID, id)
	return nil
}

// Import stores every transaction in batch whose id is not already known,
// in one atomic write, and returns how many were added. Repeated ids inside
// batch keep their first occurrence.
func (l *Ledger) Import(ctx context.Context, batch []core.Transaction) (int, error) {
	// Deduplication needs the stored ids, not an empty cache.
	if !l.Loaded() {
		if err := l.Load(ctx); err != nil {
			return 0, fmt.Errorf("import transactions: %w", err)
		}
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]struct{}, len(l.cache)+len(batch))
	for _, tx := range l.cache {
		seen[tx.ID] = struct{}{}
	}
	fresh := make([]core.Transaction, 0, len(batch))
	for _, tx := range batch {
		if _, dup := seen[tx.ID]; dup {
			continue
		}
		seen[tx.ID] = struct{}{}
		fresh = append(fresh, tx.Clone())
	}
	if len(fresh) == 0 {
		return 0, nil
	}
	if err := l.store.BulkPutTransactions(ctx, fresh); err != nil {
		return 0, fmt.Errorf("import transactions: %w", err)
	}
	l.cache = append(l.cache, fresh...)
	aggregate.SortByDateDesc(l.cache)

	l.logger.InfoContext(ctx, "Imported transactions",
		applog.FieldOperation, applog.OpImport,
		applog.FieldCount, len(fresh),
		"duplicates", len(batch)-len(fresh))
	return len(fresh), nil
}

func (l *Ledger) requireRemote(op string) error {
	if l.remote == nil {
		return fmt.Errorf("%s: %w: no remote configured", op, core.ErrRemoteUnauthenticated)
	}
	return nil
}

// Restore pulls every row of sheetID and imports the ones not stored yet.
// Malformed rows are reported, not fatal. The local list is reloaded from
// the store while the remote read is in flight.
func (l *Ledger) Restore(ctx context.Context, sheetID string) (RestoreReport, error) {
	if err := l.requireRemote("restore"); err != nil {
		return RestoreReport{}, err
	}

	var (
		remote sheets.FetchResult
		local  []core.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := l.remote.Fetch(gctx, sheetID)
		if err != nil {
			return fmt.Errorf("fetch remote rows: %w", err)
		}
		remote = res
		return nil
	})
	g.Go(func() error {
		txs, err := l.store.GetAllTransactions(gctx)
		if err != nil {
			return fmt.Errorf("load local transactions: %w", err)
		}
		local = txs
		return nil
	})
	if err := g.Wait(); err != nil {
		return RestoreReport{}, fmt.Errorf("restore: %w", err)
	}

	aggregate.SortByDateDesc(local)
	l.mu.Lock()
	l.cache = local
	l.loaded = true
	l.mu.Unlock()

	added, err := l.Import(ctx, remote.Transactions)
	if err != nil {
		return RestoreReport{}, fmt.Errorf("restore: %w", err)
	}
	report := RestoreReport{
		Fetched:    len(remote.Transactions),
		Added:      added,
		Duplicates: len(remote.Transactions) - added,
		Malformed:  remote.Malformed,
	}
	l.logger.InfoContext(ctx, "Restore finished",
		applog.FieldOperation, applog.OpRestore,
		applog.FieldSheetID, sheetID,
		"fetched", report.Fetched,
		"added", report.Added,
		"malformed", len(report.Malformed))
	return report, nil
}

// Backup appends the whole local list to sheetID in one call and returns the
// row count.
func (l *Ledger) Backup(ctx context.Context, sheetID string) (int, error) {
	if err := l.requireRemote("backup"); err != nil {
		return 0, err
	}
	txs := l.Transactions()
	if err := l.remote.BulkAppend(ctx, sheetID, txs); err != nil {
		return 0, fmt.Errorf("backup: %w", err)
	}
	l.logger.InfoContext(ctx, "Backup finished",
		applog.FieldOperation, applog.OpBackup,
		applog.FieldSheetID, sheetID,
		applog.FieldCount, len(txs))
	return len(txs), nil
}

// ExportInput gathers what a report generator needs, as of now.
func (l *Ledger) ExportInput(profile core.UserProfile, now time.Time) core.ExportInput {
	txs := l.Transactions()
	return core.ExportInput{
		Profile:      profile,
		Transactions: txs,
		Summary:      aggregate.Summarize(txs, now),
		ByCategory:   aggregate.CategoryBreakdown(txs),
	}
}
