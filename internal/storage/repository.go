package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"struk/internal/core"

	_ "modernc.org/sqlite"
)

// StarterCategories is the category set seeded into an empty store.
var StarterCategories = []core.Category{
	{ID: "exp-food", Name: "Food & Drink", Icon: "🍔", Type: core.Expense},
	{ID: "exp-transport", Name: "Transport", Icon: "🚗", Type: core.Expense},
	{ID: "exp-shopping", Name: "Shopping", Icon: "🛍️", Type: core.Expense},
	{ID: "exp-bills", Name: "Bills", Icon: "🧾", Type: core.Expense},
	{ID: "exp-entertainment", Name: "Entertainment", Icon: "🎬", Type: core.Expense},
	{ID: "exp-health", Name: "Health", Icon: "💊", Type: core.Expense},
	{ID: "exp-other", Name: "Other", Icon: "📦", Type: core.Expense},
	{ID: "inc-salary", Name: "Salary", Icon: "💰", Type: core.Income},
	{ID: "inc-bonus", Name: "Bonus", Icon: "🎁", Type: core.Income},
	{ID: "inc-investment", Name: "Investment", Icon: "📈", Type: core.Income},
	{ID: "inc-other", Name: "Other Income", Icon: "💵", Type: core.Income},
}

type SQLiteRepository struct {
	path    string
	db      *sql.DB
	queries *Queries
	life    lifecycle
}

func dsn(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// NewSQLiteRepository returns a closed repository for the database at
// dbPath. Call Open before using it.
func NewSQLiteRepository(dbPath string) *SQLiteRepository {
	return &SQLiteRepository{path: dbPath}
}

// OpenSQLiteRepository is NewSQLiteRepository followed by Open.
func OpenSQLiteRepository(ctx context.Context, dbPath string) (*SQLiteRepository, error) {
	r := NewSQLiteRepository(dbPath)
	if err := r.Open(ctx); err != nil {
		return r, err
	}
	return r, nil
}

// Open walks Closed → Opening → SchemaMigrating → Open. Any failure leaves
// the repository Failed and every later call returns ErrStorageUnavailable.
func (r *SQLiteRepository) Open(ctx context.Context) error {
	switch st, cause := r.life.get(); st {
	case StateOpen:
		return nil
	case StateFailed:
		return fmt.Errorf("open: %w: %w", core.ErrStorageUnavailable, cause)
	case StateClosed:
	default:
		return fmt.Errorf("open: %w: already %s", core.ErrStorageUnavailable, st)
	}

	r.life.set(StateOpening)
	fail := func(step string, err error) error {
		wrapped := fmt.Errorf("%s: %w", step, err)
		r.life.fail(wrapped)
		slog.ErrorContext(ctx, "Local store failed to open", "path", r.path, "error", wrapped)
		return fmt.Errorf("open: %w: %w", core.ErrStorageUnavailable, wrapped)
	}

	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fail("create db directory", err)
		}
	}

	db, err := sql.Open("sqlite", dsn(r.path))
	if err != nil {
		return fail("open sqlite database", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fail("ping database", err)
	}

	r.life.set(StateSchemaMigrating)
	if err := RunMigrations(r.path); err != nil {
		db.Close()
		return fail("migrate", err)
	}

	r.db = db
	r.queries = New(db)
	r.life.set(StateOpen)
	slog.InfoContext(ctx, "Local store open", "path", r.path)
	return nil
}

// State reports the lifecycle state.
func (r *SQLiteRepository) State() State {
	st, _ := r.life.get()
	return st
}

func (r *SQLiteRepository) Close() error {
	if st, _ := r.life.get(); st == StateFailed {
		return nil
	}
	r.life.set(StateClosed)
	if r.db != nil {
		err := r.db.Close()
		r.db = nil
		return err
	}
	return nil
}

func (r *SQLiteRepository) ready(op string) error {
	st, cause := r.life.get()
	if st == StateOpen {
		return nil
	}
	if cause != nil {
		return fmt.Errorf("%s: %w: %w", op, core.ErrStorageUnavailable, cause)
	}
	return fmt.Errorf("%s: %w: store is %s", op, core.ErrStorageUnavailable, st)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrStorageUnavailable, err)
}

// inTx runs fn inside one SQL transaction.
func (r *SQLiteRepository) inTx(ctx context.Context, op string, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(op, err)
	}
	defer tx.Rollback()
	if err := fn(r.queries.WithTx(tx)); err != nil {
		return unavailable(op, err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable(op, err)
	}
	return nil
}

func toTransactionRow(tx core.Transaction) TransactionRow {
	return TransactionRow{
		ID:          tx.ID,
		StoreName:   tx.StoreName,
		TotalAmount: tx.TotalAmount,
		Date:        tx.Date,
		Category:    tx.Category,
		Type:        string(tx.Type),
	}
}

func putTransaction(ctx context.Context, q *Queries, tx core.Transaction) error {
	if err := q.UpsertTransaction(ctx, toTransactionRow(tx)); err != nil {
		return fmt.Errorf("upsert transaction %s: %w", tx.ID, err)
	}
	if err := q.DeleteTransactionItems(ctx, tx.ID); err != nil {
		return fmt.Errorf("clear items of %s: %w", tx.ID, err)
	}
	for i, it := range tx.Items {
		err := q.InsertTransactionItem(ctx, TransactionItemRow{
			TransactionID: tx.ID,
			Position:      int64(i),
			ID:            it.ID,
			Name:          it.Name,
			Qty:           it.Qty,
			Price:         it.Price,
		})
		if err != nil {
			return fmt.Errorf("insert item %d of %s: %w", i, tx.ID, err)
		}
	}
	return nil
}

func (r *SQLiteRepository) GetAllTransactions(ctx context.Context) ([]core.Transaction, error) {
	const op = "get all transactions"
	if err := r.ready(op); err != nil {
		return nil, err
	}
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, unavailable(op, err)
	}
	itemRows, err := r.queries.ListTransactionItems(ctx)
	if err != nil {
		return nil, unavailable(op, err)
	}

	items := make(map[string][]core.TransactionItem, len(rows))
	for _, it := range itemRows {
		items[it.TransactionID] = append(items[it.TransactionID], core.TransactionItem{
			ID:    it.ID,
			Name:  it.Name,
			Qty:   it.Qty,
			Price: it.Price,
		})
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		txItems := items[row.ID]
		if txItems == nil {
			txItems = []core.TransactionItem{}
		}
		out = append(out, core.Transaction{
			ID:          row.ID,
			StoreName:   row.StoreName,
			Items:       txItems,
			TotalAmount: row.TotalAmount,
			Date:        row.Date,
			Category:    row.Category,
			Type:        core.TxType(row.Type),
		})
	}
	return out, nil
}

// PutTransaction upserts tx and replaces its items.
func (r *SQLiteRepository) PutTransaction(ctx context.Context, tx core.Transaction) error {
	const op = "put transaction"
	if err := r.ready(op); err != nil {
		return err
	}
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return r.inTx(ctx, op, func(q *Queries) error {
		return putTransaction(ctx, q, tx)
	})
}

// BulkPutTransactions writes every record or none of them.
func (r *SQLiteRepository) BulkPutTransactions(ctx context.Context, txs []core.Transaction) error {
	const op = "bulk put transactions"
	if err := r.ready(op); err != nil {
		return err
	}
	for i, tx := range txs {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("%s: record %d (%s): %w", op, i, tx.ID, err)
		}
	}
	if len(txs) == 0 {
		return nil
	}
	err := r.inTx(ctx, op, func(q *Queries) error {
		for _, tx := range txs {
			if err := putTransaction(ctx, q, tx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.DebugContext(ctx, "Bulk put committed", "count", len(txs))
	return nil
}

// DeleteTransaction is a no-op when id is unknown.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	const op = "delete transaction"
	if err := r.ready(op); err != nil {
		return err
	}
	if err := r.queries.DeleteTransaction(ctx, id); err != nil {
		return unavailable(op, err)
	}
	return nil
}

func (r *SQLiteRepository) GetAllCategories(ctx context.Context) ([]core.Category, error) {
	const op = "get all categories"
	if err := r.ready(op); err != nil {
		return nil, err
	}
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, unavailable(op, err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Category{ID: row.ID, Name: row.Name, Icon: row.Icon, Type: core.TxType(row.Type)})
	}
	return out, nil
}

func (r *SQLiteRepository) PutCategory(ctx context.Context, c core.Category) error {
	const op = "put category"
	if err := r.ready(op); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	err := r.queries.UpsertCategory(ctx, CategoryRow{ID: c.ID, Name: c.Name, Icon: c.Icon, Type: string(c.Type)})
	if err != nil {
		return unavailable(op, err)
	}
	return nil
}

// DeleteCategory removes the category only. Transactions naming it keep the
// name.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	const op = "delete category"
	if err := r.ready(op); err != nil {
		return err
	}
	if err := r.queries.DeleteCategory(ctx, id); err != nil {
		return unavailable(op, err)
	}
	return nil
}

func profileFromRow(row UserProfileRow) core.UserProfile {
	return core.UserProfile{
		Name:            row.Name,
		AvatarURL:       row.AvatarURL,
		PIN:             row.Pin,
		GoogleSheetID:   row.GoogleSheetID,
		GoogleSheetName: row.GoogleSheetName,
		GoogleEmail:     row.GoogleEmail,
		GooglePhotoURL:  row.GooglePhotoURL,
	}
}

func profileToRow(p core.UserProfile) UserProfileRow {
	return UserProfileRow{
		Name:            p.Name,
		AvatarURL:       p.AvatarURL,
		Pin:             p.PIN,
		GoogleSheetID:   p.GoogleSheetID,
		GoogleSheetName: p.GoogleSheetName,
		GoogleEmail:     p.GoogleEmail,
		GooglePhotoURL:  p.GooglePhotoURL,
	}
}

// GetProfile returns ok=false when no profile exists yet.
func (r *SQLiteRepository) GetProfile(ctx context.Context) (core.UserProfile, bool, error) {
	const op = "get profile"
	if err := r.ready(op); err != nil {
		return core.UserProfile{}, false, err
	}
	row, ok, err := r.queries.GetUserProfile(ctx)
	if err != nil {
		return core.UserProfile{}, false, unavailable(op, err)
	}
	if !ok {
		return core.UserProfile{}, false, nil
	}
	return profileFromRow(row), true, nil
}

func (r *SQLiteRepository) PutProfile(ctx context.Context, p core.UserProfile) error {
	const op = "put profile"
	if err := r.ready(op); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := r.queries.UpsertUserProfile(ctx, profileToRow(p)); err != nil {
		return unavailable(op, err)
	}
	return nil
}

// MergeProfile applies patch onto the stored profile in one transaction and
// returns the result. A missing profile is treated as empty.
func (r *SQLiteRepository) MergeProfile(ctx context.Context, patch core.ProfilePatch) (core.UserProfile, error) {
	const op = "merge profile"
	if err := r.ready(op); err != nil {
		return core.UserProfile{}, err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.UserProfile{}, unavailable(op, err)
	}
	defer tx.Rollback()
	q := r.queries.WithTx(tx)

	row, _, err := q.GetUserProfile(ctx)
	if err != nil {
		return core.UserProfile{}, unavailable(op, err)
	}
	merged := patch.Apply(profileFromRow(row))
	if err := merged.Validate(); err != nil {
		return core.UserProfile{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := q.UpsertUserProfile(ctx, profileToRow(merged)); err != nil {
		return core.UserProfile{}, unavailable(op, err)
	}
	if err := tx.Commit(); err != nil {
		return core.UserProfile{}, unavailable(op, err)
	}
	return merged, nil
}

// InitDefaultsIfNeeded seeds the starter categories when there are none and
// stores def when no profile exists. Running it again changes nothing.
func (r *SQLiteRepository) InitDefaultsIfNeeded(ctx context.Context, def core.UserProfile) (core.UserProfile, []core.Category, error) {
	const op = "init defaults"
	if err := r.ready(op); err != nil {
		return core.UserProfile{}, nil, err
	}
	if err := def.Validate(); err != nil {
		return core.UserProfile{}, nil, fmt.Errorf("%s: %w", op, err)
	}

	var seeded bool
	err := r.inTx(ctx, op, func(q *Queries) error {
		n, err := q.CountCategories(ctx)
		if err != nil {
			return fmt.Errorf("count categories: %w", err)
		}
		if n == 0 {
			for _, c := range StarterCategories {
				if err := q.UpsertCategory(ctx, CategoryRow{ID: c.ID, Name: c.Name, Icon: c.Icon, Type: string(c.Type)}); err != nil {
					return fmt.Errorf("seed category %s: %w", c.ID, err)
				}
			}
			seeded = true
		}
		_, ok, err := q.GetUserProfile(ctx)
		if err != nil {
			return fmt.Errorf("read profile: %w", err)
		}
		if !ok {
			if err := q.UpsertUserProfile(ctx, profileToRow(def)); err != nil {
				return fmt.Errorf("seed profile: %w", err)
			}
			seeded = true
		}
		return nil
	})
	if err != nil {
		return core.UserProfile{}, nil, err
	}
	if seeded {
		slog.InfoContext(ctx, "Seeded default data", "path", r.path)
	}

	profile, _, err := r.GetProfile(ctx)
	if err != nil {
		return core.UserProfile{}, nil, err
	}
	cats, err := r.GetAllCategories(ctx)
	if err != nil {
		return core.UserProfile{}, nil, err
	}
	return profile, cats, nil
}
