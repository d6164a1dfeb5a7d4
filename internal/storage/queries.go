package storage

import (
	"context"
	"database/sql"
	"errors"
)

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

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row models.
type (
	TransactionRow struct {
		ID          string
		StoreName   string
		TotalAmount float64
		Date        string
		Category    string
		Type        string
	}

	TransactionItemRow struct {
		TransactionID string
		Position      int64
		ID            string
		Name          string
		Qty           float64
		Price         float64
	}

	CategoryRow struct {
		ID   string
		Name string
		Icon string
		Type string
	}

	UserProfileRow struct {
		Name            string
		AvatarURL       string
		Pin             string
		GoogleSheetID   string
		GoogleSheetName string
		GoogleEmail     string
		GooglePhotoURL  string
	}
)

const listTransactions = `
SELECT id, store_name, total_amount, date, category, type
FROM transactions
`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TransactionRow{}
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(&i.ID, &i.StoreName, &i.TotalAmount, &i.Date, &i.Category, &i.Type); err != nil {
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

const listTransactionItems = `
SELECT transaction_id, position, id, name, qty, price
FROM transaction_items
ORDER BY transaction_id, position
`

func (q *Queries) ListTransactionItems(ctx context.Context) ([]TransactionItemRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TransactionItemRow{}
	for rows.Next() {
		var i TransactionItemRow
		if err := rows.Scan(&i.TransactionID, &i.Position, &i.ID, &i.Name, &i.Qty, &i.Price); err != nil {
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

const upsertTransaction = `
INSERT INTO transactions (id, store_name, total_amount, date, category, type, updated_at)
VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
    store_name = excluded.store_name,
    total_amount = excluded.total_amount,
    date = excluded.date,
    category = excluded.category,
    type = excluded.type,
    updated_at = CURRENT_TIMESTAMP
`

func (q *Queries) UpsertTransaction(ctx context.Context, arg TransactionRow) error {
	_, err := q.db.ExecContext(ctx, upsertTransaction,
		arg.ID, arg.StoreName, arg.TotalAmount, arg.Date, arg.Category, arg.Type)
	return err
}

const deleteTransactionItems = `DELETE FROM transaction_items WHERE transaction_id = ?`

func (q *Queries) DeleteTransactionItems(ctx context.Context, transactionID string) error {
	_, err := q.db.ExecContext(ctx, deleteTransactionItems, transactionID)
	return err
}

const insertTransactionItem = `
INSERT INTO transaction_items (transaction_id, position, id, name, qty, price)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertTransactionItem(ctx context.Context, arg TransactionItemRow) error {
	_, err := q.db.ExecContext(ctx, insertTransactionItem,
		arg.TransactionID, arg.Position, arg.ID, arg.Name, arg.Qty, arg.Price)
	return err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteTransaction, id)
	return err
}

const listCategories = `SELECT id, name, icon, type FROM categories`

func (q *Queries) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CategoryRow{}
	for rows.Next() {
		var i CategoryRow
		if err := rows.Scan(&i.ID, &i.Name, &i.Icon, &i.Type); err != nil {
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

const countCategories = `SELECT COUNT(*) FROM categories`

func (q *Queries) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countCategories).Scan(&n)
	return n, err
}

const upsertCategory = `
INSERT INTO categories (id, name, icon, type)
VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    icon = excluded.icon,
    type = excluded.type
`

func (q *Queries) UpsertCategory(ctx context.Context, arg CategoryRow) error {
	_, err := q.db.ExecContext(ctx, upsertCategory, arg.ID, arg.Name, arg.Icon, arg.Type)
	return err
}

const deleteCategory = `DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteCategory, id)
	return err
}

const getUserProfile = `
SELECT name, avatar_url, pin, google_sheet_id, google_sheet_name, google_email, google_photo_url
FROM user_profile
WHERE key = 'profile'
`

// GetUserProfile returns ok=false when no profile has been stored yet.
func (q *Queries) GetUserProfile(ctx context.Context) (UserProfileRow, bool, error) {
	var i UserProfileRow
	err := q.db.QueryRowContext(ctx, getUserProfile).Scan(
		&i.Name, &i.AvatarURL, &i.Pin, &i.GoogleSheetID, &i.GoogleSheetName, &i.GoogleEmail, &i.GooglePhotoURL)
	if errors.Is(err, sql.ErrNoRows) {
		return UserProfileRow{}, false, nil
	}
	if err != nil {
		return UserProfileRow{}, false, err
	}
	return i, true, nil
}

const upsertUserProfile = `
INSERT INTO user_profile (key, name, avatar_url, pin, google_sheet_id, google_sheet_name, google_email, google_photo_url)
VALUES ('profile', ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    name = excluded.name,
    avatar_url = excluded.avatar_url,
    pin = excluded.pin,
    google_sheet_id = excluded.google_sheet_id,
    google_sheet_name = excluded.google_sheet_name,
    google_email = excluded.google_email,
    google_photo_url = excluded.google_photo_url
`

func (q *Queries) UpsertUserProfile(ctx context.Context, arg UserProfileRow) error {
	_, err := q.db.ExecContext(ctx, upsertUserProfile,
		arg.Name, arg.AvatarURL, arg.Pin, arg.GoogleSheetID, arg.GoogleSheetName, arg.GoogleEmail, arg.GooglePhotoURL)
	return err
}
