package sheets

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"struk/internal/core"
)

// Header is the first row of every spreadsheet this package creates.
var Header = []any{"ID", "Date (ISO)", "Store", "Category", "Type", "Total Amount", "Items Detail"}

const (
	colID = iota
	colDate
	colStore
	colCategory
	colType
	colTotal
	colItems

	numColumns = colItems + 1
	minColumns = colTotal + 1
)

// TotalColumn is the zero-based index of the total amount column.
const TotalColumn = colTotal

// DataRange is the A1 column span holding the seven columns.
const DataRange = "A:G"

var itemPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)x (.+?) \(@(\d+(?:\.\d+)?)\)`)

// MalformedRowError reports a pulled row that was skipped. Row is 1-based and
// counts the header.
type MalformedRowError struct {
	Row    int
	Reason string
}

func (e *MalformedRowError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return e.Reason
}

func (e *MalformedRowError) Unwrap() error { return core.ErrMalformedRow }

func malformed(format string, args ...any) *MalformedRowError {
	return &MalformedRowError{Reason: fmt.Sprintf(format, args...)}
}

// EncodeItemsDetail flattens items as "<qty>x <name> (@<price>)" joined by
// ", ".
func EncodeItemsDetail(items []core.TransactionItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%sx %s (@%s)", core.FormatNumber(it.Qty), it.Name, core.FormatNumber(it.Price)))
	}
	return strings.Join(parts, ", ")
}

// ParseItemsDetail is the inverse of EncodeItemsDetail. Text that does not
// match an entry is dropped. Every item gets a fresh id.
func ParseItemsDetail(s string) []core.TransactionItem {
	matches := itemPattern.FindAllStringSubmatch(s, -1)
	items := make([]core.TransactionItem, 0, len(matches))
	for _, m := range matches {
		qty, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			continue
		}
		items = append(items, core.TransactionItem{
			ID:    core.NewID(),
			Name:  strings.TrimSpace(m[2]),
			Qty:   qty,
			Price: price,
		})
	}
	return items
}

// EncodeRow renders tx as one spreadsheet row.
func EncodeRow(tx core.Transaction) []any {
	row := make([]any, numColumns)
	row[colID] = tx.ID
	row[colDate] = tx.Date
	row[colStore] = tx.StoreName
	row[colCategory] = tx.Category
	row[colType] = string(tx.Type)
	row[colTotal] = tx.TotalAmount
	row[colItems] = EncodeItemsDetail(tx.Items)
	return row
}

// EncodeRows renders txs in order.
func EncodeRows(txs []core.Transaction) [][]any {
	out := make([][]any, 0, len(txs))
	for _, tx := range txs {
		out = append(out, EncodeRow(tx))
	}
	return out
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return core.FormatNumber(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func cellNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, !math.IsNaN(t) && !math.IsInf(t, 0)
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	s := cellString(v)
	if s == "" {
		return 0, false
	}
	// "20.000" is a grouped thousand, not twenty.
	if f, err := core.ParseAmount(s); err == nil {
		return f, true
	}
	if d, err := decimal.NewFromString(s); err == nil && !d.IsNegative() {
		return d.InexactFloat64(), true
	}
	return 0, false
}

// DecodeRow rebuilds a transaction from one row. The transaction keeps the
// row's id; items get fresh ids.
func DecodeRow(row []any) (core.Transaction, error) {
	if len(row) < minColumns {
		return core.Transaction{}, malformed("expected at least %d columns, got %d", minColumns, len(row))
	}
	id := cellString(row[colID])
	if id == "" {
		return core.Transaction{}, malformed("empty id")
	}
	txType, err := core.ParseTxType(cellString(row[colType]))
	if err != nil {
		return core.Transaction{}, malformed("unknown type %q", cellString(row[colType]))
	}
	total, ok := cellNumber(row[colTotal])
	if !ok {
		return core.Transaction{}, malformed("non-numeric total %q", cellString(row[colTotal]))
	}

	var raw string
	if len(row) > colItems {
		raw = cellString(row[colItems])
	}
	items := ParseItemsDetail(raw)
	if len(items) == 0 && raw != "" {
		items = []core.TransactionItem{{ID: core.NewID(), Name: raw, Qty: 1, Price: total}}
	}

	tx := core.Transaction{
		ID:          id,
		StoreName:   cellString(row[colStore]),
		Items:       items,
		TotalAmount: total,
		Date:        cellString(row[colDate]),
		Category:    cellString(row[colCategory]),
		Type:        txType,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, malformed("%v", err)
	}
	return tx, nil
}

func isHeader(row []any) bool {
	return len(row) > 0 && strings.EqualFold(cellString(row[0]), "ID")
}

// DecodeRows decodes every data row. A leading header row is skipped, blank
// rows are ignored and malformed rows are reported instead of failing the
// batch.
func DecodeRows(values [][]any) FetchResult {
	res := FetchResult{Transactions: make([]core.Transaction, 0, len(values))}
	for i, row := range values {
		if i == 0 && isHeader(row) {
			continue
		}
		if blank(row) {
			continue
		}
		tx, err := DecodeRow(row)
		if err != nil {
			var mre *MalformedRowError
			if !errors.As(err, &mre) {
				mre = &MalformedRowError{Reason: err.Error()}
			}
			mre.Row = i + 1
			res.Malformed = append(res.Malformed, mre)
			continue
		}
		res.Transactions = append(res.Transactions, tx)
	}
	return res
}

func blank(row []any) bool {
	for _, v := range row {
		if cellString(v) != "" {
			return false
		}
	}
	return true
}
