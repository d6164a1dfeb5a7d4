// Package aggregate derives balances, windowed sums, category breakdowns and
// chart series from a snapshot of transactions.
//
// Every function is pure: the result depends only on the arguments. Amounts
// are accumulated as decimals and converted back to float64 at the end.
package aggregate

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"struk/internal/core"
)

// Uncategorized is used for expenses whose category is blank.
const Uncategorized = "Uncategorized"

func finitePositive(f float64) bool {
	return f > 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func effectiveDecimal(tx core.Transaction) decimal.Decimal {
	if finitePositive(tx.TotalAmount) {
		return decimal.NewFromFloat(tx.TotalAmount)
	}
	sum := decimal.Zero
	for _, it := range tx.Items {
		line := it.Qty * it.Price
		if !finitePositive(line) {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(it.Qty).Mul(decimal.NewFromFloat(it.Price)))
	}
	if sum.IsNegative() {
		return decimal.Zero
	}
	return sum
}

// EffectiveAmount is the stored total when it is positive and finite,
// otherwise the sum of qty*price over the items. It is never negative.
func EffectiveAmount(tx core.Transaction) float64 {
	return effectiveDecimal(tx).InexactFloat64()
}

func totalDecimal(txs []core.Transaction, t core.TxType) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range txs {
		if tx.Type == t {
			sum = sum.Add(effectiveDecimal(tx))
		}
	}
	return sum
}

// TotalByType sums the effective amount of transactions of type t.
func TotalByType(txs []core.Transaction, t core.TxType) float64 {
	return totalDecimal(txs, t).InexactFloat64()
}

// Balance is income minus expense.
func Balance(txs []core.Transaction) float64 {
	return totalDecimal(txs, core.Income).Sub(totalDecimal(txs, core.Expense)).InexactFloat64()
}

// InCurrentMonth keeps transactions in the same year and month as ref, read
// in ref's location. Transactions with unparseable dates are dropped.
func InCurrentMonth(txs []core.Transaction, ref time.Time) []core.Transaction {
	loc := ref.Location()
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		d, ok := core.ParseDateIn(tx.Date, loc)
		if !ok {
			continue
		}
		if d.Year() == ref.Year() && d.Month() == ref.Month() {
			out = append(out, tx)
		}
	}
	return out
}

// TimeSeries returns the expense series for the trailing window of period:
// the 7 days ending today, day 1 of the month through today, or January
// through the current month bucketed by month. Every bucket in the window is
// present, zero or not.
func TimeSeries(txs []core.Transaction, period core.Period, ref time.Time) ([]core.Bucket, error) {
	loc := ref.Location()
	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, loc)

	var (
		buckets []core.Bucket
		keyOf   func(time.Time) string
	)
	dayKey := func(t time.Time) string { return t.Format("2006-01-02") }
	monthKey := func(t time.Time) string { return t.Format("2006-01") }

	switch period {
	case core.PeriodWeek:
		keyOf = dayKey
		for i := 6; i >= 0; i-- {
			d := today.AddDate(0, 0, -i)
			buckets = append(buckets, core.Bucket{Key: dayKey(d), Label: d.Format("Mon")})
		}
	case core.PeriodMonth:
		keyOf = dayKey
		for day := 1; day <= today.Day(); day++ {
			d := time.Date(today.Year(), today.Month(), day, 0, 0, 0, 0, loc)
			buckets = append(buckets, core.Bucket{Key: dayKey(d), Label: strconv.Itoa(day)})
		}
	case core.PeriodYear:
		keyOf = monthKey
		for m := time.January; m <= today.Month(); m++ {
			d := time.Date(today.Year(), m, 1, 0, 0, 0, 0, loc)
			buckets = append(buckets, core.Bucket{Key: monthKey(d), Label: d.Format("Jan")})
		}
	default:
		return nil, core.ErrInvalidPeriod
	}

	index := make(map[string]int, len(buckets))
	for i, b := range buckets {
		index[b.Key] = i
	}
	sums := make([]decimal.Decimal, len(buckets))
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		d, ok := core.ParseDateIn(tx.Date, loc)
		if !ok {
			continue
		}
		i, ok := index[keyOf(d)]
		if !ok {
			continue
		}
		sums[i] = sums[i].Add(effectiveDecimal(tx))
	}
	for i := range buckets {
		buckets[i].Amount = sums[i].InexactFloat64()
	}
	return buckets, nil
}

// CategoryBreakdown sums expenses per category name, largest first. It uses
// the same effective amount as the balance views.
func CategoryBreakdown(txs []core.Transaction) []core.CategoryAmount {
	sums := map[string]decimal.Decimal{}
	for _, tx := range txs {
		if tx.Type != core.Expense {
			continue
		}
		name := strings.TrimSpace(tx.Category)
		if name == "" {
			name = Uncategorized
		}
		sums[name] = sums[name].Add(effectiveDecimal(tx))
	}
	out := make([]core.CategoryAmount, 0, len(sums))
	for name, amt := range sums {
		out = append(out, core.CategoryAmount{Name: name, Amount: amt.InexactFloat64()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// newerFirst orders parseable dates newest first and puts unparseable dates
// last. Equal keys keep their input order when used with a stable sort.
func newerFirst(txs []core.Transaction) func(i, j int) bool {
	keys := make([]time.Time, len(txs))
	valid := make([]bool, len(txs))
	for i, tx := range txs {
		keys[i], valid[i] = core.ParseDate(tx.Date)
	}
	return func(i, j int) bool {
		if valid[i] != valid[j] {
			return valid[i]
		}
		return keys[i].After(keys[j])
	}
}

// SortByDateDesc sorts txs in place, newest first, unparseable dates last.
func SortByDateDesc(txs []core.Transaction) {
	idx := make([]int, len(txs))
	for i := range idx {
		idx[i] = i
	}
	less := newerFirst(txs)
	sort.SliceStable(idx, func(a, b int) bool { return less(idx[a], idx[b]) })
	sorted := make([]core.Transaction, len(txs))
	for i, k := range idx {
		sorted[i] = txs[k]
	}
	copy(txs, sorted)
}

// RecentN returns the n most recent transactions, newest first.
// Transactions with unparseable dates sort as the oldest.
func RecentN(txs []core.Transaction, n int) []core.Transaction {
	if n <= 0 {
		return []core.Transaction{}
	}
	out := append([]core.Transaction(nil), txs...)
	SortByDateDesc(out)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// FilterByType keeps transactions of type t.
func FilterByType(txs []core.Transaction, t core.TxType) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Type == t {
			out = append(out, tx)
		}
	}
	return out
}

// Search keeps transactions whose store name, category or any item name
// contains query, ignoring case. An empty query keeps everything.
func Search(txs []core.Transaction, query string) []core.Transaction {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return append([]core.Transaction(nil), txs...)
	}
	out := make([]core.Transaction, 0)
	for _, tx := range txs {
		if matches(tx, q) {
			out = append(out, tx)
		}
	}
	return out
}

func matches(tx core.Transaction, q string) bool {
	if strings.Contains(strings.ToLower(tx.StoreName), q) || strings.Contains(strings.ToLower(tx.Category), q) {
		return true
	}
	for _, it := range tx.Items {
		if strings.Contains(strings.ToLower(it.Name), q) {
			return true
		}
	}
	return false
}

// Summarize computes the dashboard totals as of ref.
func Summarize(txs []core.Transaction, ref time.Time) core.Summary {
	month := InCurrentMonth(txs, ref)
	return core.Summary{
		Income:       TotalByType(txs, core.Income),
		Expense:      TotalByType(txs, core.Expense),
		Balance:      Balance(txs),
		MonthIncome:  TotalByType(month, core.Income),
		MonthExpense: TotalByType(month, core.Expense),
		Count:        len(txs),
	}
}
