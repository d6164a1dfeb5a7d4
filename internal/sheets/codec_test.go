package sheets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"struk/internal/core"
)

func TestItemsDetailRoundTrip(t *testing.T) {
	const detail = "2x Burger (@20000), 1x Coke (@5000)"

	items := ParseItemsDetail(detail)
	require.Len(t, items, 2)
	assert.Equal(t, "Burger", items[0].Name)
	assert.Equal(t, 2.0, items[0].Qty)
	assert.Equal(t, 20000.0, items[0].Price)
	assert.Equal(t, "Coke", items[1].Name)
	assert.NotEmpty(t, items[0].ID)
	assert.NotEqual(t, items[0].ID, items[1].ID)

	assert.Equal(t, detail, EncodeItemsDetail(items))
}

func TestParseItemsDetailDropsNoise(t *testing.T) {
	items := ParseItemsDetail("free text, 3x Tea, Hot (@1500), ???")
	require.Len(t, items, 1)
	assert.Equal(t, "Tea, Hot", items[0].Name)
	assert.Equal(t, 3.0, items[0].Qty)

	assert.Empty(t, ParseItemsDetail(""))
	assert.Equal(t, "1.5x Rice (@12000.5)", EncodeItemsDetail(ParseItemsDetail("1.5x Rice (@12000.5)")))
}

func TestRowRoundTrip(t *testing.T) {
	tx := core.Transaction{
		ID:          "t1",
		StoreName:   "Warung",
		Items:       []core.TransactionItem{{ID: "x", Name: "Burger", Qty: 2, Price: 20000}},
		TotalAmount: 40000,
		Date:        "2025-03-01T10:00:00.000Z",
		Category:    "Food & Drink",
		Type:        core.Expense,
	}
	got, err := DecodeRow(EncodeRow(tx))
	require.NoError(t, err)

	assert.Equal(t, tx.ID, got.ID)
	assert.Equal(t, tx.StoreName, got.StoreName)
	assert.Equal(t, tx.Date, got.Date)
	assert.Equal(t, tx.Type, got.Type)
	assert.Equal(t, tx.TotalAmount, got.TotalAmount)
	require.Len(t, got.Items, 1)
	assert.NotEqual(t, "x", got.Items[0].ID, "item ids are regenerated")
}

func TestDecodeRowStringTotals(t *testing.T) {
	row := []any{"t1", "2025-03-01", "Mart", "Food", "EXPENSE", "45.000", "2x Burger (@20000), 1x Coke (@5000)"}
	tx, err := DecodeRow(row)
	require.NoError(t, err)
	assert.Equal(t, 45000.0, tx.TotalAmount)
	assert.Equal(t, core.Expense, tx.Type)
}

func TestDecodeRowSynthesizesItem(t *testing.T) {
	tx, err := DecodeRow([]any{"t1", "2025-03-01", "Office", "Salary", "income", 5000000.0, "March salary"})
	require.NoError(t, err)
	require.Len(t, tx.Items, 1)
	assert.Equal(t, "March salary", tx.Items[0].Name)
	assert.Equal(t, 1.0, tx.Items[0].Qty)
	assert.Equal(t, 5000000.0, tx.Items[0].Price)

	tx, err = DecodeRow([]any{"t2", "2025-03-01", "Office", "Salary", "income", 10.0})
	require.NoError(t, err)
	assert.Empty(t, tx.Items)
}

func TestDecodeRowRejects(t *testing.T) {
	tests := []struct {
		name string
		row  []any
	}{
		{"too short", []any{"t1", "2025-03-01", "Mart"}},
		{"empty id", []any{"", "2025-03-01", "Mart", "Food", "expense", 1.0, ""}},
		{"unknown type", []any{"t1", "2025-03-01", "Mart", "Food", "transfer", 1.0, ""}},
		{"bad total", []any{"t1", "2025-03-01", "Mart", "Food", "expense", "lots", ""}},
		{"missing store", []any{"t1", "2025-03-01", "", "Food", "expense", 1.0, ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeRow(tt.row)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrMalformedRow)
			var mre *MalformedRowError
			assert.True(t, errors.As(err, &mre))
		})
	}
}

func TestDecodeRowsSkipsHeaderAndBadRows(t *testing.T) {
	values := [][]any{
		Header,
		{"t1", "2025-03-01", "Mart", "Food", "expense", 100.0, "1x Tea (@100)"},
		{},
		{"t2", "2025-03-02", "Mart", "Food", "refund", 100.0, ""},
		{"t3", "not-a-date", "Mart", "Food", "expense", 50.0, ""},
	}
	res := DecodeRows(values)
	require.Len(t, res.Transactions, 2)
	assert.Equal(t, "t1", res.Transactions[0].ID)
	assert.Equal(t, "t3", res.Transactions[1].ID)
	require.Len(t, res.Malformed, 1)
	assert.Equal(t, 4, res.Malformed[0].Row)
}

func TestDecodeRowsWithoutHeader(t *testing.T) {
	res := DecodeRows([][]any{{"t1", "2025-03-01", "Mart", "Food", "expense", 100.0, ""}})
	assert.Len(t, res.Transactions, 1)
}
