package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gsheet "google.golang.org/api/sheets/v4"

	"struk/internal/core"
	ports "struk/internal/sheets"
)

type staticAuth struct {
	client *http.Client
	err    error
}

func (a staticAuth) HTTPClient(context.Context) (*http.Client, error) {
	return a.client, a.err
}

// fakeSheets serves the handful of Sheets API calls the client makes.
type fakeSheets struct {
	mu        sync.Mutex
	title     string
	rows      [][]any
	metaCalls int
	status    int
	lastQuery url.Values
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": f.status, "message": "nope"}})
		return
	}
	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && path == "/v4/spreadsheets":
		var ss gsheet.Spreadsheet
		json.NewDecoder(r.Body).Decode(&ss)
		f.title = ss.Sheets[0].Properties.Title
		json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId":  "new-sheet",
			"spreadsheetUrl": "https://docs.google.com/spreadsheets/d/new-sheet",
		})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		if !strings.Contains(path, quoteTitle(f.title)+"!A:G") {
			http.Error(w, `{"error":{"code":400,"message":"bad range"}}`, http.StatusBadRequest)
			return
		}
		f.lastQuery = r.URL.Query()
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.rows = append(f.rows, vr.Values...)
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid"})
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		var vr gsheet.ValueRange
		json.NewDecoder(r.Body).Decode(&vr)
		f.rows = append(vr.Values, f.rows...)
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "new-sheet"})
	case r.Method == http.MethodGet && strings.Contains(path, "/values/"):
		json.NewEncoder(w).Encode(map[string]any{"range": "A:G", "values": f.rows})
	case r.Method == http.MethodGet:
		f.metaCalls++
		json.NewEncoder(w).Encode(map[string]any{
			"sheets": []any{map[string]any{"properties": map[string]any{"title": f.title}}},
		})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return New(staticAuth{client: srv.Client()}, WithEndpoint(srv.URL+"/"))
}

func sampleTx(id string) core.Transaction {
	return core.Transaction{
		ID:        id,
		StoreName: "Mart",
		Items: []core.TransactionItem{
			{ID: "a", Name: "Burger", Qty: 2, Price: 20000},
			{ID: "b", Name: "Coke", Qty: 1, Price: 5000},
		},
		TotalAmount: 45000,
		Date:        "2025-03-01T10:00:00.000Z",
		Category:    "Food & Drink",
		Type:        core.Expense,
	}
}

func TestAppendThenFetch(t *testing.T) {
	fake := &fakeSheets{title: "Sheet's 1", rows: [][]any{ports.Header}}
	c := newTestClient(t, fake)
	ctx := context.Background()

	require.NoError(t, c.Append(ctx, "sid", sampleTx("t1")))
	require.NoError(t, c.BulkAppend(ctx, "sid", []core.Transaction{sampleTx("t2"), sampleTx("t3")}))
	require.NoError(t, c.BulkAppend(ctx, "sid", nil))

	res, err := c.Fetch(ctx, "sid")
	require.NoError(t, err)
	require.Len(t, res.Transactions, 3)
	assert.Empty(t, res.Malformed)
	assert.Equal(t, "t1", res.Transactions[0].ID)
	assert.Equal(t, "2x Burger (@20000), 1x Coke (@5000)", ports.EncodeItemsDetail(res.Transactions[0].Items))
	assert.Equal(t, 1, fake.metaCalls, "tab title is cached")
	assert.Equal(t, "RAW", fake.lastQuery.Get("valueInputOption"))
	assert.Equal(t, "INSERT_ROWS", fake.lastQuery.Get("insertDataOption"))
}

func TestFetchReportsMalformedRows(t *testing.T) {
	fake := &fakeSheets{title: "Transactions", rows: [][]any{
		ports.Header,
		{"t1", "2025-03-01", "Mart", "Food", "expense", 100, "1x Tea (@100)"},
		{"t2", "2025-03-01"},
	}}
	c := newTestClient(t, fake)

	res, err := c.Fetch(context.Background(), "sid")
	require.NoError(t, err)
	assert.Len(t, res.Transactions, 1)
	require.Len(t, res.Malformed, 1)
	assert.Equal(t, 3, res.Malformed[0].Row)
}

func TestCreateWritesHeader(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	ctx := context.Background()

	ref, err := c.Create(ctx, "struk backup")
	require.NoError(t, err)
	assert.Equal(t, "new-sheet", ref.ID)
	assert.Equal(t, "struk backup", ref.Title)
	assert.Contains(t, ref.URL, "new-sheet")
	require.Len(t, fake.rows, 1)
	assert.Equal(t, "ID", fake.rows[0][0])

	require.NoError(t, c.Append(ctx, ref.ID, sampleTx("t1")))
	assert.Equal(t, 0, fake.metaCalls, "created sheet title is cached")
}

func TestErrorClassification(t *testing.T) {
	ctx := context.Background()

	unauth := newTestClient(t, &fakeSheets{title: "T", status: http.StatusUnauthorized})
	_, err := unauth.Fetch(ctx, "sid")
	assert.ErrorIs(t, err, core.ErrRemoteUnauthenticated)

	forbidden := newTestClient(t, &fakeSheets{title: "T", status: http.StatusForbidden})
	assert.ErrorIs(t, forbidden.Append(ctx, "sid", sampleTx("t1")), core.ErrRemoteUnauthenticated)

	broken := newTestClient(t, &fakeSheets{title: "T", status: http.StatusBadRequest})
	_, err = broken.Create(ctx, "x")
	assert.ErrorIs(t, err, core.ErrRemoteTransient)
}

func TestSignedOutSessionIsUnauthenticated(t *testing.T) {
	c := New(staticAuth{err: core.ErrRemoteUnauthenticated})
	_, err := c.Fetch(context.Background(), "sid")
	assert.ErrorIs(t, err, core.ErrRemoteUnauthenticated)
}

func TestQuoteTitle(t *testing.T) {
	assert.Equal(t, "'Transactions'", quoteTitle("Transactions"))
	assert.Equal(t, "'Bob''s'", quoteTitle("Bob's"))
}
