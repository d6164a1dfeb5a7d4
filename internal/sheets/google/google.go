package google

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"struk/internal/cache"
	"struk/internal/core"
	ports "struk/internal/sheets"
	"struk/internal/session"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultTabTitle names the single tab of spreadsheets created by Create.
const DefaultTabTitle = "Transactions"

// HTTPClientSource hands out an authorized client. *session.Session
// satisfies it.
type HTTPClientSource interface {
	HTTPClient(ctx context.Context) (*http.Client, error)
}

type Client struct {
	auth     HTTPClientSource
	endpoint string
	// titles maps spreadsheet id to its first tab's title.
	titles *cache.LRU[string, string]
}

// Ensure interface conformance
var _ ports.Remote = (*Client)(nil)

type Option func(*Client)

// WithEndpoint points the client at another Sheets API base URL.
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithTitleCache sets the size and lifetime of the tab title cache.
func WithTitleCache(size int, ttl time.Duration) Option {
	return func(c *Client) { c.titles = cache.NewLRU[string, string](size, ttl) }
}

func New(auth HTTPClientSource, opts ...Option) *Client {
	c := &Client{
		auth:   auth,
		titles: cache.NewLRU[string, string](32, 30*time.Minute),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) service(ctx context.Context) (*gsheet.Service, error) {
	hc, err := c.auth.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}
	opts := []goption.ClientOption{goption.WithHTTPClient(hc)}
	if c.endpoint != "" {
		opts = append(opts, goption.WithEndpoint(c.endpoint))
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: create sheets service: %w", core.ErrRemoteTransient, err)
	}
	return svc, nil
}

// quoteTitle renders a tab title for A1 notation.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func (c *Client) firstTab(ctx context.Context, svc *gsheet.Service, sheetID string) (string, error) {
	if title, ok := c.titles.Get(sheetID); ok {
		return title, nil
	}
	ss, err := svc.Spreadsheets.Get(sheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return "", session.Classify("read spreadsheet", err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", fmt.Errorf("%w: spreadsheet %s has no tabs", core.ErrRemoteTransient, sheetID)
	}
	title := ss.Sheets[0].Properties.Title
	c.titles.Set(sheetID, title)
	return title, nil
}

func (c *Client) dataRange(ctx context.Context, svc *gsheet.Service, sheetID string) (string, error) {
	title, err := c.firstTab(ctx, svc, sheetID)
	if err != nil {
		return "", err
	}
	return quoteTitle(title) + "!" + ports.DataRange, nil
}

func (c *Client) Append(ctx context.Context, sheetID string, tx core.Transaction) error {
	return c.BulkAppend(ctx, sheetID, []core.Transaction{tx})
}

// BulkAppend writes all rows with a single append call.
func (c *Client) BulkAppend(ctx context.Context, sheetID string, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	svc, err := c.service(ctx)
	if err != nil {
		return err
	}
	rng, err := c.dataRange(ctx, svc, sheetID)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: ports.EncodeRows(txs)}
	start := time.Now()
	_, err = svc.Spreadsheets.Values.Append(sheetID, rng, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		// The tab may have been renamed since it was cached.
		c.titles.Delete(sheetID)
		return session.Classify("append rows", err)
	}
	slog.DebugContext(ctx, "Appended rows", "sheet_id", sheetID, "rows", len(txs), "duration", time.Since(start))
	return nil
}

// Fetch reads every data row of the first tab.
func (c *Client) Fetch(ctx context.Context, sheetID string) (ports.FetchResult, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return ports.FetchResult{}, err
	}
	rng, err := c.dataRange(ctx, svc, sheetID)
	if err != nil {
		return ports.FetchResult{}, err
	}
	resp, err := svc.Spreadsheets.Values.Get(sheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		c.titles.Delete(sheetID)
		return ports.FetchResult{}, session.Classify("read rows", err)
	}
	res := ports.DecodeRows(resp.Values)
	for _, m := range res.Malformed {
		slog.WarnContext(ctx, "Skipping malformed row", "sheet_id", sheetID, "row", m.Row, "reason", m.Reason)
	}
	return res, nil
}

// Create makes a spreadsheet with one tab holding the header row.
func (c *Client) Create(ctx context.Context, title string) (ports.SheetRef, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return ports.SheetRef{}, err
	}
	ss, err := svc.Spreadsheets.Create(&gsheet.Spreadsheet{
		Properties: &gsheet.SpreadsheetProperties{Title: title},
		Sheets: []*gsheet.Sheet{
			{Properties: &gsheet.SheetProperties{Title: DefaultTabTitle}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return ports.SheetRef{}, session.Classify("create spreadsheet", err)
	}
	c.titles.Set(ss.SpreadsheetId, DefaultTabTitle)

	header := &gsheet.ValueRange{Values: [][]any{ports.Header}}
	_, err = svc.Spreadsheets.Values.Update(ss.SpreadsheetId, quoteTitle(DefaultTabTitle)+"!A1:G1", header).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return ports.SheetRef{}, session.Classify("write header", err)
	}
	slog.InfoContext(ctx, "Created spreadsheet", "sheet_id", ss.SpreadsheetId, "title", title)
	return ports.SheetRef{ID: ss.SpreadsheetId, Title: title, URL: ss.SpreadsheetUrl}, nil
}
