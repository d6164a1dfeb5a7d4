// Package sheets mirrors transactions to a user-owned spreadsheet: one row
// per transaction, seven columns, items flattened into a text cell.
package sheets

import (
	"context"

	"struk/internal/core"
)

// Ports for outbound adapters.
type (
	RowAppender interface {
		Append(ctx context.Context, sheetID string, tx core.Transaction) error
		// BulkAppend sends every row in a single request.
		BulkAppend(ctx context.Context, sheetID string, txs []core.Transaction) error
	}

	RowFetcher interface {
		Fetch(ctx context.Context, sheetID string) (FetchResult, error)
	}

	// SheetCreator makes a new spreadsheet holding only the header row.
	SheetCreator interface {
		Create(ctx context.Context, title string) (SheetRef, error)
	}

	Remote interface {
		RowAppender
		RowFetcher
		SheetCreator
	}

	SheetRef struct {
		ID    string
		Title string
		URL   string
	}

	// FetchResult holds the decoded rows and a report of the rows that were
	// skipped.
	FetchResult struct {
		Transactions []core.Transaction
		Malformed    []*MalformedRowError
	}
)
