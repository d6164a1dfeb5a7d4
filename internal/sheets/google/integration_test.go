//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"struk/internal/core"
	"struk/internal/session"
)

// Integration tests require real Google credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_BackupRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	clientFile := os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")
	tokenFile := os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")
	if clientFile == "" || tokenFile == "" {
		t.Skip("OAuth credentials not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sess := session.New(session.Options{ClientFile: clientFile, TokenFile: tokenFile})
	if err := sess.Init(ctx); err != nil {
		t.Fatalf("init session: %v", err)
	}
	if sess.State() != session.Authenticated {
		t.Skip("no stored token, skipping integration test")
	}

	c := New(sess)
	ref, err := c.Create(ctx, "struk integration "+time.Now().Format(time.RFC3339))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Logf("created %s", ref.URL)

	tx := core.NewExpense("Integration Mart", []core.TransactionItem{{Name: "Tea", Qty: 2, Price: 1500}}, time.Now(), "Food & Drink")
	if err := c.Append(ctx, ref.ID, tx); err != nil {
		t.Fatalf("append: %v", err)
	}
	res, err := c.Fetch(ctx, ref.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(res.Transactions) != 1 || res.Transactions[0].ID != tx.ID {
		t.Fatalf("unexpected fetch result: %+v", res)
	}
}
