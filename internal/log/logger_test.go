package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestComponentIsAttached(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Output: &buf}).WithComponent(ComponentLedger)
	l.InfoContext(context.Background(), "hello", FieldTxID, "t1")
	out := buf.String()
	if !strings.Contains(out, "component=ledger") || !strings.Contains(out, "tx_id=t1") {
		t.Fatalf("unexpected log line: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFromContext(t *testing.T) {
	l := Discard().WithComponent(ComponentSync)
	ctx := NewContext(context.Background(), l)
	if FromContext(ctx).Component() != ComponentSync {
		t.Fatal("expected logger from context")
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("expected default logger")
	}
}
