package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"struk/internal/aggregate"
	"struk/internal/core"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
	faint  = color.New(color.Faint)
	bold   = color.New(color.Bold)
)

// printer writes command output with locale-aware amounts.
type printer struct {
	w io.Writer
	p *message.Printer
}

func newPrinter(w io.Writer, tag language.Tag) *printer {
	return &printer{w: w, p: message.NewPrinter(tag)}
}

// Amount groups digits the way the chosen language does: 45,000 or 45.000.
func (o *printer) Amount(f float64) string {
	return o.p.Sprintf("%v", number.Decimal(f, number.MaxFractionDigits(2)))
}

// Signed renders income as +amount in green and expense as -amount in red.
func (o *printer) Signed(tx core.Transaction) string {
	amt := o.Amount(aggregate.EffectiveAmount(tx))
	if tx.Type == core.Income {
		return green.Sprint("+" + amt)
	}
	return red.Sprint("-" + amt)
}

func (o *printer) Header(text string) {
	bold.Fprintln(o.w, text)
	fmt.Fprintln(o.w, strings.Repeat("-", len(text)))
}

func (o *printer) Success(format string, args ...any) {
	green.Fprintf(o.w, "✓ "+format+"\n", args...)
}

func (o *printer) Info(format string, args ...any) {
	fmt.Fprintf(o.w, format+"\n", args...)
}

func (o *printer) Warning(format string, args ...any) {
	yellow.Fprintf(o.w, "! "+format+"\n", args...)
}

func (o *printer) Faint(format string, args ...any) {
	faint.Fprintf(o.w, format+"\n", args...)
}

// Transaction prints one line: date, store, category, amount and id.
func (o *printer) Transaction(tx core.Transaction) {
	date := tx.Date
	if t, ok := core.ParseDate(tx.Date); ok {
		date = t.Local().Format("2006-01-02")
	}
	fmt.Fprintf(o.w, "%-10s  %-24s  %-16s  %14s  %s\n",
		date, truncate(tx.StoreName, 24), truncate(tx.Category, 16), o.Signed(tx), faint.Sprint(shortID(tx.ID)))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
