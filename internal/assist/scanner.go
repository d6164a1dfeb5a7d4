package assist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"net/http"
	"strings"
	"time"

	"struk/internal/core"
	applog "struk/internal/log"
)

// DefaultMaxBytes bounds an uploaded receipt.
const DefaultMaxBytes = 5 << 20

// AllowedTypes lists the receipt formats the scanner accepts.
var AllowedTypes = []string{"image/jpeg", "image/png", "image/webp", "application/pdf"}

type ReceiptFile struct {
	Name     string
	MIMEType string // detected from Data when empty
	Data     []byte
}

type ScannedItem struct {
	Name  string  `json:"name"`
	Qty   float64 `json:"qty"`
	Price float64 `json:"price"`
}

// ScannedReceipt is a validated scan result.
type ScannedReceipt struct {
	StoreName string        `json:"storeName"`
	Date      string        `json:"date"`
	Items     []ScannedItem `json:"items"`
}

// ToTransaction builds an expense from the receipt. The receipt date is a
// calendar day in loc; it was validated during the scan, so it always parses.
func (r ScannedReceipt) ToTransaction(category string, loc *time.Location) core.Transaction {
	date, _ := core.ParseDateIn(r.Date, loc)
	items := make([]core.TransactionItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = core.TransactionItem{Name: it.Name, Qty: it.Qty, Price: it.Price}
	}
	return core.NewExpense(r.StoreName, items, date, category)
}

const scanPrompt = "You read shopping receipts.\n\n" +
	"Extract the store name, the purchase date and every purchased line from the attached receipt.\n" +
	"Return ONLY a JSON object with exactly these fields:\n" +
	"- \"storeName\": string\n" +
	"- \"date\": string, ISO format \"YYYY-MM-DD\"\n" +
	"- \"items\": array of {\"name\": string, \"qty\": number, \"price\": number}, price is per unit\n\n" +
	"Amounts are plain numbers without currency symbols or thousands separators.\n" +
	"Do NOT wrap the response in code fences.\n"

type ReceiptScanner struct {
	model    Model
	maxBytes int
	logger   *applog.Logger
}

// NewReceiptScanner uses DefaultMaxBytes when maxBytes is not positive.
func NewReceiptScanner(model Model, maxBytes int) *ReceiptScanner {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &ReceiptScanner{
		model:    model,
		maxBytes: maxBytes,
		logger:   applog.Default().WithComponent(applog.ComponentAssist),
	}
}

// Scan extracts a receipt from f. Oversized or unsupported files wrap
// core.ErrValidation; any answer that does not match ScannedReceipt exactly
// wraps core.ErrScanRejected.
func (s *ReceiptScanner) Scan(ctx context.Context, f ReceiptFile) (ScannedReceipt, error) {
	mt, err := s.check(f)
	if err != nil {
		return ScannedReceipt{}, err
	}
	f.MIMEType = mt

	start := time.Now()
	raw, err := s.model.Generate(ctx, Request{Prompt: scanPrompt, File: &f, JSON: true})
	if err != nil {
		return ScannedReceipt{}, fmt.Errorf("scan receipt: %w: %w", core.ErrRemoteTransient, err)
	}
	receipt, err := ParseReceipt(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "Receipt scan rejected",
			applog.NewFields().WithOperation(applog.OpScan).WithError(err).ToSlice()...)
		return ScannedReceipt{}, err
	}
	s.logger.InfoContext(ctx, "Receipt scanned",
		"file", f.Name,
		"items", len(receipt.Items),
		applog.FieldDuration, time.Since(start))
	return receipt, nil
}

func (s *ReceiptScanner) check(f ReceiptFile) (string, error) {
	if len(f.Data) == 0 {
		return "", fmt.Errorf("%w: empty receipt file", core.ErrValidation)
	}
	if len(f.Data) > s.maxBytes {
		return "", fmt.Errorf("%w: receipt is %d bytes, limit is %d", core.ErrValidation, len(f.Data), s.maxBytes)
	}
	mt := f.MIMEType
	if mt == "" {
		mt = http.DetectContentType(f.Data)
	}
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	for _, allowed := range AllowedTypes {
		if mt == allowed {
			return mt, nil
		}
	}
	return "", fmt.Errorf("%w: unsupported receipt type %q", core.ErrValidation, mt)
}

// wire shape; pointers tell a missing number from zero
type rawReceipt struct {
	StoreName *string   `json:"storeName"`
	Date      *string   `json:"date"`
	Items     []rawItem `json:"items"`
}

type rawItem struct {
	Name  *string  `json:"name"`
	Qty   *float64 `json:"qty"`
	Price *float64 `json:"price"`
}

func rejected(format string, args ...any) error {
	return fmt.Errorf("%w: %s", core.ErrScanRejected, fmt.Sprintf(format, args...))
}

// ParseReceipt decodes a model answer into a ScannedReceipt, failing closed
// on unknown fields, trailing data, missing values or negative numbers.
func ParseReceipt(raw string) (ScannedReceipt, error) {
	dec := json.NewDecoder(strings.NewReader(cleanModelJSON(raw)))
	dec.DisallowUnknownFields()
	var r rawReceipt
	if err := dec.Decode(&r); err != nil {
		return ScannedReceipt{}, rejected("decode: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return ScannedReceipt{}, rejected("trailing data after receipt")
	}

	if r.StoreName == nil || strings.TrimSpace(*r.StoreName) == "" {
		return ScannedReceipt{}, rejected("missing store name")
	}
	if r.Date == nil {
		return ScannedReceipt{}, rejected("missing date")
	}
	if _, ok := core.ParseDate(*r.Date); !ok {
		return ScannedReceipt{}, rejected("unparseable date %q", *r.Date)
	}
	if len(r.Items) == 0 {
		return ScannedReceipt{}, rejected("no items")
	}

	out := ScannedReceipt{
		StoreName: strings.TrimSpace(*r.StoreName),
		Date:      strings.TrimSpace(*r.Date),
		Items:     make([]ScannedItem, 0, len(r.Items)),
	}
	for i, it := range r.Items {
		switch {
		case it.Name == nil || strings.TrimSpace(*it.Name) == "":
			return ScannedReceipt{}, rejected("item %d: missing name", i+1)
		case it.Qty == nil || !finite(*it.Qty) || *it.Qty <= 0:
			return ScannedReceipt{}, rejected("item %d: bad quantity", i+1)
		case it.Price == nil || !finite(*it.Price) || *it.Price < 0:
			return ScannedReceipt{}, rejected("item %d: bad price", i+1)
		}
		out.Items = append(out.Items, ScannedItem{Name: strings.TrimSpace(*it.Name), Qty: *it.Qty, Price: *it.Price})
	}
	return out, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// cleanModelJSON strips Markdown fences and any prose around the outermost
// JSON object.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
