package core

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Expense TxType = "expense"
	Income  TxType = "income"
)

// MaxStoreNameLen bounds the free-text store/source label.
const MaxStoreNameLen = 200

// ISOLayout is the layout used when the app generates a date itself.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

type (
	TxType string

	TransactionItem struct {
		ID    string  `json:"id"`
		Name  string  `json:"name"`
		Qty   float64 `json:"qty"`
		Price float64 `json:"price"` // per unit
	}

	// Transaction is a recorded expense or income. Date keeps the raw ISO
	// text because imported rows may carry something unparseable.
	Transaction struct {
		ID          string            `json:"id"`
		StoreName   string            `json:"storeName"`
		Items       []TransactionItem `json:"items"`
		TotalAmount float64           `json:"totalAmount"`
		Date        string            `json:"date"`
		Category    string            `json:"category"` // category name, not a key
		Type        TxType            `json:"type"`
	}

	Category struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Icon string `json:"icon"`
		Type TxType `json:"type"`
	}

	// UserProfile is the per-installation singleton. PIN is stored as plain
	// text.
	UserProfile struct {
		Name            string `json:"name"`
		AvatarURL       string `json:"avatarUrl"`
		PIN             string `json:"pin"`
		GoogleSheetID   string `json:"googleSheetId,omitempty"`
		GoogleSheetName string `json:"googleSheetName,omitempty"`
		GoogleEmail     string `json:"googleEmail,omitempty"`
		GooglePhotoURL  string `json:"googlePhotoUrl,omitempty"`
	}

	// ProfilePatch is a partial profile update; nil fields are left alone.
	ProfilePatch struct {
		Name            *string
		AvatarURL       *string
		PIN             *string
		GoogleSheetID   *string
		GoogleSheetName *string
		GoogleEmail     *string
		GooglePhotoURL  *string
	}
)

// NewID returns a fresh client-side identifier.
func NewID() string {
	return uuid.NewString()
}

func (t TxType) Valid() bool {
	return t == Expense || t == Income
}

// ParseTxType accepts "expense" or "income" in any case.
func ParseTxType(s string) (TxType, error) {
	t := TxType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDate parses an ISO-8601 date. Zone-less values are read in UTC.
func ParseDate(s string) (time.Time, bool) {
	return ParseDateIn(s, time.UTC)
}

// ParseDateIn parses an ISO-8601 date, reading zone-less values in loc and
// converting zoned values to loc. The second result is false when s is not a
// date this package understands.
func ParseDateIn(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t.In(loc), true
		}
	}
	return time.Time{}, false
}

// FormatDate renders t the way the app writes dates.
func FormatDate(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// NewIncome builds an income record. Income carries a single synthetic item
// mirroring the total so every transaction has the same shape.
func NewIncome(source string, amount float64, date time.Time, category string) Transaction {
	return Transaction{
		ID:        NewID(),
		StoreName: source,
		Items: []TransactionItem{
			{ID: NewID(), Name: source, Qty: 1, Price: amount},
		},
		TotalAmount: amount,
		Date:        FormatDate(date),
		Category:    category,
		Type:        Income,
	}
}

// NewExpense builds an expense whose total is the sum of its items.
func NewExpense(storeName string, items []TransactionItem, date time.Time, category string) Transaction {
	items = slices.Clone(items)
	var total float64
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = NewID()
		}
		total += items[i].Qty * items[i].Price
	}
	return Transaction{
		ID:          NewID(),
		StoreName:   storeName,
		Items:       items,
		TotalAmount: total,
		Date:        FormatDate(date),
		Category:    category,
		Type:        Expense,
	}
}

func validNumber(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}

func (it TransactionItem) Validate() error {
	if strings.TrimSpace(it.Name) == "" {
		return ErrEmptyItemName
	}
	if !validNumber(it.Qty) || !validNumber(it.Price) {
		return ErrInvalidItem
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(t.StoreName) == "" {
		return ErrEmptyStoreName
	}
	if len(t.StoreName) > MaxStoreNameLen {
		return ErrStoreNameLong
	}
	if !t.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, t.Type)
	}
	if !validNumber(t.TotalAmount) {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Date) == "" {
		return ErrEmptyDate
	}
	for i, it := range t.Items {
		if err := it.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i+1, err)
		}
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if !c.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, c.Type)
	}
	return nil
}

func (p UserProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.PIN != "" && !ValidPIN(p.PIN) {
		return ErrInvalidPIN
	}
	return nil
}

// ValidPIN reports whether pin is exactly six ASCII digits.
func ValidPIN(pin string) bool {
	if len(pin) != 6 {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}

// Apply returns p with every non-nil patch field copied over it.
func (pp ProfilePatch) Apply(p UserProfile) UserProfile {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Name, pp.Name)
	set(&p.AvatarURL, pp.AvatarURL)
	set(&p.PIN, pp.PIN)
	set(&p.GoogleSheetID, pp.GoogleSheetID)
	set(&p.GoogleSheetName, pp.GoogleSheetName)
	set(&p.GoogleEmail, pp.GoogleEmail)
	set(&p.GooglePhotoURL, pp.GooglePhotoURL)
	return p
}

// Clone returns a copy of t that shares no item storage with t.
func (t Transaction) Clone() Transaction {
	if t.Items != nil {
		t.Items = append([]TransactionItem(nil), t.Items...)
	}
	return t
}
