// Package core holds the transaction data model, validation and the error
// categories shared by the store, the aggregation functions and the sync
// adapter.
//
// This file contains amount parsing for user input and the number rendering
// used by the remote row format.
package core

import (
	"math"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts user input into a positive amount in whole currency
// units.
//
// Both grouping styles are accepted. When a single separator kind appears and
// every group after the first has exactly three digits, the separator is read
// as a thousands separator; otherwise it is the decimal separator. When both
// '.' and ',' appear, the last one is the decimal separator.
//
// Examples:
//
//	ParseAmount("20000")    -> 20000
//	ParseAmount("20.000")   -> 20000
//	ParseAmount("1,250,000") -> 1250000
//	ParseAmount("12.50")    -> 12.5
//	ParseAmount("1.234,5")  -> 1234.5
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Rp")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' && r != ',' {
			return 0, ErrInvalidAmount
		}
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		s = normalizeSingleSeparator(s, ".")
	case lastComma >= 0:
		s = normalizeSingleSeparator(s, ",")
	}
	if strings.Count(s, ".") > 1 {
		return 0, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	f := d.InexactFloat64()
	if f <= 0 || math.IsInf(f, 0) {
		return 0, ErrInvalidAmount
	}
	return f, nil
}

func normalizeSingleSeparator(s, sep string) string {
	parts := strings.Split(s, sep)
	grouped := len(parts) > 1 && parts[0] != ""
	for _, p := range parts[1:] {
		if len(p) != 3 {
			grouped = false
			break
		}
	}
	if grouped && (len(parts) > 2 || len(parts[0]) <= 3) {
		return strings.Join(parts, "")
	}
	return strings.ReplaceAll(s, sep, ".")
}

// FormatNumber renders f without exponent or trailing zeros: 20000, 1.5.
func FormatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	return decimal.NewFromFloat(f).String()
}
