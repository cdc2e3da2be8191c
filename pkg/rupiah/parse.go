// Package rupiah parses and formats Indonesian Rupiah amounts as typed by
// residents ("Rp 150.000", "150.000,00") and as printed in reports.
package rupiah

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNoAmount is returned when the input holds no digits at all.
var ErrNoAmount = errors.New("no amount detected")

var fractionRE = regexp.MustCompile(`[.,]\d{1,2}$`)

// Parse normalizes a typed amount into a decimal. A trailing separator followed
// by one or two digits is read as the fraction (10.000,50 -> 10000.50,
// 7,500.00 -> 7500). Every other dot or comma is a thousands separator.
func Parse(s string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(s)
	low := strings.ToLower(trimmed)
	low = strings.TrimPrefix(low, "rp")
	low = strings.TrimPrefix(low, "idr")
	low = strings.TrimSpace(strings.TrimPrefix(low, "."))
	low = strings.ReplaceAll(low, " ", "")
	if low == "" {
		return decimal.Zero, ErrNoAmount
	}
	negative := strings.HasPrefix(low, "-")
	low = strings.TrimPrefix(low, "-")
	for _, r := range low {
		if !(r >= '0' && r <= '9') && r != '.' && r != ',' {
			return decimal.Zero, fmt.Errorf("invalid character %q in amount %q", r, s)
		}
	}

	integerPart, fraction := low, ""
	if fractionRE.MatchString(low) {
		cut := strings.LastIndexAny(low, ".,")
		integerPart, fraction = low[:cut], low[cut+1:]
	}
	digits := onlyDigits(integerPart)
	if digits == "" && fraction == "" {
		return decimal.Zero, ErrNoAmount
	}
	if digits == "" {
		digits = "0"
	}
	repr := digits
	if fraction != "" {
		repr += "." + fraction
	}
	d, err := decimal.NewFromString(repr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// onlyDigits extracts decimal digits from a string.
func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
