package rupiah

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Format renders d as "Rp 1.500.000" or, when there are cents, "Rp 1.500.000,50".
func Format(d decimal.Decimal) string {
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	d = d.Round(2)
	whole := d.Truncate(0)
	cents := d.Sub(whole).Shift(2).IntPart()
	out := "Rp " + sign + formatGrouping(whole.String())
	if cents != 0 {
		c := decimal.NewFromInt(cents).String()
		if len(c) == 1 {
			c = "0" + c
		}
		out += "," + c
	}
	return out
}

// formatGrouping adds dot separators every 3 digits.
func formatGrouping(ds string) string {
	n := len(ds)
	if n <= 3 {
		return ds
	}
	var parts []string
	for n > 3 {
		parts = append([]string{ds[n-3:]}, parts...)
		ds = ds[:n-3]
		n = len(ds)
	}
	parts = append([]string{ds}, parts...)
	return strings.Join(parts, ".")
}
