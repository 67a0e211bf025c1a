// Package utils provides common utility functions for creditplan.
package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatEURCompact formats an amount in compact notation.
// e.g., 1500000 → "€1.5 M", 2300000000 → "€2.3 B"
func FormatEURCompact(amount float64) string {
	prefix := "€"
	if amount < 0 {
		prefix = "-€"
	}
	abs := math.Abs(amount)

	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%s%s B", prefix, formatWithDecimals(abs/1e9))
	case abs >= 1e6:
		return fmt.Sprintf("%s%s M", prefix, formatWithDecimals(abs/1e6))
	case abs >= 1e3:
		return fmt.Sprintf("%s%s K", prefix, formatWithDecimals(abs/1e3))
	default:
		return fmt.Sprintf("%s%.2f", prefix, abs)
	}
}

// FormatAmount formats a plain number with thousands grouping and the given
// number of decimals, without currency symbol. Used for table cells.
func FormatAmount(amount float64, decimals int) string {
	scale := math.Pow(10, float64(decimals))
	units := int64(math.Round(math.Abs(amount) * scale))
	intPart := units / int64(scale)

	s := groupThousands(intPart)
	if decimals > 0 {
		s += fmt.Sprintf(".%0*d", decimals, units%int64(scale))
	}
	if amount < 0 && units != 0 {
		return "-" + s
	}
	return s
}

// FormatPct formats a percentage with two decimals, e.g. 2.5 → "2.50%".
func FormatPct(pct float64) string {
	return fmt.Sprintf("%.2f%%", pct)
}

// groupThousands formats a non-negative integer with comma thousands separators.
func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	head := len(s) % 3
	if head > 0 {
		b.WriteString(s[:head])
	}
	for i := head; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// formatWithDecimals formats a number with up to 2 decimal places,
// removing trailing zeros.
func formatWithDecimals(n float64) string {
	s := fmt.Sprintf("%.2f", n)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
