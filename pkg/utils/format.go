// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"strings"
)

// FormatUSD formats a currency amount with two decimal places and
// thousands separators, e.g. 1234567.891 -> "$1,234,567.89".
func FormatUSD(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	str := fmt.Sprintf("%.2f", amount)
	parts := strings.Split(str, ".")
	intPart := parts[0]
	decPart := parts[1]

	result := "$" + groupThousands(intPart) + "." + decPart
	if negative {
		result = "-" + result
	}
	return result
}

// groupThousands inserts commas every three digits from the right.
func groupThousands(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	var b strings.Builder
	rem := n % 3
	if rem > 0 {
		b.WriteString(s[:rem])
	}
	for i := rem; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatSigned formats a value with an explicit sign and two decimals,
// e.g. 2.345 -> "+2.34".
func FormatSigned(value float64) string {
	return fmt.Sprintf("%+.2f", value)
}

// FormatSignedPercent formats a percentage with an explicit sign and two
// decimals, e.g. 2.345 -> "+2.34%".
func FormatSignedPercent(value float64) string {
	return fmt.Sprintf("%+.2f%%", value)
}

// FormatVolume renders a share volume compactly (1.2M, 345.6K).
func FormatVolume(volume int64) string {
	switch {
	case volume >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(volume)/1_000_000_000)
	case volume >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(volume)/1_000_000)
	case volume >= 1_000:
		return fmt.Sprintf("%.1fK", float64(volume)/1_000)
	default:
		return fmt.Sprintf("%d", volume)
	}
}
