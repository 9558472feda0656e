// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Currency is the symbol FormatMoney prefixes amounts with.
var Currency = "$"

// FormatMoney formats an amount with thousands separators and cents.
// e.g., 1234.5 -> "$1,234.50", -80 -> "-$80.00"
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	cents := int64(math.Round(v * 100))
	return fmt.Sprintf("%s%s%s.%02d", sign, Currency, FormatNumber(cents/100), cents%100)
}

// FormatMoneyShort formats an amount compactly for cards and charts.
// e.g., 1234 -> "$1.2K", 2500000 -> "$2.5M"
func FormatMoneyShort(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	switch {
	case v >= 1_000_000:
		return fmt.Sprintf("%s%s%.1fM", sign, Currency, v/1_000_000)
	case v >= 10_000:
		return fmt.Sprintf("%s%s%.0fK", sign, Currency, v/1_000)
	case v >= 1_000:
		return fmt.Sprintf("%s%s%.1fK", sign, Currency, v/1_000)
	default:
		return fmt.Sprintf("%s%s%.0f", sign, Currency, v)
	}
}

// FormatNumber adds comma separators to an integer.
// e.g., 1234567 -> "1,234,567"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}

	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if result.Len() > 0 {
			result.WriteByte(',')
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// FormatPercent formats a value already in percent units, e.g. 12.34 -> "12.3%".
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// FormatSignedPercent is FormatPercent with an explicit sign.
func FormatSignedPercent(p float64) string {
	return fmt.Sprintf("%+.1f%%", p)
}

// FormatMonths formats a months-of-reserve figure.
func FormatMonths(m float64) string {
	switch {
	case m >= 100:
		return "99+ mo"
	case m < 0:
		return "0 mo"
	default:
		return fmt.Sprintf("%.1f mo", m)
	}
}

// FormatDelta formats the change between two amounts with a sign.
func FormatDelta(current, previous float64) string {
	delta := current - previous
	if delta >= 0 {
		return "+" + FormatMoney(delta)
	}
	return FormatMoney(delta)
}

// FormatScore renders a score as "57/100".
func FormatScore(score int) string {
	return fmt.Sprintf("%d/100", score)
}
