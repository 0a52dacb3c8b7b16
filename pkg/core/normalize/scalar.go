// Package normalize flattens heterogeneous accounting report exports into a
// uniform row model. It recognizes the known export shapes in a fixed priority
// order and falls back to a generic tree walk for anything unknown.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// SCALAR PARSING - Export-format amounts to numbers
// =============================================================================

var nonNumericPattern = regexp.MustCompile(`[^0-9.\-]`)

// ParseAmount parses an export-format scalar into a number.
// Handles:
//
//	"1,234.50"    → 1234.50
//	"₹ 1,234.50"  → 1234.50
//	"1,234.50 Cr" → -1234.50 (credit suffix negates)
//	"1,234.50 Dr" → 1234.50  (debit positive convention)
//	"" or garbage → nil
//
// The Dr/Cr accounting suffixes are matched case-insensitively. A nil result
// means "genuinely unknown", never zero.
func ParseAmount(raw interface{}) *float64 {
	if raw == nil {
		return nil
	}

	text := strings.TrimSpace(scalarText(raw))
	if text == "" {
		return nil
	}

	lower := strings.ToLower(text)
	isCredit := strings.Contains(lower, "cr")

	cleaned := nonNumericPattern.ReplaceAllString(strings.ReplaceAll(text, ",", ""), "")
	switch cleaned {
	case "", ".", "-", "-.":
		return nil
	}

	val, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return nil
	}

	if isCredit {
		val = -val
	}
	return &val
}

// ParseRatioAmount extracts only the leading numeric run of a mixed scalar.
// Ratio-analysis exports mix numbers with units or ratio notation:
//
//	"59,07,661.47 Dr" → 5907661.47
//	"17.22 : 1"       → 17.22
//	"0.00 %"          → 0
//	"12 days"         → 12
//
// Parsing stops at the first character that is neither a digit nor a
// separator once the numeric run has started.
func ParseRatioAmount(raw interface{}) *float64 {
	if raw == nil {
		return nil
	}

	text := strings.TrimSpace(scalarText(raw))
	var buf strings.Builder
	started := false
	for _, ch := range text {
		if (ch >= '0' && ch <= '9') || ch == ',' || ch == '.' || ch == '-' {
			buf.WriteRune(ch)
			started = true
			continue
		}
		if started {
			break
		}
	}
	if buf.Len() == 0 {
		return nil
	}
	return ParseAmount(strings.ReplaceAll(buf.String(), ",", ""))
}

// scalarText renders a leaf value as text for parsing. The transport layer
// delivers leaves as strings, but already-parsed numbers must round-trip
// (parsing the string form of a parsed number is idempotent).
func scalarText(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return ""
	}
}
