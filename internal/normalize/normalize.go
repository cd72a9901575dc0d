// Package normalize converts raw spreadsheet cell text into canonical typed
// values. Every function is total: malformed input comes back as a
// records.Reason, never as a panic or a Go error. The zero Reason ("") means
// the conversion succeeded.
package normalize

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"

	"sheetsync/pkg/records"
)

// stripControl removes control and other invisible characters (Unicode Cc,
// which covers C0, DEL and C1). Whitespace collapse runs first, so tabs and
// newlines have already been folded into single spaces by the time this
// transformer sees the text.
var stripControl = runes.Remove(runes.In(unicode.Cc))

// dateLayouts are tried in order; the first match wins. Sheets exported from
// Brazilian sources mostly carry DD/MM/YYYY, ISO appears when columns were
// typed in the sheet itself.
var dateLayouts = []string{
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"2006/01/02",
}

// ISODate is the canonical output layout for Date.
const ISODate = "2006-01-02"

// Text trims the value, collapses any run of whitespace (including Unicode
// spaces) to a single ASCII space, and strips invisible control characters.
// It never fails; an all-whitespace input comes back as "".
func Text(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	s, _, _ = transform.String(stripControl, s)
	return s
}

// Decimal parses a monetary or numeric cell. Currency symbols and stray text
// are dropped, a decimal comma becomes a period, and thousands separators
// are folded away by keeping only the last dot as the decimal point, so
// "R$ 1.234,56" parses as 1234.56. With nonNegative set, values below zero
// are refused with ReasonNegative.
func Decimal(raw string, nonNegative bool) (float64, records.Reason) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, records.ReasonEmpty
	}

	s = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == ',' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	s = strings.ReplaceAll(s, ",", ".")

	if parts := strings.Split(s, "."); len(parts) > 2 {
		s = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, records.ReasonNotNumeric
	}
	if nonNegative && v < 0 {
		return 0, records.ReasonNegative
	}
	return v, ""
}

// Integer parses the leading digit run of the cell, after an optional sign,
// so "12 un" yields 12. Input with no leading digits is refused with
// ReasonNotInteger.
func Integer(raw string) (int64, records.Reason) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, records.ReasonEmpty
	}

	i := 0
	if s[0] == '-' || s[0] == '+' {
		i = 1
	}
	j := i
	for j < len(s) && s[j] >= '0' && s[j] <= '9' {
		j++
	}
	if j == i {
		return 0, records.ReasonNotInteger
	}

	v, err := strconv.ParseInt(s[:j], 10, 64)
	if err != nil {
		return 0, records.ReasonNotInteger
	}
	return v, ""
}

// Date parses the cell against the accepted layouts in order and returns the
// canonical YYYY-MM-DD form. Parsing goes through time.Parse, so impossible
// calendar dates ("2025-13-40") are refused with ReasonBadDate rather than
// passed along shape-matched.
func Date(raw string) (string, records.Reason) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", records.ReasonEmpty
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ISODate), ""
		}
	}
	return "", records.ReasonBadDate
}
