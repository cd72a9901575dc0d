package probe

import (
	"strconv"
	"strings"

	"sheetsync/internal/normalize"
	"sheetsync/internal/schema"
)

// SuggestType proposes a declared type for a column. The column name is
// consulted first (ids stay text even when every sample is numeric, data_
// and date columns are dates, preco/valor columns are money, quantities
// are integers); only a name with no signal falls back to sampling the
// values.
func SuggestType(name string, values []string) schema.FieldType {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "id_"):
		return schema.TypeText
	case strings.Contains(lower, "data_"), strings.Contains(lower, "date"), strings.HasSuffix(lower, "_data"):
		return schema.TypeDate
	case strings.Contains(lower, "preco"), strings.Contains(lower, "valor"):
		return schema.TypeDecimal
	case strings.Contains(lower, "quantidade"), strings.Contains(lower, "qtd"):
		return schema.TypeInteger
	}
	return sampleType(values)
}

// sampleType infers a type from the values alone. Every value must
// satisfy the narrower type; one mismatch widens the column. The checks
// here are strict on purpose: the import-time normalizers forgive units
// and stray text, but a suggestion should only fire on clean samples.
func sampleType(values []string) schema.FieldType {
	if len(values) == 0 {
		return schema.TypeText
	}

	if allMatch(values, isDate) {
		return schema.TypeDate
	}
	if allMatch(values, isInt) {
		return schema.TypeInteger
	}
	// A column of bare digit runs already matched the integer case, so
	// reaching here means at least one value carries a separator.
	if allMatch(values, isDecimal) {
		return schema.TypeDecimal
	}
	return schema.TypeText
}

func allMatch(values []string, fn func(string) bool) bool {
	for _, v := range values {
		if !fn(v) {
			return false
		}
	}
	return true
}

func isDate(s string) bool {
	_, reason := normalize.Date(s)
	return reason == ""
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return err == nil
}

// isDecimal accepts decimal-point and decimal-comma money values
// ("10.50", "10,50") and plain integers, so a mixed column reads as
// decimal. Pure digit columns never reach this check.
func isDecimal(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.ContainsAny(s, ".,") {
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return true
		}
		return false
	}
	s = strings.Replace(s, ",", ".", 1)
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}
