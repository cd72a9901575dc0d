// Package validate applies a table declaration to raw sheet rows. It is the
// only producer of records.Cleaned: every cleaned row has passed the
// required-column gate here before any referential check sees it.
package validate

import (
	"strings"

	"sheetsync/internal/normalize"
	"sheetsync/internal/schema"
	"sheetsync/pkg/records"
)

// Blank reports whether every cell of the row is empty or whitespace. Blank
// rows are skips, not failures: they count toward neither valid nor invalid
// totals.
func Blank(raw records.Raw) bool {
	for _, v := range raw.Fields {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// lookup finds the raw value for a declared column. Headers are normalized
// by the reader, but sheets maintained by hand drift, so the exact match is
// followed by a case-insensitive and then an underscore-insensitive pass.
// A column absent from the row reads as the empty string.
func lookup(fields map[string]string, column string) string {
	if v, ok := fields[column]; ok {
		return v
	}
	lc := strings.ToLower(column)
	for k, v := range fields {
		if strings.ToLower(k) == lc {
			return v
		}
	}
	flat := strings.ReplaceAll(lc, "_", "")
	for k, v := range fields {
		if strings.ReplaceAll(strings.ToLower(k), "_", "") == flat {
			return v
		}
	}
	return ""
}

// Value returns the raw cell for a declared column using the same
// header-matching ladder as Row, so callers that key rows by column
// (deduplication, probes) agree with validation about which cell they
// are looking at.
func Value(fields map[string]string, column string) string {
	return lookup(fields, column)
}

// Row validates one raw row against the table declaration.
//
// A required column that is empty or fails normalization rejects the row
// with a single required_missing error for that column. An optional column
// that fails normalization is reported with the normalizer's reason and
// stored as nil; the row itself stays valid. Valid rows yield a Cleaned
// holding every declared column (nil for optional columns with no value);
// rejected rows yield no Cleaned at all.
//
// Row is stateless: calling it twice with the same input gives identical
// results.
func Row(raw records.Raw, t *schema.Table) (*records.Cleaned, []records.ValidationError) {
	var errs []records.ValidationError
	fields := make(map[string]any, len(t.Columns))
	valid := true

	for _, col := range t.Columns {
		rawVal := lookup(raw.Fields, col)

		var val any
		var reason records.Reason
		switch t.TypeOf(col) {
		case schema.TypeDecimal:
			if v, r := normalize.Decimal(rawVal, t.IsNonNegative(col)); r == "" {
				val = v
			} else {
				reason = r
			}
		case schema.TypeInteger:
			if v, r := normalize.Integer(rawVal); r == "" {
				val = v
			} else {
				reason = r
			}
		case schema.TypeDate:
			if v, r := normalize.Date(rawVal); r == "" {
				val = v
			} else {
				reason = r
			}
		default:
			if s := normalize.Text(rawVal); s != "" {
				val = s
			} else {
				reason = records.ReasonEmpty
			}
		}

		if t.IsRequired(col) {
			if reason != "" || val == nil {
				errs = append(errs, records.ValidationError{
					Row:    raw.Row,
					Field:  col,
					Reason: records.ReasonRequiredMissing,
					Value:  rawVal,
				})
				valid = false
				continue
			}
			fields[col] = val
			continue
		}

		// Optional column: an empty cell is a plain null, a failed one is a
		// null worth telling the operator about.
		if reason != "" && reason != records.ReasonEmpty {
			errs = append(errs, records.ValidationError{
				Row:    raw.Row,
				Field:  col,
				Reason: reason,
				Value:  rawVal,
			})
		}
		fields[col] = val
	}

	if !valid {
		return nil, errs
	}
	return &records.Cleaned{Row: raw.Row, Fields: fields}, errs
}
