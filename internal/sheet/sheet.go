// Package sheet reads spreadsheet tables into raw records. A table is a
// worksheet in an XLSX workbook or a <name>.csv file in a directory;
// either way the first non-blank row is the header and every row below
// it becomes one records.Raw keyed by normalized header names.
package sheet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"sheetsync/pkg/records"
)

// ErrNoTable reports a table name the source cannot serve.
var ErrNoTable = errors.New("table not found in source")

// Source yields the raw rows of named tables.
type Source interface {
	// Tables lists the table names the source can serve.
	Tables() []string

	// Read returns every data row of the named table, in sheet order,
	// with Row set to the spreadsheet display row (header row included
	// in the numbering, so the first data row under a row-1 header is 2).
	Read(ctx context.Context, table string) ([]records.Raw, error)
}

// foldMarks decomposes, strips nonspacing marks, and recomposes, so
// accented headers fold to plain ASCII.
var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// NormalizeHeader folds a header cell to a canonical column key:
// lowercase, accents removed, space/dash/dot runs collapsed to a single
// underscore, everything outside [a-z0-9_] dropped. Returns "" when
// nothing survives.
func NormalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	ascii, _, _ := transform.String(foldMarks, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
			prevUnderscore = false
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// headerIndex returns the index of the first row with any non-blank
// cell, or -1 when the sheet is empty.
func headerIndex(rows [][]string) int {
	for i, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return i
			}
		}
	}
	return -1
}

// assemble turns a whole sheet (header row included) into raw records.
// Rows are padded or truncated to the header width, and Row carries the
// 1-based sheet position so diagnostics point at the cell the operator
// sees.
func assemble(rows [][]string) []records.Raw {
	h := headerIndex(rows)
	if h < 0 {
		return nil
	}

	headerRow := rows[h]
	headers := make([]string, len(headerRow))
	for i, cell := range headerRow {
		if i == 0 {
			cell = strings.TrimPrefix(cell, utf8BOM)
		}
		key := NormalizeHeader(cell)
		if key == "" {
			key = fmt.Sprintf("col_%d", i)
		}
		headers[i] = key
	}

	out := make([]records.Raw, 0, len(rows)-h-1)
	for j := h + 1; j < len(rows); j++ {
		fields := make(map[string]string, len(headers))
		for i, key := range headers {
			if i < len(rows[j]) {
				fields[key] = rows[j][i]
			} else {
				fields[key] = ""
			}
		}
		out = append(out, records.Raw{Row: j + 1, Fields: fields})
	}
	return out
}
