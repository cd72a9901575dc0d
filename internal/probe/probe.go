// Package probe profiles worksheet data ahead of an import run. For each
// table it reports per-column value statistics, repeated rows, and a
// suggested declared type, so an operator can see what a sheet actually
// holds before pointing the importer at it.
package probe

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"sheetsync/internal/schema"
	"sheetsync/internal/sheet"
	"sheetsync/internal/validate"
	"sheetsync/pkg/records"
)

// maxSamples bounds the distinct values kept per column for display.
const maxSamples = 5

// ColumnProfile summarizes one column of a worksheet.
type ColumnProfile struct {
	Name string `json:"name"`

	// NonEmpty and Empty partition the non-blank data rows; they always
	// sum to TableProfile.Rows minus TableProfile.BlankRows.
	NonEmpty int `json:"non_empty"`
	Empty    int `json:"empty"`

	// Distinct counts distinct non-empty values after trimming.
	Distinct int `json:"distinct"`

	// Samples holds up to maxSamples distinct values in sheet order.
	Samples []string `json:"samples,omitempty"`

	// Suggested is the declared type the column would get.
	Suggested schema.FieldType `json:"suggested_type"`
}

// TableProfile summarizes one worksheet.
type TableProfile struct {
	Table     string `json:"table"`
	Rows      int    `json:"rows"`
	BlankRows int    `json:"blank_rows"`

	// DuplicateRows counts non-blank rows that repeat an earlier row's
	// full content.
	DuplicateRows int `json:"duplicate_rows"`

	// Columns are sorted by name; a worksheet row is a map, so the sheet's
	// own column order is not recoverable here.
	Columns []ColumnProfile `json:"columns"`
}

// colAgg accumulates per-column state during the row scan.
type colAgg struct {
	nonEmpty int
	distinct map[string]struct{}
	samples  []string
	values   []string
}

// Profile reads one table from the source and profiles it.
func Profile(ctx context.Context, src sheet.Source, table string) (*TableProfile, error) {
	raws, err := src.Read(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}

	colSet := make(map[string]struct{})
	for _, raw := range raws {
		for k := range raw.Fields {
			colSet[k] = struct{}{}
		}
	}
	columns := make([]string, 0, len(colSet))
	for c := range colSet {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	p := &TableProfile{Table: table, Rows: len(raws)}
	aggs := make(map[string]*colAgg, len(columns))
	for _, c := range columns {
		aggs[c] = &colAgg{distinct: make(map[string]struct{})}
	}

	seen := make(map[uint64]struct{}, len(raws))
	for _, raw := range raws {
		if validate.Blank(raw) {
			p.BlankRows++
			continue
		}

		fp := fingerprint(raw, columns)
		if _, dup := seen[fp]; dup {
			p.DuplicateRows++
		} else {
			seen[fp] = struct{}{}
		}

		for _, c := range columns {
			v := strings.TrimSpace(raw.Fields[c])
			if v == "" {
				continue
			}
			agg := aggs[c]
			agg.nonEmpty++
			agg.values = append(agg.values, v)
			if _, ok := agg.distinct[v]; !ok {
				agg.distinct[v] = struct{}{}
				if len(agg.samples) < maxSamples {
					agg.samples = append(agg.samples, v)
				}
			}
		}
	}

	considered := p.Rows - p.BlankRows
	p.Columns = make([]ColumnProfile, 0, len(columns))
	for _, c := range columns {
		agg := aggs[c]
		p.Columns = append(p.Columns, ColumnProfile{
			Name:      c,
			NonEmpty:  agg.nonEmpty,
			Empty:     considered - agg.nonEmpty,
			Distinct:  len(agg.distinct),
			Samples:   agg.samples,
			Suggested: SuggestType(c, agg.values),
		})
	}
	return p, nil
}

// ProfileAll profiles the named tables, or every table the source serves
// when tables is empty. Tables are probed concurrently; workers bounds
// the parallelism (0 means unbounded). Results come back in table order.
func ProfileAll(ctx context.Context, src sheet.Source, tables []string, workers int) ([]*TableProfile, error) {
	if len(tables) == 0 {
		tables = src.Tables()
	}
	out := make([]*TableProfile, len(tables))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, table := range tables {
		i, table := i, table
		g.Go(func() error {
			p, err := Profile(ctx, src, table)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// fingerprint hashes a row's cells in column order. A separator byte
// keeps ("ab","c") and ("a","bc") from colliding.
func fingerprint(raw records.Raw, columns []string) uint64 {
	var h xxh3.Hasher
	for _, c := range columns {
		_, _ = h.WriteString(strings.TrimSpace(raw.Fields[c]))
		_, _ = h.Write([]byte{0x1f})
	}
	return h.Sum64()
}
