package sheet

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"sheetsync/pkg/records"
)

// Workbook serves tables from the worksheets of one XLSX file. The
// worksheet name, normalized like a header cell, is the table name.
type Workbook struct {
	f      *excelize.File
	sheets map[string]string // normalized name -> worksheet name
	order  []string
}

// OpenWorkbook opens an XLSX file from disk.
func OpenWorkbook(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return newWorkbook(f), nil
}

// NewWorkbook opens an XLSX workbook from a reader (a downloaded or
// in-memory file).
func NewWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return newWorkbook(f), nil
}

func newWorkbook(f *excelize.File) *Workbook {
	w := &Workbook{f: f, sheets: make(map[string]string)}
	for _, name := range f.GetSheetList() {
		key := NormalizeHeader(name)
		if key == "" {
			continue
		}
		if _, dup := w.sheets[key]; dup {
			continue
		}
		w.sheets[key] = name
		w.order = append(w.order, key)
	}
	return w
}

func (w *Workbook) Close() error { return w.f.Close() }

// Tables lists the normalized worksheet names in workbook order.
func (w *Workbook) Tables() []string {
	out := make([]string, len(w.order))
	copy(out, w.order)
	return out
}

// Read returns the data rows of the worksheet matching table.
func (w *Workbook) Read(ctx context.Context, table string) ([]records.Raw, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	name, ok := w.sheets[NormalizeHeader(table)]
	if !ok {
		return nil, fmt.Errorf("worksheet %q: %w", table, ErrNoTable)
	}
	rows, err := w.f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read worksheet %q: %w", name, err)
	}
	return assemble(rows), nil
}
