package synth

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"sheetsync/internal/normalize"
	"sheetsync/internal/schema"
	"sheetsync/internal/sheet"
)

// Book is a workbook the generator reads pools from and appends rows to.
// Unlike the importer's read-only view it keeps the file path so the
// workbook can be written back in place. Worksheet and header names are
// matched after the same normalization the importer applies.
type Book struct {
	f     *excelize.File
	path  string
	names map[string]string // normalized table name -> worksheet name
}

// OpenBook opens an existing XLSX workbook for appending.
func OpenBook(path string) (*Book, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return newBook(f, path), nil
}

// CreateBook writes a fresh workbook with one worksheet per registry
// table, header row included, and returns it open for appending.
func CreateBook(path string, reg *schema.Registry) (*Book, error) {
	f := excelize.NewFile()
	for _, name := range reg.Order() {
		t, err := reg.Get(name)
		if err != nil {
			return nil, err
		}
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create worksheet %s: %w", name, err)
		}
		header := make([]any, len(t.Columns))
		for i, c := range t.Columns {
			header[i] = c
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return nil, fmt.Errorf("write header %s: %w", name, err)
		}
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default worksheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("save workbook %s: %w", path, err)
	}
	return newBook(f, path), nil
}

func newBook(f *excelize.File, path string) *Book {
	names := make(map[string]string)
	for _, ws := range f.GetSheetList() {
		if key := sheet.NormalizeHeader(ws); key != "" {
			names[key] = ws
		}
	}
	return &Book{f: f, path: path, names: names}
}

// Append adds rows to the end of a table's worksheet.
func (b *Book) Append(table string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	ws, err := b.worksheet(table)
	if err != nil {
		return err
	}
	existing, err := b.f.GetRows(ws)
	if err != nil {
		return fmt.Errorf("read %s: %w", ws, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, len(existing)+1+i)
		if err != nil {
			return err
		}
		if err := b.f.SetSheetRow(ws, cell, &row); err != nil {
			return fmt.Errorf("append to %s: %w", ws, err)
		}
	}
	return nil
}

// Clients returns the non-blank id_cliente values from the clientes
// worksheet.
func (b *Book) Clients() ([]string, error) {
	rows, header, err := b.tableRows("clientes")
	if err != nil {
		return nil, err
	}
	idx, ok := header["id_cliente"]
	if !ok {
		return nil, fmt.Errorf("clientes: no id_cliente column")
	}
	var out []string
	for _, row := range rows {
		if v := strings.TrimSpace(cellAt(row, idx)); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

// Products returns the catalog from the produtos worksheet. Rows with a
// blank id or an unparseable price are skipped.
func (b *Book) Products() ([]Product, error) {
	rows, header, err := b.tableRows("produtos")
	if err != nil {
		return nil, err
	}
	idIdx, ok := header["id_produto"]
	if !ok {
		return nil, fmt.Errorf("produtos: no id_produto column")
	}
	priceIdx, ok := header["preco_atual"]
	if !ok {
		return nil, fmt.Errorf("produtos: no preco_atual column")
	}
	var out []Product
	for _, row := range rows {
		id := strings.TrimSpace(cellAt(row, idIdx))
		if id == "" {
			continue
		}
		price, reason := normalize.Decimal(cellAt(row, priceIdx), true)
		if reason != "" {
			continue
		}
		out = append(out, Product{ID: id, Price: price})
	}
	return out, nil
}

// Save writes the workbook back to its path.
func (b *Book) Save() error {
	if err := b.f.SaveAs(b.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", b.path, err)
	}
	return nil
}

// Close releases the underlying file without saving.
func (b *Book) Close() error { return b.f.Close() }

func (b *Book) worksheet(table string) (string, error) {
	ws, ok := b.names[table]
	if !ok {
		return "", fmt.Errorf("worksheet %q: %w", table, sheet.ErrNoTable)
	}
	return ws, nil
}

// tableRows returns a table's data rows and its header map (normalized
// column name to cell index). Row 1 is the header.
func (b *Book) tableRows(table string) ([][]string, map[string]int, error) {
	ws, err := b.worksheet(table)
	if err != nil {
		return nil, nil, err
	}
	rows, err := b.f.GetRows(ws)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", ws, err)
	}
	if len(rows) == 0 {
		return nil, map[string]int{}, nil
	}
	header := make(map[string]int, len(rows[0]))
	for i, cell := range rows[0] {
		if key := sheet.NormalizeHeader(cell); key != "" {
			header[key] = i
		}
	}
	return rows[1:], header, nil
}

// cellAt tolerates the ragged rows GetRows returns; trailing empty cells
// are simply absent.
func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}
