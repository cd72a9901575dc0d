package sheet

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sheetsync/pkg/records"
)

// Dir serves tables from <table>.csv files in one directory.
type Dir struct {
	path  string
	comma rune
}

// NewDir returns a Dir source reading from path. A zero delimiter means
// comma.
func NewDir(path string, delimiter rune) *Dir {
	if delimiter == 0 {
		delimiter = ','
	}
	return &Dir{path: path, comma: delimiter}
}

// Tables lists the .csv files in the directory, sorted by name. A
// directory that cannot be listed yields nothing; Read reports the
// real error.
func (d *Dir) Tables() []string {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		out = append(out, strings.TrimSuffix(e.Name(), ".csv"))
	}
	sort.Strings(out)
	return out
}

// Read parses <table>.csv leniently: a UTF-8 BOM is discarded, quoting
// oddities are tolerated, and rows may vary in width (assemble pads them
// to the header).
func (d *Dir) Read(ctx context.Context, table string) ([]records.Raw, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	path := filepath.Join(d.path, table+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("csv %s: %w", path, ErrNoTable)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, []byte(utf8BOM)) {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.Comma = d.comma
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return assemble(rows), nil
}
