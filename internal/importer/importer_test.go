package importer

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"go.uber.org/zap"

	"sheetsync/internal/fkcache"
	"sheetsync/internal/schema"
	"sheetsync/internal/sheet"
	"sheetsync/pkg/records"
)

// fakeSource serves canned rows per table.
type fakeSource struct {
	sheets map[string][]records.Raw
	errs   map[string]error
}

func (f *fakeSource) Tables() []string {
	out := make([]string, 0, len(f.sheets))
	for name := range f.sheets {
		out = append(out, name)
	}
	return out
}

func (f *fakeSource) Read(_ context.Context, table string) ([]records.Raw, error) {
	if err := f.errs[table]; err != nil {
		return nil, err
	}
	rows, ok := f.sheets[table]
	if !ok {
		return nil, fmt.Errorf("worksheet %q: %w", table, sheet.ErrNoTable)
	}
	return rows, nil
}

type oneCall struct {
	cols []string
	row  []any
}

// fakeRepo records every mutation the importer performs.
type fakeRepo struct {
	keys    map[string][]string // "table.column" -> key values
	keysErr map[string]error

	failBatchCalls map[int]bool // 1-based InsertBatch call ordinals that fail
	failOneKey     string       // InsertOne rows whose first value matches fail

	batchCalls int
	cleared    []string
	batchCols  []string
	batchRows  [][][]any
	oneCalls   []oneCall
}

func (f *fakeRepo) ListKeys(_ context.Context, table, column string) ([]string, error) {
	k := table + "." + column
	if err := f.keysErr[k]; err != nil {
		return nil, err
	}
	return f.keys[k], nil
}

func (f *fakeRepo) Clear(_ context.Context, table string) error {
	f.cleared = append(f.cleared, table)
	return nil
}

func (f *fakeRepo) InsertBatch(_ context.Context, table string, columns []string, rows [][]any) (int64, error) {
	f.batchCalls++
	if f.failBatchCalls[f.batchCalls] {
		return 0, errors.New("batch refused")
	}
	f.batchCols = columns
	f.batchRows = append(f.batchRows, rows)
	return int64(len(rows)), nil
}

func (f *fakeRepo) InsertOne(_ context.Context, table string, columns []string, row []any) error {
	if len(row) > 0 && f.failOneKey != "" {
		if s, ok := row[0].(string); ok && s == f.failOneKey {
			return errors.New("row refused")
		}
	}
	f.oneCalls = append(f.oneCalls, oneCall{cols: columns, row: row})
	return nil
}

func (f *fakeRepo) Exec(context.Context, string) error { return nil }
func (f *fakeRepo) Close()                             {}

// raw builds a records.Raw from alternating key/value pairs.
func raw(row int, kv ...string) records.Raw {
	fields := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return records.Raw{Row: row, Fields: fields}
}

func blankRow(row int) records.Raw {
	return raw(row, "id_cliente", "", "nome_cliente", "  ")
}

func TestImportTableHappyPath(t *testing.T) {
	t.Parallel()

	src := &fakeSource{sheets: map[string][]records.Raw{
		"clientes": {
			raw(2, "id_cliente", "C1", "nome_cliente", "Ana", "estado", "SP", "pais", "Brasil", "data_cadastro", "15/01/2025"),
			blankRow(3),
			raw(4, "id_cliente", "", "nome_cliente", "Sem ID"),
			raw(5, "id_cliente", " C2 ", "nome_cliente", "Bruno", "estado", "RJ", "pais", "Brasil", "data_cadastro", "2025-02-01"),
		},
	}}
	repo := &fakeRepo{}
	im := New(src, repo, schema.Default(), Config{Job: "test"}, zap.NewNop())

	res, err := im.ImportTable(context.Background(), "clientes")
	if err != nil {
		t.Fatalf("ImportTable: %v", err)
	}

	if res.TotalRows != 4 || res.EmptyRows != 1 || res.InvalidRows != 1 || res.ValidRows != 2 {
		t.Fatalf("counters = %+v", res)
	}
	if res.TotalRows != res.EmptyRows+res.DuplicateRows+res.ValidRows+res.InvalidRows {
		t.Fatalf("accounting broken: %+v", res)
	}
	if res.Inserted != 2 || res.InsertErrors != 0 {
		t.Fatalf("inserted = %d, insertErrors = %d", res.Inserted, res.InsertErrors)
	}

	if !reflect.DeepEqual(repo.cleared, []string{"clientes"}) {
		t.Fatalf("cleared = %v", repo.cleared)
	}
	wantCols := []string{"id_cliente", "nome_cliente", "estado", "pais", "data_cadastro"}
	if !reflect.DeepEqual(repo.batchCols, wantCols) {
		t.Fatalf("batch columns = %v", repo.batchCols)
	}
	if len(repo.batchRows) != 1 || len(repo.batchRows[0]) != 2 {
		t.Fatalf("batchRows = %v", repo.batchRows)
	}
	wantFirst := []any{"C1", "Ana", "SP", "Brasil", "2025-01-15"}
	if !reflect.DeepEqual(repo.batchRows[0][0], wantFirst) {
		t.Fatalf("row[0] = %v, want %v", repo.batchRows[0][0], wantFirst)
	}
	wantSecond := []any{"C2", "Bruno", "RJ", "Brasil", "2025-02-01"}
	if !reflect.DeepEqual(repo.batchRows[0][1], wantSecond) {
		t.Fatalf("row[1] = %v, want %v", repo.batchRows[0][1], wantSecond)
	}

	// The shortened row reports exactly one required_missing error.
	if len(res.Errors) != 1 || res.Errors[0].Reason != records.ReasonRequiredMissing || res.Errors[0].Row != 4 {
		t.Fatalf("errors = %v", res.Errors)
	}
}

func TestImportTableReferentialFilter(t *testing.T) {
	t.Parallel()

	src := &fakeSource{sheets: map[string][]records.Raw{
		"vendas": {
			raw(2, "id_venda", "V1", "data_venda", "10/03/2025", "id_cliente", "C1", "id_produto", "P1", "canal_venda", "ecommerce", "quantidade", "2", "preco_unitario", "10,50"),
			raw(3, "id_venda", "V2", "data_venda", "11/03/2025", "id_cliente", "C404", "id_produto", "P1", "canal_venda", "loja", "quantidade", "1", "preco_unitario", "5,00"),
			raw(4, "id_venda", "V3", "data_venda", "12/03/2025", "id_cliente", "", "id_produto", "P2", "canal_venda", "loja", "quantidade", "1", "preco_unitario", "5,00"),
		},
	}}
	repo := &fakeRepo{keys: map[string][]string{
		"clientes.id_cliente": {"C1"},
		"produtos.id_produto": {"P1", "P2"},
	}}
	im := New(src, repo, schema.Default(), Config{Job: "test"}, zap.NewNop())

	res, err := im.ImportTable(context.Background(), "vendas")
	if err != nil {
		t.Fatalf("ImportTable: %v", err)
	}

	if res.ValidRows != 3 || res.FKErrors != 1 {
		t.Fatalf("counters = %+v", res)
	}
	// V2's unknown client is the only rejection; V3's blank client is a
	// nullable FK and passes.
	if res.Inserted != 2 {
		t.Fatalf("inserted = %d, want 2", res.Inserted)
	}
	var fkErrs []records.ValidationError
	for _, e := range res.Errors {
		if e.Reason == records.ReasonFKNotFound {
			fkErrs = append(fkErrs, e)
		}
	}
	if len(fkErrs) != 1 || fkErrs[0].Row != 3 || fkErrs[0].Field != "id_cliente" || fkErrs[0].Value != "C404" {
		t.Fatalf("fk errors = %v", fkErrs)
	}
}

func TestImportTableZeroLoadableSkipsClear(t *testing.T) {
	t.Parallel()

	src := &fakeSource{sheets: map[string][]records.Raw{
		"clientes": {
			raw(2, "id_cliente", "", "nome_cliente", "Sem ID"),
			blankRow(3),
		},
	}}
	repo := &fakeRepo{}
	im := New(src, repo, schema.Default(), Config{Job: "test"}, zap.NewNop())

	res, err := im.ImportTable(context.Background(), "clientes")
	if err != nil {
		t.Fatalf("ImportTable: %v", err)
	}
	if res.ValidRows != 0 || res.Inserted != 0 {
		t.Fatalf("counters = %+v", res)
	}
	if len(repo.cleared) != 0 {
		t.Fatalf("table was cleared despite zero loadable records: %v", repo.cleared)
	}
	if repo.batchCalls != 0 {
		t.Fatalf("unexpected insert batches: %d", repo.batchCalls)
	}
}

func TestImportTableDryRun(t *testing.T) {
	t.Parallel()

	src := &fakeSource{sheets: map[string][]records.Raw{
		"clientes": {
			raw(2, "id_cliente", "C1", "nome_cliente", "Ana"),
		},
	}}
	repo := &fakeRepo{}
	im := New(src, repo, schema.Default(), Config{Job: "test", DryRun: true}, zap.NewNop())

	res, err := im.ImportTable(context.Background(), "clientes")
	if err != nil {
		t.Fatalf("ImportTable: %v", err)
	}
	if res.ValidRows != 1 {
		t.Fatalf("counters = %+v", res)
	}
	if len(repo.cleared) != 0 || repo.batchCalls != 0 || len(repo.oneCalls) != 0 {
		t.Fatalf("dry run touched the store: cleared=%v batches=%d ones=%d",
			repo.cleared, repo.batchCalls, len(repo.oneCalls))
	}
}

func TestImportTableDedupeKeepsLast(t *testing.T) {
	t.Parallel()

	src := &fakeSource{sheets: map[string][]records.Raw{
		"clientes": {
			raw(2, "id_cliente", "C1", "nome_cliente", "Primeira"),
			raw(3, "id_cliente", "C2", "nome_cliente", "Outra"),
			raw(4, "id_cliente", "C1", "nome_cliente", "Ultima"),
		},
	}}
	repo := &fakeRepo{}
	im := New(src, repo, schema.Default(), Config{Job: "test", Dedupe: true}, zap.NewNop())

	res, err := im.ImportTable(context.Background(), "clientes")
	if err != nil {
		t.Fatalf("ImportTable: %v", err)
	}
	if res.DuplicateRows != 1 || res.ValidRows != 2 || res.Inserted != 2 {
		t.Fatalf("counters = %+v", res)
	}
	if res.TotalRows != res.EmptyRows+res.DuplicateRows+res.ValidRows+res.InvalidRows {
		t.Fatalf("accounting broken: %+v", res)
	}

	// The later C1 row wins.
	names := make([]string, 0, 2)
	for _, row := range repo.batchRows[0] {
		names = append(names, row[1].(string))
	}
	if !reflect.DeepEqual(names, []string{"Outra", "Ultima"}) {
		t.Fatalf("kept rows = %v", names)
	}
}

func TestImportTableDedupeOffByDefault(t *testing.T) {
	t.Parallel()

	src := &fakeSource{sheets: map[string][]records.Raw{
		"clientes": {
			raw(2, "id_cliente", "C1", "nome_cliente", "Primeira"),
			raw(3, "id_cliente", "C1", "nome_cliente", "Ultima"),
		},
	}}
	repo := &fakeRepo{}
	im := New(src, repo, schema.Default(), Config{Job: "test"}, zap.NewNop())

	res, err := im.ImportTable(context.Background(), "clientes")
	if err != nil {
		t.Fatalf("ImportTable: %v", err)
	}
	if res.DuplicateRows != 0 || res.Inserted != 2 {
		t.Fatalf("counters = %+v", res)
	}
}

func TestImportTableBatchFailureRetriesRows(t *testing.T) {
	t.Parallel()

	src := &fakeSource{sheets: map[string][]records.Raw{
		"clientes": {
			raw(2, "id_cliente", "C1", "nome_cliente", "Ana"),
			raw(3, "id_cliente", "C2", "nome_cliente", "Bruno"),
			raw(4, "id_cliente", "C3", "nome_cliente", "Carla"),
		},
	}}
	repo := &fakeRepo{
		failBatchCalls: map[int]bool{1: true},
		failOneKey:     "C2",
	}
	im := New(src, repo, schema.Default(), Config{Job: "test", BatchSize: 2}, zap.NewNop())

	res, err := im.ImportTable(context.Background(), "clientes")
	if err != nil {
		t.Fatalf("ImportTable: %v", err)
	}

	// Batch 1 (C1, C2) fails; C1 lands via retry, C2 is refused.
	// Batch 2 (C3) succeeds.
	if res.Inserted != 2 || res.InsertErrors != 1 {
		t.Fatalf("inserted = %d, insertErrors = %d", res.Inserted, res.InsertErrors)
	}
	if len(repo.oneCalls) != 1 {
		t.Fatalf("oneCalls = %v", repo.oneCalls)
	}

	// Single-row inserts carry only the columns that hold values.
	call := repo.oneCalls[0]
	if !reflect.DeepEqual(call.cols, []string{"id_cliente", "nome_cliente"}) {
		t.Fatalf("retry columns = %v", call.cols)
	}
	if !reflect.DeepEqual(call.row, []any{"C1", "Ana"}) {
		t.Fatalf("retry row = %v", call.row)
	}
}

func TestImportTableCacheLoadFailure(t *testing.T) {
	t.Parallel()

	src := &fakeSource{sheets: map[string][]records.Raw{
		"vendas": {
			raw(2, "id_venda", "V1", "id_cliente", "C1", "id_produto", "P1"),
		},
	}}
	cause := errors.New("connection reset")
	repo := &fakeRepo{keysErr: map[string]error{"clientes.id_cliente": cause}}
	im := New(src, repo, schema.Default(), Config{Job: "test"}, zap.NewNop())

	res, err := im.ImportTable(context.Background(), "vendas")
	if err == nil {
		t.Fatal("expected cache load failure")
	}
	var loadErr *fkcache.CacheLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("error = %v, want *fkcache.CacheLoadError", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not wrapped: %v", err)
	}
	// Validation already ran; the partial result keeps those counters.
	if res == nil || res.ValidRows != 1 {
		t.Fatalf("partial result = %+v", res)
	}
	if len(repo.cleared) != 0 {
		t.Fatalf("table cleared despite aborted import")
	}
}

func TestImportTableUnknownTable(t *testing.T) {
	t.Parallel()

	im := New(&fakeSource{}, &fakeRepo{}, schema.Default(), Config{}, zap.NewNop())
	_, err := im.ImportTable(context.Background(), "faturas")
	if !errors.Is(err, schema.ErrUnknownTable) {
		t.Fatalf("error = %v, want ErrUnknownTable", err)
	}
}

func TestRunContinuesAfterTableFailure(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		sheets: map[string][]records.Raw{
			"clientes": {raw(2, "id_cliente", "C1", "nome_cliente", "Ana")},
			"produtos": {raw(2, "id_produto", "P1", "nome_produto", "Caneta", "preco_atual", "2,50")},
			"preco_competidores": {
				raw(2, "id_produto", "P1", "nome_concorrente", "Loja X", "preco_concorrente", "2,40"),
			},
			"vendas": {
				raw(2, "id_venda", "V1", "id_cliente", "C1", "id_produto", "P1", "quantidade", "1", "preco_unitario", "2,50"),
			},
		},
		errs: map[string]error{"produtos": errors.New("sheet service unavailable")},
	}
	repo := &fakeRepo{keys: map[string][]string{
		"clientes.id_cliente": {"C1"},
		"produtos.id_produto": {"P1"},
	}}
	im := New(src, repo, schema.Default(), Config{Job: "test"}, zap.NewNop())

	results, err := im.Run(context.Background())
	if err == nil {
		t.Fatal("expected joined error from failed table")
	}
	if !strings.Contains(err.Error(), "produtos") {
		t.Fatalf("error should name the failed table: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("results = %d, want 4 (failed table included)", len(results))
	}

	order := make([]string, len(results))
	for i, r := range results {
		order[i] = r.Table
	}
	want := []string{"clientes", "produtos", "preco_competidores", "vendas"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}

	// The failure did not stop the dependent tables.
	if results[3].Inserted != 1 {
		t.Fatalf("vendas inserted = %d, want 1", results[3].Inserted)
	}
}

func TestRunTableSubsetKeepsDependencyOrder(t *testing.T) {
	t.Parallel()

	src := &fakeSource{sheets: map[string][]records.Raw{
		"clientes": {raw(2, "id_cliente", "C1", "nome_cliente", "Ana")},
		"vendas": {
			raw(2, "id_venda", "V1", "id_cliente", "C1", "quantidade", "1"),
		},
	}}
	repo := &fakeRepo{keys: map[string][]string{
		"clientes.id_cliente": {"C1"},
		"produtos.id_produto": {},
	}}
	im := New(src, repo, schema.Default(), Config{Job: "test", Tables: []string{"vendas", "clientes"}}, zap.NewNop())

	results, err := im.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 || results[0].Table != "clientes" || results[1].Table != "vendas" {
		t.Fatalf("results = %+v", results)
	}
}

func TestRunUnknownTableInSubset(t *testing.T) {
	t.Parallel()

	im := New(&fakeSource{}, &fakeRepo{}, schema.Default(), Config{Tables: []string{"faturas"}}, zap.NewNop())
	_, err := im.Run(context.Background())
	if !errors.Is(err, schema.ErrUnknownTable) {
		t.Fatalf("error = %v, want ErrUnknownTable", err)
	}
}

/*
BenchmarkImportTable runs the full single-table pipeline in memory:
validation, referential filtering, and batch assembly against fakes, so
the number reflects the transform hot path rather than driver I/O.

Run with:

	go test -run=^$ -bench ^BenchmarkImportTable$ ./internal/importer
*/
func BenchmarkImportTable(b *testing.B) {
	const n = 2000
	rows := make([]records.Raw, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, records.Raw{Row: i + 2, Fields: map[string]string{
			"id_venda":       "sal_" + strconv.Itoa(i),
			"data_venda":     "15/01/2025",
			"id_cliente":     "C1",
			"id_produto":     "P1",
			"canal_venda":    "ecommerce",
			"quantidade":     "2",
			"preco_unitario": "R$ 89,90",
		}})
	}
	src := &fakeSource{sheets: map[string][]records.Raw{"vendas": rows}}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		repo := &fakeRepo{keys: map[string][]string{
			"clientes.id_cliente": {"C1"},
			"produtos.id_produto": {"P1"},
		}}
		imp := New(src, repo, schema.Default(), Config{Job: "bench"}, nil)
		res, err := imp.ImportTable(context.Background(), "vendas")
		if err != nil {
			b.Fatal(err)
		}
		if res.Inserted != n {
			b.Fatalf("inserted %d, want %d", res.Inserted, n)
		}
	}
}
