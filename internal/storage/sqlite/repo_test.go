package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"

	"sheetsync/internal/schema"
	"sheetsync/internal/storage"
)

// newTestRepo opens a throwaway file-backed database and applies the
// default schema.
func newTestRepo(tb testing.TB) *Repository {
	tb.Helper()
	dsn := filepath.Join(tb.TempDir(), "test.db")
	r, closeFn, err := NewRepository(context.Background(), Config{DSN: dsn})
	if err != nil {
		tb.Fatalf("NewRepository: %v", err)
	}
	tb.Cleanup(closeFn)
	if err := ensureSchema(context.Background(), &wrappedRepo{Repository: r}, schema.Default()); err != nil {
		tb.Fatalf("ensureSchema: %v", err)
	}
	return r
}

var clienteCols = []string{"id_cliente", "nome_cliente", "estado", "pais", "data_cadastro"}

func TestRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	rows := [][]any{
		{"C1", "Ana", "SP", "Brasil", "2025-01-15"},
		{"C2", "Bruno", nil, nil, nil},
	}
	n, err := r.InsertBatch(ctx, "clientes", clienteCols, rows)
	if err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}
	if n != 2 {
		t.Fatalf("inserted = %d, want 2", n)
	}

	if err := r.InsertOne(ctx, "clientes", clienteCols, []any{"C3", "Carla", "RJ", "Brasil", nil}); err != nil {
		t.Fatalf("InsertOne: %v", err)
	}

	keys, err := r.ListKeys(ctx, "clientes", "id_cliente")
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"C1", "C2", "C3"}) {
		t.Fatalf("keys = %v", keys)
	}

	// NULL values are excluded from key listings.
	estados, err := r.ListKeys(ctx, "clientes", "estado")
	if err != nil {
		t.Fatalf("ListKeys estado: %v", err)
	}
	if !reflect.DeepEqual(estados, []string{"SP", "RJ"}) {
		t.Fatalf("estados = %v", estados)
	}

	if err := r.Clear(ctx, "clientes"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	keys, err = r.ListKeys(ctx, "clientes", "id_cliente")
	if err != nil {
		t.Fatalf("ListKeys after clear: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("keys after clear = %v", keys)
	}
}

func TestInsertBatchAllOrNothing(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	// Second row violates the primary key; the whole batch must roll
	// back.
	rows := [][]any{
		{"C1", "Ana", nil, nil, nil},
		{"C1", "Dup", nil, nil, nil},
	}
	if _, err := r.InsertBatch(ctx, "clientes", clienteCols, rows); err == nil {
		t.Fatal("expected primary key violation")
	}

	keys, err := r.ListKeys(ctx, "clientes", "id_cliente")
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(keys) != 0 {
		t.Fatalf("failed batch left rows behind: %v", keys)
	}
}

func TestInsertBatchWidthMismatch(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	_, err := r.InsertBatch(context.Background(), "clientes", clienteCols, [][]any{{"C1"}})
	if err == nil || !strings.Contains(err.Error(), "length") {
		t.Fatalf("err = %v", err)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()

	cols := []string{"id_venda", "data_venda", "id_cliente", "id_produto", "canal_venda", "quantidade", "preco_unitario"}

	// Nullable references are fine.
	if err := r.InsertOne(ctx, "vendas", cols, []any{"V1", nil, nil, nil, "ecommerce", int64(1), 9.9}); err != nil {
		t.Fatalf("InsertOne nullable FK: %v", err)
	}
	// A dangling reference is rejected by the database itself.
	if err := r.InsertOne(ctx, "vendas", cols, []any{"V2", nil, "C404", nil, "ecommerce", int64(1), 9.9}); err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestExecBlankStatement(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	if err := r.Exec(context.Background(), "   "); err != nil {
		t.Fatalf("Exec blank: %v", err)
	}
}

func TestFactoryRegistration(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "factory.db")
	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("storage.New: %v", err)
	}
	defer repo.Close()

	if err := storage.EnsureSchema(context.Background(), "sqlite", repo, schema.Default()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := repo.InsertOne(context.Background(), "produtos",
		[]string{"id_produto", "nome_produto", "categoria", "marca", "preco_atual", "data_criacao"},
		[]any{"P1", "Caneta", "Papelaria", nil, 3.5, "2025-02-01"}); err != nil {
		t.Fatalf("InsertOne: %v", err)
	}
	keys, err := repo.ListKeys(context.Background(), "produtos", "id_produto")
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{"P1"}) {
		t.Fatalf("keys = %v", keys)
	}
}

func BenchmarkInsertBatch(b *testing.B) {
	r := newTestRepo(b)
	ctx := context.Background()

	const batch = 256
	rows := make([][]any, batch)
	for i := 0; i < batch; i++ {
		rows[i] = []any{nil, "cliente", "SP", "Brasil", "2025-01-01"}
	}
	// Unique ids per run to avoid PK collisions.
	next := 0

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for j := range rows {
			rows[j][0] = "bench_" + strconv.Itoa(next)
			next++
		}
		if _, err := r.InsertBatch(ctx, "clientes", clienteCols, rows); err != nil {
			b.Fatal(err)
		}
	}
}
