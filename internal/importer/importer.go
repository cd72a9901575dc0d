// Package importer orchestrates the per-table pipeline: read the sheet,
// optionally drop duplicate keys, validate rows, filter against the
// referenced tables' keys, then clear and reload the store in batches.
//
// The core is deliberately single-threaded; tables run in dependency
// order so key caches are always built against freshly loaded parents.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"sheetsync/internal/fkcache"
	"sheetsync/internal/metrics"
	"sheetsync/internal/schema"
	"sheetsync/internal/sheet"
	"sheetsync/internal/storage"
	"sheetsync/internal/validate"
	"sheetsync/pkg/records"
)

const defaultBatchSize = 500

// Config tunes a run. The zero value imports every registry table with
// the default batch size.
type Config struct {
	// Job identifies this run in metrics.
	Job string
	// BatchSize is the number of rows per insert batch (default 500).
	BatchSize int
	// Tables restricts the run to a subset of the registry; empty means
	// every table. Order is ignored; tables always run in dependency order.
	Tables []string
	// Dedupe drops rows repeating an earlier primary-key value, keeping
	// the bottom-most occurrence.
	Dedupe bool
	// DryRun validates and filters but never clears or inserts.
	DryRun bool
}

// Importer wires a sheet source to a storage repository.
type Importer struct {
	source sheet.Source
	repo   storage.Repository
	reg    *schema.Registry
	cfg    Config
	log    *zap.Logger
}

// New builds an Importer. A nil logger is replaced with a no-op one.
func New(source sheet.Source, repo storage.Repository, reg *schema.Registry, cfg Config, logger *zap.Logger) *Importer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{source: source, repo: repo, reg: reg, cfg: cfg, log: logger}
}

// ImportTable runs the pipeline for one table. Validation and referential
// problems are data, reported through the Result; the returned error is
// reserved for conditions that abort the table (unknown table, unreadable
// sheet, key-cache load failure, clear failure). Even then the Result
// carries whatever counters were reached.
//
// When no record survives the filters the table is left untouched: a
// broken sheet never wipes previously loaded data.
func (im *Importer) ImportTable(ctx context.Context, table string) (*Result, error) {
	res := &Result{Table: table}

	t, err := im.reg.Get(table)
	if err != nil {
		return res, err
	}
	log := im.log.With(zap.String("table", table))

	start := time.Now()
	raws, err := im.source.Read(ctx, table)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", table, err)
	}
	res.TotalRows = len(raws)

	if im.cfg.Dedupe && t.PrimaryKey != "" {
		raws, res.DuplicateRows = dedupeKeepLast(raws, t.PrimaryKey)
		if res.DuplicateRows > 0 {
			log.Info("duplicate keys dropped",
				zap.Int("count", res.DuplicateRows),
				zap.String("key", t.PrimaryKey))
		}
	}

	cleaned := make([]records.Cleaned, 0, len(raws))
	for _, raw := range raws {
		if validate.Blank(raw) {
			res.EmptyRows++
			continue
		}
		rec, errs := validate.Row(raw, t)
		res.Errors = append(res.Errors, errs...)
		if rec == nil {
			res.InvalidRows++
			continue
		}
		res.ValidRows++
		cleaned = append(cleaned, *rec)
	}
	log.Info("rows validated",
		zap.Int("total", res.TotalRows),
		zap.Int("valid", res.ValidRows),
		zap.Int("invalid", res.InvalidRows),
		zap.Int("empty", res.EmptyRows))

	caches, err := fkcache.BuildCaches(ctx, im.repo, t)
	if err != nil {
		return res, err
	}
	keep, fkErrs := fkcache.Filter(cleaned, t, caches)
	res.FKErrors = len(cleaned) - len(keep)
	res.Errors = append(res.Errors, fkErrs...)
	if res.FKErrors > 0 {
		log.Warn("records rejected by referential check", zap.Int("count", res.FKErrors))
	}

	if im.cfg.DryRun {
		log.Info("dry run; skipping clear and insert", zap.Int("would_insert", len(keep)))
		return res, nil
	}
	if len(keep) == 0 {
		log.Warn("no loadable records; table left untouched")
		return res, nil
	}

	if err := im.repo.Clear(ctx, table); err != nil {
		return res, fmt.Errorf("clear %s: %w", table, err)
	}
	im.insert(ctx, log, t, keep, res)

	log.Info("table imported",
		zap.Int64("inserted", res.Inserted),
		zap.Int("insert_errors", res.InsertErrors),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

// Run imports every requested table in dependency order. A fatal error
// in one table aborts that table only; the rest still run. The returned
// error joins the per-table failures.
func (im *Importer) Run(ctx context.Context) ([]Result, error) {
	tables, err := im.tables()
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(tables))
	var errs []error
	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		start := time.Now()
		res, err := im.ImportTable(ctx, table)
		metrics.RecordTable(im.cfg.Job, table, err, time.Since(start))
		recordRows(im.cfg.Job, res)
		results = append(results, *res)
		if err != nil {
			im.log.Error("table import failed", zap.String("table", table), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", table, err))
		}
	}
	return results, errors.Join(errs...)
}

// insert loads the records in batches. A failed batch inserts nothing,
// so each of its records is retried individually and only the rows the
// store truly refuses count as insert errors.
func (im *Importer) insert(ctx context.Context, log *zap.Logger, t *schema.Table, recs []records.Cleaned, res *Result) {
	start := time.Now()
	lastFlush := start
	batches := storage.Batches(len(recs), im.cfg.BatchSize)
	for i, b := range batches {
		chunk := recs[b.Start:b.End]
		rows := make([][]any, len(chunk))
		for j, rec := range chunk {
			rows[j] = rowValues(rec, t.Columns)
		}

		n, err := im.repo.InsertBatch(ctx, t.Name, t.Columns, rows)
		if err != nil {
			log.Warn("batch insert failed; retrying rows individually",
				zap.Int("batch", i+1),
				zap.Int("rows", len(chunk)),
				zap.Error(err))
			im.retryRows(ctx, log, t, chunk, res)
			continue
		}
		res.Inserted += n
		metrics.RecordBatches(im.cfg.Job, t.Name, 1)

		now := time.Now()
		sinceLast := now.Sub(lastFlush)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(n) / sinceLast.Seconds()
		}
		log.Debug("batch flushed",
			zap.Int("batch", i+1),
			zap.Int("batches", len(batches)),
			zap.Float64("rps", rps),
			zap.Int64("total_inserted", res.Inserted),
			zap.Duration("elapsed", now.Sub(start)))
		lastFlush = now
	}
}

// retryRows falls back to row-at-a-time inserts after a failed batch.
func (im *Importer) retryRows(ctx context.Context, log *zap.Logger, t *schema.Table, recs []records.Cleaned, res *Result) {
	for _, rec := range recs {
		cols, vals := insertableFields(rec, t.Columns)
		if err := im.repo.InsertOne(ctx, t.Name, cols, vals); err != nil {
			res.InsertErrors++
			log.Warn("row insert failed", zap.Int("row", rec.Row), zap.Error(err))
			continue
		}
		res.Inserted++
	}
}

// tables resolves the configured subset against the registry, defaulting
// to every declared table. The result is always in dependency order.
func (im *Importer) tables() ([]string, error) {
	if len(im.cfg.Tables) == 0 {
		return im.reg.Order(), nil
	}
	want := make(map[string]bool, len(im.cfg.Tables))
	for _, name := range im.cfg.Tables {
		if _, err := im.reg.Get(name); err != nil {
			return nil, err
		}
		want[name] = true
	}
	out := make([]string, 0, len(want))
	for _, name := range im.reg.Order() {
		if want[name] {
			out = append(out, name)
		}
	}
	return out, nil
}

// dedupeKeepLast drops rows whose primary-key value reappears further
// down, keeping the bottom-most occurrence (the sheet's latest edit).
// Rows with a blank key pass through; validation rejects them later.
func dedupeKeepLast(raws []records.Raw, pk string) ([]records.Raw, int) {
	last := make(map[string]int, len(raws))
	for i, raw := range raws {
		if k := strings.TrimSpace(validate.Value(raw.Fields, pk)); k != "" {
			last[k] = i
		}
	}

	out := make([]records.Raw, 0, len(raws))
	dropped := 0
	for i, raw := range raws {
		k := strings.TrimSpace(validate.Value(raw.Fields, pk))
		if k != "" && last[k] != i {
			dropped++
			continue
		}
		out = append(out, raw)
	}
	return out, dropped
}

// rowValues aligns a record's fields to the declared column order; nil
// stays nil and becomes SQL NULL.
func rowValues(rec records.Cleaned, columns []string) []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		out[i] = rec.Fields[c]
	}
	return out
}

// insertableFields returns the non-nil columns and values of a record in
// declared order, the shape InsertOne expects.
func insertableFields(rec records.Cleaned, columns []string) ([]string, []any) {
	fields := rec.NonNilFields()
	cols := make([]string, 0, len(fields))
	vals := make([]any, 0, len(fields))
	for _, c := range columns {
		if v, ok := fields[c]; ok {
			cols = append(cols, c)
			vals = append(vals, v)
		}
	}
	return cols, vals
}

// recordRows forwards the result counters to the metrics backend.
func recordRows(job string, res *Result) {
	metrics.RecordRows(job, res.Table, "read", int64(res.TotalRows))
	metrics.RecordRows(job, res.Table, "empty", int64(res.EmptyRows))
	metrics.RecordRows(job, res.Table, "duplicate", int64(res.DuplicateRows))
	metrics.RecordRows(job, res.Table, "valid", int64(res.ValidRows))
	metrics.RecordRows(job, res.Table, "invalid", int64(res.InvalidRows))
	metrics.RecordRows(job, res.Table, "fk_rejected", int64(res.FKErrors))
	metrics.RecordRows(job, res.Table, "inserted", res.Inserted)
	metrics.RecordRows(job, res.Table, "insert_errors", int64(res.InsertErrors))
}
