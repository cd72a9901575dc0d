// Command sheetsync runs the workbook-to-database import: read every
// worksheet, validate and normalize the rows, drop records whose
// references resolve to nothing, then clear and reload the destination
// tables in dependency order.
//
// Example:
//
//	sheetsync -config=configs/sample.json
//	sheetsync -config=configs/sample.json -validate
//	sheetsync -config=configs/sample.json -tables=vendas -dry-run
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"sheetsync/internal/config"
	"sheetsync/internal/importer"
	"sheetsync/internal/metrics"
	"sheetsync/internal/metrics/datadog"
	"sheetsync/internal/metrics/prompush"
	"sheetsync/internal/schema"
	"sheetsync/internal/sheet"
	"sheetsync/internal/storage"

	// register all backends with the storage factory.
	// config specifies which to use but we need to build in support for all of them.
	_ "sheetsync/internal/storage/all"
)

const maxPrintedErrors = 10

func main() {
	var (
		cfgPath        string
		tablesFlg      string
		metricsFlg     string
		pushgatewayFlg string
		statsdFlg      string
		validate       bool
		dryRun         bool
	)

	flag.StringVar(&cfgPath, "config", "configs/sample.json", "import config JSON path")
	flag.StringVar(&tablesFlg, "tables", "", "comma-separated subset of tables to import (overrides config)")
	flag.StringVar(&metricsFlg, "metrics-backend", "", "metrics backend (prometheus, datadog, none; overrides config)")
	flag.StringVar(&pushgatewayFlg, "pushgateway-url", "", "Pushgateway base URL (overrides config)")
	flag.StringVar(&statsdFlg, "statsd-addr", "", "DogStatsD address (overrides config)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.BoolVar(&dryRun, "dry-run", false, "run the pipeline without writing to the database")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	// Flag overrides sit above both the file and the environment.
	if tablesFlg != "" {
		cfg.Runtime.Tables = splitTables(tablesFlg)
	}
	if dryRun {
		cfg.Runtime.DryRun = true
	}
	if metricsFlg != "" {
		cfg.Metrics.Backend = metricsFlg
	}
	if pushgatewayFlg != "" {
		cfg.Metrics.PushgatewayURL = pushgatewayFlg
	}
	if statsdFlg != "" {
		cfg.Metrics.StatsdAddr = statsdFlg
	}

	issues := config.Validate(*cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		fatalf("configuration is invalid: %v", cfgPath)
	}
	if validate {
		fmt.Printf("configuration is valid: %v\n", cfgPath)
		os.Exit(0)
	}

	logger, err := buildLogger(*verbose)
	if err != nil {
		fatalf("logger: %v", err)
	}
	logger = logger.With(
		zap.String("job", cfg.Job),
		zap.String("run_id", uuid.NewString()),
	)

	setupMetrics(cfg, logger)
	flush := func() {
		if err := metrics.Flush(); err != nil {
			logger.Warn("metrics flush", zap.Error(err))
		}
		_ = logger.Sync()
	}

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("import failed", zap.Error(err))
		flush()
		os.Exit(1)
	}
	flush()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	start := time.Now()

	source, err := buildSource(ctx, cfg.Source)
	if err != nil {
		return err
	}

	repo, err := storage.New(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DSN})
	if err != nil {
		return err
	}
	defer repo.Close()

	reg := schema.Default()
	if cfg.Storage.AutoCreate {
		if err := storage.EnsureSchema(ctx, cfg.Storage.Kind, repo, reg); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		logger.Info("schema ensured", zap.String("storage", cfg.Storage.Kind))
	}

	imp := importer.New(source, repo, reg, importer.Config{
		Job:       cfg.Job,
		BatchSize: cfg.Storage.BatchSize,
		Tables:    cfg.Runtime.Tables,
		Dedupe:    cfg.Runtime.Dedupe,
		DryRun:    cfg.Runtime.DryRun,
	}, logger)

	results, err := imp.Run(ctx)
	var rejected int
	for _, res := range results {
		printResult(res, cfg.Runtime.DryRun)
		rejected += res.InvalidRows + res.FKErrors + res.InsertErrors
	}
	fmt.Printf("done in %s\n", time.Since(start).Truncate(time.Millisecond))
	if err != nil {
		return err
	}
	if rejected > 0 {
		return fmt.Errorf("%d records rejected", rejected)
	}
	return nil
}

// printResult writes one table's outcome to stdout, diagnostics capped so
// a rotten sheet cannot flood the terminal.
func printResult(res importer.Result, dryRun bool) {
	fmt.Printf("%s: rows=%s empty=%s duplicates=%s valid=%s invalid=%s fk_missing=%s inserted=%s insert_errors=%s\n",
		res.Table,
		humanize.Comma(int64(res.TotalRows)),
		humanize.Comma(int64(res.EmptyRows)),
		humanize.Comma(int64(res.DuplicateRows)),
		humanize.Comma(int64(res.ValidRows)),
		humanize.Comma(int64(res.InvalidRows)),
		humanize.Comma(int64(res.FKErrors)),
		humanize.Comma(res.Inserted),
		humanize.Comma(int64(res.InsertErrors)),
	)
	if dryRun {
		fmt.Printf("  (dry run, nothing written)\n")
	}
	for i, verr := range res.Errors {
		if i == maxPrintedErrors {
			fmt.Printf("  ... and %d more\n", len(res.Errors)-maxPrintedErrors)
			break
		}
		fmt.Printf("  %s\n", verr.Error())
	}
}

// setupMetrics installs the configured metrics backend; validation has
// already vetted the config, so failures here only cost the metrics.
func setupMetrics(cfg *config.Config, logger *zap.Logger) {
	switch cfg.Metrics.Backend {
	case "prometheus":
		b, err := prompush.NewBackend(cfg.Job, cfg.Metrics.PushgatewayURL)
		if err != nil {
			logger.Warn("metrics: prometheus init failed, metrics disabled", zap.Error(err))
			return
		}
		logger.Info("metrics enabled",
			zap.String("backend", "prometheus"),
			zap.String("url", cfg.Metrics.PushgatewayURL),
		)
		metrics.SetBackend(b)

	case "datadog":
		addr := cfg.Metrics.StatsdAddr
		if addr == "" {
			addr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  "sheetsync.",
			GlobalTags: []string{"job:" + cfg.Job},
		})
		if err != nil {
			logger.Warn("metrics: datadog init failed, metrics disabled", zap.Error(err))
			return
		}
		logger.Info("metrics enabled",
			zap.String("backend", "datadog"),
			zap.String("addr", addr),
		)
		metrics.SetBackend(b)

	case "", "none":
		// metrics disabled; nop backend remains

	default:
		logger.Warn("metrics: unknown backend, metrics disabled",
			zap.String("backend", cfg.Metrics.Backend),
		)
	}
}

// buildSource constructs the sheet source the config points at. An xlsx
// source with both a URL and a path uses the URL; validation already
// warned about the ignored path.
func buildSource(ctx context.Context, src config.Source) (sheet.Source, error) {
	switch src.Kind {
	case "csvdir":
		return sheet.NewDir(src.Path, src.Comma()), nil
	case "xlsx":
		if src.URL != "" {
			wb, err := sheet.NewFetcher(sheet.FetchConfig{}).FetchWorkbook(ctx, src.URL)
			if err != nil {
				return nil, fmt.Errorf("download workbook: %w", err)
			}
			return wb, nil
		}
		return sheet.OpenWorkbook(src.Path)
	default:
		return nil, fmt.Errorf("unsupported source.kind %q", src.Kind)
	}
}

func buildLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func splitTables(csv string) []string {
	var out []string
	for _, t := range strings.Split(csv, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
