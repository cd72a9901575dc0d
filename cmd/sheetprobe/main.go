// Command sheetprobe profiles the worksheets of a workbook: row counts,
// per-column emptiness and distinct values, repeated rows, and a
// suggested declared type per column. Run it against a sheet before
// wiring the importer at it.
//
// Example:
//
//	sheetprobe -xlsx=dados_ecommerce.xlsx
//	sheetprobe -csvdir=sheets/ -tables=vendas -json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"sheetsync/internal/probe"
	"sheetsync/internal/sheet"
)

func main() {
	var (
		flagXLSX = flag.String(
			"xlsx",
			"",
			"path of the workbook to profile",
		)
		flagURL = flag.String(
			"url",
			"",
			"URL of a workbook to download and profile",
		)
		flagCSVDir = flag.String(
			"csvdir",
			"",
			"directory of <table>.csv files to profile",
		)
		flagDelimiter = flag.String(
			"delimiter",
			",",
			"csv field delimiter (single character)",
		)
		flagTables = flag.String(
			"tables",
			"",
			"comma-separated subset of tables; empty probes every table in the source",
		)
		flagWorkers = flag.Int(
			"workers",
			4,
			"concurrent table probes",
		)
		flagJSON = flag.Bool(
			"json",
			false,
			"print profiles as JSON instead of text",
		)
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	src, err := buildSource(ctx, *flagXLSX, *flagURL, *flagCSVDir, *flagDelimiter)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	var tables []string
	for _, t := range strings.Split(*flagTables, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tables = append(tables, t)
		}
	}

	profiles, err := probe.ProfileAll(ctx, src, tables, *flagWorkers)
	if err != nil {
		log.Fatalf("probe: %v", err)
	}

	if *flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(profiles); err != nil {
			log.Fatalf("encode profiles: %v", err)
		}
		return
	}
	for _, p := range profiles {
		probe.WriteText(os.Stdout, p)
	}
}

// buildSource constructs the sheet source from the mutually exclusive
// location flags.
func buildSource(ctx context.Context, xlsxPath, url, csvDir, delimiter string) (sheet.Source, error) {
	set := 0
	for _, v := range []string{xlsxPath, url, csvDir} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("exactly one of -xlsx, -url, -csvdir is required")
	}

	switch {
	case csvDir != "":
		comma := ','
		if r, _ := utf8.DecodeRuneInString(delimiter); r != utf8.RuneError && delimiter != "" {
			comma = r
		}
		return sheet.NewDir(csvDir, comma), nil
	case url != "":
		wb, err := sheet.NewFetcher(sheet.FetchConfig{}).FetchWorkbook(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("download workbook: %w", err)
		}
		return wb, nil
	default:
		return sheet.OpenWorkbook(xlsxPath)
	}
}

