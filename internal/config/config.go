// Package config defines the JSON run configuration shared by the sync
// binaries. A run config names the workbook source, the target store, and
// the runtime toggles; the file maps one-to-one onto the structs here.
//
// Loading goes through cleanenv, which layers environment variables over
// the file values (SHEETSYNC_DSN over storage.dsn, and so on). Config
// files can therefore be committed without credentials and pointed at a
// different store per host.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the top-level run configuration.
type Config struct {
	// Job labels the run in logs and metrics grouping.
	Job string `json:"job" env:"SHEETSYNC_JOB"`

	Source  Source  `json:"source"`
	Storage Storage `json:"storage"`
	Runtime Runtime `json:"runtime"`
	Metrics Metrics `json:"metrics"`
}

// Source identifies where the workbook data comes from.
type Source struct {
	// Kind selects the source implementation: "xlsx" or "csvdir".
	Kind string `json:"kind"`

	// Path is the workbook file (xlsx) or the directory of <table>.csv
	// files (csvdir).
	Path string `json:"path" env:"SHEETSYNC_SOURCE_PATH"`

	// URL, when set on an xlsx source, downloads the workbook instead of
	// reading Path.
	URL string `json:"url" env:"SHEETSYNC_SOURCE_URL"`

	// Delimiter is the csv field separator; empty means comma.
	Delimiter string `json:"delimiter"`
}

// Comma returns the csv delimiter as a rune, defaulting to ','.
func (s Source) Comma() rune {
	for _, r := range s.Delimiter {
		return r
	}
	return ','
}

// Storage identifies the target store.
type Storage struct {
	// Kind selects the registered backend: postgres, mysql, mssql, sqlite.
	Kind string `json:"kind" env:"SHEETSYNC_STORAGE_KIND"`

	// DSN is the backend connection string. Usually supplied through the
	// environment rather than the file.
	DSN string `json:"dsn" env:"SHEETSYNC_DSN"`

	// BatchSize is the number of rows per insert batch; 0 means the
	// importer default.
	BatchSize int `json:"batch_size" env:"SHEETSYNC_BATCH_SIZE"`

	// AutoCreate runs the schema bootstrap before importing.
	AutoCreate bool `json:"auto_create"`
}

// Runtime holds the per-run toggles.
type Runtime struct {
	// Dedupe drops rows repeating a primary-key value, keeping the last.
	Dedupe bool `json:"dedupe"`

	// DryRun validates and filters without touching the store.
	DryRun bool `json:"dry_run"`

	// Tables restricts the run to a subset; empty means every table.
	Tables []string `json:"tables"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is one of "none" (or empty), "prometheus", "datadog".
	Backend string `json:"backend" env:"SHEETSYNC_METRICS_BACKEND"`

	// PushgatewayURL is the Prometheus Pushgateway base URL; required for
	// the prometheus backend.
	PushgatewayURL string `json:"pushgateway_url" env:"SHEETSYNC_PUSHGATEWAY_URL"`

	// StatsdAddr is the dogstatsd address for the datadog backend; empty
	// lets the client fall back to its own defaults.
	StatsdAddr string `json:"statsd_addr" env:"SHEETSYNC_STATSD_ADDR"`
}

// Load reads the config file at path and applies the environment overlay.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return &cfg, nil
}

// FromEnv builds a Config from environment variables alone, for callers
// that run without a file.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config from environment: %w", err)
	}
	return &cfg, nil
}
