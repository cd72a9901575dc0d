// Static lint over a decoded Config. Checks here never touch the
// filesystem or the network; they catch the misconfigurations that would
// otherwise surface minutes into a run, and the CLI prints them before
// doing anything else.
package config

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"sheetsync/internal/schema"
)

// IssueSeverity grades a finding. Errors block the run; warnings print
// and proceed.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one finding. Path points into the config the way the file is
// nested ("storage.dsn", "runtime.tables[1]") so the operator can find
// the offending line.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error lets a single Issue travel as an error value.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error. Warnings alone do not
// block a run.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate lints cfg and returns every finding, grouped by config
// section. It never mutates cfg.
func Validate(cfg Config) []Issue {
	var issues []Issue

	if strings.TrimSpace(cfg.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it labels the run in logs and metrics",
		})
	}
	issues = append(issues, validateSource(cfg.Source)...)
	issues = append(issues, validateStorage(cfg.Storage)...)
	issues = append(issues, validateRuntime(cfg.Runtime)...)
	issues = append(issues, validateMetrics(cfg.Metrics)...)

	return issues
}

func validateSource(s Source) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "source.kind",
			Message:  "source.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"xlsx":   {},
		"csvdir": {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.kind",
			Message:  fmt.Sprintf("unknown source kind %q; ensure a matching implementation exists", s.Kind),
		})
	}

	switch s.Kind {
	case "xlsx":
		if strings.TrimSpace(s.Path) == "" && strings.TrimSpace(s.URL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.path",
				Message:  "xlsx source requires a path or a url",
			})
		}
		if strings.TrimSpace(s.Path) != "" && strings.TrimSpace(s.URL) != "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.path",
				Message:  "both path and url are set; the workbook is downloaded and path is ignored",
			})
		}
	case "csvdir":
		if strings.TrimSpace(s.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "source.path",
				Message:  "csvdir source requires a non-empty path",
			})
		}
		if strings.TrimSpace(s.URL) != "" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "source.url",
				Message:  "url is not supported for csvdir sources and is ignored",
			})
		}
	}

	if s.Delimiter != "" && utf8.RuneCountInString(s.Delimiter) > 1 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "source.delimiter",
			Message:  fmt.Sprintf("delimiter %q has more than one character; only the first is used", s.Delimiter),
		})
	}

	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if strings.TrimSpace(s.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.kind",
			Message:  "storage.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}

	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.dsn",
			Message:  "storage.dsn must not be empty (set it in the file or via SHEETSYNC_DSN)",
		})
	}
	if s.BatchSize < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.batch_size",
			Message:  "batch_size must not be negative; 0 selects the default",
		})
	}

	return issues
}

func validateRuntime(r Runtime) []Issue {
	var issues []Issue

	reg := schema.Default()
	for i, name := range r.Tables {
		if _, err := reg.Get(name); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("runtime.tables[%d]", i),
				Message:  fmt.Sprintf("unknown table %q; declared tables: %s", name, strings.Join(reg.Order(), ", ")),
			})
		}
	}

	return issues
}

func validateMetrics(m Metrics) []Issue {
	var issues []Issue

	switch m.Backend {
	case "", "none":
	case "prometheus":
		if strings.TrimSpace(m.PushgatewayURL) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "metrics.pushgateway_url",
				Message:  "prometheus backend requires metrics.pushgateway_url",
			})
		}
	case "datadog":
		// statsd_addr may stay empty; the client has its own defaults.
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "metrics.backend",
			Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", m.Backend),
		})
	}

	return issues
}
