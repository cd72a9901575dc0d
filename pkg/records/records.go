// Package records defines the row representations and the validation-error
// vocabulary shared by every stage of the pipeline: the sheet readers produce
// Raw rows, the validator turns them into Cleaned rows, and both the
// validator and the referential filter report problems as ValidationError
// values. Errors here are data, not control flow; nothing in this package
// panics or returns Go errors for per-cell problems.
package records

import "fmt"

// Reason classifies why a cell or row was refused. The set is closed;
// consumers may switch on it.
type Reason string

const (
	// ReasonEmpty marks a value that is blank after cleanup.
	ReasonEmpty Reason = "empty"
	// ReasonNotNumeric marks a decimal cell with no parseable number.
	ReasonNotNumeric Reason = "not_numeric"
	// ReasonNegative marks a negative value in a column declared non-negative.
	ReasonNegative Reason = "negative_not_allowed"
	// ReasonNotInteger marks an integer cell with no digits.
	ReasonNotInteger Reason = "not_integer"
	// ReasonBadDate marks a date cell matching none of the accepted layouts.
	ReasonBadDate Reason = "unparseable_date"
	// ReasonRequiredMissing marks a required column that is empty or failed
	// normalization.
	ReasonRequiredMissing Reason = "required_missing"
	// ReasonFKNotFound marks a foreign-key value absent from the referenced
	// table.
	ReasonFKNotFound Reason = "fk_not_found"
)

// Raw is one spreadsheet row as read from the source, keyed by normalized
// header name. Row is the spreadsheet display row (header is row 1, so the
// first data row is 2); it exists purely so diagnostics can point an
// operator at the offending cell. Raw rows are never mutated after the
// reader hands them out.
type Raw struct {
	Row    int
	Fields map[string]string
}

// Cleaned is a validated row. Fields holds canonical typed values: string
// for text, float64 for decimals, int64 for integers, "YYYY-MM-DD" strings
// for dates, and nil for an optional column with no value. Every expected
// column of the table schema is present as a key.
type Cleaned struct {
	Row    int
	Fields map[string]any
}

// NonNilFields returns a copy of Fields without nil values, which is the
// shape the store expects on insert (absent column, not explicit NULL, so
// database-side defaults still apply).
func (c Cleaned) NonNilFields() map[string]any {
	out := make(map[string]any, len(c.Fields))
	for k, v := range c.Fields {
		if v != nil {
			out[k] = v
		}
	}
	return out
}

// ValidationError describes one refused cell or row. Value carries the raw
// text as it appeared in the sheet.
type ValidationError struct {
	Row    int
	Field  string
	Reason Reason
	Value  string
}

// Error renders the diagnostic in a form operators can act on.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("row %d: %s (value %q)", e.Row, e.Reason, e.Value)
	}
	return fmt.Sprintf("row %d: field %q: %s (value %q)", e.Row, e.Field, e.Reason, e.Value)
}
