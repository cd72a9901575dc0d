package importer

import "sheetsync/pkg/records"

// Result summarizes one table's import. Every row read lands in exactly
// one of the four row buckets, so
//
//	TotalRows = EmptyRows + DuplicateRows + ValidRows + InvalidRows
//
// always holds. FKErrors counts records rejected by the referential
// filter; the Errors list may be longer, since a record can carry one
// fk_not_found entry per bad column.
type Result struct {
	Table string

	TotalRows     int
	EmptyRows     int
	DuplicateRows int
	ValidRows     int
	InvalidRows   int
	FKErrors      int

	Inserted     int64
	InsertErrors int

	Errors []records.ValidationError
}

// Loadable returns how many records survived validation and the
// referential filter.
func (r *Result) Loadable() int {
	return r.ValidRows - r.FKErrors
}
