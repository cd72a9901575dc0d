package fkcache

import (
	"fmt"

	"sheetsync/internal/schema"
	"sheetsync/pkg/records"
)

// Filter drops records whose foreign key values are absent from the
// caches. A nil or blank value passes (nullable reference). Every FK
// column is checked so a record with two bad references reports both,
// but the record itself is dropped only once.
func Filter(recs []records.Cleaned, t *schema.Table, caches map[string]Set) ([]records.Cleaned, []records.ValidationError) {
	if !t.HasForeignKeys() {
		return recs, nil
	}
	valid := make([]records.Cleaned, 0, len(recs))
	var errs []records.ValidationError
	for _, rec := range recs {
		ok := true
		for _, col := range t.FKColumns() {
			v, present := rec.Fields[col]
			if !present || v == nil {
				continue
			}
			key := fmt.Sprint(v)
			if key == "" || caches[col].Has(key) {
				continue
			}
			ok = false
			errs = append(errs, records.ValidationError{
				Row:    rec.Row,
				Field:  col,
				Reason: records.ReasonFKNotFound,
				Value:  key,
			})
		}
		if ok {
			valid = append(valid, rec)
		}
	}
	return valid, errs
}
