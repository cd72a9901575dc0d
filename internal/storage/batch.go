package storage

// Batch is a half-open [Start, End) index range into a row slice.
type Batch struct {
	Start, End int
}

// Batches splits n rows into ranges of at most size rows each. A
// non-positive size yields one batch covering everything.
func Batches(n, size int) []Batch {
	if n <= 0 {
		return nil
	}
	if size <= 0 {
		size = n
	}
	out := make([]Batch, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, Batch{Start: start, End: end})
	}
	return out
}
