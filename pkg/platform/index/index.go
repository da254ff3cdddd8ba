// Package index assigns positions in append-only child collections.
package index

import "sort"

// NextAvailable returns the lowest non-negative integer not present in
// indices. Child rows (lookups, comments, requests) are keyed by
// (jurisdiction, inmate id, index); indices are assigned once at creation
// and never reused, so gaps left by deletions are filled first.
func NextAvailable(indices []int) int {
	used := make([]int, len(indices))
	copy(used, indices)
	sort.Ints(used)

	next := 0
	for _, u := range used {
		if u > next {
			break
		}
		if u == next {
			next++
		}
	}
	return next
}
