package concurrence

import "fmt"

// Priority identifies a data-source strategy in the fallback chain.
type Priority string

// The five priority levels. Product results always carry
// PriorityFreshProductData; competitor attempts walk the other four in the
// order the active strategy dictates.
const (
	PriorityFreshProductData Priority = "fresh_product_data"
	PriorityFreshSnapshots   Priority = "fresh_competitor_snapshots"
	PriorityFastCollection   Priority = "fast_competitor_collection"
	PriorityExistingSnapshot Priority = "existing_snapshots"
	PriorityBasicMetadata    Priority = "basic_competitor_metadata"
)

// DefaultPriorityOrder is the full competitor fallback chain, strongest
// source first.
var DefaultPriorityOrder = []Priority{
	PriorityFreshSnapshots,
	PriorityFastCollection,
	PriorityExistingSnapshot,
	PriorityBasicMetadata,
}

// ParsePriority validates a priority name.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case PriorityFreshProductData, PriorityFreshSnapshots, PriorityFastCollection,
		PriorityExistingSnapshot, PriorityBasicMetadata:
		return Priority(s), nil
	}
	return "", fmt.Errorf("%w: unknown priority %q", ErrInvalidInput, s)
}

// newBreakdown pre-seeds stats for every competitor priority level so the
// report always carries all levels, attempted or not.
func newBreakdown() map[Priority]*PriorityStats {
	return map[Priority]*PriorityStats{
		PriorityFreshSnapshots:   {},
		PriorityFastCollection:   {},
		PriorityExistingSnapshot: {},
		PriorityBasicMetadata:    {},
	}
}
