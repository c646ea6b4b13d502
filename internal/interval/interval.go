// Package interval provides the half-open time interval algebra used by
// availability checks and slot conflict detection.
package interval

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether the interval carries no bounds at all.
func (i Interval) IsZero() bool {
	return i.Start.IsZero() && i.End.IsZero()
}

// Duration returns the length of the interval. Negative for inverted bounds.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Contains reports whether other lies fully inside the receiver.
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

// Union merges a set of intervals into the minimal sorted list of
// non-overlapping intervals covering the same instants. Adjacent intervals
// (one ending exactly when the next starts) are merged into one. The result
// is independent of input order and idempotent.
func Union(windows []Interval) []Interval {
	if len(windows) == 0 {
		return nil
	}

	sorted := make([]Interval, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Interval{sorted[0]}
	for _, current := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !current.Start.After(last.End) {
			if current.End.After(last.End) {
				last.End = current.End
			}
			continue
		}
		merged = append(merged, current)
	}

	return merged
}

// ContainedIn reports whether query lies fully inside at least one of the
// merged intervals. The merged list is expected to be a Union result; a query
// spanning two adjacent entries of an unmerged list does not count as
// contained.
func ContainedIn(merged []Interval, query Interval) bool {
	for _, window := range merged {
		if window.Contains(query) {
			return true
		}
	}
	return false
}

// Overlaps reports whether slot interval a conflicts with another interval b.
// The two intervals overlap if any of the following holds:
//
//  1. a starts strictly inside b,
//  2. a ends strictly inside b,
//  3. a strictly contains b,
//  4. a and b have identical start and end.
//
// Intervals that merely touch (a.End == b.Start) do not overlap. Two
// identical intervals always do, even when zero-length.
func Overlaps(a, b Interval) bool {
	switch {
	case a.Start.After(b.Start) && a.Start.Before(b.End):
		return true
	case a.End.After(b.Start) && a.End.Before(b.End):
		return true
	case b.Start.After(a.Start) && b.End.Before(a.End):
		return true
	case a.Start.Equal(b.Start) && a.End.Equal(b.End):
		return true
	}
	return false
}
