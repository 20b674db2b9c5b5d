package models

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidInterval is returned when an interval with start >= end is
// handed to the interval algebra. It always indicates a caller bug.
var ErrInvalidInterval = errors.New("invalid interval: start must be before end")

// TimeInterval is a half-open time span [Start, End). Both bounds are
// absolute instants; zone conversion happens at the presentation boundary.
type TimeInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewTimeInterval builds a validated interval.
func NewTimeInterval(start, end time.Time) (TimeInterval, error) {
	if !start.Before(end) {
		return TimeInterval{}, fmt.Errorf("%w: [%s, %s)", ErrInvalidInterval,
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	return TimeInterval{Start: start, End: end}, nil
}

// Duration returns the span length.
func (iv TimeInterval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Contains reports whether t falls inside the half-open span.
func (iv TimeInterval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Equal compares both bounds as instants.
func (iv TimeInterval) Equal(other TimeInterval) bool {
	return iv.Start.Equal(other.Start) && iv.End.Equal(other.End)
}

// IntervalSet is an immutable, ordered sequence of disjoint intervals.
// Adjacent intervals are merged on construction, so two sets covering the
// same instants always compare equal. All operations return new sets.
type IntervalSet struct {
	items []TimeInterval
}

// NewIntervalSet normalizes the given intervals into a set: sorted by
// start, overlapping or touching intervals merged. Malformed intervals
// make the whole construction fail with ErrInvalidInterval.
func NewIntervalSet(intervals ...TimeInterval) (IntervalSet, error) {
	items := make([]TimeInterval, 0, len(intervals))
	for _, iv := range intervals {
		if !iv.Start.Before(iv.End) {
			return IntervalSet{}, fmt.Errorf("%w: [%s, %s)", ErrInvalidInterval,
				iv.Start.Format(time.RFC3339), iv.End.Format(time.RFC3339))
		}
		items = append(items, iv)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Start.Before(items[j].Start) })
	merged := items[:0]
	for _, iv := range items {
		if n := len(merged); n > 0 && !merged[n-1].End.Before(iv.Start) {
			if iv.End.After(merged[n-1].End) {
				merged[n-1].End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return IntervalSet{items: merged}, nil
}

// MustIntervalSet is NewIntervalSet for statically known-good inputs,
// mostly test fixtures.
func MustIntervalSet(intervals ...TimeInterval) IntervalSet {
	set, err := NewIntervalSet(intervals...)
	if err != nil {
		panic(err)
	}
	return set
}

// Intervals returns a copy of the underlying intervals in ascending order.
func (s IntervalSet) Intervals() []TimeInterval {
	out := make([]TimeInterval, len(s.items))
	copy(out, s.items)
	return out
}

// IsEmpty reports whether the set covers no time at all.
func (s IntervalSet) IsEmpty() bool {
	return len(s.items) == 0
}

// Len returns the number of disjoint intervals in the set.
func (s IntervalSet) Len() int {
	return len(s.items)
}

// Intersect returns the instants covered by both sets. Runs in O(n+m).
func (s IntervalSet) Intersect(other IntervalSet) IntervalSet {
	var out []TimeInterval
	i, j := 0, 0
	for i < len(s.items) && j < len(other.items) {
		a, b := s.items[i], other.items[j]
		start := a.Start
		if b.Start.After(start) {
			start = b.Start
		}
		end := a.End
		if b.End.Before(end) {
			end = b.End
		}
		if start.Before(end) {
			out = append(out, TimeInterval{Start: start, End: end})
		}
		if a.End.Before(b.End) {
			i++
		} else {
			j++
		}
	}
	return IntervalSet{items: out}
}

// Union returns the instants covered by either set. The empty set is the
// identity.
func (s IntervalSet) Union(other IntervalSet) IntervalSet {
	if len(s.items) == 0 {
		return other
	}
	if len(other.items) == 0 {
		return s
	}
	all := make([]TimeInterval, 0, len(s.items)+len(other.items))
	all = append(all, s.items...)
	all = append(all, other.items...)
	merged, _ := NewIntervalSet(all...)
	return merged
}

// Subtract returns the instants covered by s but not by other.
func (s IntervalSet) Subtract(other IntervalSet) IntervalSet {
	if len(s.items) == 0 || len(other.items) == 0 {
		return s
	}
	var out []TimeInterval
	j := 0
	for _, iv := range s.items {
		cursor := iv.Start
		for j < len(other.items) && !other.items[j].End.After(cursor) {
			j++
		}
		for k := j; k < len(other.items) && other.items[k].Start.Before(iv.End); k++ {
			hole := other.items[k]
			if hole.Start.After(cursor) {
				out = append(out, TimeInterval{Start: cursor, End: hole.Start})
			}
			if hole.End.After(cursor) {
				cursor = hole.End
			}
		}
		if cursor.Before(iv.End) {
			out = append(out, TimeInterval{Start: cursor, End: iv.End})
		}
	}
	return IntervalSet{items: out}
}

// IsExactly reports whether the set consists of exactly one interval equal
// to the given one. This is the "fully free" test used when validating that
// a combination covers a desired booking span with no gaps.
func (s IntervalSet) IsExactly(iv TimeInterval) bool {
	return len(s.items) == 1 && s.items[0].Equal(iv)
}

// Covers reports whether every instant of iv is contained in the set.
func (s IntervalSet) Covers(iv TimeInterval) bool {
	for _, item := range s.items {
		if !item.Start.After(iv.Start) && !item.End.Before(iv.End) {
			return true
		}
	}
	return false
}
