// Package interval implements half-open time ranges and the set algebra the slot resolver is built on.
// Every function is pure and total: empty or inverted inputs produce empty results, never errors.
package interval

import (
	"sort"
	"time"
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// New builds an interval normalised to UTC.
func New(start, end time.Time) Interval {
	return Interval{Start: start.UTC(), End: end.UTC()}
}

// Empty reports whether the interval contains no instant.
func (i Interval) Empty() bool {
	return !i.End.After(i.Start)
}

// Duration returns the length of the interval, zero when empty.
func (i Interval) Duration() time.Duration {
	if i.Empty() {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Overlaps reports whether the two intervals share at least one instant. Touching ends do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	if i.Empty() || o.Empty() {
		return false
	}
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Contains reports whether o lies entirely inside i.
func (i Interval) Contains(o Interval) bool {
	if i.Empty() || o.Empty() {
		return false
	}
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

// Intersect returns the common part of a and b. The boolean is false when they do not overlap.
func Intersect(a, b Interval) (Interval, bool) {
	if !a.Overlaps(b) {
		return Interval{}, false
	}
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	return Interval{Start: start, End: end}, true
}

// Subtract removes every interval in bs from a and returns the ordered remainder.
func Subtract(a Interval, bs []Interval) []Interval {
	if a.Empty() {
		return nil
	}
	cuts := sorted(bs)
	var out []Interval
	cursor := a.Start
	for _, b := range cuts {
		if !b.Overlaps(Interval{Start: cursor, End: a.End}) {
			if !b.Start.Before(a.End) {
				break
			}
			continue
		}
		if b.Start.After(cursor) {
			out = append(out, Interval{Start: cursor, End: b.Start})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
		if !cursor.Before(a.End) {
			return out
		}
	}
	if cursor.Before(a.End) {
		out = append(out, Interval{Start: cursor, End: a.End})
	}
	return out
}

// Union sorts xs and merges overlapping or adjacent intervals. Empty intervals are dropped.
func Union(xs []Interval) []Interval {
	in := sorted(xs)
	var out []Interval
	for _, x := range in {
		if n := len(out); n > 0 && !x.Start.After(out[n-1].End) {
			if x.End.After(out[n-1].End) {
				out[n-1].End = x.End
			}
			continue
		}
		out = append(out, x)
	}
	return out
}

// SubtractAll removes bs from the union of xs.
func SubtractAll(xs, bs []Interval) []Interval {
	var out []Interval
	for _, x := range Union(xs) {
		out = append(out, Subtract(x, bs)...)
	}
	return out
}

// Clip restricts every interval to the window, dropping what falls outside.
func Clip(xs []Interval, window Interval) []Interval {
	var out []Interval
	for _, x := range xs {
		if in, ok := Intersect(x, window); ok {
			out = append(out, in)
		}
	}
	return out
}

// sorted returns a copy of xs without empty intervals, ordered by start then end.
func sorted(xs []Interval) []Interval {
	out := make([]Interval, 0, len(xs))
	for _, x := range xs {
		if !x.Empty() {
			out = append(out, x)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].End.Before(out[j].End)
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}
