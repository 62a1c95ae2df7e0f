package interval

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time expressed in minutes after local midnight. 24:00 is allowed as an
// end-of-day marker.
type TimeOfDay int

// EndOfDay is the 24:00 marker.
const EndOfDay TimeOfDay = 24 * 60

// ParseTimeOfDay accepts "HH:MM" and the "HH:MM:SS" form Postgres returns for TIME columns.
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || len(parts[0]) != 2 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || len(parts[1]) != 2 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec != 0 {
			return 0, fmt.Errorf("seconds are not supported in %q", raw)
		}
	}
	tod := TimeOfDay(hour*60 + minute)
	if hour < 0 || tod > EndOfDay {
		return 0, fmt.Errorf("time of day %q out of range", raw)
	}
	return tod, nil
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// WeeklyRule is a recurring same-day window on one weekday, interpreted in a location.
type WeeklyRule struct {
	Weekday time.Weekday
	Start   TimeOfDay
	End     TimeOfDay
}

// ISOWeekday maps ISO-8601 day numbers (1=Monday … 7=Sunday) to time.Weekday.
func ISOWeekday(day int) (time.Weekday, bool) {
	if day < 1 || day > 7 {
		return 0, false
	}
	return time.Weekday(day % 7), true
}

// ExpandWeekly projects rule onto every matching local date that intersects [windowStart, windowEnd),
// converting wall-clock times to UTC with loc. Dates on which the start or end wall-clock time does not
// exist or is ambiguous (DST transitions) are skipped. Results are clipped to the window and ordered.
func ExpandWeekly(rule WeeklyRule, windowStart, windowEnd time.Time, loc *time.Location) []Interval {
	if loc == nil {
		loc = time.UTC
	}
	window := New(windowStart, windowEnd)
	if window.Empty() || rule.End <= rule.Start || rule.Start < 0 || rule.End > EndOfDay {
		return nil
	}

	first := CivilDate(windowStart.In(loc))
	last := CivilDate(windowEnd.In(loc))

	var out []Interval
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		if day.Weekday() != rule.Weekday {
			continue
		}
		start, ok := LocalInstant(day, rule.Start, loc)
		if !ok {
			continue
		}
		end, ok := LocalInstant(day, rule.End, loc)
		if !ok {
			continue
		}
		if in, ok := Intersect(New(start, end), window); ok {
			out = append(out, in)
		}
	}
	return out
}

// CivilDate strips t down to its calendar date, represented as midnight UTC so that date arithmetic
// is free of DST effects.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// LocalInstant resolves the wall-clock time tod on the civil date day in loc. It reports false when that
// wall-clock time falls in a DST gap or fold.
func LocalInstant(day time.Time, tod TimeOfDay, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.Date()
	if tod == EndOfDay {
		next := day.AddDate(0, 0, 1)
		return LocalInstant(next, 0, loc)
	}
	t := time.Date(y, m, d, tod.Hour(), tod.Minute(), 0, 0, loc)
	ty, tm, td := t.Date()
	if ty != y || tm != m || td != d || t.Hour() != tod.Hour() || t.Minute() != tod.Minute() {
		return time.Time{}, false
	}
	if ambiguous(t, loc) {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// DayBounds returns the UTC image of the local calendar day containing day (23, 24 or 25 hours long).
func DayBounds(day time.Time, loc *time.Location) Interval {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	return New(start, end)
}

// ambiguous reports whether the wall-clock reading of t also occurs at a second instant, which happens
// inside a DST fold. Neighbouring offsets are probed twelve hours either side.
func ambiguous(t time.Time, loc *time.Location) bool {
	_, offset := t.Zone()
	for _, probe := range []time.Time{t.Add(-12 * time.Hour), t.Add(12 * time.Hour)} {
		_, other := probe.In(loc).Zone()
		if other == offset {
			continue
		}
		alt := t.Add(time.Duration(offset-other) * time.Second).In(loc)
		if sameWallClock(alt, t) {
			return true
		}
	}
	return false
}

func sameWallClock(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd && a.Hour() == b.Hour() && a.Minute() == b.Minute() && a.Second() == b.Second()
}
