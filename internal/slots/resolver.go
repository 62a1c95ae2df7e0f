// Package slots turns a mentor's availability model and existing sessions into bookable start times.
package slots

import (
	"errors"
	"time"

	"github.com/noah-isme/mentor-booking-api/internal/availability"
	"github.com/noah-isme/mentor-booking-api/internal/interval"
	"github.com/noah-isme/mentor-booking-api/internal/models"
)

// ErrInvalidDuration is returned when the requested session length is not positive.
var ErrInvalidDuration = errors.New("duration must be positive")

// Input carries everything a resolution depends on. Now bounds the window from below; the resolver never
// reads the process clock.
type Input struct {
	From     time.Time
	To       time.Time
	Duration time.Duration
	// Step is the distance between candidate starts within a free interval. Zero steps by Duration.
	Step    time.Duration
	Now     time.Time
	MaxSpan time.Duration

	Rules      []models.AvailabilityRule
	Legacy     []models.LegacyAvailability
	Exceptions []models.AvailabilityException
	Sessions   []models.Session
	// Location interprets legacy rows and exceptions without their own timezone. Nil means UTC.
	Location *time.Location
}

// Result is the outcome of a resolution.
type Result struct {
	// Window is the effective window after clamping to Now and MaxSpan.
	Window interval.Interval
	Free   []interval.Interval
	Slots  []interval.Interval
}

// Resolve computes free intervals and candidate slots for the window.
func Resolve(in Input) (Result, error) {
	if in.Duration <= 0 {
		return Result{}, ErrInvalidDuration
	}
	step := in.Step
	if step <= 0 {
		step = in.Duration
	}
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	expansion, effective := Windows(in)
	if effective.Empty() {
		return Result{Window: effective}, nil
	}

	// Starts step from each unclipped free interval so the grid never depends on From or Now.
	free := FreeIntervals(in.Rules, in.Legacy, in.Exceptions, in.Sessions, expansion, loc)

	var slots []interval.Interval
	for _, f := range free {
		for start := f.Start; !start.Add(in.Duration).After(f.End); start = start.Add(step) {
			if start.Before(effective.Start) {
				continue
			}
			slots = append(slots, interval.Interval{Start: start, End: start.Add(in.Duration)})
		}
	}

	return Result{
		Window: effective,
		Free:   interval.Clip(free, effective),
		Slots:  slots,
	}, nil
}

// Windows returns the expansion window that resolution reads and the effective window that bounds the
// returned slots. The effective window starts no earlier than Now and is capped by MaxSpan. The expansion
// window reaches back to the local midnight before the effective start, so free intervals keep their real
// starts.
func Windows(in Input) (expansion, effective interval.Interval) {
	from, to := in.From.UTC(), in.To.UTC()
	if !in.Now.IsZero() && in.Now.After(from) {
		from = in.Now.UTC()
	}
	if in.MaxSpan > 0 && to.Sub(from) > in.MaxSpan {
		to = from.Add(in.MaxSpan)
	}
	effective = interval.Interval{Start: from, End: to}
	if effective.Empty() {
		return interval.Interval{Start: from, End: from}, effective
	}

	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}
	local := from.In(loc)
	anchor := time.Date(local.Year(), local.Month(), local.Day()-1, 0, 0, 0, 0, loc).UTC()
	return interval.Interval{Start: anchor, End: to}, effective
}

// FreeIntervals applies the availability precedence inside window: rule and legacy windows, minus exclusion
// rules, with override dates replaced by their override windows, minus unavailable exceptions, minus active
// sessions. The result is normalised and ordered.
func FreeIntervals(
	rules []models.AvailabilityRule,
	legacy []models.LegacyAvailability,
	exceptions []models.AvailabilityException,
	sessions []models.Session,
	window interval.Interval,
	loc *time.Location,
) []interval.Interval {
	if window.Empty() {
		return nil
	}

	var raw, excluded []interval.Interval
	for _, rule := range rules {
		if !rule.Active {
			continue
		}
		expanded := availability.RuleSource{Rule: rule}.Expand(window)
		if rule.Kind == models.RuleKindExclusion {
			excluded = append(excluded, expanded...)
			continue
		}
		raw = append(raw, expanded...)
	}
	for _, row := range legacy {
		raw = append(raw, availability.LegacySource{Row: row, Location: loc}.Expand(window)...)
	}
	free := interval.SubtractAll(raw, excluded)

	var overrideDays, overrideWindows, unavailable []interval.Interval
	for _, exc := range exceptions {
		switch exc.Kind {
		case models.ExceptionOverride:
			day, ok := availability.ExceptionDay(exc, loc)
			if !ok {
				continue
			}
			overrideDays = append(overrideDays, day)
			if in, ok := availability.ExceptionInterval(exc, loc); ok {
				overrideWindows = append(overrideWindows, in)
			}
		case models.ExceptionUnavailable:
			if in, ok := availability.ExceptionInterval(exc, loc); ok {
				unavailable = append(unavailable, in)
			}
		}
	}
	if len(overrideDays) > 0 {
		free = interval.SubtractAll(free, overrideDays)
		free = interval.Union(append(free, overrideWindows...))
	}
	free = interval.SubtractAll(free, unavailable)
	free = interval.SubtractAll(free, Busy(sessions))

	return interval.Clip(free, window)
}

// Busy returns the calendar footprint of the active sessions.
func Busy(sessions []models.Session) []interval.Interval {
	busy := make([]interval.Interval, 0, len(sessions))
	for _, s := range sessions {
		if !s.Status.IsActive() {
			continue
		}
		busy = append(busy, SessionInterval(s))
	}
	return busy
}

// SessionInterval is [scheduled_at, scheduled_at + duration).
func SessionInterval(s models.Session) interval.Interval {
	end := s.EndsAt
	if end.IsZero() {
		end = s.ScheduledAt.Add(s.Duration())
	}
	return interval.New(s.ScheduledAt, end)
}

// Covers reports whether candidate lies entirely inside one free interval.
func Covers(free []interval.Interval, candidate interval.Interval) bool {
	for _, f := range free {
		if f.Contains(candidate) {
			return true
		}
	}
	return false
}
