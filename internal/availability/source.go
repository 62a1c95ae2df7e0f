package availability

import (
	"time"

	"github.com/noah-isme/mentor-booking-api/internal/interval"
	"github.com/noah-isme/mentor-booking-api/internal/models"
)

// Source produces the UTC intervals an availability record covers inside a window.
type Source interface {
	Expand(window interval.Interval) []interval.Interval
}

// RuleSource adapts an AvailabilityRule of either shape. The caller decides whether the intervals add or
// remove availability.
type RuleSource struct {
	Rule models.AvailabilityRule
}

// Expand implements Source.
func (s RuleSource) Expand(window interval.Interval) []interval.Interval {
	rule := s.Rule
	if rule.Kind == models.RuleKindOneShot || (rule.Kind == models.RuleKindExclusion && !rule.IsWeeklyShape()) {
		if rule.StartsAt == nil || rule.EndsAt == nil {
			return nil
		}
		if in, ok := interval.Intersect(interval.New(*rule.StartsAt, *rule.EndsAt), window); ok {
			return []interval.Interval{in}
		}
		return nil
	}
	if rule.DayOfWeek == nil || rule.StartTime == nil || rule.EndTime == nil {
		return nil
	}
	weekly, ok := weeklyRule(*rule.DayOfWeek, *rule.StartTime, *rule.EndTime)
	if !ok {
		return nil
	}
	return interval.ExpandWeekly(weekly, window.Start, window.End, Location(rule.Timezone, time.UTC))
}

// LegacySource adapts a LegacyAvailability row, interpreted in the mentor's profile timezone.
type LegacySource struct {
	Row      models.LegacyAvailability
	Location *time.Location
}

// Expand implements Source.
func (s LegacySource) Expand(window interval.Interval) []interval.Interval {
	weekly, ok := weeklyRule(s.Row.DayOfWeek, s.Row.StartTime, s.Row.EndTime)
	if !ok {
		return nil
	}
	return interval.ExpandWeekly(weekly, window.Start, window.End, s.Location)
}

// ExceptionInterval resolves the UTC range an exception governs: its window, or the whole local day when it
// has none. The boolean is false for malformed rows and windows that fall in a DST gap or fold.
func ExceptionInterval(exc models.AvailabilityException, fallback *time.Location) (interval.Interval, bool) {
	loc := fallback
	if exc.Timezone != nil && *exc.Timezone != "" {
		loc = Location(*exc.Timezone, fallback)
	}
	day, err := time.Parse(DateLayout, exc.Date)
	if err != nil {
		return interval.Interval{}, false
	}
	if exc.StartTime == nil || exc.EndTime == nil {
		return interval.DayBounds(day, loc), true
	}
	from, err := interval.ParseTimeOfDay(*exc.StartTime)
	if err != nil {
		return interval.Interval{}, false
	}
	to, err := interval.ParseTimeOfDay(*exc.EndTime)
	if err != nil || to <= from {
		return interval.Interval{}, false
	}
	start, ok := interval.LocalInstant(day, from, loc)
	if !ok {
		return interval.Interval{}, false
	}
	end, ok := interval.LocalInstant(day, to, loc)
	if !ok {
		return interval.Interval{}, false
	}
	return interval.New(start, end), true
}

// ExceptionDay returns the UTC image of the local date an exception is pinned to.
func ExceptionDay(exc models.AvailabilityException, fallback *time.Location) (interval.Interval, bool) {
	loc := fallback
	if exc.Timezone != nil && *exc.Timezone != "" {
		loc = Location(*exc.Timezone, fallback)
	}
	day, err := time.Parse(DateLayout, exc.Date)
	if err != nil {
		return interval.Interval{}, false
	}
	return interval.DayBounds(day, loc), true
}

// Location loads an IANA zone, returning fallback (or UTC) when name is empty or unknown.
func Location(name string, fallback *time.Location) *time.Location {
	if fallback == nil {
		fallback = time.UTC
	}
	if name == "" {
		return fallback
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallback
	}
	return loc
}

// ProfileLocation returns the mentor's stored timezone, or fallback when none is set.
func ProfileLocation(profile models.MentorProfile, fallback *time.Location) *time.Location {
	if profile.Timezone == nil {
		return Location("", fallback)
	}
	return Location(*profile.Timezone, fallback)
}

func weeklyRule(day int, start, end string) (interval.WeeklyRule, bool) {
	weekday, ok := interval.ISOWeekday(day)
	if !ok {
		return interval.WeeklyRule{}, false
	}
	from, err := interval.ParseTimeOfDay(start)
	if err != nil {
		return interval.WeeklyRule{}, false
	}
	to, err := interval.ParseTimeOfDay(end)
	if err != nil {
		return interval.WeeklyRule{}, false
	}
	return interval.WeeklyRule{Weekday: weekday, Start: from, End: to}, true
}
