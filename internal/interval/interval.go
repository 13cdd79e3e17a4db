// Package interval implements the pure interval arithmetic behind slot search:
// expanding weekly rules onto a date, merging and subtracting busy windows.
//
// All intervals passed to one call are expected to share a location.
package interval

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"chefslot/internal/model"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether i and o share any instant. Touching intervals do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return isOverlapping(i.Start, i.End, o.Start, o.End)
}

// Contains reports whether o lies fully inside i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.End.After(i.End)
}

func (i Interval) String() string {
	return i.Start.Format("15:04") + "-" + i.End.Format("15:04")
}

// ExpandWorkingRules returns the windows of the rules that apply to date's weekday,
// anchored on date in date.Location() and sorted by start.
func ExpandWorkingRules(rules []model.WorkingRule, date time.Time) ([]Interval, error) {
	weekday := int(date.Weekday())
	var result []Interval
	for _, r := range rules {
		if r.DayOfWeek != weekday {
			continue
		}
		start, err := OnDate(date, r.StartTime)
		if err != nil {
			return nil, fmt.Errorf("rule %d start: %w", r.ID, err)
		}
		end, err := OnDate(date, r.EndTime)
		if err != nil {
			return nil, fmt.Errorf("rule %d end: %w", r.ID, err)
		}
		if !end.After(start) {
			continue
		}
		result = append(result, Interval{Start: start, End: end})
	}
	sortByStart(result)
	return result, nil
}

// Merge sorts the intervals and coalesces those that overlap or touch.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.End.After(iv.Start) {
			sorted = append(sorted, iv)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sortByStart(sorted)

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Subtract removes every busy interval from the free intervals. Each free interval may
// survive whole, be split into several pieces, or disappear.
func Subtract(free, busy []Interval) []Interval {
	merged := Merge(busy)
	var result []Interval
	for _, f := range free {
		if !f.End.After(f.Start) {
			continue
		}
		cursor := f.Start
		for _, b := range merged {
			if !b.End.After(cursor) {
				continue
			}
			if !b.Start.Before(f.End) {
				break
			}
			if b.Start.After(cursor) {
				result = append(result, Interval{Start: cursor, End: b.Start})
			}
			if b.End.After(cursor) {
				cursor = b.End
			}
			if !cursor.Before(f.End) {
				break
			}
		}
		if cursor.Before(f.End) {
			result = append(result, Interval{Start: cursor, End: f.End})
		}
	}
	return result
}

// FilterByMinDuration drops intervals strictly shorter than min.
func FilterByMinDuration(intervals []Interval, min time.Duration) []Interval {
	var result []Interval
	for _, iv := range intervals {
		if iv.Duration() >= min {
			result = append(result, iv)
		}
	}
	return result
}

// BookingWindow returns the busy window reserved by a booking detail on its date:
// from travel start to meal start plus the rest buffer. A meal that starts before
// travel is rejected rather than producing an inverted window.
func BookingWindow(d model.BookingDetail, rest time.Duration, loc *time.Location) (Interval, error) {
	day := time.Date(d.Date.Year(), d.Date.Month(), d.Date.Day(), 0, 0, 0, 0, loc)
	start, err := OnDate(day, d.TravelStartTime)
	if err != nil {
		return Interval{}, fmt.Errorf("booking detail %d travel start: %w", d.ID, err)
	}
	meal, err := OnDate(day, d.MealStartTime)
	if err != nil {
		return Interval{}, fmt.Errorf("booking detail %d meal start: %w", d.ID, err)
	}
	if meal.Before(start) {
		return Interval{}, fmt.Errorf("booking detail %d: meal start %s is before travel start %s",
			d.ID, d.MealStartTime, d.TravelStartTime)
	}
	return Interval{Start: start, End: meal.Add(rest)}, nil
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time format: %q", s)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}

	return hour*60 + minute, nil
}

// FormatClock renders minutes since midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// OnDate anchors an "HH:MM" time of day on date's calendar day in date.Location().
func OnDate(date time.Time, clock string) (time.Time, error) {
	minutes, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), minutes/60, minutes%60, 0, 0, date.Location()), nil
}

func isOverlapping(start1, end1, start2, end2 time.Time) bool {
	return start1.Before(end2) && start2.Before(end1)
}

func sortByStart(intervals []Interval) {
	sort.Slice(intervals, func(i, j int) bool {
		if intervals[i].Start.Equal(intervals[j].Start) {
			return intervals[i].End.Before(intervals[j].End)
		}
		return intervals[i].Start.Before(intervals[j].Start)
	})
}
