// Package recurrence computes which weekdays are selectable for a
// recurring event given its date range, and keeps a user's selection
// consistent when that range changes.
package recurrence

import (
	"sort"
	"time"
)

// Weekday is a canonical day-of-week index, Sunday=0 through
// Saturday=6. Presentation order (Monday first) is a separate,
// display-only transform; all computation uses this index.
type Weekday int

const (
	Sunday Weekday = iota
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var dayNames = [7]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// Valid reports whether d is within the 0..6 index range.
func (d Weekday) Valid() bool {
	return d >= Sunday && d <= Saturday
}

// Name returns the display name for d, or the empty string for an
// out-of-range index.
func (d Weekday) Name() string {
	if !d.Valid() {
		return ""
	}
	return dayNames[d]
}

// WeekdaySet is a set of canonical weekday indices.
type WeekdaySet map[Weekday]struct{}

// NewWeekdaySet builds a set from the given days, ignoring duplicates
// and out-of-range indices.
func NewWeekdaySet(days ...Weekday) WeekdaySet {
	set := make(WeekdaySet, len(days))
	for _, d := range days {
		if d.Valid() {
			set[d] = struct{}{}
		}
	}
	return set
}

// Contains reports whether d is in the set.
func (s WeekdaySet) Contains(d Weekday) bool {
	_, ok := s[d]
	return ok
}

// Sorted returns the set's days in ascending canonical order
// (Sunday first). The set itself carries no order.
func (s WeekdaySet) Sorted() []Weekday {
	days := make([]Weekday, 0, len(s))
	for d := range s {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// DisplayOrder returns the set's days ordered Monday first, Sunday
// last, for screens that render a Monday-based week. This never feeds
// back into computation.
func DisplayOrder(s WeekdaySet) []Weekday {
	days := s.Sorted()
	sort.SliceStable(days, func(i, j int) bool {
		return mondayFirst(days[i]) < mondayFirst(days[j])
	})
	return days
}

func mondayFirst(d Weekday) int {
	if d == Sunday {
		return 6
	}
	return int(d) - 1
}

// ValidDays returns every distinct weekday that occurs at least once
// between start and end inclusive, both normalized to midnight in
// their own location. An inverted range (start after end) yields the
// empty set rather than an error.
func ValidDays(start, end time.Time) WeekdaySet {
	set := make(WeekdaySet)

	startDay := StartOfDay(start)
	endDay := StartOfDay(end)
	if startDay.After(endDay) {
		return set
	}

	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		set[Weekday(day.Weekday())] = struct{}{}
	}
	return set
}

// Reconcile removes from selected any day absent from valid and
// returns the result. Callers must run this synchronously whenever the
// range that produced valid changes, so a selection never references a
// day outside the current range.
func Reconcile(selected, valid WeekdaySet) WeekdaySet {
	kept := make(WeekdaySet, len(selected))
	for d := range selected {
		if valid.Contains(d) {
			kept[d] = struct{}{}
		}
	}
	return kept
}

// StartOfDay strips the time-of-day component, keeping the location.
// Day arithmetic elsewhere relies on AddDate rather than 24h
// durations so DST transitions don't skip or repeat days.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
