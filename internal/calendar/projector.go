// Package calendar projects multi-day events onto a day-grid calendar
// as single-day occurrences, the shape calendar widgets consume.
package calendar

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/civibook/civibook-go/internal/recurrence"
)

// Event is the minimal fetched-event shape the projector needs. Start
// and End are ISO-8601 instants as delivered by the API.
type Event struct {
	ID    int64
	Title string
	Start string
	End   string
}

// Occurrence marks one calendar day as covered by a source event.
// Occurrences are transient: regenerated on every projection, never
// stored.
type Occurrence struct {
	Day     time.Time
	Title   string
	EventID int64
}

// Projection is an immutable per-day index of occurrences.
type Projection struct {
	occurrences []Occurrence
}

// instant layouts accepted from the API; the backend emits RFC 3339
// with and without fractional seconds.
var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

func parseInstant(raw string) (time.Time, bool) {
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Project expands each event into one Occurrence per calendar day it
// spans, from its start day through its end day inclusive. Events with
// unparseable instants are skipped and logged; one bad event never
// aborts the projection. Given the same input the result is always the
// same.
func Project(events []Event) Projection {
	var occurrences []Occurrence

	for _, event := range events {
		start, ok := parseInstant(event.Start)
		if !ok {
			log.Warn().Int64("event_id", event.ID).Str("start", event.Start).
				Msg("Skipping event with unparseable start instant")
			continue
		}
		end, ok := parseInstant(event.End)
		if !ok {
			log.Warn().Int64("event_id", event.ID).Str("end", event.End).
				Msg("Skipping event with unparseable end instant")
			continue
		}

		endDay := recurrence.StartOfDay(end)
		for day := recurrence.StartOfDay(start); !day.After(endDay); day = day.AddDate(0, 0, 1) {
			occurrences = append(occurrences, Occurrence{
				Day:     day,
				Title:   event.Title,
				EventID: event.ID,
			})
		}
	}

	return Projection{occurrences: occurrences}
}

// Occurrences returns every projected occurrence in input order.
func (p Projection) Occurrences() []Occurrence {
	out := make([]Occurrence, len(p.occurrences))
	copy(out, p.occurrences)
	return out
}

// OccurrencesOn returns the occurrences that fall on the same calendar
// day as day.
func (p Projection) OccurrencesOn(day time.Time) []Occurrence {
	var matched []Occurrence
	for _, occ := range p.occurrences {
		if recurrence.SameDay(occ.Day, day) {
			matched = append(matched, occ)
		}
	}
	return matched
}

// IsBooked reports whether any occurrence covers the given day.
func (p Projection) IsBooked(day time.Time) bool {
	for _, occ := range p.occurrences {
		if recurrence.SameDay(occ.Day, day) {
			return true
		}
	}
	return false
}
