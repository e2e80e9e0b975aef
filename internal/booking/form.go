// Package booking holds the venue booking form: its field state, the
// valid-day recurrence bookkeeping, local validation, and the
// submission state machine over the API client.
package booking

import (
	"sync"
	"time"

	"github.com/civibook/civibook-go/internal/fielderr"
	"github.com/civibook/civibook-go/internal/recurrence"
)

// Categories is the platform's event category catalogue, in display
// order.
var Categories = []string{
	"Arts", "Culture", "Entertainment", "Fitness & Wellness",
	"Health", "Environment", "Business", "Technology",
	"Community", "Civil Affairs", "Food & Dining", "Miscellaneous",
}

// Form is the booking request form for one venue. It is the sole
// owner of the selected-day set; every range change reconciles the
// selection synchronously, so SelectedDays ⊆ ValidDays holds at all
// times. Not safe for concurrent use except through Submit.
type Form struct {
	Name        string
	Description string
	Category    string

	// Booking window, with time-of-day.
	BookingStart time.Time
	BookingEnd   time.Time

	// Event date range, dates only.
	StartDate time.Time
	EndDate   time.Time

	// Daily start time of the recurring occurrences.
	StartTime time.Time

	Price string
	Image []byte

	validDays    recurrence.WeekdaySet
	selectedDays recurrence.WeekdaySet

	Errors         fielderr.Errors
	GeneralError   string
	SuccessMessage string

	onChange func()

	mu    sync.Mutex // guards state
	state submitState
}

// NewForm returns a form with all dates primed to now, so the valid
// day set is populated before the user touches anything.
func NewForm(now time.Time) *Form {
	f := &Form{
		BookingStart: now,
		BookingEnd:   now,
		StartDate:    now,
		EndDate:      now,
		StartTime:    now,
		selectedDays: recurrence.NewWeekdaySet(),
		Errors:       fielderr.New(),
	}
	f.recalculateValidDays()
	return f
}

// OnChange registers a callback invoked after every observable
// mutation, the hook a UI layer refreshes from.
func (f *Form) OnChange(fn func()) {
	f.onChange = fn
}

func (f *Form) notify() {
	if f.onChange != nil {
		f.onChange()
	}
}

// SetStartDate updates the event start date and reconciles the day
// selection against the new range before returning.
func (f *Form) SetStartDate(date time.Time) {
	f.StartDate = date
	f.recalculateValidDays()
	f.notify()
}

// SetEndDate updates the event end date and reconciles the day
// selection against the new range before returning.
func (f *Form) SetEndDate(date time.Time) {
	f.EndDate = date
	f.recalculateValidDays()
	f.notify()
}

// ValidDays returns the weekdays present in the current date range.
func (f *Form) ValidDays() recurrence.WeekdaySet {
	return f.validDays
}

// SelectedDays returns the user's current day selection.
func (f *Form) SelectedDays() recurrence.WeekdaySet {
	return f.selectedDays
}

// ToggleDay flips one weekday in the selection. Days outside the
// valid set cannot be selected.
func (f *Form) ToggleDay(day recurrence.Weekday) {
	if f.selectedDays.Contains(day) {
		delete(f.selectedDays, day)
		f.notify()
		return
	}
	if !f.validDays.Contains(day) {
		return
	}
	f.selectedDays[day] = struct{}{}
	f.notify()
}

func (f *Form) recalculateValidDays() {
	f.validDays = recurrence.ValidDays(f.StartDate, f.EndDate)
	f.selectedDays = recurrence.Reconcile(f.selectedDays, f.validDays)
}
