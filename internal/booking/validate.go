package booking

import (
	"time"

	"github.com/civibook/civibook-go/internal/fielderr"
)

// Validation messages, keyed the same way server errors arrive after
// key translation so the UI has one error surface.
const (
	msgNameRequired           = "The event name is required."
	msgDescriptionRequired    = "The event description is required."
	msgCategoryRequired       = "The event category is required."
	msgBookingEndBeforeStart  = "The booking end must be after the booking start. For a single-day booking move the end time later."
	msgStartDateOutsideWindow = "The event start date must fall within the booking window."
	msgEndDateOutsideWindow   = "The event end date must fall within the booking window."
	msgEndDateBeforeStartDate = "The event end date must be after the event start date."
	msgNoDaysSelected         = "Select at least one day for the weekly schedule."
	msgPriceRequired          = "State the entry cost, or write free."
)

// Validate runs every local rule and returns a fresh error map; an
// empty map means the form may be submitted. Each rule targets its own
// field key and a field carries at most one message.
func (f *Form) Validate() fielderr.Errors {
	errs := fielderr.New()

	if f.Name == "" {
		errs.Set("eventName", msgNameRequired)
	}
	if f.Description == "" {
		errs.Set("eventDescription", msgDescriptionRequired)
	}
	if f.Category == "" {
		errs.Set("eventCategory", msgCategoryRequired)
	}

	if !f.BookingStart.Before(f.BookingEnd) {
		errs.Set("eventBookingEnd", msgBookingEndBeforeStart)
	}

	// Inverted dates are checked before the window rule so that when
	// both fire, the end-date field carries the ordering message.
	if f.StartDate.After(f.EndDate) {
		errs.Set("eventEndDate", msgEndDateBeforeStartDate)
	}

	// Both event dates must sit inside the booking window as
	// instants; a violation flags both date fields at once.
	if !withinWindow(f.StartDate, f.BookingStart, f.BookingEnd) ||
		!withinWindow(f.EndDate, f.BookingStart, f.BookingEnd) {
		errs.Set("eventStartDate", msgStartDateOutsideWindow)
		errs.Set("eventEndDate", msgEndDateOutsideWindow)
	}

	if len(f.selectedDays) == 0 {
		errs.Set("selectedDays", msgNoDaysSelected)
	}

	if f.Price == "" {
		errs.Set("startingPrice", msgPriceRequired)
	}

	return errs
}

func withinWindow(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
