package booking

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/civibook/civibook-go/internal/civibook"
	"github.com/civibook/civibook-go/internal/fielderr"
)

// ErrInvalidForm marks a submission stopped by local validation; the
// field messages are in Form.Errors and no request was sent.
var ErrInvalidForm = errors.New("form has validation errors")

// ErrSubmissionInFlight marks a re-entrant Submit while an earlier one
// is still running. The new call is ignored, never run concurrently.
var ErrSubmissionInFlight = errors.New("submission already in flight")

// Wire formats for the submission payload.
const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type submitState int

const (
	stateIdle submitState = iota
	stateSubmitting
	stateSubmitted
)

// Submitter is the slice of the API client Submit needs.
type Submitter interface {
	CreateEvent(ctx context.Context, submission civibook.EventSubmission) (string, *civibook.EventData, error)
}

// Submitted reports whether the form has been successfully submitted.
func (f *Form) Submitted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == stateSubmitted
}

// Submitting reports whether a submission is in flight.
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == stateSubmitting
}

// Submit validates the form and, if it passes, sends the booking
// request for the given venue. On local failure Form.Errors is
// populated and nothing is sent. Server 422 errors merge into the same
// error map through the shared key translation; 409 and transport
// failures set GeneralError and leave the form editable for retry.
func (f *Form) Submit(ctx context.Context, client Submitter, poiID string) error {
	f.mu.Lock()
	if f.state == stateSubmitting {
		f.mu.Unlock()
		return ErrSubmissionInFlight
	}
	f.state = stateSubmitting
	f.mu.Unlock()

	f.Errors = fielderr.New()
	f.GeneralError = ""
	f.SuccessMessage = ""

	if errs := f.Validate(); !errs.Empty() {
		f.Errors = errs
		f.GeneralError = "The form contains errors. Check your fields."
		f.setState(stateIdle)
		f.notify()
		return ErrInvalidForm
	}
	f.notify()

	message, _, err := client.CreateEvent(ctx, f.Submission(poiID))
	if err != nil {
		f.handleSubmitError(err)
		f.setState(stateIdle)
		f.notify()
		return err
	}

	f.SuccessMessage = message
	f.setState(stateSubmitted)
	f.notify()
	return nil
}

func (f *Form) setState(s submitState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *Form) handleSubmitError(err error) {
	var validationErr *civibook.ValidationError
	var conflictErr *civibook.ConflictError
	var statusErr *civibook.StatusError

	switch {
	case errors.As(err, &validationErr):
		f.Errors.MergeServer(validationErr.Errors)
		f.GeneralError = "Validation errors occurred. Check your data."
	case errors.As(err, &conflictErr):
		// Business-rule rejection, e.g. an overlapping booking.
		f.GeneralError = conflictErr.Message
	case errors.As(err, &statusErr):
		f.GeneralError = "Unexpected error. Try again."
	default:
		log.Warn().Err(err).Msg("Booking submission transport failure")
		f.GeneralError = "Failed to submit the form. Check your connection and try again."
	}
}

// Submission builds the wire payload from the current field values.
func (f *Form) Submission(poiID string) civibook.EventSubmission {
	days := f.selectedDays.Sorted()
	return civibook.EventSubmission{
		Name:           f.Name,
		Description:    f.Description,
		Category:       f.Category,
		EventStart:     f.BookingStart.Format(time.RFC3339),
		EventEnd:       f.BookingEnd.Format(time.RFC3339),
		EventStartDate: f.StartDate.Format(dateLayout),
		EventEndDate:   f.EndDate.Format(dateLayout),
		EventStartTime: f.StartTime.Format(timeLayout),
		EntryCost:      f.Price,
		RecurringDays:  civibook.RecurringDays(days),
		POIID:          poiID,
		Image:          f.Image,
	}
}
