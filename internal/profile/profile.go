// Package profile holds the editable user profile form.
package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"

	"github.com/civibook/civibook-go/internal/civibook"
	"github.com/civibook/civibook-go/internal/fielderr"
)

// ErrInvalidProfile marks an update stopped by local validation.
var ErrInvalidProfile = errors.New("profile has validation errors")

// DefaultRegion is the fallback region for phone numbers entered
// without a country prefix.
const DefaultRegion = "GR"

// Updater is the slice of the API client the form needs.
type Updater interface {
	UpdateProfile(ctx context.Context, update civibook.ProfileUpdate) error
}

// Form is the profile editor state.
type Form struct {
	FirstName   string
	LastName    string
	Username    string
	Email       string
	PhoneNumber string
	Image       []byte

	Errors       fielderr.Errors
	GeneralError string
	Updated      bool

	onChange func()
}

// NewForm returns an empty profile form.
func NewForm() *Form {
	return &Form{Errors: fielderr.New()}
}

// OnChange registers a callback invoked after Save mutates state.
func (f *Form) OnChange(fn func()) {
	f.onChange = fn
}

func (f *Form) notify() {
	if f.onChange != nil {
		f.onChange()
	}
}

// Validate runs local checks and returns a fresh error map. The
// backend re-validates authoritatively; this only catches what a round
// trip shouldn't be needed for.
func (f *Form) Validate() fielderr.Errors {
	errs := fielderr.New()

	if strings.TrimSpace(f.FirstName) == "" {
		errs.Set("firstName", "The first name is required.")
	}
	if strings.TrimSpace(f.LastName) == "" {
		errs.Set("lastName", "The last name is required.")
	}
	if strings.TrimSpace(f.Username) == "" {
		errs.Set("username", "The username is required.")
	}
	if strings.TrimSpace(f.Email) == "" {
		errs.Set("email", "The email address is required.")
	} else if !strings.Contains(f.Email, "@") {
		errs.Set("email", "The email address is not valid.")
	}

	if phone := strings.TrimSpace(f.PhoneNumber); phone != "" {
		parsed, err := phonenumbers.Parse(phone, DefaultRegion)
		if err != nil || !phonenumbers.IsValidNumber(parsed) {
			errs.Set("phoneNumber", "The phone number is not valid.")
		}
	}

	return errs
}

// Save validates and submits the profile. Server 422 errors merge into
// Errors through the shared key translation; other failures set
// GeneralError and leave the form editable.
func (f *Form) Save(ctx context.Context, client Updater) error {
	f.Errors = fielderr.New()
	f.GeneralError = ""
	f.Updated = false

	if errs := f.Validate(); !errs.Empty() {
		f.Errors = errs
		f.notify()
		return ErrInvalidProfile
	}

	err := client.UpdateProfile(ctx, civibook.ProfileUpdate{
		FirstName:   f.FirstName,
		LastName:    f.LastName,
		Username:    f.Username,
		Email:       f.Email,
		PhoneNumber: f.PhoneNumber,
		Image:       f.Image,
	})
	if err != nil {
		var validationErr *civibook.ValidationError
		if errors.As(err, &validationErr) {
			f.Errors.MergeServer(validationErr.Errors)
			f.GeneralError = "Validation errors occurred. Check your data."
		} else {
			f.GeneralError = "Failed to update the profile. Try again."
		}
		f.notify()
		return err
	}

	f.Updated = true
	f.notify()
	return nil
}
