package leads

import (
	"errors"
	"fmt"
)

const (
	// GenericFailureMessage is shown when no system of record accepted the lead.
	GenericFailureMessage = "Submission failed. Please check your internet connection."

	// PhoneConflictMessage is shown inline when a provider already holds the phone number.
	PhoneConflictMessage = "This phone number is already registered. Please use a different one."

	// FieldPhone names the phone input on the lead form.
	FieldPhone = "phone"
)

var (
	// ErrUnknownBookingStatus is returned for statuses outside pending/booked/later.
	ErrUnknownBookingStatus = errors.New("unknown booking status")

	// ErrMissingEmail is returned when a booking update has no email.
	ErrMissingEmail = errors.New("email is required")

	// ErrUpdaterNotConfigured is returned when no provider can take booking updates.
	ErrUpdaterNotConfigured = errors.New("API key missing")
)

// FieldError attributes a validation failure to one form input.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
