package leads

import (
	"context"
	"fmt"
	"strings"
)

// BookingStatus tracks whether a lead has scheduled a call.
type BookingStatus string

const (
	StatusPending BookingStatus = "pending"
	StatusBooked  BookingStatus = "booked"
	StatusLater   BookingStatus = "later"
)

// ParseBookingStatus normalizes a status string. Empty means pending, and the
// form's "now" choice is also pending until the calendar confirms a booking.
func ParseBookingStatus(raw string) (BookingStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "pending", "now":
		return StatusPending, nil
	case "booked":
		return StatusBooked, nil
	case "later":
		return StatusLater, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBookingStatus, raw)
	}
}

// LeadRecord is a validated form submission. Build it with Validator.Build;
// it is passed by value and never modified afterwards.
type LeadRecord struct {
	FullName          string
	Email             string
	Phone             string
	PhoneE164         string // empty when the number could not be parsed
	Company           string
	InterestedService string
	BookingStatus     BookingStatus
}

// FirstName returns the first word of the full name.
func (l LeadRecord) FirstName() string {
	first, _ := l.splitName()
	return first
}

// LastName returns everything after the first word, or "-" for single-word names.
func (l LeadRecord) LastName() string {
	_, last := l.splitName()
	return last
}

func (l LeadRecord) splitName() (string, string) {
	parts := strings.Fields(l.FullName)
	if len(parts) == 0 {
		return "", "-"
	}
	if len(parts) == 1 {
		return parts[0], "-"
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// Notes composes the free-text notes field used by webhook-style CRMs.
func (l LeadRecord) Notes() string {
	notes := "Interested in: " + l.InterestedService
	if l.BookingStatus != "" {
		notes += "\nBooking Status: " + string(l.BookingStatus)
	}
	return notes
}

// SubmissionOutcome is the single result handed back to the form.
type SubmissionOutcome struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Field   string `json:"field,omitempty"`
}

// ProviderResult is one adapter's normalized outcome.
type ProviderResult struct {
	Provider        string
	OK              bool
	Skipped         bool
	Err             error
	ConflictField   string
	ConflictMessage string
}

// Status labels the result for logs and metrics.
func (r ProviderResult) Status() string {
	switch {
	case r.Skipped:
		return "skipped"
	case r.OK:
		return "ok"
	case r.ConflictField != "":
		return "conflict"
	default:
		return "error"
	}
}

// Failed builds a failure result carrying err for logging only.
func Failed(provider string, err error) ProviderResult {
	return ProviderResult{Provider: provider, Err: err}
}

// Conflict builds a field-level conflict result.
func Conflict(provider, field, message string) ProviderResult {
	return ProviderResult{Provider: provider, ConflictField: field, ConflictMessage: message}
}

// Succeeded builds an ok result.
func Succeeded(provider string) ProviderResult {
	return ProviderResult{Provider: provider, OK: true}
}

// Adapter translates a lead into one provider's API and normalizes the reply.
// Implementations must never panic or block past their own retry budget.
type Adapter interface {
	Name() string
	Send(ctx context.Context, lead LeadRecord) ProviderResult
}

// StatusUpdater patches the booking status of an existing contact.
type StatusUpdater interface {
	Name() string
	UpdateStatus(ctx context.Context, email string, status BookingStatus) error
}

// Confirmation sends the post-submission confirmation email.
type Confirmation interface {
	Confirm(ctx context.Context, lead LeadRecord) error
}

// BackgroundRunner runs fire-and-forget work that the caller never awaits.
type BackgroundRunner interface {
	Go(ctx context.Context, name string, fn func(ctx context.Context) error)
}
