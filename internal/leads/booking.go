package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/leadsync/pkg/logging"
)

// BookingResult is returned to the form and to the calendar webhook.
type BookingResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BookingUpdater patches a lead's booking status on a single provider.
type BookingUpdater struct {
	updater StatusUpdater
	logger  *logging.Logger
}

// NewBookingUpdater builds an updater. A nil updater is allowed; every call
// then reports ErrUpdaterNotConfigured.
func NewBookingUpdater(updater StatusUpdater, logger *logging.Logger) *BookingUpdater {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingUpdater{updater: updater, logger: logger}
}

// UpdateStatus never fails loudly: errors and panics become a result.
func (u *BookingUpdater) UpdateStatus(ctx context.Context, email, status string) (res BookingResult) {
	defer func() {
		if r := recover(); r != nil {
			u.logger.Error("booking status update panicked", "panic", fmt.Sprint(r))
			res = BookingResult{Success: false, Error: fmt.Sprint(r)}
		}
	}()

	if u.updater == nil {
		return BookingResult{Success: false, Error: ErrUpdaterNotConfigured.Error()}
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return BookingResult{Success: false, Error: ErrMissingEmail.Error()}
	}
	st, err := ParseBookingStatus(status)
	if err != nil {
		return BookingResult{Success: false, Error: err.Error()}
	}

	if err := u.updater.UpdateStatus(ctx, email, st); err != nil {
		u.logger.Error("booking status update failed",
			"provider", u.updater.Name(),
			"status", string(st),
			"error", err,
		)
		return BookingResult{Success: false, Error: errorMessage(err)}
	}
	u.logger.Info("booking status updated", "provider", u.updater.Name(), "status", string(st))
	return BookingResult{Success: true}
}

func errorMessage(err error) string {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe.Message
	}
	return err.Error()
}
