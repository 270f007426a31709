package leads

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wolfman30/leadsync/pkg/logging"
)

func TestUpdateStatus_Success(t *testing.T) {
	up := &fakeStatusUpdater{}
	u := NewBookingUpdater(up, logging.New("error"))

	res := u.UpdateStatus(context.Background(), " jane@acme.com ", "booked")

	assert.Equal(t, BookingResult{Success: true}, res)
	assert.Equal(t, "jane@acme.com", up.email)
	assert.Equal(t, StatusBooked, up.status)
}

func TestUpdateStatus_NowMapsToPending(t *testing.T) {
	up := &fakeStatusUpdater{}
	u := NewBookingUpdater(up, logging.New("error"))
	res := u.UpdateStatus(context.Background(), "jane@acme.com", "now")
	assert.True(t, res.Success)
	assert.Equal(t, StatusPending, up.status)
}

func TestUpdateStatus_NotConfigured(t *testing.T) {
	u := NewBookingUpdater(nil, logging.New("error"))
	res := u.UpdateStatus(context.Background(), "jane@acme.com", "booked")
	assert.Equal(t, BookingResult{Success: false, Error: "API key missing"}, res)
}

func TestUpdateStatus_ProviderError(t *testing.T) {
	u := NewBookingUpdater(&fakeStatusUpdater{err: errors.New("brevo: status 404")}, logging.New("error"))
	res := u.UpdateStatus(context.Background(), "jane@acme.com", "later")
	assert.False(t, res.Success)
	assert.Equal(t, "brevo: status 404", res.Error)
}

func TestUpdateStatus_InvalidInput(t *testing.T) {
	u := NewBookingUpdater(&fakeStatusUpdater{}, logging.New("error"))
	assert.False(t, u.UpdateStatus(context.Background(), "", "booked").Success)
	res := u.UpdateStatus(context.Background(), "jane@acme.com", "teleported")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown booking status")
}

func TestUpdateStatus_PanicBecomesResult(t *testing.T) {
	u := NewBookingUpdater(&fakeStatusUpdater{panics: true}, logging.New("error"))
	res := u.UpdateStatus(context.Background(), "jane@acme.com", "booked")
	assert.False(t, res.Success)
	assert.Equal(t, "nil map", res.Error)
}
