package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/leadsync/internal/leads"
	"github.com/wolfman30/leadsync/internal/resilient"
	"github.com/wolfman30/leadsync/pkg/logging"
)

var fastPolicy = resilient.Policy{MaxRetries: 1, Timeout: time.Second, Backoff: 5 * time.Millisecond}

func newTestAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	logger := logging.New("error")
	return NewAdapter(Config{WebhookURL: ts.URL, Source: "Lead Form", Policy: fastPolicy}, resilient.NewClient(logger), logger)
}

func testLead() leads.LeadRecord {
	return leads.LeadRecord{
		FullName:          "Jane Ruiz",
		Email:             "jane@acme.com",
		Phone:             "9171234567",
		Company:           "Acme Co",
		InterestedService: "Business Automation",
		BookingStatus:     leads.StatusPending,
	}
}

func TestNewAdapter_NilWithoutURL(t *testing.T) {
	assert.Nil(t, NewAdapter(Config{WebhookURL: "  "}, nil, nil))
}

func TestNewAdapter_DefaultPolicy(t *testing.T) {
	a := NewAdapter(Config{WebhookURL: "http://crm.local"}, nil, nil)
	require.NotNil(t, a)
	assert.Equal(t, DefaultPolicy, a.cfg.Policy)
}

func TestSend_Payload(t *testing.T) {
	var got map[string]string
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	res := a.Send(context.Background(), testLead())

	assert.True(t, res.OK)
	assert.Equal(t, "crm", res.Provider)
	assert.Equal(t, "Jane Ruiz", got["name"])
	assert.Equal(t, "jane@acme.com", got["email"])
	assert.Equal(t, "9171234567", got["phone"])
	assert.Equal(t, "Acme Co", got["company"])
	assert.Equal(t, "Interested in: Business Automation\nBooking Status: pending", got["notes"])
	assert.Equal(t, "Lead Form", got["source"])
}

func TestSend_NonSuccess(t *testing.T) {
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	res := a.Send(context.Background(), testLead())
	assert.False(t, res.OK)
	assert.Empty(t, res.ConflictField)
	assert.ErrorContains(t, res.Err, "500")
}

func TestSend_UnreachableIsResultNotPanic(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	a := NewAdapter(Config{WebhookURL: url, Policy: fastPolicy}, nil, logging.New("error"))
	res := a.Send(context.Background(), testLead())
	assert.False(t, res.OK)
	assert.Error(t, res.Err)
}

func TestSend_RepeatedSubmissionSameResponse(t *testing.T) {
	var hits atomic.Int32
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	first := a.Send(context.Background(), testLead())
	second := a.Send(context.Background(), testLead())
	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), hits.Load())
}

func TestUpdateStatus(t *testing.T) {
	var got map[string]string
	a := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	})
	require.NoError(t, a.UpdateStatus(context.Background(), "jane@acme.com", leads.StatusBooked))
	assert.Equal(t, "booked", got["booking_status"])
	assert.Equal(t, "jane@acme.com", got["email"])
}
