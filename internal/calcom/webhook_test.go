package calcom

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/leadsync/internal/leads"
	"github.com/wolfman30/leadsync/pkg/logging"
)

type call struct {
	email  string
	status string
}

type fakeSetter struct {
	calls  []call
	result leads.BookingResult
}

func (f *fakeSetter) UpdateStatus(ctx context.Context, email, status string) leads.BookingResult {
	f.calls = append(f.calls, call{email: email, status: status})
	return f.result
}

func signed(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func bookingPayload(trigger string) []byte {
	return []byte(`{"triggerEvent":"` + trigger + `","payload":{"uid":"bk_1","attendees":[{"email":"jane@acme.com","name":"Jane Ruiz"}]}}`)
}

func post(h *Handler, body []byte, sig string) (*httptest.ResponseRecorder, response) {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/cal", bytes.NewReader(body))
	if sig != "" {
		req.Header.Set(SignatureHeader, sig)
	}
	w := httptest.NewRecorder()
	h.Handle(w, req)
	var resp response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestProbe(t *testing.T) {
	h := NewHandler("", nil, logging.New("error"))
	w := httptest.NewRecorder()
	h.Probe(w, httptest.NewRequest(http.MethodGet, "/webhooks/cal", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "active")
}

func TestHandle_EventMapping(t *testing.T) {
	tests := []struct {
		trigger string
		status  string
	}{
		{EventBookingCreated, "booked"},
		{EventBookingRescheduled, "booked"},
		{EventBookingCancelled, "pending"},
	}
	for _, tt := range tests {
		t.Run(tt.trigger, func(t *testing.T) {
			setter := &fakeSetter{result: leads.BookingResult{Success: true}}
			h := NewHandler("", setter, logging.New("error"))

			w, resp := post(h, bookingPayload(tt.trigger), "")
			require.Equal(t, http.StatusOK, w.Code)
			assert.True(t, resp.Success)
			require.Len(t, setter.calls, 1)
			assert.Equal(t, call{email: "jane@acme.com", status: tt.status}, setter.calls[0])
		})
	}
}

func TestHandle_IgnoresOtherEvents(t *testing.T) {
	setter := &fakeSetter{}
	h := NewHandler("", setter, logging.New("error"))

	w, resp := post(h, bookingPayload("MEETING_ENDED"), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response{Success: true, Message: "Event ignored"}, resp)
	assert.Empty(t, setter.calls)
}

func TestHandle_Signature(t *testing.T) {
	setter := &fakeSetter{result: leads.BookingResult{Success: true}}
	h := NewHandler("cal-secret", setter, logging.New("error"))
	body := bookingPayload(EventBookingCreated)

	w, _ := post(h, body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = post(h, body, signed("wrong", body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = post(h, body, signed("cal-secret", body))
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = post(h, body, "sha256="+signed("cal-secret", body))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, setter.calls, 2)
}

func TestHandle_UpdateFailure(t *testing.T) {
	setter := &fakeSetter{result: leads.BookingResult{Error: "API key missing"}}
	h := NewHandler("", setter, logging.New("error"))

	w, resp := post(h, bookingPayload(EventBookingCreated), "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "API key missing", resp.Error)
}

func TestHandle_BadInput(t *testing.T) {
	h := NewHandler("", &fakeSetter{}, logging.New("error"))

	w, _ := post(h, []byte(`{not json`), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = post(h, []byte(`{"triggerEvent":"BOOKING_CREATED","payload":{"attendees":[]}}`), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandle_NoUpdater(t *testing.T) {
	h := NewHandler("", nil, logging.New("error"))
	w, resp := post(h, bookingPayload(EventBookingCreated), "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, leads.ErrUpdaterNotConfigured.Error(), resp.Error)
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"hello":"world"}`)
	assert.True(t, VerifySignature("s", payload, signed("s", payload)))
	assert.False(t, VerifySignature("s", payload, "zz"))
	assert.False(t, VerifySignature("", payload, signed("", payload)))
}
