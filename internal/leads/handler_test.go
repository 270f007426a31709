package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/leadsync/pkg/logging"
)

type stubSubmitter struct {
	outcome SubmissionOutcome
	got     *LeadRecord
	ctxErr  error
}

func (s *stubSubmitter) SubmitLead(ctx context.Context, lead LeadRecord) SubmissionOutcome {
	s.got = &lead
	s.ctxErr = ctx.Err()
	return s.outcome
}

type stubStatusSetter struct {
	res    BookingResult
	called bool
}

func (s *stubStatusSetter) UpdateStatus(ctx context.Context, email, status string) BookingResult {
	s.called = true
	return s.res
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decodeOutcome(t *testing.T, w *httptest.ResponseRecorder) SubmissionOutcome {
	t.Helper()
	var out SubmissionOutcome
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func TestSubmitLeadHandler_Success(t *testing.T) {
	sub := &stubSubmitter{outcome: SubmissionOutcome{Success: true}}
	h := NewHandler(sub, &stubStatusSetter{}, nil, logging.New("error"))

	w := postJSON(t, h.SubmitLead, "/api/leads", map[string]string{
		"fullName":          "Jane Ruiz",
		"email":             "jane@acme.com",
		"phone":             "9171234567",
		"company":           "Acme Co",
		"interestedService": "Business Automation",
		"bookingStatus":     "pending",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, SubmissionOutcome{Success: true}, decodeOutcome(t, w))
	require.NotNil(t, sub.got)
	assert.Equal(t, "Jane Ruiz", sub.got.FullName)
	assert.NoError(t, sub.ctxErr)
}

func TestSubmitLeadHandler_ValidationError(t *testing.T) {
	sub := &stubSubmitter{}
	h := NewHandler(sub, &stubStatusSetter{}, nil, logging.New("error"))

	w := postJSON(t, h.SubmitLead, "/api/leads", map[string]string{
		"fullName":          "Jane Ruiz",
		"email":             "jane@acme.com",
		"phone":             "call me",
		"company":           "Acme Co",
		"interestedService": "Business Automation",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	out := decodeOutcome(t, w)
	assert.False(t, out.Success)
	assert.Equal(t, "phone", out.Field)
	assert.Nil(t, sub.got, "invalid leads must not reach providers")
}

func TestSubmitLeadHandler_StatusCodes(t *testing.T) {
	cases := []struct {
		outcome SubmissionOutcome
		code    int
	}{
		{SubmissionOutcome{Field: "phone", Error: PhoneConflictMessage}, http.StatusConflict},
		{SubmissionOutcome{Error: GenericFailureMessage}, http.StatusBadGateway},
	}
	for _, tc := range cases {
		h := NewHandler(&stubSubmitter{outcome: tc.outcome}, &stubStatusSetter{}, nil, logging.New("error"))
		w := postJSON(t, h.SubmitLead, "/api/leads", validInput())
		assert.Equal(t, tc.code, w.Code)
		assert.Equal(t, tc.outcome, decodeOutcome(t, w))
	}
}

func TestSubmitLeadHandler_MalformedBody(t *testing.T) {
	h := NewHandler(&stubSubmitter{}, &stubStatusSetter{}, nil, logging.New("error"))
	req := httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader("{"))
	w := httptest.NewRecorder()
	h.SubmitLead(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateBookingStatusHandler(t *testing.T) {
	setter := &stubStatusSetter{res: BookingResult{Success: true}}
	h := NewHandler(&stubSubmitter{}, setter, nil, logging.New("error"))

	w := postJSON(t, h.UpdateBookingStatus, "/api/leads/booking-status", map[string]string{"email": "jane@acme.com", "status": "later"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, setter.called)

	setter = &stubStatusSetter{}
	h = NewHandler(&stubSubmitter{}, setter, nil, logging.New("error"))
	w = postJSON(t, h.UpdateBookingStatus, "/api/leads/booking-status", map[string]string{"email": "jane@acme.com", "status": "soon"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, setter.called)

	setter = &stubStatusSetter{res: BookingResult{Error: "API key missing"}}
	h = NewHandler(&stubSubmitter{}, setter, nil, logging.New("error"))
	w = postJSON(t, h.UpdateBookingStatus, "/api/leads/booking-status", map[string]string{"email": "jane@acme.com", "status": "booked"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestListServicesHandler(t *testing.T) {
	h := NewHandler(&stubSubmitter{}, &stubStatusSetter{}, nil, logging.New("error"))
	w := httptest.NewRecorder()
	h.ListServices(w, httptest.NewRequest(http.MethodGet, "/api/services", nil))

	var body struct {
		Services []Service `json:"services"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Len(t, body.Services, 5)
}
