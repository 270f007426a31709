// Package calcom receives Cal.com booking webhooks and forwards attendee
// booking changes to the booking status updater.
package calcom

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/wolfman30/leadsync/internal/leads"
	"github.com/wolfman30/leadsync/pkg/logging"
)

const (
	SignatureHeader = "X-Cal-Signature-256"

	EventBookingCreated     = "BOOKING_CREATED"
	EventBookingRescheduled = "BOOKING_RESCHEDULED"
	EventBookingCancelled   = "BOOKING_CANCELLED"

	maxPayloadBytes = 1 << 20
)

// StatusSetter is satisfied by *leads.BookingUpdater.
type StatusSetter interface {
	UpdateStatus(ctx context.Context, email, status string) leads.BookingResult
}

// Handler serves GET and POST on the webhook path.
type Handler struct {
	secret  string
	updater StatusSetter
	logger  *logging.Logger
}

// NewHandler builds the webhook handler. An empty secret disables signature
// verification.
func NewHandler(secret string, updater StatusSetter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{secret: strings.TrimSpace(secret), updater: updater, logger: logger}
}

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type attendee struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type event struct {
	TriggerEvent string `json:"triggerEvent"`
	Payload      struct {
		UID       string     `json:"uid"`
		Attendees []attendee `json:"attendees"`
	} `json:"payload"`
}

// Probe answers GET so operators can check the endpoint from a browser.
func (h *Handler) Probe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Cal.com Webhook is active and waiting for POST requests."})
}

// Handle processes one webhook delivery.
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, response{Error: "invalid request body"})
		return
	}

	if h.secret != "" && !VerifySignature(h.secret, payload, r.Header.Get(SignatureHeader)) {
		h.logger.Warn("invalid cal.com webhook signature")
		writeJSON(w, http.StatusUnauthorized, response{Error: "invalid signature"})
		return
	}

	var evt event
	if err := json.Unmarshal(payload, &evt); err != nil {
		writeJSON(w, http.StatusBadRequest, response{Error: "invalid JSON payload"})
		return
	}

	status, ok := statusFor(evt.TriggerEvent)
	if !ok {
		writeJSON(w, http.StatusOK, response{Success: true, Message: "Event ignored"})
		return
	}
	if len(evt.Payload.Attendees) == 0 || strings.TrimSpace(evt.Payload.Attendees[0].Email) == "" {
		writeJSON(w, http.StatusBadRequest, response{Error: "booking has no attendee email"})
		return
	}
	if h.updater == nil {
		writeJSON(w, http.StatusInternalServerError, response{Error: leads.ErrUpdaterNotConfigured.Error()})
		return
	}

	who := evt.Payload.Attendees[0]
	h.logger.Info("cal.com booking event",
		"event", evt.TriggerEvent,
		"booking_uid", evt.Payload.UID,
		"email", who.Email,
		"status", status,
	)

	res := h.updater.UpdateStatus(context.WithoutCancel(r.Context()), who.Email, string(status))
	if !res.Success {
		h.logger.Error("cal.com booking status update failed", "email", who.Email, "error", res.Error)
		writeJSON(w, http.StatusInternalServerError, response{Error: res.Error})
		return
	}
	writeJSON(w, http.StatusOK, response{Success: true, Message: "Booking status updated"})
}

func statusFor(trigger string) (leads.BookingStatus, bool) {
	switch trigger {
	case EventBookingCreated, EventBookingRescheduled:
		return leads.StatusBooked, true
	case EventBookingCancelled:
		return leads.StatusPending, true
	default:
		return "", false
	}
}

// VerifySignature checks a hex HMAC-SHA256 of payload. A "sha256=" prefix
// is tolerated.
func VerifySignature(secret string, payload []byte, header string) bool {
	header = strings.TrimPrefix(strings.TrimSpace(header), "sha256=")
	if secret == "" || header == "" {
		return false
	}
	provided, err := hex.DecodeString(header)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), provided)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
