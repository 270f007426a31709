package leads

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/wolfman30/leadsync/pkg/logging"
)

// Submitter is satisfied by *Orchestrator.
type Submitter interface {
	SubmitLead(ctx context.Context, lead LeadRecord) SubmissionOutcome
}

// StatusSetter is satisfied by *BookingUpdater.
type StatusSetter interface {
	UpdateStatus(ctx context.Context, email, status string) BookingResult
}

// Handler handles HTTP requests for the lead form
type Handler struct {
	submitter Submitter
	booking   StatusSetter
	validator *Validator
	logger    *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(submitter Submitter, booking StatusSetter, validator *Validator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if validator == nil {
		validator = NewValidator(PhoneRules{})
	}
	return &Handler{
		submitter: submitter,
		booking:   booking,
		validator: validator,
		logger:    logger,
	}
}

// SubmitLead handles POST /api/leads requests
func (h *Handler) SubmitLead(w http.ResponseWriter, r *http.Request) {
	var in LeadInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.logger.Warn("failed to decode lead request", "error", err)
		writeJSON(w, http.StatusBadRequest, SubmissionOutcome{Error: "Invalid request body"})
		return
	}

	lead, err := h.validator.Build(in)
	if err != nil {
		var fe *FieldError
		if errors.As(err, &fe) {
			writeJSON(w, http.StatusBadRequest, SubmissionOutcome{Error: fe.Message, Field: fe.Field})
			return
		}
		h.logger.Error("lead validation failed", "error", err)
		writeJSON(w, http.StatusBadRequest, SubmissionOutcome{Error: "Invalid request body"})
		return
	}

	// The browser leaving must not abort provider calls already in flight.
	outcome := h.submitter.SubmitLead(context.WithoutCancel(r.Context()), lead)

	status := http.StatusOK
	switch {
	case outcome.Success:
	case outcome.Field != "":
		status = http.StatusConflict
	default:
		status = http.StatusBadGateway
	}
	writeJSON(w, status, outcome)
}

type bookingStatusRequest struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

// UpdateBookingStatus handles POST /api/leads/booking-status requests
func (h *Handler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	var req bookingStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, BookingResult{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeJSON(w, http.StatusBadRequest, BookingResult{Error: ErrMissingEmail.Error()})
		return
	}
	if _, err := ParseBookingStatus(req.Status); err != nil {
		writeJSON(w, http.StatusBadRequest, BookingResult{Error: err.Error()})
		return
	}

	res := h.booking.UpdateStatus(context.WithoutCancel(r.Context()), req.Email, req.Status)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, res)
}

// ListServices handles GET /api/services requests
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"services": Catalog()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
