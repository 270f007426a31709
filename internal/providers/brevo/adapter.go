// Package brevo syncs leads to Brevo contacts.
package brevo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wolfman30/leadsync/internal/leads"
	"github.com/wolfman30/leadsync/internal/resilient"
	"github.com/wolfman30/leadsync/pkg/logging"
)

const (
	name           = "brevo"
	DefaultBaseURL = "https://api.brevo.com/v3"
)

var (
	DefaultPolicy       = resilient.Policy{MaxRetries: 1, Timeout: 10 * time.Second}
	DefaultUpdatePolicy = resilient.Policy{MaxRetries: 1, Timeout: 8 * time.Second}

	// ErrMissingList is reported when contacts cannot be upserted without a list.
	ErrMissingList = errors.New("brevo: list id not configured")
)

// Config configures the Brevo adapter.
type Config struct {
	APIKey       string
	ListID       int64
	BaseURL      string
	Source       string
	Policy       resilient.Policy
	UpdatePolicy resilient.Policy
}

// Adapter implements leads.Adapter and leads.StatusUpdater for Brevo.
type Adapter struct {
	cfg    Config
	client *resilient.Client
	logger *logging.Logger
}

// NewAdapter returns nil when no API key is configured.
func NewAdapter(cfg Config, client *resilient.Client, logger *logging.Logger) *Adapter {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if client == nil {
		client = resilient.NewClient(logger)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Policy == (resilient.Policy{}) {
		cfg.Policy = DefaultPolicy
	}
	if cfg.UpdatePolicy == (resilient.Policy{}) {
		cfg.UpdatePolicy = DefaultUpdatePolicy
	}
	if cfg.ListID <= 0 {
		logger.Warn("brevo list id missing; lead submissions to brevo will be skipped")
	}
	return &Adapter{cfg: cfg, client: client, logger: logger}
}

var (
	_ leads.Adapter       = (*Adapter)(nil)
	_ leads.StatusUpdater = (*Adapter)(nil)
)

func (a *Adapter) Name() string { return name }

type contactRequest struct {
	Email         string         `json:"email"`
	Attributes    map[string]any `json:"attributes"`
	ListIDs       []int64        `json:"listIds"`
	UpdateEnabled bool           `json:"updateEnabled"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Send upserts the contact keyed by email.
func (a *Adapter) Send(ctx context.Context, lead leads.LeadRecord) leads.ProviderResult {
	if a.cfg.ListID <= 0 {
		return leads.Failed(name, ErrMissingList)
	}

	attrs := map[string]any{
		"FIRSTNAME":          lead.FirstName(),
		"LASTNAME":           lead.LastName(),
		"FULLNAME":           lead.FullName,
		"COMPANY":            lead.Company,
		"PHONE":              lead.Phone,
		"INTERESTED_SERVICE": lead.InterestedService,
		"BOOKING_STATUS":     string(lead.BookingStatus),
	}
	if lead.PhoneE164 != "" {
		attrs["SMS"] = lead.PhoneE164
	}
	if a.cfg.Source != "" {
		attrs["SOURCE"] = a.cfg.Source
	}

	resp, err := a.do(ctx, http.MethodPost, "/contacts", contactRequest{
		Email:         lead.Email,
		Attributes:    attrs,
		ListIDs:       []int64{a.cfg.ListID},
		UpdateEnabled: true,
	}, a.cfg.Policy)
	if err != nil {
		return leads.Failed(name, err)
	}
	return normalize(resp)
}

// UpdateStatus sets BOOKING_STATUS on an existing contact.
func (a *Adapter) UpdateStatus(ctx context.Context, email string, status leads.BookingStatus) error {
	path := "/contacts/" + url.PathEscape(email)
	resp, err := a.do(ctx, http.MethodPut, path, map[string]any{
		"attributes": map[string]string{"BOOKING_STATUS": string(status)},
	}, a.cfg.UpdatePolicy)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("brevo: status update returned %d: %s", resp.StatusCode, parseError(resp.Body).Message)
	}
	return nil
}

func (a *Adapter) do(ctx context.Context, method, path string, body any, policy resilient.Policy) (*resilient.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("brevo: marshal: %w", err)
	}
	resp, err := a.client.Send(ctx, resilient.Request{
		Method: method,
		URL:    a.cfg.BaseURL + path,
		Header: http.Header{
			"Content-Type": []string{"application/json"},
			"Api-Key":      []string{a.cfg.APIKey},
		},
		Body: raw,
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("brevo: %w", err)
	}
	return resp, nil
}

// normalize maps Brevo's error body. A duplicate_parameter code, or a message
// saying the PHONE/SMS attribute is already taken, means another contact owns
// the number. Attribute names are matched case-sensitively; format errors such
// as "Invalid phone number" stay ordinary failures.
func normalize(resp *resilient.Response) leads.ProviderResult {
	if resp.OK() {
		return leads.Succeeded(name)
	}
	eb := parseError(resp.Body)
	namesPhone := strings.Contains(eb.Message, "PHONE") || strings.Contains(eb.Message, "SMS")
	if eb.Code == "duplicate_parameter" || (namesPhone && claimsUniqueness(eb.Message)) {
		return leads.Conflict(name, leads.FieldPhone, leads.PhoneConflictMessage)
	}
	return leads.Failed(name, fmt.Errorf("brevo: contacts returned %d: %s %s", resp.StatusCode, eb.Code, eb.Message))
}

func claimsUniqueness(msg string) bool {
	msg = strings.ToLower(msg)
	for _, word := range []string{"already", "exist", "associated", "duplicate"} {
		if strings.Contains(msg, word) {
			return true
		}
	}
	return false
}

func parseError(body []byte) errorBody {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		eb.Message = string(body)
	}
	return eb
}
