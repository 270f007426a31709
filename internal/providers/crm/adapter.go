// Package crm posts leads to the operator's own CRM ingestion webhook.
package crm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/leadsync/internal/leads"
	"github.com/wolfman30/leadsync/internal/resilient"
	"github.com/wolfman30/leadsync/pkg/logging"
)

const name = "crm"

// DefaultPolicy keeps the CRM off the critical rendering path: the webhook
// is slow and a short timeout bounds how long the form waits on it.
var DefaultPolicy = resilient.Policy{MaxRetries: 1, Timeout: 6 * time.Second}

// Config configures the webhook adapter.
type Config struct {
	WebhookURL string
	Source     string
	Policy     resilient.Policy
}

// Adapter implements leads.Adapter and leads.StatusUpdater.
type Adapter struct {
	cfg    Config
	client *resilient.Client
	logger *logging.Logger
}

// NewAdapter returns nil when no webhook URL is configured.
func NewAdapter(cfg Config, client *resilient.Client, logger *logging.Logger) *Adapter {
	cfg.WebhookURL = strings.TrimSpace(cfg.WebhookURL)
	if cfg.WebhookURL == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if client == nil {
		client = resilient.NewClient(logger)
	}
	if cfg.Policy == (resilient.Policy{}) {
		cfg.Policy = DefaultPolicy
	}
	return &Adapter{cfg: cfg, client: client, logger: logger}
}

var (
	_ leads.Adapter       = (*Adapter)(nil)
	_ leads.StatusUpdater = (*Adapter)(nil)
)

func (a *Adapter) Name() string { return name }

type payload struct {
	Name          string `json:"name,omitempty"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	Company       string `json:"company,omitempty"`
	Notes         string `json:"notes"`
	BookingStatus string `json:"booking_status"`
	Source        string `json:"source"`
}

// Send posts the lead using the webhook's fixed schema.
func (a *Adapter) Send(ctx context.Context, lead leads.LeadRecord) leads.ProviderResult {
	return a.post(ctx, payload{
		Name:          lead.FullName,
		Email:         lead.Email,
		Phone:         lead.Phone,
		Company:       lead.Company,
		Notes:         lead.Notes(),
		BookingStatus: string(lead.BookingStatus),
		Source:        a.cfg.Source,
	})
}

// UpdateStatus re-posts the contact keyed by email with the new status.
func (a *Adapter) UpdateStatus(ctx context.Context, email string, status leads.BookingStatus) error {
	res := a.post(ctx, payload{
		Email:         email,
		Notes:         "Booking Status: " + string(status),
		BookingStatus: string(status),
		Source:        a.cfg.Source,
	})
	if !res.OK {
		return res.Err
	}
	return nil
}

func (a *Adapter) post(ctx context.Context, p payload) leads.ProviderResult {
	body, err := json.Marshal(p)
	if err != nil {
		return leads.Failed(name, fmt.Errorf("crm: marshal payload: %w", err))
	}
	resp, err := a.client.Send(ctx, resilient.Request{
		Method: http.MethodPost,
		URL:    a.cfg.WebhookURL,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	}, a.cfg.Policy)
	if err != nil {
		return leads.Failed(name, fmt.Errorf("crm: %w", err))
	}
	return normalize(resp)
}

func normalize(resp *resilient.Response) leads.ProviderResult {
	if resp.OK() {
		return leads.Succeeded(name)
	}
	return leads.Failed(name, fmt.Errorf("crm: webhook returned %d: %s", resp.StatusCode, truncate(resp.Body)))
}

func truncate(b []byte) string {
	s := string(b)
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
