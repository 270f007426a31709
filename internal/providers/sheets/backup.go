// Package sheets appends every submission to a spreadsheet as a backup, either
// through an Apps Script style webhook or the Google Sheets API.
package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
	htransport "google.golang.org/api/transport/http"

	"github.com/wolfman30/leadsync/internal/leads"
	"github.com/wolfman30/leadsync/internal/resilient"
	"github.com/wolfman30/leadsync/pkg/logging"
)

const name = "sheets"

var (
	DefaultPolicy = resilient.Policy{MaxRetries: 1, Timeout: 10 * time.Second}
	DefaultRange  = "Leads!A:H"
	tracer        = otel.Tracer("leadsync.internal.providers.sheets")
)

// Header lists the column order used by Row.
var Header = []string{"Timestamp", "Name", "Email", "Phone", "Company", "Interested Service", "Booking Status", "Source"}

// Row renders a lead in Header order.
func Row(lead leads.LeadRecord, source string, at time.Time) []string {
	return []string{
		at.UTC().Format(time.RFC3339),
		lead.FullName,
		lead.Email,
		lead.Phone,
		lead.Company,
		lead.InterestedService,
		string(lead.BookingStatus),
		source,
	}
}

// WebhookConfig configures the webhook backup.
type WebhookConfig struct {
	URL    string
	Source string
	Policy resilient.Policy
}

// WebhookAdapter posts the row as a JSON object.
type WebhookAdapter struct {
	cfg    WebhookConfig
	client *resilient.Client
	now    func() time.Time
}

// NewWebhookAdapter returns nil when no URL is configured.
func NewWebhookAdapter(cfg WebhookConfig, client *resilient.Client, logger *logging.Logger) *WebhookAdapter {
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.URL == "" {
		return nil
	}
	if client == nil {
		client = resilient.NewClient(logger)
	}
	if cfg.Policy == (resilient.Policy{}) {
		cfg.Policy = DefaultPolicy
	}
	return &WebhookAdapter{cfg: cfg, client: client, now: time.Now}
}

var _ leads.Adapter = (*WebhookAdapter)(nil)

func (a *WebhookAdapter) Name() string { return name }

type webhookRow struct {
	Timestamp         string `json:"timestamp"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Phone             string `json:"phone"`
	Company           string `json:"company"`
	InterestedService string `json:"interestedService"`
	BookingStatus     string `json:"bookingStatus"`
	Source            string `json:"source,omitempty"`
}

func (a *WebhookAdapter) Send(ctx context.Context, lead leads.LeadRecord) leads.ProviderResult {
	raw, err := json.Marshal(webhookRow{
		Timestamp:         a.now().UTC().Format(time.RFC3339),
		Name:              lead.FullName,
		Email:             lead.Email,
		Phone:             lead.Phone,
		Company:           lead.Company,
		InterestedService: lead.InterestedService,
		BookingStatus:     string(lead.BookingStatus),
		Source:            a.cfg.Source,
	})
	if err != nil {
		return leads.Failed(name, fmt.Errorf("sheets: marshal: %w", err))
	}
	resp, err := a.client.Send(ctx, resilient.Request{
		Method: http.MethodPost,
		URL:    a.cfg.URL,
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   raw,
	}, a.cfg.Policy)
	if err != nil {
		return leads.Failed(name, fmt.Errorf("sheets: %w", err))
	}
	if !resp.OK() {
		return leads.Failed(name, fmt.Errorf("sheets: webhook returned %d", resp.StatusCode))
	}
	return leads.Succeeded(name)
}

// APIConfig configures the Sheets API backup.
type APIConfig struct {
	SpreadsheetID   string
	Range           string
	CredentialsFile string
	Source          string
	Policy          resilient.Policy
}

// APIAdapter appends rows with the Sheets v4 values.append call.
type APIAdapter struct {
	cfg    APIConfig
	svc    *sheetsapi.Service
	logger *logging.Logger
	now    func() time.Time
}

// NewAPIAdapter returns nil when no spreadsheet is configured. Extra client
// options are appended after the credentials option. Requests go through the
// resilient client underneath Google's auth transport.
func NewAPIAdapter(ctx context.Context, cfg APIConfig, client *resilient.Client, logger *logging.Logger, opts ...option.ClientOption) (*APIAdapter, error) {
	cfg.SpreadsheetID = strings.TrimSpace(cfg.SpreadsheetID)
	if cfg.SpreadsheetID == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Range == "" {
		cfg.Range = DefaultRange
	}
	if client == nil {
		client = resilient.NewClient(logger)
	}
	if cfg.Policy == (resilient.Policy{}) {
		cfg.Policy = DefaultPolicy
	}
	var all []option.ClientOption
	if cfg.CredentialsFile != "" {
		all = append(all, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	all = append(all, option.WithScopes(sheetsapi.SpreadsheetsScope))
	all = append(all, opts...)
	rt, err := htransport.NewTransport(ctx, client.Transport(cfg.Policy), all...)
	if err != nil {
		return nil, fmt.Errorf("sheets: build transport: %w", err)
	}
	all = append(all, option.WithHTTPClient(&http.Client{Transport: rt}))
	svc, err := sheetsapi.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("sheets: create service: %w", err)
	}
	return &APIAdapter{cfg: cfg, svc: svc, logger: logger, now: time.Now}, nil
}

var _ leads.Adapter = (*APIAdapter)(nil)

func (a *APIAdapter) Name() string { return name }

func (a *APIAdapter) Send(ctx context.Context, lead leads.LeadRecord) leads.ProviderResult {
	ctx, span := tracer.Start(ctx, "sheets.append")
	defer span.End()
	span.SetAttributes(attribute.String("sheets.range", a.cfg.Range))

	cells := Row(lead, a.cfg.Source, a.now())
	values := make([]interface{}, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	_, err := a.svc.Spreadsheets.Values.
		Append(a.cfg.SpreadsheetID, a.cfg.Range, &sheetsapi.ValueRange{Values: [][]interface{}{values}}).
		// Cells are stored as submitted, never parsed as numbers or formulas.
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		span.RecordError(err)
		return leads.Failed(name, fmt.Errorf("sheets: append: %w", err))
	}
	return leads.Succeeded(name)
}
