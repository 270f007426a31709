// Package mailerlite syncs leads to MailerLite subscribers, tagging them
// through groups named after the interested service and booking status.
package mailerlite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wolfman30/leadsync/internal/groups"
	"github.com/wolfman30/leadsync/internal/leads"
	"github.com/wolfman30/leadsync/internal/resilient"
	"github.com/wolfman30/leadsync/pkg/logging"
)

const (
	name           = "mailerlite"
	DefaultBaseURL = "https://connect.mailerlite.com/api"
)

var (
	DefaultPolicy       = resilient.Policy{MaxRetries: 1, Timeout: 10 * time.Second}
	DefaultUpdatePolicy = resilient.Policy{MaxRetries: 1, Timeout: 8 * time.Second}
)

// Config configures the MailerLite adapter. BaseGroupID, when set, is added
// to every subscriber alongside the resolved category groups.
type Config struct {
	APIKey       string
	BaseGroupID  string
	BaseURL      string
	Source       string
	Policy       resilient.Policy
	UpdatePolicy resilient.Policy
}

// Adapter implements leads.Adapter, leads.StatusUpdater and groups.Directory.
type Adapter struct {
	cfg      Config
	client   *resilient.Client
	resolver *groups.Resolver
	logger   *logging.Logger
}

// NewAdapter returns nil when no API key is configured. cache may be nil.
func NewAdapter(cfg Config, client *resilient.Client, cache groups.Cache, logger *logging.Logger) *Adapter {
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
	a := &Adapter{cfg: cfg, client: client, logger: logger}
	a.resolver = groups.NewResolver(name, a, cache, logger)
	return a
}

var (
	_ leads.Adapter       = (*Adapter)(nil)
	_ leads.StatusUpdater = (*Adapter)(nil)
	_ groups.Directory    = (*Adapter)(nil)
)

func (a *Adapter) Name() string { return name }

type subscriberRequest struct {
	Email  string            `json:"email"`
	Fields map[string]string `json:"fields"`
	Groups []string          `json:"groups,omitempty"`
}

type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

type group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Send upserts the subscriber. MailerLite merges groups on upsert, so a
// returning subscriber keeps the groups from earlier submissions.
func (a *Adapter) Send(ctx context.Context, lead leads.LeadRecord) leads.ProviderResult {
	phone := lead.Phone
	if lead.PhoneE164 != "" {
		phone = lead.PhoneE164
	}
	fields := map[string]string{
		"name":               lead.FirstName(),
		"last_name":          lead.LastName(),
		"phone":              phone,
		"company":            lead.Company,
		"interested_service": lead.InterestedService,
		"booking_status":     string(lead.BookingStatus),
	}
	if a.cfg.Source != "" {
		fields["source"] = a.cfg.Source
	}

	session := a.resolver.Session()
	ids := a.groupIDs(session.EnsureAll(ctx, lead.InterestedService, string(lead.BookingStatus)))

	resp, err := a.do(ctx, http.MethodPost, "/subscribers", subscriberRequest{
		Email:  lead.Email,
		Fields: fields,
		Groups: ids,
	}, a.cfg.Policy)
	if err != nil {
		return leads.Failed(name, err)
	}
	return normalize(resp)
}

// UpdateStatus re-upserts the subscriber with the new status field and adds
// the status group.
func (a *Adapter) UpdateStatus(ctx context.Context, email string, status leads.BookingStatus) error {
	session := a.resolver.Session()
	resp, err := a.do(ctx, http.MethodPost, "/subscribers", subscriberRequest{
		Email:  email,
		Fields: map[string]string{"booking_status": string(status)},
		Groups: a.groupIDs(session.EnsureAll(ctx, string(status))),
	}, a.cfg.UpdatePolicy)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("mailerlite: status update returned %d: %s", resp.StatusCode, parseError(resp.Body).Message)
	}
	return nil
}

// Find looks up a group by exact name. The API filter is a substring match.
func (a *Adapter) Find(ctx context.Context, groupName string) (string, bool, error) {
	q := url.Values{}
	q.Set("filter[name]", groupName)
	q.Set("limit", "100")
	resp, err := a.do(ctx, http.MethodGet, "/groups?"+q.Encode(), nil, a.cfg.Policy)
	if err != nil {
		return "", false, err
	}
	if !resp.OK() {
		return "", false, fmt.Errorf("mailerlite: list groups returned %d", resp.StatusCode)
	}
	var list struct {
		Data []group `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &list); err != nil {
		return "", false, fmt.Errorf("mailerlite: decode groups: %w", err)
	}
	for _, g := range list.Data {
		if g.Name == groupName {
			return g.ID, true, nil
		}
	}
	return "", false, nil
}

// Create makes a new group. It is attempted once: a retry after a timed-out
// attempt could create the same group twice.
func (a *Adapter) Create(ctx context.Context, groupName string) (string, error) {
	once := a.cfg.Policy
	once.MaxRetries = 0
	resp, err := a.do(ctx, http.MethodPost, "/groups", map[string]string{"name": groupName}, once)
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", fmt.Errorf("mailerlite: create group returned %d: %s", resp.StatusCode, parseError(resp.Body).Message)
	}
	var created struct {
		Data group `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &created); err != nil {
		return "", fmt.Errorf("mailerlite: decode group: %w", err)
	}
	if created.Data.ID == "" {
		return "", fmt.Errorf("mailerlite: create group returned no id")
	}
	return created.Data.ID, nil
}

func (a *Adapter) groupIDs(bindings []groups.Binding) []string {
	ids := make([]string, 0, len(bindings)+1)
	if a.cfg.BaseGroupID != "" {
		ids = append(ids, a.cfg.BaseGroupID)
	}
	for _, b := range bindings {
		ids = append(ids, b.ID)
	}
	return ids
}

func (a *Adapter) do(ctx context.Context, method, path string, body any, policy resilient.Policy) (*resilient.Response, error) {
	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("mailerlite: marshal: %w", err)
		}
	}
	resp, err := a.client.Send(ctx, resilient.Request{
		Method: method,
		URL:    a.cfg.BaseURL + path,
		Header: http.Header{
			"Content-Type":  []string{"application/json"},
			"Accept":        []string{"application/json"},
			"Authorization": []string{"Bearer " + a.cfg.APIKey},
		},
		Body: raw,
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("mailerlite: %w", err)
	}
	return resp, nil
}

// normalize treats a 422 whose errors or message name the phone field as a
// phone conflict.
func normalize(resp *resilient.Response) leads.ProviderResult {
	if resp.OK() {
		return leads.Succeeded(name)
	}
	eb := parseError(resp.Body)
	if resp.StatusCode == http.StatusUnprocessableEntity && mentionsPhone(eb) {
		return leads.Conflict(name, leads.FieldPhone, leads.PhoneConflictMessage)
	}
	return leads.Failed(name, fmt.Errorf("mailerlite: subscribers returned %d: %s", resp.StatusCode, eb.Message))
}

// mentionsPhone reports a uniqueness error on the phone field. Validation
// errors on the same field ("must be a valid phone") do not count.
func mentionsPhone(eb errorBody) bool {
	for key, msgs := range eb.Errors {
		if !strings.Contains(strings.ToLower(key), "phone") {
			continue
		}
		for _, msg := range msgs {
			if claimsUniqueness(msg) {
				return true
			}
		}
	}
	return strings.Contains(strings.ToLower(eb.Message), "phone") && claimsUniqueness(eb.Message)
}

func claimsUniqueness(msg string) bool {
	msg = strings.ToLower(msg)
	for _, word := range []string{"taken", "already", "exist", "associated", "in use"} {
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
