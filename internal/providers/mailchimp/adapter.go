// Package mailchimp syncs leads to a Mailchimp audience, recording the
// interested service and booking status as member tags.
package mailchimp

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/leadsync/internal/leads"
	"github.com/wolfman30/leadsync/internal/resilient"
	"github.com/wolfman30/leadsync/pkg/logging"
)

const name = "mailchimp"

var (
	DefaultPolicy       = resilient.Policy{MaxRetries: 1, Timeout: 10 * time.Second}
	DefaultUpdatePolicy = resilient.Policy{MaxRetries: 1, Timeout: 8 * time.Second}

	// ErrBadAPIKey is returned when the key carries no "-<dc>" suffix and no
	// base URL override is configured.
	ErrBadAPIKey = errors.New("mailchimp: api key has no datacenter suffix")
)

var statusTags = []leads.BookingStatus{leads.StatusPending, leads.StatusBooked, leads.StatusLater}

// Config configures the Mailchimp adapter.
type Config struct {
	APIKey     string
	AudienceID string
	// BaseURL overrides the datacenter URL derived from the key.
	BaseURL      string
	Policy       resilient.Policy
	UpdatePolicy resilient.Policy
}

// Adapter implements leads.Adapter and leads.StatusUpdater for Mailchimp.
type Adapter struct {
	cfg    Config
	auth   string
	client *resilient.Client
	logger *logging.Logger
}

// NewAdapter returns nil when the key or audience is missing.
func NewAdapter(cfg Config, client *resilient.Client, logger *logging.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.AudienceID) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if client == nil {
		client = resilient.NewClient(logger)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		base, err := BaseURLForKey(cfg.APIKey)
		if err != nil {
			return nil, err
		}
		cfg.BaseURL = base
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Policy == (resilient.Policy{}) {
		cfg.Policy = DefaultPolicy
	}
	if cfg.UpdatePolicy == (resilient.Policy{}) {
		cfg.UpdatePolicy = DefaultUpdatePolicy
	}
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte("leadsync:"+cfg.APIKey))
	return &Adapter{cfg: cfg, auth: auth, client: client, logger: logger}, nil
}

var (
	_ leads.Adapter       = (*Adapter)(nil)
	_ leads.StatusUpdater = (*Adapter)(nil)
)

// BaseURLForKey derives https://<dc>.api.mailchimp.com/3.0 from "<key>-<dc>".
func BaseURLForKey(apiKey string) (string, error) {
	idx := strings.LastIndex(apiKey, "-")
	if idx < 0 || idx == len(apiKey)-1 {
		return "", ErrBadAPIKey
	}
	return "https://" + apiKey[idx+1:] + ".api.mailchimp.com/3.0", nil
}

// SubscriberHash is Mailchimp's member id: md5 of the lowercased email.
func SubscriberHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

func (a *Adapter) Name() string { return name }

type memberRequest struct {
	EmailAddress string            `json:"email_address,omitempty"`
	StatusIfNew  string            `json:"status_if_new,omitempty"`
	MergeFields  map[string]string `json:"merge_fields"`
}

type tag struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

type errorBody struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Errors []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Send upserts the member, then tags it. Tagging is best-effort: the member
// write decides the result.
func (a *Adapter) Send(ctx context.Context, lead leads.LeadRecord) leads.ProviderResult {
	phone := lead.Phone
	if lead.PhoneE164 != "" {
		phone = lead.PhoneE164
	}
	resp, err := a.do(ctx, http.MethodPut, a.memberPath(lead.Email), memberRequest{
		EmailAddress: lead.Email,
		StatusIfNew:  "subscribed",
		MergeFields: map[string]string{
			"FNAME":   lead.FirstName(),
			"LNAME":   lead.LastName(),
			"PHONE":   phone,
			"COMPANY": lead.Company,
			"SERVICE": lead.InterestedService,
			"BOOKING": string(lead.BookingStatus),
		},
	}, a.cfg.Policy)
	if err != nil {
		return leads.Failed(name, err)
	}
	res := normalize(resp)
	if !res.OK {
		return res
	}

	tags := []tag{{Name: lead.InterestedService, Status: "active"}}
	tags = append(tags, statusTagSet(lead.BookingStatus)...)
	if err := a.tag(ctx, lead.Email, tags, a.cfg.Policy); err != nil {
		a.logger.Warn("mailchimp tagging failed", "error", err)
	}
	return res
}

// UpdateStatus patches the BOOKING merge field and swaps the status tag.
func (a *Adapter) UpdateStatus(ctx context.Context, email string, status leads.BookingStatus) error {
	resp, err := a.do(ctx, http.MethodPatch, a.memberPath(email), memberRequest{
		MergeFields: map[string]string{"BOOKING": string(status)},
	}, a.cfg.UpdatePolicy)
	if err != nil {
		return err
	}
	if !resp.OK() {
		eb := parseError(resp.Body)
		return fmt.Errorf("mailchimp: status update returned %d: %s", resp.StatusCode, eb.Detail)
	}
	if err := a.tag(ctx, email, statusTagSet(status), a.cfg.UpdatePolicy); err != nil {
		a.logger.Warn("mailchimp status tagging failed", "error", err)
	}
	return nil
}

// statusTagSet activates the current status tag and deactivates the others.
func statusTagSet(current leads.BookingStatus) []tag {
	out := make([]tag, 0, len(statusTags))
	for _, s := range statusTags {
		st := "inactive"
		if s == current {
			st = "active"
		}
		out = append(out, tag{Name: string(s), Status: st})
	}
	return out
}

func (a *Adapter) tag(ctx context.Context, email string, tags []tag, policy resilient.Policy) error {
	resp, err := a.do(ctx, http.MethodPost, a.memberPath(email)+"/tags", map[string][]tag{"tags": tags}, policy)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("mailchimp: tags returned %d", resp.StatusCode)
	}
	return nil
}

func (a *Adapter) memberPath(email string) string {
	return "/lists/" + a.cfg.AudienceID + "/members/" + SubscriberHash(email)
}

func (a *Adapter) do(ctx context.Context, method, path string, body any, policy resilient.Policy) (*resilient.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("mailchimp: marshal: %w", err)
	}
	resp, err := a.client.Send(ctx, resilient.Request{
		Method: method,
		URL:    a.cfg.BaseURL + path,
		Header: http.Header{
			"Content-Type":  []string{"application/json"},
			"Authorization": []string{a.auth},
		},
		Body: raw,
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("mailchimp: %w", err)
	}
	return resp, nil
}

// normalize reports a phone conflict when an error on the phone merge field, or
// the detail, says the number is already taken.
func normalize(resp *resilient.Response) leads.ProviderResult {
	if resp.OK() {
		return leads.Succeeded(name)
	}
	eb := parseError(resp.Body)
	if mentionsPhone(eb) {
		return leads.Conflict(name, leads.FieldPhone, leads.PhoneConflictMessage)
	}
	return leads.Failed(name, fmt.Errorf("mailchimp: member upsert returned %d: %s %s", resp.StatusCode, eb.Title, eb.Detail))
}

func mentionsPhone(eb errorBody) bool {
	if strings.Contains(strings.ToLower(eb.Detail), "phone") && claimsUniqueness(eb.Detail) {
		return true
	}
	for _, e := range eb.Errors {
		onPhone := strings.Contains(strings.ToLower(e.Field), "phone") || strings.Contains(strings.ToLower(e.Message), "phone")
		if onPhone && claimsUniqueness(e.Message) {
			return true
		}
	}
	return false
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
		eb.Detail = string(body)
	}
	return eb
}
