package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/leadsync/internal/resilient"
	"github.com/wolfman30/leadsync/pkg/logging"
)

const defaultBrevoBaseURL = "https://api.brevo.com/v3"

// BrevoConfig holds configuration for Brevo transactional email.
type BrevoConfig struct {
	APIKey  string
	BaseURL string
	Policy  resilient.Policy
}

// BrevoSender sends templates through Brevo's /smtp/email endpoint.
type BrevoSender struct {
	cfg    BrevoConfig
	client *resilient.Client
	logger *logging.Logger
}

// NewBrevoSender returns nil without an API key.
func NewBrevoSender(cfg BrevoConfig, client *resilient.Client, logger *logging.Logger) *BrevoSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if client == nil {
		client = resilient.NewClient(logger)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBrevoBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Policy == (resilient.Policy{}) {
		cfg.Policy = resilient.Policy{MaxRetries: 1, Timeout: 10 * time.Second}
	}
	return &BrevoSender{cfg: cfg, client: client, logger: logger}
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoEmail struct {
	To         []brevoAddress `json:"to"`
	CC         []brevoAddress `json:"cc,omitempty"`
	TemplateID int64          `json:"templateId"`
	Params     map[string]any `json:"params,omitempty"`
}

// SendTemplate sends msg. Brevo template ids are numeric.
func (s *BrevoSender) SendTemplate(ctx context.Context, msg TemplateMessage) error {
	templateID, err := strconv.ParseInt(strings.TrimSpace(msg.TemplateID), 10, 64)
	if err != nil {
		return fmt.Errorf("notify: brevo template id %q is not numeric", msg.TemplateID)
	}
	payload := brevoEmail{
		To:         []brevoAddress{{Email: msg.To, Name: msg.ToName}},
		TemplateID: templateID,
		Params:     msg.Params,
	}
	for _, cc := range msg.CC {
		payload.CC = append(payload.CC, brevoAddress{Email: cc})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal brevo email: %w", err)
	}

	resp, err := s.client.Send(ctx, resilient.Request{
		Method: http.MethodPost,
		URL:    s.cfg.BaseURL + "/smtp/email",
		Header: http.Header{
			"Content-Type": []string{"application/json"},
			"Api-Key":      []string{s.cfg.APIKey},
		},
		Body: raw,
	}, s.cfg.Policy)
	if err != nil {
		return fmt.Errorf("notify: brevo send failed: %w", err)
	}
	if !resp.OK() {
		s.logger.Error("brevo returned error status", "status", resp.StatusCode, "body", string(resp.Body), "to", msg.To)
		return fmt.Errorf("notify: brevo returned status %d", resp.StatusCode)
	}
	s.logger.Info("email sent via brevo", "to", msg.To, "template_id", templateID, "cc", len(msg.CC))
	return nil
}

var _ TemplateSender = (*BrevoSender)(nil)
