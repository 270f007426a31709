package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/wolfman30/leadsync/internal/leads"
	"github.com/wolfman30/leadsync/pkg/logging"
)

// ErrNoRecipient is returned for leads without an email address.
var ErrNoRecipient = errors.New("notify: lead has no email")

// ConfirmerConfig selects the template and copy list.
type ConfirmerConfig struct {
	TemplateID string
	CC         []string
}

// Confirmer sends the post-submission confirmation email.
type Confirmer struct {
	sender TemplateSender
	cfg    ConfirmerConfig
	logger *logging.Logger
}

// NewConfirmer returns nil unless both a sender and a template are configured.
func NewConfirmer(sender TemplateSender, cfg ConfirmerConfig, logger *logging.Logger) *Confirmer {
	if sender == nil || strings.TrimSpace(cfg.TemplateID) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Confirmer{sender: sender, cfg: cfg, logger: logger}
}

var _ leads.Confirmation = (*Confirmer)(nil)

// Confirm sends the template to the lead, copying the configured CC list.
func (c *Confirmer) Confirm(ctx context.Context, lead leads.LeadRecord) error {
	if strings.TrimSpace(lead.Email) == "" {
		return ErrNoRecipient
	}
	return c.sender.SendTemplate(ctx, TemplateMessage{
		To:         lead.Email,
		ToName:     lead.FullName,
		CC:         c.cfg.CC,
		TemplateID: c.cfg.TemplateID,
		Params: map[string]any{
			"FIRSTNAME":          lead.FirstName(),
			"FULLNAME":           lead.FullName,
			"COMPANY":            lead.Company,
			"PHONE":              lead.Phone,
			"INTERESTED_SERVICE": lead.InterestedService,
			"BOOKING_STATUS":     string(lead.BookingStatus),
		},
	})
}
