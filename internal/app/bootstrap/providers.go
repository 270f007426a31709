package bootstrap

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/api/option"

	appconfig "github.com/wolfman30/leadsync/internal/config"
	"github.com/wolfman30/leadsync/internal/groups"
	"github.com/wolfman30/leadsync/internal/leads"
	"github.com/wolfman30/leadsync/internal/providers/brevo"
	"github.com/wolfman30/leadsync/internal/providers/crm"
	"github.com/wolfman30/leadsync/internal/providers/mailchimp"
	"github.com/wolfman30/leadsync/internal/providers/mailerlite"
	"github.com/wolfman30/leadsync/internal/providers/sheets"
	"github.com/wolfman30/leadsync/internal/resilient"
	"github.com/wolfman30/leadsync/pkg/logging"
)

// Providers are the adapters for one deployment. Unconfigured entries are
// nil interfaces.
type Providers struct {
	CRM       leads.Adapter
	Marketing leads.Adapter
	Backup    leads.Adapter
	Updater   leads.StatusUpdater
}

// BuildProviders constructs every adapter the configuration enables.
func BuildProviders(ctx context.Context, cfg *appconfig.Config, client *resilient.Client, cache groups.Cache, logger *logging.Logger, sheetsOpts ...option.ClientOption) (Providers, error) {
	if cfg == nil {
		return Providers{}, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	var p Providers

	if a := crm.NewAdapter(crm.Config{
		WebhookURL: cfg.CRMWebhookURL,
		Source:     cfg.LeadSource,
		Policy:     resilient.Policy{MaxRetries: cfg.CRMMaxRetries, Timeout: cfg.CRMTimeout},
	}, client, logger); a != nil {
		p.CRM = a
	}

	marketing, err := buildMarketing(cfg, client, cache, logger)
	if err != nil {
		return Providers{}, err
	}
	p.Marketing = marketing

	backup, err := buildBackup(ctx, cfg, client, logger, sheetsOpts...)
	if err != nil {
		return Providers{}, err
	}
	p.Backup = backup

	p.Updater, err = pickUpdater(cfg.BookingUpdateProvider, p)
	if err != nil {
		return Providers{}, err
	}

	logger.Info("providers configured",
		"crm", p.CRM != nil,
		"marketing", providerName(p.Marketing),
		"backup", p.Backup != nil,
		"booking_updates", updaterName(p.Updater),
	)
	return p, nil
}

func buildMarketing(cfg *appconfig.Config, client *resilient.Client, cache groups.Cache, logger *logging.Logger) (leads.Adapter, error) {
	policy := resilient.Policy{MaxRetries: cfg.MarketingMaxRetries, Timeout: cfg.MarketingTimeout}
	updatePolicy := resilient.Policy{MaxRetries: cfg.MarketingMaxRetries, Timeout: cfg.BookingUpdateTimeout}

	switch cfg.MarketingPlatform {
	case "", "none":
		return nil, nil
	case "brevo":
		var listID int64
		if raw := strings.TrimSpace(cfg.MarketingListID); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bootstrap: brevo list id %q: %w", raw, err)
			}
			listID = id
		}
		if a := brevo.NewAdapter(brevo.Config{
			APIKey:       cfg.MarketingAPIKey,
			ListID:       listID,
			BaseURL:      cfg.BrevoBaseURL,
			Source:       cfg.LeadSource,
			Policy:       policy,
			UpdatePolicy: updatePolicy,
		}, client, logger); a != nil {
			return a, nil
		}
	case "mailerlite":
		if a := mailerlite.NewAdapter(mailerlite.Config{
			APIKey:       cfg.MarketingAPIKey,
			BaseGroupID:  strings.TrimSpace(cfg.MarketingListID),
			BaseURL:      cfg.MailerLiteBaseURL,
			Source:       cfg.LeadSource,
			Policy:       policy,
			UpdatePolicy: updatePolicy,
		}, client, cache, logger); a != nil {
			return a, nil
		}
	case "mailchimp":
		a, err := mailchimp.NewAdapter(mailchimp.Config{
			APIKey:       cfg.MarketingAPIKey,
			AudienceID:   strings.TrimSpace(cfg.MarketingListID),
			BaseURL:      cfg.MailchimpBaseURL,
			Policy:       policy,
			UpdatePolicy: updatePolicy,
		}, client, logger)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		if a != nil {
			return a, nil
		}
	default:
		return nil, fmt.Errorf("bootstrap: unknown marketing platform %q", cfg.MarketingPlatform)
	}
	logger.Warn("marketing platform selected but not configured", "platform", cfg.MarketingPlatform)
	return nil, nil
}

// buildBackup prefers the Sheets API over the webhook when both are set.
func buildBackup(ctx context.Context, cfg *appconfig.Config, client *resilient.Client, logger *logging.Logger, opts ...option.ClientOption) (leads.Adapter, error) {
	api, err := sheets.NewAPIAdapter(ctx, sheets.APIConfig{
		SpreadsheetID:   cfg.GoogleSheetsSpreadsheetID,
		Range:           cfg.GoogleSheetsRange,
		CredentialsFile: cfg.GoogleCredentialsFile,
		Source:          cfg.LeadSource,
	}, client, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	if api != nil {
		return api, nil
	}
	if hook := sheets.NewWebhookAdapter(sheets.WebhookConfig{
		URL:    cfg.BackupWebhookURL,
		Source: cfg.LeadSource,
	}, client, logger); hook != nil {
		return hook, nil
	}
	return nil, nil
}

// pickUpdater chooses who receives booking status changes. "auto" prefers
// the marketing platform and falls back to the CRM webhook.
func pickUpdater(choice string, p Providers) (leads.StatusUpdater, error) {
	marketing, _ := p.Marketing.(leads.StatusUpdater)
	crmUpdater, _ := p.CRM.(leads.StatusUpdater)
	switch choice {
	case "", "auto":
		if marketing != nil {
			return marketing, nil
		}
		return crmUpdater, nil
	case "marketing":
		return marketing, nil
	case "crm":
		return crmUpdater, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown booking update provider %q", choice)
	}
}

func providerName(a leads.Adapter) string {
	if a == nil {
		return "none"
	}
	return a.Name()
}

func updaterName(u leads.StatusUpdater) string {
	if u == nil {
		return "none"
	}
	return u.Name()
}
