package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	appconfig "github.com/wolfman30/leadsync/internal/config"
	"github.com/wolfman30/leadsync/internal/leads"
	"github.com/wolfman30/leadsync/internal/notify"
	"github.com/wolfman30/leadsync/internal/resilient"
	"github.com/wolfman30/leadsync/pkg/logging"
)

// AWSConfigLoader loads SDK configuration on demand so deployments without
// SES never touch AWS credentials.
type AWSConfigLoader func(ctx context.Context) (aws.Config, error)

// BuildConfirmation wires the optional post-submission email. It returns a
// nil interface when no template or sender is configured.
func BuildConfirmation(ctx context.Context, cfg *appconfig.Config, client *resilient.Client, loadAWS AWSConfigLoader, logger *logging.Logger) (leads.Confirmation, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.EmailTemplateID) == "" {
		return nil, nil
	}

	sender, err := buildSender(ctx, cfg, client, loadAWS, logger)
	if err != nil {
		return nil, err
	}
	if sender == nil {
		logger.Warn("email template configured but no email provider available; confirmations disabled")
		return nil, nil
	}

	confirmer := notify.NewConfirmer(sender, notify.ConfirmerConfig{
		TemplateID: cfg.EmailTemplateID,
		CC:         notify.ParseCCList(cfg.EmailCC),
	}, logger)
	if confirmer == nil {
		return nil, nil
	}
	return confirmer, nil
}

func buildSender(ctx context.Context, cfg *appconfig.Config, client *resilient.Client, loadAWS AWSConfigLoader, logger *logging.Logger) (notify.TemplateSender, error) {
	provider := cfg.EmailProvider
	if provider == "" || provider == "auto" {
		switch {
		case cfg.SendGridAPIKey != "":
			provider = "sendgrid"
		case cfg.MarketingPlatform == "brevo" && cfg.MarketingAPIKey != "":
			provider = "brevo"
		default:
			return nil, nil
		}
	}

	switch provider {
	case "none", "disabled":
		return nil, nil
	case "stub":
		return notify.NewStubEmailSender(logger), nil
	case "sendgrid":
		s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
		if s == nil {
			return nil, fmt.Errorf("bootstrap: EMAIL_PROVIDER=sendgrid requires SENDGRID_API_KEY")
		}
		return s, nil
	case "brevo":
		s := notify.NewBrevoSender(notify.BrevoConfig{
			APIKey:  cfg.MarketingAPIKey,
			BaseURL: cfg.BrevoBaseURL,
		}, client, logger)
		if s == nil {
			return nil, fmt.Errorf("bootstrap: EMAIL_PROVIDER=brevo requires MARKETING_API_KEY")
		}
		return s, nil
	case "ses":
		if loadAWS == nil {
			return nil, fmt.Errorf("bootstrap: EMAIL_PROVIDER=ses requires AWS configuration")
		}
		awsCfg, err := loadAWS(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		sesClient := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
			if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		})
		return notify.NewSESSender(sesClient, notify.SESConfig{
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown email provider %q", provider)
	}
}
