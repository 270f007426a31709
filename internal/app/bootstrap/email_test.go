package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/wolfman30/leadsync/internal/notify"
	"github.com/wolfman30/leadsync/pkg/logging"
)

func TestBuildConfirmationWithoutTemplate(t *testing.T) {
	cfg := testConfig()
	cfg.EmailProvider = "stub"
	conf, err := BuildConfirmation(context.Background(), cfg, nil, nil, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf != nil {
		t.Fatalf("expected nil confirmation without template, got %T", conf)
	}
}

func TestBuildConfirmationProviders(t *testing.T) {
	cfg := testConfig()
	cfg.EmailTemplateID = "12"

	cfg.EmailProvider = "stub"
	conf, err := BuildConfirmation(context.Background(), cfg, nil, nil, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := conf.(*notify.Confirmer); !ok {
		t.Fatalf("expected confirmer, got %T", conf)
	}

	cfg.EmailProvider = "auto"
	conf, err = BuildConfirmation(context.Background(), cfg, nil, nil, logging.New("error"))
	if err != nil || conf != nil {
		t.Fatalf("expected auto with no credentials to disable confirmations, got %T %v", conf, err)
	}

	cfg.MarketingAPIKey = "xkeysib-test"
	conf, err = BuildConfirmation(context.Background(), cfg, nil, nil, logging.New("error"))
	if err != nil || conf == nil {
		t.Fatalf("expected auto to fall back to brevo, got %T %v", conf, err)
	}
}

func TestBuildConfirmationErrors(t *testing.T) {
	cases := map[string]func() error{
		"sendgrid without key": func() error {
			cfg := testConfig()
			cfg.EmailTemplateID = "d-123"
			cfg.EmailProvider = "sendgrid"
			_, err := BuildConfirmation(context.Background(), cfg, nil, nil, logging.New("error"))
			return err
		},
		"ses without loader": func() error {
			cfg := testConfig()
			cfg.EmailTemplateID = "lead-confirmation"
			cfg.EmailProvider = "ses"
			_, err := BuildConfirmation(context.Background(), cfg, nil, nil, logging.New("error"))
			return err
		},
		"ses loader fails": func() error {
			cfg := testConfig()
			cfg.EmailTemplateID = "lead-confirmation"
			cfg.EmailProvider = "ses"
			loader := func(context.Context) (aws.Config, error) { return aws.Config{}, errors.New("no credentials") }
			_, err := BuildConfirmation(context.Background(), cfg, nil, loader, logging.New("error"))
			return err
		},
		"unknown provider": func() error {
			cfg := testConfig()
			cfg.EmailTemplateID = "12"
			cfg.EmailProvider = "postmark"
			_, err := BuildConfirmation(context.Background(), cfg, nil, nil, logging.New("error"))
			return err
		},
	}
	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			if err := run(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestBuildConfirmationSES(t *testing.T) {
	cfg := testConfig()
	cfg.EmailTemplateID = "lead-confirmation"
	cfg.EmailProvider = "ses"
	cfg.EmailFrom = "hello@leadsync.dev"
	cfg.AWSEndpointOverride = "http://localhost:4566"
	loader := func(context.Context) (aws.Config, error) { return aws.Config{Region: "us-east-1"}, nil }

	conf, err := BuildConfirmation(context.Background(), cfg, nil, loader, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conf == nil {
		t.Fatalf("expected ses confirmation")
	}
}
