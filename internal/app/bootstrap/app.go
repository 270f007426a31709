package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"github.com/wolfman30/leadsync/internal/api/router"
	"github.com/wolfman30/leadsync/internal/calcom"
	appconfig "github.com/wolfman30/leadsync/internal/config"
	"github.com/wolfman30/leadsync/internal/leads"
	"github.com/wolfman30/leadsync/internal/observability/metrics"
	"github.com/wolfman30/leadsync/internal/resilient"
	"github.com/wolfman30/leadsync/internal/tasks"
	"github.com/wolfman30/leadsync/pkg/logging"
)

// Options carries process-level dependencies that differ between the API
// server, the Lambda entrypoint and tests.
type Options struct {
	Registerer     prometheus.Registerer
	MetricsHandler http.Handler
	HTTPClient     *http.Client
	AWSLoader      AWSConfigLoader
	VerifyRedis    bool
	SheetsOptions  []option.ClientOption
}

// App is the fully wired lead sync service.
type App struct {
	Handler      http.Handler
	Orchestrator *leads.Orchestrator
	Booking      *leads.BookingUpdater
	CalWebhook   *calcom.Handler
	Tasks        *tasks.Runner
	Metrics      *metrics.LeadMetrics
	Providers    Providers

	redis  *redis.Client
	logger *logging.Logger
}

// New builds the App from configuration.
func New(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	leadMetrics := metrics.NewLeadMetrics(opts.Registerer)

	clientOpts := []resilient.Option{resilient.WithRetryObserver(leadMetrics)}
	if opts.HTTPClient != nil {
		clientOpts = append(clientOpts, resilient.WithHTTPClient(opts.HTTPClient))
	}
	client := resilient.NewClient(logger, clientOpts...)

	redisClient := BuildRedisClient(ctx, cfg, logger, opts.VerifyRedis)
	cache := BuildGroupCache(redisClient, cfg, logger)

	providers, err := BuildProviders(ctx, cfg, client, cache, logger, opts.SheetsOptions...)
	if err != nil {
		closeRedis(redisClient)
		return nil, err
	}
	confirmation, err := BuildConfirmation(ctx, cfg, client, opts.AWSLoader, logger)
	if err != nil {
		closeRedis(redisClient)
		return nil, err
	}

	runner := tasks.NewRunner(logger, leadMetrics, tasks.WithTimeout(cfg.BackgroundTaskTimeout))
	orchestrator := leads.NewOrchestrator(leads.OrchestratorConfig{
		CRM:          providers.CRM,
		Marketing:    providers.Marketing,
		Backup:       providers.Backup,
		Confirmation: confirmation,
		Tasks:        runner,
		Metrics:      leadMetrics,
		Logger:       logger,
	})
	booking := leads.NewBookingUpdater(providers.Updater, logger)
	validator := leads.NewValidator(leads.PhoneRules{
		Format: leads.PhoneFormat(cfg.PhoneFormat),
		Digits: cfg.PhoneDigits,
		Region: cfg.PhoneRegion,
	})
	calHandler := calcom.NewHandler(cfg.CalWebhookSecret, booking, logger)

	handler := router.New(&router.Config{
		Logger:             logger,
		LeadsHandler:       leads.NewHandler(orchestrator, booking, validator, logger),
		CalWebhook:         calHandler,
		MetricsHandler:     opts.MetricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})

	return &App{
		Handler:      handler,
		Orchestrator: orchestrator,
		Booking:      booking,
		CalWebhook:   calHandler,
		Tasks:        runner,
		Metrics:      leadMetrics,
		Providers:    providers,
		redis:        redisClient,
		logger:       logger,
	}, nil
}

// Shutdown drains background tasks and releases the Redis connection.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Tasks.Wait(ctx); err != nil {
		errs = append(errs, fmt.Errorf("bootstrap: drain background tasks: %w", err))
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("bootstrap: close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

func closeRedis(c *redis.Client) {
	if c != nil {
		_ = c.Close()
	}
}
