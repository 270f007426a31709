package leads

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/wolfman30/leadsync/internal/observability/metrics"
	"github.com/wolfman30/leadsync/internal/tasks"
	"github.com/wolfman30/leadsync/pkg/logging"
)

var tracer = otel.Tracer("leadsync.internal.leads")

// OrchestratorConfig wires the adapters behind one submission. Any adapter
// may be nil, meaning it is not configured for this deployment.
type OrchestratorConfig struct {
	CRM          Adapter
	Marketing    Adapter
	Backup       Adapter
	Confirmation Confirmation
	Tasks        BackgroundRunner
	Metrics      *metrics.LeadMetrics
	Logger       *logging.Logger
}

// Orchestrator fans a lead out to the CRM and the marketing platform and
// reduces their results into one SubmissionOutcome.
type Orchestrator struct {
	crm       Adapter
	marketing Adapter
	backup    Adapter
	confirm   Confirmation
	tasks     BackgroundRunner
	metrics   *metrics.LeadMetrics
	logger    *logging.Logger
}

// NewOrchestrator builds an Orchestrator. Without an explicit runner, a
// private tasks.Runner handles background work.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	runner := cfg.Tasks
	if runner == nil {
		runner = tasks.NewRunner(logger, cfg.Metrics)
	}
	if cfg.CRM == nil {
		logger.Warn("crm adapter not configured; submissions will skip it")
	}
	if cfg.Marketing == nil {
		logger.Warn("marketing platform adapter not configured; submissions will skip it")
	}
	return &Orchestrator{
		crm:       cfg.CRM,
		marketing: cfg.Marketing,
		backup:    cfg.Backup,
		confirm:   cfg.Confirmation,
		tasks:     runner,
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// SubmitLead syncs lead to every configured provider. It never returns an
// error; every failure is folded into the outcome.
func (o *Orchestrator) SubmitLead(ctx context.Context, lead LeadRecord) SubmissionOutcome {
	ctx, span := tracer.Start(ctx, "leads.submit")
	defer span.End()
	span.SetAttributes(attribute.String("leadsync.service", lead.InterestedService))

	if o.backup != nil {
		backup := o.backup
		o.tasks.Go(ctx, "backup", func(ctx context.Context) error {
			res := o.invoke(ctx, backup, lead)
			if res.OK {
				return nil
			}
			return fmt.Errorf("%s backup failed: %w", res.Provider, resultErr(res))
		})
	}

	var crmRes, marketingRes ProviderResult
	var g errgroup.Group
	g.Go(func() error {
		crmRes = o.invoke(ctx, o.crm, lead)
		return nil
	})
	g.Go(func() error {
		marketingRes = o.invoke(ctx, o.marketing, lead)
		return nil
	})
	_ = g.Wait()

	outcome := Aggregate(crmRes, marketingRes)
	label := outcomeLabel(outcome)
	o.metrics.ObserveSubmission(label)
	span.SetAttributes(
		attribute.String("leadsync.outcome", label),
		attribute.String("leadsync.crm", crmRes.Status()),
		attribute.String("leadsync.marketing", marketingRes.Status()),
	)

	switch {
	case outcome.Success:
		if crmRes.OK {
			o.logger.Info("lead synced to crm", "email", lead.Email)
		}
		if marketingRes.OK {
			o.logger.Info("lead synced to marketing platform", "provider", marketingRes.Provider, "email", lead.Email)
		}
		if o.confirm != nil {
			confirm := o.confirm
			o.tasks.Go(ctx, "confirmation_email", func(ctx context.Context) error {
				return confirm.Confirm(ctx, lead)
			})
		}
	case outcome.Field != "":
		o.logger.Warn("lead rejected with field conflict", "field", outcome.Field, "provider", marketingRes.Provider)
	default:
		o.logger.Error("lead reached no system of record",
			"crm_status", crmRes.Status(),
			"marketing_status", marketingRes.Status(),
		)
	}
	return outcome
}

// Aggregate applies the success policy: a marketing-platform field conflict
// wins over everything, then either provider succeeding is a success.
func Aggregate(crm, marketing ProviderResult) SubmissionOutcome {
	if marketing.ConflictField != "" {
		msg := marketing.ConflictMessage
		if msg == "" {
			msg = conflictMessage(marketing.ConflictField)
		}
		return SubmissionOutcome{Success: false, Field: marketing.ConflictField, Error: msg}
	}
	if crm.OK || marketing.OK {
		return SubmissionOutcome{Success: true}
	}
	return SubmissionOutcome{Success: false, Error: GenericFailureMessage}
}

func conflictMessage(field string) string {
	if field == FieldPhone {
		return PhoneConflictMessage
	}
	return fmt.Sprintf("This %s is already registered.", field)
}

func outcomeLabel(o SubmissionOutcome) string {
	switch {
	case o.Success:
		return "success"
	case o.Field != "":
		return "conflict"
	default:
		return "failure"
	}
}

// invoke runs one adapter, converting absence and panics into results.
func (o *Orchestrator) invoke(ctx context.Context, a Adapter, lead LeadRecord) (res ProviderResult) {
	if a == nil {
		return ProviderResult{Skipped: true}
	}
	name := a.Name()
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = Failed(name, fmt.Errorf("adapter panic: %v", r))
		}
		if res.Provider == "" {
			res.Provider = name
		}
		o.metrics.ObserveProvider(name, res.Status(), time.Since(start).Seconds())
		if res.Err != nil {
			o.logger.Error("provider sync failed", "provider", name, "error", res.Err)
		}
	}()
	return a.Send(ctx, lead)
}

func resultErr(res ProviderResult) error {
	if res.Err != nil {
		return res.Err
	}
	if res.ConflictField != "" {
		return fmt.Errorf("conflict on %s", res.ConflictField)
	}
	return fmt.Errorf("status %s", res.Status())
}
