package sorawebhook

import (
	"context"
	"encoding/json"

	"github.com/cctvmagic/videomagic-backend/pkg/db/models"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
	"github.com/cctvmagic/videomagic-backend/pkg/metrics"
	"github.com/cctvmagic/videomagic-backend/pkg/sora"
)

const metricsSource = "sora"

// resolver settles the owning row against the provider's terminal state.
type resolver interface {
	ResolveByJobID(ctx context.Context, jobID string) (*models.VideoJob, error)
}

// ServiceParams wires the webhook processor dependencies.
type ServiceParams struct {
	Resolver resolver
	Metrics  *metrics.PlatformMetrics
	Logger   *logger.Logger
}

// Service applies provider completion notifications. The webhook is a hint;
// the row's actual fate always comes from re-reading the provider, so a
// spoofed or stale payload cannot flip a job's state.
type Service struct {
	resolver resolver
	metrics  *metrics.PlatformMetrics
	logg     *logger.Logger
}

// NewService validates dependencies and returns the processor.
func NewService(params ServiceParams) (*Service, error) {
	if params.Resolver == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "resolver required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		resolver: params.Resolver,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// HandleBody decodes and applies one verified webhook delivery.
func (s *Service) HandleBody(ctx context.Context, body []byte) error {
	var event sora.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decoding webhook payload")
	}
	return s.HandleEvent(ctx, &event)
}

// HandleEvent settles the row named by the event. Events for unknown or
// already-settled jobs are acknowledged so the provider stops retrying.
func (s *Service) HandleEvent(ctx context.Context, event *sora.WebhookEvent) error {
	if event == nil || event.Data.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook event carries no job id")
	}

	switch event.Type {
	case sora.EventVideoCompleted, sora.EventVideoFailed:
	default:
		s.metrics.IncWebhookSkipped(metricsSource, "unhandled_type")
		return nil
	}

	ctx = s.logg.WithJobID(ctx, event.Data.ID)
	job, err := s.resolver.ResolveByJobID(ctx, event.Data.ID)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			s.metrics.IncWebhookSkipped(metricsSource, "no_active_job")
			s.logg.Info(ctx, "webhook for unknown or settled job")
			return nil
		}
		return err
	}

	s.metrics.IncWebhookHandled(metricsSource)
	s.logg.Info(s.logg.WithVideoID(ctx, job.ID.String()), "webhook settled job")
	return nil
}
