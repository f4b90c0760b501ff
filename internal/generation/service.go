package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/cctvmagic/videomagic-backend/internal/catalog"
	"github.com/cctvmagic/videomagic-backend/internal/credits"
	"github.com/cctvmagic/videomagic-backend/internal/users"
	"github.com/cctvmagic/videomagic-backend/internal/videos"
	"github.com/cctvmagic/videomagic-backend/pkg/config"
	"github.com/cctvmagic/videomagic-backend/pkg/db/models"
	"github.com/cctvmagic/videomagic-backend/pkg/enums"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
	"github.com/cctvmagic/videomagic-backend/pkg/metrics"
	"github.com/cctvmagic/videomagic-backend/pkg/sora"
)

// submitter is the slice of the provider client Submit needs.
type submitter interface {
	Create(ctx context.Context, req sora.CreateRequest) (*sora.Video, error)
}

// resolver settles a job against the provider's terminal state and runs the
// background poll loop for jobs that stay in flight.
type resolver interface {
	Resolve(ctx context.Context, videoID uuid.UUID) (*models.VideoJob, error)
	StartPolling(videoID uuid.UUID)
}

// SubmitInput is one generation attempt as received from the API surface.
// Duration and size arrive raw and are validated here so the handler stays
// thin.
type SubmitInput struct {
	UserID   uuid.UUID
	Email    string
	Prompt   string
	Model    string
	Size     string
	Duration int

	ImageData     []byte
	ImageFileName string
}

// Service orchestrates credit debits and provider submissions.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.VideoJob, error)
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Users    users.Service
	Credits  credits.Service
	Videos   videos.Service
	Sora     submitter
	Resolver resolver
	Metrics  *metrics.PlatformMetrics
	Logger   *logger.Logger
	Config   config.GenerationConfig
}

type service struct {
	users    users.Service
	credits  credits.Service
	videos   videos.Service
	sora     submitter
	resolver resolver
	metrics  *metrics.PlatformMetrics
	logg     *logger.Logger
	cfg      config.GenerationConfig
}

// NewService validates dependencies and returns a generation service.
func NewService(params ServiceParams) (Service, error) {
	if params.Users == nil {
		return nil, fmt.Errorf("users service required")
	}
	if params.Credits == nil {
		return nil, fmt.Errorf("credits service required")
	}
	if params.Videos == nil {
		return nil, fmt.Errorf("videos service required")
	}
	if params.Sora == nil {
		return nil, fmt.Errorf("sora client required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		users:    params.Users,
		credits:  params.Credits,
		videos:   params.Videos,
		sora:     params.Sora,
		resolver: params.Resolver,
		metrics:  params.Metrics,
		logg:     params.Logger,
		cfg:      params.Config,
	}, nil
}

// Submit debits the model's credit cost, records a processing row and hands
// the job to the provider. A provider rejection fails the row and refunds the
// debit in full. When the provider finishes synchronously the returned row is
// already terminal; otherwise a background poll loop takes over.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.VideoJob, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prompt is required")
	}
	model, err := enums.ParseVideoModel(input.Model)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid model")
	}
	size, err := enums.ParseVideoSize(input.Size)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid size")
	}
	duration, err := enums.ParseVideoDuration(input.Duration)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid duration")
	}

	var (
		imageData     []byte
		imageFileName string
	)
	if len(input.ImageData) > 0 {
		imageData, imageFileName, err = prepareReferenceImage(
			input.ImageData, input.ImageFileName, size, s.cfg.MaxImageBytes)
		if err != nil {
			return nil, err
		}
	}

	if err := s.users.EnsureExists(ctx, input.UserID, input.Email); err != nil {
		return nil, err
	}

	cost := catalog.CreditCost(model)
	if err := s.credits.Debit(ctx, input.UserID, cost); err != nil {
		return nil, err
	}
	s.metrics.AddCreditsDebited(cost)

	job, err := s.videos.CreateProcessing(ctx, videos.CreateJobInput{
		UserID:        input.UserID,
		Prompt:        prompt,
		ImageFileName: imageFileName,
		Duration:      duration,
		Model:         model,
		Size:          size,
		CreditCost:    cost,
	})
	if err != nil {
		s.refund(ctx, input.UserID, cost)
		return nil, err
	}
	ctx = s.logg.WithVideoID(ctx, job.ID.String())

	created, err := s.sora.Create(ctx, sora.CreateRequest{
		Prompt:        prompt,
		Model:         model.String(),
		Size:          size.String(),
		Seconds:       duration.Seconds(),
		ImageData:     imageData,
		ImageFileName: imageFileName,
		ImageMIMEType: "image/jpeg",
	})
	if err != nil {
		s.logg.Error(ctx, "provider rejected generation", err)
		if _, failErr := s.videos.Fail(ctx, job.ID, providerMessage(err)); failErr != nil {
			s.logg.Error(ctx, "failing rejected job", failErr)
		}
		s.refund(ctx, input.UserID, cost)
		s.metrics.IncGenerationFailed()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, providerMessage(err))
	}

	if err := s.videos.AttachJobID(ctx, job.ID, created.ID); err != nil {
		return nil, err
	}
	job.JobID = &created.ID
	s.metrics.IncGenerationSubmitted(model.String())
	s.logg.Info(s.logg.WithJobID(ctx, created.ID), "generation submitted")

	if created.Terminal() {
		return s.resolver.Resolve(ctx, job.ID)
	}

	s.resolver.StartPolling(job.ID)
	return job, nil
}

func (s *service) refund(ctx context.Context, userID uuid.UUID, amount int) {
	if err := s.credits.Refund(ctx, userID, amount); err != nil {
		s.logg.Error(ctx, "refund after failed submission", err)
		return
	}
	s.metrics.AddCreditsRefunded(amount)
}

// providerMessage extracts the provider's own failure text when present.
func providerMessage(err error) string {
	var apiErr *sora.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "video generation request was rejected"
}
