package reconciler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/cctvmagic/videomagic-backend/internal/credits"
	"github.com/cctvmagic/videomagic-backend/internal/videos"
	"github.com/cctvmagic/videomagic-backend/pkg/config"
	"github.com/cctvmagic/videomagic-backend/pkg/db/models"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
	"github.com/cctvmagic/videomagic-backend/pkg/metrics"
	"github.com/cctvmagic/videomagic-backend/pkg/sora"
)

// abandonAfter is how long a row may sit non-terminal before the sweeper
// gives up on the provider and fails it with a refund.
const abandonAfter = 24 * time.Hour

// timeoutMessage is stored on rows the sweeper abandons.
const timeoutMessage = "video generation timed out"

// provider is the slice of the Sora client reconciliation needs.
type provider interface {
	GetVideo(ctx context.Context, videoID string) (*sora.Video, error)
	DownloadContent(ctx context.Context, videoID string) (io.ReadCloser, string, error)
}

// uploader relocates finished videos into durable storage.
type uploader interface {
	UploadVideo(ctx context.Context, userID, videoID string, content io.Reader) (string, error)
}

// Service settles in-flight jobs against the provider's state. All paths are
// idempotent: the row's guarded terminal transition decides which caller wins
// when the poller, webhook and sweeper race.
type Service interface {
	Resolve(ctx context.Context, videoID uuid.UUID) (*models.VideoJob, error)
	ResolveByJobID(ctx context.Context, jobID string) (*models.VideoJob, error)
	StartPolling(videoID uuid.UUID)
	Sweep(ctx context.Context) error
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Videos  videos.Service
	Credits credits.Service
	Sora    provider
	Storage uploader
	Metrics *metrics.PlatformMetrics
	Logger  *logger.Logger
	Config  config.GenerationConfig
}

type service struct {
	videos  videos.Service
	credits credits.Service
	sora    provider
	storage uploader
	metrics *metrics.PlatformMetrics
	logg    *logger.Logger
	cfg     config.GenerationConfig
}

// NewService validates dependencies and returns a reconciler.
func NewService(params ServiceParams) (Service, error) {
	if params.Videos == nil {
		return nil, fmt.Errorf("videos service required")
	}
	if params.Credits == nil {
		return nil, fmt.Errorf("credits service required")
	}
	if params.Sora == nil {
		return nil, fmt.Errorf("sora client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		videos:  params.Videos,
		credits: params.Credits,
		sora:    params.Sora,
		storage: params.Storage,
		metrics: params.Metrics,
		logg:    params.Logger,
		cfg:     params.Config,
	}, nil
}

// Resolve reads the provider's current state for the row and applies it.
// Rows that are already terminal or still in flight come back unchanged.
func (s *service) Resolve(ctx context.Context, videoID uuid.UUID) (*models.VideoJob, error) {
	job, err := s.videos.Get(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, job)
}

// ResolveByJobID settles the non-terminal row owning the provider job id.
// Used by the inbound webhook, which only knows the provider's identifier.
func (s *service) ResolveByJobID(ctx context.Context, jobID string) (*models.VideoJob, error) {
	job, err := s.videos.FindActiveByJobID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return s.settle(ctx, job)
}

func (s *service) settle(ctx context.Context, job *models.VideoJob) (*models.VideoJob, error) {
	if job.Status.IsTerminal() {
		return job, nil
	}
	if job.JobID == nil || *job.JobID == "" {
		// Row was created but never reached the provider; only the
		// submission path can settle it.
		return job, nil
	}
	ctx = s.logg.WithVideoID(ctx, job.ID.String())
	ctx = s.logg.WithJobID(ctx, *job.JobID)

	remote, err := s.sora.GetVideo(ctx, *job.JobID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reading provider job state")
	}

	switch {
	case remote.Status == sora.StatusCompleted:
		return s.complete(ctx, job)
	case remote.Status == sora.StatusFailed:
		return s.fail(ctx, job, remote.FailureMessage())
	default:
		return job, nil
	}
}

// complete relocates the finished video and marks the row completed. When the
// relocation fails the row still completes with the content proxy path, so
// the user is never blocked on storage.
func (s *service) complete(ctx context.Context, job *models.VideoJob) (*models.VideoJob, error) {
	videoURL := ContentProxyPath(job.ID)
	if s.storage != nil {
		url, err := s.relocate(ctx, job)
		if err != nil {
			s.logg.Error(ctx, "relocating video, serving via proxy", err)
		} else {
			videoURL = url
		}
	}

	transitioned, err := s.videos.Complete(ctx, job.ID, videoURL)
	if err != nil {
		return nil, err
	}
	if transitioned {
		s.metrics.IncGenerationCompleted()
		s.logg.Info(ctx, "generation completed")
	}
	return s.videos.Get(ctx, job.ID)
}

func (s *service) relocate(ctx context.Context, job *models.VideoJob) (string, error) {
	content, _, err := s.sora.DownloadContent(ctx, *job.JobID)
	if err != nil {
		return "", err
	}
	defer content.Close()
	return s.storage.UploadVideo(ctx, job.UserID.String(), job.ID.String(), content)
}

// fail marks the row failed and refunds the debit. The refund rides on the
// guarded transition: losing the transition race means another caller already
// refunded.
func (s *service) fail(ctx context.Context, job *models.VideoJob, message string) (*models.VideoJob, error) {
	transitioned, err := s.videos.Fail(ctx, job.ID, message)
	if err != nil {
		return nil, err
	}
	if transitioned {
		s.metrics.IncGenerationFailed()
		if err := s.credits.Refund(ctx, job.UserID, job.CreditCost); err != nil {
			s.logg.Error(ctx, "refunding failed generation", err)
		} else {
			s.metrics.AddCreditsRefunded(job.CreditCost)
		}
		s.logg.Warn(ctx, "generation failed: "+message)
	}
	return s.videos.Get(ctx, job.ID)
}

// StartPolling watches the job in the background until it settles or the
// attempt budget runs out. Rows the poller abandons are picked up by the
// sweeper.
func (s *service) StartPolling(videoID uuid.UUID) {
	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	attempts := s.cfg.PollMaxAttempts
	if attempts <= 0 {
		attempts = 60
	}

	go func() {
		ctx := context.Background()
		ctx = s.logg.WithVideoID(ctx, videoID.String())

		backoff := retry.WithMaxRetries(uint64(attempts), retry.NewConstant(interval))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			job, err := s.Resolve(ctx, videoID)
			if err != nil {
				return retry.RetryableError(err)
			}
			if !job.Status.IsTerminal() {
				return retry.RetryableError(fmt.Errorf("job still in flight"))
			}
			return nil
		})
		if err != nil {
			s.logg.Warn(ctx, "poll budget exhausted, leaving row for sweeper")
		}
	}()
}

// Sweep settles rows that have been processing longer than the poll budget
// and abandons rows the provider never finished.
func (s *service) Sweep(ctx context.Context) error {
	budget := s.cfg.PollInterval * time.Duration(s.cfg.PollMaxAttempts)
	if budget <= 0 {
		budget = 5 * time.Minute
	}

	stale, err := s.videos.ListStaleProcessing(ctx, time.Now().Add(-budget), 100)
	if err != nil {
		return err
	}
	for i := range stale {
		job := &stale[i]
		if time.Since(job.CreatedAt) > abandonAfter {
			if _, err := s.fail(ctx, job, timeoutMessage); err != nil {
				s.logg.Error(ctx, "abandoning stale job", err)
			}
			continue
		}
		if _, err := s.settle(ctx, job); err != nil {
			s.logg.Error(ctx, "sweeping stale job", err)
		}
	}
	return nil
}

// ContentProxyPath is the API route that streams the video straight from the
// provider when storage relocation is unavailable.
func ContentProxyPath(videoID uuid.UUID) string {
	return fmt.Sprintf("/api/video/%s/content", videoID)
}
