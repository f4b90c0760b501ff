package videos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cctvmagic/videomagic-backend/pkg/db/models"
	"github.com/cctvmagic/videomagic-backend/pkg/enums"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
)

// RecentListLimit caps the dashboard's recent-videos view.
const RecentListLimit = 5

// CreateJobInput captures the data a new generation attempt requires.
// CreditCost is the amount debited for this attempt; refunds restore it
// exactly.
type CreateJobInput struct {
	UserID        uuid.UUID
	Prompt        string
	ImageFileName string
	Duration      enums.VideoDuration
	Model         enums.VideoModel
	Size          enums.VideoSize
	CreditCost    int
}

// Service exposes the video history surface.
type Service interface {
	CreateProcessing(ctx context.Context, input CreateJobInput) (*models.VideoJob, error)
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.VideoJob, error)
	Get(ctx context.Context, id uuid.UUID) (*models.VideoJob, error)
	FindActiveByJobID(ctx context.Context, jobID string) (*models.VideoJob, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.VideoJob, error)
	ListRecentByUser(ctx context.Context, userID uuid.UUID) ([]models.VideoJob, error)
	ListStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]models.VideoJob, error)
	AttachJobID(ctx context.Context, id uuid.UUID, jobID string) error
	Complete(ctx context.Context, id uuid.UUID, videoURL string) (bool, error)
	Fail(ctx context.Context, id uuid.UUID, errorMessage string) (bool, error)
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService validates dependencies and returns a videos service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("videos repository required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) CreateProcessing(ctx context.Context, input CreateJobInput) (*models.VideoJob, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Prompt == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prompt is required")
	}
	if !input.Duration.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported duration")
	}
	if !input.Model.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported model")
	}
	if !input.Size.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported size")
	}
	if input.CreditCost <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit cost must be positive")
	}

	job := &models.VideoJob{
		UserID:     input.UserID,
		Prompt:     input.Prompt,
		Duration:   input.Duration.Seconds(),
		Model:      input.Model,
		Size:       input.Size,
		CreditCost: input.CreditCost,
		Status:     enums.VideoStatusProcessing,
	}
	if input.ImageFileName != "" {
		name := input.ImageFileName
		job.ImageFileName = &name
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating video job")
	}
	return job, nil
}

func (s *service) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.VideoJob, error) {
	if id == uuid.Nil || userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "video id and user id are required")
	}
	job, err := s.repo.FindByIDForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "video not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading video")
	}
	return job, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.VideoJob, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "video id is required")
	}
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "video not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading video")
	}
	return job, nil
}

func (s *service) FindActiveByJobID(ctx context.Context, jobID string) (*models.VideoJob, error) {
	if jobID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job id is required")
	}
	job, err := s.repo.FindActiveByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active job for id")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolving job id")
	}
	return job, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.VideoJob, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	jobs, err := s.repo.ListByUser(ctx, userID, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing videos")
	}
	return jobs, nil
}

func (s *service) ListRecentByUser(ctx context.Context, userID uuid.UUID) ([]models.VideoJob, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	jobs, err := s.repo.ListByUser(ctx, userID, RecentListLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing recent videos")
	}
	return jobs, nil
}

func (s *service) ListStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]models.VideoJob, error) {
	jobs, err := s.repo.ListStaleProcessing(ctx, olderThan, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing stale jobs")
	}
	return jobs, nil
}

func (s *service) AttachJobID(ctx context.Context, id uuid.UUID, jobID string) error {
	if id == uuid.Nil || jobID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "video id and job id are required")
	}
	if err := s.repo.SetJobID(ctx, id, jobID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing provider job id")
	}
	return nil
}

// Complete moves the row to completed with its playable URL. Returns false
// when another path already finished the row; the caller must treat that as
// already-done, not a failure.
func (s *service) Complete(ctx context.Context, id uuid.UUID, videoURL string) (bool, error) {
	if id == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "video id is required")
	}
	if videoURL == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "video url is required")
	}
	transitioned, err := s.repo.MarkCompleted(ctx, id, videoURL)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "completing video")
	}
	return transitioned, nil
}

// Fail moves the row to failed. Same idempotence contract as Complete.
func (s *service) Fail(ctx context.Context, id uuid.UUID, errorMessage string) (bool, error) {
	if id == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "video id is required")
	}
	transitioned, err := s.repo.MarkFailed(ctx, id, errorMessage)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failing video")
	}
	return transitioned, nil
}
