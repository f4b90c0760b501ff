package videos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cctvmagic/videomagic-backend/pkg/db/models"
	"github.com/cctvmagic/videomagic-backend/pkg/enums"
)

// Repository manages persistence for generation attempts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, job *models.VideoJob) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.VideoJob, error)
	FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.VideoJob, error)
	FindActiveByJobID(ctx context.Context, jobID string) (*models.VideoJob, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.VideoJob, error)
	ListStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]models.VideoJob, error)
	SetJobID(ctx context.Context, id uuid.UUID, jobID string) error
	// MarkCompleted and MarkFailed transition the row only when it is still
	// non-terminal. They report whether this call performed the transition.
	MarkCompleted(ctx context.Context, id uuid.UUID, videoURL string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a videos repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, job *models.VideoJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.VideoJob, error) {
	var job models.VideoJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.VideoJob, error) {
	var job models.VideoJob
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// FindActiveByJobID resolves a provider job id to its non-terminal row.
// Terminal rows are excluded so replayed webhooks for finished jobs miss.
func (r *repository) FindActiveByJobID(ctx context.Context, jobID string) (*models.VideoJob, error) {
	var job models.VideoJob
	if err := r.db.WithContext(ctx).
		Where("job_id = ? AND status NOT IN ?", jobID, terminalStatuses()).
		First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.VideoJob, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var jobs []models.VideoJob
	if err := q.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repository) ListStaleProcessing(ctx context.Context, olderThan time.Time, limit int) ([]models.VideoJob, error) {
	q := r.db.WithContext(ctx).
		Where("status NOT IN ? AND created_at < ?", terminalStatuses(), olderThan).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var jobs []models.VideoJob
	if err := q.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repository) SetJobID(ctx context.Context, id uuid.UUID, jobID string) error {
	return r.db.WithContext(ctx).
		Model(&models.VideoJob{}).
		Where("id = ?", id).
		UpdateColumn("job_id", jobID).Error
}

func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID, videoURL string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.VideoJob{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses()).
		Updates(map[string]any{
			"status":    enums.VideoStatusCompleted,
			"video_url": videoURL,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.VideoJob{}).
		Where("id = ? AND status NOT IN ?", id, terminalStatuses()).
		Updates(map[string]any{
			"status":        enums.VideoStatusFailed,
			"error_message": errorMessage,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func terminalStatuses() []enums.VideoStatus {
	return []enums.VideoStatus{enums.VideoStatusCompleted, enums.VideoStatusFailed}
}
