package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cctvmagic/videomagic-backend/pkg/enums"
)

// VideoJob is one user-initiated generation attempt, stored in video_history.
// A row starts in processing and is moved exactly once to a terminal state.
// JobID, once set, is the sole key used to match inbound provider webhooks
// back to the row, so it must be unique across non-terminal jobs.
type VideoJob struct {
	ID            uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Prompt        string            `gorm:"column:prompt;type:text;not null"`
	ImageFileName *string           `gorm:"column:image_url"`
	Duration      int               `gorm:"column:duration;not null"`
	Model         enums.VideoModel  `gorm:"column:model;not null"`
	Size          enums.VideoSize   `gorm:"column:size;not null;default:'1280x720'"`
	CreditCost    int               `gorm:"column:credit_cost;not null"`
	Status        enums.VideoStatus `gorm:"column:status;not null;default:'processing'"`
	JobID         *string           `gorm:"column:job_id"`
	VideoURL      *string           `gorm:"column:video_url"`
	ErrorMessage  *string           `gorm:"column:error_message"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the historical table name.
func (VideoJob) TableName() string {
	return "video_history"
}
