package prompts

import (
	"context"

	"gorm.io/gorm"

	"github.com/cctvmagic/videomagic-backend/pkg/db/models"
)

// Repository reads the curated prompt catalog.
type Repository interface {
	ListActive(ctx context.Context) ([]models.PredefinedPrompt, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a prompts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListActive(ctx context.Context) ([]models.PredefinedPrompt, error) {
	var rows []models.PredefinedPrompt
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
