package models

import (
	"time"

	"github.com/google/uuid"
)

// PredefinedPrompt is one curated prompt offered to users who do not want to
// write their own. Rows are toggled with is_active rather than deleted so
// display_order stays stable.
type PredefinedPrompt struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Title        string    `gorm:"column:title;type:text;not null"`
	PromptText   string    `gorm:"column:prompt_text;type:text;not null"`
	Category     *string   `gorm:"column:category"`
	DisplayOrder int       `gorm:"column:display_order;not null;default:0"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}
