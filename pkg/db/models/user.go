package models

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the auth provider's identity. The ID comes from the auth
// service, never generated locally, so a row can only exist for a real
// authenticated account.
type User struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Email           string    `gorm:"type:text;not null;uniqueIndex"`
	Credits         int       `gorm:"column:credits;not null;default:0"`
	ThemePreference string    `gorm:"column:theme_preference;not null;default:'christmas'"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
