package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cctvmagic/videomagic-backend/pkg/enums"
)

// Transaction records one completed credit purchase. StripeSessionID carries a
// unique constraint so webhook retries cannot grant credits twice.
type Transaction struct {
	ID               uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID           uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	AmountCents      int64                   `gorm:"column:amount;not null"`
	CreditsPurchased int                     `gorm:"column:credits_purchased;not null"`
	StripeSessionID  string                  `gorm:"column:stripe_session_id;not null;unique"`
	Status           enums.TransactionStatus `gorm:"column:status;not null;default:'completed'"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
}
