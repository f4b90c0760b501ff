package transactions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cctvmagic/videomagic-backend/pkg/db/models"
	"github.com/cctvmagic/videomagic-backend/pkg/enums"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
)

// RecordInput captures one completed Stripe purchase.
type RecordInput struct {
	UserID           uuid.UUID
	AmountCents      int64
	CreditsPurchased int
	StripeSessionID  string
}

// Service exposes the purchase-history surface.
type Service interface {
	// Record inserts the purchase row. It returns CodeIdempotency when the
	// session was already recorded, so webhook retries can stop cleanly.
	Record(ctx context.Context, input RecordInput) (*models.Transaction, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error)
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService validates dependencies and returns a transactions service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("transactions repository required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) Record(ctx context.Context, input RecordInput) (*models.Transaction, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.StripeSessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe session id is required")
	}
	if input.CreditsPurchased <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credits purchased must be positive")
	}

	txn := &models.Transaction{
		UserID:           input.UserID,
		AmountCents:      input.AmountCents,
		CreditsPurchased: input.CreditsPurchased,
		StripeSessionID:  input.StripeSessionID,
		Status:           enums.TransactionStatusCompleted,
	}
	if err := s.repo.Create(ctx, txn); err != nil {
		if pkgerrors.IsUniqueViolation(err, sessionIDConstraint) {
			return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "session already recorded")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "recording transaction")
	}
	return txn, nil
}

func (s *service) FindBySessionID(ctx context.Context, sessionID string) (*models.Transaction, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stripe session id is required")
	}
	txn, err := s.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading transaction")
	}
	return txn, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Transaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	txns, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing transactions")
	}
	return txns, nil
}
