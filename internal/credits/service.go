package credits

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
)

// InsufficientCreditsDetails is attached to the typed error when a debit is
// declined, so the client can render required vs available.
type InsufficientCreditsDetails struct {
	Required  int `json:"required"`
	Available int `json:"available"`
}

// Service guards the only contended resource in the system, the credit
// balance. Debits are conditional single statements, never read-then-write,
// so concurrent submissions cannot overspend.
type Service interface {
	Debit(ctx context.Context, userID uuid.UUID, amount int) error
	Refund(ctx context.Context, userID uuid.UUID, amount int) error
	Grant(ctx context.Context, userID uuid.UUID, amount int) error
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService validates dependencies and returns a credits service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("credits repository required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) Debit(ctx context.Context, userID uuid.UUID, amount int) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}

	ok, err := s.repo.DebitIfAvailable(ctx, userID, amount)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "debiting credits")
	}
	if ok {
		return nil
	}

	// The conditional update declined. Report the current balance; a missing
	// row reads as zero available.
	available, balErr := s.repo.Balance(ctx, userID)
	if balErr != nil && !errors.Is(balErr, gorm.ErrRecordNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, balErr, "reading balance")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientCredits, "insufficient credits").
		WithDetails(InsufficientCreditsDetails{Required: amount, Available: available})
}

// Refund restores a previously debited amount. The amount must be the exact
// credit_cost captured at debit time.
func (s *service) Refund(ctx context.Context, userID uuid.UUID, amount int) error {
	return s.increment(ctx, userID, amount, "refunding credits")
}

// Grant adds purchased credits from a completed checkout.
func (s *service) Grant(ctx context.Context, userID uuid.UUID, amount int) error {
	return s.increment(ctx, userID, amount, "granting credits")
}

func (s *service) increment(ctx context.Context, userID uuid.UUID, amount int, op string) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}
	if err := s.repo.Credit(ctx, userID, amount); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, op)
	}
	return nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	balance, err := s.repo.Balance(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reading balance")
	}
	return balance, nil
}
