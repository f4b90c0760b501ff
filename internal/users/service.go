package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cctvmagic/videomagic-backend/pkg/db/models"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
)

// DefaultTheme is applied when a user has not picked one.
const DefaultTheme = "christmas"

// Service exposes the user profile surface.
type Service interface {
	EnsureExists(ctx context.Context, id uuid.UUID, email string) error
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Credits(ctx context.Context, id uuid.UUID) (int, error)
	Theme(ctx context.Context, id uuid.UUID) (string, error)
	SetTheme(ctx context.Context, id uuid.UUID, theme string) (string, error)
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService validates dependencies and returns a user service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &service{repo: params.Repo}, nil
}

// EnsureExists creates the local user row on first sight of an
// authenticated account.
func (s *service) EnsureExists(ctx context.Context, id uuid.UUID, email string) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	user := &models.User{
		ID:              id,
		Email:           email,
		ThemePreference: DefaultTheme,
	}
	if err := s.repo.EnsureExists(ctx, user); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "ensuring user row")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	return user, nil
}

func (s *service) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user by email")
	}
	return user, nil
}

func (s *service) Credits(ctx context.Context, id uuid.UUID) (int, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return user.Credits, nil
}

// Theme returns the stored preference, falling back to the default when the
// row is missing rather than failing the request.
func (s *service) Theme(ctx context.Context, id uuid.UUID) (string, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return DefaultTheme, nil
		}
		return "", err
	}
	if user.ThemePreference == "" {
		return DefaultTheme, nil
	}
	return user.ThemePreference, nil
}

func (s *service) SetTheme(ctx context.Context, id uuid.UUID, theme string) (string, error) {
	if id == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "theme preference is required")
	}
	if err := s.repo.UpdateTheme(ctx, id, theme); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating theme preference")
	}
	return theme, nil
}
