package prompts

import (
	"context"
	"fmt"

	"github.com/cctvmagic/videomagic-backend/pkg/db/models"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
)

// Service exposes the curated prompt list shown to users as generation
// starting points.
type Service interface {
	ListActive(ctx context.Context) ([]models.PredefinedPrompt, error)
}

// ServiceParams wires the service dependencies.
type ServiceParams struct {
	Repo Repository
}

type service struct {
	repo Repository
}

// NewService validates dependencies and returns a prompts service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("prompts repository required")
	}
	return &service{repo: params.Repo}, nil
}

func (s *service) ListActive(ctx context.Context) ([]models.PredefinedPrompt, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing prompts")
	}
	return rows, nil
}
