package controllers

import (
	"net/http"
	"time"

	"github.com/cctvmagic/videomagic-backend/api/responses"
	"github.com/cctvmagic/videomagic-backend/internal/prompts"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
)

type promptView struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	PromptText   string    `json:"promptText"`
	Category     *string   `json:"category,omitempty"`
	DisplayOrder int       `json:"displayOrder"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Prompts lists the curated prompts offered as generation starting points.
// Public, like the package catalog.
func Prompts(svc prompts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "prompts service unavailable"))
			return
		}

		rows, err := svc.ListActive(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		views := make([]promptView, 0, len(rows))
		for _, row := range rows {
			views = append(views, promptView{
				ID:           row.ID.String(),
				Title:        row.Title,
				PromptText:   row.PromptText,
				Category:     row.Category,
				DisplayOrder: row.DisplayOrder,
				CreatedAt:    row.CreatedAt,
			})
		}
		responses.WriteSuccess(w, views)
	}
}
