package controllers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cctvmagic/videomagic-backend/api/middleware"
	"github.com/cctvmagic/videomagic-backend/api/responses"
	"github.com/cctvmagic/videomagic-backend/internal/videos"
	"github.com/cctvmagic/videomagic-backend/pkg/db/models"
	"github.com/cctvmagic/videomagic-backend/pkg/enums"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
)

// videoJobView is the wire shape for a generation job. VideoURL stays empty
// while the job is in flight.
type videoJobView struct {
	VideoID      string    `json:"videoId"`
	Status       string    `json:"status"`
	VideoURL     string    `json:"videoUrl,omitempty"`
	Prompt       string    `json:"prompt,omitempty"`
	Model        string    `json:"model,omitempty"`
	Size         string    `json:"size,omitempty"`
	Duration     int       `json:"duration,omitempty"`
	CreditCost   int       `json:"creditCost,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

func newVideoJobView(job *models.VideoJob) videoJobView {
	view := videoJobView{
		VideoID:    job.ID.String(),
		Status:     job.Status.String(),
		Prompt:     job.Prompt,
		Model:      job.Model.String(),
		Size:       job.Size.String(),
		Duration:   job.Duration,
		CreditCost: job.CreditCost,
		CreatedAt:  job.CreatedAt,
	}
	if job.VideoURL != nil {
		view.VideoURL = *job.VideoURL
	}
	if job.ErrorMessage != nil {
		view.ErrorMessage = *job.ErrorMessage
	}
	return view
}

// statusResolver settles the row against the provider before it is read, so a
// poll observes the provider's terminal state as soon as it exists.
type statusResolver interface {
	Resolve(ctx context.Context, videoID uuid.UUID) (*models.VideoJob, error)
}

// contentProvider streams a finished asset from the provider with server-held
// credentials.
type contentProvider interface {
	DownloadContent(ctx context.Context, videoID string) (io.ReadCloser, string, error)
}

// VideoStatus reports the current state of one of the caller's jobs. Resolving
// through the reconciler means a poll can be the trigger that settles the row.
func VideoStatus(svc videos.Service, resolver statusResolver, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || resolver == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "video service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		videoID, err := uuid.Parse(r.URL.Query().Get("videoId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "videoId query parameter is required"))
			return
		}

		// Ownership first: resolving must not leak other users' job state.
		if _, err := svc.GetForUser(ctx, videoID, userID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		job, err := resolver.Resolve(ctx, videoID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		view := newVideoJobView(job)
		responses.WriteSuccess(w, map[string]any{
			"videoId":  view.VideoID,
			"status":   view.Status,
			"videoUrl": view.VideoURL,
		})
	}
}

// VideoContent proxies the rendered asset from the provider. It exists as the
// fallback playable URL when relocation to owned storage did not happen, so
// provider credentials never reach the client.
func VideoContent(svc videos.Service, provider contentProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil || provider == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "video service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		videoID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "video id is invalid"))
			return
		}

		job, err := svc.GetForUser(ctx, videoID, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if job.JobID == nil || job.Status != enums.VideoStatusCompleted {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "video content not available"))
			return
		}

		body, contentType, err := provider.DownloadContent(ctx, *job.JobID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetching video content"))
			return
		}
		defer body.Close()

		if contentType == "" {
			contentType = "video/mp4"
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, body); err != nil && logg != nil {
			logg.Warn(ctx, "streaming video content interrupted")
		}
	}
}

// VideoList returns the caller's full generation history, newest first.
func VideoList(svc videos.Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(svc, logg, func(ctx context.Context, svc videos.Service, userID uuid.UUID) ([]models.VideoJob, error) {
		return svc.ListByUser(ctx, userID)
	})
}

// VideoListRecent returns the short history strip shown next to the generator.
func VideoListRecent(svc videos.Service, logg *logger.Logger) http.HandlerFunc {
	return listHandler(svc, logg, func(ctx context.Context, svc videos.Service, userID uuid.UUID) ([]models.VideoJob, error) {
		return svc.ListRecentByUser(ctx, userID)
	})
}

func listHandler(svc videos.Service, logg *logger.Logger, list func(context.Context, videos.Service, uuid.UUID) ([]models.VideoJob, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "video service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		rows, err := list(ctx, svc, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		views := make([]videoJobView, 0, len(rows))
		for i := range rows {
			views = append(views, newVideoJobView(&rows[i]))
		}
		responses.WriteSuccess(w, views)
	}
}
