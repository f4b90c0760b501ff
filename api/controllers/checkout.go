package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/cctvmagic/videomagic-backend/api/middleware"
	"github.com/cctvmagic/videomagic-backend/api/responses"
	"github.com/cctvmagic/videomagic-backend/api/validators"
	"github.com/cctvmagic/videomagic-backend/internal/checkout"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
)

type createSessionRequest struct {
	PackageID string `json:"packageId" validate:"required"`
}

// CheckoutCreateSession opens a payment session for one credit package.
func CheckoutCreateSession(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var body createSessionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := svc.CreateSession(ctx, userID, middleware.EmailFromContext(ctx), body.PackageID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

// CheckoutSessionStatus reports the payment state of a session so the return
// page can decide what to show. Crediting never happens here; that is the
// webhook's job.
func CheckoutSessionStatus(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
		if sessionID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session_id query parameter is required"))
			return
		}

		status, err := svc.SessionStatus(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}
