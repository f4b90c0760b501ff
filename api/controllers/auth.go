package controllers

import (
	"context"
	"net/http"

	"github.com/cctvmagic/videomagic-backend/api/responses"
	"github.com/cctvmagic/videomagic-backend/api/validators"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
	"github.com/cctvmagic/videomagic-backend/pkg/supabase"
)

// loginService is the slice of the auth client the login endpoint needs.
type loginService interface {
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthLogin exchanges credentials for a provider session. The session it
// returns carries the JWT the rest of the API authenticates with.
func AuthLogin(svc loginService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			err := pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body loginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.SignInWithPassword(r.Context(), body.Email, body.Password)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}
