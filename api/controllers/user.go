package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cctvmagic/videomagic-backend/api/middleware"
	"github.com/cctvmagic/videomagic-backend/api/responses"
	"github.com/cctvmagic/videomagic-backend/api/validators"
	"github.com/cctvmagic/videomagic-backend/internal/transactions"
	"github.com/cctvmagic/videomagic-backend/internal/users"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
)

type themeRequest struct {
	Theme string `json:"theme" validate:"required"`
}

type transactionView struct {
	ID               string    `json:"id"`
	AmountCents      int64     `json:"amountCents"`
	CreditsPurchased int       `json:"creditsPurchased"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
}

type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Credits   int       `json:"credits"`
	Theme     string    `json:"theme"`
	CreatedAt time.Time `json:"createdAt"`
}

func authedUserID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}

// UserProfile returns the caller's account row.
func UserProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		user, err := svc.Get(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, userView{
			ID:        user.ID.String(),
			Email:     user.Email,
			Credits:   user.Credits,
			Theme:     user.ThemePreference,
			CreatedAt: user.CreatedAt,
		})
	}
}

// UserCredits returns the caller's current balance. A caller whose row does
// not exist yet simply has zero credits.
func UserCredits(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		credits, err := svc.Credits(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]int{"credits": credits})
	}
}

// UserTheme returns the caller's UI theme preference.
func UserTheme(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		theme, err := svc.Theme(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"theme": theme})
	}
}

// UserSetTheme stores a new UI theme preference and echoes the stored value.
func UserSetTheme(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body themeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		theme, err := svc.SetTheme(ctx, userID, body.Theme)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"theme": theme})
	}
}

// UserTransactions lists the caller's purchase history, newest first.
func UserTransactions(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}

		userID, err := authedUserID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.ListByUser(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		views := make([]transactionView, 0, len(rows))
		for _, row := range rows {
			views = append(views, transactionView{
				ID:               row.ID.String(),
				AmountCents:      row.AmountCents,
				CreditsPurchased: row.CreditsPurchased,
				Status:           row.Status.String(),
				CreatedAt:        row.CreatedAt,
			})
		}
		responses.WriteSuccess(w, views)
	}
}
