package supabase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"

	"github.com/cctvmagic/videomagic-backend/pkg/config"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
)

// passwordSignIn is the slice of the auth SDK used here, kept narrow for tests.
type passwordSignIn interface {
	SignInWithEmailPassword(email, password string) (*types.TokenResponse, error)
}

// AuthClient performs password sign-ins against the hosted auth service.
// Session issuance and refresh stay with the provider; this backend only
// exchanges credentials for tokens and validates the JWTs it gets back.
type AuthClient struct {
	api passwordSignIn
}

// Session is the provider session trimmed to what callers need.
type Session struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    int       `json:"expiresIn"`
	UserID       uuid.UUID `json:"userId"`
	Email        string    `json:"email"`
}

// NewAuthClient wires the auth SDK against the project's auth endpoint.
func NewAuthClient(ctx context.Context, cfg config.SupabaseConfig, logg *logger.Logger) (*AuthClient, error) {
	projectURL := strings.TrimRight(strings.TrimSpace(cfg.ProjectURL), "/")
	if projectURL == "" {
		return nil, errors.New("supabase project url is required")
	}
	if cfg.AnonKey == "" {
		return nil, errors.New("supabase anon key is required")
	}

	api := gotrue.New(cfg.ProjectRef(), cfg.AnonKey).
		WithCustomGoTrueURL(projectURL + "/auth/v1")

	if logg != nil {
		logg.Info(ctx, "supabase auth client initialized")
	}

	return &AuthClient{api: api}, nil
}

// SignInWithPassword exchanges credentials for a provider session. Credential
// failures come back generalized so callers cannot distinguish a bad email
// from a bad password.
func (c *AuthClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	if c == nil || c.api == nil {
		return nil, errors.New("auth client not initialized")
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	resp, err := c.api.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid credentials")
	}
	if resp == nil || resp.AccessToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	return &Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
		UserID:       resp.User.ID,
		Email:        resp.User.Email,
	}, nil
}
