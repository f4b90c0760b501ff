package webhooks

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cctvmagic/videomagic-backend/api/responses"
	"github.com/cctvmagic/videomagic-backend/pkg/config"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
	"github.com/cctvmagic/videomagic-backend/pkg/sora"
)

type soraWebhookService interface {
	HandleBody(ctx context.Context, body []byte) error
}

// SoraWebhook receives generation completion notifications from the inference
// provider. The payload is only a hint that a job may have settled; the
// service re-reads the provider before touching any row.
func SoraWebhook(svc soraWebhookService, cfg config.SoraConfig, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		// SkipWebhookVerify exists for local development against replayed
		// payloads. Production always verifies.
		if !cfg.SkipWebhookVerify {
			err := sora.VerifySignature(
				cfg.WebhookSecret,
				body,
				r.Header.Get(sora.SignatureHeader),
				r.Header.Get(sora.TimestampHeader),
				time.Now(),
			)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "verify signature"))
				return
			}
		}

		if err := svc.HandleBody(ctx, body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}
