package controllers

import (
	"net/http"

	"go.uber.org/multierr"

	"github.com/cctvmagic/videomagic-backend/api/responses"
	"github.com/cctvmagic/videomagic-backend/pkg/config"
	"github.com/cctvmagic/videomagic-backend/pkg/db"
	pkgerrors "github.com/cctvmagic/videomagic-backend/pkg/errors"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
	"github.com/cctvmagic/videomagic-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-VideoMagic-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness only when every backing store answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-VideoMagic-Env", cfg.App.Env)

		var errs error
		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				errs = multierr.Append(errs, err)
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				errs = multierr.Append(errs, err)
			}
		}

		if errs != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, errs, "dependency ping failed"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
