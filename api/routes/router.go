package routes

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cctvmagic/videomagic-backend/api/controllers"
	webhookcontrollers "github.com/cctvmagic/videomagic-backend/api/controllers/webhooks"
	"github.com/cctvmagic/videomagic-backend/api/middleware"
	checkoutsvc "github.com/cctvmagic/videomagic-backend/internal/checkout"
	"github.com/cctvmagic/videomagic-backend/internal/generation"
	"github.com/cctvmagic/videomagic-backend/internal/prompts"
	"github.com/cctvmagic/videomagic-backend/internal/reconciler"
	"github.com/cctvmagic/videomagic-backend/internal/transactions"
	"github.com/cctvmagic/videomagic-backend/internal/users"
	"github.com/cctvmagic/videomagic-backend/internal/videos"
	sorawebhook "github.com/cctvmagic/videomagic-backend/internal/webhooks/sora"
	stripewebhook "github.com/cctvmagic/videomagic-backend/internal/webhooks/stripe"
	"github.com/cctvmagic/videomagic-backend/pkg/config"
	"github.com/cctvmagic/videomagic-backend/pkg/db"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
	pkgredis "github.com/cctvmagic/videomagic-backend/pkg/redis"
	"github.com/cctvmagic/videomagic-backend/pkg/stripe"
	"github.com/cctvmagic/videomagic-backend/pkg/supabase"
)

// contentProvider streams a finished asset from the inference provider.
type contentProvider interface {
	DownloadContent(ctx context.Context, videoID string) (io.ReadCloser, string, error)
}

type rateLimitCounter interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	gatherer prometheus.Gatherer,
	authClient *supabase.AuthClient,
	generationService generation.Service,
	videoService videos.Service,
	reconcilerService reconciler.Service,
	soraClient contentProvider,
	userService users.Service,
	transactionService transactions.Service,
	promptsService prompts.Service,
	checkoutService checkoutsvc.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
	soraWebhookService *sorawebhook.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.FrontendURL),
	)

	// A typed-nil client must not reach the middleware interfaces, where it
	// would pass their nil checks and panic on first use.
	var idempotencyStore pkgredis.IdempotencyStore
	var rateLimitStore rateLimitCounter
	var redisPinger pkgredis.Pinger
	if redisClient != nil {
		idempotencyStore = redisClient
		rateLimitStore = redisClient
		redisPinger = redisClient
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/api/packages", controllers.Packages())
	r.Get("/api/prompts", controllers.Prompts(promptsService, logg))

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, rateLimitStore, logg)).
			Post("/login", controllers.AuthLogin(authClient, logg))
	})

	// Webhooks authenticate by signature, not session.
	r.Route("/api/webhook", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
		r.Post("/video-complete", webhookcontrollers.SoraWebhook(soraWebhookService, cfg.Sora, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Post("/generate", controllers.Generate(generationService, cfg.Generation, logg))

		r.Route("/video", func(r chi.Router) {
			r.Get("/status", controllers.VideoStatus(videoService, reconcilerService, logg))
			r.Get("/{id}/content", controllers.VideoContent(videoService, soraClient, logg))
		})
		r.Route("/videos", func(r chi.Router) {
			r.Get("/", controllers.VideoList(videoService, logg))
			r.Get("/recent", controllers.VideoListRecent(videoService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/create-session", controllers.CheckoutCreateSession(checkoutService, logg))
			r.Get("/session-status", controllers.CheckoutSessionStatus(checkoutService, logg))
		})

		r.Route("/user", func(r chi.Router) {
			r.Get("/", controllers.UserProfile(userService, logg))
			r.Get("/credits", controllers.UserCredits(userService, logg))
			r.Get("/theme", controllers.UserTheme(userService, logg))
			r.Patch("/theme", controllers.UserSetTheme(userService, logg))
			r.Get("/transactions", controllers.UserTransactions(transactionService, logg))
		})
	})

	return r
}
