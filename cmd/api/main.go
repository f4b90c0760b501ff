package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cctvmagic/videomagic-backend/api/routes"
	"github.com/cctvmagic/videomagic-backend/internal/checkout"
	"github.com/cctvmagic/videomagic-backend/internal/credits"
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
	"github.com/cctvmagic/videomagic-backend/pkg/metrics"
	"github.com/cctvmagic/videomagic-backend/pkg/migrate"
	"github.com/cctvmagic/videomagic-backend/pkg/redis"
	"github.com/cctvmagic/videomagic-backend/pkg/sora"
	storagesupabase "github.com/cctvmagic/videomagic-backend/pkg/storage/supabase"
	"github.com/cctvmagic/videomagic-backend/pkg/stripe"
	"github.com/cctvmagic/videomagic-backend/pkg/supabase"
)

const (
	shutdownTimeout = 15 * time.Second

	// webhookGuardTTL bounds how long a Stripe event id stays marked. Stripe
	// retries for up to three days; the session-id gates catch anything older.
	webhookGuardTTL = 72 * time.Hour
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize stripe", err)
		os.Exit(1)
	}

	soraClient, err := sora.NewClient(context.Background(), cfg.Sora, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize sora client", err)
		os.Exit(1)
	}
	if msg, degraded := sora.VerificationWarning(cfg.Sora.SkipWebhookVerify, cfg.Sora.WebhookSecret); degraded {
		logg.Warn(context.Background(), msg)
	}

	authClient, err := supabase.NewAuthClient(context.Background(), cfg.Supabase, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize auth client", err)
		os.Exit(1)
	}

	storageClient, err := storagesupabase.NewClient(context.Background(), cfg.Supabase, cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize storage client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	platformMetrics := metrics.NewPlatformMetrics(registry)

	usersService, err := users.NewService(users.ServiceParams{Repo: users.NewRepository(dbClient.DB())})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}
	creditsService, err := credits.NewService(credits.ServiceParams{Repo: credits.NewRepository(dbClient.DB())})
	if err != nil {
		logg.Error(context.Background(), "failed to create credits service", err)
		os.Exit(1)
	}
	videosService, err := videos.NewService(videos.ServiceParams{Repo: videos.NewRepository(dbClient.DB())})
	if err != nil {
		logg.Error(context.Background(), "failed to create videos service", err)
		os.Exit(1)
	}
	transactionsService, err := transactions.NewService(transactions.ServiceParams{Repo: transactions.NewRepository(dbClient.DB())})
	if err != nil {
		logg.Error(context.Background(), "failed to create transactions service", err)
		os.Exit(1)
	}
	promptsService, err := prompts.NewService(prompts.ServiceParams{Repo: prompts.NewRepository(dbClient.DB())})
	if err != nil {
		logg.Error(context.Background(), "failed to create prompts service", err)
		os.Exit(1)
	}

	reconcilerService, err := reconciler.NewService(reconciler.ServiceParams{
		Videos:  videosService,
		Credits: creditsService,
		Sora:    soraClient,
		Storage: storageClient,
		Metrics: platformMetrics,
		Logger:  logg,
		Config:  cfg.Generation,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciler service", err)
		os.Exit(1)
	}

	generationService, err := generation.NewService(generation.ServiceParams{
		Users:    usersService,
		Credits:  creditsService,
		Videos:   videosService,
		Sora:     soraClient,
		Resolver: reconcilerService,
		Metrics:  platformMetrics,
		Logger:   logg,
		Config:   cfg.Generation,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create generation service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Sessions:    stripeClient.API().V1CheckoutSessions,
		FrontendURL: cfg.App.FrontendURL,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	stripeWebhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Users:        usersService,
		Credits:      creditsService,
		Transactions: transactionsService,
		Customers:    stripeClient.API().V1Customers,
		Metrics:      platformMetrics,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook service", err)
		os.Exit(1)
	}

	stripeWebhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookGuardTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create stripe webhook guard", err)
		os.Exit(1)
	}

	soraWebhookService, err := sorawebhook.NewService(sorawebhook.ServiceParams{
		Resolver: reconcilerService,
		Metrics:  platformMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sora webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			authClient,
			generationService,
			videosService,
			reconcilerService,
			soraClient,
			usersService,
			transactionsService,
			promptsService,
			checkoutService,
			stripeClient,
			stripeWebhookService,
			stripeWebhookGuard,
			soraWebhookService,
		),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}
