package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cctvmagic/videomagic-backend/internal/credits"
	"github.com/cctvmagic/videomagic-backend/internal/reconciler"
	"github.com/cctvmagic/videomagic-backend/internal/videos"
	"github.com/cctvmagic/videomagic-backend/pkg/config"
	"github.com/cctvmagic/videomagic-backend/pkg/db"
	"github.com/cctvmagic/videomagic-backend/pkg/logger"
	"github.com/cctvmagic/videomagic-backend/pkg/metrics"
	"github.com/cctvmagic/videomagic-backend/pkg/sora"
	storagesupabase "github.com/cctvmagic/videomagic-backend/pkg/storage/supabase"
)

const sweepJobName = "video_sweep"

// The worker is the third path to a terminal job state, next to client polling
// and the provider webhook. It exists so a job whose poll loop died with its
// API instance still settles, and so abandoned rows eventually fail and refund.
func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
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

	soraClient, err := sora.NewClient(context.Background(), cfg.Sora, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize sora client", err)
		os.Exit(1)
	}

	storageClient, err := storagesupabase.NewClient(context.Background(), cfg.Supabase, cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize storage client", err)
		os.Exit(1)
	}

	platformMetrics := metrics.NewPlatformMetrics(prometheus.DefaultRegisterer)
	jobMetrics := metrics.NewJobMetrics(prometheus.DefaultRegisterer)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting sweep worker")

	runSweeper(ctx, cfg.Generation.SweepInterval, reconcilerService, jobMetrics, logg)

	logg.Info(ctx, "sweep worker shutting down gracefully")
}

func runSweeper(ctx context.Context, interval time.Duration, svc reconciler.Service, jobMetrics *metrics.JobMetrics, logg *logger.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			started := time.Now()
			if err := svc.Sweep(ctx); err != nil {
				jobMetrics.IncFailure(sweepJobName)
				logg.Error(ctx, "sweep pass failed", err)
				continue
			}
			jobMetrics.ObserveDuration(sweepJobName, time.Since(started))
			jobMetrics.IncSuccess(sweepJobName)
		}
	}
}
