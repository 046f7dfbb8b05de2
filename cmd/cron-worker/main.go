package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/hatchery-backend/internal/cleanup"
	"github.com/angelmondragon/hatchery-backend/internal/cron"
	"github.com/angelmondragon/hatchery-backend/pkg/bigquery"
	"github.com/angelmondragon/hatchery-backend/pkg/config"
	"github.com/angelmondragon/hatchery-backend/pkg/db"
	"github.com/angelmondragon/hatchery-backend/pkg/instance"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
	"github.com/angelmondragon/hatchery-backend/pkg/metrics"
	"github.com/angelmondragon/hatchery-backend/pkg/migrate"
	"github.com/angelmondragon/hatchery-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.FromAppConfig("cron-worker", cfg.App)
	defer logg.Close()

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

	var sweepRecorder cleanup.Recorder
	if cfg.FeatureFlags.BigQuery {
		bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg,
			bigquery.Table{Name: cfg.BigQuery.SweepTable, Row: cleanup.SweepRow{}},
		)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap bigquery", err)
			os.Exit(1)
		}
		defer bqClient.Close()
		sweepRecorder = cleanup.NewTableRecorder(bqClient, cfg.BigQuery.SweepTable)
	}

	sweeper, err := cleanup.NewSweeper(cleanup.SweeperParams{
		Store:     cleanup.NewStore(dbClient.DB()),
		Logger:    logg,
		Metrics:   metrics.NewNotificationMetrics(prometheus.DefaultRegisterer),
		Recorder:  sweepRecorder,
		Retention: cfg.Cleanup.Retention(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper", err)
		os.Exit(1)
	}

	fullSweep, err := cron.NewSweepJob(cron.FullSweepJob, cfg.Cleanup.FullSchedule, cleanup.ScopeFull, sweeper)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep job", err)
		os.Exit(1)
	}
	storySweep, err := cron.NewSweepJob(cron.StorySweepJob, cfg.Cleanup.StorySchedule, cleanup.ScopeStories, sweeper)
	if err != nil {
		logg.Error(context.Background(), "failed to create story sweep job", err)
		os.Exit(1)
	}

	var runOnStart []string
	if cfg.Cleanup.RunOnStart {
		runOnStart = []string{cron.FullSweepJob}
	}

	location, err := time.LoadLocation(cfg.Cleanup.Timezone)
	if err != nil {
		logg.Error(context.Background(), "invalid cleanup timezone", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(fullSweep, storySweep)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Locks:      cron.RedisLocks(redisClient, cfg.Cleanup.LockTTL),
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Location:   location,
		RunOnStart: runOnStart,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(cfg.Service.Kind),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
