package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/hatchery-backend/api"
	"github.com/angelmondragon/hatchery-backend/api/routes"
	"github.com/angelmondragon/hatchery-backend/internal/cleanup"
	"github.com/angelmondragon/hatchery-backend/internal/notifications"
	"github.com/angelmondragon/hatchery-backend/internal/users"
	"github.com/angelmondragon/hatchery-backend/pkg/bigquery"
	"github.com/angelmondragon/hatchery-backend/pkg/config"
	"github.com/angelmondragon/hatchery-backend/pkg/db"
	"github.com/angelmondragon/hatchery-backend/pkg/instance"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
	"github.com/angelmondragon/hatchery-backend/pkg/metrics"
	"github.com/angelmondragon/hatchery-backend/pkg/migrate"
	"github.com/angelmondragon/hatchery-backend/pkg/pubsub"
	"github.com/angelmondragon/hatchery-backend/pkg/redis"
	"github.com/angelmondragon/hatchery-backend/pkg/storage"
)

const shutdownTimeout = 15 * time.Second

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

	logg = logger.FromAppConfig("api", cfg.App)
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

	uploader, storageCloser, err := storage.Open(context.Background(), cfg.Storage, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := storageCloser.Close(); err != nil {
			logg.Error(context.Background(), "error closing storage", err)
		}
	}()

	var (
		broadcastRecorders notifications.MultiRecorder
		sweepRecorder      cleanup.Recorder
	)
	if cfg.FeatureFlags.PubSub {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, pubsub.RolePublisher, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer pubsubClient.Close()
		broadcastRecorders = append(broadcastRecorders, notifications.NewEventRecorder(pubsubClient.BroadcastPublisher()))
	}
	if cfg.FeatureFlags.BigQuery {
		bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg,
			bigquery.Table{Name: cfg.BigQuery.BroadcastTable, Row: notifications.BroadcastAudit{}},
			bigquery.Table{Name: cfg.BigQuery.SweepTable, Row: cleanup.SweepRow{}},
		)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap bigquery", err)
			os.Exit(1)
		}
		defer bqClient.Close()
		broadcastRecorders = append(broadcastRecorders, notifications.NewTableRecorder(bqClient, cfg.BigQuery.BroadcastTable))
		sweepRecorder = cleanup.NewTableRecorder(bqClient, cfg.BigQuery.SweepTable)
	}

	notificationMetrics := metrics.NewNotificationMetrics(prometheus.DefaultRegisterer)

	notificationsService, err := notifications.NewService(notifications.ServiceParams{
		Repo:      notifications.NewRepository(dbClient.DB()),
		Directory: users.NewRepository(dbClient.DB()),
		Pusher:    notifications.NewRedisPusher(redisClient, cfg.Notifications.ChannelPrefix),
		Recorder:  broadcastRecorders,
		Metrics:   notificationMetrics,
		Logger:    logg,
		Config:    cfg.Notifications,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	sweeper, err := cleanup.NewSweeper(cleanup.SweeperParams{
		Store:     cleanup.NewStore(dbClient.DB()),
		Logger:    logg,
		Metrics:   notificationMetrics,
		Recorder:  sweepRecorder,
		Retention: cfg.Cleanup.Retention(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper", err)
		os.Exit(1)
	}

	router := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		notificationsService,
		uploader,
		sweeper,
		notifications.NewRedisListener(redisClient, cfg.Notifications.ChannelPrefix),
	)
	server := api.NewServer(cfg, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     server.Addr,
		"instance": instance.ID("api"),
		"storage":  cfg.Storage.Driver,
	})
	logg.Info(ctx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}
