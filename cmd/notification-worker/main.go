package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/hatchery-backend/internal/notifications"
	"github.com/angelmondragon/hatchery-backend/internal/users"
	"github.com/angelmondragon/hatchery-backend/pkg/config"
	"github.com/angelmondragon/hatchery-backend/pkg/db"
	"github.com/angelmondragon/hatchery-backend/pkg/idempotency"
	"github.com/angelmondragon/hatchery-backend/pkg/instance"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
	"github.com/angelmondragon/hatchery-backend/pkg/metrics"
	"github.com/angelmondragon/hatchery-backend/pkg/migrate"
	"github.com/angelmondragon/hatchery-backend/pkg/pubsub"
	"github.com/angelmondragon/hatchery-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "notification-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "notification-worker"

	logg = logger.FromAppConfig(cfg.Service.Kind, cfg.App)
	defer logg.Close()

	if !cfg.FeatureFlags.PubSub {
		logg.Error(context.Background(), "notification worker requires pubsub", errors.New("HATCHERY_FEATURE_PUBSUB is disabled"))
		os.Exit(1)
	}

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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, pubsub.RoleSubscriber, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	notificationsService, err := notifications.NewService(notifications.ServiceParams{
		Repo:      notifications.NewRepository(dbClient.DB()),
		Directory: users.NewRepository(dbClient.DB()),
		Pusher:    notifications.NewRedisPusher(redisClient, cfg.Notifications.ChannelPrefix),
		Metrics:   metrics.NewNotificationMetrics(prometheus.DefaultRegisterer),
		Logger:    logg,
		Config:    cfg.Notifications,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	manager, err := idempotency.NewManager(redisClient, cfg.PubSub.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	consumer, err := notifications.NewConsumer(notificationsService, pubsubClient.NotificationRequestSubscription(), manager, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification consumer", err)
		os.Exit(1)
	}

	service, err := NewService(ServiceParams{
		Logger: logg,
		Dependencies: map[string]pinger{
			"database": dbClient.Ping,
			"redis":    redisClient.Ping,
			"pubsub":   pubsubClient.Ping,
		},
		Consumer: consumer,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  cfg.Service.Kind,
		"instance":     instance.ID(cfg.Service.Kind),
		"subscription": cfg.PubSub.NotificationRequestSubscription,
	})
	logg.Info(ctx, "starting notification worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "notification worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "notification worker shutting down gracefully")
}
