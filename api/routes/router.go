package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/hatchery-backend/api/controllers"
	"github.com/angelmondragon/hatchery-backend/api/middleware"
	"github.com/angelmondragon/hatchery-backend/internal/notifications"
	"github.com/angelmondragon/hatchery-backend/pkg/config"
	"github.com/angelmondragon/hatchery-backend/pkg/db"
	"github.com/angelmondragon/hatchery-backend/pkg/enums"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
	"github.com/angelmondragon/hatchery-backend/pkg/redis"
	"github.com/angelmondragon/hatchery-backend/pkg/storage"
)

// cacheStore is the redis surface used by the idempotency and rate limit
// middleware.
type cacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(parts ...string) string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	notificationsService notifications.Service,
	uploader storage.Uploader,
	sweeper controllers.Sweeper,
	listener notifications.Listener,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.Debug(cfg.App.IsDev()),
	)

	var store cacheStore
	readiness := map[string]controllers.Pinger{"db": dbP}
	if redisClient != nil {
		store = redisClient
		readiness["redis"] = redisClient
	}

	broadcastPolicy := middleware.NewRateLimitPolicy("broadcast", cfg.RateLimit.Window, cfg.RateLimit.BroadcastLimit)
	createPolicy := middleware.NewRateLimitPolicy("create", cfg.RateLimit.Window, cfg.RateLimit.CreateLimit)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/latest-public", controllers.LatestPublic(notificationsService, logg))

		r.With(
			middleware.SystemKey(cfg.SystemAuth.APIKey, logg),
			middleware.RateLimit(createPolicy, store, logg),
			middleware.Idempotency(store, middleware.DefaultIdempotencyTTL, logg),
		).Post("/create", controllers.CreateNotification(notificationsService, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.With(
				middleware.RateLimit(createPolicy, store, logg),
				middleware.Idempotency(store, middleware.DefaultIdempotencyTTL, logg),
			).Post("/create-protected", controllers.CreateNotification(notificationsService, logg))
			r.Put("/mark-read/{id}", controllers.MarkNotificationRead(notificationsService, logg))
			r.Delete("/delete/{id}", controllers.DeleteNotification(notificationsService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSelfOrAdmin("userId", logg))
				r.Get("/user/{userId}", controllers.ListNotifications(notificationsService, logg))
				r.Get("/user/{userId}/unread", controllers.ListUnreadNotifications(notificationsService, logg))
				r.Get("/user/{userId}/stories", controllers.ListUserStories(notificationsService, logg))
				r.Get("/user/{userId}/stream", controllers.StreamNotifications(listener, cfg.Notifications.StreamPingTick, logg))
				r.Put("/mark-all-read/{userId}", controllers.MarkAllNotificationsRead(notificationsService, logg))
				r.Delete("/delete-all/{userId}", controllers.DeleteAllNotifications(notificationsService, logg))
				r.Get("/count/{userId}", controllers.CountNotifications(notificationsService, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RoleAdmin, logg))
				r.With(middleware.RateLimit(broadcastPolicy, store, logg)).
					Post("/broadcast", controllers.BroadcastNotification(notificationsService, uploader, cfg.Notifications, logg))
				r.Get("/history", controllers.BroadcastHistory(notificationsService, logg))
				r.Get("/stories", controllers.AdminStories(notificationsService, logg))
				r.Delete("/story/{storyId}", controllers.DeleteAdminStory(notificationsService, logg))
				r.Post("/cleanup", controllers.TriggerCleanup(sweeper, logg))
			})
		})
	})

	return r
}
