package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/hatchery-backend/internal/users"
	"github.com/angelmondragon/hatchery-backend/pkg/config"
	pkgdb "github.com/angelmondragon/hatchery-backend/pkg/db"
	"github.com/angelmondragon/hatchery-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/hatchery-backend/pkg/db/types"
	"github.com/angelmondragon/hatchery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
	"github.com/angelmondragon/hatchery-backend/pkg/metrics"
)

// displayTimeLayout matches the ISO strings the mobile clients already parse.
const displayTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Service defines the notification operations exposed over HTTP and Pub/Sub.
type Service interface {
	Broadcast(ctx context.Context, input BroadcastInput) (*BroadcastResult, error)
	Create(ctx context.Context, input CreateInput) (*models.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	ListUnread(ctx context.Context, userID uuid.UUID) (*UnreadResult, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	Count(ctx context.Context, userID uuid.UUID) (*Counts, error)
	ActiveStories(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	AdminStories(ctx context.Context) ([]models.Notification, error)
	DeleteAdminStory(ctx context.Context, storyID uuid.UUID) (int64, error)
	History(ctx context.Context) ([]HistoryEntry, error)
	LatestPublic(ctx context.Context) (*models.Notification, error)
}

type ServiceParams struct {
	Repo      Repository
	Directory users.Directory
	Pusher    Pusher
	Recorder  BroadcastRecorder
	Metrics   *metrics.NotificationMetrics
	Logger    *logger.Logger
	Config    config.NotificationsConfig
	Now       func() time.Time
	// Dispatch runs background work such as pushes. Defaults to a goroutine.
	Dispatch func(func())
}

type service struct {
	repo      Repository
	directory users.Directory
	pusher    Pusher
	recorder  BroadcastRecorder
	metrics   *metrics.NotificationMetrics
	logg      *logger.Logger
	cfg       config.NotificationsConfig
	now       func() time.Time
	dispatch  func(func())
}

// NewService wires notifications dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if params.Directory == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user directory required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}

	svc := &service{
		repo:      params.Repo,
		directory: params.Directory,
		pusher:    params.Pusher,
		recorder:  params.Recorder,
		metrics:   params.Metrics,
		logg:      params.Logger,
		cfg:       withDefaults(params.Config),
		now:       params.Now,
		dispatch:  params.Dispatch,
	}
	if svc.pusher == nil {
		svc.pusher = NopPusher{}
	}
	if svc.recorder == nil {
		svc.recorder = NopRecorder{}
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
	if svc.dispatch == nil {
		svc.dispatch = func(fn func()) { go fn() }
	}
	return svc, nil
}

func withDefaults(cfg config.NotificationsConfig) config.NotificationsConfig {
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 200
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	if cfg.StoryTTL <= 0 {
		cfg.StoryTTL = 24 * time.Hour
	}
	if strings.TrimSpace(cfg.MediaMessage) == "" {
		cfg.MediaMessage = "Media shared"
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = 5 * time.Second
	}
	return cfg
}

// CreateInput describes a single notification addressed to one seller.
type CreateInput struct {
	UserID            uuid.UUID
	Kind              string
	Priority          string
	Message           string
	RelatedHatcheryID *uuid.UUID
	RelatedReportID   *uuid.UUID
	// Origin labels the metric; "api" or "pubsub".
	Origin string
}

type UnreadResult struct {
	Count         int64
	Notifications []models.Notification
}

// Create writes one plain notification. The single path carries no
// attachments and never produces a story.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Notification, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "userId and message required")
	}
	message := input.Message
	if strings.TrimSpace(message) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "userId and message required")
	}
	kind, priority, err := ParseKindAndPriority(input.Kind, input.Priority)
	if err != nil {
		return nil, err
	}

	now := s.now()
	userID := input.UserID
	notification := &models.Notification{
		ID:                uuid.New(),
		UserID:            &userID,
		Kind:              kind,
		Priority:          priority,
		Message:           message,
		Attachments:       dbtypes.Attachments{},
		DisplayTime:       now.Format(displayTimeLayout),
		RelatedHatcheryID: input.RelatedHatcheryID,
		RelatedReportID:   input.RelatedReportID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		if pkgdb.IsForeignKeyViolation(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create notification")
	}

	origin := input.Origin
	if origin == "" {
		origin = "api"
	}
	s.metrics.IncCreated(origin)
	s.pushAsync(ctx, []models.Notification{*notification})
	return notification, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "userId required")
	}
	rows, err := s.repo.ListForUser(ctx, userID, s.cfg.ListLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list notifications")
	}
	return rows, nil
}

func (s *service) ListUnread(ctx context.Context, userID uuid.UUID) (*UnreadResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "userId required")
	}
	rows, err := s.repo.ListUnread(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list unread notifications")
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread notifications")
	}
	return &UnreadResult{Count: count, Notifications: rows}, nil
}

// MarkRead is idempotent: marking an already-read notification succeeds.
func (s *service) MarkRead(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "id required")
	}
	found, err := s.repo.MarkRead(ctx, id, s.now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notification read")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "userId required")
	}
	count, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark notifications read")
	}
	return count, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "id required")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete notification")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "Not found")
	}
	return nil
}

func (s *service) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "userId required")
	}
	count, err := s.repo.DeleteAllForUser(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete notifications")
	}
	return count, nil
}

// Count reports everything the user can see and the unread notifications
// addressed to them. Global notifications never count as unread.
func (s *service) Count(ctx context.Context, userID uuid.UUID) (*Counts, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "userId required")
	}
	total, err := s.repo.CountVisible(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count notifications")
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count unread notifications")
	}
	return &Counts{Total: total, Unread: unread}, nil
}

func (s *service) ActiveStories(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "userId required")
	}
	rows, err := s.repo.ActiveStories(ctx, userID, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list active stories")
	}
	return rows, nil
}

// AdminStories returns one representative per broadcast among live stories,
// newest broadcast first. Stories without a broadcast stand alone.
func (s *service) AdminStories(ctx context.Context) ([]models.Notification, error) {
	rows, err := s.repo.UnexpiredStories(ctx, s.now())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list admin stories")
	}

	seen := make(map[uuid.UUID]struct{}, len(rows))
	representatives := make([]models.Notification, 0, len(rows))
	for _, row := range rows {
		key := row.ID
		if row.BroadcastID != nil {
			key = *row.BroadcastID
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		row.Read = false
		representatives = append(representatives, row)
	}

	// rows arrive oldest first; admins see the newest broadcast first.
	for i, j := 0, len(representatives)-1; i < j; i, j = i+1, j-1 {
		representatives[i], representatives[j] = representatives[j], representatives[i]
	}
	return representatives, nil
}

func (s *service) DeleteAdminStory(ctx context.Context, storyID uuid.UUID) (int64, error) {
	if storyID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "storyId required")
	}
	story, err := s.repo.FindByID(ctx, storyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "Story not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load story")
	}

	deleted, err := s.repo.DeleteStoryGroup(ctx, *story)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete story")
	}

	logCtx := ctx
	if story.BroadcastID != nil {
		logCtx = s.logg.WithBroadcastID(ctx, story.BroadcastID.String())
	}
	s.logg.Info(s.logg.WithField(logCtx, "deleted", deleted), "story.deleted")
	return deleted, nil
}

func (s *service) LatestPublic(ctx context.Context) (*models.Notification, error) {
	latest, err := s.repo.LatestPublic(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load latest public notification")
	}
	return latest, nil
}

// ParseKindAndPriority applies the info and medium defaults to blank values.
func ParseKindAndPriority(rawKind, rawPriority string) (enums.NotificationKind, enums.NotificationPriority, error) {
	kind, err := enums.ParseNotificationKind(rawKind)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type")
	}
	priority, err := enums.ParseNotificationPriority(rawPriority)
	if err != nil {
		return "", "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid priority")
	}
	return kind, priority, nil
}

// pushAsync delivers rows on a detached context so a finished request does not
// cancel in-flight pushes.
func (s *service) pushAsync(ctx context.Context, rows []models.Notification) {
	if len(rows) == 0 {
		return
	}
	detached := context.WithoutCancel(ctx)
	s.dispatch(func() {
		pushCtx, cancel := context.WithTimeout(detached, s.cfg.PushTimeout)
		defer cancel()
		for _, row := range rows {
			err := s.pusher.Push(pushCtx, row)
			s.metrics.IncPush(err == nil)
			if err != nil {
				s.logg.Warn(s.logg.WithFields(pushCtx, map[string]any{
					"notification_id": row.ID.String(),
					"error":           err.Error(),
				}), "notification.push_failed")
			}
		}
	})
}
