package controllers

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/hatchery-backend/internal/notifications"
	"github.com/angelmondragon/hatchery-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/hatchery-backend/pkg/db/types"
	"github.com/angelmondragon/hatchery-backend/pkg/enums"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
	"github.com/angelmondragon/hatchery-backend/pkg/storage"
)

type testNotificationsService struct {
	broadcastFn    func(ctx context.Context, input notifications.BroadcastInput) (*notifications.BroadcastResult, error)
	createFn       func(ctx context.Context, input notifications.CreateInput) (*models.Notification, error)
	listFn         func(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	listUnreadFn   func(ctx context.Context, userID uuid.UUID) (*notifications.UnreadResult, error)
	markReadFn     func(ctx context.Context, id uuid.UUID) error
	markAllReadFn  func(ctx context.Context, userID uuid.UUID) (int64, error)
	deleteFn       func(ctx context.Context, id uuid.UUID) error
	deleteAllFn    func(ctx context.Context, userID uuid.UUID) (int64, error)
	countFn        func(ctx context.Context, userID uuid.UUID) (*notifications.Counts, error)
	storiesFn      func(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	adminStoriesFn func(ctx context.Context) ([]models.Notification, error)
	deleteStoryFn  func(ctx context.Context, storyID uuid.UUID) (int64, error)
	historyFn      func(ctx context.Context) ([]notifications.HistoryEntry, error)
	latestFn       func(ctx context.Context) (*models.Notification, error)
}

func (s *testNotificationsService) Broadcast(ctx context.Context, input notifications.BroadcastInput) (*notifications.BroadcastResult, error) {
	if s.broadcastFn != nil {
		return s.broadcastFn(ctx, input)
	}
	return &notifications.BroadcastResult{}, nil
}

func (s *testNotificationsService) Create(ctx context.Context, input notifications.CreateInput) (*models.Notification, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return &models.Notification{}, nil
}

func (s *testNotificationsService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	if s.listFn != nil {
		return s.listFn(ctx, userID)
	}
	return nil, nil
}

func (s *testNotificationsService) ListUnread(ctx context.Context, userID uuid.UUID) (*notifications.UnreadResult, error) {
	if s.listUnreadFn != nil {
		return s.listUnreadFn(ctx, userID)
	}
	return &notifications.UnreadResult{}, nil
}

func (s *testNotificationsService) MarkRead(ctx context.Context, id uuid.UUID) error {
	if s.markReadFn != nil {
		return s.markReadFn(ctx, id)
	}
	return nil
}

func (s *testNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.markAllReadFn != nil {
		return s.markAllReadFn(ctx, userID)
	}
	return 0, nil
}

func (s *testNotificationsService) Delete(ctx context.Context, id uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, id)
	}
	return nil
}

func (s *testNotificationsService) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	if s.deleteAllFn != nil {
		return s.deleteAllFn(ctx, userID)
	}
	return 0, nil
}

func (s *testNotificationsService) Count(ctx context.Context, userID uuid.UUID) (*notifications.Counts, error) {
	if s.countFn != nil {
		return s.countFn(ctx, userID)
	}
	return &notifications.Counts{}, nil
}

func (s *testNotificationsService) ActiveStories(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	if s.storiesFn != nil {
		return s.storiesFn(ctx, userID)
	}
	return nil, nil
}

func (s *testNotificationsService) AdminStories(ctx context.Context) ([]models.Notification, error) {
	if s.adminStoriesFn != nil {
		return s.adminStoriesFn(ctx)
	}
	return nil, nil
}

func (s *testNotificationsService) DeleteAdminStory(ctx context.Context, storyID uuid.UUID) (int64, error) {
	if s.deleteStoryFn != nil {
		return s.deleteStoryFn(ctx, storyID)
	}
	return 0, nil
}

func (s *testNotificationsService) History(ctx context.Context) ([]notifications.HistoryEntry, error) {
	if s.historyFn != nil {
		return s.historyFn(ctx)
	}
	return []notifications.HistoryEntry{}, nil
}

func (s *testNotificationsService) LatestPublic(ctx context.Context) (*models.Notification, error) {
	if s.latestFn != nil {
		return s.latestFn(ctx)
	}
	return nil, nil
}

type fakeUploader struct {
	uploaded []string
	removed  []string
	err      error
	// failAfter fails every upload once this many have succeeded.
	failAfter int
}

func (f *fakeUploader) Upload(_ context.Context, file storage.File) (dbtypes.Attachment, error) {
	if f.err != nil && len(f.uploaded) >= f.failAfter {
		return dbtypes.Attachment{}, f.err
	}
	body, _ := io.ReadAll(file.Body)
	f.uploaded = append(f.uploaded, file.Filename)
	return dbtypes.Attachment{
		URL:        "https://cdn.example.com/" + file.Filename,
		StorageID:  "notifications/" + file.Filename,
		Filename:   file.Filename,
		MediaKind:  enums.MediaKindFromMIME(storage.DetectContentType(body, file.ContentType)),
		UploadedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}, nil
}

func (f *fakeUploader) Remove(_ context.Context, storageID string) error {
	f.removed = append(f.removed, storageID)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func sampleNotification(userID *uuid.UUID) models.Notification {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return models.Notification{
		ID:          uuid.New(),
		UserID:      userID,
		IsGlobal:    userID == nil,
		Kind:        enums.NotificationKindInfo,
		Priority:    enums.NotificationPriorityMedium,
		Message:     "Feed delivery tomorrow",
		Attachments: dbtypes.Attachments{},
		DisplayTime: "2026-03-01T09:00:00.000Z",
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func mustNotFail(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
