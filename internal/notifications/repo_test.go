package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/hatchery-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/hatchery-backend/pkg/db/types"
	"github.com/angelmondragon/hatchery-backend/pkg/enums"
)

var baseTime = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(&models.Notification{}, &models.Admin{}, &models.UserProfile{}))
	return conn
}

func newNotification(userID *uuid.UUID, at time.Time) models.Notification {
	return models.Notification{
		ID:          uuid.New(),
		UserID:      userID,
		Kind:        enums.NotificationKindInfo,
		Priority:    enums.NotificationPriorityMedium,
		Message:     "hello",
		Attachments: dbtypes.Attachments{},
		CreatedAt:   at,
		UpdatedAt:   at,
	}
}

func storyFor(userID uuid.UUID, broadcastID *uuid.UUID, at time.Time, ttl time.Duration) models.Notification {
	n := newNotification(&userID, at)
	expires := at.Add(ttl)
	n.IsStory = true
	n.ExpiresAt = &expires
	n.BroadcastID = broadcastID
	n.Attachments = dbtypes.Attachments{{URL: "https://cdn.example.com/a.jpg", StorageID: "a.jpg", MediaKind: enums.MediaKindImage}}
	return n
}

func ptr[T any](v T) *T {
	return &v
}

func TestRepositoryListForUserIncludesGlobalNewestFirst(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()
	user := uuid.New()
	other := uuid.New()

	older := newNotification(&user, baseTime)
	global := newNotification(nil, baseTime.Add(time.Minute))
	global.IsGlobal = true
	newer := newNotification(&user, baseTime.Add(2*time.Minute))
	foreign := newNotification(&other, baseTime.Add(3*time.Minute))
	for _, n := range []models.Notification{older, global, newer, foreign} {
		n := n
		require.NoError(t, repo.Create(ctx, &n))
	}

	rows, err := repo.ListForUser(ctx, user, 200)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []uuid.UUID{newer.ID, global.ID, older.ID}, []uuid.UUID{rows[0].ID, rows[1].ID, rows[2].ID})

	limited, err := repo.ListForUser(ctx, user, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, newer.ID, limited[0].ID)

	visible, err := repo.CountVisible(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(3), visible)

	unread, err := repo.CountUnread(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)
}

func TestRepositoryMarkReadIsIdempotent(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()
	user := uuid.New()
	n := newNotification(&user, baseTime)
	require.NoError(t, repo.Create(ctx, &n))

	found, err := repo.MarkRead(ctx, n.ID, baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.MarkRead(ctx, n.ID, baseTime.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.MarkRead(ctx, uuid.New(), baseTime)
	require.NoError(t, err)
	assert.False(t, found)

	unread, err := repo.ListUnread(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestRepositoryMarkAllReadAndDeleteAll(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()
	user := uuid.New()
	other := uuid.New()
	for i := 0; i < 3; i++ {
		n := newNotification(&user, baseTime.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, &n))
	}
	keep := newNotification(&other, baseTime)
	require.NoError(t, repo.Create(ctx, &keep))

	updated, err := repo.MarkAllRead(ctx, user, baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	updated, err = repo.MarkAllRead(ctx, user, baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated)

	deleted, err := repo.DeleteAllForUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	ok, err := repo.Delete(ctx, keep.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Delete(ctx, keep.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryStoriesAndGroupDelete(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()
	userA := uuid.New()
	userB := uuid.New()
	groupOne := uuid.New()
	groupTwo := uuid.New()

	a1 := storyFor(userA, &groupOne, baseTime, 24*time.Hour)
	b1 := storyFor(userB, &groupOne, baseTime, 24*time.Hour)
	a2 := storyFor(userA, &groupTwo, baseTime.Add(time.Hour), 24*time.Hour)
	expired := storyFor(userA, nil, baseTime.Add(-48*time.Hour), 24*time.Hour)
	plain := newNotification(&userA, baseTime)
	for _, n := range []models.Notification{a1, b1, a2, expired, plain} {
		n := n
		require.NoError(t, repo.Create(ctx, &n))
	}

	now := baseTime.Add(2 * time.Hour)
	active, err := repo.ActiveStories(ctx, userA, now)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, a2.ID, active[0].ID)
	assert.Equal(t, a1.ID, active[1].ID)

	live, err := repo.UnexpiredStories(ctx, now)
	require.NoError(t, err)
	assert.Len(t, live, 3)

	deleted, err := repo.DeleteStoryGroup(ctx, b1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := repo.UnexpiredStories(ctx, now)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, groupTwo, *remaining[0].BroadcastID)

	deleted, err = repo.DeleteStoryGroup(ctx, expired)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestRepositoryCreateManyFallsBackPerRow(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()
	user := uuid.New()

	existing := newNotification(&user, baseTime)
	require.NoError(t, repo.Create(ctx, &existing))

	fresh := newNotification(&user, baseTime)
	duplicate := existing
	result := repo.CreateMany(ctx, []models.Notification{fresh, duplicate})

	assert.Equal(t, 2, result.Requested)
	require.Len(t, result.Inserted, 1)
	assert.Equal(t, fresh.ID, result.Inserted[0].ID)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, OutcomePartial, result.Outcome())
	assert.Error(t, result.Err())

	all := repo.CreateMany(ctx, []models.Notification{newNotification(&user, baseTime), newNotification(&user, baseTime)})
	assert.Equal(t, OutcomeAll, all.Outcome())
	assert.NoError(t, all.Err())

	empty := repo.CreateMany(ctx, nil)
	assert.Equal(t, 0, empty.Requested)
}

func TestRepositoryBroadcastGroupsNewestFirst(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()
	first := uuid.New()
	second := uuid.New()

	var rows []models.Notification
	for i := 0; i < 3; i++ {
		n := newNotification(ptr(uuid.New()), baseTime)
		n.BroadcastID = &first
		rows = append(rows, n)
	}
	n := newNotification(ptr(uuid.New()), baseTime.Add(time.Hour))
	n.BroadcastID = &second
	rows = append(rows, n)
	rows = append(rows, newNotification(ptr(uuid.New()), baseTime.Add(2*time.Hour)))
	require.Equal(t, OutcomeAll, repo.CreateMany(ctx, rows).Outcome())

	groups, err := repo.BroadcastGroups(ctx, 50)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, second, groups[0].BroadcastID)
	assert.Equal(t, int64(1), groups[0].Recipients)
	assert.Equal(t, first, groups[1].BroadcastID)
	assert.Equal(t, int64(3), groups[1].Recipients)

	capped, err := repo.BroadcastGroups(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, capped, 1)

	members, err := repo.BroadcastMembers(ctx, []uuid.UUID{first})
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestRepositoryLatestPublic(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	ctx := context.Background()

	latest, err := repo.LatestPublic(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i := 0; i < 2; i++ {
		n := newNotification(nil, baseTime.Add(time.Duration(i)*time.Hour))
		n.IsGlobal = true
		n.Message = []string{"old", "new"}[i]
		require.NoError(t, repo.Create(ctx, &n))
	}

	latest, err = repo.LatestPublic(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "new", latest.Message)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
