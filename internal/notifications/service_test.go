package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/hatchery-backend/internal/users"
	"github.com/angelmondragon/hatchery-backend/pkg/config"
	"github.com/angelmondragon/hatchery-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/hatchery-backend/pkg/db/types"
	"github.com/angelmondragon/hatchery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
	"github.com/angelmondragon/hatchery-backend/pkg/metrics"
)

type fakeDirectory struct {
	approved   []uuid.UUID
	admins     map[string]uuid.UUID
	names      map[uuid.UUID]string
	lastFilter users.Filter
	err        error
}

func (f *fakeDirectory) ApprovedUserIDs(_ context.Context, filter users.Filter) ([]uuid.UUID, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	if len(filter.IDs) > 0 {
		allowed := make(map[uuid.UUID]struct{}, len(f.approved))
		for _, id := range f.approved {
			allowed[id] = struct{}{}
		}
		var out []uuid.UUID
		for _, id := range filter.IDs {
			if _, ok := allowed[id]; ok {
				out = append(out, id)
			}
		}
		return out, nil
	}
	return f.approved, nil
}

func (f *fakeDirectory) ResolveAdmin(_ context.Context, ref string) (uuid.UUID, error) {
	if id, ok := f.admins[ref]; ok {
		return id, nil
	}
	return uuid.Nil, users.ErrAdminNotFound
}

func (f *fakeDirectory) DisplayNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if name, ok := f.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

type capturePusher struct {
	pushed []models.Notification
	err    error
}

func (p *capturePusher) Push(_ context.Context, n models.Notification) error {
	p.pushed = append(p.pushed, n)
	return p.err
}

type captureRecorder struct {
	audits []BroadcastAudit
}

func (r *captureRecorder) RecordBroadcast(_ context.Context, audit BroadcastAudit) error {
	r.audits = append(r.audits, audit)
	return nil
}

// scriptedRepo overrides CreateMany so fan-out outcomes can be forced.
type scriptedRepo struct {
	Repository
	create     func(row *models.Notification) error
	createMany func(rows []models.Notification) BulkInsertResult
}

func (r *scriptedRepo) Create(ctx context.Context, row *models.Notification) error {
	if r.create != nil {
		return r.create(row)
	}
	return r.Repository.Create(ctx, row)
}

func (r *scriptedRepo) CreateMany(ctx context.Context, rows []models.Notification) BulkInsertResult {
	if r.createMany != nil {
		return r.createMany(rows)
	}
	return r.Repository.CreateMany(ctx, rows)
}

type harness struct {
	svc       Service
	repo      *scriptedRepo
	directory *fakeDirectory
	pusher    *capturePusher
	recorder  *captureRecorder
	now       time.Time
}

func newHarness(t *testing.T, m *metrics.NotificationMetrics) *harness {
	t.Helper()
	return newHarnessWithConfig(t, m, config.NotificationsConfig{})
}

func newHarnessWithConfig(t *testing.T, m *metrics.NotificationMetrics, cfg config.NotificationsConfig) *harness {
	t.Helper()
	h := &harness{
		repo:      &scriptedRepo{Repository: NewRepository(openTestDB(t))},
		directory: &fakeDirectory{admins: map[string]uuid.UUID{}, names: map[uuid.UUID]string{}},
		pusher:    &capturePusher{},
		recorder:  &captureRecorder{},
		now:       baseTime,
	}
	svc, err := NewService(ServiceParams{
		Repo:      h.repo,
		Directory: h.directory,
		Pusher:    h.pusher,
		Recorder:  h.recorder,
		Metrics:   m,
		Logger:    logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Config:    cfg,
		Now:       func() time.Time { return h.now },
		Dispatch:  func(fn func()) { fn() },
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func requireCode(t *testing.T, err error, code pkgerrors.Code, message string) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
	if message != "" {
		assert.Equal(t, message, typed.Message())
	}
}

func broadcastCount(t *testing.T, reg *prometheus.Registry, target, outcome string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "hatchery_broadcasts_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["target"] == target && labels["outcome"] == outcome {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func sampleAttachments() dbtypes.Attachments {
	return dbtypes.Attachments{{URL: "https://cdn.example.com/notifications/flyer.png", StorageID: "notifications/flyer.png", MediaKind: enums.MediaKindImage, UploadedAt: baseTime}}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	requireCode(t, err, pkgerrors.CodeDependency, "")
}

func TestBroadcastToUsersFansOut(t *testing.T) {
	h := newHarness(t, nil)
	alice, bob, stranger := uuid.New(), uuid.New(), uuid.New()
	h.directory.approved = []uuid.UUID{alice, bob}

	res, err := h.svc.Broadcast(context.Background(), BroadcastInput{
		TargetInput: TargetInput{Target: "users", UserIDs: []string{alice.String(), bob.String(), alice.String(), stranger.String()}},
		Kind:        "warning",
		Priority:    "high",
		Message:     "  Vaccination drive on Friday  ",
		ActorID:     "admin-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Notifications created for 2 users", res.Message)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, OutcomeAll, res.Outcome)
	require.NotNil(t, res.BroadcastID)
	require.Len(t, res.Notifications, 2)
	for _, n := range res.Notifications {
		assert.Equal(t, *res.BroadcastID, *n.BroadcastID)
		assert.Equal(t, enums.BroadcastTargetUsers, *n.BroadcastTarget)
		assert.Equal(t, "Vaccination drive on Friday", n.Message)
		assert.Equal(t, enums.NotificationKindWarning, n.Kind)
		assert.Equal(t, enums.NotificationPriorityHigh, n.Priority)
		assert.False(t, n.IsStory)
		assert.Nil(t, n.ExpiresAt)
		assert.False(t, n.IsGlobal)
	}
	assert.Equal(t, []uuid.UUID{alice, bob, stranger}, h.directory.lastFilter.IDs)
	assert.Len(t, h.pusher.pushed, 2)
	require.Len(t, h.recorder.audits, 1)
	assert.Equal(t, "users", h.recorder.audits[0].Target)
	assert.Equal(t, "admin-1", h.recorder.audits[0].AdminID)
	assert.Equal(t, 2, h.recorder.audits[0].Inserted)

	listed, err := h.svc.ListForUser(context.Background(), alice)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestBroadcastWithFilesCreatesStories(t *testing.T) {
	h := newHarness(t, nil)
	seller := uuid.New()
	h.directory.approved = []uuid.UUID{seller}

	res, err := h.svc.Broadcast(context.Background(), BroadcastInput{
		TargetInput: TargetInput{Target: "region", Region: "Rift Valley"},
		Attachments: sampleAttachments(),
	})
	require.NoError(t, err)
	require.Len(t, res.Notifications, 1)

	story := res.Notifications[0]
	assert.True(t, story.IsStory)
	assert.Equal(t, "Media shared", story.Message)
	require.NotNil(t, story.ExpiresAt)
	assert.Equal(t, baseTime.Add(24*time.Hour), story.ExpiresAt.UTC())
	assert.Equal(t, "Rift Valley", h.directory.lastFilter.Region)
	assert.Equal(t, enums.NotificationKindInfo, story.Kind)
	assert.Equal(t, enums.NotificationPriorityMedium, story.Priority)

	active, err := h.svc.ActiveStories(context.Background(), seller)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	h.now = baseTime.Add(25 * time.Hour)
	active, err = h.svc.ActiveStories(context.Background(), seller)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestBroadcastKeepsMessageTextVerbatim(t *testing.T) {
	h := newHarness(t, nil)
	seller := uuid.New()
	h.directory.approved = []uuid.UUID{seller}
	raw := "  Line one\n\tindented line  "

	res, err := h.svc.Broadcast(context.Background(), BroadcastInput{
		TargetInput: TargetInput{Target: "users", UserIDs: []string{seller.String()}},
		Message:     raw,
	})
	require.NoError(t, err)
	require.Len(t, res.Notifications, 1)
	assert.Equal(t, raw, res.Notifications[0].Message)

	created, err := h.svc.Create(context.Background(), CreateInput{UserID: seller, Message: raw})
	require.NoError(t, err)
	assert.Equal(t, raw, created.Message)

	res, err = h.svc.Broadcast(context.Background(), BroadcastInput{
		TargetInput: TargetInput{Target: "users", UserIDs: []string{seller.String()}},
		Message:     " \n ",
		Attachments: sampleAttachments(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Media shared", res.Notifications[0].Message)
}

func TestBroadcastValidation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.Broadcast(ctx, BroadcastInput{TargetInput: TargetInput{Target: "all"}})
	requireCode(t, err, pkgerrors.CodeValidation, "message is required if no files are uploaded")

	_, err = h.svc.Broadcast(ctx, BroadcastInput{Message: "hi"})
	requireCode(t, err, pkgerrors.CodeValidation, "target is required")

	_, err = h.svc.Broadcast(ctx, BroadcastInput{TargetInput: TargetInput{Target: "district"}, Message: "hi"})
	requireCode(t, err, pkgerrors.CodeValidation, "district required")

	_, err = h.svc.Broadcast(ctx, BroadcastInput{TargetInput: TargetInput{Target: "all"}, Message: "hi", Kind: "urgent"})
	requireCode(t, err, pkgerrors.CodeValidation, "invalid type")

	assert.Empty(t, h.pusher.pushed)
}

func TestBroadcastPublicWritesOneGlobalRecord(t *testing.T) {
	h := newHarness(t, nil)
	h.directory.approved = []uuid.UUID{uuid.New(), uuid.New()}

	res, err := h.svc.Broadcast(context.Background(), BroadcastInput{
		TargetInput: TargetInput{Target: "public"},
		Message:     "Market prices updated",
	})
	require.NoError(t, err)

	assert.Equal(t, "Public notification created", res.Message)
	assert.Equal(t, 1, res.Count)
	assert.Nil(t, res.BroadcastID)
	require.Len(t, res.Notifications, 1)
	n := res.Notifications[0]
	assert.True(t, n.IsGlobal)
	assert.Nil(t, n.UserID)
	assert.Nil(t, n.BroadcastID)
	assert.Equal(t, enums.BroadcastTargetPublic, *n.BroadcastTarget)
	require.Len(t, h.pusher.pushed, 1)
	assert.True(t, h.pusher.pushed[0].IsGlobal)

	latest, err := h.svc.LatestPublic(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, n.ID, latest.ID)

	history, err := h.svc.History(context.Background())
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestBroadcastAllScopedToAdmin(t *testing.T) {
	h := newHarness(t, nil)
	adminID := uuid.New()
	h.directory.admins["ADM-0007"] = adminID
	h.directory.approved = []uuid.UUID{uuid.New()}

	_, err := h.svc.Broadcast(context.Background(), BroadcastInput{
		TargetInput: TargetInput{Target: "all", AdminID: "ADM-0007"},
		Message:     "Team meeting",
	})
	require.NoError(t, err)
	require.NotNil(t, h.directory.lastFilter.AssignedAdminID)
	assert.Equal(t, adminID, *h.directory.lastFilter.AssignedAdminID)

	_, err = h.svc.Broadcast(context.Background(), BroadcastInput{
		TargetInput: TargetInput{Target: "all", AdminID: "ADM-9999"},
		Message:     "Team meeting",
	})
	requireCode(t, err, pkgerrors.CodeNotFound, "Admin not found")
}

func TestBroadcastWithNoRecipients(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.svc.Broadcast(context.Background(), BroadcastInput{
		TargetInput: TargetInput{Target: "district", District: "Nakuru"},
		Message:     "hello",
	})
	requireCode(t, err, pkgerrors.CodeNotFound, "No target users found")
	assert.Empty(t, h.recorder.audits)

	h.directory.err = errors.New("connection refused")
	_, err = h.svc.Broadcast(context.Background(), BroadcastInput{
		TargetInput: TargetInput{Target: "all"},
		Message:     "hello",
	})
	requireCode(t, err, pkgerrors.CodeInternal, "")
}

func TestBroadcastInsertOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewNotificationMetrics(reg)
	h := newHarness(t, m)
	h.directory.approved = []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}

	h.repo.createMany = func(rows []models.Notification) BulkInsertResult {
		return BulkInsertResult{
			Requested: len(rows),
			Inserted:  rows[:2],
			Failures:  []InsertFailure{{RecipientID: rows[2].UserID, Err: errors.New("constraint violated")}},
		}
	}
	res, err := h.svc.Broadcast(context.Background(), BroadcastInput{TargetInput: TargetInput{Target: "all"}, Message: "partial"})
	require.NoError(t, err)
	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Equal(t, 2, res.Count)
	assert.Equal(t, "Notifications created for 2 users", res.Message)
	assert.Len(t, h.pusher.pushed, 2)
	assert.Equal(t, 1.0, broadcastCount(t, reg, "all", "partial"))

	h.repo.createMany = func(rows []models.Notification) BulkInsertResult {
		failures := make([]InsertFailure, 0, len(rows))
		for _, row := range rows {
			failures = append(failures, InsertFailure{RecipientID: row.UserID, Err: errors.New("db down")})
		}
		return BulkInsertResult{Requested: len(rows), Failures: failures}
	}
	_, err = h.svc.Broadcast(context.Background(), BroadcastInput{TargetInput: TargetInput{Target: "all"}, Message: "none"})
	requireCode(t, err, pkgerrors.CodeInternal, "failed to create notifications")
	assert.Equal(t, 1.0, broadcastCount(t, reg, "all", "none"))
	require.Len(t, h.recorder.audits, 2)
	assert.Equal(t, "none", h.recorder.audits[1].Outcome)
}

func TestHistoryAggregatesBroadcasts(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	h.directory.approved = []uuid.UUID{alice, bob}
	h.directory.names[alice] = "Alice"
	h.directory.names[bob] = "Bob"

	first, err := h.svc.Broadcast(ctx, BroadcastInput{TargetInput: TargetInput{Target: "users", UserIDs: []string{alice.String(), bob.String()}}, Message: "first"})
	require.NoError(t, err)

	h.now = baseTime.Add(time.Hour)
	second, err := h.svc.Broadcast(ctx, BroadcastInput{TargetInput: TargetInput{Target: "all"}, Message: "second", Attachments: sampleAttachments()})
	require.NoError(t, err)

	history, err := h.svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, *second.BroadcastID, history[0].BroadcastID)
	assert.Equal(t, "second", history[0].Message)
	assert.Equal(t, int64(2), history[0].RecipientCount)
	assert.Equal(t, []string{users.AllSellersLabel}, history[0].Recipients)
	assert.Len(t, history[0].Files, 1)
	assert.Equal(t, baseTime.Add(time.Hour), history[0].SentAt.UTC())

	assert.Equal(t, *first.BroadcastID, history[1].BroadcastID)
	assert.Equal(t, int64(first.Count), history[1].RecipientCount)
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, history[1].Recipients)
	assert.Equal(t, enums.BroadcastTargetUsers, *history[1].BroadcastTarget)
}

func TestHistoryKeepsUnresolvedRecipientsNarrow(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	alice, ghost := uuid.New(), uuid.New()
	h.directory.approved = []uuid.UUID{alice, ghost}
	h.directory.names[alice] = "Alice"

	_, err := h.svc.Broadcast(ctx, BroadcastInput{TargetInput: TargetInput{Target: "users", UserIDs: []string{ghost.String()}}, Message: "only ghost"})
	require.NoError(t, err)
	h.now = baseTime.Add(time.Minute)
	_, err = h.svc.Broadcast(ctx, BroadcastInput{TargetInput: TargetInput{Target: "users", UserIDs: []string{alice.String(), ghost.String()}}, Message: "mixed"})
	require.NoError(t, err)

	history, err := h.svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "mixed", history[0].Message)
	assert.Equal(t, []string{"Alice"}, history[0].Recipients)
	assert.Equal(t, "only ghost", history[1].Message)
	assert.Empty(t, history[1].Recipients)
	assert.NotContains(t, history[1].Recipients, users.AllSellersLabel)
}

func TestAdminStoriesAndDelete(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	h.directory.approved = []uuid.UUID{uuid.New(), uuid.New()}

	older, err := h.svc.Broadcast(ctx, BroadcastInput{TargetInput: TargetInput{Target: "all"}, Attachments: sampleAttachments()})
	require.NoError(t, err)
	h.now = baseTime.Add(time.Hour)
	newer, err := h.svc.Broadcast(ctx, BroadcastInput{TargetInput: TargetInput{Target: "all"}, Message: "new", Attachments: sampleAttachments()})
	require.NoError(t, err)

	stories, err := h.svc.AdminStories(ctx)
	require.NoError(t, err)
	require.Len(t, stories, 2)
	assert.Equal(t, *newer.BroadcastID, *stories[0].BroadcastID)
	assert.Equal(t, *older.BroadcastID, *stories[1].BroadcastID)

	deleted, err := h.svc.DeleteAdminStory(ctx, older.Notifications[1].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	stories, err = h.svc.AdminStories(ctx)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, *newer.BroadcastID, *stories[0].BroadcastID)

	_, err = h.svc.DeleteAdminStory(ctx, uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound, "Story not found")
}

func TestCreateSingleNotification(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	seller := uuid.New()
	hatchery := uuid.New()

	created, err := h.svc.Create(ctx, CreateInput{UserID: seller, Message: "Batch hatched", Kind: "success", RelatedHatcheryID: &hatchery})
	require.NoError(t, err)
	assert.False(t, created.IsStory)
	assert.Nil(t, created.BroadcastID)
	assert.Equal(t, hatchery, *created.RelatedHatcheryID)
	assert.Equal(t, "2026-03-01T09:00:00.000Z", created.DisplayTime)
	require.Len(t, h.pusher.pushed, 1)

	_, err = h.svc.Create(ctx, CreateInput{UserID: seller, Message: "   "})
	requireCode(t, err, pkgerrors.CodeValidation, "userId and message required")
	_, err = h.svc.Create(ctx, CreateInput{Message: "hi"})
	requireCode(t, err, pkgerrors.CodeValidation, "userId and message required")
	_, err = h.svc.Create(ctx, CreateInput{UserID: seller, Message: "hi", Priority: "urgent"})
	requireCode(t, err, pkgerrors.CodeValidation, "invalid priority")
}

func TestReadLifecycle(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	seller := uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		created, err := h.svc.Create(ctx, CreateInput{UserID: seller, Message: "ping"})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}
	_, err := h.svc.Broadcast(ctx, BroadcastInput{TargetInput: TargetInput{Target: "public"}, Message: "everyone"})
	require.NoError(t, err)

	counts, err := h.svc.Count(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, &Counts{Total: 4, Unread: 3}, counts)

	require.NoError(t, h.svc.MarkRead(ctx, ids[0]))
	require.NoError(t, h.svc.MarkRead(ctx, ids[0]))
	requireCode(t, h.svc.MarkRead(ctx, uuid.New()), pkgerrors.CodeNotFound, "Notification not found")

	unread, err := h.svc.ListUnread(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread.Count)
	assert.Len(t, unread.Notifications, 2)

	marked, err := h.svc.MarkAllRead(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	require.NoError(t, h.svc.Delete(ctx, ids[1]))
	requireCode(t, h.svc.Delete(ctx, ids[1]), pkgerrors.CodeNotFound, "Not found")

	removed, err := h.svc.DeleteAllForUser(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	_, err = h.svc.ListForUser(ctx, uuid.Nil)
	requireCode(t, err, pkgerrors.CodeValidation, "userId required")
}

func TestListUnreadIsNotCappedByListLimit(t *testing.T) {
	h := newHarnessWithConfig(t, nil, config.NotificationsConfig{ListLimit: 2})
	ctx := context.Background()
	seller := uuid.New()
	for i := 0; i < 3; i++ {
		h.now = baseTime.Add(time.Duration(i) * time.Minute)
		_, err := h.svc.Create(ctx, CreateInput{UserID: seller, Message: fmt.Sprintf("update %d", i)})
		require.NoError(t, err)
	}

	all, err := h.svc.ListForUser(ctx, seller)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	unread, err := h.svc.ListUnread(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread.Count)
	require.Len(t, unread.Notifications, 3)
	assert.Equal(t, "update 2", unread.Notifications[0].Message)
}

func TestCreateForUnknownRecipient(t *testing.T) {
	h := newHarness(t, nil)
	h.repo.create = func(*models.Notification) error {
		return &pgconn.PgError{Code: "23503", ConstraintName: "notifications_user_id_fkey"}
	}

	_, err := h.svc.Create(context.Background(), CreateInput{UserID: uuid.New(), Message: "approved"})
	requireCode(t, err, pkgerrors.CodeNotFound, "user not found")
	assert.False(t, pkgerrors.IsRetryable(err))
	assert.Empty(t, h.pusher.pushed)

	h.repo.create = func(*models.Notification) error { return errors.New("connection reset") }
	_, err = h.svc.Create(context.Background(), CreateInput{UserID: uuid.New(), Message: "approved"})
	requireCode(t, err, pkgerrors.CodeInternal, "create notification")
}

func TestPushFailureDoesNotFailCreate(t *testing.T) {
	h := newHarness(t, nil)
	h.pusher.err = errors.New("redis unavailable")

	_, err := h.svc.Create(context.Background(), CreateInput{UserID: uuid.New(), Message: "still saved"})
	require.NoError(t, err)
	assert.Len(t, h.pusher.pushed, 1)
}
