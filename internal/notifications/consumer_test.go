package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/hatchery-backend/pkg/db/models"
	"github.com/angelmondragon/hatchery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
	"github.com/angelmondragon/hatchery-backend/pkg/events"
	"github.com/angelmondragon/hatchery-backend/pkg/idempotency"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
)

type memoryStore struct {
	keys map[string]string
	err  error
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = value.(string)
	return true, nil
}

func (m *memoryStore) DelIfValue(_ context.Context, key, value string) (bool, error) {
	if m.keys[key] != value {
		return false, nil
	}
	delete(m.keys, key)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "hb:idempotency:" + scope + ":" + id
}

type fakeCreator struct {
	inputs []CreateInput
	err    error
}

func (f *fakeCreator) Create(_ context.Context, input CreateInput) (*models.Notification, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Notification{ID: uuid.New(), UserID: &input.UserID}, nil
}

func newTestConsumer(t *testing.T, svc creator) (*Consumer, *memoryStore) {
	t.Helper()
	store := &memoryStore{keys: map[string]string{}}
	manager, err := idempotency.NewManager(store, time.Hour)
	require.NoError(t, err)
	consumer, err := newConsumer(svc, nil, manager, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return consumer, store
}

func requestBody(t *testing.T, eventType enums.EventType, data any) []byte {
	t.Helper()
	env, err := events.NewEnvelope(eventType, nil, data, baseTime)
	require.NoError(t, err)
	body, err := json.Marshal(env)
	require.NoError(t, err)
	return body
}

func TestConsumerCreatesNotificationOnce(t *testing.T) {
	svc := &fakeCreator{}
	consumer, _ := newTestConsumer(t, svc)
	seller := uuid.New()
	body := requestBody(t, enums.EventNotificationRequested, NotificationRequest{UserID: seller, Type: "success", Message: "Report approved"})
	attrs := map[string]string{events.AttributeEventType: enums.EventNotificationRequested.String()}

	result := consumer.process(context.Background(), "m-1", body, attrs)
	assert.True(t, result.ack)
	require.Len(t, svc.inputs, 1)
	assert.Equal(t, seller, svc.inputs[0].UserID)
	assert.Equal(t, "pubsub", svc.inputs[0].Origin)
	assert.Equal(t, "Report approved", svc.inputs[0].Message)

	result = consumer.process(context.Background(), "m-1", body, attrs)
	assert.True(t, result.ack)
	assert.Len(t, svc.inputs, 1)
}

func TestConsumerSkipsAndRejects(t *testing.T) {
	svc := &fakeCreator{}
	consumer, _ := newTestConsumer(t, svc)

	other := requestBody(t, enums.EventNotificationBroadcasted, map[string]string{"broadcastId": "x"})
	assert.True(t, consumer.process(context.Background(), "m-2", other, nil).ack)

	assert.True(t, consumer.process(context.Background(), "m-3", []byte("not json"), nil).ack)
	assert.Empty(t, svc.inputs)

	svc.err = pkgerrors.New(pkgerrors.CodeValidation, "userId and message required")
	body := requestBody(t, enums.EventNotificationRequested, NotificationRequest{})
	result := consumer.process(context.Background(), "m-4", body, nil)
	assert.True(t, result.ack)
	assert.False(t, result.nack)

	svc.err = pkgerrors.New(pkgerrors.CodeNotFound, "recipient not found")
	body = requestBody(t, enums.EventNotificationRequested, NotificationRequest{UserID: uuid.New(), Message: "gone"})
	assert.True(t, consumer.process(context.Background(), "m-7", body, nil).ack)
}

func TestConsumerReleasesOnFailure(t *testing.T) {
	svc := &fakeCreator{err: errors.New("db down")}
	consumer, store := newTestConsumer(t, svc)
	body := requestBody(t, enums.EventNotificationRequested, NotificationRequest{UserID: uuid.New(), Message: "hi"})

	result := consumer.process(context.Background(), "m-5", body, nil)
	assert.True(t, result.nack)
	assert.Empty(t, store.keys)

	svc.err = nil
	result = consumer.process(context.Background(), "m-5", body, nil)
	assert.True(t, result.ack)
	assert.Len(t, svc.inputs, 2)

	store.err = errors.New("redis down")
	assert.True(t, consumer.process(context.Background(), "m-6", requestBody(t, enums.EventNotificationRequested, NotificationRequest{UserID: uuid.New(), Message: "x"}), nil).nack)
}

func TestConsumerAcksRequestForDeletedSeller(t *testing.T) {
	h := newHarness(t, nil)
	h.repo.create = func(*models.Notification) error {
		return &pgconn.PgError{Code: "23503", ConstraintName: "notifications_user_id_fkey"}
	}
	consumer, store := newTestConsumer(t, h.svc)
	body := requestBody(t, enums.EventNotificationRequested, NotificationRequest{UserID: uuid.New(), Message: "Hatchery approved"})

	result := consumer.process(context.Background(), "m-8", body, nil)
	assert.True(t, result.ack)
	assert.False(t, result.nack)
	assert.Len(t, store.keys, 1, "the claim is kept so redeliveries are skipped")
}
