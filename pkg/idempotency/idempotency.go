package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Store is the subset of the Redis client the manager relies on.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key string, value string) (bool, error)
	IdempotencyKey(scope, id string) string
}

// Manager deduplicates event deliveries per consumer. A delivery claims
// hb:idempotency:evt:<consumer>:<event_id> for the TTL; a second delivery of
// the same event finds the key and is skipped.
type Manager struct {
	store Store
	ttl   time.Duration
}

func NewManager(store Store, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// Claim is held by the delivery that won the race for an event.
type Claim struct {
	store Store
	key   string
	token string
}

// Claim returns nil and no error when the event was already claimed.
func (m *Manager) Claim(ctx context.Context, consumer, eventID string) (*Claim, error) {
	consumer, eventID = strings.TrimSpace(consumer), strings.TrimSpace(eventID)
	switch {
	case consumer == "":
		return nil, errors.New("consumer name is required")
	case eventID == "":
		return nil, errors.New("event id is required")
	}

	claim := &Claim{
		store: m.store,
		key:   m.store.IdempotencyKey("evt:"+consumer, eventID),
		token: uuid.NewString(),
	}
	won, err := m.store.SetNX(ctx, claim.key, claim.token, m.ttl)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, nil
	}
	return claim, nil
}

// Release gives the event back so a redelivery is processed again. A claim
// that expired and was taken by another delivery is left alone.
func (c *Claim) Release(ctx context.Context) error {
	if c == nil {
		return nil
	}
	_, err := c.store.DelIfValue(ctx, c.key, c.token)
	return err
}

func (c *Claim) Key() string {
	if c == nil {
		return ""
	}
	return c.key
}
