package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/hatchery-backend/pkg/enums"
)

// CurrentVersion is stamped on every envelope this service publishes.
const CurrentVersion = 1

// AttributeEventType carries the event type as a Pub/Sub message attribute.
const AttributeEventType = "event_type"

// ActorRef identifies who produced the event.
type ActorRef struct {
	ID   string `json:"id"`
	Role string `json:"role,omitempty"`
}

// Envelope is the stable payload structure for Pub/Sub events.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	EventType  enums.EventType `json:"eventType"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// NewEnvelope marshals data and stamps a fresh event id.
func NewEnvelope(eventType enums.EventType, actor *ActorRef, data any, now time.Time) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		Version:    CurrentVersion,
		EventID:    uuid.NewString(),
		EventType:  eventType,
		OccurredAt: now.UTC(),
		Actor:      actor,
		Data:       raw,
	}, nil
}

// Decode parses an envelope, falling back to the message attribute for the type.
func Decode(body []byte, attributeType string) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.EventType == "" {
		env.EventType = enums.EventType(strings.TrimSpace(attributeType))
	}
	if strings.TrimSpace(env.EventID) == "" {
		return nil, fmt.Errorf("envelope missing eventId")
	}
	if len(env.Data) == 0 {
		return nil, fmt.Errorf("envelope %s missing data", env.EventID)
	}
	return &env, nil
}
