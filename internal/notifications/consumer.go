package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/hatchery-backend/pkg/db/models"
	"github.com/angelmondragon/hatchery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
	"github.com/angelmondragon/hatchery-backend/pkg/events"
	"github.com/angelmondragon/hatchery-backend/pkg/idempotency"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
)

const requestConsumerName = "notification-requests"

type creator interface {
	Create(ctx context.Context, input CreateInput) (*models.Notification, error)
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

// Consumer turns notification.requested events from other services into
// single-user notifications.
type Consumer struct {
	svc          creator
	subscription receiver
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds a notification request consumer.
func NewConsumer(svc creator, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("notification request subscription required")
	}
	return newConsumer(svc, subscription, manager, logg)
}

func newConsumer(svc creator, subscription receiver, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if svc == nil {
		return nil, fmt.Errorf("notifications service required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		svc:          svc,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg.ID, msg.Data, msg.Attributes)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

// NotificationRequest is the data payload of a notification.requested event.
type NotificationRequest struct {
	UserID            uuid.UUID  `json:"userId"`
	Type              string     `json:"type"`
	Priority          string     `json:"priority"`
	Message           string     `json:"message"`
	RelatedHatcheryID *uuid.UUID `json:"relatedHatcheryId,omitempty"`
	RelatedReportID   *uuid.UUID `json:"relatedReportId,omitempty"`
}

func (c *Consumer) process(ctx context.Context, messageID string, data []byte, attrs map[string]string) processResult {
	eventType := attrs[events.AttributeEventType]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	envelope, err := events.Decode(data, eventType)
	if err != nil {
		c.logg.Error(logCtx, "consumer.decode_failed", err)
		return processResult{ack: true}
	}
	if envelope.EventType != enums.EventNotificationRequested {
		c.logg.Debug(logCtx, "consumer.skip_event")
		return processResult{ack: true}
	}
	logCtx = c.logg.WithField(logCtx, "event_id", envelope.EventID)

	claim, err := c.idempotency.Claim(ctx, requestConsumerName, envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "consumer.idempotency_failed", err)
		return processResult{nack: true}
	}
	if claim == nil {
		c.logg.Info(logCtx, "consumer.duplicate_event")
		return processResult{ack: true}
	}

	var request NotificationRequest
	if err := json.Unmarshal(envelope.Data, &request); err != nil {
		c.logg.Error(logCtx, "consumer.payload_invalid", err)
		return processResult{ack: true}
	}

	created, err := c.svc.Create(ctx, CreateInput{
		UserID:            request.UserID,
		Kind:              request.Type,
		Priority:          request.Priority,
		Message:           request.Message,
		RelatedHatcheryID: request.RelatedHatcheryID,
		RelatedReportID:   request.RelatedReportID,
		Origin:            "pubsub",
	})
	if err != nil {
		if !pkgerrors.IsRetryable(err) {
			c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "consumer.request_rejected")
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "consumer.create_failed", err)
		if releaseErr := claim.Release(ctx); releaseErr != nil {
			c.logg.Error(logCtx, "consumer.release_failed", releaseErr)
		}
		return processResult{nack: true}
	}

	logCtx = c.logg.WithUserID(logCtx, request.UserID.String())
	c.logg.Info(c.logg.WithField(logCtx, "notification_id", created.ID.String()), "consumer.notification_created")
	return processResult{ack: true}
}
