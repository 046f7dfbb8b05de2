package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"go.uber.org/multierr"

	"github.com/angelmondragon/hatchery-backend/pkg/enums"
	"github.com/angelmondragon/hatchery-backend/pkg/events"
)

// BroadcastAudit describes one completed broadcast for downstream consumers.
type BroadcastAudit struct {
	BroadcastID string    `json:"broadcastId" bigquery:"broadcast_id"`
	Target      string    `json:"target" bigquery:"target"`
	AdminID     string    `json:"adminId,omitempty" bigquery:"admin_id"`
	Outcome     string    `json:"outcome" bigquery:"outcome"`
	Requested   int       `json:"requested" bigquery:"requested"`
	Inserted    int       `json:"inserted" bigquery:"inserted"`
	Failed      int       `json:"failed" bigquery:"failed"`
	IsStory     bool      `json:"isStory" bigquery:"is_story"`
	Files       int       `json:"files" bigquery:"files"`
	SentAt      time.Time `json:"sentAt" bigquery:"sent_at"`
}

// BroadcastRecorder is notified after every broadcast, public ones included.
type BroadcastRecorder interface {
	RecordBroadcast(ctx context.Context, audit BroadcastAudit) error
}

type NopRecorder struct{}

func (NopRecorder) RecordBroadcast(context.Context, BroadcastAudit) error { return nil }

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// EventRecorder publishes notification.broadcasted envelopes to Pub/Sub.
type EventRecorder struct {
	publisher publisher
	now       func() time.Time
}

func NewEventRecorder(p *gcppubsub.Publisher) *EventRecorder {
	return &EventRecorder{publisher: &gcpPublisher{Publisher: p}, now: time.Now}
}

func (r *EventRecorder) RecordBroadcast(ctx context.Context, audit BroadcastAudit) error {
	envelope, err := events.NewEnvelope(enums.EventNotificationBroadcasted, nil, audit, r.now())
	if err != nil {
		return err
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal broadcast envelope: %w", err)
	}

	result := r.publisher.Publish(ctx, &gcppubsub.Message{
		Data: body,
		Attributes: map[string]string{
			events.AttributeEventType: enums.EventNotificationBroadcasted.String(),
			"broadcast_target":        audit.Target,
		},
	})
	if result == nil {
		return fmt.Errorf("broadcast publisher not configured")
	}
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish broadcast %s: %w", audit.BroadcastID, err)
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return p.Publisher.Publish(ctx, msg)
}

type rowInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// TableRecorder streams audits into a BigQuery table.
type TableRecorder struct {
	inserter rowInserter
	table    string
}

func NewTableRecorder(inserter rowInserter, table string) *TableRecorder {
	return &TableRecorder{inserter: inserter, table: table}
}

func (r *TableRecorder) RecordBroadcast(ctx context.Context, audit BroadcastAudit) error {
	return r.inserter.InsertRows(ctx, r.table, []any{audit})
}

// MultiRecorder records to every sink and combines failures.
type MultiRecorder []BroadcastRecorder

func (m MultiRecorder) RecordBroadcast(ctx context.Context, audit BroadcastAudit) error {
	var errs error
	for _, recorder := range m {
		if recorder == nil {
			continue
		}
		errs = multierr.Append(errs, recorder.RecordBroadcast(ctx, audit))
	}
	return errs
}
