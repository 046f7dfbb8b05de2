package cleanup

import (
	"context"
	"time"
)

// Recorder receives every completed sweep.
type Recorder interface {
	RecordSweep(ctx context.Context, result Result) error
}

type NopRecorder struct{}

func (NopRecorder) RecordSweep(context.Context, Result) error { return nil }

// SweepRow is the audit table row written for each sweep.
type SweepRow struct {
	Scope             string    `bigquery:"scope"`
	NotificationCount int64     `bigquery:"notification_count"`
	StoryCount        int64     `bigquery:"story_count"`
	HelpMessageCount  int64     `bigquery:"help_message_count"`
	ConversationCount int64     `bigquery:"conversation_count"`
	TotalDeleted      int64     `bigquery:"total_deleted"`
	DurationMS        int64     `bigquery:"duration_ms"`
	StartedAt         time.Time `bigquery:"started_at"`
}

type rowInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// TableRecorder appends sweep results to a BigQuery table.
type TableRecorder struct {
	inserter rowInserter
	table    string
}

func NewTableRecorder(inserter rowInserter, table string) *TableRecorder {
	return &TableRecorder{inserter: inserter, table: table}
}

func (r *TableRecorder) RecordSweep(ctx context.Context, result Result) error {
	return r.inserter.InsertRows(ctx, r.table, []any{SweepRow{
		Scope:             string(result.Scope),
		NotificationCount: result.NotificationCount,
		StoryCount:        result.StoryCount,
		HelpMessageCount:  result.HelpMessageCount,
		ConversationCount: result.ConversationCount,
		TotalDeleted:      result.TotalDeleted,
		DurationMS:        result.Duration,
		StartedAt:         result.StartedAt,
	}})
}
