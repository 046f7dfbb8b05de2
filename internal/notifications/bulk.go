package notifications

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/hatchery-backend/pkg/db/models"
)

// InsertOutcome classifies a fan-out insert.
type InsertOutcome string

const (
	OutcomeAll     InsertOutcome = "all"
	OutcomePartial InsertOutcome = "partial"
	OutcomeNone    InsertOutcome = "none"
)

// InsertFailure records one recipient whose copy could not be written.
// RecipientGone is set when the profile was deleted after the audience was
// resolved.
type InsertFailure struct {
	RecipientID   *uuid.UUID
	Err           error
	RecipientGone bool
}

// BulkInsertResult reports which copies of a fan-out were persisted.
type BulkInsertResult struct {
	Requested int
	Inserted  []models.Notification
	Failures  []InsertFailure
}

func (r BulkInsertResult) Outcome() InsertOutcome {
	switch {
	case len(r.Inserted) == 0:
		return OutcomeNone
	case len(r.Inserted) == r.Requested:
		return OutcomeAll
	default:
		return OutcomePartial
	}
}

// Gone counts failures caused by recipients that no longer exist.
func (r BulkInsertResult) Gone() int {
	n := 0
	for _, failure := range r.Failures {
		if failure.RecipientGone {
			n++
		}
	}
	return n
}

// Err combines the per-recipient failures, or returns nil when there were none.
func (r BulkInsertResult) Err() error {
	var combined error
	for _, failure := range r.Failures {
		recipient := "global"
		if failure.RecipientID != nil {
			recipient = failure.RecipientID.String()
		}
		combined = multierr.Append(combined, fmt.Errorf("recipient %s: %w", recipient, failure.Err))
	}
	return combined
}
