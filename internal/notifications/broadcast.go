package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/hatchery-backend/internal/users"
	"github.com/angelmondragon/hatchery-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/hatchery-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
)

// BroadcastInput is an admin broadcast request after file uploads completed.
type BroadcastInput struct {
	TargetInput
	Kind        string
	Priority    string
	Message     string
	Attachments dbtypes.Attachments
	// ActorID is the authenticated admin, recorded in the audit trail only.
	ActorID string
}

type BroadcastResult struct {
	Message       string
	Count         int
	Notifications []models.Notification
	Outcome       InsertOutcome
	BroadcastID   *uuid.UUID
}

func (s *service) Broadcast(ctx context.Context, input BroadcastInput) (*BroadcastResult, error) {
	target, err := ParseTarget(input.TargetInput)
	if err != nil {
		return nil, err
	}

	message := input.Message
	if strings.TrimSpace(message) == "" {
		if len(input.Attachments) == 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required if no files are uploaded")
		}
		message = s.cfg.MediaMessage
	}
	kind, priority, err := ParseKindAndPriority(input.Kind, input.Priority)
	if err != nil {
		return nil, err
	}

	now := s.now()
	attachments := make(dbtypes.Attachments, len(input.Attachments))
	copy(attachments, input.Attachments)
	targetKind := target.Kind()

	template := models.Notification{
		Kind:            kind,
		Priority:        priority,
		Message:         message,
		Attachments:     attachments,
		DisplayTime:     now.Format(displayTimeLayout),
		BroadcastTarget: &targetKind,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if len(attachments) > 0 {
		expiresAt := now.Add(s.cfg.StoryTTL)
		template.IsStory = true
		template.ExpiresAt = &expiresAt
	}

	ctx = s.logg.WithField(ctx, "broadcast_target", targetKind.String())

	if _, ok := target.(PublicTarget); ok {
		return s.broadcastPublic(ctx, template, input.ActorID)
	}

	recipients, err := s.resolveRecipients(ctx, target)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "No target users found")
	}

	broadcastID := uuid.New()
	ctx = s.logg.WithBroadcastID(ctx, broadcastID.String())

	rows := make([]models.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		row := template
		row.ID = uuid.New()
		userID := recipient
		row.UserID = &userID
		row.BroadcastID = &broadcastID
		rows = append(rows, row)
	}

	result := s.repo.CreateMany(ctx, rows)
	outcome := result.Outcome()
	s.metrics.ObserveBroadcast(targetKind.String(), string(outcome), len(result.Inserted), len(result.Failures))
	s.recordAsync(ctx, BroadcastAudit{
		BroadcastID: broadcastID.String(),
		Target:      targetKind.String(),
		AdminID:     input.ActorID,
		Outcome:     string(outcome),
		Requested:   result.Requested,
		Inserted:    len(result.Inserted),
		Failed:      len(result.Failures),
		IsStory:     template.IsStory,
		Files:       len(attachments),
		SentAt:      now,
	})

	switch outcome {
	case OutcomeNone:
		failure := result.Err()
		s.logg.Error(ctx, "broadcast.insert_failed", failure)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, failure, "failed to create notifications")
	case OutcomePartial:
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"requested": result.Requested,
			"inserted":  len(result.Inserted),
			"gone":      result.Gone(),
			"error":     result.Err().Error(),
		}), "broadcast.partial")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"recipients": len(result.Inserted),
		"is_story":   template.IsStory,
	}), "broadcast.fanout")
	s.pushAsync(ctx, result.Inserted)

	return &BroadcastResult{
		Message:       fmt.Sprintf("Notifications created for %d users", len(result.Inserted)),
		Count:         len(result.Inserted),
		Notifications: result.Inserted,
		Outcome:       outcome,
		BroadcastID:   &broadcastID,
	}, nil
}

func (s *service) broadcastPublic(ctx context.Context, template models.Notification, actorID string) (*BroadcastResult, error) {
	notification := template
	notification.ID = uuid.New()
	notification.IsGlobal = true

	if err := s.repo.Create(ctx, &notification); err != nil {
		s.metrics.ObserveBroadcast(template.BroadcastTarget.String(), string(OutcomeNone), 0, 1)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create public notification")
	}

	s.metrics.ObserveBroadcast(template.BroadcastTarget.String(), string(OutcomeAll), 1, 0)
	s.recordAsync(ctx, BroadcastAudit{
		BroadcastID: notification.ID.String(),
		Target:      template.BroadcastTarget.String(),
		AdminID:     actorID,
		Outcome:     string(OutcomeAll),
		Requested:   1,
		Inserted:    1,
		IsStory:     notification.IsStory,
		Files:       len(notification.Attachments),
		SentAt:      notification.CreatedAt,
	})
	s.logg.Info(s.logg.WithField(ctx, "notification_id", notification.ID.String()), "broadcast.public")
	s.pushAsync(ctx, []models.Notification{notification})

	return &BroadcastResult{
		Message:       "Public notification created",
		Count:         1,
		Notifications: []models.Notification{notification},
		Outcome:       OutcomeAll,
	}, nil
}

func (s *service) resolveRecipients(ctx context.Context, target Target) ([]uuid.UUID, error) {
	var filter users.Filter
	switch t := target.(type) {
	case AllTarget:
		if t.AdminRef != "" {
			adminID, err := s.directory.ResolveAdmin(ctx, t.AdminRef)
			if err != nil {
				if errors.Is(err, users.ErrAdminNotFound) {
					return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Admin not found")
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve admin")
			}
			filter.AssignedAdminID = &adminID
		}
	case RegionTarget:
		filter.Region = t.Region
	case DistrictTarget:
		filter.District = t.District
	case UsersTarget:
		filter.IDs = t.IDs
	default:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unsupported target %s", target.Kind())
	}

	ids, err := s.directory.ApprovedUserIDs(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve recipients")
	}
	return ids, nil
}

// recordAsync hands the audit to the recorder without holding up the response.
func (s *service) recordAsync(ctx context.Context, audit BroadcastAudit) {
	detached := context.WithoutCancel(ctx)
	s.dispatch(func() {
		recordCtx, cancel := context.WithTimeout(detached, s.cfg.PushTimeout)
		defer cancel()
		if err := s.recorder.RecordBroadcast(recordCtx, audit); err != nil {
			s.logg.Warn(s.logg.WithField(recordCtx, "error", err.Error()), "broadcast.audit_failed")
		}
	})
}
