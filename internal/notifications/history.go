package notifications

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/hatchery-backend/internal/users"
	"github.com/angelmondragon/hatchery-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/hatchery-backend/pkg/db/types"
	"github.com/angelmondragon/hatchery-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
)

// History folds per-recipient copies back into one entry per broadcast,
// newest broadcast first.
func (s *service) History(ctx context.Context) ([]HistoryEntry, error) {
	groups, err := s.repo.BroadcastGroups(ctx, s.cfg.HistoryLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load broadcast groups")
	}
	if len(groups) == 0 {
		return []HistoryEntry{}, nil
	}

	ids := make([]uuid.UUID, 0, len(groups))
	for _, group := range groups {
		ids = append(ids, group.BroadcastID)
	}
	members, err := s.repo.BroadcastMembers(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load broadcast members")
	}

	byBroadcast := make(map[uuid.UUID][]models.Notification, len(groups))
	recipientIDs := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		if member.BroadcastID == nil {
			continue
		}
		byBroadcast[*member.BroadcastID] = append(byBroadcast[*member.BroadcastID], member)
		if member.UserID != nil && !isAllTarget(member.BroadcastTarget) {
			recipientIDs = append(recipientIDs, *member.UserID)
		}
	}

	names := map[uuid.UUID]string{}
	if len(recipientIDs) > 0 {
		names, err = s.directory.DisplayNames(ctx, recipientIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load recipient names")
		}
	}

	entries := make([]HistoryEntry, 0, len(groups))
	for _, group := range groups {
		copies := byBroadcast[group.BroadcastID]
		if len(copies) == 0 {
			continue
		}
		first := copies[0]
		files := first.Attachments
		if files == nil {
			files = dbtypes.Attachments{}
		}
		entries = append(entries, HistoryEntry{
			ID:              first.ID,
			BroadcastID:     group.BroadcastID,
			Message:         first.Message,
			Type:            first.Kind,
			Priority:        first.Priority,
			BroadcastTarget: first.BroadcastTarget,
			RecipientCount:  group.Recipients,
			Recipients:      recipientLabels(copies, names),
			SentAt:          first.CreatedAt,
			Files:           files,
		})
	}
	return entries, nil
}

func recipientLabels(copies []models.Notification, names map[uuid.UUID]string) []string {
	if isAllTarget(copies[0].BroadcastTarget) {
		return []string{users.AllSellersLabel}
	}
	labels := make([]string, 0, len(copies))
	hasRecipients := false
	for _, c := range copies {
		if c.UserID == nil {
			continue
		}
		hasRecipients = true
		if name, ok := names[*c.UserID]; ok && name != "" {
			labels = append(labels, name)
		}
	}
	if !hasRecipients {
		return []string{users.AllSellersLabel}
	}
	// Recipients whose profiles are gone drop out instead of widening the label.
	return labels
}

func isAllTarget(target *enums.BroadcastTarget) bool {
	return target != nil && *target == enums.BroadcastTargetAll
}
