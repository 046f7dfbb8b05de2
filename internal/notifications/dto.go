package notifications

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/hatchery-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/hatchery-backend/pkg/db/types"
	"github.com/angelmondragon/hatchery-backend/pkg/enums"
)

// NotificationDTO is the wire shape returned by every list and create endpoint.
type NotificationDTO struct {
	ID                uuid.UUID                  `json:"id"`
	UserID            *uuid.UUID                 `json:"userId"`
	IsGlobal          bool                       `json:"isGlobal"`
	Type              enums.NotificationKind     `json:"type"`
	Priority          enums.NotificationPriority `json:"priority"`
	Message           string                     `json:"message"`
	Files             dbtypes.Attachments        `json:"files"`
	Time              string                     `json:"time"`
	Read              bool                       `json:"read"`
	RelatedHatcheryID *uuid.UUID                 `json:"relatedHatcheryId"`
	RelatedReportID   *uuid.UUID                 `json:"relatedReportId"`
	IsStory           bool                       `json:"isStory"`
	ExpiresAt         *time.Time                 `json:"expiresAt"`
	BroadcastID       *uuid.UUID                 `json:"broadcastId"`
	BroadcastTarget   *enums.BroadcastTarget     `json:"broadcastTarget"`
	CreatedAt         time.Time                  `json:"createdAt"`
	UpdatedAt         time.Time                  `json:"updatedAt"`
}

func FromModel(m models.Notification) NotificationDTO {
	files := m.Attachments
	if files == nil {
		files = dbtypes.Attachments{}
	}
	return NotificationDTO{
		ID:                m.ID,
		UserID:            m.UserID,
		IsGlobal:          m.IsGlobal,
		Type:              m.Kind,
		Priority:          m.Priority,
		Message:           m.Message,
		Files:             files,
		Time:              m.DisplayTime,
		Read:              m.Read,
		RelatedHatcheryID: m.RelatedHatcheryID,
		RelatedReportID:   m.RelatedReportID,
		IsStory:           m.IsStory,
		ExpiresAt:         m.ExpiresAt,
		BroadcastID:       m.BroadcastID,
		BroadcastTarget:   m.BroadcastTarget,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// FromModels never returns nil so empty lists encode as [].
func FromModels(rows []models.Notification) []NotificationDTO {
	out := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out
}

// StoryDTO is the reduced projection used by the story carousels.
type StoryDTO struct {
	ID        uuid.UUID                  `json:"id"`
	Message   string                     `json:"message"`
	Files     dbtypes.Attachments        `json:"files"`
	Type      enums.NotificationKind     `json:"type"`
	Priority  enums.NotificationPriority `json:"priority"`
	Read      bool                       `json:"read"`
	CreatedAt time.Time                  `json:"createdAt"`
	ExpiresAt *time.Time                 `json:"expiresAt"`
}

func StoriesFromModels(rows []models.Notification) []StoryDTO {
	out := make([]StoryDTO, 0, len(rows))
	for _, row := range rows {
		files := row.Attachments
		if files == nil {
			files = dbtypes.Attachments{}
		}
		out = append(out, StoryDTO{
			ID:        row.ID,
			Message:   row.Message,
			Files:     files,
			Type:      row.Kind,
			Priority:  row.Priority,
			Read:      row.Read,
			CreatedAt: row.CreatedAt,
			ExpiresAt: row.ExpiresAt,
		})
	}
	return out
}

// HistoryEntry summarises one broadcast for the admin history screen.
type HistoryEntry struct {
	ID              uuid.UUID                  `json:"id"`
	BroadcastID     uuid.UUID                  `json:"broadcastId"`
	Message         string                     `json:"message"`
	Type            enums.NotificationKind     `json:"type"`
	Priority        enums.NotificationPriority `json:"priority"`
	BroadcastTarget *enums.BroadcastTarget     `json:"broadcastTarget"`
	RecipientCount  int64                      `json:"recipientCount"`
	Recipients      []string                   `json:"recipients"`
	SentAt          time.Time                  `json:"sentAt"`
	Files           dbtypes.Attachments        `json:"files"`
}

// Counts backs GET /count/{userId}.
type Counts struct {
	Total  int64 `json:"totalCount"`
	Unread int64 `json:"unreadCount"`
}
