package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/angelmondragon/hatchery-backend/pkg/db/types"
	"github.com/angelmondragon/hatchery-backend/pkg/enums"
)

// Notification is either addressed to one seller (UserID set) or global.
// Broadcast copies share BroadcastID; stories carry ExpiresAt.
type Notification struct {
	ID                uuid.UUID                  `gorm:"type:uuid;primaryKey"`
	UserID            *uuid.UUID                 `gorm:"type:uuid;column:user_id"`
	IsGlobal          bool                       `gorm:"column:is_global;not null;default:false"`
	Kind              enums.NotificationKind     `gorm:"column:type;type:text;not null;default:info"`
	Priority          enums.NotificationPriority `gorm:"column:priority;type:text;not null;default:medium"`
	Message           string                     `gorm:"column:message;type:text;not null"`
	Attachments       dbtypes.Attachments        `gorm:"column:attachments;type:jsonb;not null"`
	Read              bool                       `gorm:"column:read;not null;default:false"`
	DisplayTime       string                     `gorm:"column:display_time;type:text;not null;default:''"`
	RelatedHatcheryID *uuid.UUID                 `gorm:"type:uuid;column:related_hatchery_id"`
	RelatedReportID   *uuid.UUID                 `gorm:"type:uuid;column:related_report_id"`
	IsStory           bool                       `gorm:"column:is_story;not null;default:false"`
	ExpiresAt         *time.Time                 `gorm:"column:expires_at"`
	BroadcastID       *uuid.UUID                 `gorm:"type:uuid;column:broadcast_id"`
	BroadcastTarget   *enums.BroadcastTarget     `gorm:"column:broadcast_target;type:text"`
	CreatedAt         time.Time                  `gorm:"column:created_at;not null"`
	UpdatedAt         time.Time                  `gorm:"column:updated_at;not null"`
}

func (Notification) TableName() string {
	return "notifications"
}
