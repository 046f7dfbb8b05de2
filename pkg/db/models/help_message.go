package models

import (
	"time"

	"github.com/google/uuid"
)

// HelpMessage and Conversation belong to the help chat. Only retention is
// handled here.
type HelpMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;column:user_id;not null"`
	Sender    string    `gorm:"column:sender;not null"`
	Message   string    `gorm:"column:message;not null"`
	Timestamp time.Time `gorm:"column:timestamp;not null"`
}

func (HelpMessage) TableName() string {
	return "help_messages"
}

type Conversation struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"type:uuid;column:user_id;not null"`
	AdminID   *uuid.UUID `gorm:"type:uuid;column:admin_id"`
	Subject   string     `gorm:"column:subject"`
	CreatedAt time.Time  `gorm:"column:created_at;not null"`
	UpdatedAt time.Time  `gorm:"column:updated_at;not null"`
}

func (Conversation) TableName() string {
	return "conversations"
}
