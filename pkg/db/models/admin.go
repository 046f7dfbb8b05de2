package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin is addressable by its uuid or by the human-facing AdminCode (ADM-0001).
type Admin struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	AdminCode string    `gorm:"column:admin_code;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;not null"`
	Username  string    `gorm:"column:username;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Admin) TableName() string {
	return "admins"
}
