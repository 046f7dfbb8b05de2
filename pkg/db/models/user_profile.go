package models

import (
	"time"

	"github.com/google/uuid"
)

// UserProfile is the seller record owned by the profile service. This service
// only reads it to resolve broadcast audiences and display names.
type UserProfile struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserCode        string     `gorm:"column:user_code;not null"`
	Name            string     `gorm:"column:name;not null"`
	PhoneNumber     string     `gorm:"column:phone_number"`
	Region          string     `gorm:"column:region"`
	District        string     `gorm:"column:district"`
	IsApproved      bool       `gorm:"column:is_approved;not null;default:false"`
	AssignedAdminID *uuid.UUID `gorm:"type:uuid;column:assigned_admin_id"`
	CreatedAt       time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}
