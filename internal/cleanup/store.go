package cleanup

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/hatchery-backend/pkg/db/models"
)

// Store deletes expired rows, one category per call.
type Store interface {
	DeleteOldNotifications(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteExpiredStories(ctx context.Context, now time.Time) (int64, error)
	DeleteOldHelpMessages(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteOldConversations(ctx context.Context, cutoff time.Time) (int64, error)
}

type gormStore struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// DeleteOldNotifications leaves stories alone; they expire on their own schedule.
func (s *gormStore) DeleteOldNotifications(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("is_story = ? AND created_at < ?", false, cutoff).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

func (s *gormStore) DeleteExpiredStories(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("is_story = ? AND expires_at <= ?", true, now).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

func (s *gormStore) DeleteOldHelpMessages(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where(`"timestamp" < ?`, cutoff).
		Delete(&models.HelpMessage{})
	return result.RowsAffected, result.Error
}

func (s *gormStore) DeleteOldConversations(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&models.Conversation{})
	return result.RowsAffected, result.Error
}
