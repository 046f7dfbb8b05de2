package notifications

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/angelmondragon/hatchery-backend/pkg/db"
	"github.com/angelmondragon/hatchery-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/hatchery-backend/pkg/db/types"
)

// ErrNotFound is returned by single-record lookups that match nothing.
var ErrNotFound = errors.New("notification not found")

// Repository exposes persistence helpers for notifications.
type Repository interface {
	Create(ctx context.Context, notification *models.Notification) error
	CreateMany(ctx context.Context, rows []models.Notification) BulkInsertResult
	FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error)
	ListUnread(ctx context.Context, userID uuid.UUID) ([]models.Notification, error)
	CountVisible(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ActiveStories(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Notification, error)
	UnexpiredStories(ctx context.Context, now time.Time) ([]models.Notification, error)
	DeleteStoryGroup(ctx context.Context, story models.Notification) (int64, error)
	BroadcastGroups(ctx context.Context, limit int) ([]BroadcastGroup, error)
	BroadcastMembers(ctx context.Context, broadcastIDs []uuid.UUID) ([]models.Notification, error)
	LatestPublic(ctx context.Context) (*models.Notification, error)
}

// BroadcastGroup is one row of the history aggregate.
type BroadcastGroup struct {
	BroadcastID uuid.UUID `gorm:"column:broadcast_id"`
	Recipients  int64     `gorm:"column:recipients"`
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

const hasAttachments = "attachments <> '" + dbtypes.EmptyAttachmentsJSON + "'"

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// CreateMany writes all rows in one statement. If that statement fails the rows
// are retried one by one so a single bad row does not sink the whole fan-out.
func (r *repositoryImpl) CreateMany(ctx context.Context, rows []models.Notification) BulkInsertResult {
	result := BulkInsertResult{Requested: len(rows)}
	if len(rows) == 0 {
		return result
	}

	batch := make([]models.Notification, len(rows))
	copy(batch, rows)
	if err := r.db.WithContext(ctx).Create(&batch).Error; err == nil {
		result.Inserted = batch
		return result
	}

	for i := range rows {
		row := rows[i]
		if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
			result.Failures = append(result.Failures, InsertFailure{RecipientID: row.UserID, Err: err, RecipientGone: pkgdb.IsForeignKeyViolation(err)})
			continue
		}
		result.Inserted = append(result.Inserted, row)
	}
	return result
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).First(&notification, "id = ?", id).Error; err != nil {
		if pkgdb.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &notification, nil
}

func (r *repositoryImpl) ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ? OR is_global = ?", userID, true).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// ListUnread returns every unread row so the list always matches CountUnread.
func (r *repositoryImpl) ListUnread(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND read = ?", userID, false).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) CountVisible(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? OR is_global = ?", userID, true).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead reports whether the notification exists. Already-read rows count as found.
func (r *repositoryImpl) MarkRead(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{"read": true, "updated_at": now})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Updates(map[string]any{"read": true, "updated_at": now})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Notification{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) ActiveStories(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_story = ? AND expires_at > ?", userID, true, now).
		Where(hasAttachments).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// UnexpiredStories returns every live story oldest first so callers can pick
// the first row of each broadcast as its representative.
func (r *repositoryImpl) UnexpiredStories(ctx context.Context, now time.Time) ([]models.Notification, error) {
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("is_story = ? AND expires_at > ?", true, now).
		Where(hasAttachments).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

// DeleteStoryGroup removes every story copy sharing the story's broadcast, or
// just the story itself when it was never part of one.
func (r *repositoryImpl) DeleteStoryGroup(ctx context.Context, story models.Notification) (int64, error) {
	query := r.db.WithContext(ctx)
	if story.BroadcastID != nil {
		query = query.Where("broadcast_id = ? AND is_story = ?", *story.BroadcastID, true)
	} else {
		query = query.Where("id = ?", story.ID)
	}
	result := query.Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

// BroadcastGroups returns the newest broadcasts by first-sent time.
func (r *repositoryImpl) BroadcastGroups(ctx context.Context, limit int) ([]BroadcastGroup, error) {
	var groups []BroadcastGroup
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Select("broadcast_id, COUNT(*) AS recipients").
		Where("broadcast_id IS NOT NULL").
		Group("broadcast_id").
		Order("MIN(created_at) DESC, broadcast_id").
		Limit(limit).
		Scan(&groups).Error
	return groups, err
}

func (r *repositoryImpl) BroadcastMembers(ctx context.Context, broadcastIDs []uuid.UUID) ([]models.Notification, error) {
	if len(broadcastIDs) == 0 {
		return nil, nil
	}
	var rows []models.Notification
	err := r.db.WithContext(ctx).
		Where("broadcast_id IN ?", broadcastIDs).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repositoryImpl) LatestPublic(ctx context.Context) (*models.Notification, error) {
	var rows []models.Notification
	if err := r.db.WithContext(ctx).
		Where("is_global = ?", true).
		Order("created_at DESC, id DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
