package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/angelmondragon/hatchery-backend/pkg/db"
	"github.com/angelmondragon/hatchery-backend/pkg/db/models"
)

// Repository reads user profiles and admins through GORM.
type Repository struct {
	db *gorm.DB
}

var _ Directory = (*Repository)(nil)

// NewRepository constructs a users repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ApprovedUserIDs returns approved sellers matching every non-empty filter field,
// oldest profile first.
func (r *Repository) ApprovedUserIDs(ctx context.Context, filter Filter) ([]uuid.UUID, error) {
	filter = filter.normalized()

	query := r.db.WithContext(ctx).
		Model(&models.UserProfile{}).
		Where("is_approved = ?", true)
	if filter.AssignedAdminID != nil {
		query = query.Where("assigned_admin_id = ?", *filter.AssignedAdminID)
	}
	if filter.Region != "" {
		query = query.Where("region = ?", filter.Region)
	}
	if filter.District != "" {
		query = query.Where("district = ?", filter.District)
	}
	if len(filter.IDs) > 0 {
		query = query.Where("id IN ?", filter.IDs)
	}

	var ids []uuid.UUID
	if err := query.Order("created_at ASC").Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ResolveAdmin accepts either an admin uuid or an admin code such as ADM-0001.
func (r *Repository) ResolveAdmin(ctx context.Context, ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return uuid.Nil, ErrAdminNotFound
	}

	query := r.db.WithContext(ctx).Model(&models.Admin{})
	if id, err := uuid.Parse(ref); err == nil {
		query = query.Where("id = ?", id)
	} else {
		query = query.Where("admin_code = ?", strings.ToUpper(ref))
	}

	var admin models.Admin
	if err := query.Select("id").First(&admin).Error; err != nil {
		if pkgdb.IsNotFound(err) {
			return uuid.Nil, ErrAdminNotFound
		}
		return uuid.Nil, err
	}
	return admin.ID, nil
}

// DisplayNames maps profile ids to names, falling back to the user code.
// Unknown ids are absent from the result.
func (r *Repository) DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	var profiles []models.UserProfile
	if err := r.db.WithContext(ctx).
		Select("id", "name", "user_code").
		Where("id IN ?", ids).
		Find(&profiles).Error; err != nil {
		return nil, err
	}

	for _, p := range profiles {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			name = p.UserCode
		}
		names[p.ID] = name
	}
	return names, nil
}
