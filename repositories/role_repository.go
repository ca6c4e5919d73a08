package repositories

import (
	"context"

	"rolecenter/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleRepository interface defines Role and membership database operations
type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	FindByID(ctx context.Context, id string) (*models.Role, error)
	FindByNormalizedName(ctx context.Context, normalizedName string) (*models.Role, error)
	ExistsByNormalizedName(ctx context.Context, normalizedName string) (bool, error)
	Delete(ctx context.Context, role *models.Role) error
	Summaries(ctx context.Context) ([]models.RoleSummary, error)
	AddMember(ctx context.Context, userID, roleID string) error
}

// roleRepository implements the RoleRepository interface
type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a new RoleRepository instance
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(ctx context.Context, role *models.Role) error {
	return r.db.WithContext(ctx).Create(role).Error
}

// FindByID finds Role by ID
func (r *roleRepository) FindByID(ctx context.Context, id string) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) FindByNormalizedName(ctx context.Context, normalizedName string) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).Where("normalized_name = ?", normalizedName).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) ExistsByNormalizedName(ctx context.Context, normalizedName string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Role{}).
		Where("normalized_name = ?", normalizedName).
		Count(&count).Error
	return count > 0, err
}

// Delete removes the role together with its memberships.
func (r *roleRepository) Delete(ctx context.Context, role *models.Role) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}
		res := tx.Delete(role)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// Summaries counts members per role. Roles without members report zero.
func (r *roleRepository) Summaries(ctx context.Context) ([]models.RoleSummary, error) {
	summaries := []models.RoleSummary{}
	err := r.db.WithContext(ctx).
		Model(&models.Role{}).
		Select("roles.id AS id, roles.name AS name, COUNT(user_roles.user_id) AS total_users").
		Joins("LEFT JOIN user_roles ON user_roles.role_id = roles.id").
		Group("roles.id, roles.name").
		Order("roles.name").
		Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// AddMember inserts the membership row. An existing row is left untouched.
func (r *roleRepository) AddMember(ctx context.Context, userID, roleID string) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserRole{UserID: userID, RoleID: roleID}).Error
}
