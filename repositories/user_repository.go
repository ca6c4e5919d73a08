package repositories

import (
	"context"

	"rolecenter/models"

	"gorm.io/gorm"
)

// UserRepository interface defines User-related database operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	CreateWithRoles(ctx context.Context, user *models.User, roleIDs []string) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByNormalizedEmail(ctx context.Context, normalizedEmail string) (*models.User, error)
	FindAll(ctx context.Context) ([]models.User, error)
}

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new User
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// CreateWithRoles creates the user and its memberships in one transaction
func (r *userRepository) CreateWithRoles(ctx context.Context, user *models.User, roleIDs []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Roles").Create(user).Error; err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			if err := tx.Create(&models.UserRole{UserID: user.ID, RoleID: roleID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID finds User by ID, roles preloaded
func (r *userRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Roles").Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByNormalizedEmail finds User by email, roles preloaded
func (r *userRepository) FindByNormalizedEmail(ctx context.Context, normalizedEmail string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Preload("Roles").
		Where("normalized_email = ?", normalizedEmail).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindAll lists every user with roles, ordered by email
func (r *userRepository) FindAll(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Preload("Roles").Order("normalized_email").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
