package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rolecenter/models"
	"rolecenter/repositories"

	"gorm.io/gorm"
)

// IdentityStore is the slice of identity management the role handlers need.
//
// Lookups return ErrRoleNotFound / ErrUserNotFound when the record is absent.
// State-changing calls report failures as *StoreOperationError.
type IdentityStore interface {
	RoleExists(ctx context.Context, name string) (bool, error)
	CreateRole(ctx context.Context, name string) (*models.Role, error)
	FindRoleByID(ctx context.Context, id string) (*models.Role, error)
	DeleteRole(ctx context.Context, role *models.Role) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	AddUserToRole(ctx context.Context, user *models.User, roleName string) error
	RoleSummaries(ctx context.Context) ([]models.RoleSummary, error)
}

type identityStore struct {
	roles repositories.RoleRepository
	users repositories.UserRepository
}

var _ IdentityStore = (*identityStore)(nil)

// NewIdentityStore creates an IdentityStore backed by the gorm repositories
func NewIdentityStore(roles repositories.RoleRepository, users repositories.UserRepository) IdentityStore {
	return &identityStore{roles: roles, users: users}
}

func (s *identityStore) RoleExists(ctx context.Context, name string) (bool, error) {
	exists, err := s.roles.ExistsByNormalizedName(ctx, models.NormalizeName(name))
	if err != nil {
		return false, fmt.Errorf("checking role %q: %w", name, err)
	}
	return exists, nil
}

func (s *identityStore) CreateRole(ctx context.Context, name string) (*models.Role, error) {
	role := &models.Role{Name: strings.TrimSpace(name)}
	if err := s.roles.Create(ctx, role); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &StoreOperationError{
				Op: "create role",
				Errors: []IdentityError{{
					Code:        "DuplicateRoleName",
					Description: fmt.Sprintf("Role name '%s' is already taken.", role.Name),
				}},
				Err: err,
			}
		}
		return nil, storeFailure("create role", err)
	}
	return role, nil
}

func (s *identityStore) FindRoleByID(ctx context.Context, id string) (*models.Role, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, fmt.Errorf("finding role %s: %w", id, err)
	}
	return role, nil
}

// DeleteRole removes the role and every membership referencing it.
func (s *identityStore) DeleteRole(ctx context.Context, role *models.Role) error {
	if err := s.roles.Delete(ctx, role); err != nil {
		return storeFailure("delete role", err)
	}
	return nil
}

func (s *identityStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("finding user %s: %w", id, err)
	}
	return user, nil
}

// AddUserToRole creates the membership. Holding the role already is not an error.
func (s *identityStore) AddUserToRole(ctx context.Context, user *models.User, roleName string) error {
	role, err := s.roles.FindByNormalizedName(ctx, models.NormalizeName(roleName))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &StoreOperationError{
				Op: "add user to role",
				Errors: []IdentityError{{
					Code:        "InvalidRoleName",
					Description: fmt.Sprintf("Role '%s' does not exist.", roleName),
				}},
				Err: ErrRoleNotFound,
			}
		}
		return storeFailure("add user to role", err)
	}

	if err := s.roles.AddMember(ctx, user.ID, role.ID); err != nil {
		return storeFailure("add user to role", err)
	}
	return nil
}

func (s *identityStore) RoleSummaries(ctx context.Context) ([]models.RoleSummary, error) {
	summaries, err := s.roles.Summaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing role summaries: %w", err)
	}
	return summaries, nil
}
