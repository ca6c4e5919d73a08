package services

import (
	"context"
	"strings"

	"rolecenter/models"
)

// RoleService implements the role administration operations shared by the
// REST controllers and the gRPC server.
type RoleService interface {
	CreateRole(ctx context.Context, input *CreateRoleInput) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.RoleSummary, error)
	DeleteRole(ctx context.Context, id string) error
	AssignRole(ctx context.Context, input *AssignRoleInput) error
}

// --- Structs for Input ---
type CreateRoleInput struct {
	RoleName string `json:"roleName" validate:"required,max=256" description:"Name of the new role"`
}

type AssignRoleInput struct {
	UserID string `json:"userId" validate:"required" description:"Identifier of the user"`
	RoleID string `json:"roleId" validate:"required" description:"Identifier of the role to assign"`
}

type roleService struct {
	store   IdentityStore
	queries *RoleQueryService
}

var _ RoleService = (*roleService)(nil)

// NewRoleService creates a new RoleService instance
func NewRoleService(store IdentityStore) RoleService {
	return &roleService{store: store, queries: NewRoleQueryService(store)}
}

// CreateRole rejects invalid input, then an existing name, then creates the role.
func (s *roleService) CreateRole(ctx context.Context, input *CreateRoleInput) (*models.Role, error) {
	input.RoleName = strings.TrimSpace(input.RoleName)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	exists, err := s.store.RoleExists(ctx, input.RoleName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrRoleAlreadyExists
	}

	return s.store.CreateRole(ctx, input.RoleName)
}

func (s *roleService) ListRoles(ctx context.Context) ([]models.RoleSummary, error) {
	return s.queries.Summaries(ctx)
}

// DeleteRole returns ErrRoleNotFound for an unknown id and a
// *StoreOperationError when the store refuses the delete.
func (s *roleService) DeleteRole(ctx context.Context, id string) error {
	role, err := s.store.FindRoleByID(ctx, id)
	if err != nil {
		return err
	}
	return s.store.DeleteRole(ctx, role)
}

// AssignRole checks the user, then the role, then adds the membership.
func (s *roleService) AssignRole(ctx context.Context, input *AssignRoleInput) error {
	input.UserID = strings.TrimSpace(input.UserID)
	input.RoleID = strings.TrimSpace(input.RoleID)
	if err := validateInput(input); err != nil {
		return err
	}

	user, err := s.store.FindUserByID(ctx, input.UserID)
	if err != nil {
		return err
	}

	role, err := s.store.FindRoleByID(ctx, input.RoleID)
	if err != nil {
		return err
	}

	return s.store.AddUserToRole(ctx, user, role.Name)
}
