package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rolecenter/models"
	"rolecenter/repositories"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultRoleName is assigned to accounts registered without roles.
const DefaultRoleName = "User"

// TokenIssuer signs access tokens for authenticated users.
type TokenIssuer interface {
	GenerateToken(user *models.User) (string, error)
}

// AccountService covers registration, login and user lookups.
type AccountService interface {
	Register(ctx context.Context, input *RegisterInput) (*models.User, error)
	Login(ctx context.Context, input *LoginInput) (string, error)
	GetUserDetail(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

type RegisterInput struct {
	Email    string   `json:"email" validate:"required,email,max=256" description:"Email, also the login name"`
	FullName string   `json:"fullName" validate:"required,max=256"`
	Password string   `json:"password" validate:"required,min=6"`
	Roles    []string `json:"roles" description:"Role names; defaults to User"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type accountService struct {
	users  repositories.UserRepository
	roles  repositories.RoleRepository
	tokens TokenIssuer
}

var _ AccountService = (*accountService)(nil)

func NewAccountService(users repositories.UserRepository, roles repositories.RoleRepository, tokens TokenIssuer) AccountService {
	return &accountService{users: users, roles: roles, tokens: tokens}
}

// Register creates the account and its role memberships. Unknown role names are
// reported as a *ValidationError; a taken email as a *StoreOperationError.
func (s *accountService) Register(ctx context.Context, input *RegisterInput) (*models.User, error) {
	input.Email = strings.TrimSpace(input.Email)
	input.FullName = strings.TrimSpace(input.FullName)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	roleNames := input.Roles
	if len(roleNames) == 0 {
		roleNames = []string{DefaultRoleName}
	}

	roleIDs := make([]string, 0, len(roleNames))
	seen := make(map[string]struct{}, len(roleNames))
	verr := &ValidationError{}
	for _, name := range roleNames {
		role, err := s.roles.FindByNormalizedName(ctx, models.NormalizeName(name))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			verr.add("roles", fmt.Sprintf("Role '%s' does not exist.", name))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("finding role %q: %w", name, err)
		}
		if _, dup := seen[role.ID]; dup {
			continue
		}
		seen[role.ID] = struct{}{}
		roleIDs = append(roleIDs, role.ID)
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	user := &models.User{
		Email:    input.Email,
		FullName: input.FullName,
		Password: string(hashedPassword),
	}
	if err := s.users.CreateWithRoles(ctx, user, roleIDs); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &StoreOperationError{
				Op: "create user",
				Errors: []IdentityError{{
					Code:        "DuplicateEmail",
					Description: fmt.Sprintf("Email '%s' is already taken.", input.Email),
				}},
				Err: err,
			}
		}
		return nil, storeFailure("create user", err)
	}

	return s.users.FindByID(ctx, user.ID)
}

// Login returns a signed token. ErrUserNotFound and ErrInvalidPassword are
// distinguished so the caller can report them separately.
func (s *accountService) Login(ctx context.Context, input *LoginInput) (string, error) {
	input.Email = strings.TrimSpace(input.Email)
	if err := validateInput(input); err != nil {
		return "", err
	}

	user, err := s.users.FindByNormalizedEmail(ctx, models.NormalizeName(input.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("finding user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return "", ErrInvalidPassword
	}

	return s.tokens.GenerateToken(user)
}

func (s *accountService) GetUserDetail(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("finding user %s: %w", userID, err)
	}
	return user, nil
}

func (s *accountService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}
