package services

import (
	"context"
	"testing"

	"rolecenter/models"
	"rolecenter/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubIssuer struct {
	lastUser *models.User
}

func (s *stubIssuer) GenerateToken(user *models.User) (string, error) {
	s.lastUser = user
	return "token-for-" + user.ID, nil
}

func newTestAccountService(t *testing.T) (AccountService, *stubIssuer) {
	db := setupTestDB(t)
	roles := repositories.NewRoleRepository(db)
	for _, name := range []string{"Admin", "User", "Editor"} {
		require.NoError(t, roles.Create(context.Background(), &models.Role{Name: name}))
	}
	issuer := &stubIssuer{}
	return NewAccountService(repositories.NewUserRepository(db), roles, issuer), issuer
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAccountService(t)

	t.Run("Defaults to User role", func(t *testing.T) {
		user, err := svc.Register(ctx, &RegisterInput{Email: "alice@example.com", FullName: "Alice", Password: "secret1"})
		require.NoError(t, err)
		assert.Equal(t, []string{"User"}, user.RoleNames())
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret1")))
	})

	t.Run("Requested roles", func(t *testing.T) {
		user, err := svc.Register(ctx, &RegisterInput{
			Email: "bob@example.com", FullName: "Bob", Password: "secret1",
			Roles: []string{"editor", "Admin", "Editor"},
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Admin", "Editor"}, user.RoleNames())
	})

	t.Run("Unknown role", func(t *testing.T) {
		_, err := svc.Register(ctx, &RegisterInput{
			Email: "carol@example.com", FullName: "Carol", Password: "secret1",
			Roles: []string{"Ghost"},
		})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{"Role 'Ghost' does not exist."}, verr.Fields["roles"])
	})

	t.Run("Taken email", func(t *testing.T) {
		_, err := svc.Register(ctx, &RegisterInput{Email: "ALICE@example.com", FullName: "Alice 2", Password: "secret1"})
		var storeErr *StoreOperationError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "DuplicateEmail", storeErr.Errors[0].Code)
	})

	t.Run("Invalid input", func(t *testing.T) {
		_, err := svc.Register(ctx, &RegisterInput{Email: "nope", Password: "123"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "email")
		assert.Contains(t, verr.Fields, "fullName")
		assert.Contains(t, verr.Fields, "password")
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, issuer := newTestAccountService(t)

	user, err := svc.Register(ctx, &RegisterInput{Email: "alice@example.com", FullName: "Alice", Password: "secret1"})
	require.NoError(t, err)

	token, err := svc.Login(ctx, &LoginInput{Email: "Alice@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "token-for-"+user.ID, token)
	assert.Equal(t, []string{"User"}, issuer.lastUser.RoleNames())

	_, err = svc.Login(ctx, &LoginInput{Email: "alice@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidPassword)

	_, err = svc.Login(ctx, &LoginInput{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUserDetailAndList(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAccountService(t)

	user, err := svc.Register(ctx, &RegisterInput{Email: "alice@example.com", FullName: "Alice", Password: "secret1"})
	require.NoError(t, err)

	detail, err := svc.GetUserDetail(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", detail.FullName)

	_, err = svc.GetUserDetail(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
