package repositories

import (
	"context"
	"testing"

	"rolecenter/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	users := NewUserRepository(db)
	roles := NewRoleRepository(db)

	alice := &models.User{Email: "Alice@Example.com", FullName: "Alice", Password: "hash"}
	require.NoError(t, users.Create(ctx, alice))
	assert.NotEmpty(t, alice.ID)

	role := &models.Role{Name: "Editor"}
	require.NoError(t, roles.Create(ctx, role))
	require.NoError(t, roles.AddMember(ctx, alice.ID, role.ID))

	found, err := users.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Editor"}, found.RoleNames())

	byEmail, err := users.FindByNormalizedEmail(ctx, "ALICE@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	err = users.Create(ctx, &models.User{Email: "alice@example.com", Password: "hash"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	require.NoError(t, users.Create(ctx, &models.User{Email: "bob@example.com", Password: "hash"}))
	all, err := users.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, alice.ID, all[0].ID)
	assert.Empty(t, all[1].Roles)

	_, err = users.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
