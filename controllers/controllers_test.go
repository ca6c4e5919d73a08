package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"rolecenter/auth"
	"rolecenter/config"
	"rolecenter/models"
	"rolecenter/repositories"
	"rolecenter/services"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testBasePath = "/api"

type testEnv struct {
	container *restful.Container
	db        *gorm.DB
	tokens    *auth.TokenManager
}

// setupTestDB initializes an isolated in-memory database with the bootstrap roles.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.SetupJoinTable(&models.User{}, "Roles", &models.UserRole{}))
	require.NoError(t, db.AutoMigrate(&models.Role{}, &models.User{}, &models.UserRole{}))
	for _, name := range []string{"Admin", "User"} {
		require.NoError(t, db.Create(&models.Role{Name: name}).Error)
	}
	return db
}

func newTokenManager() *auth.TokenManager {
	return auth.NewTokenManager(config.JWTConfig{
		Secret:   "controller-test-secret",
		Issuer:   "rolecenter-test",
		Audience: "rolecenter-test",
		TTL:      time.Hour,
	})
}

// newTestEnv wires both controllers over sqlite. A nil roleService uses the real one.
func newTestEnv(t *testing.T, roleService services.RoleService) *testEnv {
	db := setupTestDB(t)
	tokens := newTokenManager()
	log := zaptest.NewLogger(t)

	roles := repositories.NewRoleRepository(db)
	users := repositories.NewUserRepository(db)
	if roleService == nil {
		roleService = services.NewRoleService(services.NewIdentityStore(roles, users))
	}

	container := restful.NewContainer()
	roleWS := new(restful.WebService)
	NewRoleController(testBasePath, roleService, tokens, log).RegisterRoutes(roleWS)
	container.Add(roleWS)

	accountWS := new(restful.WebService)
	NewAccountController(testBasePath, services.NewAccountService(users, roles, tokens), tokens, log).RegisterRoutes(accountWS)
	container.Add(accountWS)

	return &testEnv{container: container, db: db, tokens: tokens}
}

func (e *testEnv) tokenFor(t *testing.T, roles ...string) string {
	t.Helper()
	user := &models.User{ID: uuid.NewString(), Email: "caller@example.com"}
	for _, name := range roles {
		user.Roles = append(user.Roles, models.Role{Name: name})
	}
	token, err := e.tokens.GenerateToken(user)
	require.NoError(t, err)
	return token
}

func (e *testEnv) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, FullName: email, Password: "x"}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) roleID(t *testing.T, name string) string {
	t.Helper()
	role, err := repositories.NewRoleRepository(e.db).FindByNormalizedName(context.Background(), models.NormalizeName(name))
	require.NoError(t, err)
	return role.ID
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, testBasePath+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", restful.MIME_JSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.container.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}
