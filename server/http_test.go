package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rolecenter/auth"
	"rolecenter/config"
	"rolecenter/database"
	"rolecenter/metrics"
	"rolecenter/repositories"
	"rolecenter/services"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type env struct {
	container *restful.Container
}

func newEnv(t *testing.T) *env {
	log := zaptest.NewLogger(t)
	cfg := config.Config{
		ServiceName: "role-center-test",
		HTTP:        config.HTTPConfig{Port: 8080, BasePath: "/api"},
		Database: config.DatabaseConfig{
			Driver:   "sqlite",
			DSN:      fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
			LogLevel: "silent",
		},
		JWT: config.JWTConfig{Secret: "server-test-secret", Issuer: "rolecenter-test", Audience: "rolecenter-test", TTL: time.Hour},
		Bootstrap: config.BootstrapConfig{
			Roles:          []string{"Admin", "User"},
			AdminEmail:     "admin@example.com",
			AdminPassword:  "Admin@123",
			AdminFullName:  "Administrator",
			AdminRoleNames: []string{"Admin"},
		},
	}

	db, err := database.Open(cfg.Database, log)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedInitialData(context.Background(), db, cfg.Bootstrap, log.Sugar()))

	tokens := auth.NewTokenManager(cfg.JWT)
	roleRepo := repositories.NewRoleRepository(db)
	userRepo := repositories.NewUserRepository(db)

	return &env{container: NewContainer(Deps{
		Config:   cfg,
		DB:       db,
		Roles:    services.NewRoleService(services.NewIdentityStore(roleRepo, userRepo)),
		Accounts: services.NewAccountService(userRepo, roleRepo, tokens),
		Tokens:   tokens,
		Metrics:  metrics.New(),
		Logger:   log,
	})}
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
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

func (e *env) login(t *testing.T, email, password string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/account/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

type roleSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TotalUsers int64  `json:"totalUsers"`
}

func (e *env) roles(t *testing.T, token string) map[string]roleSummary {
	t.Helper()
	w := e.do(t, http.MethodGet, "/api/roles", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool          `json:"success"`
		Data    []roleSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	out := make(map[string]roleSummary, len(resp.Data))
	for _, r := range resp.Data {
		out[r.Name] = r
	}
	return out
}

func TestRoleAdministrationEndToEnd(t *testing.T) {
	e := newEnv(t)
	admin := e.login(t, "admin@example.com", "Admin@123")

	roles := e.roles(t, admin)
	assert.Equal(t, int64(1), roles["Admin"].TotalUsers)
	assert.Zero(t, roles["User"].TotalUsers)

	w := e.do(t, http.MethodPost, "/api/roles", admin, map[string]string{"roleName": "Editor"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPost, "/api/account/register", "", map[string]any{
		"email": "alice@example.com", "fullName": "Alice", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	alice := e.login(t, "alice@example.com", "secret1")
	w = e.do(t, http.MethodGet, "/api/account/detail", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))

	roles = e.roles(t, admin)
	w = e.do(t, http.MethodPost, "/api/roles/assign", admin, map[string]string{
		"userId": detail.ID, "roleId": roles["Editor"].ID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	roles = e.roles(t, alice)
	assert.Equal(t, int64(1), roles["Editor"].TotalUsers)
	assert.Equal(t, int64(1), roles["User"].TotalUsers)

	w = e.do(t, http.MethodDelete, "/api/roles/"+roles["Editor"].ID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, ok := e.roles(t, admin)["Editor"]
	assert.False(t, ok)

	w = e.do(t, http.MethodDelete, "/api/roles/"+roles["Editor"].ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOperationalEndpoints(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())

	w = e.do(t, http.MethodGet, "/apidocs.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc struct {
		Info  map[string]any            `json:"info"`
		Paths map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "Role Center API", doc.Info["title"])
	assert.Contains(t, doc.Paths, "/api/roles")
	assert.Contains(t, doc.Paths["/api/roles/{id}"], "delete")
	assert.Contains(t, doc.Paths, "/api/roles/assign")

	w = e.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `rolecenter_http_requests_total{code="200",method="GET",route="/healthz"} 1`))
}
