package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rolecenter/config"
	"rolecenter/models"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *TokenManager {
	return NewTokenManager(config.JWTConfig{
		Secret:   "test-secret",
		Issuer:   "role-center",
		Audience: "role-center-clients",
		TTL:      time.Hour,
	})
}

func testUser(roles ...string) *models.User {
	u := &models.User{ID: "user-1", Email: "alice@example.com", FullName: "Alice"}
	for _, r := range roles {
		u.Roles = append(u.Roles, models.Role{Name: r})
	}
	return u
}

func TestGenerateAndParseToken(t *testing.T) {
	tm := testManager()

	token, err := tm.GenerateToken(testUser("Admin", "Editor"))
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := tm.ParseAndValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, []string{"Admin", "Editor"}, claims.Roles)
	assert.True(t, claims.HasAnyRole("admin", "User"))
	assert.False(t, claims.HasAnyRole("Viewer"))
}

func TestParseAndValidateTokenFailures(t *testing.T) {
	tm := testManager()

	t.Run("Malformed", func(t *testing.T) {
		_, err := tm.ParseAndValidateToken("not-a-token")
		assert.EqualError(t, err, "malformed token")
	})

	t.Run("Expired", func(t *testing.T) {
		expired := testManager()
		expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, err := expired.GenerateToken(testUser())
		require.NoError(t, err)

		_, err = tm.ParseAndValidateToken(token)
		assert.EqualError(t, err, "token is either expired or not active yet")
	})

	t.Run("Wrong key", func(t *testing.T) {
		other := NewTokenManager(config.JWTConfig{Secret: "other", Issuer: "role-center", Audience: "role-center-clients", TTL: time.Hour})
		token, err := other.GenerateToken(testUser())
		require.NoError(t, err)

		_, err = tm.ParseAndValidateToken(token)
		assert.EqualError(t, err, "invalid token signature")
	})

	t.Run("Wrong audience", func(t *testing.T) {
		other := NewTokenManager(config.JWTConfig{Secret: "test-secret", Issuer: "role-center", Audience: "someone-else", TTL: time.Hour})
		token, err := other.GenerateToken(testUser())
		require.NoError(t, err)

		_, err = tm.ParseAndValidateToken(token)
		assert.EqualError(t, err, "invalid token audience")
	})

	t.Run("Unexpected signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &CustomClaims{UserID: "x"})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = tm.ParseAndValidateToken(signed)
		assert.Error(t, err)
	})
}

func TestBearerToken(t *testing.T) {
	tok, err := BearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	tok, err = BearerToken("bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	for _, h := range []string{"", "abc", "Basic abc", "Bearer", "Bearer a b"} {
		_, err := BearerToken(h)
		assert.Error(t, err, h)
	}
}

func newFilteredContainer(tm *TokenManager, roles ...string) *restful.Container {
	ws := new(restful.WebService)
	ws.Path("/protected").Produces(restful.MIME_JSON)
	ws.Route(ws.GET("").
		Filter(AuthFilter(tm)).
		Filter(RequireRoles(roles...)).
		To(func(req *restful.Request, resp *restful.Response) {
			claims, _ := ClaimsFromRequest(req)
			_ = resp.WriteHeaderAndJson(http.StatusOK, map[string]string{"user": claims.UserID}, restful.MIME_JSON)
		}))

	c := restful.NewContainer()
	c.Add(ws)
	return c
}

func TestFilters(t *testing.T) {
	tm := testManager()
	c := newFilteredContainer(tm, "Admin", "User")

	do := func(header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		c.ServeHTTP(w, req)
		return w
	}

	t.Run("No token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("").Code)
	})

	t.Run("Invalid token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage").Code)
	})

	t.Run("Missing role", func(t *testing.T) {
		token, err := tm.GenerateToken(testUser("Viewer"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, do("Bearer "+token).Code)
	})

	t.Run("Allowed role", func(t *testing.T) {
		token, err := tm.GenerateToken(testUser("User"))
		require.NoError(t, err)
		w := do("Bearer " + token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "user-1")
	})
}
