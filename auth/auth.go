package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"rolecenter/config"
	"rolecenter/models"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/golang-jwt/jwt/v4"
)

// Request attribute keys set by AuthFilter.
const (
	AttrUserID = "user_id"
	AttrClaims = "claims"
)

// CustomClaims represents the claims carried by an access token.
type CustomClaims struct {
	UserID   string   `json:"nameid"`
	Email    string   `json:"email"`
	FullName string   `json:"name,omitempty"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasAnyRole reports whether the claims hold at least one of roles.
// Role names compare case-insensitively, like the store's unique index.
func (c *CustomClaims) HasAnyRole(roles ...string) bool {
	for _, have := range c.Roles {
		for _, want := range roles {
			if models.NormalizeName(have) == models.NormalizeName(want) {
				return true
			}
		}
	}
	return false
}

// TokenManager issues and validates HS256 access tokens.
type TokenManager struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
	now        func() time.Time
}

func NewTokenManager(cfg config.JWTConfig) *TokenManager {
	return &TokenManager{
		signingKey: []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		audience:   cfg.Audience,
		ttl:        cfg.TTL,
		now:        time.Now,
	}
}

// GenerateToken creates a new JWT for the given user. user.Roles must be loaded.
func (m *TokenManager) GenerateToken(user *models.User) (string, error) {
	now := m.now()
	claims := &CustomClaims{
		UserID:   user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Roles:    user.RoleNames(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Subject:   user.ID,
			Audience:  []string{m.audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.signingKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ParseAndValidateToken : used for gRPC and filters
func (m *TokenManager) ParseAndValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.signingKey, nil
	})

	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			if ve.Errors&jwt.ValidationErrorMalformed != 0 {
				return nil, errors.New("malformed token")
			} else if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
				return nil, errors.New("token is either expired or not active yet")
			} else if ve.Errors&jwt.ValidationErrorSignatureInvalid != 0 {
				return nil, errors.New("invalid token signature")
			}
		}
		return nil, fmt.Errorf("couldn't handle this token: %w", err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if !claims.VerifyIssuer(m.issuer, true) {
		return nil, errors.New("invalid token issuer")
	}
	if !claims.VerifyAudience(m.audience, true) {
		return nil, errors.New("invalid token audience")
	}
	return claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", errors.New("Authorization header required")
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", errors.New("Invalid authorization header format")
	}
	return parts[1], nil
}

// AuthFilter creates a go-restful FilterFunction for JWT authentication.
func AuthFilter(tm *TokenManager) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		tokenString, err := BearerToken(req.HeaderParameter("Authorization"))
		if err != nil {
			_ = resp.WriteHeaderAndJson(http.StatusUnauthorized, map[string]string{"message": err.Error()}, restful.MIME_JSON)
			return
		}

		claims, err := tm.ParseAndValidateToken(tokenString)
		if err != nil {
			_ = resp.WriteHeaderAndJson(http.StatusUnauthorized, map[string]string{"message": err.Error()}, restful.MIME_JSON)
			return
		}

		// Store user information in request attributes for use by subsequent processing functions
		req.SetAttribute(AttrUserID, claims.UserID)
		req.SetAttribute(AttrClaims, claims)

		chain.ProcessFilter(req, resp)
	}
}

// RequireRoles creates a FilterFunction admitting callers that hold any of roles.
// It must run after AuthFilter.
func RequireRoles(roles ...string) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		claims, ok := ClaimsFromRequest(req)
		if !ok {
			_ = resp.WriteHeaderAndJson(http.StatusUnauthorized, map[string]string{"message": "Unauthorized"}, restful.MIME_JSON)
			return
		}
		if !claims.HasAnyRole(roles...) {
			_ = resp.WriteHeaderAndJson(http.StatusForbidden, map[string]string{
				"message": "Forbidden: requires one of roles " + strings.Join(roles, ", "),
			}, restful.MIME_JSON)
			return
		}
		chain.ProcessFilter(req, resp)
	}
}

// ClaimsFromRequest returns the claims stored by AuthFilter.
func ClaimsFromRequest(req *restful.Request) (*CustomClaims, bool) {
	claims, ok := req.Attribute(AttrClaims).(*CustomClaims)
	return claims, ok
}
