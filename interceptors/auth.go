package interceptors

import (
	"context"
	"strings"

	"rolecenter/auth"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	grpcauth "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// ClaimsKey is the context key for the caller's token claims.
const ClaimsKey contextKey = "claims"

// AuthFunc validates the bearer token from the incoming metadata and stores its claims in the context.
func AuthFunc(tm *auth.TokenManager) grpcauth.AuthFunc {
	return func(ctx context.Context) (context.Context, error) {
		tokenString, err := grpcauth.AuthFromMD(ctx, "bearer")
		if err != nil {
			return nil, err
		}

		claims, err := tm.ParseAndValidateToken(tokenString)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}
		return context.WithValue(ctx, ClaimsKey, claims), nil
	}
}

// AuthInterceptor returns a unary server interceptor for JWT authentication.
// Calls to publicServices skip it.
func AuthInterceptor(tm *auth.TokenManager, publicServices ...string) grpc.UnaryServerInterceptor {
	public := make(map[string]bool, len(publicServices))
	for _, svc := range publicServices {
		public[svc] = true
	}
	requiresAuth := selector.MatchFunc(func(_ context.Context, callMeta interceptors.CallMeta) bool {
		return !public[callMeta.Service]
	})
	return selector.UnaryServerInterceptor(grpcauth.UnaryServerInterceptor(AuthFunc(tm)), requiresAuth)
}

// RoleInterceptor rejects calls into the listed services unless the caller holds one of roles.
// It must run after AuthInterceptor.
func RoleInterceptor(roles []string, services ...string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !matchesService(info.FullMethod, services) {
			return handler(ctx, req)
		}

		claims, ok := ClaimsFromContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "authorization token is not provided")
		}
		if !claims.HasAnyRole(roles...) {
			return nil, status.Errorf(codes.PermissionDenied, "requires one of roles %s", strings.Join(roles, ", "))
		}
		return handler(ctx, req)
	}
}

func matchesService(fullMethod string, services []string) bool {
	for _, svc := range services {
		if strings.HasPrefix(fullMethod, "/"+svc+"/") {
			return true
		}
	}
	return false
}

// ClaimsFromContext extracts the claims stored by AuthInterceptor.
func ClaimsFromContext(ctx context.Context) (*auth.CustomClaims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.CustomClaims)
	return claims, ok
}
