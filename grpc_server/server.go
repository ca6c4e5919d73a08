package grpcserver

import (
	"rolecenter/auth"
	"rolecenter/interceptors"
	"rolecenter/services"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Options holds what NewServer wires into the gRPC surface.
type Options struct {
	Roles      services.RoleService
	Accounts   services.AccountService
	Tokens     *auth.TokenManager
	AdminRoles []string
	Logger     *zap.Logger
}

// NewServer builds the gRPC server with RoleAdmin, Auth and the health service registered.
// The health status starts as SERVING.
func NewServer(opts Options) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.RecoveryInterceptor(opts.Logger),
			interceptors.AuthInterceptor(opts.Tokens, AuthServiceName, healthpb.Health_ServiceDesc.ServiceName),
			// After auth so the caller's id is on the log line.
			interceptors.ZapLoggingInterceptor(opts.Logger.Named("grpc")),
			interceptors.RoleInterceptor(opts.AdminRoles, RoleAdminServiceName),
		),
	)

	RegisterRoleAdminServer(s, NewRoleAdminServer(opts.Roles, opts.Logger))
	RegisterAuthServer(s, NewAuthServiceServer(opts.Accounts, opts.Tokens, opts.Logger))

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(RoleAdminServiceName, healthpb.HealthCheckResponse_SERVING)

	return s, hs
}
