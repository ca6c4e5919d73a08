package grpcserver

import (
	"context"
	"errors"
	"strings"

	"rolecenter/services"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const RoleAdminServiceName = "rolecenter.v1.RoleAdmin"

// RoleAdminServer mirrors the /roles REST endpoints.
type RoleAdminServer interface {
	CreateRole(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ListRoles(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	DeleteRole(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	AssignRole(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var RoleAdminServiceDesc = grpc.ServiceDesc{
	ServiceName: RoleAdminServiceName,
	HandlerType: (*RoleAdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateRole", Handler: structHandler(RoleAdminServiceName, "CreateRole", func(s RoleAdminServer) StructMethod { return s.CreateRole })},
		{MethodName: "ListRoles", Handler: structHandler(RoleAdminServiceName, "ListRoles", func(s RoleAdminServer) StructMethod { return s.ListRoles })},
		{MethodName: "DeleteRole", Handler: structHandler(RoleAdminServiceName, "DeleteRole", func(s RoleAdminServer) StructMethod { return s.DeleteRole })},
		{MethodName: "AssignRole", Handler: structHandler(RoleAdminServiceName, "AssignRole", func(s RoleAdminServer) StructMethod { return s.AssignRole })},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rolecenter/v1/role_admin.proto",
}

func RegisterRoleAdminServer(s grpc.ServiceRegistrar, srv RoleAdminServer) {
	s.RegisterService(&RoleAdminServiceDesc, srv)
}

type roleAdminServer struct {
	roleService services.RoleService
	logger      *zap.Logger
}

var _ RoleAdminServer = (*roleAdminServer)(nil)

func NewRoleAdminServer(rs services.RoleService, logger *zap.Logger) RoleAdminServer {
	return &roleAdminServer{roleService: rs, logger: logger.Named("grpc.roles")}
}

type deleteRoleRequest struct {
	ID string `json:"id"`
}

func (s *roleAdminServer) CreateRole(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	input := new(services.CreateRoleInput)
	if err := decodeStruct(in, input); err != nil {
		return nil, err
	}
	role, err := s.roleService.CreateRole(ctx, input)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encodeStruct(map[string]any{"message": "Role created successfully.", "id": role.ID})
}

func (s *roleAdminServer) ListRoles(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	roles, err := s.roleService.ListRoles(ctx)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return encodeStruct(map[string]any{"success": true, "data": roles})
}

func (s *roleAdminServer) DeleteRole(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req := new(deleteRoleRequest)
	if err := decodeStruct(in, req); err != nil {
		return nil, err
	}
	if err := s.roleService.DeleteRole(ctx, req.ID); err != nil {
		return nil, s.toStatus(err)
	}
	return encodeStruct(map[string]any{"success": true, "message": "Role deleted successfully"})
}

func (s *roleAdminServer) AssignRole(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	input := new(services.AssignRoleInput)
	if err := decodeStruct(in, input); err != nil {
		return nil, err
	}
	if err := s.roleService.AssignRole(ctx, input); err != nil {
		return nil, s.toStatus(err)
	}
	return encodeStruct(map[string]any{"success": true, "message": "Role assigned successfully"})
}

// toStatus maps service errors onto gRPC codes. Store failures are checked first
// because they may wrap a not-found sentinel.
func (s *roleAdminServer) toStatus(err error) error {
	var verr *services.ValidationError
	var storeErr *services.StoreOperationError
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.As(err, &storeErr):
		s.logger.Warn("Store rejected operation", zap.String("op", storeErr.Op), zap.Error(err))
		descs := make([]string, 0, len(storeErr.Errors))
		for _, ie := range storeErr.Errors {
			descs = append(descs, ie.Description)
		}
		return status.Error(codes.FailedPrecondition, strings.Join(descs, " "))
	case errors.Is(err, services.ErrRoleAlreadyExists):
		return status.Error(codes.AlreadyExists, "Role already exists")
	case errors.Is(err, services.ErrRoleNotFound):
		return status.Error(codes.NotFound, "Role not found")
	case errors.Is(err, services.ErrUserNotFound):
		return status.Error(codes.NotFound, "User not found")
	default:
		s.logger.Error("Role operation failed", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}
