package grpcserver

import (
	"context"
	"errors"

	"rolecenter/auth"
	"rolecenter/services"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const AuthServiceName = "rolecenter.v1.Auth"

type AuthServer interface {
	Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	ValidateToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: structHandler(AuthServiceName, "Login", func(s AuthServer) StructMethod { return s.Login })},
		{MethodName: "ValidateToken", Handler: structHandler(AuthServiceName, "ValidateToken", func(s AuthServer) StructMethod { return s.ValidateToken })},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rolecenter/v1/auth.proto",
}

func RegisterAuthServer(s grpc.ServiceRegistrar, srv AuthServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}

type authServiceServer struct {
	accounts services.AccountService
	tokens   *auth.TokenManager
	logger   *zap.Logger
}

func NewAuthServiceServer(accounts services.AccountService, tokens *auth.TokenManager, logger *zap.Logger) AuthServer {
	return &authServiceServer{accounts: accounts, tokens: tokens, logger: logger.Named("grpc.auth")}
}

// Login returns an unsuccessful response rather than an error for bad credentials.
func (s *authServiceServer) Login(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	input := new(services.LoginInput)
	if err := decodeStruct(in, input); err != nil {
		return nil, err
	}

	token, err := s.accounts.Login(ctx, input)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			return nil, status.Error(codes.InvalidArgument, verr.Error())
		case errors.Is(err, services.ErrUserNotFound):
			return encodeStruct(map[string]any{"isSuccess": false, "message": "User not found with this email"})
		case errors.Is(err, services.ErrInvalidPassword):
			return encodeStruct(map[string]any{"isSuccess": false, "message": "Invalid Password."})
		default:
			s.logger.Error("Login failed", zap.Error(err))
			return nil, status.Error(codes.Internal, "Could not generate token")
		}
	}
	return encodeStruct(map[string]any{"token": token, "isSuccess": true, "message": "Login Success."})
}

func (s *authServiceServer) ValidateToken(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	tokenString := in.GetFields()["token"].GetStringValue()
	if tokenString == "" {
		return nil, status.Error(codes.InvalidArgument, "token is required")
	}

	claims, err := s.tokens.ParseAndValidateToken(tokenString)
	if err != nil {
		return encodeStruct(map[string]any{"valid": false, "error": err.Error()})
	}
	return encodeStruct(map[string]any{
		"valid":  true,
		"userId": claims.UserID,
		"email":  claims.Email,
		"roles":  claims.Roles,
	})
}
