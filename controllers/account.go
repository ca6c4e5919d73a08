package controllers

import (
	"errors"
	"net/http"

	"rolecenter/auth"
	"rolecenter/models"
	"rolecenter/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

type AccountController struct {
	basePath       string
	accountService services.AccountService
	tokens         *auth.TokenManager
	logger         *zap.Logger
}

func NewAccountController(basePath string, accountService services.AccountService, tokens *auth.TokenManager, logger *zap.Logger) *AccountController {
	return &AccountController{
		basePath:       basePath,
		accountService: accountService,
		tokens:         tokens,
		logger:         logger.Named("account"),
	}
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string `json:"token,omitempty"`
	IsSuccess bool   `json:"isSuccess"`
	Message   string `json:"message,omitempty"`
}

// UserDetailResponse Defines the response structure of user information
type UserDetailResponse struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"fullName"`
	Roles    []string `json:"roles"`
}

func mapModelToUserDetail(user *models.User) UserDetailResponse {
	return UserDetailResponse{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Roles:    user.RoleNames(),
	}
}

// RegisterRoutes sets up the account routes. Register and login are public.
func (ctl *AccountController) RegisterRoutes(ws *restful.WebService) {
	ws.Path(ctl.basePath + "/account").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON, mimePlain)

	tags := []string{"account"}

	ws.Route(ws.POST("/register").To(ctl.registerHandler).
		Doc("Register a new account").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.RegisterInput{}).
		Returns(http.StatusOK, "Account created", AuthResponse{}).
		Returns(http.StatusBadRequest, "Validation or identity errors", nil))

	ws.Route(ws.POST("/login").To(ctl.loginHandler).
		Doc("Exchange credentials for an access token").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.LoginInput{}).
		Returns(http.StatusOK, "Login Success.", AuthResponse{}).
		Returns(http.StatusBadRequest, "Validation errors", nil).
		Returns(http.StatusUnauthorized, "Unknown email or wrong password", AuthResponse{}))

	ws.Route(ws.GET("/detail").Filter(auth.AuthFilter(ctl.tokens)).To(ctl.detailHandler).
		Doc("Current user with roles").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(UserDetailResponse{}).
		Returns(http.StatusOK, "User found", UserDetailResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", nil).
		Returns(http.StatusNotFound, "User not found", nil))

	ws.Route(ws.GET("").
		Filter(auth.AuthFilter(ctl.tokens)).
		Filter(auth.RequireRoles(RoleAdminRoles...)).
		To(ctl.listUsersHandler).
		Doc("List users with roles").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes([]UserDetailResponse{}).
		Returns(http.StatusOK, "Users", []UserDetailResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", nil).
		Returns(http.StatusForbidden, "Forbidden", nil))
}

// registerHandler (Handles POST /account/register)
func (ctl *AccountController) registerHandler(request *restful.Request, response *restful.Response) {
	input := new(services.RegisterInput)
	if err := request.ReadEntity(input); err != nil {
		writeBodyError(response, err)
		return
	}

	user, err := ctl.accountService.Register(request.Request.Context(), input)
	if err != nil {
		var verr *services.ValidationError
		var storeErr *services.StoreOperationError
		switch {
		case errors.As(err, &verr):
			writeValidationProblem(response, verr.Fields)
		case errors.As(err, &storeErr):
			writeJSON(response, http.StatusBadRequest, storeErr.Errors)
		default:
			ctl.logger.Error("Failed to register account", zap.String("email", input.Email), zap.Error(err))
			writeText(response, http.StatusInternalServerError, "An internal error occurred")
		}
		return
	}

	ctl.logger.Info("Account registered", zap.String("user_id", user.ID), zap.Strings("roles", user.RoleNames()))
	writeJSON(response, http.StatusOK, AuthResponse{IsSuccess: true, Message: "Account Created Sucessfully!"})
}

// loginHandler (Handles POST /account/login)
func (ctl *AccountController) loginHandler(request *restful.Request, response *restful.Response) {
	input := new(services.LoginInput)
	if err := request.ReadEntity(input); err != nil {
		writeBodyError(response, err)
		return
	}

	token, err := ctl.accountService.Login(request.Request.Context(), input)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			writeValidationProblem(response, verr.Fields)
		case errors.Is(err, services.ErrUserNotFound):
			writeJSON(response, http.StatusUnauthorized, AuthResponse{IsSuccess: false, Message: "User not found with this email"})
		case errors.Is(err, services.ErrInvalidPassword):
			writeJSON(response, http.StatusUnauthorized, AuthResponse{IsSuccess: false, Message: "Invalid Password."})
		default:
			ctl.logger.Error("Login failed", zap.Error(err))
			writeJSON(response, http.StatusInternalServerError, AuthResponse{IsSuccess: false, Message: "Could not generate token"})
		}
		return
	}

	writeJSON(response, http.StatusOK, AuthResponse{Token: token, IsSuccess: true, Message: "Login Success."})
}

// detailHandler (Handles GET /account/detail)
func (ctl *AccountController) detailHandler(request *restful.Request, response *restful.Response) {
	claims, ok := auth.ClaimsFromRequest(request)
	if !ok {
		writeJSON(response, http.StatusUnauthorized, map[string]string{"message": "Unauthorized: Cannot identify requesting user"})
		return
	}

	user, err := ctl.accountService.GetUserDetail(request.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeText(response, http.StatusNotFound, "User not found")
			return
		}
		ctl.logger.Error("Failed to load user detail", zap.String("user_id", claims.UserID), zap.Error(err))
		writeText(response, http.StatusInternalServerError, "An internal error occurred")
		return
	}

	writeJSON(response, http.StatusOK, mapModelToUserDetail(user))
}

// listUsersHandler (Handles GET /account)
func (ctl *AccountController) listUsersHandler(request *restful.Request, response *restful.Response) {
	users, err := ctl.accountService.ListUsers(request.Request.Context())
	if err != nil {
		ctl.logger.Error("Failed to list users", zap.Error(err))
		writeText(response, http.StatusInternalServerError, "An internal error occurred")
		return
	}

	out := make([]UserDetailResponse, len(users))
	for i := range users {
		out[i] = mapModelToUserDetail(&users[i])
	}
	writeJSON(response, http.StatusOK, out)
}
