package controllers

import (
	"errors"
	"net/http"

	"rolecenter/auth"
	"rolecenter/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"go.uber.org/zap"
)

// RoleAdminRoles may call every role endpoint.
var RoleAdminRoles = []string{"Admin", "User"}

type RoleController struct {
	basePath    string
	roleService services.RoleService
	tokens      *auth.TokenManager
	logger      *zap.Logger
}

func NewRoleController(basePath string, roleService services.RoleService, tokens *auth.TokenManager, logger *zap.Logger) *RoleController {
	return &RoleController{
		basePath:    basePath,
		roleService: roleService,
		tokens:      tokens,
		logger:      logger.Named("roles"),
	}
}

// RegisterRoutes sets up the role routes. Every route requires an authenticated
// caller holding one of RoleAdminRoles.
func (ctl *RoleController) RegisterRoutes(ws *restful.WebService) {
	ws.Path(ctl.basePath + "/roles").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON, mimePlain)
	ws.Filter(auth.AuthFilter(ctl.tokens))
	ws.Filter(auth.RequireRoles(RoleAdminRoles...))

	tags := []string{"roles"}

	ws.Route(ws.POST("").To(ctl.createRoleHandler).
		Doc("Create a role").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.CreateRoleInput{}).
		Returns(http.StatusOK, "Role created successfully.", MessageResponse{}).
		Returns(http.StatusBadRequest, "Validation errors, Role already exists, or store errors", nil).
		Returns(http.StatusUnauthorized, "Unauthorized", nil).
		Returns(http.StatusForbidden, "Forbidden", nil))

	ws.Route(ws.GET("").To(ctl.listRolesHandler).
		Doc("List roles with their member counts").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Writes(RoleListResponse{}).
		Returns(http.StatusOK, "Roles", RoleListResponse{}).
		Returns(http.StatusUnauthorized, "Unauthorized", nil).
		Returns(http.StatusForbidden, "Forbidden", nil))

	ws.Route(ws.DELETE("/{id}").To(ctl.deleteRoleHandler).
		Doc("Delete a role and its memberships").
		Param(ws.PathParameter("id", "Identifier of the role").DataType("string")).
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Returns(http.StatusOK, "Role deleted successfully", StatusResponse{}).
		Returns(http.StatusBadRequest, "Role deleted failed", StatusResponse{}).
		Returns(http.StatusNotFound, "Role not found", nil))

	ws.Route(ws.POST("/assign").To(ctl.assignRoleHandler).
		Doc("Assign a role to a user").
		Metadata(restfulspec.KeyOpenAPITags, tags).
		Reads(services.AssignRoleInput{}).
		Returns(http.StatusOK, "Role assigned successfully", StatusResponse{}).
		Returns(http.StatusBadRequest, "Role assigned failed", StatusResponse{}).
		Returns(http.StatusNotFound, "User not found / Role not found", nil))
}

// createRoleHandler (Handles POST /roles)
func (ctl *RoleController) createRoleHandler(request *restful.Request, response *restful.Response) {
	input := new(services.CreateRoleInput)
	if err := request.ReadEntity(input); err != nil {
		writeBodyError(response, err)
		return
	}

	_, err := ctl.roleService.CreateRole(request.Request.Context(), input)
	if err != nil {
		var verr *services.ValidationError
		var storeErr *services.StoreOperationError
		switch {
		case errors.As(err, &verr):
			writeValidationProblem(response, verr.Fields)
		case errors.Is(err, services.ErrRoleAlreadyExists):
			writeText(response, http.StatusBadRequest, "Role already exists")
		case errors.As(err, &storeErr):
			ctl.logger.Warn("Role creation rejected by store", zap.String("role", input.RoleName), zap.Error(err))
			writeJSON(response, http.StatusBadRequest, storeErr.Errors)
		default:
			ctl.logger.Error("Failed to create role", zap.String("role", input.RoleName), zap.Error(err))
			writeText(response, http.StatusInternalServerError, "An internal error occurred")
		}
		return
	}

	writeJSON(response, http.StatusOK, MessageResponse{Message: "Role created successfully."})
}

// listRolesHandler (Handles GET /roles)
func (ctl *RoleController) listRolesHandler(request *restful.Request, response *restful.Response) {
	roles, err := ctl.roleService.ListRoles(request.Request.Context())
	if err != nil {
		ctl.logger.Error("Failed to list roles", zap.Error(err))
		writeText(response, http.StatusInternalServerError, "An internal error occurred")
		return
	}

	writeJSON(response, http.StatusOK, RoleListResponse{Success: true, Data: roles})
}

// deleteRoleHandler (Handles DELETE /roles/{id})
func (ctl *RoleController) deleteRoleHandler(request *restful.Request, response *restful.Response) {
	id := request.PathParameter("id")

	err := ctl.roleService.DeleteRole(request.Request.Context(), id)
	if err != nil {
		var storeErr *services.StoreOperationError
		switch {
		case errors.As(err, &storeErr):
			ctl.logger.Warn("Role deletion failed", zap.String("role_id", id), zap.Error(err))
			writeJSON(response, http.StatusBadRequest, StatusResponse{Success: false, Message: "Role deleted failed"})
		case errors.Is(err, services.ErrRoleNotFound):
			writeText(response, http.StatusNotFound, "Role not found")
		default:
			ctl.logger.Error("Failed to delete role", zap.String("role_id", id), zap.Error(err))
			writeText(response, http.StatusInternalServerError, "An internal error occurred")
		}
		return
	}

	writeJSON(response, http.StatusOK, StatusResponse{Success: true, Message: "Role deleted successfully"})
}

// assignRoleHandler (Handles POST /roles/assign)
func (ctl *RoleController) assignRoleHandler(request *restful.Request, response *restful.Response) {
	input := new(services.AssignRoleInput)
	if err := request.ReadEntity(input); err != nil {
		writeBodyError(response, err)
		return
	}

	err := ctl.roleService.AssignRole(request.Request.Context(), input)
	if err != nil {
		var verr *services.ValidationError
		var storeErr *services.StoreOperationError
		switch {
		case errors.As(err, &verr):
			writeValidationProblem(response, verr.Fields)
		case errors.As(err, &storeErr):
			// Checked before the not-found sentinels: a store failure may wrap one.
			ctl.logger.Warn("Role assignment failed",
				zap.String("user_id", input.UserID), zap.String("role_id", input.RoleID), zap.Error(err))
			writeJSON(response, http.StatusBadRequest, StatusResponse{
				Success: false,
				Message: "Role assigned failed",
				Errors:  storeErr.Errors,
			})
		case errors.Is(err, services.ErrUserNotFound):
			writeText(response, http.StatusNotFound, "User not found")
		case errors.Is(err, services.ErrRoleNotFound):
			writeText(response, http.StatusNotFound, "Role not found")
		default:
			ctl.logger.Error("Failed to assign role",
				zap.String("user_id", input.UserID), zap.String("role_id", input.RoleID), zap.Error(err))
			writeText(response, http.StatusInternalServerError, "An internal error occurred")
		}
		return
	}

	writeJSON(response, http.StatusOK, StatusResponse{Success: true, Message: "Role assigned successfully"})
}
