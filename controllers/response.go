package controllers

import (
	"net/http"

	"rolecenter/models"
	"rolecenter/services"

	restful "github.com/emicklei/go-restful/v3"
)

// mimePlain is the content type of bare-string failure bodies.
const mimePlain = "text/plain"

// MessageResponse is the plain acknowledgement body.
type MessageResponse struct {
	Message string `json:"message"`
}

// StatusResponse is the {success, message} envelope.
type StatusResponse struct {
	Success bool                     `json:"success"`
	Message string                   `json:"message"`
	Errors  []services.IdentityError `json:"errors,omitempty"`
}

// RoleListResponse wraps the role summaries.
type RoleListResponse struct {
	Success bool                 `json:"success"`
	Data    []models.RoleSummary `json:"data"`
}

// ValidationProblem lists per-field validation messages.
type ValidationProblem struct {
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Errors map[string][]string `json:"errors"`
}

func writeJSON(resp *restful.Response, status int, v any) {
	_ = resp.WriteHeaderAndJson(status, v, restful.MIME_JSON)
}

// writeText writes a bare string body, the way "Role not found" style failures are reported.
func writeText(resp *restful.Response, status int, msg string) {
	resp.AddHeader("Content-Type", mimePlain+"; charset=utf-8")
	resp.WriteHeader(status)
	_, _ = resp.Write([]byte(msg))
}

func writeValidationProblem(resp *restful.Response, fields map[string][]string) {
	writeJSON(resp, http.StatusBadRequest, ValidationProblem{
		Title:  "One or more validation errors occurred.",
		Status: http.StatusBadRequest,
		Errors: fields,
	})
}

func writeBodyError(resp *restful.Response, err error) {
	writeValidationProblem(resp, map[string][]string{"body": {"Invalid request body: " + err.Error()}})
}
