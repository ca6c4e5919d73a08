package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"rolecenter/auth"
	"rolecenter/config"
	"rolecenter/controllers"
	"rolecenter/database"
	"rolecenter/metrics"
	"rolecenter/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Config   config.Config
	DB       *gorm.DB
	Roles    services.RoleService
	Accounts services.AccountService
	Tokens   *auth.TokenManager
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
}

// AccessLog logs one line per request after it has been handled.
func AccessLog(logger *zap.Logger) restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		startTime := time.Now()

		chain.ProcessFilter(req, resp)

		logger.Info("Request",
			zap.String("client_ip", req.Request.RemoteAddr),
			zap.String("method", req.Request.Method),
			zap.Int("status_code", resp.StatusCode()),
			zap.Duration("latency", time.Since(startTime)),
			zap.String("user_agent", req.Request.UserAgent()),
			zap.String("path", req.Request.URL.Path),
			zap.String("route", metrics.RouteTemplate(req)),
		)
	}
}

func recoverHandler(logger *zap.Logger) restful.RecoverHandleFunction {
	return func(panicReason interface{}, w http.ResponseWriter) {
		logger.Error("Recovered from panic in HTTP handler", zap.String("panic", fmt.Sprint(panicReason)), zap.Stack("stack"))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("An internal error occurred"))
	}
}

// NewContainer assembles the REST API, its OpenAPI document, /healthz and /metrics.
func NewContainer(d Deps) *restful.Container {
	container := restful.NewContainer()
	container.RecoverHandler(recoverHandler(d.Logger))
	container.Filter(AccessLog(d.Logger.Named("http")))
	if d.Metrics != nil {
		container.Filter(d.Metrics.Filter)
	}

	basePath := d.Config.HTTP.BasePath

	roleWS := new(restful.WebService)
	controllers.NewRoleController(basePath, d.Roles, d.Tokens, d.Logger).RegisterRoutes(roleWS)
	container.Add(roleWS)

	accountWS := new(restful.WebService)
	controllers.NewAccountController(basePath, d.Accounts, d.Tokens, d.Logger).RegisterRoutes(accountWS)
	container.Add(accountWS)

	// Generated from the services registered so far; ops endpoints stay out of it.
	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/apidocs.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject(d.Config.ServiceName),
	}))

	opsWS := new(restful.WebService)
	opsWS.Path("/healthz").Produces("text/plain")
	opsWS.Route(opsWS.GET("").To(healthHandler(d.DB)))
	container.Add(opsWS)

	if d.Metrics != nil {
		container.Handle("/metrics", d.Metrics.Handler())
	}
	return container
}

func healthHandler(db *gorm.DB) restful.RouteFunction {
	return func(req *restful.Request, resp *restful.Response) {
		ctx, cancel := context.WithTimeout(req.Request.Context(), 2*time.Second)
		defer cancel()

		resp.AddHeader("Content-Type", "text/plain; charset=utf-8")
		if err := database.Ping(ctx, db); err != nil {
			resp.WriteHeader(http.StatusServiceUnavailable)
			_, _ = resp.Write([]byte("unavailable"))
			return
		}
		resp.WriteHeader(http.StatusOK)
		_, _ = resp.Write([]byte("ok"))
	}
}

func enrichSwaggerObject(serviceName string) func(*spec.Swagger) {
	return func(swo *spec.Swagger) {
		swo.Info = &spec.Info{
			InfoProps: spec.InfoProps{
				Title:       "Role Center API",
				Description: "Role administration for " + serviceName,
				Version:     "1.0.0",
			},
		}
		swo.Tags = []spec.Tag{
			{TagProps: spec.TagProps{Name: "roles", Description: "Create, list, delete and assign roles"}},
			{TagProps: spec.TagProps{Name: "account", Description: "Registration, login and user lookups"}},
		}
		swo.SecurityDefinitions = spec.SecurityDefinitions{
			"bearer": spec.APIKeyAuth("Authorization", "header"),
		}
	}
}
