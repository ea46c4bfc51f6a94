// Package team provides the sales team bounded context module. Active sales
// reps form the lead assignment pool.
package team

import (
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/team/handler"
	"leadflow_backend/internal/team/repository"
	"leadflow_backend/internal/team/service"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the team bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repo
}

func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "team"
}

// Repository exposes the member store; the automation engine reads the
// assignment pool from it.
func (m *Module) Repository() *repository.Repo {
	return m.repo
}

// RegisterRoutes mounts team routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/team", m.handler.List)
	ctx.Protected.GET("/team/:id", m.handler.GetByID)

	adminGroup := ctx.Admin.Group("/team")
	adminGroup.POST("", m.handler.Create)
	adminGroup.PATCH("/:id", m.handler.Update)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
