// Package contacts provides the contact (lead) bounded context module.
// Writes go through the automation engine so every change runs the rules.
package contacts

import (
	"leadflow_backend/internal/contacts/handler"
	"leadflow_backend/internal/contacts/repository"
	"leadflow_backend/internal/contacts/service"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/validator"
)

// Module is the contacts bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the module. repo is shared with the engine so both see
// the same store.
func NewModule(engine service.Automation, repo *repository.Repo, val *validator.Validator) *Module {
	svc := service.New(engine, repo)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "contacts"
}

// RegisterRoutes mounts contact routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/contacts"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
