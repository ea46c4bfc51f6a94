package handler

import (
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/validator"
)

// Module is the automation admin module implementing http.Module.
type Module struct {
	handler *Handler
}

func NewModule(engine Engine, runs RunLister, val *validator.Validator) *Module {
	return &Module{handler: New(engine, runs, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "automation"
}

// RegisterRoutes mounts automation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/automation"), ctx.Admin.Group("/automation"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
