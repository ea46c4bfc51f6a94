// Package webhook provides inbound lead capture and outbound event webhooks.
// This file defines the module that encapsulates all webhook setup and route registration.
package webhook

import (
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/logger"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	apiKey  string
}

// NewModule creates the capture endpoint. An empty apiKey disables it.
func NewModule(leads LeadCreator, apiKey string, log *logger.Logger) *Module {
	return &Module{
		handler: NewHandler(NewService(leads, log)),
		apiKey:  apiKey,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public capture endpoint (API key auth, no JWT)
	group := ctx.V1.Group("/webhook")
	if ctx.CaptureLimiter != nil {
		group.Use(ctx.CaptureLimiter.RateLimit())
	}
	group.Use(httpkit.APIKeyRequired(m.apiKey))
	group.POST("/leads", m.handler.HandleLeadCapture)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
