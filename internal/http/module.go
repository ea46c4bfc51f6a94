// Package http holds the contract between the router and the domain
// modules: every module mounts its own routes on the shared groups.
package http

import (
	"leadflow_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// Module is a bounded context with HTTP routes.
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext is what a module may mount routes on.
type RouterContext struct {
	// V1 is /api/v1 without authentication. Only the lead capture webhook
	// lives here, behind its API key.
	V1 *gin.RouterGroup
	// Protected requires a valid access token.
	Protected *gin.RouterGroup
	// Admin is /api/v1/admin, open to admins and managers.
	Admin *gin.RouterGroup
	// CaptureLimiter throttles public lead capture per client IP.
	CaptureLimiter *httpkit.IPRateLimiter
}
