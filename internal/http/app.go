package http

import (
	"context"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
)

// RouterConfig is the configuration the router reads.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker backs GET /api/health.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App is everything the router needs, assembled by cmd/api.
type App struct {
	Config RouterConfig
	Logger *logger.Logger
	// Health is optional; without it the health endpoint always reports ok.
	Health  HealthChecker
	Modules []Module
}
