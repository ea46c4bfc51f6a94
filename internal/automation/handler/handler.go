// Package handler exposes the rule catalog, the distribution settings and
// the run log over HTTP.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leadflow_backend/internal/automation"
	"leadflow_backend/internal/automation/assignment"
	"leadflow_backend/internal/automation/transport"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"
)

// Engine is the part of the rule engine the admin API drives.
type Engine interface {
	Registry() *automation.Registry
	Settings() *automation.SettingsStore
	Reload(ctx context.Context) error
	RunScheduledCheck(ctx context.Context) (automation.Result, error)
	Replay(ctx context.Context, contactID uuid.UUID, trigger automation.Trigger, actorID *uuid.UUID) (automation.Result, error)
}

// RunLister reads the run log.
type RunLister interface {
	ListRuns(ctx context.Context, f automation.RunFilter) ([]automation.RunRecord, error)
}

// Handler handles HTTP requests for automation.
type Handler struct {
	engine Engine
	runs   RunLister
	val    *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

func New(engine Engine, runs RunLister, val *validator.Validator) *Handler {
	return &Handler{engine: engine, runs: runs, val: val}
}

// RegisterRoutes mounts read routes on protected and mutating routes on admin.
func (h *Handler) RegisterRoutes(protected, admin *gin.RouterGroup) {
	protected.GET("/rules", h.ListRules)
	protected.GET("/settings", h.GetSettings)

	admin.PATCH("/rules/:id", h.ToggleRule)
	admin.POST("/rules/reload", h.Reload)
	admin.PUT("/settings", h.UpdateSettings)
	admin.GET("/runs", h.ListRuns)
	admin.POST("/check", h.RunCheck)
	admin.POST("/replay", h.Replay)
}

// GET /api/v1/automation/rules
func (h *Handler) ListRules(c *gin.Context) {
	rules := h.engine.Registry().Rules()
	items := make([]transport.RuleResponse, 0, len(rules))
	for _, r := range rules {
		items = append(items, toRuleResponse(r))
	}
	httpkit.OK(c, transport.RuleListResponse{Items: items})
}

// PATCH /api/v1/admin/automation/rules/:id
func (h *Handler) ToggleRule(c *gin.Context) {
	var req transport.ToggleRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	rule, err := h.engine.Registry().SetActive(c.Request.Context(), c.Param("id"), *req.IsActive)
	if httpkit.HandleError(c, mapError(err)) {
		return
	}
	httpkit.OK(c, toRuleResponse(rule))
}

// Reload re-reads rule overrides and settings from their sources.
// POST /api/v1/admin/automation/rules/reload
func (h *Handler) Reload(c *gin.Context) {
	if httpkit.HandleError(c, mapError(h.engine.Reload(c.Request.Context()))) {
		return
	}
	h.ListRules(c)
}

// GET /api/v1/automation/settings
func (h *Handler) GetSettings(c *gin.Context) {
	httpkit.OK(c, toSettingsResponse(h.engine.Settings().Get()))
}

// PUT /api/v1/admin/automation/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req transport.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	update := automation.SettingsUpdate{
		DistributionEnabled: req.DistributionEnabled,
		WelcomeTemplate:     req.WelcomeTemplate,
	}
	if req.Method != nil {
		method := assignment.Method(*req.Method)
		update.Method = &method
	}

	settings, err := h.engine.Settings().Update(c.Request.Context(), update)
	if httpkit.HandleError(c, mapError(err)) {
		return
	}
	httpkit.OK(c, toSettingsResponse(settings))
}

// GET /api/v1/admin/automation/runs
func (h *Handler) ListRuns(c *gin.Context) {
	var req transport.ListRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	runs, err := h.runs.ListRuns(c.Request.Context(), automation.RunFilter{
		Trigger:   automation.Trigger(req.Trigger),
		ContactID: req.ContactID,
		Limit:     req.Limit,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.RunResponse, 0, len(runs))
	for _, r := range runs {
		items = append(items, transport.RunResponse{
			ID:          r.ID,
			Trigger:     string(r.Trigger),
			ContactID:   r.ContactID,
			RulesRun:    r.RulesRun,
			RulesFailed: r.RulesFailed,
			StartedAt:   r.StartedAt,
			DurationMs:  r.DurationMs,
		})
	}
	httpkit.OK(c, transport.RunListResponse{Items: items})
}

// RunCheck runs the scheduled check now. 409 while one is running.
// POST /api/v1/admin/automation/check
func (h *Handler) RunCheck(c *gin.Context) {
	result, err := h.engine.RunScheduledCheck(c.Request.Context())
	if httpkit.HandleError(c, mapError(err)) {
		return
	}
	httpkit.OK(c, result)
}

// POST /api/v1/admin/automation/replay
func (h *Handler) Replay(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.ReplayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.Fields(err))
		return
	}

	actorID := identity.UserID()
	result, err := h.engine.Replay(c.Request.Context(), req.ContactID, automation.Trigger(req.Trigger), &actorID)
	if httpkit.HandleError(c, mapError(err)) {
		return
	}
	httpkit.OK(c, result)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	var validation *automation.ValidationError
	switch {
	case errors.Is(err, automation.ErrUnknownRule):
		return apperr.Wrap(apperr.KindNotFound, "rule not found", err)
	case errors.Is(err, automation.ErrUnknownTrigger):
		return apperr.Wrap(apperr.KindBadRequest, "unknown trigger", err)
	case errors.Is(err, automation.ErrCheckInProgress):
		return apperr.Wrap(apperr.KindConflict, "a scheduled check is already running", err)
	case errors.As(err, &validation):
		return apperr.Wrap(apperr.KindValidation, validation.Reason, err).WithDetails(map[string]string{"field": validation.Field})
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Wrap(apperr.KindInternal, "automation request failed", err)
}

func toRuleResponse(r automation.Rule) transport.RuleResponse {
	return transport.RuleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    string(r.Category),
		Trigger:     string(r.Trigger),
		IsActive:    r.IsActive,
		Gating:      automation.IsGuard(r.ID),
	}
}

func toSettingsResponse(s automation.Settings) transport.SettingsResponse {
	return transport.SettingsResponse{
		DistributionEnabled: s.DistributionEnabled,
		Method:              string(s.Method),
		MethodLabel:         s.Method.Label(),
		WelcomeTemplate:     s.WelcomeTemplate,
		SLAThresholdSeconds: int64(s.SLAThreshold.Seconds()),
		StaleAfterSeconds:   int64(s.StaleAfter.Seconds()),
	}
}
