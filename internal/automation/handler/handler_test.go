package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadflow_backend/internal/automation"
	"leadflow_backend/internal/automation/assignment"
	"leadflow_backend/internal/automation/transport"
	"leadflow_backend/platform/httpkit"
	"leadflow_backend/platform/validator"
)

type fakeEngine struct {
	registry *automation.Registry
	settings *automation.SettingsStore
	checkErr error
	replays  []automation.Trigger
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		registry: automation.NewRegistry(automation.DefaultRules()),
		settings: automation.NewSettingsStore(automation.Settings{
			DistributionEnabled: true,
			Method:              assignment.RoundRobin,
			SLAThreshold:        15 * time.Minute,
			WelcomeTemplate:     "Hi {{name}}",
		}, nil),
	}
}

func (f *fakeEngine) Registry() *automation.Registry      { return f.registry }
func (f *fakeEngine) Settings() *automation.SettingsStore { return f.settings }
func (f *fakeEngine) Reload(ctx context.Context) error    { return f.registry.Reload(ctx) }

func (f *fakeEngine) RunScheduledCheck(context.Context) (automation.Result, error) {
	if f.checkErr != nil {
		return automation.Result{}, f.checkErr
	}
	return automation.Result{Trigger: automation.ScheduledCheck, RulesRun: []string{automation.RuleSLAAlert}}, nil
}

func (f *fakeEngine) Replay(_ context.Context, _ uuid.UUID, trigger automation.Trigger, _ *uuid.UUID) (automation.Result, error) {
	f.replays = append(f.replays, trigger)
	return automation.Result{Trigger: trigger}, nil
}

type fakeRuns struct {
	filter automation.RunFilter
}

func (f *fakeRuns) ListRuns(_ context.Context, filter automation.RunFilter) ([]automation.RunRecord, error) {
	f.filter = filter
	return []automation.RunRecord{{ID: "01J0000000000000000000000A", Trigger: automation.OnLeadCreate, RulesRun: []string{"core_1"}}}, nil
}

func newRouter(engine *fakeEngine, runs *fakeRuns) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
		c.Next()
	})
	h := New(engine, runs, validator.New())
	h.RegisterRoutes(r.Group("/automation"), r.Group("/admin/automation"))
	return r
}

func request(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListRulesMarksGuards(t *testing.T) {
	r := newRouter(newFakeEngine(), &fakeRuns{})

	w := request(r, http.MethodGet, "/automation/rules", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp transport.RuleListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 12)
	assert.Equal(t, automation.RuleNormalize, resp.Items[0].ID)

	gating := map[string]bool{}
	for _, item := range resp.Items {
		gating[item.ID] = item.Gating
	}
	assert.True(t, gating[automation.RuleTaskGating])
	assert.True(t, gating[automation.RuleDuplicateCheck])
	assert.False(t, gating[automation.RuleAssignment])
}

func TestToggleRule(t *testing.T) {
	engine := newFakeEngine()
	r := newRouter(engine, &fakeRuns{})

	w := request(r, http.MethodPatch, "/admin/automation/rules/"+automation.RuleStaleReassign, map[string]any{"isActive": true})

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, engine.registry.IsActive(automation.RuleStaleReassign))
}

func TestToggleUnknownRuleIsNotFound(t *testing.T) {
	r := newRouter(newFakeEngine(), &fakeRuns{})

	w := request(r, http.MethodPatch, "/admin/automation/rules/nope_9", map[string]any{"isActive": false})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestToggleRuleRequiresFlag(t *testing.T) {
	r := newRouter(newFakeEngine(), &fakeRuns{})

	w := request(r, http.MethodPatch, "/admin/automation/rules/"+automation.RuleNormalize, map[string]any{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReloadRestoresCatalog(t *testing.T) {
	engine := newFakeEngine()
	_, err := engine.registry.SetActive(context.Background(), automation.RuleNormalize, false)
	require.NoError(t, err)
	r := newRouter(engine, &fakeRuns{})

	w := request(r, http.MethodPost, "/admin/automation/rules/reload", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, engine.registry.IsActive(automation.RuleNormalize))
}

func TestUpdateSettings(t *testing.T) {
	engine := newFakeEngine()
	r := newRouter(engine, &fakeRuns{})

	w := request(r, http.MethodPut, "/admin/automation/settings", map[string]any{"method": "load_balanced", "distributionEnabled": false})

	require.Equal(t, http.StatusOK, w.Code)
	var resp transport.SettingsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "load_balanced", resp.Method)
	assert.Equal(t, "Load Balanced", resp.MethodLabel)
	assert.False(t, resp.DistributionEnabled)
	assert.Equal(t, int64(900), resp.SLAThresholdSeconds)
	assert.Equal(t, assignment.LoadBalanced, engine.settings.Get().Method)
}

func TestUpdateSettingsRejectsUnknownMethod(t *testing.T) {
	engine := newFakeEngine()
	r := newRouter(engine, &fakeRuns{})

	w := request(r, http.MethodPut, "/admin/automation/settings", map[string]any{"method": "random"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, assignment.RoundRobin, engine.settings.Get().Method)
}

func TestRunCheckBusyIsConflict(t *testing.T) {
	engine := newFakeEngine()
	engine.checkErr = automation.ErrCheckInProgress
	r := newRouter(engine, &fakeRuns{})

	w := request(r, http.MethodPost, "/admin/automation/check", nil)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestReplayRejectsScheduledCheck(t *testing.T) {
	engine := newFakeEngine()
	r := newRouter(engine, &fakeRuns{})

	w := request(r, http.MethodPost, "/admin/automation/replay", map[string]any{"contactId": uuid.NewString(), "trigger": "SCHEDULED_CHECK"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(r, http.MethodPost, "/admin/automation/replay", map[string]any{"contactId": uuid.NewString(), "trigger": "ON_LEAD_CREATE"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []automation.Trigger{automation.OnLeadCreate}, engine.replays)
}

func TestListRunsPassesFilter(t *testing.T) {
	runs := &fakeRuns{}
	r := newRouter(newFakeEngine(), runs)

	w := request(r, http.MethodGet, "/admin/automation/runs?trigger=ON_LEAD_CREATE&limit=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, automation.OnLeadCreate, runs.filter.Trigger)
	assert.Equal(t, 5, runs.filter.Limit)
}
