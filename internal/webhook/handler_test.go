package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"leadflow_backend/internal/automation"
	contacts "leadflow_backend/internal/contacts/domain"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/platform/apperr"
	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "capture-key"

type fakeLeadCreator struct {
	createErr error
	leads     []automation.NewLead
	notes     []string
}

func (f *fakeLeadCreator) CreateLead(_ context.Context, in automation.NewLead) (*contacts.Contact, automation.Result, error) {
	if f.createErr != nil {
		return nil, automation.Result{}, f.createErr
	}
	f.leads = append(f.leads, in)
	owner := uuid.New()
	return &contacts.Contact{ID: uuid.New(), Name: in.Name, Status: contacts.StatusNew, OwnerID: &owner},
		automation.Result{RunID: "01RUN", RulesRun: []string{"core_1", "core_3", "core_4"}}, nil
}

func (f *fakeLeadCreator) AppendNote(_ context.Context, id uuid.UUID, body, _ string) (*contacts.Contact, error) {
	f.notes = append(f.notes, body)
	return &contacts.Contact{ID: id}, nil
}

func newCaptureEngine(t *testing.T, leads LeadCreator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	module := NewModule(leads, testAPIKey, logger.NewWithWriter("test", io.Discard))
	module.RegisterRoutes(&apphttp.RouterContext{V1: engine.Group("/api/v1")})
	return engine
}

func postJSON(t *testing.T, engine *gin.Engine, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/leads", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", key)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestLeadCaptureRequiresAPIKey(t *testing.T) {
	leads := &fakeLeadCreator{}
	rec := postJSON(t, newCaptureEngine(t, leads), "wrong", map[string]any{"name": "Jane", "email": "jane@example.com"})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, leads.leads)
}

func TestLeadCaptureCreatesLeadFromJSON(t *testing.T) {
	leads := &fakeLeadCreator{}
	rec := postJSON(t, newCaptureEngine(t, leads), testAPIKey, map[string]any{
		"name":    "Jane Doe",
		"email":   "jane@example.com",
		"value":   199.99,
		"tags":    []string{"vip"},
		"message": "Call me after 5",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, leads.leads, 1)
	lead := leads.leads[0]
	assert.Equal(t, "Jane Doe", lead.Name)
	assert.Equal(t, int64(19999), lead.ValueCents)
	assert.Equal(t, "webhook", lead.Source)
	assert.Equal(t, []string{"vip"}, lead.Tags)
	assert.Equal(t, []string{"Call me after 5"}, leads.notes)

	var resp CaptureResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "01RUN", resp.RunID)
	assert.Equal(t, []string{"core_1", "core_3", "core_4"}, resp.RulesRun)
	assert.NotNil(t, resp.OwnerID)
}

func TestLeadCapturePassesContactDetailsThroughUnchanged(t *testing.T) {
	leads := &fakeLeadCreator{}
	rec := postJSON(t, newCaptureEngine(t, leads), testAPIKey, map[string]any{
		"name":  "jane doe",
		"email": "Jane.Doe@Example.com",
		"phone": "+1 415 555 2671",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, leads.leads, 1)
	assert.Equal(t, "+1 415 555 2671", leads.leads[0].Phone)
	assert.Equal(t, "Jane.Doe@Example.com", leads.leads[0].Email)
}

func TestLeadCaptureAcceptsFormPosts(t *testing.T) {
	leads := &fakeLeadCreator{}
	engine := newCaptureEngine(t, leads)

	form := url.Values{"naam": {"Jan Jansen"}, "telefoon": {"06 1234 5678"}, "bron": {"Website"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/leads", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-API-Key", testAPIKey)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, leads.leads, 1)
	assert.Equal(t, "06 1234 5678", leads.leads[0].Phone)
	assert.Equal(t, "website", leads.leads[0].Source)
}

func TestLeadCaptureRejectsIncompleteSubmission(t *testing.T) {
	leads := &fakeLeadCreator{}
	rec := postJSON(t, newCaptureEngine(t, leads), testAPIKey, map[string]any{"name": "Jane"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, leads.leads)
}

func TestLeadCaptureReportsDuplicate(t *testing.T) {
	leads := &fakeLeadCreator{createErr: apperr.Conflict("a contact with this email or phone already exists")}
	rec := postJSON(t, newCaptureEngine(t, leads), testAPIKey, map[string]any{"name": "Jane", "email": "jane@example.com"})

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLeadCaptureRejectsEmptyBody(t *testing.T) {
	rec := postJSON(t, newCaptureEngine(t, &fakeLeadCreator{}), testAPIKey, map[string]any{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
