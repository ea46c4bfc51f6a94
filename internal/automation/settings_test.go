package automation

import (
	"context"
	"testing"

	"leadflow_backend/internal/automation/assignment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSettings struct {
	stored *DistributionSettings
	saves  int
}

func (m *memSettings) LoadDistribution(context.Context) (*DistributionSettings, error) {
	return m.stored, nil
}

func (m *memSettings) SaveDistribution(_ context.Context, s DistributionSettings) error {
	m.saves++
	m.stored = &s
	return nil
}

func TestSettingsUpdatePersistsDistribution(t *testing.T) {
	persister := &memSettings{}
	store := NewSettingsStore(defaultTestSettings(), persister)
	method := assignment.LoadBalanced

	got, err := store.Update(context.Background(), SettingsUpdate{Method: &method})

	require.NoError(t, err)
	assert.Equal(t, assignment.LoadBalanced, got.Method)
	assert.Equal(t, 1, persister.saves)
	assert.Equal(t, assignment.LoadBalanced, store.Get().Method)
}

func TestSettingsUpdateRejectsUnknownMethod(t *testing.T) {
	store := NewSettingsStore(defaultTestSettings(), nil)
	bad := assignment.Method("random")

	_, err := store.Update(context.Background(), SettingsUpdate{Method: &bad})

	var invalid *ValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, assignment.RoundRobin, store.Get().Method)
}

func TestSettingsUpdateTemplateOnlySkipsPersistence(t *testing.T) {
	persister := &memSettings{}
	store := NewSettingsStore(defaultTestSettings(), persister)
	tpl := "Hello {{firstName}}"

	_, err := store.Update(context.Background(), SettingsUpdate{WelcomeTemplate: &tpl})

	require.NoError(t, err)
	assert.Equal(t, 0, persister.saves)
	assert.Equal(t, tpl, store.Get().WelcomeTemplate)
}

func TestSettingsReloadAppliesStoredValues(t *testing.T) {
	persister := &memSettings{stored: &DistributionSettings{Enabled: false, Method: assignment.LoadBalanced}}
	store := NewSettingsStore(defaultTestSettings(), persister)

	require.NoError(t, store.Reload(context.Background()))

	got := store.Get()
	assert.False(t, got.DistributionEnabled)
	assert.Equal(t, assignment.LoadBalanced, got.Method)
	assert.Equal(t, defaultTestSettings().SLAThreshold, got.SLAThreshold)
}
