package automation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRuleWriter struct {
	saved map[string]bool
	err   error
}

func (f *fakeRuleWriter) SaveRuleState(_ context.Context, id string, active bool) error {
	if f.err != nil {
		return f.err
	}
	if f.saved == nil {
		f.saved = map[string]bool{}
	}
	f.saved[id] = active
	return nil
}

func TestDefaultRulesOrderAndState(t *testing.T) {
	r := NewRegistry(DefaultRules())

	var ids []string
	for _, rule := range r.ActiveFor(OnLeadCreate) {
		ids = append(ids, rule.ID)
	}
	assert.Equal(t, []string{RuleNormalize, RuleDuplicateCheck, RuleAssignment, RuleSpeedToLead}, ids)
	assert.False(t, r.IsActive(RuleStaleReassign))
	assert.Len(t, r.Rules(), 12)
}

func TestNewRegistryPanicsOnDuplicateID(t *testing.T) {
	assert.Panics(t, func() {
		NewRegistry([]Rule{{ID: "a", Trigger: OnLeadCreate}, {ID: "a", Trigger: OnDealWon}})
	})
	assert.Panics(t, func() {
		NewRegistry([]Rule{{ID: "a", Trigger: "LATER"}})
	})
}

func TestSetActivePersistsBeforeApplying(t *testing.T) {
	r := NewRegistry(DefaultRules())
	w := &fakeRuleWriter{err: errors.New("db down")}
	r.SetWriter(w)

	_, err := r.SetActive(context.Background(), RuleAssignment, false)
	require.Error(t, err)
	assert.True(t, r.IsActive(RuleAssignment))

	w.err = nil
	rule, err := r.SetActive(context.Background(), RuleAssignment, false)
	require.NoError(t, err)
	assert.False(t, rule.IsActive)
	assert.Equal(t, map[string]bool{RuleAssignment: false}, w.saved)
}

func TestSetActiveUnknownRule(t *testing.T) {
	_, err := NewRegistry(DefaultRules()).SetActive(context.Background(), "zzz", true)
	assert.ErrorIs(t, err, ErrUnknownRule)
}

func TestReloadAppliesSourcesInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - id: life_2\n    isActive: true\n  - id: core_4\n    isActive: false\n"), 0o600))

	r := NewRegistry(DefaultRules(), FileOverrides{Path: path}, StaticOverrides{RuleSpeedToLead: true})
	require.NoError(t, r.Reload(context.Background()))

	assert.True(t, r.IsActive(RuleStaleReassign))
	assert.True(t, r.IsActive(RuleSpeedToLead))
}

func TestReloadResetsRuntimeToggles(t *testing.T) {
	r := NewRegistry(DefaultRules())
	_, err := r.SetActive(context.Background(), RuleOnboarding, false)
	require.NoError(t, err)

	require.NoError(t, r.Reload(context.Background()))

	assert.True(t, r.IsActive(RuleOnboarding))
}

func TestFileOverridesRejectsIncompleteEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - id: core_1\n"), 0o600))

	_, err := FileOverrides{Path: path}.LoadOverrides(context.Background())
	assert.Error(t, err)
}

func TestReloadRejectsUnknownOverride(t *testing.T) {
	r := NewRegistry(DefaultRules(), StaticOverrides{"core_99": true})

	assert.ErrorIs(t, r.Reload(context.Background()), ErrUnknownRule)
}
