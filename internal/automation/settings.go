package automation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"leadflow_backend/internal/automation/assignment"
)

// Settings are the tunables the rules read at run time.
type Settings struct {
	DistributionEnabled bool              `json:"distributionEnabled"`
	Method              assignment.Method `json:"method"`
	SLAThreshold        time.Duration     `json:"-"`
	StaleAfter          time.Duration     `json:"-"`
	AlertCooldown       time.Duration     `json:"-"`
	WelcomeTemplate     string            `json:"welcomeTemplate"`
}

// DistributionSettings is the persisted, admin-editable part of Settings.
type DistributionSettings struct {
	Enabled bool
	Method  assignment.Method
}

// SettingsPersister loads and saves distribution settings.
type SettingsPersister interface {
	LoadDistribution(ctx context.Context) (*DistributionSettings, error)
	SaveDistribution(ctx context.Context, s DistributionSettings) error
}

// SettingsUpdate is a partial update; nil fields are left unchanged.
type SettingsUpdate struct {
	DistributionEnabled *bool
	Method              *assignment.Method
	WelcomeTemplate     *string
}

// SettingsStore holds the current Settings. Readers get a copy.
type SettingsStore struct {
	mu        sync.RWMutex
	current   Settings
	defaults  Settings
	persister SettingsPersister
}

func NewSettingsStore(defaults Settings, persister SettingsPersister) *SettingsStore {
	return &SettingsStore{current: defaults, defaults: defaults, persister: persister}
}

// Get returns a snapshot of the settings.
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates and applies u, persisting distribution changes first.
func (s *SettingsStore) Update(ctx context.Context, u SettingsUpdate) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	if u.DistributionEnabled != nil {
		next.DistributionEnabled = *u.DistributionEnabled
	}
	if u.Method != nil {
		method, err := assignment.ParseMethod(string(*u.Method))
		if err != nil {
			return s.current, &ValidationError{Field: "method", Reason: err.Error()}
		}
		next.Method = method
	}
	if u.WelcomeTemplate != nil {
		tpl := strings.TrimSpace(*u.WelcomeTemplate)
		if tpl == "" {
			return s.current, &ValidationError{Field: "welcomeTemplate", Reason: "welcome template cannot be empty"}
		}
		next.WelcomeTemplate = tpl
	}

	if s.persister != nil && (next.DistributionEnabled != s.current.DistributionEnabled || next.Method != s.current.Method) {
		if err := s.persister.SaveDistribution(ctx, DistributionSettings{Enabled: next.DistributionEnabled, Method: next.Method}); err != nil {
			return s.current, fmt.Errorf("automation: persist settings: %w", err)
		}
	}

	s.current = next
	return next, nil
}

// Reload resets to the configured defaults and reapplies persisted values.
func (s *SettingsStore) Reload(ctx context.Context) error {
	next := s.defaults
	if s.persister != nil {
		stored, err := s.persister.LoadDistribution(ctx)
		if err != nil {
			return fmt.Errorf("automation: load settings: %w", err)
		}
		if stored != nil {
			next.DistributionEnabled = stored.Enabled
			if method, err := assignment.ParseMethod(string(stored.Method)); err == nil {
				next.Method = method
			}
		}
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return nil
}
