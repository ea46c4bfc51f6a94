package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
)

// ErrUnknownRule is returned when a rule ID is not in the catalog.
var ErrUnknownRule = errors.New("automation: unknown rule")

// OverrideSource supplies isActive overrides keyed by rule ID. Sources are
// applied in order on every reload, later ones winning.
type OverrideSource interface {
	LoadOverrides(ctx context.Context) (map[string]bool, error)
}

// RuleStateWriter persists an admin toggle so it survives restarts.
type RuleStateWriter interface {
	SaveRuleState(ctx context.Context, ruleID string, active bool) error
}

// Registry is the rule catalog. Rule order is fixed by the seed list.
type Registry struct {
	mu      sync.RWMutex
	seed    []Rule
	rules   []Rule
	index   map[string]int
	sources []OverrideSource
	writer  RuleStateWriter
	reloads singleflight.Group
}

// NewRegistry builds a registry from seed. Duplicate IDs or unknown triggers
// in the seed are wiring mistakes and panic.
func NewRegistry(seed []Rule, sources ...OverrideSource) *Registry {
	index := make(map[string]int, len(seed))
	for i, rule := range seed {
		if !rule.Trigger.IsKnown() {
			panic(fmt.Sprintf("automation: rule %s has unknown trigger %q", rule.ID, rule.Trigger))
		}
		if _, dup := index[rule.ID]; dup {
			panic(fmt.Sprintf("automation: duplicate rule id %s", rule.ID))
		}
		index[rule.ID] = i
	}

	seedCopy := append([]Rule(nil), seed...)
	return &Registry{
		seed:    seedCopy,
		rules:   append([]Rule(nil), seedCopy...),
		index:   index,
		sources: sources,
	}
}

// SetWriter enables persistence of toggles.
func (r *Registry) SetWriter(w RuleStateWriter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writer = w
}

// Rules returns a copy of the catalog in definition order.
func (r *Registry) Rules() []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Rule(nil), r.rules...)
}

// Get returns a rule by ID.
func (r *Registry) Get(id string) (Rule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return Rule{}, false
	}
	return r.rules[i], true
}

// IsActive reports whether rule id exists and is switched on.
func (r *Registry) IsActive(id string) bool {
	rule, ok := r.Get(id)
	return ok && rule.IsActive
}

// ActiveFor returns the active rules for trigger in definition order.
func (r *Registry) ActiveFor(trigger Trigger) []Rule {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		if rule.IsActive && rule.Trigger == trigger {
			out = append(out, rule)
		}
	}
	return out
}

// SetActive toggles a rule, persisting the change first when a writer is set.
func (r *Registry) SetActive(ctx context.Context, id string, active bool) (Rule, error) {
	r.mu.RLock()
	_, ok := r.index[id]
	writer := r.writer
	r.mu.RUnlock()
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrUnknownRule, id)
	}

	if writer != nil {
		if err := writer.SaveRuleState(ctx, id, active); err != nil {
			return Rule{}, fmt.Errorf("automation: persist rule %s: %w", id, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.index[id]
	r.rules[i].IsActive = active
	return r.rules[i], nil
}

// Reload rebuilds the catalog from the seed plus all override sources.
// Concurrent calls share one load.
func (r *Registry) Reload(ctx context.Context) error {
	_, err, _ := r.reloads.Do("reload", func() (interface{}, error) {
		rules := append([]Rule(nil), r.seed...)
		for _, src := range r.sources {
			overrides, err := src.LoadOverrides(ctx)
			if err != nil {
				return nil, err
			}
			for id, active := range overrides {
				i, ok := r.index[id]
				if !ok {
					return nil, fmt.Errorf("%w: %s", ErrUnknownRule, id)
				}
				rules[i].IsActive = active
			}
		}

		r.mu.Lock()
		r.rules = rules
		r.mu.Unlock()
		return nil, nil
	})
	return err
}

// StaticOverrides is an in-memory OverrideSource.
type StaticOverrides map[string]bool

func (s StaticOverrides) LoadOverrides(context.Context) (map[string]bool, error) {
	return s, nil
}

// FileOverrides reads overrides from a YAML file:
//
//	rules:
//	  - id: life_2
//	    isActive: true
type FileOverrides struct {
	Path string
}

type overrideFile struct {
	Rules []struct {
		ID       string `yaml:"id"`
		IsActive *bool  `yaml:"isActive"`
	} `yaml:"rules"`
}

func (f FileOverrides) LoadOverrides(context.Context) (map[string]bool, error) {
	if f.Path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("automation: read rules file: %w", err)
	}

	var parsed overrideFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("automation: parse rules file: %w", err)
	}

	out := make(map[string]bool, len(parsed.Rules))
	for _, entry := range parsed.Rules {
		if entry.ID == "" || entry.IsActive == nil {
			return nil, fmt.Errorf("automation: rules file entry needs id and isActive")
		}
		out[entry.ID] = *entry.IsActive
	}
	return out, nil
}
