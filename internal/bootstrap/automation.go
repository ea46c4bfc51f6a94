// Package bootstrap assembles the automation engine shared by the API, the
// scheduler and the operator CLI.
package bootstrap

import (
	"context"
	"fmt"

	"leadflow_backend/internal/automation"
	"leadflow_backend/internal/automation/assignment"
	contactsrepo "leadflow_backend/internal/contacts/repository"
	tasksrepo "leadflow_backend/internal/tasks/repository"
	teamrepo "leadflow_backend/internal/team/repository"
	"leadflow_backend/platform/clock"
	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const cursorKeyPrefix = "leadflow:rr:"

// AutomationDeps are the collaborators that differ per process.
type AutomationDeps struct {
	Pool     *pgxpool.Pool
	Notifier automation.Notifier
	Bus      automation.Publisher
	// Redis shares the round-robin cursor between instances. Nil keeps the
	// cursor in process.
	Redis redis.Cmdable
	Log   *logger.Logger
}

// Automation is the assembled engine plus the stores it was built on.
type Automation struct {
	Engine   *automation.Engine
	Runs     *automation.Repository
	Contacts *contactsrepo.Repo
	Tasks    *tasksrepo.Repo
	Team     *teamrepo.Repo
}

// NewAutomation builds the engine and loads rule overrides and persisted
// settings. Overrides from the rules file apply first; toggles saved through
// the admin API win over them.
func NewAutomation(ctx context.Context, cfg config.AutomationConfig, deps AutomationDeps) (*Automation, error) {
	method, err := assignment.ParseMethod(cfg.GetDistributionMethod())
	if err != nil {
		return nil, err
	}

	runs := automation.NewRepository(deps.Pool)
	contacts := contactsrepo.New(deps.Pool)
	tasks := tasksrepo.New(deps.Pool)
	team := teamrepo.New(deps.Pool)

	registry := automation.NewRegistry(automation.DefaultRules(),
		automation.FileOverrides{Path: cfg.GetRulesFile()},
		runs,
	)
	registry.SetWriter(runs)

	settings := automation.NewSettingsStore(automation.Settings{
		DistributionEnabled: cfg.GetDistributionEnabled(),
		Method:              method,
		SLAThreshold:        cfg.GetSLAThreshold(),
		StaleAfter:          cfg.GetStaleAfter(),
		AlertCooldown:       cfg.GetAlertCooldown(),
		WelcomeTemplate:     cfg.GetWelcomeTemplate(),
	}, runs)

	var cursor assignment.CursorStore = assignment.NewMemoryCursor()
	if deps.Redis != nil {
		cursor = assignment.NewRedisCursor(deps.Redis, cursorKeyPrefix)
	}

	engine := automation.NewEngine(automation.EngineDeps{
		Registry: registry,
		Settings: settings,
		Strategy: assignment.NewStrategy(cursor),
		Contacts: contacts,
		Tasks:    tasks,
		Team:     team,
		Notifier: deps.Notifier,
		Bus:      deps.Bus,
		Runs:     runs,
		Clock:    clock.Real{},
		Log:      deps.Log,
	})

	if err := engine.Reload(ctx); err != nil {
		return nil, fmt.Errorf("load automation state: %w", err)
	}

	return &Automation{
		Engine:   engine,
		Runs:     runs,
		Contacts: contacts,
		Tasks:    tasks,
		Team:     team,
	}, nil
}
