// Package cli implements leadflowctl, the operator command line for the
// automation engine.
package cli

import (
	"context"
	"encoding/json"
	"io"

	"leadflow_backend/internal/automation"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Engine is the part of the automation engine the CLI drives.
type Engine interface {
	Registry() *automation.Registry
	RunScheduledCheck(ctx context.Context) (automation.Result, error)
	Replay(ctx context.Context, contactID uuid.UUID, trigger automation.Trigger, actorID *uuid.UUID) (automation.Result, error)
}

// Opener connects to the database and builds the engine. The returned func
// releases everything it opened.
type Opener func(ctx context.Context) (Engine, func(), error)

// GlobalFlags are available on every command.
type GlobalFlags struct {
	JSON bool
}

// NewRootCmd creates the leadflowctl root command.
func NewRootCmd(open Opener) *cobra.Command {
	flags := &GlobalFlags{}

	cmd := &cobra.Command{
		Use:   "leadflowctl",
		Short: "Operate the leadflow automation engine",
		Long: `leadflowctl inspects and toggles automation rules and runs engine
passes against the configured database.

Examples:
  leadflowctl rules list
  leadflowctl rules disable life_2
  leadflowctl check run
  leadflowctl replay 6f1c... --trigger ON_LEAD_CREATE`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&flags.JSON, "json", false, "Output as JSON")

	cmd.AddCommand(newRulesCmd(open, flags))
	cmd.AddCommand(newCheckCmd(open, flags))
	cmd.AddCommand(newReplayCmd(open, flags))

	return cmd
}

// withEngine opens the engine for the duration of fn.
func withEngine(ctx context.Context, open Opener, fn func(Engine) error) error {
	engine, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}
	return fn(engine)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
