package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"leadflow_backend/internal/automation"

	"github.com/spf13/cobra"
)

func newCheckCmd(open Opener, flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the scheduled check",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run one SCHEDULED_CHECK pass now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), open, func(engine Engine) error {
				result, err := engine.RunScheduledCheck(cmd.Context())
				if errors.Is(err, automation.ErrCheckInProgress) {
					return fmt.Errorf("a scheduled check is already running")
				}
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), result, flags.JSON)
			})
		},
	})

	return cmd
}

func printResult(w io.Writer, result automation.Result, asJSON bool) error {
	if asJSON {
		return writeJSON(w, result)
	}

	_, err := fmt.Fprintf(w, "run %s (%s)\n  rules run:     %s\n  rules failed:  %s\n  notifications: %d\n  tasks created: %d\n",
		result.RunID,
		result.Trigger,
		joinOrDash(result.RulesRun),
		joinOrDash(result.RulesFailed),
		result.Notifications,
		result.TasksCreated,
	)
	return err
}

func joinOrDash(values []string) string {
	if len(values) == 0 {
		return "-"
	}
	return strings.Join(values, ", ")
}
