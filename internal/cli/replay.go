package cli

import (
	"fmt"
	"strings"

	"leadflow_backend/internal/automation"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newReplayCmd(open Opener, flags *GlobalFlags) *cobra.Command {
	var trigger string

	cmd := &cobra.Command{
		Use:   "replay <contact-id>",
		Short: "Re-run the rules of a trigger for one contact",
		Long: `Re-run the active rules of a trigger against the current state of
one contact. Gates are not evaluated and the contact's status is not changed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contactID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid contact id %q", args[0])
			}
			t := automation.Trigger(strings.ToUpper(strings.TrimSpace(trigger)))
			if !t.IsKnown() || t == automation.ScheduledCheck {
				return fmt.Errorf("%w: %q", automation.ErrUnknownTrigger, trigger)
			}

			return withEngine(cmd.Context(), open, func(engine Engine) error {
				result, err := engine.Replay(cmd.Context(), contactID, t, nil)
				if err != nil {
					return err
				}
				return printResult(cmd.OutOrStdout(), result, flags.JSON)
			})
		},
	}

	cmd.Flags().StringVarP(&trigger, "trigger", "t", string(automation.OnLeadCreate), "Trigger to replay")

	return cmd
}
