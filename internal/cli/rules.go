package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"leadflow_backend/internal/automation"

	"github.com/spf13/cobra"
)

func newRulesCmd(open Opener, flags *GlobalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List and toggle automation rules",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the rule catalog in execution order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEngine(cmd.Context(), open, func(engine Engine) error {
				return printRules(cmd.OutOrStdout(), engine.Registry().Rules(), flags.JSON)
			})
		},
	})
	cmd.AddCommand(newToggleCmd(open, flags, "enable", true))
	cmd.AddCommand(newToggleCmd(open, flags, "disable", false))

	return cmd
}

func newToggleCmd(open Opener, flags *GlobalFlags, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <rule-id>",
		Short: fmt.Sprintf("%s a rule; the change is persisted", capitalize(use)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), open, func(engine Engine) error {
				rule, err := engine.Registry().SetActive(cmd.Context(), args[0], active)
				if err != nil {
					return fmt.Errorf("%s %s: %w", use, args[0], err)
				}
				if flags.JSON {
					return writeJSON(cmd.OutOrStdout(), rule)
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now %s\n", rule.ID, rule.Name, activeLabel(rule.IsActive))
				return err
			})
		},
	}
}

func printRules(w io.Writer, rules []automation.Rule, asJSON bool) error {
	if asJSON {
		return writeJSON(w, rules)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tTRIGGER\tSTATE")
	for _, r := range rules {
		state := activeLabel(r.IsActive)
		if automation.IsGuard(r.ID) {
			state += " (gate)"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Category, r.Trigger, state)
	}
	return tw.Flush()
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
