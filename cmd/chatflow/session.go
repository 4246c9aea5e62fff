package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage persistent sessions",
	Long:  `List, inspect, and remove sessions in the configured session store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored sessions with their status",
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, _, _, err := buildStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		sessions, err := stack.Engine.Sessions(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTEMPLATE\tSTATUS\tNODE\tUPDATED")
		for _, id := range sessions {
			s, err := stack.Engine.Session(cmd.Context(), id)
			if err != nil {
				fmt.Fprintf(tw, "%s\t-\tunreadable\t-\t-\n", id)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				s.ID, s.TemplateID, s.Status, s.CurrentNodeID, s.UpdatedAt.Format(time.RFC3339))
		}
		return tw.Flush()
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Inspect the snapshot of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, _, _, err := buildStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		s, err := stack.Engine.Session(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading session '%s': %w", args[0], err)
		}

		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, _, _, err := buildStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		failed := 0
		for _, id := range args {
			if err := stack.Engine.DeleteSession(cmd.Context(), id); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d sessions could not be removed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
}
