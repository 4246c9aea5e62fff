package main

import (
	"fmt"

	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/spf13/cobra"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage the template repository",
	Long:  `List, import, and remove templates in the configured template store (directory or SQLite).`,
}

var templateLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, _, _, err := buildStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		ids, err := stack.Templates.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), "- "+id)
		}
		return nil
	},
}

var templateImportCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Validate and store template documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		publish, _ := cmd.Flags().GetBool("publish")

		stack, _, _, err := buildStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		for _, path := range args {
			g, err := file.LoadTemplateFile(path)
			if err != nil {
				return err
			}
			if publish {
				g.Status = domain.TemplatePublished
			}
			if err := stack.Templates.Save(cmd.Context(), g); err != nil {
				return fmt.Errorf("save %s: %w", g.TemplateID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored template '%s' (%s)\n", g.TemplateID, g.Status)
		}
		return nil
	},
}

var templateRmCmd = &cobra.Command{
	Use:   "rm <template-id>...",
	Short: "Remove templates",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, _, _, err := buildStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		for _, id := range args {
			if err := stack.Templates.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed template '%s'\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateLsCmd)
	templateCmd.AddCommand(templateImportCmd)
	templateCmd.AddCommand(templateRmCmd)

	templateImportCmd.Flags().Bool("publish", false, "Mark imported templates as published")
}
