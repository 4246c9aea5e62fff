package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Check template documents for consistency",
	Long: `Parses each JSON or YAML template document and reports every violation:
dangling edges, missing start node, missing required node settings and unknown
node types.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			if err := validateFile(path); err != nil {
				failed++
				fmt.Fprintf(out, "%s: %v\n", path, err)
				continue
			}
			fmt.Fprintf(out, "%s: valid\n", path)
		}
		if failed > 0 {
			return fmt.Errorf("validation failed for %d of %d documents", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateFile(path string) error {
	_, err := file.LoadTemplateFile(path)
	var invalid *domain.GraphValidationError
	if errors.As(err, &invalid) {
		return invalid
	}
	return err
}
