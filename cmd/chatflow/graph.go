package main

import (
	"fmt"

	"github.com/aretw0/chatflow/internal/presentation/graph"
	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph [template-id]",
	Short: "Export the flow graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of a published template, or of any
template document with --file. With --session the nodes the session visited are
highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		sessionID, _ := cmd.Flags().GetString("session")

		if path == "" && len(args) == 0 {
			return fmt.Errorf("a template id or --file is required")
		}

		var g *domain.FlowGraph
		var overlay *graph.GraphOverlay
		var err error

		if path != "" {
			if g, err = file.LoadTemplateFile(path); err != nil {
				return err
			}
		}

		if len(args) > 0 || sessionID != "" {
			stack, _, _, err := buildStack(cmd)
			if err != nil {
				return err
			}
			defer stack.Close()

			if g == nil {
				if g, err = stack.Engine.Graph(cmd.Context(), args[0]); err != nil {
					return err
				}
			}
			if sessionID != "" {
				s, err := stack.Engine.Session(cmd.Context(), sessionID)
				if err != nil {
					return err
				}
				overlay = graph.OverlayFromSession(s)
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(g, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("file", "f", "", "Template document to draw instead of a published template")
	graphCmd.Flags().String("session", "", "Highlight the path of this session")
}
