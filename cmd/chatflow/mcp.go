package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/chatflow/internal/cli"
	"github.com/aretw0/chatflow/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the chatflow engine as an MCP Server.
This allows AI agents to start and answer conversations as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		stack, _, logger, err := buildStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		srv := mcp.NewServer(stack.Engine, logger)

		switch transport {
		case "stdio":
			// The logger writes to stderr, so JSON-RPC on stdout stays clean.
			logger.Info("Starting chatflow MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()

			if err := srv.ServeSSE(sigCtx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
