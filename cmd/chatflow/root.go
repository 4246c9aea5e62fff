package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/chatflow/internal/cli"
	"github.com/aretw0/chatflow/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chatflow",
	Short: "chatflow runs graph based chatbot conversations",
	Long: `chatflow executes published chatbot templates: graphs of input, text,
AI, voice, action and routing nodes. Sessions pause when the bot waits for an
answer and resume from their persisted snapshot.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to chatflow.yaml (default ./chatflow.yaml when present)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logs on stderr")
}

// loadConfig reads the configuration and builds the logger every command shares.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, nil, err
	}
	return cfg, cli.CreateLogger(debug, level, cfg.LogFormat), nil
}

// buildStack loads the configuration and wires the engine.
func buildStack(cmd *cobra.Command) (*cli.Stack, *config.Config, *slog.Logger, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	debug, _ := cmd.Flags().GetBool("debug")
	stack, err := cli.Build(cfg, logger, debug)
	if err != nil {
		return nil, nil, nil, err
	}
	return stack, cfg, logger, nil
}
