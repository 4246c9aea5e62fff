package main

import (
	"os"

	"github.com/aretw0/chatflow/internal/cli"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat <template-id>",
	Short: "Chat with a published template in the terminal",
	Long: `Starts a session of the template and reads answers from stdin.
Prefix a line with "audio:" to answer a speech-to-text node with an audio URL.
Type "exit" or "quit" to leave; the session stays stored where it stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, _, logger, err := buildStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()

		headless, _ := cmd.Flags().GetBool("headless")
		plain, _ := cmd.Flags().GetBool("plain")
		jsonMode, _ := cmd.Flags().GetBool("json")
		initial, _ := cmd.Flags().GetString("context")

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		return cli.Chat(sigCtx, stack, cli.ChatOptions{
			TemplateID: args[0],
			Headless:   headless,
			Context:    initial,
			Plain:      plain,
			JSON:       jsonMode,
		}, os.Stdin, cmd.OutOrStdout(), logger)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().Bool("headless", false, "Run in headless mode (no banner, no prompts)")
	chatCmd.Flags().Bool("json", false, "Run in JSON mode (JSON-Lines input/output)")
	chatCmd.Flags().Bool("plain", false, "Print messages without markdown rendering")
	chatCmd.Flags().String("context", "", "Initial variables as a JSON object")
}
