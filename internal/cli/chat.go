package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/presentation/tui"
)

// ChatOptions contains all the configuration for the chat command.
type ChatOptions struct {
	TemplateID string
	Headless   bool
	Context    string // Raw JSON string
	Plain      bool   // Skip markdown rendering
	JSON       bool   // JSON-Lines input and output
}

// Chat runs one terminal conversation on stack's engine.
func Chat(ctx context.Context, stack *Stack, opts ChatOptions, in io.Reader, out io.Writer, logger *slog.Logger) error {
	var initialContext map[string]any
	if opts.Context != "" {
		if err := json.Unmarshal([]byte(opts.Context), &initialContext); err != nil {
			return fmt.Errorf("error parsing --context JSON: %w", err)
		}
	}

	quiet := opts.Headless || opts.JSON
	if !quiet {
		tui.PrintBanner(out, chatflow.Version)
	}

	r := &chatflow.Runner{
		Input:    in,
		Output:   out,
		Headless: opts.Headless,
		JSON:     opts.JSON,
	}
	if !quiet && !opts.Plain && tui.IsTerminal() {
		renderer, err := tui.NewRenderer()
		if err != nil {
			logger.Warn("Markdown rendering disabled", "err", err)
		} else {
			r.Renderer = renderer
		}
	}

	session, err := r.Run(ctx, stack.Engine, opts.TemplateID, initialContext)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			if !quiet {
				printSystemMessage(out, "Interrupted.")
			}
			return nil
		}
		return err
	}

	logger.Info("Session Finished", "session_id", session.ID, "node", session.CurrentNodeID, "status", session.Status)
	if !quiet {
		printSystemMessage(out, "Session '%s' %s at '%s' node.", session.ID, session.Status, session.CurrentNodeID)
	}
	return nil
}
