package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
)

// CreateLogger builds the stderr logger of the binaries. debug overrides level.
func CreateLogger(debug bool, level slog.Level, format string) *slog.Logger {
	if debug {
		level = slog.LevelDebug
	}
	return logging.New(level, logging.WithFormat(format))
}

func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, ">>> "+fmt.Sprintf(format, args...))
}

// createDebugHooks traces every engine event at debug level.
func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			logger.Debug("Enter Node", "session_id", e.SessionID, "node_id", e.NodeID, "type", e.NodeType)
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			logger.Debug("Leave Node", "node_id", e.NodeID, "handle", e.Handle)
		},
		OnProviderCall: func(_ context.Context, e *domain.ProviderEvent) {
			logger.Debug("Provider Call", "provider", e.Provider, "capability", e.Capability)
		},
		OnProviderReturn: func(_ context.Context, e *domain.ProviderEvent) {
			logger.Debug("Provider Return", "provider", e.Provider, "duration", e.Duration, "failed", e.IsError)
		},
		OnSessionStatus: func(_ context.Context, e *domain.StatusEvent) {
			logger.Debug("Pass Finished", "session_id", e.SessionID, "status", e.Status)
		},
	}
}
