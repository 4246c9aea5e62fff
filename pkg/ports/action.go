package ports

import "context"

// ActionBackend executes the backend operations named by action nodes
// (creating a lead, booking a visit, ...). The result is opaque to the engine
// and is stored as-is in the node's result variable.
type ActionBackend interface {
	Invoke(ctx context.Context, actionType string, params map[string]any) (any, error)
}
