// Package actions dispatches action nodes to in-process Go functions.
package actions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/chatflow/pkg/ports"
)

// ErrUnknownAction is returned when no function is registered for an action
// type and the registry has no fallback.
var ErrUnknownAction = errors.New("unknown action")

// Func implements one action type. It receives the resolved node parameters
// and returns the value stored in the node's result variable.
type Func func(ctx context.Context, params map[string]any) (any, error)

// Registry maps action types to functions. It implements ports.ActionBackend.
type Registry struct {
	mu       sync.RWMutex
	actions  map[string]Func
	fallback ports.ActionBackend
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		actions: make(map[string]Func),
	}
}

// Register adds an action. If one with the same type exists, it is overwritten.
func (r *Registry) Register(actionType string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions[actionType] = fn
}

// SetFallback routes unregistered action types to backend, typically a webhook.
func (r *Registry) SetFallback(backend ports.ActionBackend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = backend
}

// Types lists the registered action types.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.actions))
	for t := range r.actions {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Invoke looks up the action and executes it.
func (r *Registry) Invoke(ctx context.Context, actionType string, params map[string]any) (any, error) {
	r.mu.RLock()
	fn, ok := r.actions[actionType]
	fallback := r.fallback
	r.mu.RUnlock()

	if ok {
		return fn(ctx, params)
	}
	if fallback != nil {
		return fallback.Invoke(ctx, actionType, params)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownAction, actionType)
}
