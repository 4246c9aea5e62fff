package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter      EventType = "node_enter"
	EventNodeLeave      EventType = "node_leave"
	EventProviderCall   EventType = "provider_call"
	EventProviderReturn EventType = "provider_return"
	EventSessionStatus  EventType = "session_status"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	TemplateID string   `json:"template_id"`
	NodeID     string   `json:"node_id"`
	NodeType   NodeType `json:"node_type"`
	Handle     string   `json:"handle,omitempty"`
}

// ProviderEvent represents an adapter call.
type ProviderEvent struct {
	EventBase
	NodeID     string        `json:"node_id"`
	Provider   string        `json:"provider"`
	Capability string        `json:"capability"`
	Duration   time.Duration `json:"duration,omitempty"`
	IsError    bool          `json:"is_error,omitempty"`
}

// StatusEvent is emitted when a pass ends.
type StatusEvent struct {
	EventBase
	TemplateID string        `json:"template_id"`
	Status     SessionStatus `json:"status"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter      func(context.Context, *NodeEvent)
	OnNodeLeave      func(context.Context, *NodeEvent)
	OnProviderCall   func(context.Context, *ProviderEvent)
	OnProviderReturn func(context.Context, *ProviderEvent)
	OnSessionStatus  func(context.Context, *StatusEvent)
}

// CombineHooks fans every event out to each set of hooks, in order.
func CombineHooks(sets ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *NodeEvent) {
			for _, h := range sets {
				if h.OnNodeEnter != nil {
					h.OnNodeEnter(ctx, e)
				}
			}
		},
		OnNodeLeave: func(ctx context.Context, e *NodeEvent) {
			for _, h := range sets {
				if h.OnNodeLeave != nil {
					h.OnNodeLeave(ctx, e)
				}
			}
		},
		OnProviderCall: func(ctx context.Context, e *ProviderEvent) {
			for _, h := range sets {
				if h.OnProviderCall != nil {
					h.OnProviderCall(ctx, e)
				}
			}
		},
		OnProviderReturn: func(ctx context.Context, e *ProviderEvent) {
			for _, h := range sets {
				if h.OnProviderReturn != nil {
					h.OnProviderReturn(ctx, e)
				}
			}
		},
		OnSessionStatus: func(ctx context.Context, e *StatusEvent) {
			for _, h := range sets {
				if h.OnSessionStatus != nil {
					h.OnSessionStatus(ctx, e)
				}
			}
		},
	}
}
