package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrTemplateNotFound is returned when a template ID cannot be found in the store.
var ErrTemplateNotFound = errors.New("template not found")

// ErrTemplateNotPublished is returned when a template exists but is still a draft.
var ErrTemplateNotPublished = errors.New("template not published")

// ErrStepLimitExceeded is returned when a single execution pass visits more nodes
// than the engine allows, which only happens on cycles without a suspending node.
var ErrStepLimitExceeded = errors.New("step limit exceeded")

// Violation is a single structural problem found while loading a graph.
type Violation struct {
	NodeID string `json:"node_id,omitempty"`
	EdgeID string `json:"edge_id,omitempty"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

func (v Violation) String() string {
	var where []string
	if v.NodeID != "" {
		where = append(where, fmt.Sprintf("node %q", v.NodeID))
	}
	if v.EdgeID != "" {
		where = append(where, fmt.Sprintf("edge %q", v.EdgeID))
	}
	if v.Field != "" {
		where = append(where, fmt.Sprintf("field %q", v.Field))
	}
	if len(where) == 0 {
		return v.Reason
	}
	return strings.Join(where, " ") + ": " + v.Reason
}

// GraphValidationError lists every violation found in a graph document.
type GraphValidationError struct {
	Violations []Violation
}

func (e *GraphValidationError) Error() string {
	if len(e.Violations) == 1 {
		return "invalid graph: " + e.Violations[0].String()
	}
	msg := fmt.Sprintf("invalid graph: %d violations:\n", len(e.Violations))
	for i, v := range e.Violations {
		msg += fmt.Sprintf("  %d. %s\n", i+1, v.String())
	}
	return msg
}

// ConditionEvaluationError reports a malformed or failing condition.
// It is never fatal: the conditional takes its false branch.
type ConditionEvaluationError struct {
	Expression string
	Err        error
}

func (e *ConditionEvaluationError) Error() string {
	return fmt.Sprintf("condition %q: %v", e.Expression, e.Err)
}

func (e *ConditionEvaluationError) Unwrap() error { return e.Err }

// ProviderError reports an adapter call that failed after the retry budget.
type ProviderError struct {
	Provider   string
	Capability string
	Attempts   int
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s %s failed after %d attempt(s): %v", e.Provider, e.Capability, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// InputValidationError reports an inbound value rejected by an input or stt node.
// The session stays waiting_for_input and the node re-prompts.
type InputValidationError struct {
	NodeID string
	Value  string
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("node %s rejected input %q: %s", e.NodeID, e.Value, e.Reason)
}

// RouterTargetUnavailableError reports a router whose target cannot be entered.
type RouterTargetUnavailableError struct {
	NodeID           string
	TargetTemplateID string
	Reason           string
	Err              error
}

func (e *RouterTargetUnavailableError) Error() string {
	return fmt.Sprintf("router %s: template %q unavailable: %s", e.NodeID, e.TargetTemplateID, e.Reason)
}

func (e *RouterTargetUnavailableError) Unwrap() error { return e.Err }

// SessionNotResumableError is returned when Resume is called on a session that
// is not waiting for input. The session is left untouched.
type SessionNotResumableError struct {
	SessionID string
	Status    SessionStatus
}

func (e *SessionNotResumableError) Error() string {
	return fmt.Sprintf("session %s is %s, not %s", e.SessionID, e.Status, StatusWaitingForInput)
}

// NodeExecutionError is the failure reported to the caller when a node
// terminates the session.
type NodeExecutionError struct {
	NodeID   string
	NodeType NodeType
	Err      error
}

func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %s (%s) failed: %v", e.NodeID, e.NodeType, e.Err)
}

func (e *NodeExecutionError) Unwrap() error { return e.Err }
