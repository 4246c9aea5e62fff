package domain

import "time"

// SessionStatus is the lifecycle state of a conversation.
type SessionStatus string

const (
	StatusRunning         SessionStatus = "running"
	StatusWaitingForInput SessionStatus = "waiting_for_input"
	StatusCompleted       SessionStatus = "completed"
	StatusError           SessionStatus = "error"
)

// SessionError is an entry of the per-session error log.
// Recoverable problems (broken conditions, rejected input, unavailable router
// targets) land here without stopping the conversation.
type SessionError struct {
	NodeID  string    `json:"node_id"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Session is the durable snapshot of one end-user conversation.
// It is plain data so that any worker or process can resume it.
type Session struct {
	ID            string         `json:"id"`
	TemplateID    string         `json:"template_id"`
	CurrentNodeID string         `json:"current_node_id"`
	Variables     map[string]any `json:"variables"`
	Status        SessionStatus  `json:"status"`

	// History is the ordered list of executed node ids, across router jumps.
	History []string `json:"history,omitempty"`

	// LastAIText is the most recent text produced by an ai or ai-voice-agent node.
	// TTS nodes wired directly after an AI node speak it.
	LastAIText string `json:"last_ai_text,omitempty"`

	// LastInput is the raw inbound value of the latest resume.
	LastInput string `json:"last_input,omitempty"`

	Errors    []SessionError `json:"errors,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewSession creates a running session positioned at startNodeID.
func NewSession(id, templateID, startNodeID string, now time.Time) *Session {
	return &Session{
		ID:            id,
		TemplateID:    templateID,
		CurrentNodeID: startNodeID,
		Variables:     make(map[string]any),
		Status:        StatusRunning,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Terminal reports whether the session can no longer advance.
func (s *Session) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusError
}

// LogError appends an entry to the session error log.
func (s *Session) LogError(nodeID, kind string, err error, now time.Time) {
	s.Errors = append(s.Errors, SessionError{
		NodeID:  nodeID,
		Kind:    kind,
		Message: err.Error(),
		At:      now,
	})
}

// Clone returns a copy whose variables, history and error log can be mutated
// without affecting the original.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	next := *s
	next.Variables = CloneValue(s.Variables).(map[string]any)
	next.History = append([]string(nil), s.History...)
	next.Errors = append([]SessionError(nil), s.Errors...)
	return &next
}

// CloneValue deep-copies maps and slices found in variable values.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = CloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = CloneValue(val)
		}
		return out
	default:
		return v
	}
}
