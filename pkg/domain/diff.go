package domain

import (
	"reflect"
)

// SessionDiff represents the changes between two session snapshots.
// It is designed to be serialized to JSON for partial updates on the client.
type SessionDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	TemplateID    *string        `json:"template_id,omitempty"`
	CurrentNodeID *string        `json:"current_node_id,omitempty"`
	Status        *SessionStatus `json:"status,omitempty"`

	// Variables contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Variables map[string]any `json:"variables,omitempty"`

	// History contains new items appended to history.
	History *HistoryDelta `json:"history,omitempty"`

	// Items are the deliveries produced by the pass that led to the new snapshot.
	Items []DeliveryItem `json:"items,omitempty"`
}

// HistoryDelta represents changes to the history stack.
type HistoryDelta struct {
	Appended []string `json:"appended"`
}

// Diff calculates the difference between oldSession and newSession.
// If oldSession is nil, it returns a diff representing the entire newSession.
func Diff(oldSession, newSession *Session) *SessionDiff {
	if newSession == nil {
		return nil
	}

	diff := &SessionDiff{
		SessionID: newSession.ID,
	}

	if oldSession == nil || oldSession.TemplateID != newSession.TemplateID {
		diff.TemplateID = &newSession.TemplateID
	}
	if oldSession == nil || oldSession.CurrentNodeID != newSession.CurrentNodeID {
		diff.CurrentNodeID = &newSession.CurrentNodeID
	}
	if oldSession == nil || oldSession.Status != newSession.Status {
		diff.Status = &newSession.Status
	}

	diff.Variables = diffVariables(oldSession, newSession)
	diff.History = diffHistory(oldSession, newSession)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffVariables(old *Session, new *Session) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Variables {
			delta[k] = v
		}
		if len(delta) == 0 {
			return nil
		}
		return delta
	}

	for k, newVal := range new.Variables {
		oldVal, exists := old.Variables[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}

	for k := range old.Variables {
		if _, exists := new.Variables[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffHistory assumes append-only history.
func diffHistory(old *Session, new *Session) *HistoryDelta {
	if len(new.History) == 0 {
		return nil
	}
	if old == nil {
		return &HistoryDelta{Appended: new.History}
	}
	if len(new.History) > len(old.History) {
		return &HistoryDelta{Appended: new.History[len(old.History):]}
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SessionDiff) IsEmpty() bool {
	return d.TemplateID == nil &&
		d.CurrentNodeID == nil &&
		d.Status == nil &&
		len(d.Variables) == 0 &&
		d.History == nil &&
		len(d.Items) == 0
}
