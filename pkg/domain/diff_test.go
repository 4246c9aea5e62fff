package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	waiting := StatusWaitingForInput
	completed := StatusCompleted

	tests := []struct {
		name     string
		old      *Session
		new      *Session
		wantDiff *SessionDiff // nil means no diff expected
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &Session{
				ID:            "sess-1",
				TemplateID:    "tmpl",
				CurrentNodeID: "ask",
				Status:        StatusWaitingForInput,
				Variables:     map[string]any{"name": "Ana"},
				History:       []string{"start", "ask"},
			},
			wantDiff: &SessionDiff{
				SessionID:     "sess-1",
				TemplateID:    &[]string{"tmpl"}[0],
				CurrentNodeID: &[]string{"ask"}[0],
				Status:        &waiting,
				Variables:     map[string]any{"name": "Ana"},
				History:       &HistoryDelta{Appended: []string{"start", "ask"}},
			},
		},
		{
			name: "No Changes",
			old: &Session{
				ID:            "sess-1",
				TemplateID:    "tmpl",
				CurrentNodeID: "ask",
				Status:        StatusWaitingForInput,
				Variables:     map[string]any{"name": "Ana"},
				History:       []string{"start", "ask"},
			},
			new: &Session{
				ID:            "sess-1",
				TemplateID:    "tmpl",
				CurrentNodeID: "ask",
				Status:        StatusWaitingForInput,
				Variables:     map[string]any{"name": "Ana"},
				History:       []string{"start", "ask"},
			},
			wantDiff: nil,
		},
		{
			name: "Resume Adds Variable And Completes",
			old: &Session{
				ID:            "sess-1",
				TemplateID:    "tmpl",
				CurrentNodeID: "ask",
				Status:        StatusWaitingForInput,
				Variables:     map[string]any{"name": "Ana"},
				History:       []string{"start", "ask"},
			},
			new: &Session{
				ID:            "sess-1",
				TemplateID:    "tmpl",
				CurrentNodeID: "adult",
				Status:        StatusCompleted,
				Variables:     map[string]any{"name": "Ana", "age": "25"},
				History:       []string{"start", "ask", "check", "adult"},
			},
			wantDiff: &SessionDiff{
				SessionID:     "sess-1",
				CurrentNodeID: &[]string{"adult"}[0],
				Status:        &completed,
				Variables:     map[string]any{"age": "25"},
				History:       &HistoryDelta{Appended: []string{"check", "adult"}},
			},
		},
		{
			name: "Variable Deletion",
			old:  &Session{Variables: map[string]any{"a": 1, "b": 2}},
			new:  &Session{Variables: map[string]any{"a": 1}},
			wantDiff: &SessionDiff{
				Variables: map[string]any{"b": nil},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantDiff == nil {
				if got != nil {
					t.Errorf("Diff() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Diff() = nil, want %+v", tt.wantDiff)
			}
			if got.SessionID != tt.wantDiff.SessionID {
				t.Errorf("Diff().SessionID = %v, want %v", got.SessionID, tt.wantDiff.SessionID)
			}
			if !reflect.DeepEqual(got.Variables, tt.wantDiff.Variables) {
				t.Errorf("Diff().Variables = %v, want %v", got.Variables, tt.wantDiff.Variables)
			}
			if !reflect.DeepEqual(got.History, tt.wantDiff.History) {
				t.Errorf("Diff().History = %v, want %v", got.History, tt.wantDiff.History)
			}
			if !equalPtr(got.CurrentNodeID, tt.wantDiff.CurrentNodeID) {
				t.Errorf("Diff().CurrentNodeID = %v, want %v", got.CurrentNodeID, tt.wantDiff.CurrentNodeID)
			}
			if !equalPtr(got.Status, tt.wantDiff.Status) {
				t.Errorf("Diff().Status = %v, want %v", got.Status, tt.wantDiff.Status)
			}
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Deletions as Null", func(t *testing.T) {
		s1 := &Session{Variables: map[string]any{"a": 1, "b": 2}}
		s2 := &Session{Variables: map[string]any{"a": 1}}

		diff := Diff(s1, s2)
		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}
		bytes, _ := json.Marshal(diff)
		if !strings.Contains(string(bytes), `"b":null`) {
			t.Errorf("JSON should contain 'b':null for deletion, got: %s", string(bytes))
		}
	})
}

func TestSessionClone(t *testing.T) {
	orig := &Session{
		ID:        "s",
		Variables: map[string]any{"lead": map[string]any{"name": "Ana"}},
		History:   []string{"start"},
	}
	cp := orig.Clone()
	cp.Variables["lead"].(map[string]any)["name"] = "Bia"
	cp.History = append(cp.History, "next")

	if orig.Variables["lead"].(map[string]any)["name"] != "Ana" {
		t.Errorf("nested variable leaked into original: %v", orig.Variables)
	}
	if len(orig.History) != 1 {
		t.Errorf("history leaked into original: %v", orig.History)
	}
}

func TestNormalizeNodeType(t *testing.T) {
	cases := map[string]NodeType{
		"text":           NodeTypeText,
		"message":        NodeTypeText,
		"capture":        NodeTypeInput,
		"condition":      NodeTypeConditional,
		"ai_response":    NodeTypeAI,
		"speech-to-text": NodeTypeSTT,
		"text-to-speech": NodeTypeTTS,
		"ai_voice_agent": NodeTypeAIVoiceAgent,
		"ai-voice-agent": NodeTypeAIVoiceAgent,
	}
	for raw, want := range cases {
		got, ok := NormalizeNodeType(raw)
		if !ok || got != want {
			t.Errorf("NormalizeNodeType(%q) = %q, %v; want %q", raw, got, ok, want)
		}
	}

	if _, ok := NormalizeNodeType("webhook"); ok {
		t.Error("unknown type must not normalize")
	}
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
