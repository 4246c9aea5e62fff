package chatflow_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leadIntake = `{
  "templateId": "lead-intake",
  "name": "Lead intake",
  "status": "published",
  "nodes": [
    {"id": "start", "type": "start"},
    {"id": "hi", "type": "text", "config": {"message": "Hi {{name}}"}},
    {"id": "ask", "type": "input", "config": {"prompt": "Age?", "variableName": "age", "inputType": "number"}},
    {"id": "check", "type": "conditional", "config": {"condition": "{{age}} > 18"}},
    {"id": "adult", "type": "text", "config": {"message": "Adult"}},
    {"id": "minor", "type": "text", "config": {"message": "Minor"}}
  ],
  "edges": [
    {"id": "e1", "sourceNodeId": "start", "targetNodeId": "hi"},
    {"id": "e2", "sourceNodeId": "hi", "targetNodeId": "ask"},
    {"id": "e3", "sourceNodeId": "ask", "targetNodeId": "check"},
    {"id": "e4", "sourceNodeId": "check", "targetNodeId": "adult", "sourceHandle": "true"},
    {"id": "e5", "sourceNodeId": "check", "targetNodeId": "minor", "sourceHandle": "false"}
  ]
}`

func newEngine(t *testing.T, docs ...string) (*chatflow.Engine, *memory.Templates) {
	t.Helper()
	templates, err := memory.NewTemplatesFromJSON(docs...)
	require.NoError(t, err)

	n := 0
	eng, err := chatflow.New(templates, chatflow.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}))
	require.NoError(t, err)
	return eng, templates
}

func textsOf(items []domain.DeliveryItem) []string {
	var out []string
	for _, it := range items {
		out = append(out, it.Text)
	}
	return out
}

func TestEngine_StartAndResume(t *testing.T) {
	eng, _ := newEngine(t, leadIntake)
	ctx := context.Background()

	res, err := eng.Start(ctx, "lead-intake", map[string]any{"name": "Ana"})
	require.NoError(t, err)
	assert.Equal(t, "s1", res.SessionID)
	assert.Equal(t, domain.StatusWaitingForInput, res.Status)
	assert.Equal(t, []string{"Hi Ana", "Age?"}, textsOf(res.Items))

	stored, err := eng.Session(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "ask", stored.CurrentNodeID)

	res, err = eng.Resume(ctx, res.SessionID, domain.TextInput("25"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)
	assert.Equal(t, []string{"Adult"}, textsOf(res.Items))
	assert.NoError(t, res.Failure)

	require.NotNil(t, res.Diff)
	assert.Equal(t, map[string]any{"age": "25"}, res.Diff.Variables)
	assert.Equal(t, res.Items, res.Diff.Items)

	stored, err = eng.Session(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)
	assert.Equal(t, "25", stored.Variables["age"])
}

func TestEngine_StartDoesNotAliasCallerVariables(t *testing.T) {
	eng, _ := newEngine(t, leadIntake)
	ctx := context.Background()
	vars := map[string]any{"name": "Ana", "tags": []any{"vip"}}

	res, err := eng.Start(ctx, "lead-intake", vars)
	require.NoError(t, err)
	vars["tags"].([]any)[0] = "changed"

	stored, err := eng.Session(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, []any{"vip"}, stored.Variables["tags"])
}

func TestEngine_StartUnavailableTemplate(t *testing.T) {
	eng, templates := newEngine(t, leadIntake)
	ctx := context.Background()

	_, err := eng.Start(ctx, "missing", nil)
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)

	g, err := graph.Load([]byte(strings.Replace(leadIntake, `"published"`, `"draft"`, 1)))
	require.NoError(t, err)
	g.TemplateID = "draft"
	require.NoError(t, templates.Save(ctx, g))

	_, err = eng.Start(ctx, "draft", nil)
	assert.ErrorIs(t, err, domain.ErrTemplateNotPublished)
}

func TestEngine_RejectedInputKeepsWaiting(t *testing.T) {
	eng, _ := newEngine(t, leadIntake)
	ctx := context.Background()

	res, err := eng.Start(ctx, "lead-intake", nil)
	require.NoError(t, err)

	res, err = eng.Resume(ctx, res.SessionID, domain.TextInput("twenty"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForInput, res.Status)
	assert.Equal(t, []string{"Age?"}, textsOf(res.Items))

	var rejected *domain.InputValidationError
	require.ErrorAs(t, res.Failure, &rejected)
	assert.Equal(t, "ask", rejected.NodeID)

	res, err = eng.Resume(ctx, res.SessionID, domain.TextInput("12"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Minor"}, textsOf(res.Items))
}

func TestEngine_ResumeLeavesSnapshotOnFailure(t *testing.T) {
	eng, templates := newEngine(t, leadIntake)
	ctx := context.Background()

	_, err := eng.Resume(ctx, "nope", domain.TextInput("x"))
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	res, err := eng.Start(ctx, "lead-intake", nil)
	require.NoError(t, err)

	g, err := templates.GetPublishedGraph(ctx, "lead-intake")
	require.NoError(t, err)
	unpublished := *g
	unpublished.Status = domain.TemplateDraft
	require.NoError(t, templates.Save(ctx, &unpublished))

	_, err = eng.Resume(ctx, res.SessionID, domain.TextInput("30"))
	assert.ErrorIs(t, err, domain.ErrTemplateNotPublished)

	stored, err := eng.Session(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForInput, stored.Status)
	assert.NotContains(t, stored.Variables, "age")
}

func TestEngine_ResumeCompletedSession(t *testing.T) {
	eng, _ := newEngine(t, `{
	  "templateId": "hello", "status": "published",
	  "nodes": [
	    {"id": "start", "type": "start"},
	    {"id": "bye", "type": "text", "config": {"message": "Bye"}}
	  ],
	  "edges": [{"sourceNodeId": "start", "targetNodeId": "bye"}]
	}`)
	ctx := context.Background()

	res, err := eng.Start(ctx, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Status)

	_, err = eng.Resume(ctx, res.SessionID, domain.TextInput("again"))
	var notResumable *domain.SessionNotResumableError
	require.True(t, errors.As(err, &notResumable))
	assert.Equal(t, domain.StatusCompleted, notResumable.Status)
}

func TestEngine_ResumeFollowsRouterTemplate(t *testing.T) {
	eng, _ := newEngine(t, `{
	  "templateId": "main", "status": "published",
	  "nodes": [
	    {"id": "start", "type": "start"},
	    {"id": "go", "type": "router", "config": {"targetTemplateId": "billing"}}
	  ],
	  "edges": [{"sourceNodeId": "start", "targetNodeId": "go"}]
	}`, `{
	  "templateId": "billing", "status": "published",
	  "nodes": [
	    {"id": "start", "type": "start"},
	    {"id": "ask", "type": "input", "config": {"prompt": "Invoice number?", "variableName": "invoice"}},
	    {"id": "done", "type": "text", "config": {"message": "Looking up {{invoice}}"}}
	  ],
	  "edges": [
	    {"sourceNodeId": "start", "targetNodeId": "ask"},
	    {"sourceNodeId": "ask", "targetNodeId": "done"}
	  ]
	}`)
	ctx := context.Background()

	res, err := eng.Start(ctx, "main", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Invoice number?"}, textsOf(res.Items))

	res, err = eng.Resume(ctx, res.SessionID, domain.TextInput("A-7"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Looking up A-7"}, textsOf(res.Items))

	stored, err := eng.Session(ctx, res.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "billing", stored.TemplateID)
}

func TestEngine_Validate(t *testing.T) {
	eng, _ := newEngine(t)

	assert.NoError(t, eng.Validate([]byte(leadIntake)))

	err := eng.Validate([]byte(`{"templateId": "x", "nodes": [{"id": "a", "type": "text"}], "edges": []}`))
	var invalid *domain.GraphValidationError
	require.ErrorAs(t, err, &invalid)
	assert.NotEmpty(t, invalid.Violations)
}

func TestNew_RequiresTemplates(t *testing.T) {
	_, err := chatflow.New(nil)
	assert.Error(t, err)
}

func TestRunner(t *testing.T) {
	eng, _ := newEngine(t, leadIntake)
	var out bytes.Buffer

	r := &chatflow.Runner{
		Input:    strings.NewReader("abc\n40\n"),
		Output:   &out,
		Headless: true,
	}
	s, err := r.Run(context.Background(), eng, "lead-intake", map[string]any{"name": "Bia"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, s.Status)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Hi Bia", lines[0])
	assert.Equal(t, "Age?", lines[1])
	assert.Equal(t, "Age?", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "! "))
	assert.Equal(t, "Adult", lines[4])
}

func TestRunner_EOFLeavesSessionWaiting(t *testing.T) {
	eng, _ := newEngine(t, leadIntake)
	var out bytes.Buffer

	r := &chatflow.Runner{Input: strings.NewReader(""), Output: &out, Headless: true}
	s, err := r.Run(context.Background(), eng, "lead-intake", nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForInput, s.Status)
}

func TestRunner_JSON(t *testing.T) {
	eng, _ := newEngine(t, leadIntake)
	var out bytes.Buffer

	r := &chatflow.Runner{
		Input:  strings.NewReader("\"abc\"\n{\"text\": \"12\"}\n"),
		Output: &out,
		JSON:   true,
	}
	s, err := r.Run(context.Background(), eng, "lead-intake", map[string]any{"name": "Bia"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, s.Status)

	dec := json.NewDecoder(&out)
	var turns []chatflow.JSONTurn
	for dec.More() {
		var turn chatflow.JSONTurn
		require.NoError(t, dec.Decode(&turn))
		turns = append(turns, turn)
	}
	require.Len(t, turns, 3)

	assert.Equal(t, domain.StatusWaitingForInput, turns[0].Status)
	assert.Equal(t, []string{"Hi Bia", "Age?"}, textsOf(turns[0].Items))

	assert.Equal(t, []string{"Age?"}, textsOf(turns[1].Items))
	assert.NotEmpty(t, turns[1].Failure)

	assert.Equal(t, domain.StatusCompleted, turns[2].Status)
	assert.Equal(t, []string{"Minor"}, textsOf(turns[2].Items))
	assert.Equal(t, s.ID, turns[2].SessionID)
}
