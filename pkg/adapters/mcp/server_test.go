package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const budgetGraph = `{
  "templateId": "budget", "status": "published",
  "nodes": [
    {"id": "start", "type": "start"},
    {"id": "ask", "type": "input", "config": {"prompt": "Budget for {{city}}?", "variableName": "budget", "inputType": "number"}},
    {"id": "done", "type": "text", "config": {"message": "Searching up to {{budget}}"}}
  ],
  "edges": [
    {"sourceNodeId": "start", "targetNodeId": "ask"},
    {"sourceNodeId": "ask", "targetNodeId": "done"}
  ]
}`

func newServer(t *testing.T) *Server {
	t.Helper()
	templates, err := memory.NewTemplatesFromJSON(budgetGraph)
	require.NoError(t, err)
	eng, err := chatflow.New(templates)
	require.NoError(t, err)
	return NewServer(eng, nil)
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func TestConversationTools(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	started, err := s.handleStart(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"template_id": "budget",
		"variables":   `{"city": "Recife"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForInput, started.Status)
	require.Len(t, started.Items, 1)
	assert.Equal(t, "Budget for Recife?", started.Items[0].Text)

	rejected, err := s.handleResume(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": started.SessionID,
		"text":       "a lot",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusWaitingForInput, rejected.Status)
	assert.NotEmpty(t, rejected.Failure)

	done, err := s.handleResume(ctx, mcp.CallToolRequest{}, map[string]interface{}{
		"session_id": started.SessionID,
		"text":       "500000",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	assert.Equal(t, "Searching up to 500000", done.Items[0].Text)
}

func TestConversationTools_Errors(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	_, err := s.handleStart(ctx, mcp.CallToolRequest{}, map[string]interface{}{})
	assert.Error(t, err)

	_, err = s.handleStart(ctx, mcp.CallToolRequest{}, map[string]interface{}{"template_id": "budget", "variables": "[1"})
	assert.Error(t, err)

	_, err = s.handleStart(ctx, mcp.CallToolRequest{}, map[string]interface{}{"template_id": "nope"})
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)

	_, err = s.handleResume(ctx, mcp.CallToolRequest{}, map[string]interface{}{"session_id": "nope", "text": "1"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestValidateGraphTool(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	res, err := s.handleValidate(ctx, callRequest("validate_graph", map[string]any{"document": budgetGraph}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleValidate(ctx, callRequest("validate_graph", map[string]any{"document": `{"nodes": []}`}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetSessionTool(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	started, err := s.handleStart(ctx, mcp.CallToolRequest{}, map[string]interface{}{"template_id": "budget"})
	require.NoError(t, err)

	res, err := s.handleGetSession(ctx, callRequest("get_session", map[string]any{"session_id": started.SessionID}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"current_node_id":"ask"`)

	res, err = s.handleGetSession(ctx, callRequest("get_session", map[string]any{"session_id": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
