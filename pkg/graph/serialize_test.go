package graph_test

import (
	"testing"

	"github.com/aretw0/chatflow/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const everyTypeGraph = `{
  "templateId": "showcase",
  "name": "Every node type",
  "status": "published",
  "nodes": [
    {"id": "start", "type": "start", "config": {"waitForResponse": true}, "position": {"x": 10, "y": 20}},
    {"id": "hello", "type": "text", "config": {"message": "Hello {{name}}", "mode": "static", "delayMs": 500}},
    {"id": "pick", "type": "input", "config": {"prompt": "Buy or rent?", "variableName": "intent", "inputType": "option", "options": ["buy", "rent"]}},
    {"id": "branch", "type": "conditional", "config": {"condition": "{{intent}} === 'buy'", "delayMs": 250}},
    {"id": "ask-ai", "type": "ai", "config": {"prompt": "Suggest listings for {{name}}", "model": "gpt-4o-mini", "temperature": 0.3, "maxTokens": 300, "useKnowledgeBase": true, "responseVariableName": "suggestion"}},
    {"id": "speak", "type": "tts", "config": {"voice": "female-1", "emotion": "happy", "speed": 1.1, "vol": 0.9, "pitch": 2, "outputVariableName": "audio"}},
    {"id": "listen", "type": "stt", "config": {"prompt": "Tell me your budget", "language": "pt", "timeoutSeconds": 15, "outputVariableName": "budget"}},
    {"id": "save", "type": "action", "config": {"actionType": "create_lead", "params": [{"name": "name", "value": "name", "kind": "variable"}, {"name": "score", "value": 10, "kind": "number"}], "resultVariableName": "leadId"}},
    {"id": "agent", "type": "ai-voice-agent", "config": {"prompt": "Say goodbye", "provider": "minimax", "voice": "male-2", "waitForResponse": true}},
    {"id": "jump", "type": "router", "config": {"targetTemplateId": "scheduling", "targetNodeId": "slot"}},
    {"id": "sorry", "type": "text", "config": {"message": "Sorry"}}
  ],
  "edges": [
    {"id": "e1", "sourceNodeId": "start", "targetNodeId": "hello"},
    {"id": "e2", "sourceNodeId": "hello", "targetNodeId": "pick"},
    {"id": "e3", "sourceNodeId": "pick", "targetNodeId": "branch"},
    {"id": "e4", "sourceNodeId": "branch", "targetNodeId": "ask-ai", "sourceHandle": "true"},
    {"id": "e5", "sourceNodeId": "branch", "targetNodeId": "listen", "sourceHandle": "false"},
    {"id": "e6", "sourceNodeId": "ask-ai", "targetNodeId": "speak"},
    {"id": "e7", "sourceNodeId": "ask-ai", "targetNodeId": "sorry", "sourceHandle": "error"},
    {"id": "e8", "sourceNodeId": "listen", "targetNodeId": "save"},
    {"id": "e9", "sourceNodeId": "save", "targetNodeId": "agent"},
    {"id": "e10", "sourceNodeId": "agent", "targetNodeId": "jump"},
    {"id": "e11", "sourceNodeId": "jump", "targetNodeId": "sorry", "sourceHandle": "error"}
  ]
}`

func TestSerialize_RoundTrip(t *testing.T) {
	for name, src := range map[string]string{"age": ageGraph, "every type": everyTypeGraph} {
		t.Run(name, func(t *testing.T) {
			g, err := graph.Load([]byte(src))
			require.NoError(t, err)

			data, err := graph.Serialize(g)
			require.NoError(t, err)

			again, err := graph.Load(data)
			require.NoError(t, err)
			assert.Equal(t, g, again)
		})
	}
}

func TestSerializeYAML_RoundTrip(t *testing.T) {
	g, err := graph.Load([]byte(everyTypeGraph))
	require.NoError(t, err)

	data, err := graph.SerializeYAML(g)
	require.NoError(t, err)

	again, err := graph.LoadYAML(data)
	require.NoError(t, err)
	assert.Equal(t, g, again)
}

func TestToDocument_UsesCanonicalKeys(t *testing.T) {
	g, err := graph.Load([]byte(`{
	  "nodes": [{"id": "s", "type": "start"}, {"id": "m", "type": "message", "data": {"message": "hi"}}],
	  "edges": [{"id": "e", "source": "s", "target": "m"}]
	}`))
	require.NoError(t, err)

	doc, err := graph.ToDocument(g)
	require.NoError(t, err)

	assert.Equal(t, "text", doc.Nodes[1].Type)
	assert.Equal(t, "hi", doc.Nodes[1].Config["message"])
	assert.Nil(t, doc.Nodes[1].Data)
	assert.Equal(t, "s", doc.Edges[0].SourceNodeID)
	assert.Empty(t, doc.Edges[0].Source)
	assert.Equal(t, "draft", doc.Status)
}
