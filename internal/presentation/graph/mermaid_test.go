package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/chatflow/internal/presentation/graph"
	"github.com/aretw0/chatflow/pkg/domain"
	loader "github.com/aretw0/chatflow/pkg/graph"
)

const doc = `{
  "templateId": "lead", "status": "published",
  "nodes": [
    {"id": "start", "type": "start"},
    {"id": "ask-age", "type": "input", "config": {"prompt": "Age?", "variableName": "age"}},
    {"id": "check", "type": "conditional", "config": {"condition": "{{age}} > 18 && \"{{city}}\" == \"Recife\""}},
    {"id": "reply", "type": "ai", "config": {"prompt": "Greet {{name}}"}},
    {"id": "crm", "type": "action", "config": {"actionType": "create_lead"}},
    {"id": "billing", "type": "router", "config": {"targetTemplateId": "billing", "targetNodeId": "invoice"}}
  ],
  "edges": [
    {"sourceNodeId": "start", "targetNodeId": "ask-age"},
    {"sourceNodeId": "ask-age", "targetNodeId": "check"},
    {"sourceNodeId": "check", "targetNodeId": "reply", "sourceHandle": "true"},
    {"sourceNodeId": "check", "targetNodeId": "billing", "sourceHandle": "false"},
    {"sourceNodeId": "reply", "targetNodeId": "crm"},
    {"sourceNodeId": "reply", "targetNodeId": "billing", "sourceHandle": "error"}
  ]
}`

func TestGenerateMermaid(t *testing.T) {
	g, err := loader.Load([]byte(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	got := graph.GenerateMermaid(g, nil)
	contains := []string{
		"graph TD\n",
		`start(("start"))`,
		`ask_age[/"ask-age"/]`,
		`check{"check <br/> {{age}} > 18 && '{{city}}' == 'Recife'"}`,
		`reply{{"reply"}}`,
		`crm[("crm")]`,
		`billing[["billing"]]`,
		`billing -.-> template_billing>"billing#invoice"]`,
		"start --> ask_age",
		`check -- "true" --> reply`,
		`check -- "false" --> billing`,
		`reply -. "error" .-> billing`,
	}
	for _, want := range contains {
		if !strings.Contains(got, want) {
			t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
		}
	}
	if strings.Contains(got, "classDef") {
		t.Error("overlay styles rendered without overlay")
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	g, err := loader.Load([]byte(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	s := &domain.Session{
		History:       []string{"start", "ask-age", "start", "elsewhere"},
		CurrentNodeID: "ask-age",
	}

	got := graph.GenerateMermaid(g, graph.OverlayFromSession(s))

	if strings.Count(got, "class start visited;") != 1 {
		t.Errorf("visited nodes must be deduplicated:\n%s", got)
	}
	if strings.Contains(got, "elsewhere") {
		t.Errorf("nodes of other templates must be skipped:\n%s", got)
	}
	if !strings.Contains(got, "class ask_age current;") {
		t.Errorf("current node not highlighted:\n%s", got)
	}
}
