// Package graph turns builder documents into validated domain.FlowGraph values
// and back.
//
// Loading normalizes legacy type names and keys, resolves each node's config
// into its typed variant, applies defaults and reports every structural
// violation at once through *domain.GraphValidationError.
package graph

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Load parses a JSON graph document and validates it.
func Load(data []byte) (*domain.FlowGraph, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode graph document: %w", err)
	}
	return FromDocument(doc)
}

// LoadYAML parses a YAML graph document of the same shape as Load.
func LoadYAML(data []byte) (*domain.FlowGraph, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode graph document: %w", err)
	}
	return FromDocument(doc)
}

// FromDocument resolves and validates an already decoded document.
func FromDocument(doc Document) (*domain.FlowGraph, error) {
	v := &validator{}

	status := domain.TemplateStatus(doc.Status)
	switch status {
	case "":
		status = domain.TemplateDraft
	case domain.TemplateDraft, domain.TemplatePublished:
	default:
		v.add(domain.Violation{Field: "status", Reason: fmt.Sprintf("unknown status %q", doc.Status)})
	}

	nodes := make([]domain.Node, 0, len(doc.Nodes))
	for _, nd := range doc.Nodes {
		node, ok := v.resolveNode(nd)
		if ok {
			nodes = append(nodes, node)
		}
	}

	edges := make([]domain.Edge, 0, len(doc.Edges))
	for _, ed := range doc.Edges {
		edges = append(edges, ed.normalized())
	}

	g := domain.NewFlowGraph(doc.TemplateID, doc.Name, status, nodes, edges)
	v.checkGraph(g)

	if err := v.err(); err != nil {
		return nil, err
	}

	deriveAISources(g)
	return g, nil
}

func (v *validator) resolveNode(nd NodeDocument) (domain.Node, bool) {
	if nd.ID == "" {
		v.add(domain.Violation{Field: "id", Reason: "node without id"})
		return domain.Node{}, false
	}

	reject := func() {
		if v.rejected == nil {
			v.rejected = make(map[string]bool)
		}
		v.rejected[nd.ID] = true
	}

	t, ok := domain.NormalizeNodeType(nd.Type)
	if !ok {
		reject()
		v.add(domain.Violation{NodeID: nd.ID, Field: "type", Reason: fmt.Sprintf("unknown node type %q", nd.Type)})
		return domain.Node{}, false
	}

	cfg, err := decodeConfig(t, nd.rawConfig())
	if err != nil {
		reject()
		v.add(domain.Violation{NodeID: nd.ID, Field: "config", Reason: err.Error()})
		return domain.Node{}, false
	}

	return domain.Node{ID: nd.ID, Type: t, Config: cfg, Position: nd.Position}, true
}

// decodeConfig fills the defaulted variant for t from the raw config map.
// Inputs are weakly typed: builders often store numbers as strings.
func decodeConfig(t domain.NodeType, raw map[string]any) (domain.NodeConfig, error) {
	cfg := domain.NewConfig(t)
	if len(raw) == 0 {
		return cfg, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}

	if action, ok := cfg.(*domain.ActionConfig); ok {
		for i := range action.Params {
			action.Params[i].Value = normalizeNumber(action.Params[i].Value)
		}
	}
	return cfg, nil
}

// normalizeNumber gives literal numbers the float64 representation JSON uses,
// whatever format the document came from.
func normalizeNumber(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

// deriveAISources marks tts nodes fed directly by an ai or ai-voice-agent node.
func deriveAISources(g *domain.FlowGraph) {
	for i := range g.Nodes {
		cfg, ok := g.Nodes[i].Config.(*domain.TTSConfig)
		if !ok {
			continue
		}
		cfg.SourceIsAINode = false
		for _, e := range g.Incoming(g.Nodes[i].ID) {
			src, found := g.Node(e.SourceNodeID)
			if found && (src.Type == domain.NodeTypeAI || src.Type == domain.NodeTypeAIVoiceAgent) {
				cfg.SourceIsAINode = true
				break
			}
		}
	}
}
