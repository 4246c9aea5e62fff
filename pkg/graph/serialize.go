package graph

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/chatflow/pkg/domain"
	"gopkg.in/yaml.v3"
)

// ToDocument converts a graph back into its wire shape using canonical keys.
func ToDocument(g *domain.FlowGraph) (Document, error) {
	doc := Document{
		TemplateID: g.TemplateID,
		Name:       g.Name,
		Status:     string(g.Status),
		Nodes:      make([]NodeDocument, 0, len(g.Nodes)),
		Edges:      make([]EdgeDocument, 0, len(g.Edges)),
	}

	for _, n := range g.Nodes {
		cfg, err := configMap(n.Config)
		if err != nil {
			return Document{}, fmt.Errorf("node %s: %w", n.ID, err)
		}
		doc.Nodes = append(doc.Nodes, NodeDocument{
			ID:       n.ID,
			Type:     string(n.Type),
			Config:   cfg,
			Position: n.Position,
		})
	}

	for _, e := range g.Edges {
		doc.Edges = append(doc.Edges, EdgeDocument{
			ID:           e.ID,
			SourceNodeID: e.SourceNodeID,
			TargetNodeID: e.TargetNodeID,
			SourceHandle: e.SourceHandle,
		})
	}

	return doc, nil
}

// Serialize renders a graph as an indented JSON document accepted by Load.
func Serialize(g *domain.FlowGraph) ([]byte, error) {
	doc, err := ToDocument(g)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}

// SerializeYAML renders a graph as a YAML document accepted by LoadYAML.
func SerializeYAML(g *domain.FlowGraph) ([]byte, error) {
	doc, err := ToDocument(g)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

func configMap(cfg domain.NodeConfig) (map[string]any, error) {
	if cfg == nil {
		return nil, nil
	}
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}
