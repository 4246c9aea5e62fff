package graph

import "github.com/aretw0/chatflow/pkg/domain"

// Document is the wire shape of a template as the builder stores it.
// It is what Load consumes and Serialize produces.
type Document struct {
	TemplateID string         `json:"templateId,omitempty" yaml:"templateId,omitempty"`
	Name       string         `json:"name,omitempty" yaml:"name,omitempty"`
	Status     string         `json:"status,omitempty" yaml:"status,omitempty"`
	Nodes      []NodeDocument `json:"nodes" yaml:"nodes"`
	Edges      []EdgeDocument `json:"edges" yaml:"edges"`
}

// NodeDocument is a node before its config is resolved into a typed variant.
type NodeDocument struct {
	ID       string           `json:"id" yaml:"id"`
	Type     string           `json:"type" yaml:"type"`
	Config   map[string]any   `json:"config,omitempty" yaml:"config,omitempty"`
	Position *domain.Position `json:"position,omitempty" yaml:"position,omitempty"`

	// Data is the config key used by older builder exports.
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// EdgeDocument is an edge as authored. Source and Target are the legacy
// spellings of SourceNodeID and TargetNodeID.
type EdgeDocument struct {
	ID           string `json:"id" yaml:"id"`
	SourceNodeID string `json:"sourceNodeId,omitempty" yaml:"sourceNodeId,omitempty"`
	TargetNodeID string `json:"targetNodeId,omitempty" yaml:"targetNodeId,omitempty"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`

	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Target string `json:"target,omitempty" yaml:"target,omitempty"`
}

func (n NodeDocument) rawConfig() map[string]any {
	if n.Config != nil {
		return n.Config
	}
	return n.Data
}

func (e EdgeDocument) normalized() domain.Edge {
	edge := domain.Edge{
		ID:           e.ID,
		SourceNodeID: e.SourceNodeID,
		TargetNodeID: e.TargetNodeID,
		SourceHandle: e.SourceHandle,
	}
	if edge.SourceNodeID == "" {
		edge.SourceNodeID = e.Source
	}
	if edge.TargetNodeID == "" {
		edge.TargetNodeID = e.Target
	}
	if edge.ID == "" {
		edge.ID = "e-" + edge.SourceNodeID + "-" + edge.TargetNodeID
		if edge.SourceHandle != "" {
			edge.ID += "-" + edge.SourceHandle
		}
	}
	return edge
}
