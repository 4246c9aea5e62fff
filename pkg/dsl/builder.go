package dsl

import (
	"fmt"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/graph"
)

// Builder manages the graph construction.
type Builder struct {
	templateID string
	name       string
	status     domain.TemplateStatus
	order      []string
	nodes      map[string]*NodeBuilder
	edges      []domain.Edge
}

// New creates a new graph builder for templateID. Graphs start as drafts.
func New(templateID string) *Builder {
	return &Builder{
		templateID: templateID,
		status:     domain.TemplateDraft,
		nodes:      make(map[string]*NodeBuilder),
	}
}

// Name sets the display name of the template.
func (b *Builder) Name(name string) *Builder {
	b.name = name
	return b
}

// Published marks the template as published so engines can run it.
func (b *Builder) Published() *Builder {
	b.status = domain.TemplatePublished
	return b
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Build assembles the graph and runs the same resolution and validation as a
// loaded document, so defaults are applied and every violation is reported.
func (b *Builder) Build() (*domain.FlowGraph, error) {
	nodes := make([]domain.Node, 0, len(b.order))
	for _, id := range b.order {
		nb := b.nodes[id]
		if nb.node.Type == "" {
			return nil, fmt.Errorf("node %q has no type", id)
		}
		nodes = append(nodes, nb.node)
	}

	draft := domain.NewFlowGraph(b.templateID, b.name, b.status, nodes, b.edges)
	doc, err := graph.ToDocument(draft)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return graph.FromDocument(doc)
}

func (b *Builder) connect(from, handle, to string) {
	if handle == domain.HandleDefault {
		handle = ""
	}
	b.edges = append(b.edges, domain.Edge{
		SourceNodeID: from,
		TargetNodeID: to,
		SourceHandle: handle,
	})
}
