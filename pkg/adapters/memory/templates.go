package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/graph"
)

// Templates implements ports.TemplateRepository using an in-memory map.
// Graphs are shared, not copied: the engine treats them as read-only.
type Templates struct {
	graphs map[string]*domain.FlowGraph
	mu     sync.RWMutex
}

// NewTemplates creates a repository holding the given graphs.
func NewTemplates(graphs ...*domain.FlowGraph) *Templates {
	t := &Templates{graphs: make(map[string]*domain.FlowGraph)}
	for _, g := range graphs {
		t.graphs[g.TemplateID] = g
	}
	return t
}

// NewTemplatesFromJSON loads every document and fails on the first invalid one.
// This improves DX for tests and examples.
func NewTemplatesFromJSON(docs ...string) (*Templates, error) {
	t := NewTemplates()
	for i, doc := range docs {
		g, err := graph.Load([]byte(doc))
		if err != nil {
			return nil, fmt.Errorf("template #%d: %w", i, err)
		}
		t.graphs[g.TemplateID] = g
	}
	return t, nil
}

// GetPublishedGraph returns the graph if it exists and is published.
func (t *Templates) GetPublishedGraph(ctx context.Context, templateID string) (*domain.FlowGraph, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	g, ok := t.graphs[templateID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, templateID)
	}
	if !g.Published() {
		return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotPublished, templateID)
	}
	return g, nil
}

// Save stores the graph under its TemplateID.
func (t *Templates) Save(ctx context.Context, g *domain.FlowGraph) error {
	if g.TemplateID == "" {
		return fmt.Errorf("template id is required")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.graphs[g.TemplateID] = g
	return nil
}

// List returns the stored template ids in lexical order.
func (t *Templates) List(ctx context.Context) ([]string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.graphs))
	for id := range t.graphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a template.
func (t *Templates) Delete(ctx context.Context, templateID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.graphs, templateID)
	return nil
}
