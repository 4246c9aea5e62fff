package ports

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
)

// TemplateStore is the read side consumed by the engine.
type TemplateStore interface {
	// GetPublishedGraph returns the published graph of templateID.
	// Returns domain.ErrTemplateNotFound for unknown ids and
	// domain.ErrTemplateNotPublished for drafts.
	GetPublishedGraph(ctx context.Context, templateID string) (*domain.FlowGraph, error)
}

// TemplateRepository manages templates on behalf of authoring tools.
type TemplateRepository interface {
	TemplateStore

	// Save stores the graph under its TemplateID, whatever its status.
	Save(ctx context.Context, graph *domain.FlowGraph) error

	// List returns the ids of every stored template.
	List(ctx context.Context) ([]string, error)

	// Delete removes a template. Deleting a missing template is not an error.
	Delete(ctx context.Context, templateID string) error
}
