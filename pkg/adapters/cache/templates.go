// Package cache decorates template stores with an in-process TTL cache.
package cache

import (
	"context"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	c "github.com/patrickmn/go-cache"
)

// DefaultTTL is how long a published graph is served without asking the store.
const DefaultTTL = time.Minute

// Templates caches successful GetPublishedGraph lookups. Misses and errors are
// never cached, so a template published after a failed lookup is picked up on
// the next call.
type Templates struct {
	next  ports.TemplateStore
	cache *c.Cache
}

// NewTemplates wraps next. A ttl of zero uses DefaultTTL.
func NewTemplates(next ports.TemplateStore, ttl time.Duration) *Templates {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Templates{
		next:  next,
		cache: c.New(ttl, 2*ttl),
	}
}

// GetPublishedGraph serves from cache or falls through to the wrapped store.
func (t *Templates) GetPublishedGraph(ctx context.Context, templateID string) (*domain.FlowGraph, error) {
	if v, found := t.cache.Get(templateID); found {
		return v.(*domain.FlowGraph), nil
	}

	g, err := t.next.GetPublishedGraph(ctx, templateID)
	if err != nil {
		return nil, err
	}
	t.cache.SetDefault(templateID, g)
	return g, nil
}

// Invalidate drops templateID so the next lookup reaches the store.
func (t *Templates) Invalidate(templateID string) {
	t.cache.Delete(templateID)
}

// Flush drops every cached graph.
func (t *Templates) Flush() {
	t.cache.Flush()
}
