package runtime

import (
	"context"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/provider"
)

func (e *Engine) emitNodeEnter(ctx context.Context, p *pass, node *domain.Node) {
	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(ctx, e.nodeEvent(domain.EventNodeEnter, p, node, ""))
	}
}

func (e *Engine) emitNodeLeave(ctx context.Context, p *pass, node *domain.Node, handle string) {
	if e.hooks.OnNodeLeave != nil {
		e.hooks.OnNodeLeave(ctx, e.nodeEvent(domain.EventNodeLeave, p, node, handle))
	}
}

func (e *Engine) nodeEvent(t domain.EventType, p *pass, node *domain.Node, handle string) *domain.NodeEvent {
	return &domain.NodeEvent{
		EventBase:  domain.EventBase{Timestamp: e.now(), Type: t, SessionID: p.session.ID},
		TemplateID: p.graph.TemplateID,
		NodeID:     node.ID,
		NodeType:   node.Type,
		Handle:     handle,
	}
}

func (e *Engine) emitSessionStatus(ctx context.Context, p *pass) {
	if e.hooks.OnSessionStatus != nil {
		e.hooks.OnSessionStatus(ctx, &domain.StatusEvent{
			EventBase:  domain.EventBase{Timestamp: e.now(), Type: domain.EventSessionStatus, SessionID: p.session.ID},
			TemplateID: p.session.TemplateID,
			Status:     p.session.Status,
		})
	}
}

// callProvider runs op under policy and reports it to the provider hooks.
func callProvider[T any](ctx context.Context, e *Engine, p *pass, node *domain.Node, policy provider.Policy, name, capability string, op func(context.Context) (T, error)) (T, error) {
	event := func(t domain.EventType) *domain.ProviderEvent {
		return &domain.ProviderEvent{
			EventBase:  domain.EventBase{Timestamp: e.now(), Type: t, SessionID: p.session.ID},
			NodeID:     node.ID,
			Provider:   name,
			Capability: capability,
		}
	}

	if e.hooks.OnProviderCall != nil {
		e.hooks.OnProviderCall(ctx, event(domain.EventProviderCall))
	}

	start := time.Now()
	out, err := provider.Call(ctx, policy, name, capability, op)

	if e.hooks.OnProviderReturn != nil {
		ev := event(domain.EventProviderReturn)
		ev.Duration = time.Since(start)
		ev.IsError = err != nil
		e.hooks.OnProviderReturn(ctx, ev)
	}
	return out, err
}

// unavailable reports a provider that could not even be looked up.
func unavailable(name, capability string, err error) error {
	return &domain.ProviderError{Provider: name, Capability: capability, Err: err}
}
