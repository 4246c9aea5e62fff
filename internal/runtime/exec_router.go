package runtime

import (
	"context"
	"errors"

	"github.com/aretw0/chatflow/pkg/domain"
)

// execRouter resolves the target template. On success the loop swaps to the
// target graph and keeps the session variables; any failure follows the
// router's error edge.
func (e *Engine) execRouter(ctx context.Context, p *pass, node *domain.Node, cfg *domain.RouterConfig) result {
	target, nodeID, err := e.resolveRoute(ctx, p, node, cfg)
	if err != nil {
		p.session.LogError(node.ID, "router", err, e.now())
		e.logger.Warn("router target unavailable",
			"session_id", p.session.ID, "node_id", node.ID, "err", err)
		return result{handle: domain.HandleError}
	}
	return result{handle: domain.HandleSuccess, jump: &jump{graph: target, nodeID: nodeID}}
}

func (e *Engine) resolveRoute(ctx context.Context, p *pass, node *domain.Node, cfg *domain.RouterConfig) (*domain.FlowGraph, string, error) {
	unavailable := func(reason string, err error) error {
		return &domain.RouterTargetUnavailableError{
			NodeID:           node.ID,
			TargetTemplateID: cfg.TargetTemplateID,
			Reason:           reason,
			Err:              err,
		}
	}

	if cfg.TargetTemplateID == p.graph.TemplateID {
		return nil, "", unavailable("router targets its own template", nil)
	}
	if e.templates == nil {
		return nil, "", unavailable("no template store configured", nil)
	}

	target, err := e.templates.GetPublishedGraph(ctx, cfg.TargetTemplateID)
	switch {
	case errors.Is(err, domain.ErrTemplateNotFound):
		return nil, "", unavailable("template not found", err)
	case errors.Is(err, domain.ErrTemplateNotPublished):
		return nil, "", unavailable("template not published", err)
	case err != nil:
		return nil, "", unavailable("template lookup failed", err)
	case !target.Published():
		return nil, "", unavailable("template not published", domain.ErrTemplateNotPublished)
	}

	if cfg.TargetNodeID != "" {
		if _, ok := target.Node(cfg.TargetNodeID); !ok {
			return nil, "", unavailable("target node "+cfg.TargetNodeID+" not found", nil)
		}
		return target, cfg.TargetNodeID, nil
	}

	start, ok := target.Start()
	if !ok {
		return nil, "", unavailable("template has no start node", nil)
	}
	return target, start.ID, nil
}
