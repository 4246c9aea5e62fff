package runtime

import (
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/vars"
)

func (e *Engine) execText(p *pass, node *domain.Node, cfg *domain.TextConfig) result {
	text := cfg.Message
	if cfg.Mode != domain.ModeStatic {
		text = vars.Resolve(cfg.Message, p.session.Variables)
	}
	return result{
		items:   []domain.DeliveryItem{domain.TextItem(node.ID, text, cfg.DelayMs)},
		handle:  domain.HandleDefault,
		suspend: cfg.WaitForResponse,
	}
}

// execConditional never fails: a broken condition takes the false branch and
// lands in the session error log.
func (e *Engine) execConditional(p *pass, node *domain.Node, cfg *domain.ConditionalConfig) result {
	ok, err := e.evaluator.Evaluate(cfg.Condition, p.session.Variables)
	if err != nil {
		p.session.LogError(node.ID, "condition", err, e.now())
		e.logger.Warn("condition evaluation failed",
			"session_id", p.session.ID, "node_id", node.ID, "err", err)
		ok = false
	}

	handle := domain.HandleFalse
	if ok {
		handle = domain.HandleTrue
	}
	return result{handle: handle, carryDelay: cfg.DelayMs}
}
