package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/chatflow/pkg/domain"
)

// result is what a node executor hands back to the loop.
type result struct {
	items  []domain.DeliveryItem
	writes map[string]any
	handle string

	// suspend parks the session on this node until the next Resume.
	suspend bool

	// jump switches the pass to another template (router nodes).
	jump *jump

	// aiText is the text produced by ai and ai-voice-agent nodes.
	aiText string

	// carryDelay is added to the next delivered item.
	carryDelay uint

	// rejection re-prompts instead of advancing (input and stt resume paths).
	rejection error

	// resumed marks results of the resume path, whose node is already in History.
	resumed bool
}

type jump struct {
	graph  *domain.FlowGraph
	nodeID string
}

func (r *result) write(name string, value any) {
	if name == "" {
		return
	}
	if r.writes == nil {
		r.writes = make(map[string]any)
	}
	r.writes[name] = value
}

// execute runs the entry path of node.
func (e *Engine) execute(ctx context.Context, p *pass, node *domain.Node) (result, error) {
	switch cfg := node.Config.(type) {
	case *domain.StartConfig:
		return result{handle: domain.HandleDefault, suspend: cfg.WaitForResponse}, nil
	case *domain.TextConfig:
		return e.execText(p, node, cfg), nil
	case *domain.InputConfig:
		return e.execInput(p, node, cfg), nil
	case *domain.ConditionalConfig:
		return e.execConditional(p, node, cfg), nil
	case *domain.AIConfig:
		return e.execAI(ctx, p, node, cfg)
	case *domain.RouterConfig:
		return e.execRouter(ctx, p, node, cfg), nil
	case *domain.ActionConfig:
		return e.execAction(ctx, p, node, cfg)
	case *domain.TTSConfig:
		return e.execTTS(ctx, p, node, cfg)
	case *domain.STTConfig:
		return e.execSTT(p, node, cfg), nil
	case *domain.AIVoiceConfig:
		return e.execAIVoice(ctx, p, node, cfg)
	default:
		return result{}, fmt.Errorf("no executor for node type %q", node.Type)
	}
}

// resumeNode runs the resume path of the node the session waited on.
// Nodes without input semantics simply continue through their default edge.
func (e *Engine) resumeNode(ctx context.Context, p *pass, node *domain.Node, in domain.Inbound) (result, error) {
	var (
		res result
		err error
	)
	switch cfg := node.Config.(type) {
	case *domain.InputConfig:
		res = e.resumeInput(p, node, cfg, in)
	case *domain.STTConfig:
		res, err = e.resumeSTT(ctx, p, node, cfg, in)
	default:
		res = result{handle: domain.HandleDefault}
	}
	res.resumed = true
	return res, err
}
