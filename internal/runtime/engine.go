package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/condition"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/provider"
	"github.com/aretw0/chatflow/pkg/vars"
)

// DefaultStepLimit bounds the node executions of a single pass.
const DefaultStepLimit = 1000

// ConditionEvaluator decides the branch of conditional nodes.
type ConditionEvaluator interface {
	Evaluate(expr string, store vars.Store) (bool, error)
}

// Engine walks flow graphs. It holds no per-session state: every call receives
// the graph and the session it operates on, and mutates that session in place.
type Engine struct {
	templates ports.TemplateStore
	providers *provider.Registry
	actions   ports.ActionBackend
	evaluator ConditionEvaluator
	policy    provider.Policy
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	stepLimit int
	now       func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithConditionEvaluator replaces the default goja evaluator.
func WithConditionEvaluator(ev ConditionEvaluator) EngineOption {
	return func(e *Engine) {
		if ev != nil {
			e.evaluator = ev
		}
	}
}

// WithActionBackend sets the collaborator invoked by action nodes.
func WithActionBackend(backend ports.ActionBackend) EngineOption {
	return func(e *Engine) {
		e.actions = backend
	}
}

// WithRetryPolicy sets the timeout and retry budget of provider and action calls.
func WithRetryPolicy(p provider.Policy) EngineOption {
	return func(e *Engine) {
		e.policy = p
	}
}

// WithStepLimit overrides DefaultStepLimit.
func WithStepLimit(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.stepLimit = n
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine creates an engine. templates is consulted by router nodes only and
// providers by ai, tts, stt and ai-voice-agent nodes.
func NewEngine(templates ports.TemplateStore, providers *provider.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		templates: templates,
		providers: providers,
		evaluator: condition.New(),
		policy:    provider.DefaultPolicy(),
		logger:    logging.NewNop(),
		stepLimit: DefaultStepLimit,
		now:       time.Now,
	}
	if e.providers == nil {
		e.providers = provider.NewRegistry()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Outcome is what one execution pass produced.
type Outcome struct {
	// Items are the deliveries of this pass, in order.
	Items []domain.DeliveryItem

	// Failure explains a pass that did not advance normally: a
	// *domain.NodeExecutionError when the session ended in error, or a
	// *domain.InputValidationError when the inbound value was rejected.
	Failure error
}

// pass is the mutable context of one Run or Resume call.
type pass struct {
	graph   *domain.FlowGraph
	session *domain.Session
	items   []domain.DeliveryItem
	steps   int

	// pendingDelay is carried by conditionals onto the next delivered item.
	pendingDelay uint
	failure      error
}

func (p *pass) deliver(items ...domain.DeliveryItem) {
	for _, item := range items {
		item.DelayMs += p.pendingDelay
		p.pendingDelay = 0
		p.items = append(p.items, item)
	}
}

// Run executes the session from its current node until it suspends, completes
// or fails. The session must be running.
func (e *Engine) Run(ctx context.Context, g *domain.FlowGraph, s *domain.Session) (*Outcome, error) {
	if s.Status != domain.StatusRunning {
		return nil, fmt.Errorf("session %s is %s, not %s", s.ID, s.Status, domain.StatusRunning)
	}
	p := &pass{graph: g, session: s}
	return e.loop(ctx, p)
}

// Resume routes inbound to the node the session is waiting on, then continues
// the loop from that node's outgoing edge. A session that is not waiting is
// left untouched and a *domain.SessionNotResumableError is returned.
func (e *Engine) Resume(ctx context.Context, g *domain.FlowGraph, s *domain.Session, in domain.Inbound) (*Outcome, error) {
	if s.Status != domain.StatusWaitingForInput {
		return nil, &domain.SessionNotResumableError{SessionID: s.ID, Status: s.Status}
	}

	p := &pass{graph: g, session: s}
	s.Status = domain.StatusRunning
	s.LastInput = in.Text
	if in.Text == "" && in.Audio != nil {
		s.LastInput = in.Audio.URL
	}

	node, ok := g.Node(s.CurrentNodeID)
	if !ok {
		e.fail(p, &domain.Node{ID: s.CurrentNodeID}, errors.New("node no longer exists in the published template"))
		return e.finish(ctx, p), nil
	}

	res, err := e.resumeNode(ctx, p, node, in)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !e.handleFailure(ctx, p, node, err, &res) {
			return e.finish(ctx, p), nil
		}
	}

	var rejected *domain.InputValidationError
	if errors.As(res.rejection, &rejected) {
		s.LogError(node.ID, "input", rejected, e.now())
		e.logger.Info("input rejected", "session_id", s.ID, "node_id", node.ID, "err", rejected)
		p.failure = rejected
		p.deliver(res.items...)
		s.Status = domain.StatusWaitingForInput
		return e.finish(ctx, p), nil
	}

	e.apply(p, res)
	if !e.advance(p, node, res.handle) {
		return e.finish(ctx, p), nil
	}
	return e.loop(ctx, p)
}

func (e *Engine) loop(ctx context.Context, p *pass) (*Outcome, error) {
	s := p.session

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if p.steps >= e.stepLimit {
			node := &domain.Node{ID: s.CurrentNodeID}
			if n, ok := p.graph.Node(s.CurrentNodeID); ok {
				node = n
			}
			e.fail(p, node, fmt.Errorf("%w: %d nodes in one pass", domain.ErrStepLimitExceeded, e.stepLimit))
			return e.finish(ctx, p), nil
		}

		node, ok := p.graph.Node(s.CurrentNodeID)
		if !ok {
			e.fail(p, &domain.Node{ID: s.CurrentNodeID}, errors.New("node not found in graph"))
			return e.finish(ctx, p), nil
		}
		p.steps++

		e.emitNodeEnter(ctx, p, node)
		res, err := e.execute(ctx, p, node)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !e.handleFailure(ctx, p, node, err, &res) {
				e.emitNodeLeave(ctx, p, node, "")
				return e.finish(ctx, p), nil
			}
		}

		e.apply(p, res)
		e.emitNodeLeave(ctx, p, node, res.handle)

		if res.jump != nil {
			e.logger.Debug("router jump", "session_id", s.ID, "node_id", node.ID,
				"template_id", res.jump.graph.TemplateID, "target_node_id", res.jump.nodeID)
			p.graph = res.jump.graph
			s.TemplateID = res.jump.graph.TemplateID
			s.CurrentNodeID = res.jump.nodeID
			continue
		}

		if res.suspend {
			s.Status = domain.StatusWaitingForInput
			return e.finish(ctx, p), nil
		}

		if !e.advance(p, node, res.handle) {
			return e.finish(ctx, p), nil
		}
	}
}

// apply records the effects of an executed node on the session.
func (e *Engine) apply(p *pass, res result) {
	s := p.session
	for name, value := range res.writes {
		s.Variables[name] = value
	}
	if res.aiText != "" {
		s.LastAIText = res.aiText
	}
	p.deliver(res.items...)
	p.pendingDelay += res.carryDelay
	if !res.resumed {
		s.History = append(s.History, s.CurrentNodeID)
	}
	s.UpdatedAt = e.now()
}

// advance moves the cursor through handle. It reports false when the session
// completed because no edge leaves through that handle.
func (e *Engine) advance(p *pass, node *domain.Node, handle string) bool {
	next, ok := p.graph.Next(node.ID, handle)
	if !ok {
		if node.Type == domain.NodeTypeConditional || handle == domain.HandleError {
			e.logger.Warn("dead end: no edge for chosen handle",
				"session_id", p.session.ID, "template_id", p.graph.TemplateID,
				"node_id", node.ID, "handle", handle)
		}
		p.session.Status = domain.StatusCompleted
		return false
	}
	p.session.CurrentNodeID = next
	return true
}

// handleFailure decides what a failed node means for the session. Provider failures
// follow the node's error edge when it has one; anything else ends the session.
// It reports whether the loop may continue.
func (e *Engine) handleFailure(ctx context.Context, p *pass, node *domain.Node, err error, res *result) bool {
	s := p.session

	var pe *domain.ProviderError
	if errors.As(err, &pe) && p.graph.HasHandle(node.ID, domain.HandleError) {
		s.LogError(node.ID, "provider", err, e.now())
		e.logger.Warn("provider failed, following error edge",
			"session_id", s.ID, "node_id", node.ID, "node_type", node.Type, "err", err)
		*res = result{handle: domain.HandleError, resumed: res.resumed}
		return true
	}

	e.fail(p, node, err)
	return false
}

func (e *Engine) fail(p *pass, node *domain.Node, err error) {
	s := p.session
	s.LogError(node.ID, "fatal", err, e.now())
	s.Status = domain.StatusError
	s.UpdatedAt = e.now()
	p.failure = &domain.NodeExecutionError{NodeID: node.ID, NodeType: node.Type, Err: err}
	e.logger.Error("node execution failed",
		"session_id", s.ID, "template_id", p.graph.TemplateID,
		"node_id", node.ID, "node_type", node.Type, "err", err)
}

func (e *Engine) finish(ctx context.Context, p *pass) *Outcome {
	p.session.UpdatedAt = e.now()
	e.emitSessionStatus(ctx, p)
	return &Outcome{Items: p.items, Failure: p.failure}
}
