package chatflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/internal/runtime"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/graph"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/provider"
	"github.com/aretw0/chatflow/pkg/session"
	"github.com/google/uuid"
)

// ConditionEvaluator decides the branch of conditional nodes.
type ConditionEvaluator = runtime.ConditionEvaluator

// Engine is the high-level entry point of the library. It loads published
// templates, runs execution passes and persists every session snapshot.
type Engine struct {
	runtime   *runtime.Engine
	templates ports.TemplateStore
	sessions  *session.Manager

	store       ports.SessionStore
	providers   *provider.Registry
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	runtimeOpts []runtime.EngineOption
	logger      *slog.Logger
	maxInput    int
	newID       func() string
	now         func() time.Time
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithSessionStore sets where sessions are persisted. Defaults to memory.
func WithSessionStore(store ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithProviders sets the AI and voice adapters used by ai, tts, stt and
// ai-voice-agent nodes.
func WithProviders(reg *provider.Registry) Option {
	return func(e *Engine) {
		e.providers = reg
	}
}

// WithActionBackend sets the collaborator invoked by action nodes.
func WithActionBackend(backend ports.ActionBackend) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithActionBackend(backend))
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithLifecycleHooks(hooks))
	}
}

// WithConditionEvaluator replaces the JavaScript evaluator of conditional nodes.
func WithConditionEvaluator(ev ConditionEvaluator) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithConditionEvaluator(ev))
	}
}

// WithRetryPolicy sets the timeout and retry budget of external calls.
func WithRetryPolicy(p provider.Policy) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithRetryPolicy(p))
	}
}

// WithLocker serializes passes of a session across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLockTTL overrides how long a session lock is held before it expires.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithStepLimit bounds the node executions of a single pass.
func WithStepLimit(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithStepLimit(n))
	}
}

// WithMaxInputSize overrides DefaultMaxInputSize.
func WithMaxInputSize(n int) Option {
	return func(e *Engine) {
		e.maxInput = n
	}
}

// WithIDGenerator replaces the uuid session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithClock overrides the time source used for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
			e.runtimeOpts = append(e.runtimeOpts, runtime.WithClock(now))
		}
	}
}

// New initializes an Engine reading published graphs from templates.
func New(templates ports.TemplateStore, opts ...Option) (*Engine, error) {
	if templates == nil {
		return nil, errors.New("chatflow: a template store is required")
	}

	eng := &Engine{
		templates: templates,
		maxInput:  DefaultMaxInputSize,
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	eng.runtime = runtime.NewEngine(templates, eng.providers,
		append([]runtime.EngineOption{runtime.WithLogger(eng.logger)}, eng.runtimeOpts...)...)

	managerOpts := []session.Option{session.WithLogger(eng.logger)}
	if eng.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(eng.locker))
	}
	if eng.lockTTL > 0 {
		managerOpts = append(managerOpts, session.WithLockTTL(eng.lockTTL))
	}
	eng.sessions = session.NewManager(eng.store, managerOpts...)

	return eng, nil
}

// Result is what a Start or Resume call produced.
type Result struct {
	SessionID string                `json:"session_id"`
	Items     []domain.DeliveryItem `json:"items"`
	Status    domain.SessionStatus  `json:"status"`

	// Failure is set when the session ended in error or the inbound value
	// was rejected. The pass itself still succeeded and was persisted.
	Failure error `json:"-"`

	// Diff holds what the pass changed, with the deliveries attached.
	Diff *domain.SessionDiff `json:"-"`
}

// Start creates a session of the published templateID seeded with vars and
// runs it until it waits for input, completes or fails.
func (e *Engine) Start(ctx context.Context, templateID string, vars map[string]any) (*Result, error) {
	g, err := e.templates.GetPublishedGraph(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", templateID, err)
	}
	start, ok := g.Start()
	if !ok {
		return nil, fmt.Errorf("start %s: %w", templateID, &domain.GraphValidationError{
			Violations: []domain.Violation{{Reason: "missing start node"}},
		})
	}

	s := domain.NewSession(e.newID(), g.TemplateID, start.ID, e.now())
	for k, v := range vars {
		s.Variables[k] = domain.CloneValue(v)
	}

	out, err := e.runtime.Run(ctx, g, s)
	if err != nil {
		return nil, err
	}
	if err := e.sessions.Create(ctx, s); err != nil {
		return nil, fmt.Errorf("persist session %s: %w", s.ID, err)
	}

	e.logger.Info("session started", "session_id", s.ID, "template_id", templateID, "status", s.Status)
	return newResult(nil, s, out), nil
}

// Resume delivers in to the session waiting on sessionID and continues its
// pass. The session runs against the currently published graph of its
// template. Inbound text is sanitized first. When the pass cannot start the
// stored snapshot is left untouched.
func (e *Engine) Resume(ctx context.Context, sessionID string, in domain.Inbound) (*Result, error) {
	in, err := sanitizeInbound(in, e.maxInput)
	if err != nil {
		return nil, fmt.Errorf("resume %s: %w", sessionID, err)
	}

	var (
		before *domain.Session
		out    *runtime.Outcome
	)
	s, err := e.sessions.Update(ctx, sessionID, func(ctx context.Context, s *domain.Session) error {
		before = s.Clone()
		g, err := e.templates.GetPublishedGraph(ctx, s.TemplateID)
		if err != nil {
			return fmt.Errorf("resume %s: %w", sessionID, err)
		}
		out, err = e.runtime.Resume(ctx, g, s, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("session resumed", "session_id", s.ID, "template_id", s.TemplateID, "status", s.Status)
	return newResult(before, s, out), nil
}

// Session returns the stored snapshot of id.
func (e *Engine) Session(ctx context.Context, id string) (*domain.Session, error) {
	return e.sessions.Load(ctx, id)
}

// DeleteSession forgets a session.
func (e *Engine) DeleteSession(ctx context.Context, id string) error {
	return e.sessions.Delete(ctx, id)
}

// Sessions lists the stored session ids.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.sessions.List(ctx)
}

// Graph returns the published graph of templateID.
func (e *Engine) Graph(ctx context.Context, templateID string) (*domain.FlowGraph, error) {
	return e.templates.GetPublishedGraph(ctx, templateID)
}

// Validate checks a JSON graph document. It returns nil or a
// *domain.GraphValidationError listing every violation.
func (e *Engine) Validate(doc []byte) error {
	_, err := graph.Load(doc)
	return err
}

func newResult(before, after *domain.Session, out *runtime.Outcome) *Result {
	res := &Result{
		SessionID: after.ID,
		Items:     out.Items,
		Status:    after.Status,
		Failure:   out.Failure,
		Diff:      domain.Diff(before, after),
	}
	if res.Items == nil {
		res.Items = []domain.DeliveryItem{}
	}
	if len(out.Items) > 0 {
		if res.Diff == nil {
			res.Diff = &domain.SessionDiff{SessionID: after.ID}
		}
		res.Diff.Items = out.Items
	}
	return res
}
