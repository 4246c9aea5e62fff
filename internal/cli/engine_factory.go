package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/config"
	"github.com/aretw0/chatflow/internal/metrics"
	"github.com/aretw0/chatflow/pkg/actions"
	"github.com/aretw0/chatflow/pkg/adapters/cache"
	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/adapters/process"
	"github.com/aretw0/chatflow/pkg/adapters/redis"
	"github.com/aretw0/chatflow/pkg/adapters/sqlite"
	"github.com/aretw0/chatflow/pkg/adapters/webhook"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/persistence/middleware"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/provider"
	"github.com/aretw0/chatflow/pkg/provider/minimax"
	"github.com/aretw0/chatflow/pkg/provider/openai"
)

// Stack is an engine together with the resources it was built from.
type Stack struct {
	Engine    *chatflow.Engine
	Templates ports.TemplateRepository
	Metrics   *metrics.Metrics

	closers []func() error
}

// Close releases databases and connections opened by Build.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// Build wires an engine from cfg: template and session stores, providers,
// action backends and observability.
func Build(cfg *config.Config, logger *slog.Logger, debug bool) (*Stack, error) {
	s := &Stack{Metrics: metrics.New()}
	dbs := map[string]*sqlite.DB{}
	openDB := func(dsn string) (*sqlite.DB, error) {
		if db, ok := dbs[dsn]; ok {
			return db, nil
		}
		db, err := sqlite.Open(dsn)
		if err != nil {
			return nil, err
		}
		dbs[dsn] = db
		s.closers = append(s.closers, db.Close)
		return db, nil
	}

	fail := func(err error) (*Stack, error) {
		_ = s.Close()
		return nil, err
	}

	// 1. Templates
	var repo ports.TemplateRepository
	if cfg.Templates.SQLite != "" {
		db, err := openDB(cfg.Templates.SQLite)
		if err != nil {
			return fail(fmt.Errorf("templates: %w", err))
		}
		repo = db.Templates()
	} else {
		repo = file.NewTemplates(cfg.Templates.Dir)
	}
	s.Templates = repo

	var templates ports.TemplateStore = repo
	if cfg.Templates.CacheTTL > 0 {
		templates = cache.NewTemplates(repo, cfg.Templates.CacheTTL)
	}

	opts := []chatflow.Option{
		chatflow.WithLogger(logger),
		chatflow.WithRetryPolicy(provider.Policy{
			Timeout:    cfg.Providers.Timeout,
			MaxRetries: cfg.Providers.MaxRetries,
			Backoff:    cfg.Providers.Backoff,
		}),
	}

	// 2. Sessions
	store, locker, closeStore, err := openSessions(cfg, openDB)
	if err != nil {
		return fail(fmt.Errorf("sessions: %w", err))
	}
	if closeStore != nil {
		s.closers = append(s.closers, closeStore)
	}
	if cfg.Sessions.EncryptionKey != "" {
		encryption, err := newEncryption(cfg.Sessions)
		if err != nil {
			return fail(err)
		}
		store = middleware.Chain(store, encryption)
	}
	opts = append(opts, chatflow.WithSessionStore(store))
	if locker != nil {
		opts = append(opts, chatflow.WithLocker(locker), chatflow.WithLockTTL(cfg.Sessions.Redis.LockTTL))
	}

	// 3. Providers and actions
	providers, err := newProviders(cfg.Providers)
	if err != nil {
		return fail(err)
	}
	opts = append(opts, chatflow.WithProviders(providers))

	backend, err := newActions(cfg.Actions, logger)
	if err != nil {
		return fail(err)
	}
	opts = append(opts, chatflow.WithActionBackend(backend))

	// 4. Limits and observability
	if cfg.StepLimit > 0 {
		opts = append(opts, chatflow.WithStepLimit(cfg.StepLimit))
	}
	if cfg.MaxInputSize > 0 {
		opts = append(opts, chatflow.WithMaxInputSize(cfg.MaxInputSize))
	}
	hooks := []domain.LifecycleHooks{s.Metrics.Hooks()}
	if debug {
		hooks = append(hooks, createDebugHooks(logger))
	}
	opts = append(opts, chatflow.WithLifecycleHooks(domain.CombineHooks(hooks...)))

	eng, err := chatflow.New(templates, opts...)
	if err != nil {
		return fail(fmt.Errorf("error initializing engine: %w", err))
	}
	s.Engine = eng
	return s, nil
}

func openSessions(cfg *config.Config, openDB func(string) (*sqlite.DB, error)) (ports.SessionStore, ports.DistributedLocker, func() error, error) {
	switch cfg.Sessions.Backend {
	case config.BackendFile:
		return file.New(cfg.Sessions.Dir), nil, nil, nil
	case config.BackendSQLite:
		db, err := openDB(cfg.Sessions.SQLite)
		if err != nil {
			return nil, nil, nil, err
		}
		return db.Sessions(), nil, nil, nil
	case config.BackendRedis:
		rc := cfg.Sessions.Redis
		prefix := rc.Prefix
		if prefix == "" {
			prefix = redis.DefaultPrefix
		}
		store := redis.New(rc.Addr, rc.Password, rc.DB, redis.WithTTL(rc.TTL), redis.WithPrefix(prefix))
		if err := store.Ping(context.Background()); err != nil {
			_ = store.Close()
			return nil, nil, nil, fmt.Errorf("redis %s: %w", rc.Addr, err)
		}
		return store, redis.NewLocker(store.Client(), prefix), store.Close, nil
	default:
		return memory.NewStore(), nil, nil, nil
	}
}

func newEncryption(cfg config.Sessions) (middleware.Middleware, error) {
	active, err := middleware.ParseKey(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("sessions.encryption_key: %w", err)
	}
	var fallbacks [][]byte
	for i, k := range cfg.FallbackKeys {
		key, err := middleware.ParseKey(k)
		if err != nil {
			return nil, fmt.Errorf("sessions.fallback_keys[%d]: %w", i, err)
		}
		fallbacks = append(fallbacks, key)
	}
	return middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: fallbacks,
	})
}

// newProviders registers an adapter for every provider with an API key.
func newProviders(cfg config.Providers) (*provider.Registry, error) {
	reg := provider.NewRegistry()

	if cfg.OpenAI.APIKey != "" {
		var opts []openai.Option
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		if cfg.OpenAI.Model != "" {
			opts = append(opts, openai.WithModel(cfg.OpenAI.Model))
		}
		if err := reg.Register(domain.ProviderOpenAI, openai.New(cfg.OpenAI.APIKey, opts...)); err != nil {
			return nil, err
		}
	}

	if cfg.Minimax.APIKey != "" {
		opts := []minimax.Option{minimax.WithGroupID(cfg.Minimax.GroupID)}
		if cfg.Minimax.BaseURL != "" {
			opts = append(opts, minimax.WithBaseURL(cfg.Minimax.BaseURL))
		}
		if cfg.Minimax.Model != "" {
			opts = append(opts, minimax.WithModel(cfg.Minimax.Model))
		}
		if err := reg.Register(domain.ProviderMinimax, minimax.New(cfg.Minimax.APIKey, opts...)); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// newActions returns the built-in actions plus the configured local commands,
// falling back to the webhook when one is configured.
func newActions(cfg config.Actions, logger *slog.Logger) (*actions.Registry, error) {
	reg := actions.NewRegistry()
	reg.Register("log", func(ctx context.Context, params map[string]any) (any, error) {
		logger.Info("Action", "params", params)
		return params, nil
	})

	if cfg.Commands != "" {
		commands, err := process.LoadCommands(cfg.Commands)
		if err != nil {
			return nil, fmt.Errorf("actions: %w", err)
		}
		runner := process.NewRunner(process.WithRegistry(commands), process.WithBaseDir(filepath.Dir(cfg.Commands)))
		for _, actionType := range runner.Types() {
			reg.Register(actionType, func(ctx context.Context, params map[string]any) (any, error) {
				return runner.Invoke(ctx, actionType, params)
			})
		}
		logger.Debug("Loaded action commands", "path", cfg.Commands, "count", len(commands))
	}

	if cfg.WebhookURL != "" {
		opts := []webhook.Option{webhook.WithTimeout(cfg.Timeout)}
		for k, v := range cfg.Headers {
			opts = append(opts, webhook.WithHeader(k, v))
		}
		hook, err := webhook.New(cfg.WebhookURL, opts...)
		if err != nil {
			return nil, fmt.Errorf("actions: %w", err)
		}
		reg.SetFallback(hook)
	}
	return reg, nil
}
