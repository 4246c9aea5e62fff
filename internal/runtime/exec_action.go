package runtime

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/provider"
	"github.com/aretw0/chatflow/pkg/vars"
)

// ErrNoActionBackend is reported by action nodes when the engine has no backend.
var ErrNoActionBackend = errors.New("no action backend configured")

const actionProvider = "backend"

func (e *Engine) execAction(ctx context.Context, p *pass, node *domain.Node, cfg *domain.ActionConfig) (result, error) {
	if e.actions == nil {
		return result{}, unavailable(actionProvider, provider.CapabilityAction, ErrNoActionBackend)
	}

	params := make(map[string]any, len(cfg.Params))
	for _, param := range cfg.Params {
		params[param.Name] = e.resolveParam(p, node, param)
	}

	// Backends may commit before failing, so a transient error is not retried.
	out, err := callProvider(ctx, e, p, node, e.policy.WithoutRetries(), actionProvider, provider.CapabilityAction,
		func(ctx context.Context) (any, error) {
			return e.actions.Invoke(ctx, cfg.ActionType, params)
		})
	if err != nil {
		return result{}, err
	}

	res := result{handle: domain.HandleDefault}
	res.write(cfg.ResultVariableName, out)
	return res, nil
}

// resolveParam turns an authored parameter into the value passed to the backend.
// variable params are looked up by name, number params are parsed after
// templating, and text params are templated.
func (e *Engine) resolveParam(p *pass, node *domain.Node, param domain.ActionParam) any {
	store := vars.Store(p.session.Variables)

	switch param.Kind {
	case domain.ParamVariable:
		name, ok := param.Value.(string)
		if !ok {
			return param.Value
		}
		name = strings.TrimSpace(name)
		if names := vars.Placeholders(name); len(names) == 1 {
			name = names[0]
		}
		v, _ := store.Get(name)
		return v

	case domain.ParamNumber:
		s, ok := param.Value.(string)
		if !ok {
			return param.Value
		}
		resolved := strings.TrimSpace(vars.Resolve(s, store))
		f, err := strconv.ParseFloat(resolved, 64)
		if err != nil {
			e.logger.Warn("action param is not a number",
				"session_id", p.session.ID, "node_id", node.ID, "param", param.Name, "value", resolved)
			return resolved
		}
		return f

	default:
		if s, ok := param.Value.(string); ok {
			return vars.Resolve(s, store)
		}
		return param.Value
	}
}
