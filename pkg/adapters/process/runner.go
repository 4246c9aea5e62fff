// Package process runs action nodes as local commands.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// waitDelay bounds how long output pipes are drained after the process is killed.
const waitDelay = 500 * time.Millisecond

// EnvPrefix prefixes the environment variable carrying each action parameter.
const EnvPrefix = "CHATFLOW_PARAM_"

var envKey = regexp.MustCompile(`[^A-Z0-9_]`)

// Runner implements ports.ActionBackend by executing local processes.
// It follows a Strict Registry pattern for security (Allow-Listing): only
// registered action types run, and node parameters never become command flags.
type Runner struct {
	registry map[string]RegisteredProcess
	baseDir  string
}

// RegisteredProcess defines an allowed command execution.
type RegisteredProcess struct {
	Command string
	Args    []string
	Env     map[string]string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(commands map[string]ProcessConfig) RunnerOption {
	return func(r *Runner) {
		for name, c := range commands {
			r.registry[name] = RegisteredProcess{Command: c.Command, Args: c.Args, Env: c.Environment}
		}
	}
}

// WithBaseDir sets the working directory for executed processes.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// NewRunner creates a new Process Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]RegisteredProcess),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted script/command to the allow-list.
func (r *Runner) Register(actionType string, command string, args ...string) {
	r.registry[actionType] = RegisteredProcess{
		Command: command,
		Args:    args,
	}
}

// Types lists the registered action types.
func (r *Runner) Types() []string {
	types := make([]string, 0, len(r.registry))
	for t := range r.registry {
		types = append(types, t)
	}
	return types
}

// Invoke runs the command registered for actionType.
// Parameters are passed as CHATFLOW_PARAM_<NAME> environment variables and as
// a JSON object on stdin. Stdout is decoded as JSON when possible, otherwise
// returned as a trimmed string.
func (r *Runner) Invoke(ctx context.Context, actionType string, params map[string]any) (any, error) {
	proc, ok := r.registry[actionType]
	if !ok {
		return nil, fmt.Errorf("process action not registered: %s", actionType)
	}

	stdin, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.WaitDelay = waitDelay
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Env = append(cmd.Environ(), environment(proc.Env, params)...)

	// Capture Output
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("execution failed: %w. Stderr: %s", err, strings.TrimSpace(stderr.String()))
	}

	trimmed := strings.TrimSpace(stdout.String())

	// Try to parse as JSON (Auto-Detection)
	if (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
		(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]")) {
		var result any
		if err := json.Unmarshal([]byte(trimmed), &result); err == nil {
			return result, nil
		}
	}
	return trimmed, nil
}

func environment(static map[string]string, params map[string]any) []string {
	env := make([]string, 0, len(static)+len(params))
	for k, v := range static {
		env = append(env, k+"="+v)
	}
	for k, v := range params {
		// Values serialization strategy:
		// - Primitives (string, number, bool): fmt.Sprintf (Simple)
		// - Complex (Map, Slice): json.Marshal (Structured)
		var val string
		switch v.(type) {
		case string, int, int64, float64, bool:
			val = fmt.Sprintf("%v", v)
		case nil:
			val = ""
		default:
			if b, err := json.Marshal(v); err == nil {
				val = string(b)
			} else {
				val = fmt.Sprintf("%v", v)
			}
		}
		env = append(env, EnvPrefix+envKey.ReplaceAllString(strings.ToUpper(k), "_")+"="+val)
	}
	return env
}
