// Package condition evaluates the boolean expressions of conditional nodes.
//
// Expressions use JavaScript syntax (===, !==, >, <, >=, <=, &&, ||, !, and
// string or array .includes(...)). Placeholders written as {{name}} are bound to
// the variable's typed value before evaluation, so numeric and boolean comparisons
// behave as the author expects. Inside a quoted literal a placeholder is
// substituted as text instead.
package condition

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/vars"
	"github.com/dop251/goja"
)

// DefaultTimeout bounds a single evaluation.
const DefaultTimeout = 100 * time.Millisecond

var errEmptyExpression = errors.New("empty expression")

// Evaluator runs condition expressions in an isolated goja runtime per call.
type Evaluator struct {
	timeout time.Duration
}

// Option configures the Evaluator.
type Option func(*Evaluator)

// WithTimeout overrides the per-evaluation timeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// New creates an Evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the truth value of expr against store.
// Any failure is reported as a *domain.ConditionEvaluationError together with false.
func (e *Evaluator) Evaluate(expr string, store vars.Store) (bool, error) {
	fail := func(err error) (bool, error) {
		return false, &domain.ConditionEvaluationError{Expression: expr, Err: err}
	}

	if strings.TrimSpace(expr) == "" {
		return fail(errEmptyExpression)
	}

	src, bindings, err := bind(expr, store)
	if err != nil {
		return fail(err)
	}

	vm := goja.New()
	for name, value := range bindings {
		if err := vm.Set(name, value); err != nil {
			return fail(fmt.Errorf("bind %s: %w", name, err))
		}
	}

	timer := time.AfterFunc(e.timeout, func() {
		vm.Interrupt("condition evaluation timed out")
	})
	defer timer.Stop()

	result, err := vm.RunString("(" + src + "\n)")
	if err != nil {
		return fail(err)
	}

	b, ok := result.Export().(bool)
	if !ok {
		return fail(fmt.Errorf("expression evaluated to %v, not a boolean", result.Export()))
	}
	return b, nil
}

// bind rewrites placeholders into identifiers (or escaped text inside string
// and regex literals) and returns the values to bind. Placeholders inside
// comments are dropped.
func bind(expr string, store vars.Store) (string, map[string]any, error) {
	matches := vars.FindAll(expr)
	bindings := make(map[string]any, len(matches))
	idents := make(map[string]string, len(matches))

	var sb strings.Builder
	var scan literalScanner
	pos := 0

	for _, m := range matches {
		segment := expr[pos:m.Start]
		scan.feed(segment)
		sb.WriteString(segment)
		pos = m.End

		if scan.inComment() {
			continue
		}

		value, ok := store.Get(m.Name)
		if !ok {
			return "", nil, fmt.Errorf("undefined variable %q", m.Name)
		}

		switch scan.mode {
		case modeString:
			sb.WriteString(escapeLiteral(vars.Stringify(value), scan.quote))
			continue
		case modeRegex:
			sb.WriteString(escapeRegex(vars.Stringify(value)))
			continue
		}

		ident, seen := idents[m.Name]
		if !seen {
			ident = fmt.Sprintf("__v%d", len(idents))
			idents[m.Name] = ident
			bindings[ident] = jsValue(value)
		}
		sb.WriteString(ident)
		scan.operand()
	}
	sb.WriteString(expr[pos:])

	return sb.String(), bindings, nil
}

type scanMode int

const (
	modeCode scanMode = iota
	modeString
	modeRegex
	modeLineComment
	modeBlockComment
)

// regexPrecursors are the code runes after which a slash opens a regex literal
// instead of dividing.
const regexPrecursors = "(,=:[!&|?{};+-*%<>~^"

// literalScanner tracks the lexical context at the end of the text fed so far.
type literalScanner struct {
	mode    scanMode
	quote   rune
	escaped bool
	inClass bool
	// prev is the last significant rune seen in code, 0 at the start.
	prev rune
}

func (s *literalScanner) feed(segment string) {
	rs := []rune(segment)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		var next rune
		if i+1 < len(rs) {
			next = rs[i+1]
		}

		switch s.mode {
		case modeLineComment:
			if r == '\n' {
				s.mode = modeCode
			}
		case modeBlockComment:
			if r == '*' && next == '/' {
				s.mode = modeCode
				i++
			}
		case modeString:
			switch {
			case s.escaped:
				s.escaped = false
			case r == '\\':
				s.escaped = true
			case r == s.quote:
				s.mode = modeCode
				s.prev = r
			}
		case modeRegex:
			switch {
			case s.escaped:
				s.escaped = false
			case r == '\\':
				s.escaped = true
			case r == '[':
				s.inClass = true
			case r == ']':
				s.inClass = false
			case r == '/' && !s.inClass:
				s.mode = modeCode
				s.prev = r
			}
		default:
			switch {
			case r == '\'' || r == '"' || r == '`':
				s.mode = modeString
				s.quote = r
			case r == '/' && next == '/':
				s.mode = modeLineComment
				i++
			case r == '/' && next == '*':
				s.mode = modeBlockComment
				i++
			case r == '/' && (s.prev == 0 || strings.ContainsRune(regexPrecursors, s.prev)):
				s.mode = modeRegex
				s.inClass = false
			case unicode.IsSpace(r):
			default:
				s.prev = r
			}
		}
	}
}

// operand records that a bound value was written in code position.
func (s *literalScanner) operand() {
	s.prev = '_'
}

func (s *literalScanner) inComment() bool {
	return s.mode == modeLineComment || s.mode == modeBlockComment
}

func escapeLiteral(s string, quote rune) string {
	pairs := []string{
		`\`, `\\`,
		string(quote), `\` + string(quote),
		"\n", `\n`,
		"\r", `\r`,
	}
	if quote == '`' {
		pairs = append(pairs, "${", `\${`)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

func escapeRegex(s string) string {
	return strings.NewReplacer(
		"/", `\/`,
		"\n", `\n`,
		"\r", `\r`,
	).Replace(regexp.QuoteMeta(s))
}

// jsValue normalizes values decoded from JSON snapshots for goja.
func jsValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	default:
		return v
	}
}
