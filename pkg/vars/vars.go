// Package vars holds per-session variable bindings and resolves {{name}}
// placeholders in template strings.
package vars

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// placeholderPattern is the single source of truth for what counts as a
// placeholder. Resolve, ContainsVariables and Placeholders all use it.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_\-]*(?:\.[A-Za-z0-9_\-]+)*)\s*\}\}`)

// Store maps variable names to dynamically typed values
// (string, number, bool or structured objects).
type Store map[string]any

// Get looks a name up, walking nested maps for dotted names ("lead.name").
func (s Store) Get(name string) (any, bool) {
	if v, ok := s[name]; ok {
		return v, true
	}
	parts := strings.Split(name, ".")
	if len(parts) < 2 {
		return nil, false
	}
	var cur any = map[string]any(s)
	for _, p := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Resolve substitutes every placeholder in template with the stringified value
// of the named variable. Missing variables resolve to the empty string.
func Resolve(template string, vars Store) string {
	if !strings.Contains(template, "{{") {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		v, ok := vars.Get(name)
		if !ok {
			return ""
		}
		return Stringify(v)
	})
}

// ContainsVariables reports whether Resolve would substitute anything in s.
func ContainsVariables(s string) bool {
	return placeholderPattern.MatchString(s)
}

// Placeholders returns the variable names referenced by s, in order of
// appearance, without duplicates.
func Placeholders(s string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Match is the location of one placeholder inside a string.
type Match struct {
	Start, End int
	Name       string
}

// FindAll returns every placeholder occurrence in s.
func FindAll(s string) []Match {
	idx := placeholderPattern.FindAllStringSubmatchIndex(s, -1)
	out := make([]Match, 0, len(idx))
	for _, m := range idx {
		out = append(out, Match{Start: m[0], End: m[1], Name: s[m[2]:m[3]]})
	}
	return out
}

// Stringify renders a variable value the way it appears in delivered text.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case uint:
		return strconv.FormatUint(uint64(t), 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return formatFloat(float64(t))
	case float64:
		return formatFloat(t)
	case json.Number:
		return t.String()
	case fmt.Stringer:
		return t.String()
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
