package vars_test

import (
	"testing"

	"github.com/aretw0/chatflow/pkg/vars"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	store := vars.Store{
		"name":   "Ana",
		"age":    30.0,
		"budget": 450000.5,
		"vip":    true,
		"lead":   map[string]any{"city": "Lisboa"},
	}

	tests := []struct {
		in   string
		want string
	}{
		{"Hi {{name}}", "Hi Ana"},
		{"Hi {{ name }}!", "Hi Ana!"},
		{"{{age}} years", "30 years"},
		{"Budget {{budget}}", "Budget 450000.5"},
		{"VIP: {{vip}}", "VIP: true"},
		{"From {{lead.city}}", "From Lisboa"},
		{"Missing [{{nope}}]", "Missing []"},
		{"No placeholders", "No placeholders"},
		{"Broken {{ name", "Broken {{ name"},
		{"{{name}}{{name}}", "AnaAna"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, vars.Resolve(tt.in, store))
		})
	}
}

func TestResolve_Idempotent(t *testing.T) {
	store := vars.Store{"name": "Ana", "n": 3}
	templates := []string{"Hi {{name}}", "{{n}} rooms in {{city}}", "plain"}

	for _, tmpl := range templates {
		once := vars.Resolve(tmpl, store)
		assert.Equal(t, once, vars.Resolve(once, store), "template %q", tmpl)
		assert.Equal(t, once, vars.Resolve(tmpl, store), "resolution must be deterministic")
	}
}

func TestContainsVariables_AgreesWithResolve(t *testing.T) {
	empty := vars.Store{}
	inputs := []string{
		"{{a}}", "x {{ a.b }} y", "{{}}", "{{ 1abc }}", "{a}", "{{a", "plain", "{{a-b}}",
	}
	for _, in := range inputs {
		substituted := vars.Resolve(in, empty) != in
		assert.Equal(t, substituted, vars.ContainsVariables(in), "input %q", in)
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, vars.Placeholders("{{a}} {{b}} {{ a }}"))
	assert.Nil(t, vars.Placeholders("none"))
}

func TestStore_GetDotted(t *testing.T) {
	store := vars.Store{"lead": map[string]any{"contact": map[string]any{"email": "a@b.c"}}}

	v, ok := store.Get("lead.contact.email")
	assert.True(t, ok)
	assert.Equal(t, "a@b.c", v)

	_, ok = store.Get("lead.missing")
	assert.False(t, ok)
}
