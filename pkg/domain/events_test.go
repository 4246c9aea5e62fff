package domain

import (
	"context"
	"testing"
)

func TestCombineHooks(t *testing.T) {
	var got []string
	record := func(name string) LifecycleHooks {
		return LifecycleHooks{
			OnNodeEnter: func(context.Context, *NodeEvent) { got = append(got, name+":enter") },
			OnSessionStatus: func(context.Context, *StatusEvent) {
				got = append(got, name+":status")
			},
		}
	}

	hooks := CombineHooks(record("a"), LifecycleHooks{}, record("b"))
	ctx := context.Background()
	hooks.OnNodeEnter(ctx, &NodeEvent{})
	hooks.OnNodeLeave(ctx, &NodeEvent{})
	hooks.OnProviderCall(ctx, &ProviderEvent{})
	hooks.OnProviderReturn(ctx, &ProviderEvent{})
	hooks.OnSessionStatus(ctx, &StatusEvent{})

	want := []string{"a:enter", "b:enter", "a:status", "b:status"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
