package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooks(t *testing.T) {
	m := New()
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnNodeEnter(ctx, &domain.NodeEvent{TemplateID: "lead", NodeType: domain.NodeTypeText})
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{TemplateID: "lead", NodeType: domain.NodeTypeText})
	hooks.OnProviderReturn(ctx, &domain.ProviderEvent{Provider: "openai", Capability: "text", Duration: 200 * time.Millisecond})
	hooks.OnProviderReturn(ctx, &domain.ProviderEvent{Provider: "openai", Capability: "text", IsError: true})
	hooks.OnSessionStatus(ctx, &domain.StatusEvent{TemplateID: "lead", Status: domain.StatusCompleted})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.nodeVisits.WithLabelValues("lead", "text")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerCalls.WithLabelValues("openai", "text", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.providerCalls.WithLabelValues("openai", "text", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes.WithLabelValues("lead", "completed")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Hooks().OnSessionStatus(context.Background(), &domain.StatusEvent{TemplateID: "lead", Status: domain.StatusError})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `chatflow_passes_total{status="error",template_id="lead"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
