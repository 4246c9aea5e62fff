package webhook_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/chatflow/pkg/adapters/webhook"
	"github.com/aretw0/chatflow/pkg/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackend_Invoke(t *testing.T) {
	var got webhook.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "L-9", "created": true}`))
	}))
	defer srv.Close()

	b, err := webhook.New(srv.URL, webhook.WithHeader("Authorization", "Bearer secret"))
	require.NoError(t, err)

	out, err := b.Invoke(context.Background(), "create_lead", map[string]any{"email": "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "L-9", "created": true}, out)
	assert.Equal(t, "create_lead", got.Action)
	assert.Equal(t, "ana@example.com", got.Params["email"])
}

func TestBackend_StatusErrors(t *testing.T) {
	tests := []struct {
		code      int
		transient bool
	}{
		{http.StatusBadGateway, true},
		{http.StatusTooManyRequests, true},
		{http.StatusUnprocessableEntity, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.code)
			}))
			defer srv.Close()

			b, err := webhook.New(srv.URL)
			require.NoError(t, err)

			_, err = b.Invoke(context.Background(), "create_lead", nil)
			var se *provider.StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.Code)
			assert.Equal(t, tt.transient, provider.IsTransient(err))
		})
	}
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := webhook.New("")
	assert.Error(t, err)
}
