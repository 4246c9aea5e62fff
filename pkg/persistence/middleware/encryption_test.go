package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"
	"time"

	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/persistence/middleware"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func encrypted(t *testing.T, next ports.SessionStore, cfg middleware.EncryptionConfig) ports.SessionStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	store := encrypted(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunSessionStoreContract(t, store)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ctx := context.Background()

	original := domain.NewSession("test-session", "lead-intake", "ask", time.Now())
	original.Variables["secret"] = "my-secret-sauce"
	original.History = []string{"start", "ask"}
	require.NoError(t, secure.Save(ctx, original))

	stored, err := underlying.Load(ctx, "test-session")
	require.NoError(t, err)
	assert.NotContains(t, stored.Variables, "secret")
	assert.Contains(t, stored.Variables, "__encrypted__")
	assert.Empty(t, stored.History)
	assert.Equal(t, "lead-intake", stored.TemplateID, "routing fields stay readable")

	loaded, err := secure.Load(ctx, "test-session")
	require.NoError(t, err)
	assert.Equal(t, "my-secret-sauce", loaded.Variables["secret"])
	assert.Equal(t, []string{"start", "ask"}, loaded.History)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	oldStore := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})
	s := domain.NewSession("rotation-session", "tpl", "start", time.Now())
	s.Variables["data"] = "encrypted-with-old-key"
	require.NoError(t, oldStore.Save(ctx, s))

	newStore := encrypted(t, underlying, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	loaded, err := newStore.Load(ctx, "rotation-session")
	require.NoError(t, err)
	assert.Equal(t, "encrypted-with-old-key", loaded.Variables["data"])

	loaded.Variables["data"] = "encrypted-with-new-key"
	require.NoError(t, newStore.Save(ctx, loaded))

	_, err = oldStore.Load(ctx, "rotation-session")
	assert.Error(t, err, "old key alone must not decrypt new-key data")
}

func TestEncryptionMiddleware_RejectsPlainSessions(t *testing.T) {
	underlying := memory.NewStore()
	require.NoError(t, underlying.Save(context.Background(), domain.NewSession("plain", "tpl", "start", time.Now())))

	secure := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	_, err := secure.Load(context.Background(), "plain")
	assert.Error(t, err)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)
}

func TestParseKey(t *testing.T) {
	key := generateKey(t)
	got, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, got)

	_, err = middleware.ParseKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, middleware.ErrInvalidKey)

	_, err = middleware.ParseKey("%%%")
	assert.Error(t, err)
}
