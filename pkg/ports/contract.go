package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract verifies that a SessionStore implementation adheres
// to the interface contract. Adapters call it from their own tests.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sessionID := "contract-session-" + time.Now().Format("20060102150405.000000000")

	newSession := func(id string) *domain.Session {
		s := domain.NewSession(id, "lead-intake", "ask", now)
		s.Status = domain.StatusWaitingForInput
		return s
	}

	t.Run("Save and Load", func(t *testing.T) {
		s := newSession(sessionID)
		s.Variables["name"] = "Ana"
		s.Variables["age"] = 30
		s.Variables["lead"] = map[string]any{"city": "Lisboa"}
		s.History = []string{"start", "hi", "ask"}
		s.LogError("check", "condition", assert.AnError, now)

		require.NoError(t, store.Save(ctx, s), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, s.ID, loaded.ID)
		assert.Equal(t, s.TemplateID, loaded.TemplateID)
		assert.Equal(t, s.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, domain.StatusWaitingForInput, loaded.Status)
		assert.Equal(t, s.History, loaded.History)
		assert.Equal(t, "Ana", loaded.Variables["name"])
		// JSON backed stores turn ints into float64; only the value matters.
		assert.EqualValues(t, 30, loaded.Variables["age"])
		assert.Equal(t, "Lisboa", loaded.Variables["lead"].(map[string]any)["city"])
		require.Len(t, loaded.Errors, 1)
		assert.Equal(t, "check", loaded.Errors[0].NodeID)
		assert.True(t, s.CreatedAt.Equal(loaded.CreatedAt))
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		s := newSession(sessionID)
		s.Status = domain.StatusCompleted
		require.NoError(t, store.Save(ctx, s))

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, loaded.Status)
	})

	t.Run("Load Returns A Copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Variables["mutated"] = true

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.NotContains(t, again.Variables, "mutated")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, newSession(sessionID)))
		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Save(ctx, newSession(id1)))
		require.NoError(t, store.Save(ctx, newSession(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
