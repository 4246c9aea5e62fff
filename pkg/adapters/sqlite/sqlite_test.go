package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/chatflow/pkg/adapters/sqlite"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/graph"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ports.TemplateRepository = (*sqlite.Templates)(nil)
	_ ports.SessionStore       = (*sqlite.Sessions)(nil)
)

func openDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "chatflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSessions_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, openDB(t).Sessions())
}

func TestTemplates(t *testing.T) {
	repo := openDB(t).Templates()
	ctx := context.Background()

	g, err := graph.Load([]byte(`{
	  "templateId": "welcome", "name": "Welcome", "status": "draft",
	  "nodes": [
	    {"id": "start", "type": "start"},
	    {"id": "hi", "type": "text", "config": {"message": "Hello"}}
	  ],
	  "edges": [{"sourceNodeId": "start", "targetNodeId": "hi"}]
	}`))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, g))

	_, err = repo.GetPublishedGraph(ctx, "welcome")
	assert.ErrorIs(t, err, domain.ErrTemplateNotPublished)

	g.Status = domain.TemplatePublished
	require.NoError(t, repo.Save(ctx, g))

	loaded, err := repo.GetPublishedGraph(ctx, "welcome")
	require.NoError(t, err)
	assert.Equal(t, "Welcome", loaded.Name)
	hi, ok := loaded.Node("hi")
	require.True(t, ok)
	assert.Equal(t, "Hello", hi.Config.(*domain.TextConfig).Message)

	ids, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"welcome"}, ids)

	require.NoError(t, repo.Delete(ctx, "welcome"))
	_, err = repo.GetPublishedGraph(ctx, "welcome")
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)
}

func TestOpen_RequiresDSN(t *testing.T) {
	_, err := sqlite.Open(" ")
	assert.Error(t, err)
}
