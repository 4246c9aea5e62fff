package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.SessionStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_RejectsPathTraversal(t *testing.T) {
	store := file.New(t.TempDir())
	ctx := context.Background()

	err := store.Save(ctx, &domain.Session{ID: "../escape"})
	assert.Error(t, err)

	_, err = store.Load(ctx, "..")
	assert.Error(t, err)
}

func TestFileStore_IgnoresTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewSession("real", "tpl", "start", time.Now())))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp-real.json-123"), []byte("{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"real"}, ids)
}

func TestFileStore_ListMissingDir(t *testing.T) {
	store := file.New(filepath.Join(t.TempDir(), "nope"))
	ids, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
