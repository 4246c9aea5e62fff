package process

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
}

func TestRunner_Invoke(t *testing.T) {
	requireShell(t)
	ctx := context.Background()

	runner := NewRunner()
	runner.Register("echo_env", "sh", "-c", "echo $CHATFLOW_PARAM_LEAD_NAME")
	runner.Register("echo_stdin", "sh", "-c", "cat")
	runner.Register("fail", "sh", "-c", "echo boom >&2; exit 3")

	t.Run("Passes Parameters via Env Vars", func(t *testing.T) {
		out, err := runner.Invoke(ctx, "echo_env", map[string]any{"lead-name": "Bia"})
		require.NoError(t, err)
		assert.Equal(t, "Bia", out)
	})

	t.Run("Decodes JSON Output", func(t *testing.T) {
		out, err := runner.Invoke(ctx, "echo_stdin", map[string]any{"budget": 500000.0, "city": "Recife"})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"budget": 500000.0, "city": "Recife"}, out)
	})

	t.Run("Fails For Unregistered Action", func(t *testing.T) {
		_, err := runner.Invoke(ctx, "hacker_script", nil)
		assert.ErrorContains(t, err, "not registered")
	})

	t.Run("Reports Stderr On Failure", func(t *testing.T) {
		_, err := runner.Invoke(ctx, "fail", nil)
		assert.ErrorContains(t, err, "boom")
	})

	t.Run("Honours Context Deadline", func(t *testing.T) {
		runner.Register("slow", "sh", "-c", "sleep 5")
		ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := runner.Invoke(ctx, "slow", nil)
		assert.Error(t, err)
		assert.Less(t, time.Since(start), 4*time.Second)
	})
}

func TestLoadCommands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "actions.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
actions:
  - name: book_visit
    command: ./book.sh
    args: ["--dry-run"]
    env:
      CRM_URL: http://crm.local
  - name: ""
    command: ignored
`), 0o644))

	commands, err := LoadCommands(path)
	require.NoError(t, err)
	require.Len(t, commands, 1)
	assert.Equal(t, []string{"--dry-run"}, commands["book_visit"].Args)

	r := NewRunner(WithRegistry(commands), WithBaseDir(dir))
	assert.Equal(t, []string{"book_visit"}, r.Types())

	missing, err := LoadCommands(filepath.Join(dir, "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, missing)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"actions": [{"name": "x"}]}`), 0o644))
	_, err = LoadCommands(bad)
	assert.ErrorContains(t, err, "no command")
}
