package envkv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/ember/pkg/logger"
	"github.com/iamNilotpal/ember/pkg/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(t *testing.T) *Env {
	t.Helper()
	root := t.TempDir()
	opts := options.NewDefaultOptions()

	env, err := Open(
		context.Background(),
		filepath.Join(root, "env"),
		filepath.Join(root, "data"),
		filepath.Join(root, "tmp"),
		opts,
		logger.NewDevelopment("test"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	return env
}

// TestOpenCreatesDirectories verifies Open creates all three directory roots.
func TestOpenCreatesDirectories(t *testing.T) {
	env := testEnv(t)
	assert.DirExists(t, env.envDir)
	assert.DirExists(t, env.dataDir)
	assert.DirExists(t, env.tmpDir)
}

// TestOpenDBIsCached verifies repeated OpenDB calls for the same name
// return the same handle rather than reopening the file.
func TestOpenDBIsCached(t *testing.T) {
	env := testEnv(t)

	db1, err := env.OpenDB("logs.toc")
	require.NoError(t, err)
	db2, err := env.OpenDB("logs.toc")
	require.NoError(t, err)
	assert.Same(t, db1, db2)
}

// TestRemoveDBDeletesFile verifies RemoveDB closes and deletes the backing
// file, matching the segment-delete-on-close contract.
func TestRemoveDBDeletesFile(t *testing.T) {
	env := testEnv(t)

	_, err := env.OpenDB("logs.3")
	require.NoError(t, err)

	path := filepath.Join(env.dataDir, "logs.3")
	assert.FileExists(t, path)

	require.NoError(t, env.RemoveDB("logs.3"))
	assert.NoFileExists(t, path)
}

// TestCloseIsIdempotent verifies calling Close twice does not error.
func TestCloseIsIdempotent(t *testing.T) {
	env := testEnv(t)
	require.NoError(t, env.Close())
	require.NoError(t, env.Close())
}
