package engine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/ember/pkg/codec"
	"github.com/iamNilotpal/ember/pkg/logger"
	"github.com/iamNilotpal/ember/pkg/options"
	"github.com/iamNilotpal/ember/pkg/seginfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	root := t.TempDir()
	opts := options.NewDefaultOptions()
	opts.EnvDir = filepath.Join(root, "env")
	opts.DataDir = filepath.Join(root, "data")
	opts.TmpDir = filepath.Join(root, "tmp")

	eng, err := New(context.Background(), &Config{Options: &opts, Logger: logger.NewDevelopment("test")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestOpenIndexIsCachedAcrossCalls(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()

	idx1, err := eng.OpenIndex(ctx, "logs")
	require.NoError(t, err)
	idx2, err := eng.OpenIndex(ctx, "logs")
	require.NoError(t, err)
	assert.Same(t, idx1, idx2)
}

func TestOpenSegmentAfterIndexAllocation(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()

	idx, err := eng.OpenIndex(ctx, "logs")
	require.NoError(t, err)

	tx, err := idx.Begin(0)
	require.NoError(t, err)
	sid, err := idx.NewSegment(tx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	seg, err := eng.OpenSegment(ctx, "logs", sid)
	require.NoError(t, err)

	segTx, err := eng.Begin(0)
	require.NoError(t, err)
	body, _ := codec.Dump(codec.String("hi"))
	key, _ := codec.Dump(codec.Uint(1))
	require.NoError(t, seg.NewEvent(segTx, key, body))
	require.NoError(t, segTx.Commit())
}

func TestDeleteSegmentRemovesBackingFile(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()

	idx, err := eng.OpenIndex(ctx, "logs")
	require.NoError(t, err)

	tx, err := idx.Begin(0)
	require.NoError(t, err)
	sid, err := idx.NewSegment(tx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	seg, err := eng.OpenSegment(ctx, "logs", sid)
	require.NoError(t, err)

	segTx, err := eng.Begin(0)
	require.NoError(t, err)
	body, _ := codec.Dump(codec.String("hi"))
	key, _ := codec.Dump(codec.Uint(1))
	require.NoError(t, seg.NewEvent(segTx, key, body))
	require.NoError(t, segTx.Commit())

	path := filepath.Join(eng.env.DataDir(), seginfo.Name("logs", sid))
	assert.FileExists(t, path)
	require.NoError(t, eng.DeleteSegment("logs", sid))
	assert.NoFileExists(t, path)
}

func TestCloseIsIdempotentSafe(t *testing.T) {
	eng := testEngine(t)
	require.NoError(t, eng.Close())
	err := eng.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEngineClosed)
}
