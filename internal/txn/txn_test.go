package txn

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/ember/internal/envkv"
	appErrors "github.com/iamNilotpal/ember/pkg/errors"
	"github.com/iamNilotpal/ember/pkg/logger"
	"github.com/iamNilotpal/ember/pkg/options"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(t *testing.T) *envkv.Env {
	t.Helper()
	root := t.TempDir()
	env, err := envkv.Open(
		context.Background(),
		filepath.Join(root, "env"),
		filepath.Join(root, "data"),
		filepath.Join(root, "tmp"),
		options.NewDefaultOptions(),
		logger.NewDevelopment("test"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	return env
}

func TestPutGetRoundTripCommits(t *testing.T) {
	env := testEnv(t)

	tx, err := Begin(env, nil, 0)
	require.NoError(t, err)
	require.NoError(t, tx.Put("logs.toc", "_metadata", []byte("k"), []byte("v")))
	require.NoError(t, tx.Commit())

	tx2, err := Begin(env, nil, 0)
	require.NoError(t, err)
	v, err := tx2.Get("logs.toc", "_metadata", []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
	require.NoError(t, tx2.Commit())
}

func TestAbortedWritesAreNotVisibleAfterReopen(t *testing.T) {
	env := testEnv(t)

	tx, err := Begin(env, nil, 0)
	require.NoError(t, err)
	require.NoError(t, tx.Put("logs.toc", "_metadata", []byte("k"), []byte("v")))
	require.NoError(t, tx.Abort())

	tx2, err := Begin(env, nil, 0)
	require.NoError(t, err)
	_, err = tx2.Get("logs.toc", "_metadata", []byte("k"))
	require.Error(t, err)
	docErr, ok := appErrors.AsDocError(err)
	require.True(t, ok)
	assert.True(t, appErrors.IsKeyNotFound(err))
	assert.Equal(t, "k", docErr.Key())
	require.NoError(t, tx2.Commit())
}

func TestHandleInvalidAfterCommit(t *testing.T) {
	env := testEnv(t)

	tx, err := Begin(env, nil, 0)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	_, err = tx.Get("logs.toc", "_metadata", []byte("k"))
	require.Error(t, err)
	txnErr, ok := appErrors.AsTxnError(err)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrorCodeInvalidTxn, txnErr.Code())
	assert.Equal(t, tx.ID(), txnErr.TxnID())
}

func TestChildCommitInvalidatesOnlyItsSubtree(t *testing.T) {
	env := testEnv(t)

	root, err := Begin(env, nil, 0)
	require.NoError(t, err)

	child, err := Begin(env, root, 0)
	require.NoError(t, err)
	grandchild, err := Begin(env, child, 0)
	require.NoError(t, err)

	require.NoError(t, child.Put("logs.toc", "_metadata", []byte("k"), []byte("v")))
	require.NoError(t, child.Commit())

	_, err = grandchild.Get("logs.toc", "_metadata", []byte("k"))
	require.Error(t, err)
	assert.True(t, appErrors.IsTxnError(err))

	v, err := root.Get("logs.toc", "_metadata", []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
	require.NoError(t, root.Commit())
}

func TestPutIfAbsentRejectsDuplicate(t *testing.T) {
	env := testEnv(t)

	tx, err := Begin(env, nil, 0)
	require.NoError(t, err)
	require.NoError(t, tx.PutIfAbsent("logs.1", "_documents", []byte("ev-1"), []byte("payload")))

	err = tx.PutIfAbsent("logs.1", "_documents", []byte("ev-1"), []byte("other"))
	require.Error(t, err)
	assert.True(t, appErrors.IsDocExists(err))
	require.NoError(t, tx.Commit())
}

func TestDeleteMissingKeyReturnsKeyNotFound(t *testing.T) {
	env := testEnv(t)

	tx, err := Begin(env, nil, 0)
	require.NoError(t, err)
	err = tx.Delete("logs.toc", "_metadata", []byte("missing"))
	require.Error(t, err)
	assert.True(t, appErrors.IsKeyNotFound(err))
	require.NoError(t, tx.Commit())
}

func TestDeadlockVictimHandleIsInvalidatedEvenWhenNotTheCaller(t *testing.T) {
	env := testEnv(t)

	heavy, err := Begin(env, nil, 0)
	require.NoError(t, err)
	light, err := Begin(env, nil, 0)
	require.NoError(t, err)

	require.NoError(t, heavy.Put("logs.toc", "_metadata", []byte("a"), []byte("v")))
	require.NoError(t, heavy.Put("logs.toc", "_metadata", []byte("extra"), []byte("v")))
	require.NoError(t, light.Put("logs.toc", "_metadata", []byte("b"), []byte("v")))
	require.NoError(t, light.Put("logs.toc", "_metadata", []byte("a"), []byte("v"))) // light waits on heavy over "a"

	// heavy now waits on light over "b" -> cycle; both count 2 locks, and the
	// tie goes to the blocker, light, as the victim, but heavy made this call, so heavy must see
	// it succeed while light's own handle becomes unusable.
	err = heavy.Put("logs.toc", "_metadata", []byte("b"), []byte("v"))
	require.NoError(t, err)

	_, err = light.Get("logs.toc", "_metadata", []byte("b"))
	require.Error(t, err)
	assert.True(t, appErrors.IsTxnError(err))
	txnErr, ok := appErrors.AsTxnError(err)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrorCodeInvalidTxn, txnErr.Code())

	require.NoError(t, heavy.Commit())
}

func TestScopedCommitsOnSuccessAbortsOnError(t *testing.T) {
	env := testEnv(t)

	require.NoError(t, Scoped(env, nil, 0, func(tx *Txn) error {
		return tx.Put("logs.toc", "_metadata", []byte("k"), []byte("v"))
	}))

	verify, err := Begin(env, nil, 0)
	require.NoError(t, err)
	v, err := verify.Get("logs.toc", "_metadata", []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
	require.NoError(t, verify.Commit())

	sentinel := assert.AnError
	err = Scoped(env, nil, 0, func(tx *Txn) error {
		require.NoError(t, tx.Put("logs.toc", "_metadata", []byte("k2"), []byte("v2")))
		return sentinel
	})
	assert.Equal(t, sentinel, err)
}
