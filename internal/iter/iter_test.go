package iter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/ember/internal/envkv"
	"github.com/iamNilotpal/ember/internal/txn"
	"github.com/iamNilotpal/ember/pkg/codec"
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

func seedKeys(t *testing.T, env *envkv.Env, keys ...string) *txn.Txn {
	t.Helper()
	tx, err := txn.Begin(env, nil, 0)
	require.NoError(t, err)
	for _, k := range keys {
		require.NoError(t, tx.Put("logs.1", "_documents", []byte(k), []byte("v-"+k)))
	}
	return tx
}

func drain(t *testing.T, it *Iter) []string {
	t.Helper()
	var got []string
	for {
		k, _, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, string(k))
	}
	return got
}

func TestAllForwardAndReverse(t *testing.T) {
	env := testEnv(t)
	tx := seedKeys(t, env, "a", "b", "c")

	fwd, err := New(context.Background(), env, tx, "logs.1", "_documents", All, nil, nil, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, drain(t, fwd))

	rev, err := New(context.Background(), env, tx, "logs.1", "_documents", All, nil, nil, true, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, drain(t, rev))

	require.NoError(t, tx.Commit())
}

func TestFromPositionsAtOrAfterStart(t *testing.T) {
	env := testEnv(t)
	tx := seedKeys(t, env, "a", "b", "d")

	it, err := New(context.Background(), env, tx, "logs.1", "_documents", From, []byte("c"), nil, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, drain(t, it))
	require.NoError(t, tx.Commit())
}

func TestRangePrefixForwardAndReverse(t *testing.T) {
	env := testEnv(t)
	tx := seedKeys(t, env, "ap", "apple", "applesauce", "banana")

	fwd, err := New(context.Background(), env, tx, "logs.1", "_documents", Range, []byte("app"), nil, false, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "applesauce"}, drain(t, fwd))

	rev, err := New(context.Background(), env, tx, "logs.1", "_documents", Range, []byte("apple"), nil, true, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "ap"}, drain(t, rev))

	require.NoError(t, tx.Commit())
}

func TestWithinInclusiveBounds(t *testing.T) {
	env := testEnv(t)
	tx, err := txn.Begin(env, nil, 0)
	require.NoError(t, err)

	dumped := make(map[string][]byte)
	for _, label := range []string{"a", "b", "c", "d", "e"} {
		buf, err := codec.Dump(codec.String(label))
		require.NoError(t, err)
		dumped[label] = buf
		require.NoError(t, tx.Put("logs.1", "_documents", buf, []byte("v-"+label)))
	}

	it, err := New(context.Background(), env, tx, "logs.1", "_documents", Within, dumped["b"], dumped["d"], false, nil)
	require.NoError(t, err)

	var got []string
	for {
		k, _, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		v, err := codec.LoadOne(k)
		require.NoError(t, err)
		s, ok := v.String()
		require.True(t, ok)
		got = append(got, s)
	}
	assert.Equal(t, []string{"b", "c", "d"}, got)
	require.NoError(t, tx.Commit())
}

func TestSkipPositionsExactlyOrFails(t *testing.T) {
	env := testEnv(t)
	tx := seedKeys(t, env, "a", "b", "c")

	identity := func(target []byte) []byte { return target }

	it, err := New(context.Background(), env, tx, "logs.1", "_documents", All, nil, nil, false, identity)
	require.NoError(t, err)
	require.NoError(t, it.Skip([]byte("b")))
	k, _, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c", string(k))

	it2, err := New(context.Background(), env, tx, "logs.1", "_documents", All, nil, nil, false, identity)
	require.NoError(t, err)
	err = it2.Skip([]byte("missing"))
	require.Error(t, err)
	docErr, ok := appErrors.AsDocError(err)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrorCodeOutOfRange, docErr.Code())

	require.NoError(t, tx.Commit())
}

func TestExhaustedIteratorClosesItself(t *testing.T) {
	env := testEnv(t)
	tx := seedKeys(t, env, "a")

	it, err := New(context.Background(), env, tx, "logs.1", "_documents", All, nil, nil, false, nil)
	require.NoError(t, err)
	_, _, ok, err := it.Next()
	require.NoError(t, err)
	require.True(t, ok)

	_, _, ok, err = it.Next()
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, _, err = it.Next()
	require.Error(t, err)

	require.NoError(t, tx.Commit())
}
