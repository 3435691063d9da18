package segment

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/iamNilotpal/ember/internal/envkv"
	"github.com/iamNilotpal/ember/internal/iter"
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

func testSegment(t *testing.T) *Segment {
	t.Helper()
	env := testEnv(t)
	s, err := Open(context.Background(), &Config{Env: env, Logger: logger.NewDevelopment("test")}, "logs", 1)
	require.NoError(t, err)
	return s
}

func evid(n uint64) []byte {
	b, _ := codec.Dump(codec.Uint(n))
	return b
}

func TestRoundTripEvent(t *testing.T) {
	s := testSegment(t)
	tx, err := txn.Begin(s.env, nil, 0)
	require.NoError(t, err)

	body, _ := codec.Dump(codec.String("hi"))
	require.NoError(t, s.NewEvent(tx, evid(1), body))
	require.NoError(t, tx.Commit())

	tx2, err := txn.Begin(s.env, nil, 0)
	require.NoError(t, err)
	got, err := s.GetEvent(tx2, evid(1))
	require.NoError(t, err)
	assert.Equal(t, body, got)
	require.NoError(t, tx2.Commit())
}

func TestNewEventRejectsDuplicate(t *testing.T) {
	s := testSegment(t)
	tx, err := txn.Begin(s.env, nil, 0)
	require.NoError(t, err)

	body, _ := codec.Dump(codec.String("hi"))
	require.NoError(t, s.NewEvent(tx, evid(1), body))

	err = s.NewEvent(tx, evid(1), body)
	require.Error(t, err)
	assert.True(t, appErrors.IsDocExists(err))

	require.NoError(t, tx.Commit())
}

func TestDeleteEventThenGetRaisesKeyNotFound(t *testing.T) {
	s := testSegment(t)
	tx, err := txn.Begin(s.env, nil, 0)
	require.NoError(t, err)

	body, _ := codec.Dump(codec.String("hi"))
	require.NoError(t, s.NewEvent(tx, evid(1), body))
	require.NoError(t, s.DeleteEvent(tx, evid(1)))

	contains, err := s.ContainsEvent(tx, evid(1))
	require.NoError(t, err)
	assert.False(t, contains)

	_, err = s.GetEvent(tx, evid(1))
	require.Error(t, err)
	assert.True(t, appErrors.IsKeyNotFound(err))

	require.NoError(t, tx.Commit())
}

func TestIterEventsReverseWithinYieldsDescending(t *testing.T) {
	s := testSegment(t)
	tx, err := txn.Begin(s.env, nil, 0)
	require.NoError(t, err)

	for i := uint64(1); i <= 10; i++ {
		body, _ := codec.Dump(codec.Uint(i))
		require.NoError(t, s.NewEvent(tx, evid(i), body))
	}

	it, err := s.IterEvents(context.Background(), tx, evid(8), evid(3))
	require.NoError(t, err)

	var got []uint64
	for {
		k, _, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		v, err := codec.LoadOne(k)
		require.NoError(t, err)
		n, _ := v.Uint64()
		got = append(got, n)
	}

	assert.Equal(t, []uint64{8, 7, 6, 5, 4, 3}, got)
	require.NoError(t, tx.Commit())
}

func TestIterPostingsPrefixForwardYieldsEventOrder(t *testing.T) {
	s := testSegment(t)
	tx, err := txn.Begin(s.env, nil, 0)
	require.NoError(t, err)

	k1, err := PostingKey("msg", "hello", evid(1))
	require.NoError(t, err)
	k2, err := PostingKey("msg", "hello", evid(2))
	require.NoError(t, err)
	k3, err := PostingKey("msg", "help", evid(3))
	require.NoError(t, err)

	require.NoError(t, s.NewPosting(tx, k1, []byte{}))
	require.NoError(t, s.NewPosting(tx, k2, []byte{}))
	require.NoError(t, s.NewPosting(tx, k3, []byte{}))

	prefix, err := codec.DumpAll([]codec.Value{codec.String("msg"), codec.String("hello")})
	require.NoError(t, err)

	// Range mode operates directly through iter.New since prefix matching
	// isn't one of IterPostings' four bound patterns.
	rangeIter, err := iter.New(context.Background(), s.env, tx, s.db, bucketPostingsFwd, iter.Range, prefix, nil, false, nil)
	require.NoError(t, err)

	var keys [][]byte
	for {
		k, _, ok, err := rangeIter.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		keys = append(keys, k)
	}

	require.Len(t, keys, 2)
	assert.Equal(t, k1, keys[0])
	assert.Equal(t, k2, keys[1])

	require.NoError(t, tx.Commit())
}

func TestIterPostingsReverseMirrorsComplementBucket(t *testing.T) {
	s := testSegment(t)
	tx, err := txn.Begin(s.env, nil, 0)
	require.NoError(t, err)

	var keys [][]byte
	for i := uint64(1); i <= 5; i++ {
		k, err := PostingKey("msg", "hello", evid(i))
		require.NoError(t, err)
		require.NoError(t, s.NewPosting(tx, k, []byte{}))
		keys = append(keys, k)
	}

	pit, err := s.IterPostings(context.Background(), tx, nil, nil, true, nil)
	require.NoError(t, err)

	var got [][]byte
	for {
		k, _, ok, err := pit.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, k)
	}

	require.Len(t, got, 5)
	for i, k := range got {
		assert.Equal(t, keys[len(keys)-1-i], k)
	}

	require.NoError(t, tx.Commit())
}

func TestOpenFieldCachesHandleAcrossCalls(t *testing.T) {
	s := testSegment(t)
	tx, err := txn.Begin(s.env, nil, 0)
	require.NoError(t, err)

	b1, err := s.OpenField(tx, "host")
	require.NoError(t, err)
	b2, err := s.OpenField(tx, "host")
	require.NoError(t, err)
	assert.Equal(t, b1, b2)

	require.NoError(t, tx.Commit())
}

func TestTermStatsAccumulateDeltas(t *testing.T) {
	s := testSegment(t)
	tx, err := txn.Begin(s.env, nil, 0)
	require.NoError(t, err)

	require.NoError(t, s.UpdateTermStats(tx, "msg", "hello", 1, 3))
	require.NoError(t, s.UpdateTermStats(tx, "msg", "hello", 1, 2))

	stats, err := s.GetTermStats(tx, "msg", "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.DocFrequency)
	assert.Equal(t, int64(5), stats.Occurrences)

	require.NoError(t, tx.Commit())
}

func TestDeleteThenCloseRemovesBackingFile(t *testing.T) {
	s := testSegment(t)
	tx, err := txn.Begin(s.env, nil, 0)
	require.NoError(t, err)
	body, _ := codec.Dump(codec.String("hi"))
	require.NoError(t, s.NewEvent(tx, evid(1), body))
	require.NoError(t, tx.Commit())

	path := filepath.Join(s.env.DataDir(), s.db)
	assert.FileExists(t, path)
	s.Delete()
	require.NoError(t, s.Close())
	assert.NoFileExists(t, path)
}
