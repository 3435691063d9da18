// Package iter implements the Iter entity from spec.md §4.4: a cursor
// wrapper providing ALL/FROM/RANGE/WITHIN traversal with forward or
// reverse direction and external skip() positioning, layered over
// go.etcd.io/bbolt's Cursor (First/Last/Seek/Next/Prev), which covers the
// store's required physical stepping operations directly.
package iter

import (
	"bytes"
	"context"
	"sync"

	"github.com/iamNilotpal/ember/internal/envkv"
	"github.com/iamNilotpal/ember/internal/txn"
	"github.com/iamNilotpal/ember/pkg/codec"
	appErrors "github.com/iamNilotpal/ember/pkg/errors"
	"go.etcd.io/bbolt"
)

// Mode selects the traversal and post-retrieval filtering rule.
type Mode int

const (
	// All visits every key in the bucket; the filter always accepts.
	All Mode = iota
	// From positions at start and visits every key from there on,
	// unfiltered — the bound is purely positional.
	From
	// Range treats start as a byte prefix and accepts only keys sharing it
	// (direction-dependent: forward requires start to prefix the key,
	// reverse requires the key to prefix start).
	Range
	// Within accepts keys k with start <= k <= end under the codec
	// comparator, inclusive on both ends.
	Within
)

// SkipFunc converts a caller-supplied target value into the exact key
// skip() should land the cursor on.
type SkipFunc func(target []byte) []byte

// Iter is not safe for concurrent use: spec.md §5 requires each thread
// using a Txn (and anything opened against it) to own it exclusively.
type Iter struct {
	mu sync.Mutex

	env    *envkv.Env
	bucket *bbolt.Bucket
	cursor *bbolt.Cursor

	mode    Mode
	reverse bool
	start   []byte
	end     []byte
	skipFn  SkipFunc

	initialized bool
	closed      bool

	curKey []byte
	curVal []byte
}

// New opens a cursor on dbName/bucket inside tx and returns a ready Iter.
// It blocks on the Env's cursor admission semaphore (bounded by
// MaxObjects) until a slot is free or ctx is cancelled.
func New(ctx context.Context, env *envkv.Env, tx *txn.Txn, dbName, bucket string, mode Mode, start, end []byte, reverse bool, skipFn SkipFunc) (*Iter, error) {
	if err := env.AcquireCursor(ctx); err != nil {
		return nil, err
	}

	b, err := tx.Bucket(dbName, bucket)
	if err != nil {
		env.ReleaseCursor()
		return nil, err
	}

	return &Iter{
		env:     env,
		bucket:  b,
		cursor:  b.Cursor(),
		mode:    mode,
		reverse: reverse,
		start:   start,
		end:     end,
		skipFn:  skipFn,
	}, nil
}

// Next advances the iterator one step and reports whether a key/value was
// produced. A false return with a nil error means the traversal has
// naturally ended (range exited or bucket exhausted); the iterator is
// closed automatically in that case.
func (it *Iter) Next() (key, value []byte, ok bool, err error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed {
		return nil, nil, false, appErrors.NewStorageError(nil, appErrors.ErrorCodeIO, "iterator already closed")
	}

	var k, v []byte
	if !it.initialized {
		k, v = it.position()
		it.initialized = true
	} else {
		if it.reverse {
			k, v = it.cursor.Prev()
		} else {
			k, v = it.cursor.Next()
		}
	}

	if k == nil {
		it.closeLocked()
		return nil, nil, false, nil
	}

	if !it.accepts(k) {
		it.closeLocked()
		return nil, nil, false, nil
	}

	it.curKey, it.curVal = k, v
	return cloneBytes(k), cloneBytes(v), true, nil
}

// position performs the initial positioning step for the iterator's mode,
// per spec.md §4.4 step 1.
func (it *Iter) position() (key, value []byte) {
	if it.mode == All {
		if it.reverse {
			return it.cursor.Last()
		}
		return it.cursor.First()
	}

	// A reverse Within walks down from its upper bound, which is end (start
	// holds the lower bound); every other mode seeks start.
	seekKey := it.start
	if it.mode == Within && it.reverse {
		seekKey = it.end
	}

	k, v := it.cursor.Seek(seekKey)
	if !it.reverse {
		return k, v
	}

	// Reverse: Seek gives the first key >= the seek key (set-range). If
	// nothing is >= it, the last key in the bucket is the correct starting
	// point. If the landed key overshot (k > seek key), step back once so
	// the first yielded item is <= the seek key.
	if k == nil {
		return it.cursor.Last()
	}
	if bytes.Compare(k, seekKey) > 0 {
		return it.cursor.Prev()
	}
	return k, v
}

// accepts applies the post-retrieval filter for the iterator's mode and
// direction.
func (it *Iter) accepts(k []byte) bool {
	switch it.mode {
	case All, From:
		return true
	case Range:
		if !it.reverse {
			return bytes.HasPrefix(k, it.start)
		}
		return bytes.HasPrefix(it.start, k)
	case Within:
		cmpStart, err := codec.Compare(it.start, k)
		if err != nil {
			return false
		}
		cmpEnd, err := codec.Compare(k, it.end)
		if err != nil {
			return false
		}
		return cmpStart <= 0 && cmpEnd <= 0
	default:
		return false
	}
}

// Skip positions the iterator exactly at the key skipFn derives from
// target, failing with *errors.DocError (OutOfRange) if that key is
// absent. Direction is preserved; the next Next() call steps normally
// from the new position.
func (it *Iter) Skip(target []byte) error {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.closed {
		return appErrors.NewStorageError(nil, appErrors.ErrorCodeIO, "iterator already closed")
	}
	if it.skipFn == nil {
		return appErrors.NewStorageError(nil, appErrors.ErrorCodeInvalidInput, "iterator has no skip function configured")
	}

	targetKey := it.skipFn(target)
	k, v := it.cursor.Seek(targetKey)
	if k == nil || !bytes.Equal(k, targetKey) {
		return appErrors.NewOutOfRangeError(string(targetKey))
	}

	it.curKey, it.curVal = k, v
	it.initialized = true
	return nil
}

// Close releases the cursor's admission slot. Safe to call more than
// once; iterating past the end already closes the iterator.
func (it *Iter) Close() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.closeLocked()
	return nil
}

func (it *Iter) closeLocked() {
	if it.closed {
		return
	}
	it.closed = true
	it.env.ReleaseCursor()
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
