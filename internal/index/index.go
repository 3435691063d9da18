// Package index implements the Index (TOC) entity from spec.md §4.5: the
// per-index catalog of metadata, field schema, and allocated segment ids,
// stored as three sub-databases inside one bbolt file named `<index>.toc`.
package index

import (
	"context"
	stdErrors "errors"

	"github.com/iamNilotpal/ember/internal/envkv"
	"github.com/iamNilotpal/ember/internal/iter"
	"github.com/iamNilotpal/ember/internal/txn"
	"github.com/iamNilotpal/ember/pkg/codec"
	appErrors "github.com/iamNilotpal/ember/pkg/errors"
	"github.com/iamNilotpal/ember/pkg/seginfo"
)

var ErrIndexClosed = stdErrors.New("operation failed: cannot access closed index")

// Open returns a ready Index for name, creating `<name>.toc` under env's
// data directory if it does not already exist, and priming the cached
// nfields/nsegments counters from a full key-count of the schema and
// segment buckets.
func Open(ctx context.Context, config *Config, name string) (*Index, error) {
	if config == nil || config.Env == nil || config.Logger == nil {
		return nil, appErrors.NewStorageError(nil, appErrors.ErrorCodeInvalidInput, "index configuration is required")
	}

	idx := &Index{
		name:   name,
		dbName: seginfo.TOCName(name),
		env:    config.Env,
		log:    config.Logger,
	}

	tx, err := txn.Begin(idx.env, nil, 0)
	if err != nil {
		return nil, err
	}

	nfields, err := countKeys(ctx, idx.env, tx, idx.dbName, bucketSchema)
	if err != nil {
		_ = tx.Abort()
		return nil, err
	}
	nsegments, err := countKeys(ctx, idx.env, tx, idx.dbName, bucketSegments)
	if err != nil {
		_ = tx.Abort()
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	idx.nfields = nfields
	idx.nsegments = nsegments

	idx.log.Infow("catalog opened", "index", name, "fields", nfields, "segments", nsegments)
	return idx, nil
}

// Begin starts a new top-level transaction against this catalog's Env,
// the `begin top-level transaction` operation spec.md §4.5 lists.
func (idx *Index) Begin(flags txn.Flags) (*txn.Txn, error) {
	if idx.closed.Load() {
		return nil, ErrIndexClosed
	}
	return txn.Begin(idx.env, nil, flags)
}

// Close marks the catalog closed. The backing file is left for the owning
// Env to manage; Index itself holds no direct file handle.
func (idx *Index) Close() error {
	if !idx.closed.CompareAndSwap(false, true) {
		return ErrIndexClosed
	}
	idx.log.Infow("catalog closed", "index", idx.name)
	return nil
}

// GetMetadata returns the value stored at key in the `_metadata` bucket.
func (idx *Index) GetMetadata(tx *txn.Txn, key string) ([]byte, error) {
	k, err := codec.Dump(codec.String(key))
	if err != nil {
		return nil, err
	}
	return tx.Get(idx.dbName, bucketMetadata, k)
}

// SetMetadata stores value at key in the `_metadata` bucket, overwriting
// any existing value.
func (idx *Index) SetMetadata(tx *txn.Txn, key string, value []byte) error {
	k, err := codec.Dump(codec.String(key))
	if err != nil {
		return err
	}
	return tx.Put(idx.dbName, bucketMetadata, k, value)
}

// AddField registers name in the schema with spec as its already
// codec-encoded value, failing with *errors.IndexError (FieldExists) on a
// duplicate name, and increments the cached field counter on success.
func (idx *Index) AddField(tx *txn.Txn, name string, spec []byte) error {
	key, err := codec.Dump(codec.String(name))
	if err != nil {
		return err
	}
	if err := tx.PutIfAbsent(idx.dbName, bucketSchema, key, spec); err != nil {
		if appErrors.IsDocExists(err) {
			return appErrors.NewFieldExistsError(name)
		}
		return err
	}

	idx.mu.Lock()
	idx.nfields++
	idx.mu.Unlock()
	return nil
}

// GetField returns the schema spec registered for name.
func (idx *Index) GetField(tx *txn.Txn, name string) ([]byte, error) {
	key, err := codec.Dump(codec.String(name))
	if err != nil {
		return nil, err
	}
	return tx.Get(idx.dbName, bucketSchema, key)
}

// ContainsField reports whether name has a schema entry.
func (idx *Index) ContainsField(tx *txn.Txn, name string) (bool, error) {
	key, err := codec.Dump(codec.String(name))
	if err != nil {
		return false, err
	}
	return tx.Contains(idx.dbName, bucketSchema, key)
}

// IterFields returns an Iter over every registered field name, in codec
// (byte) order.
func (idx *Index) IterFields(ctx context.Context, tx *txn.Txn) (*iter.Iter, error) {
	return iter.New(ctx, idx.env, tx, idx.dbName, bucketSchema, iter.All, nil, nil, false, nil)
}

// CountFields returns the cached field count in O(1).
func (idx *Index) CountFields() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.nfields
}

// NewSegment allocates the next segment record number, appends an empty
// record for it to `_segments`, increments the cached segment counter, and
// returns the allocated id.
func (idx *Index) NewSegment(tx *txn.Txn) (uint64, error) {
	idx.mu.Lock()
	sid := uint64(idx.nsegments) + 1
	idx.mu.Unlock()

	// Segment record numbers must be dense against the cached counter, but
	// a prior failed allocation could have left a gap; scan forward from
	// the cached guess until a genuinely free slot is found.
	for {
		key, err := segmentKey(sid)
		if err != nil {
			return 0, err
		}
		exists, err := tx.Contains(idx.dbName, bucketSegments, key)
		if err != nil {
			return 0, err
		}
		if !exists {
			break
		}
		sid++
	}

	key, err := segmentKey(sid)
	if err != nil {
		return 0, err
	}
	if err := tx.Put(idx.dbName, bucketSegments, key, []byte{}); err != nil {
		return 0, err
	}

	idx.mu.Lock()
	idx.nsegments++
	idx.mu.Unlock()
	return sid, nil
}

// DeleteSegment removes sid's record from `_segments`, failing with
// *errors.IndexError (via NewSegmentIDError) if sid was never allocated,
// and decrements the cached segment counter on success.
func (idx *Index) DeleteSegment(tx *txn.Txn, sid uint64) error {
	key, err := segmentKey(sid)
	if err != nil {
		return err
	}
	exists, err := tx.Contains(idx.dbName, bucketSegments, key)
	if err != nil {
		return err
	}
	if !exists {
		return appErrors.NewSegmentIDError(sid)
	}
	if err := tx.Delete(idx.dbName, bucketSegments, key); err != nil {
		return err
	}

	idx.mu.Lock()
	idx.nsegments--
	idx.mu.Unlock()
	return nil
}

// IterSegments returns an Iter over every allocated segment record number,
// ascending.
func (idx *Index) IterSegments(ctx context.Context, tx *txn.Txn) (*iter.Iter, error) {
	return iter.New(ctx, idx.env, tx, idx.dbName, bucketSegments, iter.All, nil, nil, false, nil)
}

// CountSegments returns the cached segment count in O(1).
func (idx *Index) CountSegments() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.nsegments
}

// RecountFields recomputes nfields from a full scan of `_schema` and
// returns *errors.IndexError (via NewCounterDriftError) if it disagrees
// with the cached value, updating the cache to the scanned value
// regardless.
func (idx *Index) RecountFields(ctx context.Context, tx *txn.Txn) error {
	scanned, err := countKeys(ctx, idx.env, tx, idx.dbName, bucketSchema)
	if err != nil {
		return err
	}
	idx.mu.Lock()
	cached := idx.nfields
	idx.nfields = scanned
	idx.mu.Unlock()
	if cached != scanned {
		return appErrors.NewCounterDriftError("CountFields", cached, scanned)
	}
	return nil
}

func segmentKey(sid uint64) ([]byte, error) {
	return codec.Dump(codec.Uint(sid))
}

func countKeys(ctx context.Context, env *envkv.Env, tx *txn.Txn, dbName, bucket string) (int, error) {
	it, err := iter.New(ctx, env, tx, dbName, bucket, iter.All, nil, nil, false, nil)
	if err != nil {
		return 0, err
	}
	defer it.Close()

	n := 0
	for {
		_, _, ok, err := it.Next()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		n++
	}
	return n, nil
}
