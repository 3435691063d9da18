// Package segment implements the Segment entity from spec.md §4.6: the
// per-segment store of events, postings (forward and reverse), and term
// statistics, plus a lazily-populated per-field metadata sub-database,
// all inside one bbolt file named `<index>.<sid>`.
package segment

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/iamNilotpal/ember/internal/envkv"
	"github.com/iamNilotpal/ember/internal/txn"
	"github.com/iamNilotpal/ember/pkg/codec"
	appErrors "github.com/iamNilotpal/ember/pkg/errors"
	"github.com/iamNilotpal/ember/pkg/seginfo"
	"go.uber.org/zap"
)

// Fixed sub-database names. Per-field sub-databases are created lazily and
// named by prefixing the field name, so a field can never collide with
// one of these.
const (
	bucketMetadata    = "_metadata"
	bucketDocuments   = "_documents"
	bucketPostingsFwd = "_postings_fwd"
	bucketPostingsRev = "_postings_rev"
	bucketTerms       = "_terms"

	fieldBucketPrefix = "field:"

	// fieldMetaKey is the single-byte key spec.md §4.6 stores per-field
	// metadata under, inside that field's own sub-database.
	fieldMetaKey = byte(0)
)

// fieldHandle is one entry of the field cache: the sub-database name a
// field's metadata and any field-scoped data lives in.
type fieldHandle struct {
	bucket string
}

// fieldCache is the ordered-map snapshot the redesigned field-handle
// cache stores: a Go map keyed by field name in place of the original
// sorted-array-with-bsearch, per spec.md's REDESIGN FLAGS entry replacing
// that structure while keeping its copy-on-write semantics.
type fieldCache map[string]fieldHandle

// Segment is not safe for concurrent use by the Txn API it wraps (spec.md
// §5: a Txn is owned exclusively by one thread), but its field-handle
// cache specifically is shared and synchronized independently, since
// multiple callers of the same Segment may each hold their own Txn.
type Segment struct {
	index string
	sid   uint64
	db    string

	env *envkv.Env
	log *zap.SugaredLogger

	// fields holds a stable snapshot map; readers load the pointer
	// without a lock and index straight into it, writers replace the
	// whole map wholesale under fieldsMu (copy-on-write), per spec.md
	// §5's "readers ... a stable snapshot pointer" requirement and the
	// REDESIGN FLAGS entry swapping the original sorted-array-with-
	// bsearch cache for an ordered map.
	fields   atomic.Pointer[fieldCache]
	fieldsMu sync.Mutex

	deleted atomic.Bool
	closed  atomic.Bool
}

// Config mirrors internal/index's Config-struct-plus-constructor
// convention.
type Config struct {
	Env    *envkv.Env
	Logger *zap.SugaredLogger
}

// Open returns a ready Segment for sid of index. The caller must already
// have recorded sid via Index.NewSegment. Open touches neither the catalog
// nor the backing data file: the Env opens (and, if absent, creates) that
// file the first time a Txn reads or writes the segment.
func Open(ctx context.Context, config *Config, index string, sid uint64) (*Segment, error) {
	if config == nil || config.Env == nil || config.Logger == nil {
		return nil, appErrors.NewStorageError(nil, appErrors.ErrorCodeInvalidInput, "segment configuration is required")
	}

	s := &Segment{
		index: index,
		sid:   sid,
		db:    seginfo.Name(index, sid),
		env:   config.Env,
		log:   config.Logger,
	}
	empty := fieldCache{}
	s.fields.Store(&empty)

	s.log.Infow("segment opened", "index", index, "sid", sid)
	return s, nil
}

// GetMetadata returns the value stored at key in the segment's
// `_metadata` sub-database.
func (s *Segment) GetMetadata(tx *txn.Txn, key string) ([]byte, error) {
	k, err := codec.Dump(codec.String(key))
	if err != nil {
		return nil, err
	}
	return tx.Get(s.db, bucketMetadata, k)
}

// SetMetadata stores value at key in the segment's `_metadata`
// sub-database.
func (s *Segment) SetMetadata(tx *txn.Txn, key string, value []byte) error {
	k, err := codec.Dump(codec.String(key))
	if err != nil {
		return err
	}
	return tx.Put(s.db, bucketMetadata, k, value)
}

// OpenField returns the cached handle for name, lazily creating its
// sub-database and the zero-byte metadata key within a child transaction
// of tx if this is the first reference to the field in this Segment.
func (s *Segment) OpenField(tx *txn.Txn, name string) (string, error) {
	if h, ok := s.lookupField(name); ok {
		return h.bucket, nil
	}

	s.fieldsMu.Lock()
	defer s.fieldsMu.Unlock()

	// Re-check under the write lock: another caller may have created it
	// while we waited.
	if h, ok := s.lookupField(name); ok {
		return h.bucket, nil
	}

	bucket := fieldBucketPrefix + name
	child, err := txn.Begin(s.env, tx, 0)
	if err != nil {
		return "", err
	}
	if err := child.Put(s.db, bucket, []byte{fieldMetaKey}, []byte{}); err != nil {
		_ = child.Abort()
		return "", err
	}
	if err := child.Commit(); err != nil {
		return "", err
	}

	old := *s.fields.Load()
	next := make(fieldCache, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[name] = fieldHandle{bucket: bucket}
	s.fields.Store(&next)

	return bucket, nil
}

// lookupField reads the current field-handle snapshot without a lock.
func (s *Segment) lookupField(name string) (fieldHandle, bool) {
	h, ok := (*s.fields.Load())[name]
	return h, ok
}

// Delete soft-marks the segment for removal. The backing file is not
// touched until Close observes the mark.
func (s *Segment) Delete() {
	s.deleted.Store(true)
}

// Close releases this handle. If Delete was called first, Close commits
// the removal by asking the owning Env to close and delete the backing
// data file at once. Handles are not counted: the file is gone after this
// Close even if other references to the Segment remain.
func (s *Segment) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.deleted.Load() {
		if err := s.env.RemoveDB(s.db); err != nil {
			return err
		}
		s.log.Infow("segment removed", "index", s.index, "sid", s.sid)
		return nil
	}
	s.log.Infow("segment closed", "index", s.index, "sid", s.sid)
	return nil
}
