package index

import (
	"sync"
	"sync/atomic"

	"github.com/iamNilotpal/ember/internal/envkv"
	"go.uber.org/zap"
)

// Bucket names for the three sub-databases spec.md §4.5 describes inside
// one `<name>.toc` file.
const (
	bucketMetadata = "_metadata"
	bucketSchema   = "_schema"
	bucketSegments = "_segments"
)

// Index is the catalog (TOC) entity: metadata key/value storage, the
// field schema, and the segment-id allocation ledger for one named index,
// all living in a single bbolt file at `<name>.toc` under the owning
// Env's data directory. nfields and nsegments are cached counters,
// initialized from a full key-count at Open and mutated only by
// AddField/NewSegment/DeleteSegment within their own transaction — the
// in-process cache is therefore best-effort across an aborted Txn, which
// RecountFields repairs (see errors.NewCounterDriftError).
type Index struct {
	name   string
	dbName string
	env    *envkv.Env
	log    *zap.SugaredLogger

	mu        sync.Mutex
	nfields   int
	nsegments int

	closed atomic.Bool
}

// Config mirrors the teacher's Config-struct-plus-New convention: every
// dependency Index needs is passed explicitly rather than read from
// ambient state.
type Config struct {
	Env    *envkv.Env
	Logger *zap.SugaredLogger
}
