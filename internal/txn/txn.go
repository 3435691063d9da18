// Package txn implements the Txn entity from spec.md §4.3: a nestable
// transaction handle whose commit or abort invalidates itself and every
// descendant transitively. Begin is modeled as a free function rather than
// an Env method — internal/envkv owns no knowledge of this package, so
// ownership stays one-directional (txn depends on envkv, never the
// reverse), matching the "strong ownership of Env by Index" layering
// spec.md §9 describes.
package txn

import (
	"sync"
	"sync/atomic"

	"github.com/iamNilotpal/ember/internal/envkv"
	"github.com/iamNilotpal/ember/internal/lockmgr"
	appErrors "github.com/iamNilotpal/ember/pkg/errors"
	"go.etcd.io/bbolt"
)

// Flags recognizes the six flags spec.md §4.2 names, plus ReadOnly: bbolt's
// Go API distinguishes read-only from read-write transactions at Begin
// time rather than through an isolation-level flag, so this module adds
// ReadOnly as the orthogonal bit that actually selects bbolt's
// DB.Begin(writable) argument.
type Flags uint16

const (
	ReadCommitted Flags = 1 << iota
	ReadUncommitted
	NoSync
	NoWait
	Snapshot
	WriteNoSync
	ReadOnly
)

var nextID atomic.Uint64

// Txn is a transaction handle. Every Txn in a subtree shares the root's
// identity with the lock manager: a child's lock requests are made under
// the root's LockerID, so a child commit never needs to transfer lock
// ownership to its parent — the parent always held it already. Locks are
// only released when the root terminates.
type Txn struct {
	mu sync.Mutex

	id     uint64
	env    *envkv.Env
	parent *Txn
	root   *Txn
	children []*Txn

	flags      Flags
	writable   bool
	terminated bool

	// boltTxs is populated only on the root: one bbolt.Tx per data file
	// name this subtree has touched so far, opened lazily and lazily
	// matched to the subtree's writable-ness.
	boltTxs map[string]*bbolt.Tx
}

// Begin produces a new Txn. If parent is nil this is a top-level
// transaction and opens fresh, not-yet-bound bbolt transactions lazily per
// data file on first access; if parent is non-nil the new Txn joins its
// root's transaction set and shares its locker identity.
func Begin(env *envkv.Env, parent *Txn, flags Flags) (*Txn, error) {
	if parent != nil {
		if err := parent.checkValid(); err != nil {
			return nil, err
		}
	}

	t := &Txn{
		id:       nextID.Add(1),
		env:      env,
		parent:   parent,
		flags:    flags,
		writable: flags&ReadOnly == 0,
	}

	if parent == nil {
		t.root = t
		t.boltTxs = make(map[string]*bbolt.Tx)
		env.LockManager().Register(lockmgr.LockerID(t.id), t.abortAsVictim)
	} else {
		t.root = parent.root
		parent.mu.Lock()
		parent.children = append(parent.children, t)
		parent.mu.Unlock()
	}

	return t, nil
}

// ID returns the transaction handle's identifier, used in TxnError context
// and as the lock manager's locker key.
func (t *Txn) ID() uint64 { return t.id }

func (t *Txn) checkValid() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.terminated {
		return appErrors.NewInvalidTxnError(t.id)
	}
	return nil
}

// boltTx returns (opening lazily if needed) the root's bbolt transaction
// for the named data file.
func (t *Txn) boltTx(dbName string) (*bbolt.Tx, error) {
	root := t.root
	root.mu.Lock()
	defer root.mu.Unlock()

	if tx, ok := root.boltTxs[dbName]; ok {
		return tx, nil
	}

	db, err := t.env.OpenDB(dbName)
	if err != nil {
		return nil, err
	}
	tx, err := db.Begin(root.writable)
	if err != nil {
		return nil, appErrors.NewTxnError(err, appErrors.ErrorCodeIO, "failed to begin store transaction").
			WithTxnID(t.id)
	}
	root.boltTxs[dbName] = tx
	return tx, nil
}

func (t *Txn) lockKey(dbName, bucket string, key []byte) string {
	return dbName + "\x00" + bucket + "\x00" + string(key)
}

func (t *Txn) acquire(dbName, bucket string, key []byte, mode lockmgr.Mode) error {
	return t.env.LockManager().Acquire(lockmgr.LockerID(t.root.id), t.lockKey(dbName, bucket, key), mode)
}

// Bucket returns the named bucket within dbName, creating it if this is a
// writable transaction and it does not yet exist.
func (t *Txn) Bucket(dbName, bucket string) (*bbolt.Bucket, error) {
	if err := t.checkValid(); err != nil {
		return nil, err
	}
	tx, err := t.boltTx(dbName)
	if err != nil {
		return nil, err
	}
	if tx.Writable() {
		return tx.CreateBucketIfNotExists([]byte(bucket))
	}
	b := tx.Bucket([]byte(bucket))
	if b == nil {
		return nil, appErrors.NewStorageError(nil, appErrors.ErrorCodeIO, "bucket does not exist").
			WithFileName(dbName).WithDetail("bucket", bucket)
	}
	return b, nil
}

// Get returns the value stored at key, or a *DocError (KeyNotFound) if
// absent.
func (t *Txn) Get(dbName, bucket string, key []byte) ([]byte, error) {
	if err := t.acquire(dbName, bucket, key, lockmgr.Shared); err != nil {
		return nil, err
	}
	b, err := t.Bucket(dbName, bucket)
	if err != nil {
		return nil, err
	}
	v := b.Get(key)
	if v == nil {
		return nil, appErrors.NewKeyNotFoundError(string(key))
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Contains reports whether key is present.
func (t *Txn) Contains(dbName, bucket string, key []byte) (bool, error) {
	if err := t.acquire(dbName, bucket, key, lockmgr.Shared); err != nil {
		return false, err
	}
	b, err := t.Bucket(dbName, bucket)
	if err != nil {
		return false, err
	}
	return b.Get(key) != nil, nil
}

// Put inserts or overwrites key with value.
func (t *Txn) Put(dbName, bucket string, key, value []byte) error {
	if err := t.acquire(dbName, bucket, key, lockmgr.Exclusive); err != nil {
		return err
	}
	b, err := t.Bucket(dbName, bucket)
	if err != nil {
		return err
	}
	if err := b.Put(key, value); err != nil {
		return appErrors.NewStorageError(err, appErrors.ErrorCodeIO, "failed to write key").
			WithFileName(dbName).WithDetail("bucket", bucket)
	}
	return nil
}

// PutIfAbsent inserts key with value only if it is not already present,
// failing with *DocError (DocExists) otherwise — the unique-insert
// contract new_event and new posting rely on.
func (t *Txn) PutIfAbsent(dbName, bucket string, key, value []byte) error {
	if err := t.acquire(dbName, bucket, key, lockmgr.Exclusive); err != nil {
		return err
	}
	b, err := t.Bucket(dbName, bucket)
	if err != nil {
		return err
	}
	if b.Get(key) != nil {
		return appErrors.NewDocExistsError(string(key))
	}
	if err := b.Put(key, value); err != nil {
		return appErrors.NewStorageError(err, appErrors.ErrorCodeIO, "failed to write key").
			WithFileName(dbName).WithDetail("bucket", bucket)
	}
	return nil
}

// Delete removes key, failing with *DocError (KeyNotFound) if absent.
func (t *Txn) Delete(dbName, bucket string, key []byte) error {
	if err := t.acquire(dbName, bucket, key, lockmgr.Exclusive); err != nil {
		return err
	}
	b, err := t.Bucket(dbName, bucket)
	if err != nil {
		return err
	}
	if b.Get(key) == nil {
		return appErrors.NewKeyNotFoundError(string(key))
	}
	if err := b.Delete(key); err != nil {
		return appErrors.NewStorageError(err, appErrors.ErrorCodeIO, "failed to delete key").
			WithFileName(dbName).WithDetail("bucket", bucket)
	}
	return nil
}

// Commit descends this Txn's subtree pre-order, invalidating every
// handle. If this is a root Txn, every bbolt transaction this subtree
// opened is committed and the subtree's locks are released; if this is a
// child, its writes already live directly in the root's shared bbolt
// transactions (bbolt has no nested-transaction primitive to stage them
// against), so commit here is bookkeeping only — invalidate the subtree
// and let the parent continue.
func (t *Txn) Commit() error {
	if err := t.checkValid(); err != nil {
		return err
	}

	if t.parent == nil {
		var firstErr error
		for name, tx := range t.boltTxs {
			if err := tx.Commit(); err != nil && firstErr == nil {
				firstErr = appErrors.NewTxnError(err, appErrors.ErrorCodeIO, "failed to commit store transaction").
					WithTxnID(t.id).WithDetail("db", name)
			}
		}
		t.env.LockManager().Release(lockmgr.LockerID(t.id))
		t.invalidateSubtree()
		return firstErr
	}

	t.invalidateSubtree()
	return nil
}

// Abort descends this Txn's subtree pre-order, invalidating every handle.
// On a root Txn every opened bbolt transaction is rolled back and the
// subtree's locks are released. On a child Txn, writes already made
// through the shared root transaction are NOT rolled back — bbolt commits
// one flat transaction per file and offers no savepoint to roll back to —
// so aborting a child only guarantees its handle (and its own
// descendants') can no longer be used; it does not undo prior writes made
// through it. Callers that need true isolation for a unit of work should
// make it a root Txn.
func (t *Txn) Abort() error {
	if err := t.checkValid(); err != nil {
		return err
	}

	if t.parent == nil {
		var firstErr error
		for name, tx := range t.boltTxs {
			if err := tx.Rollback(); err != nil && firstErr == nil {
				firstErr = appErrors.NewTxnError(err, appErrors.ErrorCodeIO, "failed to abort store transaction").
					WithTxnID(t.id).WithDetail("db", name)
			}
		}
		t.env.LockManager().Release(lockmgr.LockerID(t.id))
		t.invalidateSubtree()
		return firstErr
	}

	t.invalidateSubtree()
	return nil
}

// abortAsVictim is invoked by the lock manager when this root Txn is chosen
// as a deadlock victim by another locker's Acquire call, or by a background
// DetectCycles sweep. It rolls back every bbolt transaction this subtree
// opened and invalidates every handle in it, the same outcome Abort
// produces — except the lock manager has already released this locker's
// locks (that release is what triggered this callback), so there is no
// LockManager.Release call to make here.
func (t *Txn) abortAsVictim() {
	t.mu.Lock()
	if t.terminated {
		t.mu.Unlock()
		return
	}
	boltTxs := t.boltTxs
	t.mu.Unlock()

	for _, tx := range boltTxs {
		_ = tx.Rollback()
	}
	t.invalidateSubtree()
}

func (t *Txn) invalidateSubtree() {
	t.mu.Lock()
	t.terminated = true
	children := t.children
	t.mu.Unlock()

	for _, c := range children {
		c.invalidateSubtree()
	}
}

// Scoped runs fn with a freshly-begun Txn (a child of parent, or a
// top-level Txn when parent is nil), committing on a nil
// return and aborting otherwise — the scoped entry/exit behavior spec.md
// §3 describes for Txn as a resource.
func Scoped(env *envkv.Env, parent *Txn, flags Flags, fn func(*Txn) error) error {
	t, err := Begin(env, parent, flags)
	if err != nil {
		return err
	}
	if err := fn(t); err != nil {
		if abortErr := t.Abort(); abortErr != nil {
			return abortErr
		}
		return err
	}
	return t.Commit()
}
