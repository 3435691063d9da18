// Package store is the module surface: the one entry point an embedder
// imports to open a store, run transactions against its Indexes and
// Segments, drain its log output, and classify the errors it raises. It
// wraps internal/engine without exposing any of the Env/Index/Segment
// internals directly, the way the original C extension's module init
// registered a small set of types and exception classes instead of handing
// the embedder the backend's internal structs.
package store

import (
	"context"
	"os"

	"github.com/iamNilotpal/ember/internal/engine"
	"github.com/iamNilotpal/ember/internal/index"
	"github.com/iamNilotpal/ember/internal/segment"
	"github.com/iamNilotpal/ember/internal/txn"
	appErrors "github.com/iamNilotpal/ember/pkg/errors"
	"github.com/iamNilotpal/ember/pkg/logger"
	"github.com/iamNilotpal/ember/pkg/logpipe"
	"github.com/iamNilotpal/ember/pkg/options"
)

// Re-exported types so callers never need to import the internal packages
// directly. Index, Segment, and Txn are the handles returned by Store's
// methods; Iter is whatever those handles' own iteration methods return.
type (
	Index   = index.Index
	Segment = segment.Segment
	Txn     = txn.Txn
	Flags   = txn.Flags
)

// Store is the embedder-facing handle on one running instance: one Env,
// any number of Indexes and Segments opened against it, sharing one
// background checkpoint worker and one lock manager.
type Store struct {
	engine  *engine.Engine
	options *options.Options
}

// Open initializes a Store for service, applying any functional options
// over the package defaults.
func Open(ctx context.Context, service string, opts ...options.OptionFunc) (*Store, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	eng, err := engine.New(ctx, &engine.Config{Logger: log, Options: &defaultOpts})
	if err != nil {
		return nil, err
	}
	return &Store{engine: eng, options: &defaultOpts}, nil
}

// Begin starts a top-level Txn spanning operations on more than one Index
// or Segment.
func (s *Store) Begin(flags Flags) (*Txn, error) {
	return s.engine.Begin(flags)
}

// OpenIndex returns the named catalog, opening it on first reference.
func (s *Store) OpenIndex(ctx context.Context, name string) (*Index, error) {
	return s.engine.OpenIndex(ctx, name)
}

// CloseIndex closes and evicts the cached handle for name, if open.
func (s *Store) CloseIndex(name string) error {
	return s.engine.CloseIndex(name)
}

// OpenSegment returns the segment sid within indexName, opening it on
// first reference. The id must already have been allocated through that
// Index's NewSegment.
func (s *Store) OpenSegment(ctx context.Context, indexName string, sid uint64) (*Segment, error) {
	return s.engine.OpenSegment(ctx, indexName, sid)
}

// CloseSegment closes and evicts the cached handle for sid within
// indexName, if open.
func (s *Store) CloseSegment(indexName string, sid uint64) error {
	return s.engine.CloseSegment(indexName, sid)
}

// DeleteSegment marks sid within indexName for removal and closes it
// immediately if currently open, so its backing file is removed without
// waiting for a later CloseSegment.
func (s *Store) DeleteSegment(indexName string, sid uint64) error {
	return s.engine.DeleteSegment(indexName, sid)
}

// Close shuts down every open Index and Segment, then the Env itself.
func (s *Store) Close(ctx context.Context) error {
	return s.engine.Close()
}

// LogFD returns the read end of the process-wide log pipe. Only loggers
// whose core comes from logpipe.Core write to the pipe's write end; the
// logger Open builds (logger.New), which the Env, its background worker
// and every Index and Segment log through, does not, so the pipe carries
// none of this package's own log lines.
func LogFD() (*os.File, error) {
	return logpipe.LogFD()
}

// Kind classifies any error this package can return into the error surface
// spec.md §7 documents. It returns ErrKindError, the catch-all, for errors
// that don't carry one of the package's structured codes.
type ErrKind int

const (
	ErrKindError ErrKind = iota
	ErrKindDeadlock
	ErrKindLockTimeout
	ErrKindDocExists
	ErrKindKeyError
	ErrKindIndexError
	ErrKindInvalidTxn
	ErrKindMalformed
)

func (k ErrKind) String() string {
	switch k {
	case ErrKindDeadlock:
		return "Deadlock"
	case ErrKindLockTimeout:
		return "LockTimeout"
	case ErrKindDocExists:
		return "DocExists"
	case ErrKindKeyError:
		return "KeyError"
	case ErrKindIndexError:
		return "IndexError"
	case ErrKindInvalidTxn:
		return "InvalidTxn"
	case ErrKindMalformed:
		return "Malformed"
	default:
		return "Error"
	}
}

// Kind reports which of the table in spec.md §7 err belongs to.
func Kind(err error) ErrKind {
	if err == nil {
		return ErrKindError
	}
	switch appErrors.GetErrorCode(err) {
	case appErrors.ErrorCodeDeadlock:
		return ErrKindDeadlock
	case appErrors.ErrorCodeLockTimeout:
		return ErrKindLockTimeout
	case appErrors.ErrorCodeDocExists:
		return ErrKindDocExists
	case appErrors.ErrorCodeIndexKeyNotFound:
		return ErrKindKeyError
	case appErrors.ErrorCodeOutOfRange:
		return ErrKindIndexError
	case appErrors.ErrorCodeInvalidTxn:
		return ErrKindInvalidTxn
	case appErrors.ErrorCodeMalformed:
		return ErrKindMalformed
	default:
		return ErrKindError
	}
}

// IsRetryable reports whether the documented recovery for err is "retry the
// whole Txn from Begin" — true only for Deadlock, per spec.md §7.
func IsRetryable(err error) bool {
	return Kind(err) == ErrKindDeadlock
}
