// Package engine coordinates the Env, Index (TOC), and Segment layers
// into the single entry point pkg/store exposes to embedders: one Env per
// process, any number of named Indexes opened against it, and any number
// of Segment handles opened against those Indexes, all sharing one
// background checkpoint worker and one lock manager.
package engine

import (
	"context"
	stdErrors "errors"
	"sync"
	"sync/atomic"

	"github.com/iamNilotpal/ember/internal/envkv"
	"github.com/iamNilotpal/ember/internal/index"
	"github.com/iamNilotpal/ember/internal/segment"
	"github.com/iamNilotpal/ember/internal/txn"
	"github.com/iamNilotpal/ember/pkg/options"
	"github.com/iamNilotpal/ember/pkg/seginfo"
	"go.uber.org/zap"
)

// ErrEngineClosed is returned when attempting to perform operations on a
// closed engine.
var ErrEngineClosed = stdErrors.New("operation failed: cannot access closed engine")

// Engine is the top-level coordinator: it owns the Env and caches every
// Index and Segment handle opened through it, so repeated opens of the
// same name are idempotent and Close tears everything down together.
type Engine struct {
	options *options.Options
	log     *zap.SugaredLogger
	env     *envkv.Env

	mu       sync.Mutex
	indexes  map[string]*index.Index
	segments map[string]*segment.Segment

	closed atomic.Bool
}

// Config holds the parameters needed to initialize a new Engine.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// New opens the Env described by config.Options and returns a ready
// Engine with empty Index/Segment caches.
func New(ctx context.Context, config *Config) (*Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, stdErrors.New("engine configuration is required")
	}
	if err := config.Options.Validate(); err != nil {
		return nil, err
	}

	env, err := envkv.Open(ctx, config.Options.EnvDir, config.Options.DataDir, config.Options.TmpDir, *config.Options, config.Logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		options:  config.Options,
		log:      config.Logger,
		env:      env,
		indexes:  make(map[string]*index.Index),
		segments: make(map[string]*segment.Segment),
	}, nil
}

// Begin starts a new top-level Txn directly against the Env, for callers
// that need a transaction spanning operations on more than one Index or
// Segment.
func (e *Engine) Begin(flags txn.Flags) (*txn.Txn, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	return txn.Begin(e.env, nil, flags)
}

// OpenIndex returns the cached Index handle for name, opening it against
// the Env on first reference.
func (e *Engine) OpenIndex(ctx context.Context, name string) (*index.Index, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if idx, ok := e.indexes[name]; ok {
		return idx, nil
	}

	idx, err := index.Open(ctx, &index.Config{Env: e.env, Logger: e.log}, name)
	if err != nil {
		return nil, err
	}
	e.indexes[name] = idx
	return idx, nil
}

// CloseIndex closes and evicts the cached handle for name, if open.
func (e *Engine) CloseIndex(name string) error {
	e.mu.Lock()
	idx, ok := e.indexes[name]
	if ok {
		delete(e.indexes, name)
	}
	e.mu.Unlock()

	if !ok {
		return nil
	}
	return idx.Close()
}

// OpenSegment returns the cached Segment handle for sid within index,
// opening it on first reference. The caller must already have allocated
// sid via the Index's NewSegment.
func (e *Engine) OpenSegment(ctx context.Context, indexName string, sid uint64) (*segment.Segment, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}

	key := seginfo.Name(indexName, sid)

	e.mu.Lock()
	defer e.mu.Unlock()

	if seg, ok := e.segments[key]; ok {
		return seg, nil
	}

	seg, err := segment.Open(ctx, &segment.Config{Env: e.env, Logger: e.log}, indexName, sid)
	if err != nil {
		return nil, err
	}
	e.segments[key] = seg
	return seg, nil
}

// CloseSegment closes and evicts the cached handle for sid within index,
// if open. If the segment was marked for deletion, closing it removes
// its backing data file.
func (e *Engine) CloseSegment(indexName string, sid uint64) error {
	key := seginfo.Name(indexName, sid)

	e.mu.Lock()
	seg, ok := e.segments[key]
	if ok {
		delete(e.segments, key)
	}
	e.mu.Unlock()

	if !ok {
		return nil
	}
	return seg.Close()
}

// DeleteSegment removes the backing file of sid. If the segment is
// currently open, it is marked for removal and closed immediately so the
// file goes without waiting for a later CloseSegment call; otherwise the
// file is removed directly.
func (e *Engine) DeleteSegment(indexName string, sid uint64) error {
	key := seginfo.Name(indexName, sid)

	e.mu.Lock()
	seg, ok := e.segments[key]
	if ok {
		delete(e.segments, key)
	}
	e.mu.Unlock()

	if !ok {
		return e.env.RemoveDB(key)
	}
	seg.Delete()
	return seg.Close()
}

// Close shuts down every cached Index and Segment handle, then the Env
// itself, stopping its background checkpoint worker.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	e.mu.Lock()
	segments := e.segments
	indexes := e.indexes
	e.segments = nil
	e.indexes = nil
	e.mu.Unlock()

	for _, seg := range segments {
		if err := seg.Close(); err != nil {
			e.log.Warnw("error closing segment during engine shutdown", "error", err)
		}
	}
	for _, idx := range indexes {
		if err := idx.Close(); err != nil {
			e.log.Warnw("error closing index during engine shutdown", "error", err)
		}
	}

	return e.env.Close()
}
