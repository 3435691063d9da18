// Package options provides data structures and functions for configuring
// the engine. It defines the parameters that control the Env's on-disk
// layout, cache sizing, and locking limits, following the functional
// options pattern used throughout this module.
package options

import (
	"strings"

	appErrors "github.com/iamNilotpal/ember/pkg/errors"
)

// Options holds the configuration parameters accepted by Env's constructor:
// the three directory roots and the five recognized options_map fields
// (cache size, max lockers, max locks, max objects, max transactions).
// Unknown fields passed by a caller building Options by hand are simply
// never read — there is no strict-field validation, mirroring the source
// behavior of ignoring unrecognized options_map entries.
type Options struct {
	// EnvDir is where the store's log and environment files live.
	//
	// Default: "/var/lib/ember/env"
	EnvDir string `json:"envDir"`

	// DataDir is where index and segment data files live: one
	// "<index>.toc" file per catalog and one "<index>.<sid>" file per
	// segment.
	//
	// Default: "/var/lib/ember/data"
	DataDir string `json:"dataDir"`

	// TmpDir is used for temporary cursors and merges.
	//
	// Default: "/var/lib/ember/tmp"
	TmpDir string `json:"tmpDir"`

	// CacheSize bounds the shared buffer cache, in bytes.
	//
	// Default: 64MB
	CacheSize uint64 `json:"cacheSize"`

	// MaxLockers is the locker-count limit (roughly, active Txn handles)
	// handed to the lock manager, which records it but does not enforce it.
	//
	// Default: 1000
	MaxLockers uint32 `json:"maxLockers"`

	// MaxLocks is the lock-count limit across all lockers handed to the
	// lock manager, which records it but does not enforce it.
	//
	// Default: 10000
	MaxLocks uint32 `json:"maxLocks"`

	// MaxObjects bounds the number of concurrently open iterator cursors
	// (the Env's cursor admission semaphore). The lock manager is handed
	// it too but does not cap the number of keys it tracks.
	//
	// Default: 10000
	MaxObjects uint32 `json:"maxObjects"`

	// MaxTransactions is the concurrent-Txn limit. If zero, it is derived
	// at open time as CacheSize / page size, capped at 2^32-1. The Env
	// logs the value at open; nothing limits the number of active Txns
	// by it.
	//
	// Default: 0 (derived)
	MaxTransactions uint32 `json:"maxTransactions"`

	// SegmentOptions holds a segment size and file name prefix that
	// Validate checks; see segmentOptions for how far they take effect.
	SegmentOptions *segmentOptions `json:"segmentOptions"`
}

// Defines configurable parameters for each segment file.
type segmentOptions struct {
	// Size is a maximum segment size, checked by Validate against the
	// bounds below. No component reads it: segments are not rotated or
	// capped by size.
	//
	//  - Default: 1GB
	//  - Maximum: 4GB
	//  - Minimum: 512MB
	Size uint64 `json:"maxSegmentSize"`

	// Prefix is a file name prefix checked by Validate. Segment data files
	// are named "<index>.<sid>" (pkg/seginfo) and do not use it.
	//
	// Default: "segment"
	Prefix string `json:"prefix"`
}

// OptionFunc is a function type that modifies the engine's configuration.
type OptionFunc func(*Options)

// WithDefaultOptions applies the full set of default configuration values.
func WithDefaultOptions() OptionFunc {
	return func(o *Options) {
		*o = NewDefaultOptions()
	}
}

// WithEnvDir sets the environment directory (log and environment files).
func WithEnvDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.EnvDir = directory
		}
	}
}

// WithDataDir sets the primary data directory for index and segment files.
func WithDataDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.DataDir = directory
		}
	}
}

// WithTmpDir sets the directory used for temporary cursors and merges.
func WithTmpDir(directory string) OptionFunc {
	return func(o *Options) {
		directory = strings.TrimSpace(directory)
		if directory != "" {
			o.TmpDir = directory
		}
	}
}

// WithCacheSize sets the shared buffer cache size, in bytes.
func WithCacheSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.CacheSize = size
		}
	}
}

// WithMaxLockers sets MaxLockers, the lock manager's (unenforced) locker-count limit.
func WithMaxLockers(n uint32) OptionFunc {
	return func(o *Options) {
		if n > 0 {
			o.MaxLockers = n
		}
	}
}

// WithMaxLocks sets MaxLocks, the lock manager's (unenforced) lock-count limit.
func WithMaxLocks(n uint32) OptionFunc {
	return func(o *Options) {
		if n > 0 {
			o.MaxLocks = n
		}
	}
}

// WithMaxObjects sets MaxObjects, the ceiling on concurrently open iterator cursors.
func WithMaxObjects(n uint32) OptionFunc {
	return func(o *Options) {
		if n > 0 {
			o.MaxObjects = n
		}
	}
}

// WithMaxTransactions sets MaxTransactions (recorded, not enforced). Passing 0 restores
// the derive-from-cache-size default applied at Env open.
func WithMaxTransactions(n uint32) OptionFunc {
	return func(o *Options) {
		o.MaxTransactions = n
	}
}

// WithSegmentPrefix sets the file name prefix for segment files.
func WithSegmentPrefix(prefix string) OptionFunc {
	return func(o *Options) {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" {
			o.SegmentOptions.Prefix = prefix
		}
	}
}

// WithSegmentSize sets the maximum size of individual segment files.
func WithSegmentSize(size uint64) OptionFunc {
	return func(o *Options) {
		if size > MinSegmentSize && size < MaxSegmentSize {
			o.SegmentOptions.Size = size
		}
	}
}

// Validate reports whether o is fit to open an Env with: the three
// directory roots are non-blank, SegmentOptions is set, its Size falls
// within [MinSegmentSize, MaxSegmentSize], and its Prefix is a non-blank
// alphanumeric/-/_ file name component. internal/engine.New calls this
// before ever touching the filesystem, so a misconfigured caller gets a
// *errors.ValidationError naming the offending field instead of an opaque
// failure deep inside envkv.Open.
func (o *Options) Validate() error {
	if strings.TrimSpace(o.EnvDir) == "" {
		return appErrors.NewRequiredFieldError("EnvDir")
	}
	if strings.TrimSpace(o.DataDir) == "" {
		return appErrors.NewRequiredFieldError("DataDir")
	}
	if strings.TrimSpace(o.TmpDir) == "" {
		return appErrors.NewRequiredFieldError("TmpDir")
	}

	if o.SegmentOptions == nil {
		return appErrors.NewConfigurationValidationError(
			"SegmentOptions", "segment options must be set, e.g. via WithDefaultOptions",
		)
	}
	if o.SegmentOptions.Size < MinSegmentSize || o.SegmentOptions.Size > MaxSegmentSize {
		return appErrors.NewFieldRangeError("SegmentOptions.Size", o.SegmentOptions.Size, MinSegmentSize, MaxSegmentSize)
	}
	if strings.TrimSpace(o.SegmentOptions.Prefix) == "" {
		return appErrors.NewRequiredFieldError("SegmentOptions.Prefix")
	}
	if !isValidSegmentPrefix(o.SegmentOptions.Prefix) {
		return appErrors.NewFieldFormatError("SegmentOptions.Prefix", o.SegmentOptions.Prefix, "alphanumeric, '-', or '_' only")
	}

	return nil
}

func isValidSegmentPrefix(prefix string) bool {
	for _, r := range prefix {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
