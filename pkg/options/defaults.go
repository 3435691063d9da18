package options

const (
	// DefaultEnvDir is the default environment directory (log + environment files).
	DefaultEnvDir = "/var/lib/ember/env"

	// DefaultDataDir is the default base directory for index and segment data files.
	DefaultDataDir = "/var/lib/ember/data"

	// DefaultTmpDir is the default directory for temporary cursors and merges.
	DefaultTmpDir = "/var/lib/ember/tmp"

	// DefaultCacheSize is the default shared buffer cache size (64MB).
	DefaultCacheSize uint64 = 64 * 1024 * 1024

	// DefaultMaxLockers is the default for MaxLockers.
	DefaultMaxLockers uint32 = 1000

	// DefaultMaxLocks is the default for MaxLocks.
	DefaultMaxLocks uint32 = 10000

	// DefaultMaxObjects is the default for MaxObjects, the ceiling on
	// concurrently open iterator cursors.
	DefaultMaxObjects uint32 = 10000

	// Represents the minimum allowed size for a segment file in bytes (512MB).
	MinSegmentSize uint64 = 512 * 1024 * 1024

	// Represents the maximum allowed size for a segment file in bytes (4GB).
	MaxSegmentSize uint64 = 4 * 1024 * 1024 * 1024

	// Specifies the default target size for a new segment file in bytes (1GB).
	DefaultSegmentSize uint64 = 1 * 1024 * 1024 * 1024

	// Defines the default for SegmentOptions.Prefix. Segment data files
	// are named "<index>.<sid>" (e.g. "logs.1") regardless of it.
	DefaultSegmentPrefix = "segment"
)

// Holds the default configuration settings for an Env instance.
var defaultOptions = Options{
	EnvDir:     DefaultEnvDir,
	DataDir:    DefaultDataDir,
	TmpDir:     DefaultTmpDir,
	CacheSize:  DefaultCacheSize,
	MaxLockers: DefaultMaxLockers,
	MaxLocks:   DefaultMaxLocks,
	MaxObjects: DefaultMaxObjects,
	SegmentOptions: &segmentOptions{
		Size:   DefaultSegmentSize,
		Prefix: DefaultSegmentPrefix,
	},
}

func NewDefaultOptions() Options {
	opts := defaultOptions
	segOpts := *defaultOptions.SegmentOptions
	opts.SegmentOptions = &segOpts
	return opts
}
