package errors

// IndexError provides specialized error handling for catalog (TOC)
// operations: schema field registration, segment-list bookkeeping, and the
// cached nfields/nsegments counters. This structure extends the base error
// system with catalog-specific context while properly supporting method
// chaining through all base error methods.
type IndexError struct {
	// Embed the base error to inherit all standard error functionality
	// including error chaining, structured details, and error codes.
	*baseError

	// Identifies which field or segment-id key was being processed when the
	// error occurred, rendered as a string for logging.
	key string

	// sid identifies the segment record-number involved, if applicable.
	sid uint64

	// Describes what catalog operation was being performed when the error
	// occurred (e.g., "AddField", "NewSegment", "DeleteSegment").
	operation string

	// Captures the cached counter (nfields or nsegments) at the time of the
	// error, for diagnosing drift between the cache and a full scan.
	cachedCount int
}

// NewIndexError creates a new catalog-specific error with the provided context.
func NewIndexError(err error, code ErrorCode, msg string) *IndexError {
	return &IndexError{baseError: NewBaseError(err, code, msg)}
}

// Override base error methods to return *IndexError instead of *baseError.

// WithMessage updates the error message while maintaining the IndexError type.
func (ie *IndexError) WithMessage(msg string) *IndexError {
	ie.baseError.WithMessage(msg)
	return ie
}

// WithCode sets the error code while preserving the IndexError type.
func (ie *IndexError) WithCode(code ErrorCode) *IndexError {
	ie.baseError.WithCode(code)
	return ie
}

// WithDetail adds contextual information while maintaining the IndexError type.
func (ie *IndexError) WithDetail(key string, value any) *IndexError {
	ie.baseError.WithDetail(key, value)
	return ie
}

// WithKey records which field name or catalog key was being processed.
func (ie *IndexError) WithKey(key string) *IndexError {
	ie.key = key
	return ie
}

// WithSegmentID captures which segment record-number was involved.
func (ie *IndexError) WithSegmentID(sid uint64) *IndexError {
	ie.sid = sid
	return ie
}

// WithOperation records what catalog operation was being performed.
func (ie *IndexError) WithOperation(operation string) *IndexError {
	ie.operation = operation
	return ie
}

// WithCachedCount captures the cached counter value at the time of the error.
func (ie *IndexError) WithCachedCount(count int) *IndexError {
	ie.cachedCount = count
	return ie
}

// Key returns the field name or catalog key that was being processed.
func (ie *IndexError) Key() string {
	return ie.key
}

// SegmentID returns the segment record-number associated with the error.
func (ie *IndexError) SegmentID() uint64 {
	return ie.sid
}

// Operation returns the name of the catalog operation that was being performed.
func (ie *IndexError) Operation() string {
	return ie.operation
}

// CachedCount returns the cached counter value recorded at error time.
func (ie *IndexError) CachedCount() int {
	return ie.cachedCount
}

// NewFieldExistsError creates the error returned by add_field when the
// field name already has a schema entry.
func NewFieldExistsError(name string) *IndexError {
	return NewIndexError(nil, ErrorCodeFieldExists, "field already registered in schema").
		WithKey(name).
		WithOperation("AddField")
}

// NewSegmentIDError creates an error for invalid segment ID conditions: a
// delete_segment targeting an sid the catalog never allocated.
func NewSegmentIDError(sid uint64) *IndexError {
	return NewIndexError(nil, ErrorCodeIndexInvalidSegmentID, "segment id not recorded in catalog").
		WithSegmentID(sid).
		WithOperation("DeleteSegment")
}

// NewCounterDriftError creates an error for the case where a cached counter
// (nfields or nsegments) disagrees with a full scan of its backing bucket.
func NewCounterDriftError(operation string, cached, scanned int) *IndexError {
	return NewIndexError(nil, ErrorCodeIndexCorrupted, "cached counter disagrees with full scan").
		WithOperation(operation).
		WithCachedCount(cached).
		WithDetail("scannedCount", scanned)
}
