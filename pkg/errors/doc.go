package errors

import stdErrors "errors"

// DocError is a specialized error type covering the document/posting
// uniqueness contract and positional lookups: DocExists on a duplicate
// new_event/new_posting, KeyError on a missing get/delete target, and
// IndexError (in the skip() sense, not the catalog sense) on an absent
// seek target. It embeds baseError for the standard chaining behavior.
type DocError struct {
	*baseError

	// key identifies which codec-encoded key the operation targeted. Stored
	// as the already-rendered key for logging; callers needing the typed
	// value should hold onto it themselves before calling into this layer.
	key string
}

// NewDocError creates a new document-specific error with the provided context.
func NewDocError(err error, code ErrorCode, msg string) *DocError {
	return &DocError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the DocError type.
func (de *DocError) WithMessage(msg string) *DocError {
	de.baseError.WithMessage(msg)
	return de
}

// WithDetail adds contextual information while maintaining the DocError type.
func (de *DocError) WithDetail(key string, value any) *DocError {
	de.baseError.WithDetail(key, value)
	return de
}

// WithKey records which key the failing operation targeted.
func (de *DocError) WithKey(key string) *DocError {
	de.key = key
	return de
}

// Key returns the key the failing operation targeted.
func (de *DocError) Key() string {
	return de.key
}

// NewDocExistsError creates the error returned when a unique-insert
// operation (new_event, new posting) finds an existing entry at the key.
func NewDocExistsError(key string) *DocError {
	return NewDocError(nil, ErrorCodeDocExists, "entry already exists").WithKey(key)
}

// NewKeyNotFoundError creates the error returned by get/delete when the
// target key is absent from the backing store.
func NewKeyNotFoundError(key string) *DocError {
	return NewDocError(nil, ErrorCodeIndexKeyNotFound, "key not found").WithKey(key)
}

// NewOutOfRangeError creates the error returned by skip() when the caller's
// target value has no corresponding key in the iterator's backing store.
func NewOutOfRangeError(key string) *DocError {
	return NewDocError(nil, ErrorCodeOutOfRange, "skip target not present in range").WithKey(key)
}

// IsDocError checks if the given error is a DocError or contains one in its
// error chain.
func IsDocError(err error) bool {
	var de *DocError
	return stdErrors.As(err, &de)
}

// AsDocError extracts a DocError from an error chain.
func AsDocError(err error) (*DocError, bool) {
	var de *DocError
	if stdErrors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsDocExists reports whether err is (or wraps) a DocExists DocError.
func IsDocExists(err error) bool {
	de, ok := AsDocError(err)
	return ok && de.Code() == ErrorCodeDocExists
}

// IsKeyNotFound reports whether err is (or wraps) a KeyError DocError.
func IsKeyNotFound(err error) bool {
	de, ok := AsDocError(err)
	return ok && de.Code() == ErrorCodeIndexKeyNotFound
}
