package errors

import stdErrors "errors"

// CodecError is a specialized error type for the tagged-value serializer:
// malformed input during load/compare, or an unsupported Go value passed to
// dump. It embeds baseError for the standard chaining and detail bag.
type CodecError struct {
	*baseError

	// offset is the byte position within the buffer where parsing stopped,
	// or -1 when not applicable (e.g. UnsupportedType).
	offset int
}

// NewCodecError creates a new codec-specific error with the provided context.
func NewCodecError(err error, code ErrorCode, msg string) *CodecError {
	return &CodecError{baseError: NewBaseError(err, code, msg), offset: -1}
}

// WithMessage updates the error message while maintaining the CodecError type.
func (ce *CodecError) WithMessage(msg string) *CodecError {
	ce.baseError.WithMessage(msg)
	return ce
}

// WithDetail adds contextual information while maintaining the CodecError type.
func (ce *CodecError) WithDetail(key string, value any) *CodecError {
	ce.baseError.WithDetail(key, value)
	return ce
}

// WithOffset records where in the buffer parsing failed.
func (ce *CodecError) WithOffset(offset int) *CodecError {
	ce.offset = offset
	return ce
}

// Offset returns the byte position where parsing failed, or -1 if not applicable.
func (ce *CodecError) Offset() int {
	return ce.offset
}

// NewMalformedError creates the error returned by load() on truncated or
// tag-invalid input.
func NewMalformedError(offset int, reason string) *CodecError {
	return NewCodecError(nil, ErrorCodeMalformed, "malformed codec buffer: "+reason).
		WithOffset(offset)
}

// NewUnsupportedTypeError creates the error returned by dump() when asked to
// serialize a value outside the codec's value universe.
func NewUnsupportedTypeError(goType string) *CodecError {
	return NewCodecError(nil, ErrorCodeUnsupportedType, "value type not representable by the codec").
		WithDetail("goType", goType)
}

// IsCodecError checks if the given error is a CodecError or contains one in
// its error chain.
func IsCodecError(err error) bool {
	var ce *CodecError
	return stdErrors.As(err, &ce)
}

// AsCodecError extracts a CodecError from an error chain.
func AsCodecError(err error) (*CodecError, bool) {
	var ce *CodecError
	if stdErrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
