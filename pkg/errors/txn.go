package errors

import (
	stdErrors "errors"
)

// TxnError is a specialized error type for transaction lifecycle failures:
// deadlock victim selection, lock wait timeouts, and use of a handle after
// commit or abort. It embeds baseError to inherit the standard chaining and
// detail-bag behavior, then adds the context a caller needs to decide
// whether to retry.
type TxnError struct {
	*baseError

	// txnID identifies the transaction handle the failure applies to.
	txnID uint64

	// retryable is true for failures whose documented recovery is "retry the
	// whole transaction from begin" (Deadlock), false otherwise.
	retryable bool
}

// NewTxnError creates a new transaction-specific error with the provided context.
func NewTxnError(err error, code ErrorCode, msg string) *TxnError {
	return &TxnError{baseError: NewBaseError(err, code, msg)}
}

// WithMessage updates the error message while maintaining the TxnError type.
func (te *TxnError) WithMessage(msg string) *TxnError {
	te.baseError.WithMessage(msg)
	return te
}

// WithCode sets the error code while preserving the TxnError type.
func (te *TxnError) WithCode(code ErrorCode) *TxnError {
	te.baseError.WithCode(code)
	return te
}

// WithDetail adds contextual information while maintaining the TxnError type.
func (te *TxnError) WithDetail(key string, value any) *TxnError {
	te.baseError.WithDetail(key, value)
	return te
}

// WithTxnID records which transaction handle the failure belongs to.
func (te *TxnError) WithTxnID(id uint64) *TxnError {
	te.txnID = id
	return te
}

// WithRetryable marks whether the caller's documented recovery is to retry
// the whole transaction from begin.
func (te *TxnError) WithRetryable(retryable bool) *TxnError {
	te.retryable = retryable
	return te
}

// TxnID returns the transaction handle identifier associated with the error.
func (te *TxnError) TxnID() uint64 {
	return te.txnID
}

// Retryable reports whether the caller should retry the whole transaction.
func (te *TxnError) Retryable() bool {
	return te.retryable
}

// NewDeadlockError creates the error returned when the lock manager breaks a
// wait-for cycle by rejecting this transaction.
func NewDeadlockError(txnID uint64) *TxnError {
	return NewTxnError(nil, ErrorCodeDeadlock, "transaction aborted to break a lock cycle").
		WithTxnID(txnID).
		WithRetryable(true).
		WithDetail("recovery", "retry the whole transaction from begin")
}

// NewLockTimeoutError creates the error returned when a lock request exceeds
// its configured wait budget.
func NewLockTimeoutError(txnID uint64, key string) *TxnError {
	return NewTxnError(nil, ErrorCodeLockTimeout, "lock wait exceeded limit").
		WithTxnID(txnID).
		WithDetail("key", key)
}

// NewInvalidTxnError creates the error returned when an operation targets a
// transaction handle that has already been committed or aborted.
func NewInvalidTxnError(txnID uint64) *TxnError {
	return NewTxnError(nil, ErrorCodeInvalidTxn, "transaction handle already terminated").
		WithTxnID(txnID).
		WithRetryable(false)
}

// IsTxnError checks if the given error is a TxnError or contains one in its
// error chain.
func IsTxnError(err error) bool {
	var te *TxnError
	return stdErrors.As(err, &te)
}

// AsTxnError extracts a TxnError from an error chain.
func AsTxnError(err error) (*TxnError, bool) {
	var te *TxnError
	if stdErrors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsDeadlock reports whether err is (or wraps) a deadlock TxnError.
func IsDeadlock(err error) bool {
	te, ok := AsTxnError(err)
	return ok && te.Code() == ErrorCodeDeadlock
}
