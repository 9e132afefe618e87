package queue

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes queue errors.
type ErrorCode string

const (
	// ErrCodeTimeout indicates an operation waited past the queue timeout.
	ErrCodeTimeout ErrorCode = "QUEUE_TIMEOUT"

	// ErrCodeCleared indicates the queue was cleared while the operation waited.
	ErrCodeCleared ErrorCode = "QUEUE_CLEARED"

	// ErrCodePanic indicates the operation panicked.
	ErrCodePanic ErrorCode = "OPERATION_PANIC"
)

// Error is returned to a caller whose operation did not run to completion
// for a queue-level reason. Errors returned by the work itself are passed
// through unchanged.
type Error struct {
	Code        ErrorCode
	Message     string
	OperationID string
	ActorID     string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.OperationID != "" {
		return fmt.Sprintf("%s: %s (operation=%s)", e.Code, e.Message, e.OperationID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsTimeout returns true if the error is a queue timeout.
// Uses errors.As to handle wrapped errors.
func IsTimeout(err error) bool {
	return hasCode(err, ErrCodeTimeout)
}

// IsCleared returns true if the operation was dropped by Clear.
func IsCleared(err error) bool {
	return hasCode(err, ErrCodeCleared)
}

// IsPanic returns true if the operation panicked.
func IsPanic(err error) bool {
	return hasCode(err, ErrCodePanic)
}

func hasCode(err error, code ErrorCode) bool {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}

func newTimeoutError(op *operation, waited string) *Error {
	return &Error{
		Code:        ErrCodeTimeout,
		Message:     fmt.Sprintf("operation still queued after %s", waited),
		OperationID: op.info.ID,
		ActorID:     op.info.ActorID,
	}
}

func newClearedError(op *operation) *Error {
	return &Error{
		Code:        ErrCodeCleared,
		Message:     "queue cleared before operation ran",
		OperationID: op.info.ID,
		ActorID:     op.info.ActorID,
	}
}

func newPanicError(op *operation, recovered any) *Error {
	return &Error{
		Code:        ErrCodePanic,
		Message:     fmt.Sprintf("operation panicked: %v", recovered),
		OperationID: op.info.ID,
		ActorID:     op.info.ActorID,
	}
}
