package staffing

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes staffing errors.
type ErrorCode string

const (
	// ErrCodeUnknownRank indicates the rank key is not in the rank table.
	ErrCodeUnknownRank ErrorCode = "UNKNOWN_RANK"

	// ErrCodeNotMember indicates the user is not in the guild.
	ErrCodeNotMember ErrorCode = "NOT_MEMBER"

	// ErrCodeAlreadyStaff indicates a hire of someone already employed.
	ErrCodeAlreadyStaff ErrorCode = "ALREADY_STAFF"

	// ErrCodeNotStaff indicates the user has no current staff record.
	ErrCodeNotStaff ErrorCode = "NOT_STAFF"

	// ErrCodeRankFull indicates the rank has reached its configured limit.
	ErrCodeRankFull ErrorCode = "RANK_FULL"

	// ErrCodeInvalidPromotion indicates the target rank is not above the
	// current one.
	ErrCodeInvalidPromotion ErrorCode = "INVALID_PROMOTION"

	// ErrCodeValidation indicates pre-operation validation found a critical
	// integrity issue.
	ErrCodeValidation ErrorCode = "VALIDATION_FAILED"
)

// Error is a staffing rule violation.
type Error struct {
	Code    ErrorCode
	Message string
	UserID  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.UserID != "" {
		return fmt.Sprintf("%s: %s (user=%s)", e.Code, e.Message, e.UserID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Code returns the error code of a staffing error, or "" for other errors.
func Code(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsRankFull returns true if the error is a rank limit violation.
func IsRankFull(err error) bool {
	return Code(err) == ErrCodeRankFull
}

func newError(code ErrorCode, userID, format string, args ...any) *Error {
	return &Error{Code: code, UserID: userID, Message: fmt.Sprintf(format, args...)}
}
