package cipher

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ytget/ytfetch/errs"
)

// Error codes
const (
	ErrCodePlayerNotFound        = "PLAYER_NOT_FOUND"
	ErrCodePlayerDownload        = "PLAYER_DOWNLOAD_FAILED"
	ErrCodeFunctionNameNotFound  = "CIPHER_FUNCTION_NAME_NOT_FOUND"
	ErrCodeFunctionBodyNotFound  = "CIPHER_FUNCTION_BODY_NOT_FOUND"
	ErrCodeHelperNotFound        = "HELPER_FUNCTION_NOT_FOUND"
	ErrCodeUnparsableInstruction = "UNPARSABLE_INSTRUCTION"
)

// Error represents a structured error with code and details
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`

	cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Details)
	}
	if e.cause != nil && e.Code == ErrCodePlayerDownload {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap exposes the transport error for download failures and
// errs.ErrPlatformFormatChanged for every extraction failure.
func (e *Error) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return errs.ErrPlatformFormatChanged
}

// MarshalJSON implements json.Marshaler
func (e *Error) MarshalJSON() ([]byte, error) {
	type Alias Error
	return json.Marshal(&struct {
		*Alias
		Error string `json:"error"`
	}{
		Alias: (*Alias)(e),
		Error: e.Error(),
	})
}

// NewError creates a new Error with the given code and message
func NewError(code string, message string, details ...any) *Error {
	e := &Error{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

func downloadError(playerURL string, cause error) *Error {
	e := NewError(ErrCodePlayerDownload, "failed to download player script", playerURL)
	e.cause = cause
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsNotFound returns true if a lookup in the page or player script failed
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case ErrCodePlayerNotFound, ErrCodeFunctionNameNotFound, ErrCodeFunctionBodyNotFound, ErrCodeHelperNotFound:
		return true
	}
	return false
}

// IsUnparsable returns true if a statement of the decode function had an unknown shape
func IsUnparsable(err error) bool {
	return CodeOf(err) == ErrCodeUnparsableInstruction
}
