package protocol

import (
	"encoding/json"
	"fmt"
)

// Wire error codes carried in error results.
const (
	// CodeProtocolError covers malformed frames, invalid JSON, unknown
	// methods, and invalid params.
	CodeProtocolError = "protocol_error"

	// CodeNotFound covers lookups of users, chats, or memberships that do
	// not exist.
	CodeNotFound = "not_found"

	// CodeStoreError covers storage failures, including unique constraint
	// violations.
	CodeStoreError = "store_error"

	// CodeInternal covers handler panics and other unexpected failures.
	CodeInternal = "internal_error"

	// CodeOverloaded is reserved for load shedding. Shed connections are
	// closed without a reply, so this code appears in metrics rather than
	// on the wire.
	CodeOverloaded = "overloaded"
)

// Error is a wire-level error carried inside a response result as
// {"error":{"code":...,"message":...}}.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewError builds a wire error.
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// errorEnvelope is the result body of an error response.
type errorEnvelope struct {
	Error *Error `json:"error"`
}

// AsError probes a response result for an error envelope. Returns nil when
// the result is not an error.
func AsError(result json.RawMessage) *Error {
	if len(result) == 0 {
		return nil
	}
	var env errorEnvelope
	if err := json.Unmarshal(result, &env); err != nil {
		return nil
	}
	if env.Error == nil || env.Error.Code == "" {
		return nil
	}
	return env.Error
}
