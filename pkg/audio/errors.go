package audio

import (
	"errors"
	"fmt"
)

// Status codes. 0 is success; codes below are produced by this client or by
// the voice service for malformed calls. Any other non-zero code comes from
// the robot unchanged.
const (
	StatusOK int32 = 0

	// Client side.
	StatusNotInitialized int32 = 3101
	StatusSendFailed     int32 = 3102
	StatusBadResponse    int32 = 3103
	StatusTimeout        int32 = 3104
	StatusUnknown        int32 = 3105

	// Service side.
	StatusAPINotFound  int32 = 3203
	StatusBadParameter int32 = 3204
)

// ErrNotInitialized is returned when a call is made before Init.
var ErrNotInitialized = errors.New("audio: client not initialized")

// StatusError is a failed voice service call.
type StatusError struct {
	// API is the method name, e.g. "TtsMaker".
	API string

	// Code is the integer status reported to the caller.
	Code int32

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audio [%s]: status %d: %v", e.API, e.Code, e.Err)
	}
	return fmt.Sprintf("audio [%s]: status %d", e.API, e.Code)
}

// Unwrap returns the underlying error.
func (e *StatusError) Unwrap() error {
	return e.Err
}

// IsTimeout returns true if the call timed out waiting for a reply.
func (e *StatusError) IsTimeout() bool {
	return e.Code == StatusTimeout
}

// IsRemote returns true if the code was reported by the voice service.
func (e *StatusError) IsRemote() bool {
	return e.Code < StatusNotInitialized || e.Code > StatusUnknown
}

// Status maps an error from a Client call to its integer status.
// nil maps to StatusOK.
func Status(err error) int32 {
	if err == nil {
		return StatusOK
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return StatusUnknown
}
