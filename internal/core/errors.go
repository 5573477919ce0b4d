package core

import (
	"errors"
	"fmt"
	"strconv"
)

// Error kinds. Every typed error below matches its kind through errors.Is.
var (
	// ErrFrame indicates malformed frame bytes.
	ErrFrame = errors.New("malformed frame")
	// ErrProtocol indicates a server error frame or a structurally illegal frame.
	ErrProtocol = errors.New("protocol error")
	// ErrSession indicates the server failed, cancelled or rejected the session.
	ErrSession = errors.New("session error")
	// ErrTransport indicates a channel-level failure.
	ErrTransport = errors.New("transport error")
	// ErrValidation indicates unmet caller preconditions.
	ErrValidation = errors.New("validation error")
	// ErrEmptyStream indicates a session that finished without any audio.
	ErrEmptyStream = errors.New("server returned no audio data")
)

// FrameError reports bytes that cannot be decoded into, or encoded from, a message.
type FrameError struct {
	Reason string
}

func (e *FrameError) Error() string {
	return "malformed frame: " + e.Reason
}

// Is reports whether target is ErrFrame.
func (e *FrameError) Is(target error) bool {
	return target == ErrFrame
}

// NewFrameError formats a FrameError.
func NewFrameError(format string, args ...any) *FrameError {
	return &FrameError{Reason: fmt.Sprintf(format, args...)}
}

// ProtocolError carries the code and decoded text of a server Error frame.
type ProtocolError struct {
	Code    uint32
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Code == 0 {
		return "protocol error: " + e.Message
	}

	return fmt.Sprintf("server returned error %d: %s", e.Code, e.Message)
}

// Is reports whether target is ErrProtocol.
func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// SessionError reports a session that the server failed, cancelled or
// finished with a non-success status code.
type SessionError struct {
	Event      string
	StatusCode int64
	Message    string
}

func (e *SessionError) Error() string {
	msg := e.Message
	if msg == "" && e.StatusCode != 0 {
		msg = "status_code=" + strconv.FormatInt(e.StatusCode, 10)
	}

	return fmt.Sprintf("session %s: %s", e.Event, msg)
}

// Is reports whether target is ErrSession.
func (e *SessionError) Is(target error) bool {
	return target == ErrSession
}

// TransportError wraps a channel-level failure.
type TransportError struct {
	Op   string
	Hint string
	Err  error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("transport %s: %v", e.Op, e.Err)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}

	return msg
}

// Unwrap returns the underlying channel error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// ValidationError reports an unmet caller precondition.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Message
	}

	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
