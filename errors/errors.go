// Package errors defines the error taxonomy of the relay.
//
// Handshake failures carry a machine-readable code so the transport can close
// the connection with a reason the client can act on. Everything else is a
// sentinel value wrapped with fmt.Errorf("%w: ...") at the call site.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Is and As re-export the standard helpers so callers importing this package
// do not need a second errors import.
func Is(err, target error) bool     { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrRoomClosed     = fmt.Errorf("room closed")
	ErrNotRunning     = fmt.Errorf("registry not running")
	ErrConnClosed     = fmt.Errorf("connection closed")
	ErrSendBufferFull = fmt.Errorf("send buffer full")
	ErrEmptyWords     = fmt.Errorf("no words have been found")
	ErrNoTranscriber  = fmt.Errorf("no transcriber configured")
	ErrNotAudio       = fmt.Errorf("payload is not audio")
)

// Handshake rejection codes. They double as websocket close reasons so a
// client can distinguish "fix your join frame and retry" cases.
const (
	CodeBadFrame            = "bad_frame"
	CodeBadRoom             = "bad_room"
	CodeDuplicateID         = "duplicate_participant"
	CodeUnsupportedLanguage = "unsupported_language"
	CodeRoomFull            = "room_full"
	CodeServerFull          = "server_full"
	CodeBadToken            = "bad_token"
)

// HandshakeError rejects a join before the participant ever becomes active.
// Recoverable by reconnecting with corrected data.
type HandshakeError struct {
	Code   string
	Reason string
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake rejected (%s): %s", e.Code, e.Reason)
}

func NewHandshakeError(code, format string, args ...any) *HandshakeError {
	return &HandshakeError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

// AsHandshakeError unwraps err into a HandshakeError if it is one.
func AsHandshakeError(err error) (*HandshakeError, bool) {
	var he *HandshakeError
	ok := As(err, &he)
	return he, ok
}
