package transport

import (
	"errors"
	"fmt"
)

// Common errors for the reliable transport
var (
	// ErrClosed indicates the connection has been closed
	ErrClosed = errors.New("connection closed")

	// ErrTimeout indicates a deadline passed before the operation completed
	ErrTimeout = errors.New("operation timed out")

	// ErrEmptyWrite indicates Flush was called with no data
	ErrEmptyWrite = errors.New("cannot flush empty data")

	// ErrNoRemote indicates a send was attempted before the remote address was known
	ErrNoRemote = errors.New("remote address unknown")

	// ErrNilSocket indicates a connection was created without a datagram socket
	ErrNilSocket = errors.New("datagram socket cannot be nil")

	// ErrFrameTooShort indicates a datagram ended before the frame did
	ErrFrameTooShort = errors.New("frame too short")

	// ErrUnknownFrameType indicates an unrecognised frame type byte
	ErrUnknownFrameType = errors.New("unknown frame type")

	// ErrInvalidLength indicates a PUSH length of zero or above the MTU
	ErrInvalidLength = errors.New("invalid push length")
)

// Error represents a transport error with additional context
type Error struct {
	Op   string // operation that caused the error
	Addr string // remote address if relevant
	Err  error  // underlying error
}

func (e *Error) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("seqlink %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("seqlink %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the error was caused by a deadline, which lets
// callers treat it like a net.Error.
func (e *Error) Timeout() bool {
	return errors.Is(e.Err, ErrTimeout)
}

// Temporary is kept for net.Error compatibility.
func (e *Error) Temporary() bool {
	return e.Timeout()
}

// newError creates a new Error
func newError(op, addr string, err error) *Error {
	return &Error{
		Op:   op,
		Addr: addr,
		Err:  err,
	}
}
