package protocol

import (
	"errors"
	"fmt"

	"github.com/moffa90/go-copier/port"
)

// ErrUserAbort is returned when the user cancels a transfer.
var ErrUserAbort = errors.New("transfer aborted by user")

// ErrUnsupported is returned when a copier family cannot perform an operation.
var ErrUnsupported = errors.New("operation not supported by this copier")

// PortInitError is returned when the parallel port cannot be opened or the
// copier does not respond to the initial probe. It is the error port.Open
// returns.
type PortInitError = port.InitError

// ProtocolSizeError is returned when a size negotiated with the copier or
// derived from a file header is unusable.
type ProtocolSizeError struct {
	// Operation is what was being sized
	Operation string

	// Size is the offending value
	Size int64

	// Reason describes the problem
	Reason string
}

func (e *ProtocolSizeError) Error() string {
	return fmt.Sprintf("%s: invalid size %d: %s", e.Operation, e.Size, e.Reason)
}

// SyncTimeoutError is returned when the copier fails to answer a handshake
// within its poll budget, or when a resync sequence is not acknowledged.
//
// A SyncTimeoutError is retryable unless Fatal is set. Fatal errors come
// from exhausted retry budgets and failed resynchronisation loops.
type SyncTimeoutError struct {
	// Operation is the handshake step that timed out
	Operation string

	// Attempts is the number of polls or attempts spent
	Attempts int

	// Fatal marks an error that must not be retried
	Fatal bool

	// Err is the last underlying failure, if any
	Err error
}

func (e *SyncTimeoutError) Error() string {
	msg := fmt.Sprintf("%s: copier not responding after %d attempts", e.Operation, e.Attempts)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncTimeoutError) Unwrap() error {
	return e.Err
}

// ChecksumError is returned when a block checksum does not match.
type ChecksumError struct {
	// Operation is the transfer step
	Operation string

	// Expected is the locally computed checksum
	Expected byte

	// Actual is the checksum sent by the copier
	Actual byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%s: checksum mismatch (expected 0x%02X, got 0x%02X)", e.Operation, e.Expected, e.Actual)
}

// FlashError is returned when a flash erase or program cycle reports failure
// in the chip status register.
type FlashError struct {
	// Operation is the flash command that failed
	Operation string

	// Address is the flash address of the failed command
	Address uint32

	// Status is the flash status register value
	Status byte
}

func (e *FlashError) Error() string {
	return fmt.Sprintf("%s at 0x%06X failed: %s (status 0x%02X)", e.Operation, e.Address, flashStatusName(e.Status), e.Status)
}

// TransferIOError wraps a local file failure.
type TransferIOError struct {
	// Path is the file involved
	Path string

	// Op is the file operation (open, read, write, seek)
	Op string

	// Err is the underlying cause
	Err error
}

func (e *TransferIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *TransferIOError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err may be cleared by resynchronising the link
// and retrying the same chunk.
func IsRetryable(err error) bool {
	var ce *ChecksumError
	if errors.As(err, &ce) {
		return true
	}
	var se *SyncTimeoutError
	if errors.As(err, &se) {
		return !se.Fatal
	}
	return false
}

// IsFatal reports whether err ends the session. Everything that is not
// retryable is fatal, including user aborts.
func IsFatal(err error) bool {
	return err != nil && !IsRetryable(err)
}

// IsSyncTimeout returns true if the error is a SyncTimeoutError.
func IsSyncTimeout(err error) bool {
	var se *SyncTimeoutError
	return errors.As(err, &se)
}

// IsSizeError returns true if the error is a ProtocolSizeError.
func IsSizeError(err error) bool {
	var se *ProtocolSizeError
	return errors.As(err, &se)
}

// flashStatusName returns a human-readable name for the flash status error bits.
func flashStatusName(status byte) string {
	switch {
	case status&FlashStatusVppErr != 0:
		return "programming voltage low"
	case status&FlashStatusEraseErr != 0 && status&FlashStatusProgramErr != 0:
		return "command sequence error"
	case status&FlashStatusEraseErr != 0:
		return "erase error"
	case status&FlashStatusProgramErr != 0:
		return "program error"
	default:
		return "unknown error"
	}
}
