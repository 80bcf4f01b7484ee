package ruleerrors

import (
	"github.com/pkg/errors"
)

// Fatal conditions. Any of these means the chain state can no longer be
// trusted to match the rest of the network and block processing must stop.
var (
	// ErrUndoHistoryExceeded indicates that the distance between the head
	// and the last irreversible block reached the maximum undo history.
	ErrUndoHistoryExceeded = newFatalError("ErrUndoHistoryExceeded")

	// ErrHardforkOutOfOrder indicates an attempt to apply a hardfork other
	// than the one following the last applied hardfork.
	ErrHardforkOutOfOrder = newFatalError("ErrHardforkOutOfOrder")

	// ErrUnknownHardfork indicates a hardfork number missing from the
	// hardfork table.
	ErrUnknownHardfork = newFatalError("ErrUnknownHardfork")

	// ErrBlockLogIO indicates a failure to read or append the block log.
	ErrBlockLogIO = newFatalError("ErrBlockLogIO")

	// ErrInvariantViolated indicates that a chain state invariant does not
	// hold.
	ErrInvariantViolated = newFatalError("ErrInvariantViolated")

	// ErrForkRestoreFailed indicates that the previous branch could not be
	// re-applied after a failed fork switch.
	ErrForkRestoreFailed = newFatalError("ErrForkRestoreFailed")

	// ErrChainHalted is returned by every mutation after a fatal error.
	ErrChainHalted = newFatalError("ErrChainHalted")
)

// FatalError identifies a condition block processing cannot recover from.
type FatalError struct {
	message string
	inner   error
}

// Error satisfies the error interface and prints human-readable errors.
func (e FatalError) Error() string {
	if e.inner != nil {
		return e.message + ": " + e.inner.Error()
	}
	return e.message
}

// Unwrap satisfies the errors.Unwrap interface
func (e FatalError) Unwrap() error {
	return e.inner
}

// Cause satisfies the github.com/pkg/errors.Cause interface
func (e FatalError) Cause() error {
	return e.inner
}

func newFatalError(message string) FatalError {
	return FatalError{message: message}
}

// NewErrBlockLogIO wraps an I/O failure of the block log as fatal.
func NewErrBlockLogIO(err error) error {
	return errors.WithStack(FatalError{message: "ErrBlockLogIO", inner: err})
}

// IsFatal returns whether err is, or wraps, a FatalError.
func IsFatal(err error) bool {
	var fatalErr FatalError
	return errors.As(err, &fatalErr)
}
