package ruleerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// These constants are used to identify a specific RuleError.
var (
	// ErrInvalidTransaction indicates that a transaction failed its own
	// structural validation.
	ErrInvalidTransaction = newRuleError("ErrInvalidTransaction")

	// ErrInvalidOperation indicates that one of the operations of a
	// transaction is malformed.
	ErrInvalidOperation = newRuleError("ErrInvalidOperation")

	// ErrDuplicateTransaction indicates that a transaction with the same id
	// was already applied and has not expired yet.
	ErrDuplicateTransaction = newRuleError("ErrDuplicateTransaction")

	// ErrMissingAuthority indicates that the signatures of a transaction do
	// not satisfy the authorities its operations require.
	ErrMissingAuthority = newRuleError("ErrMissingAuthority")

	// ErrIrrelevantSignature indicates that a transaction carries a
	// signature that is not needed to satisfy any required authority.
	ErrIrrelevantSignature = newRuleError("ErrIrrelevantSignature")

	// ErrBadTransactionSignature indicates that a transaction signature
	// does not verify against the key it names.
	ErrBadTransactionSignature = newRuleError("ErrBadTransactionSignature")

	// ErrTaposMismatch indicates that a transaction references a block
	// this chain does not have at that number.
	ErrTaposMismatch = newRuleError("ErrTaposMismatch")

	// ErrExpiredTransaction indicates that the expiration of a transaction
	// is not later than the head block time.
	ErrExpiredTransaction = newRuleError("ErrExpiredTransaction")

	// ErrExpirationTooFar indicates that a transaction expires later than
	// allowed relative to the head block time.
	ErrExpirationTooFar = newRuleError("ErrExpirationTooFar")

	// ErrTransactionTooBig indicates that a transaction can never fit in a
	// block.
	ErrTransactionTooBig = newRuleError("ErrTransactionTooBig")

	// ErrOperationFailed indicates that an operation evaluator rejected an
	// operation.
	ErrOperationFailed = newRuleError("ErrOperationFailed")

	// ErrUnknownAccount indicates a reference to an account that does not
	// exist.
	ErrUnknownAccount = newRuleError("ErrUnknownAccount")

	// ErrAccountExists indicates an attempt to create an account whose
	// name is taken.
	ErrAccountExists = newRuleError("ErrAccountExists")

	// ErrInsufficientFunds indicates a balance too low for an operation.
	ErrInsufficientFunds = newRuleError("ErrInsufficientFunds")

	// ErrUnknownProducer indicates a reference to an account that is not a
	// block producer.
	ErrUnknownProducer = newRuleError("ErrUnknownProducer")

	// ErrTooManyProducerVotes indicates an account voting for more
	// producers than allowed.
	ErrTooManyProducerVotes = newRuleError("ErrTooManyProducerVotes")

	// ErrUnknownEscrow indicates a reference to an escrow that does not
	// exist.
	ErrUnknownEscrow = newRuleError("ErrUnknownEscrow")

	// ErrEscrowExpired indicates an operation on an escrow after its
	// deadline.
	ErrEscrowExpired = newRuleError("ErrEscrowExpired")

	// ErrUnknownOperation indicates an operation with no registered
	// evaluator.
	ErrUnknownOperation = newRuleError("ErrUnknownOperation")

	// ErrBadMerkleRoot indicates that the transaction merkle root of a
	// block does not match its transactions.
	ErrBadMerkleRoot = newRuleError("ErrBadMerkleRoot")

	// ErrUnexpectedPrevious indicates that a block does not build on the
	// current head.
	ErrUnexpectedPrevious = newRuleError("ErrUnexpectedPrevious")

	// ErrTimeTooOld indicates that a block timestamp is not later than the
	// head block time.
	ErrTimeTooOld = newRuleError("ErrTimeTooOld")

	// ErrTimeNotOnSlot indicates that a block timestamp is not aligned to a
	// slot boundary.
	ErrTimeNotOnSlot = newRuleError("ErrTimeNotOnSlot")

	// ErrWrongProducer indicates that a block was produced by someone other
	// than the producer scheduled for its slot.
	ErrWrongProducer = newRuleError("ErrWrongProducer")

	// ErrBadBlockSignature indicates that a block signature does not
	// verify against its producer's signing key.
	ErrBadBlockSignature = newRuleError("ErrBadBlockSignature")

	// ErrBlockTooBig indicates that a block exceeds the maximum block size.
	ErrBlockTooBig = newRuleError("ErrBlockTooBig")

	// ErrBadHeaderExtension indicates a malformed or disallowed block
	// header extension.
	ErrBadHeaderExtension = newRuleError("ErrBadHeaderExtension")

	// ErrProducerVersionTooOld indicates that a block producer runs a
	// version older than the active hardfork.
	ErrProducerVersionTooOld = newRuleError("ErrProducerVersionTooOld")

	// ErrCheckpointMismatch indicates that a block conflicts with a
	// configured checkpoint.
	ErrCheckpointMismatch = newRuleError("ErrCheckpointMismatch")

	// ErrUnlinkableBlock indicates that the previous block of a block is
	// unknown.
	ErrUnlinkableBlock = newRuleError("ErrUnlinkableBlock")

	// ErrBlockTooOld indicates a block below the retained fork window.
	ErrBlockTooOld = newRuleError("ErrBlockTooOld")

	// ErrNotScheduled indicates an attempt to produce a block for a slot
	// owned by another producer.
	ErrNotScheduled = newRuleError("ErrNotScheduled")

	// ErrWrongSigningKey indicates an attempt to produce a block with a
	// key other than the producer's registered signing key.
	ErrWrongSigningKey = newRuleError("ErrWrongSigningKey")
)

// RuleError identifies a rule violation. It is used to indicate that
// processing of a block or transaction failed due to one of the many validation
// rules. The caller can use type assertions to determine if a failure was
// specifically due to a rule violation.
type RuleError struct {
	message string
	inner   error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	if e.inner != nil {
		return e.message + ": " + e.inner.Error()
	}
	return e.message
}

// Unwrap satisfies the errors.Unwrap interface
func (e RuleError) Unwrap() error {
	return e.inner
}

// Cause satisfies the github.com/pkg/errors.Cause interface
func (e RuleError) Cause() error {
	return e.inner
}

func newRuleError(message string) RuleError {
	return RuleError{message: message, inner: nil}
}

// ErrInvalidTransactionInBlock wraps the failure of one transaction of a
// block with its position in the block.
type ErrInvalidTransactionInBlock struct {
	Index int
	Err   error
}

func (e ErrInvalidTransactionInBlock) Error() string {
	return fmt.Sprintf("transaction #%d: %s", e.Index, e.Err)
}

// Unwrap exposes the failure of the transaction.
func (e ErrInvalidTransactionInBlock) Unwrap() error {
	return e.Err
}

// NewErrInvalidTransactionInBlock creates a new ErrInvalidTransactionInBlock
// error wrapped in a RuleError
func NewErrInvalidTransactionInBlock(index int, err error) error {
	return errors.WithStack(RuleError{
		message: "ErrInvalidTransactionInBlock",
		inner:   ErrInvalidTransactionInBlock{Index: index, Err: err},
	})
}

// IsRuleError returns whether err is, or wraps, a RuleError.
func IsRuleError(err error) bool {
	var ruleErr RuleError
	return errors.As(err, &ruleErr)
}
