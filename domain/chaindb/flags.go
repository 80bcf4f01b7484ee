package chaindb

// BehaviorFlags is a bitmask defining tweaks to the normal behavior when
// applying blocks and transactions.
type BehaviorFlags uint32

const (
	// BFSkipProducerSignature skips checking the producer signature of
	// blocks.
	BFSkipProducerSignature BehaviorFlags = 1 << iota

	// BFSkipTransactionSignatures skips verifying transaction signatures.
	BFSkipTransactionSignatures

	// BFSkipTransactionDupeCheck skips both the duplicate transaction check
	// and recording applied transactions for later duplicate checks.
	BFSkipTransactionDupeCheck

	// BFSkipForkDB applies a block directly on top of the head without
	// going through fork resolution.
	BFSkipForkDB

	// BFSkipBlockSizeCheck skips checking block and transaction sizes.
	BFSkipBlockSizeCheck

	// BFSkipTaposCheck skips the reference block check of transactions.
	BFSkipTaposCheck

	// BFSkipAuthorityCheck skips checking that signatures satisfy the
	// required authorities.
	BFSkipAuthorityCheck

	// BFSkipMerkleCheck skips the transaction merkle root check.
	BFSkipMerkleCheck

	// BFSkipUndoHistoryCheck skips the undo history limit.
	BFSkipUndoHistoryCheck

	// BFSkipProducerScheduleCheck skips checking that the block producer
	// was scheduled for the block's slot.
	BFSkipProducerScheduleCheck

	// BFSkipValidate skips the stateless validation of transactions.
	BFSkipValidate

	// BFSkipValidateInvariants skips the chain state invariants check after
	// every block.
	BFSkipValidateInvariants

	// BFSkipBlockLog skips appending irreversible blocks to the block log.
	BFSkipBlockLog

	// BFNone is a convenience value to specifically indicate no flags.
	BFNone BehaviorFlags = 0
)

// BFTrustedBlock is the set of checks skipped for blocks that were already
// validated once, such as blocks replayed from the block log or blocks at
// or below a checkpoint.
const BFTrustedBlock = BFSkipProducerSignature |
	BFSkipTransactionSignatures |
	BFSkipTransactionDupeCheck |
	BFSkipTaposCheck |
	BFSkipMerkleCheck |
	BFSkipProducerScheduleCheck |
	BFSkipAuthorityCheck |
	BFSkipBlockSizeCheck |
	BFSkipValidate |
	BFSkipValidateInvariants

func (flags BehaviorFlags) has(flag BehaviorFlags) bool {
	return flags&flag == flag
}
