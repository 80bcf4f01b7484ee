package model

import (
	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/hashes"
	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/merkle"
	"github.com/near/borsh-go"
)

// HeaderExtensionType tags the variant held by a HeaderExtension.
type HeaderExtensionType uint8

// The header extension types.
const (
	ExtRunningVersion HeaderExtensionType = iota
	ExtHardforkVote
)

// RunningVersionExtension reports the software version of the producer.
type RunningVersionExtension struct {
	Version Version
}

// HardforkVoteExtension reports the hardfork the producer votes for and
// the time it proposes the hardfork to activate at.
type HardforkVoteExtension struct {
	Version Version
	Time    int64
}

// HeaderExtension is the closed union of block header extensions.
type HeaderExtension struct {
	Kind           borsh.Enum `borsh_enum:"true"`
	RunningVersion RunningVersionExtension
	HardforkVote   HardforkVoteExtension
}

// Type returns the variant tag of the extension.
func (e *HeaderExtension) Type() HeaderExtensionType {
	return HeaderExtensionType(e.Kind)
}

// NewRunningVersionExtension returns a running version extension.
func NewRunningVersionExtension(version Version) HeaderExtension {
	return HeaderExtension{
		Kind:           borsh.Enum(ExtRunningVersion),
		RunningVersion: RunningVersionExtension{Version: version},
	}
}

// NewHardforkVoteExtension returns a hardfork vote extension.
func NewHardforkVoteExtension(version Version, time int64) HeaderExtension {
	return HeaderExtension{
		Kind:         borsh.Enum(ExtHardforkVote),
		HardforkVote: HardforkVoteExtension{Version: version, Time: time},
	}
}

// BlockHeader is the unsigned part of a block header. Timestamp is in unix
// seconds.
type BlockHeader struct {
	Previous              BlockID
	Timestamp             int64
	Producer              string
	TransactionMerkleRoot Hash
	Extensions            []HeaderExtension
}

// Num returns the number of the block, one past its previous block.
func (h *BlockHeader) Num() uint32 {
	return h.Previous.Num() + 1
}

// SigningDigest returns the digest the producer signs on the chain
// identified by chainID.
func (h *BlockHeader) SigningDigest(chainID ChainID) [HashSize]byte {
	writer := hashes.NewBlockHashWriter()
	writer.InfallibleWrite(chainID[:])
	writer.InfallibleWrite(mustSerialize(*h))
	return writer.Finalize()
}

// SignedBlockHeader is a block header with the producer signature.
type SignedBlockHeader struct {
	BlockHeader
	ProducerSignature Signature
}

// ID returns the id of the block.
func (h *SignedBlockHeader) ID() BlockID {
	writer := hashes.NewBlockHashWriter()
	writer.InfallibleWrite(mustSerialize(*h))
	return NewBlockID(writer.Finalize(), h.Num())
}

// SignedBlock is a complete block.
type SignedBlock struct {
	SignedBlockHeader
	Transactions []SignedTransaction
}

// CalculateMerkleRoot returns the merkle root of the block transactions.
func (b *SignedBlock) CalculateMerkleRoot() Hash {
	if len(b.Transactions) == 0 {
		return Hash{}
	}
	leaves := make([][HashSize]byte, len(b.Transactions))
	for i := range b.Transactions {
		leaves[i] = b.Transactions[i].Digest()
	}
	return Hash(merkle.Root(leaves))
}

// SerializedSize returns the size of the serialized block.
func (b *SignedBlock) SerializedSize() int {
	return len(mustSerialize(*b))
}

// Clone returns a deep copy of the block.
func (b *SignedBlock) Clone() *SignedBlock {
	clone := &SignedBlock{SignedBlockHeader: b.SignedBlockHeader}
	clone.Extensions = append([]HeaderExtension(nil), b.Extensions...)
	if b.Transactions != nil {
		clone.Transactions = make([]SignedTransaction, len(b.Transactions))
		for i := range b.Transactions {
			clone.Transactions[i] = b.Transactions[i].Clone()
		}
	}
	return clone
}
