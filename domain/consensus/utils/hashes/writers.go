package hashes

import (
	"hash"

	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

// HashSize is the size in bytes of every hash produced by this package.
const HashSize = blake2b.Size256

const (
	transactionIDDomain      = "TransactionID"
	transactionSigningDomain = "TransactionSigningHash"
	transactionHashDomain    = "TransactionHash"
	blockHashDomain          = "BlockHash"
	merkleBranchDomain       = "MerkleBranchHash"
	publicKeyChecksumDomain  = "PublicKeyChecksum"
	keySeedDomain            = "ProducerKeySeed"
	chainIDDomain            = "ChainID"
)

// HashWriter incrementally hashes data without concatenating it into a
// single buffer. It exposes io.Writer and a Finalize function. The hash
// function is blake2b-256 keyed with a domain string, so hashes from
// different domains never collide.
type HashWriter struct {
	hash.Hash
}

// InfallibleWrite is Write without an error result.
func (h HashWriter) InfallibleWrite(p []byte) {
	// hash.Hash never returns an error from Write.
	_, err := h.Write(p)
	if err != nil {
		panic(errors.Wrap(err, "this should never happen. hash.Hash interface promises to not return errors."))
	}
}

// Finalize returns the resulting hash.
func (h HashWriter) Finalize() [HashSize]byte {
	var sum [HashSize]byte
	copy(sum[:], h.Sum(sum[:0]))
	return sum
}

func newHashWriter(domain string) HashWriter {
	blake, err := blake2b.New256([]byte(domain))
	if err != nil {
		panic(errors.Wrapf(err, "this should never happen. %s is less than 64 bytes", domain))
	}
	return HashWriter{blake}
}

// NewTransactionIDWriter returns a writer for transaction ids.
func NewTransactionIDWriter() HashWriter {
	return newHashWriter(transactionIDDomain)
}

// NewTransactionSigningHashWriter returns a writer for the digests
// transaction signatures commit to.
func NewTransactionSigningHashWriter() HashWriter {
	return newHashWriter(transactionSigningDomain)
}

// NewTransactionHashWriter returns a writer for the digests of signed
// transactions, signatures included. Block merkle trees commit to them.
func NewTransactionHashWriter() HashWriter {
	return newHashWriter(transactionHashDomain)
}

// NewBlockHashWriter returns a writer for block header hashes.
func NewBlockHashWriter() HashWriter {
	return newHashWriter(blockHashDomain)
}

// NewMerkleBranchHashWriter returns a writer for merkle tree nodes.
func NewMerkleBranchHashWriter() HashWriter {
	return newHashWriter(merkleBranchDomain)
}

// NewPublicKeyChecksumWriter returns a writer for public key text
// checksums.
func NewPublicKeyChecksumWriter() HashWriter {
	return newHashWriter(publicKeyChecksumDomain)
}

// NewKeySeedWriter returns a writer for deterministic key seeds.
func NewKeySeedWriter() HashWriter {
	return newHashWriter(keySeedDomain)
}

// NewChainIDWriter returns a writer for chain ids.
func NewChainIDWriter() HashWriter {
	return newHashWriter(chainIDDomain)
}
