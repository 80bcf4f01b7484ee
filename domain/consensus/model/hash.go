package model

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/hashes"
	"github.com/pkg/errors"
)

// HashSize is the size of every hash and id in the chain.
const HashSize = hashes.HashSize

// Hash is a generic 32-byte digest.
type Hash [HashSize]byte

// String returns the hexadecimal encoding of the hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero returns whether the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// BlockID identifies a block. Its first four bytes hold the block number
// in big-endian order, so the number of any block can be read from its id.
type BlockID [HashSize]byte

// NewBlockID builds a block id from a header digest and the block number.
func NewBlockID(digest [HashSize]byte, blockNum uint32) BlockID {
	id := BlockID(digest)
	binary.BigEndian.PutUint32(id[:4], blockNum)
	return id
}

// Num returns the block number encoded in the id.
func (id BlockID) Num() uint32 {
	return binary.BigEndian.Uint32(id[:4])
}

// Prefix returns the 32-bit word following the block number. Transactions
// reference it to prove they observed the block.
func (id BlockID) Prefix() uint32 {
	return binary.LittleEndian.Uint32(id[4:8])
}

// IsZero returns whether the id is the zero id, which precedes block 1.
func (id BlockID) IsZero() bool {
	return id == BlockID{}
}

// String returns the hexadecimal encoding of the id.
func (id BlockID) String() string {
	return hex.EncodeToString(id[:])
}

// BlockIDFromString decodes a hexadecimal block id.
func BlockIDFromString(s string) (BlockID, error) {
	hash, err := hashes.FromString(s)
	if err != nil {
		return BlockID{}, errors.Wrapf(err, "invalid block id %s", s)
	}
	return BlockID(hash), nil
}

// TransactionID identifies a transaction regardless of its signatures.
type TransactionID [HashSize]byte

// String returns the hexadecimal encoding of the id.
func (id TransactionID) String() string {
	return hex.EncodeToString(id[:])
}

// ChainID separates signatures of different networks.
type ChainID [HashSize]byte

// NewChainID derives the chain id of the network with the given name.
func NewChainID(networkName string) ChainID {
	writer := hashes.NewChainIDWriter()
	writer.InfallibleWrite([]byte(networkName))
	return ChainID(writer.Finalize())
}
