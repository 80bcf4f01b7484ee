package merkle

import (
	"math/bits"

	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/hashes"
)

// nextPowerOfTwo returns the next highest power of two from a given number
// if it is not already a power of two.
func nextPowerOfTwo(n int) int {
	if n&(n-1) == 0 {
		return n
	}
	return 1 << bits.Len(uint(n))
}

// hashMerkleBranches hashes the concatenation of left and right.
func hashMerkleBranches(left, right *[hashes.HashSize]byte) [hashes.HashSize]byte {
	writer := hashes.NewMerkleBranchHashWriter()
	writer.InfallibleWrite(left[:])
	writer.InfallibleWrite(right[:])
	return writer.Finalize()
}

// Root returns the merkle root of leaves. An empty leaf set has the zero
// root. Missing leaves of the last level are treated as zero hashes, which
// also means a level whose right child is absent hashes left with zero.
func Root(leaves [][hashes.HashSize]byte) [hashes.HashSize]byte {
	if len(leaves) == 0 {
		return [hashes.HashSize]byte{}
	}

	// The tree is stored in a linear array: the leaves first, then every
	// upper level up to the root at the last index.
	nextPoT := nextPowerOfTwo(len(leaves))
	arraySize := nextPoT*2 - 1
	merkles := make([]*[hashes.HashSize]byte, arraySize)
	for i := range leaves {
		leaf := leaves[i]
		merkles[i] = &leaf
	}

	offset := nextPoT
	zero := [hashes.HashSize]byte{}
	for i := 0; i < arraySize-1; i += 2 {
		switch {
		case merkles[i] == nil:
			merkles[offset] = nil
		case merkles[i+1] == nil:
			newHash := hashMerkleBranches(merkles[i], &zero)
			merkles[offset] = &newHash
		default:
			newHash := hashMerkleBranches(merkles[i], merkles[i+1])
			merkles[offset] = &newHash
		}
		offset++
	}

	return *merkles[len(merkles)-1]
}
