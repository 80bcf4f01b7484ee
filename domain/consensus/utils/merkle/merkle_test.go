package merkle

import (
	"testing"

	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/hashes"
)

func leaf(b byte) [hashes.HashSize]byte {
	var h [hashes.HashSize]byte
	h[0] = b
	return h
}

func TestRoot(t *testing.T) {
	if root := Root(nil); root != ([hashes.HashSize]byte{}) {
		t.Fatalf("TestRoot: empty root is %x, want zero", root)
	}

	single := leaf(1)
	if root := Root([][hashes.HashSize]byte{single}); root != single {
		t.Fatalf("TestRoot: single leaf root is %x, want the leaf itself", root)
	}

	a, b, c := leaf(1), leaf(2), leaf(3)
	ab := hashMerkleBranches(&a, &b)
	zero := [hashes.HashSize]byte{}
	c0 := hashMerkleBranches(&c, &zero)
	want := hashMerkleBranches(&ab, &c0)
	if root := Root([][hashes.HashSize]byte{a, b, c}); root != want {
		t.Fatalf("TestRoot: three leaf root is %x, want %x", root, want)
	}

	if Root([][hashes.HashSize]byte{a, b}) == Root([][hashes.HashSize]byte{b, a}) {
		t.Fatalf("TestRoot: root does not depend on leaf order")
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct{ in, want int }{{1, 1}, {2, 2}, {3, 4}, {5, 8}, {8, 8}, {9, 16}}
	for _, test := range tests {
		if got := nextPowerOfTwo(test.in); got != test.want {
			t.Fatalf("TestNextPowerOfTwo: nextPowerOfTwo(%d) = %d, want %d", test.in, got, test.want)
		}
	}
}
