package hashes

import (
	"encoding/hex"
	"testing"
)

func TestDomainSeparation(t *testing.T) {
	data := []byte("payload")
	writers := map[string]HashWriter{
		"transaction id": NewTransactionIDWriter(),
		"signing":        NewTransactionSigningHashWriter(),
		"block":          NewBlockHashWriter(),
		"merkle":         NewMerkleBranchHashWriter(),
	}
	seen := make(map[[HashSize]byte]string)
	for name, writer := range writers {
		writer.InfallibleWrite(data)
		sum := writer.Finalize()
		if other, ok := seen[sum]; ok {
			t.Fatalf("TestDomainSeparation: %s and %s produced the same hash", name, other)
		}
		seen[sum] = name
	}
}

func TestFromString(t *testing.T) {
	writer := NewBlockHashWriter()
	writer.InfallibleWrite([]byte("block"))
	sum := writer.Finalize()

	decoded, err := FromString(hex.EncodeToString(sum[:]))
	if err != nil {
		t.Fatalf("TestFromString: unexpected error: %s", err)
	}
	if decoded != sum {
		t.Fatalf("TestFromString: decoded %x, want %x", decoded, sum)
	}
	if _, err := FromString("abcd"); err == nil {
		t.Fatalf("TestFromString: short string unexpectedly decoded")
	}
}
