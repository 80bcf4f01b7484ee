package hashes

import (
	"encoding/hex"

	"github.com/pkg/errors"
)

// FromString decodes the hexadecimal representation of a hash.
func FromString(hashString string) ([HashSize]byte, error) {
	var hash [HashSize]byte
	if len(hashString) != HashSize*2 {
		return hash, errors.Errorf("hash string length is %d, while it should be %d",
			len(hashString), HashSize*2)
	}
	_, err := hex.Decode(hash[:], []byte(hashString))
	if err != nil {
		return hash, errors.Wrap(err, "couldn't decode hash hex")
	}
	return hash, nil
}
