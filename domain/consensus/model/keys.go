package model

import (
	"bytes"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/hashes"
	"github.com/pkg/errors"
)

const (
	// PublicKeySize is the size of an x-only schnorr public key.
	PublicKeySize = 32

	// SignatureSize is the size of a schnorr signature.
	SignatureSize = 64

	// PublicKeyPrefix starts the text form of every public key.
	PublicKeyPrefix = "FPA"

	publicKeyChecksumSize = 4
)

// PublicKey is an x-only secp256k1 schnorr public key. The zero key means
// "no key" and never verifies anything.
type PublicKey [PublicKeySize]byte

// Signature is a 64-byte schnorr signature.
type Signature [SignatureSize]byte

// IsZero returns whether the key is the zero key.
func (k PublicKey) IsZero() bool {
	return k == PublicKey{}
}

// Less orders keys bytewise.
func (k PublicKey) Less(other PublicKey) bool {
	return bytes.Compare(k[:], other[:]) < 0
}

func publicKeyChecksum(k PublicKey) []byte {
	writer := hashes.NewPublicKeyChecksumWriter()
	writer.InfallibleWrite(k[:])
	sum := writer.Finalize()
	return sum[:publicKeyChecksumSize]
}

// String returns the prefixed base58 form of the key with a checksum.
func (k PublicKey) String() string {
	payload := make([]byte, 0, PublicKeySize+publicKeyChecksumSize)
	payload = append(payload, k[:]...)
	payload = append(payload, publicKeyChecksum(k)...)
	return PublicKeyPrefix + base58.Encode(payload)
}

// ParsePublicKey parses the text form produced by PublicKey.String.
func ParsePublicKey(s string) (PublicKey, error) {
	var key PublicKey
	if !strings.HasPrefix(s, PublicKeyPrefix) {
		return key, errors.Errorf("public key %s does not start with %s", s, PublicKeyPrefix)
	}
	payload := base58.Decode(strings.TrimPrefix(s, PublicKeyPrefix))
	if len(payload) != PublicKeySize+publicKeyChecksumSize {
		return key, errors.Errorf("public key %s has a wrong length", s)
	}
	copy(key[:], payload[:PublicKeySize])
	if !bytes.Equal(publicKeyChecksum(key), payload[PublicKeySize:]) {
		return key, errors.Errorf("public key %s has a bad checksum", s)
	}
	return key, nil
}
