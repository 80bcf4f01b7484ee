package signing

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/hashes"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"
)

// mnemonicEntropyBits is the entropy of generated mnemonics, giving 24
// words.
const mnemonicEntropyBits = 256

// GenerateKey returns a new random private key.
func GenerateKey() (*btcec.PrivateKey, error) {
	privateKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed generating private key")
	}
	return privateKey, nil
}

// KeyFromSeed deterministically derives a private key from seed.
func KeyFromSeed(seed string) *btcec.PrivateKey {
	writer := hashes.NewKeySeedWriter()
	writer.InfallibleWrite([]byte(seed))
	digest := writer.Finalize()
	privateKey, _ := btcec.PrivKeyFromBytes(digest[:])
	return privateKey
}

// NewMnemonic returns a fresh bip39 mnemonic.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(mnemonicEntropyBits)
	if err != nil {
		return "", errors.Wrap(err, "failed generating entropy")
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", errors.Wrap(err, "failed generating mnemonic")
	}
	return mnemonic, nil
}

// KeyFromMnemonic derives the private key of a bip39 mnemonic protected by
// passphrase.
func KeyFromMnemonic(mnemonic, passphrase string) (*btcec.PrivateKey, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, errors.Wrap(err, "invalid mnemonic")
	}
	writer := hashes.NewKeySeedWriter()
	writer.InfallibleWrite(seed)
	digest := writer.Finalize()
	privateKey, _ := btcec.PrivKeyFromBytes(digest[:])
	return privateKey, nil
}

// PublicKey returns the chain public key of privateKey.
func PublicKey(privateKey *btcec.PrivateKey) model.PublicKey {
	var publicKey model.PublicKey
	copy(publicKey[:], schnorr.SerializePubKey(privateKey.PubKey()))
	return publicKey
}

// Sign signs digest with privateKey.
func Sign(privateKey *btcec.PrivateKey, digest [model.HashSize]byte) (model.Signature, error) {
	var signature model.Signature
	schnorrSignature, err := schnorr.Sign(privateKey, digest[:])
	if err != nil {
		return signature, errors.Wrap(err, "failed signing digest")
	}
	copy(signature[:], schnorrSignature.Serialize())
	return signature, nil
}

// Verify returns whether signature is a valid signature of digest by key.
func Verify(key model.PublicKey, digest [model.HashSize]byte, signature model.Signature) bool {
	if key.IsZero() {
		return false
	}
	publicKey, err := schnorr.ParsePubKey(key[:])
	if err != nil {
		return false
	}
	schnorrSignature, err := schnorr.ParseSignature(signature[:])
	if err != nil {
		return false
	}
	return schnorrSignature.Verify(digest[:], publicKey)
}

// SignTransaction adds the signature of privateKey to tx.
func SignTransaction(tx *model.SignedTransaction, chainID model.ChainID, privateKey *btcec.PrivateKey) error {
	signature, err := Sign(privateKey, tx.SigningDigest(chainID))
	if err != nil {
		return err
	}
	tx.Signatures = append(tx.Signatures, model.TransactionSignature{
		Key:       PublicKey(privateKey),
		Signature: signature,
	})
	return nil
}

// SignBlock sets the producer signature of block. The merkle root must
// already be set.
func SignBlock(block *model.SignedBlock, chainID model.ChainID, privateKey *btcec.PrivateKey) error {
	signature, err := Sign(privateKey, block.SigningDigest(chainID))
	if err != nil {
		return err
	}
	block.ProducerSignature = signature
	return nil
}

// VerifyBlockSignature returns whether header is signed by key.
func VerifyBlockSignature(header *model.SignedBlockHeader, chainID model.ChainID, key model.PublicKey) bool {
	return Verify(key, header.SigningDigest(chainID), header.ProducerSignature)
}
