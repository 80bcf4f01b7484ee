package model

import (
	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/hashes"
	"github.com/pkg/errors"
)

// Transaction is an ordered list of operations applied atomically. It
// references a recent block through RefBlockNum and RefBlockPrefix and is
// only valid until Expiration, in unix seconds.
type Transaction struct {
	RefBlockNum    uint16
	RefBlockPrefix uint32
	Expiration     int64
	Operations     []Operation
}

// TransactionSignature is a signature over a transaction signing digest
// together with the key that produced it.
type TransactionSignature struct {
	Key       PublicKey
	Signature Signature
}

// SignedTransaction is a transaction with its signatures.
type SignedTransaction struct {
	Transaction
	Signatures []TransactionSignature
}

// SetReferenceBlock makes the transaction reference the given block.
func (tx *Transaction) SetReferenceBlock(id BlockID) {
	tx.RefBlockNum = uint16(id.Num())
	tx.RefBlockPrefix = id.Prefix()
}

// ID returns the id of the transaction. Signatures do not affect it.
func (tx *Transaction) ID() TransactionID {
	writer := hashes.NewTransactionIDWriter()
	writer.InfallibleWrite(mustSerialize(*tx))
	return TransactionID(writer.Finalize())
}

// SigningDigest returns the digest signatures of the transaction commit to
// on the chain identified by chainID.
func (tx *Transaction) SigningDigest(chainID ChainID) [HashSize]byte {
	writer := hashes.NewTransactionSigningHashWriter()
	writer.InfallibleWrite(chainID[:])
	writer.InfallibleWrite(mustSerialize(*tx))
	return writer.Finalize()
}

// Validate checks the transaction and all of its operations without
// looking at chain state.
func (tx *Transaction) Validate() error {
	if len(tx.Operations) == 0 {
		return errors.New("transaction has no operations")
	}
	for i := range tx.Operations {
		err := tx.Operations[i].Validate()
		if err != nil {
			return errors.Wrapf(err, "operation #%d (%s)", i, tx.Operations[i].Type())
		}
	}
	return nil
}

// RequiredAuthorities collects the authorities required by all operations.
func (tx *Transaction) RequiredAuthorities() *RequiredAuthorities {
	required := NewRequiredAuthorities()
	for i := range tx.Operations {
		body, err := tx.Operations[i].Body()
		if err != nil {
			continue
		}
		body.CollectAuthorities(required)
	}
	return required
}

// Digest returns the hash of the transaction including its signatures.
// Block merkle roots are built from these digests.
func (tx *SignedTransaction) Digest() [HashSize]byte {
	writer := hashes.NewTransactionHashWriter()
	writer.InfallibleWrite(mustSerialize(*tx))
	return writer.Finalize()
}

// SerializedSize returns the size of the serialized transaction.
func (tx *SignedTransaction) SerializedSize() int {
	return len(mustSerialize(*tx))
}

// Clone returns a deep copy of the transaction.
func (tx *SignedTransaction) Clone() SignedTransaction {
	clone := SignedTransaction{
		Transaction: tx.Transaction,
		Signatures:  append([]TransactionSignature(nil), tx.Signatures...),
	}
	clone.Operations = append([]Operation(nil), tx.Operations...)
	return clone
}
