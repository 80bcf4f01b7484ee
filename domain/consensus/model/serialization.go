package model

import (
	"github.com/near/borsh-go"
	"github.com/pkg/errors"
)

func mustSerialize(value interface{}) []byte {
	serialized, err := borsh.Serialize(value)
	if err != nil {
		panic(errors.Wrapf(err, "this should never happen. %T is serializable", value))
	}
	return serialized
}

// SerializeBlock returns the binary form of a block.
func SerializeBlock(block *SignedBlock) ([]byte, error) {
	serialized, err := borsh.Serialize(*block)
	if err != nil {
		return nil, errors.Wrap(err, "failed serializing block")
	}
	return serialized, nil
}

// DeserializeBlock parses the binary form of a block.
func DeserializeBlock(data []byte) (*SignedBlock, error) {
	block := &SignedBlock{}
	err := borsh.Deserialize(block, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed deserializing block")
	}
	return block, nil
}

// SerializeTransaction returns the binary form of a transaction.
func SerializeTransaction(tx *SignedTransaction) ([]byte, error) {
	serialized, err := borsh.Serialize(*tx)
	if err != nil {
		return nil, errors.Wrap(err, "failed serializing transaction")
	}
	return serialized, nil
}

// DeserializeTransaction parses the binary form of a transaction.
func DeserializeTransaction(data []byte) (*SignedTransaction, error) {
	tx := &SignedTransaction{}
	err := borsh.Deserialize(tx, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed deserializing transaction")
	}
	return tx, nil
}
