package chaindb

// This file functions are not considered safe for regular use, and should be used for test purposes only.

import (
	"io/ioutil"
	"os"

	"github.com/futurepia/futurepia-sub000/domain/chainconfig"
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/signing"
	"github.com/pkg/errors"
)

// ChainSetup is used to create a new ChainDB on a fresh data directory,
// starting from the genesis state of config.Params. In addition to the new
// ChainDB instance, it returns a teardown function the caller should invoke
// when done testing to clean up. config.DataDir is ignored.
func ChainSetup(dirName string, config Config) (*ChainDB, func(), error) {
	dataDir, err := ioutil.TempDir("", "ChainSetup-"+dirName)
	if err != nil {
		return nil, nil, errors.Errorf("error creating temp dir: %s", err)
	}
	config.DataDir = dataDir

	db, err := New(&config)
	if err != nil {
		os.RemoveAll(dataDir)
		return nil, nil, errors.Errorf("failed to create chain instance: %s", err)
	}

	teardown := func() {
		db.lock.RLock()
		closed := db.closed
		db.lock.RUnlock()
		if !closed {
			db.Close()
		}
		os.RemoveAll(dataDir)
	}
	return db, teardown, nil
}

// ReopenForTest closes db and opens a new ChainDB on the same data
// directory.
func ReopenForTest(db *ChainDB) (*ChainDB, error) {
	err := db.Close()
	if err != nil {
		return nil, err
	}
	config := *db.cfg
	return New(&config)
}

// GenerateBlockForTest has the producer scheduled for slot slotNum after the
// head produce a block, signed with its genesis key.
func GenerateBlockForTest(db *ChainDB, slotNum uint32) (*model.SignedBlock, error) {
	when := db.SlotTime(slotNum)
	producer := db.ScheduledProducer(slotNum)
	return db.GenerateBlock(when, producer, GenesisKey(db.params, producer), BFNone)
}

// GenerateBlocksForTest produces count blocks, one in each of the next
// slots.
func GenerateBlocksForTest(db *ChainDB, count int) ([]*model.SignedBlock, error) {
	blocks := make([]*model.SignedBlock, 0, count)
	for i := 0; i < count; i++ {
		block, err := GenerateBlockForTest(db, 1)
		if err != nil {
			return nil, errors.Wrapf(err, "generating block %d", i+1)
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// TransferForTest returns a transfer from the genesis account, which holds
// the initial supply, signed with its genesis key. The transaction
// references the head block and expires expiresIn seconds after the head
// block time.
func TransferForTest(db *ChainDB, to string, amount model.Amount, expiresIn int64) (*model.SignedTransaction, error) {
	params := db.Params()
	tx := &model.SignedTransaction{}
	tx.SetReferenceBlock(db.HeadBlockID())
	tx.Expiration = db.HeadBlockTime() + expiresIn
	tx.Operations = []model.Operation{model.NewOperation(&model.TransferOperation{
		From:   params.GenesisAccount,
		To:     to,
		Amount: amount,
	})}
	err := signing.SignTransaction(tx, params.ChainID, GenesisKey(params, params.GenesisAccount))
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// SimnetParamsForTest returns a copy of the simnet parameters that tests may
// modify.
func SimnetParamsForTest() *chainconfig.Params {
	params := chainconfig.SimnetParams
	params.Hardforks = append([]chainconfig.Hardfork(nil), chainconfig.SimnetParams.Hardforks...)
	params.GenesisProducers = append([]string(nil), chainconfig.SimnetParams.GenesisProducers...)
	params.Checkpoints = make(map[uint32]model.BlockID)
	params.KnownMerkleRoots = make(map[model.BlockID]model.Hash)
	return &params
}
