package chaindb

import (
	"encoding/binary"

	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/futurepia/futurepia-sub000/infrastructure/db/database"
	"github.com/futurepia/futurepia-sub000/infrastructure/logger"
	"github.com/pkg/errors"
)

// reversibleBlocksBucket holds the reversible blocks of the main branch
// between a Close and the next open, keyed by big-endian block number.
var reversibleBlocksBucket = database.MakeBucket([]byte("reversible-blocks"))

func reversibleBlockKey(blockNum uint32) *database.Key {
	var key [4]byte
	binary.BigEndian.PutUint32(key[:], blockNum)
	return reversibleBlocksBucket.Key(key[:])
}

// open must be called with the chain lock held, or before the ChainDB is
// shared.
func (db *ChainDB) open() error {
	db.irreversibleBlockNum = db.blockLog.HeadNum()

	if db.cfg.Replay {
		log.Infof("Replaying the block log as requested")
		return db.reindex()
	}

	loaded, err := db.state.Store.Load(db.databaseDB)
	if err != nil {
		return err
	}
	if !loaded {
		log.Infof("No chain state found, starting from genesis")
		return db.reindex()
	}

	headNum := db.state.HeadBlockNum()
	logHeadNum := db.blockLog.HeadNum()
	if headNum > logHeadNum {
		log.Warnf("Chain state at block %d is ahead of the block log at block %d, rebuilding it",
			headNum, logHeadNum)
		return db.reindex()
	}
	if headNum > 0 {
		block, ok, err := db.blockLog.ReadBlockByNum(headNum)
		if err != nil {
			return err
		}
		if !ok || block.ID() != db.state.HeadBlockID() {
			log.Warnf("Chain state head %s is not in the block log, rebuilding it", db.state.HeadBlockID())
			return db.reindex()
		}
	}

	err = db.replay(headNum + 1)
	if err != nil {
		return err
	}
	err = db.startForkDB()
	if err != nil {
		return err
	}
	return db.pushReversibleBlocks()
}

// reindex rebuilds the chain state from genesis and the block log.
func (db *ChainDB) reindex() error {
	err := db.state.Store.Wipe(db.databaseDB)
	if err != nil {
		return err
	}
	err = db.initGenesis()
	if err != nil {
		return err
	}
	err = db.replay(1)
	if err != nil {
		return err
	}
	err = db.startForkDB()
	if err != nil {
		return err
	}
	return db.pushReversibleBlocks()
}

// replay applies the blocks of the block log from block fromNum on,
// without undo history and skipping the checks they already passed.
func (db *ChainDB) replay(fromNum uint32) error {
	logHeadNum := db.blockLog.HeadNum()
	if fromNum > logHeadNum {
		return db.state.Store.SetRevision(int64(db.state.HeadBlockNum()))
	}

	onEnd := logger.LogAndMeasureExecutionTime(log, "chaindb.replay")
	defer onEnd()

	log.Infof("Replaying blocks %d to %d", fromNum, logHeadNum)
	flags := BFTrustedBlock | BFSkipBlockLog | BFSkipUndoHistoryCheck
	for blockNum := fromNum; blockNum <= logHeadNum; blockNum++ {
		block, ok, err := db.blockLog.ReadBlockByNum(blockNum)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("block %d is missing from the block log", blockNum)
		}
		session := db.state.Store.StartUndoSession(false)
		err = db.applyBlock(block, flags)
		if err != nil {
			return errors.Wrapf(err, "replaying block %d", blockNum)
		}
		session.Push()
		db.sendQueuedNotifications()
		if blockNum%10000 == 0 {
			log.Infof("Replayed block %d of %d", blockNum, logHeadNum)
		}
	}
	return db.state.Store.SetRevision(int64(db.state.HeadBlockNum()))
}

// startForkDB seeds the fork database with the head block.
func (db *ChainDB) startForkDB() error {
	db.forkDB.Reset()
	headNum := db.state.HeadBlockNum()
	if headNum == 0 {
		return nil
	}
	head, ok, err := db.blockLog.ReadBlockByNum(headNum)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("head block %d is missing from the block log", headNum)
	}
	db.forkDB.StartBlock(head)
	return nil
}

// pushReversibleBlocks pushes the blocks stashed by the last Close and
// removes them from the stash.
func (db *ChainDB) pushReversibleBlocks() error {
	cursor, err := db.databaseDB.Cursor(reversibleBlocksBucket)
	if err != nil {
		return err
	}
	var blocks []*model.SignedBlock
	var keys []*database.Key
	for cursor.Next() {
		key, err := cursor.Key()
		if err != nil {
			cursor.Close()
			return err
		}
		value, err := cursor.Value()
		if err != nil {
			cursor.Close()
			return err
		}
		block, err := model.DeserializeBlock(value)
		if err != nil {
			cursor.Close()
			return err
		}
		keys = append(keys, key)
		blocks = append(blocks, block)
	}
	err = cursor.Close()
	if err != nil {
		return err
	}

	for _, block := range blocks {
		if block.Num() <= db.state.HeadBlockNum() {
			continue
		}
		_, err := db.pushBlock(block, BFNone)
		if err != nil {
			log.Warnf("Dropping stashed reversible block %d: %s", block.Num(), err)
			if ruleerrors.IsFatal(err) {
				return err
			}
			break
		}
	}
	if len(blocks) > 0 {
		log.Infof("Pushed %d stashed reversible blocks, head is %d", len(blocks), db.state.HeadBlockNum())
	}

	dbTx, err := db.databaseDB.Begin()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()
	for _, key := range keys {
		err := dbTx.Delete(key)
		if err != nil {
			return err
		}
	}
	return dbTx.Commit()
}

// saveState stashes the reversible blocks, rolls the state back to the
// last irreversible block and writes the snapshot.
func (db *ChainDB) saveState() error {
	onEnd := logger.LogAndMeasureExecutionTime(log, "chaindb.saveState")
	defer onEnd()

	db.clearPending()

	dbTx, err := db.databaseDB.Begin()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	headNum := db.state.HeadBlockNum()
	stashed := 0
	for blockNum := db.lastIrreversibleBlockNum() + 1; blockNum <= headNum; blockNum++ {
		item, ok := db.forkDB.FetchBlockOnMainBranchByNumber(blockNum)
		if !ok {
			break
		}
		data, err := model.SerializeBlock(item.Block)
		if err != nil {
			return err
		}
		err = dbTx.Put(reversibleBlockKey(blockNum), data)
		if err != nil {
			return err
		}
		stashed++
	}
	err = dbTx.Commit()
	if err != nil {
		return err
	}

	db.state.Store.UndoAll()
	err = db.state.Store.SetRevision(int64(db.state.HeadBlockNum()))
	if err != nil {
		return err
	}
	err = db.blockLog.Flush()
	if err != nil {
		return err
	}
	err = db.state.Store.Flush(db.databaseDB)
	if err != nil {
		return err
	}
	log.Infof("Saved chain state at block %d, stashed %d reversible blocks", db.state.HeadBlockNum(), stashed)
	return nil
}
