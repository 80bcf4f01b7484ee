package chaindb

import (
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
)

// HeadBlockNum returns the number of the head block.
func (db *ChainDB) HeadBlockNum() uint32 {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.state.HeadBlockNum()
}

// HeadBlockID returns the id of the head block.
func (db *ChainDB) HeadBlockID() model.BlockID {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.state.HeadBlockID()
}

// HeadBlockTime returns the timestamp of the head block.
func (db *ChainDB) HeadBlockTime() int64 {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.state.HeadBlockTime()
}

// LastIrreversibleBlockNum returns the number of the last irreversible
// block.
func (db *ChainDB) LastIrreversibleBlockNum() uint32 {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.lastIrreversibleBlockNum()
}

// DynamicGlobalProperties returns a copy of the dynamic global properties.
func (db *ChainDB) DynamicGlobalProperties() model.DynamicGlobalProperties {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.state.DynamicGlobalProperties()
}

// HardforkProperties returns a copy of the hardfork properties.
func (db *ChainDB) HardforkProperties() model.HardforkProperties {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.state.HardforkProperties()
}

// ProducerSchedule returns a copy of the producer schedule.
func (db *ChainDB) ProducerSchedule() model.ProducerSchedule {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.state.ProducerSchedule()
}

// HasHardfork returns whether hardfork number hardfork was applied.
func (db *ChainDB) HasHardfork(hardfork uint32) bool {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.state.HasHardfork(hardfork)
}

// FetchBlockByNumber returns the block at height blockNum on the current
// branch.
func (db *ChainDB) FetchBlockByNumber(blockNum uint32) (*model.SignedBlock, bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if item, ok := db.forkDB.FetchBlockOnMainBranchByNumber(blockNum); ok {
		return item.Block, true, nil
	}
	return db.blockLog.ReadBlockByNum(blockNum)
}

// FetchBlockByID returns the block with the given id from the fork
// database or the block log.
func (db *ChainDB) FetchBlockByID(id model.BlockID) (*model.SignedBlock, bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.fetchBlockByID(id)
}

func (db *ChainDB) fetchBlockByID(id model.BlockID) (*model.SignedBlock, bool, error) {
	if item, ok := db.forkDB.FetchBlock(id); ok {
		return item.Block, true, nil
	}
	block, ok, err := db.blockLog.ReadBlockByNum(id.Num())
	if err != nil || !ok {
		return nil, false, err
	}
	if block.ID() != id {
		return nil, false, nil
	}
	return block, true, nil
}

// IsKnownBlock returns whether the block with the given id is in the fork
// database or the block log.
func (db *ChainDB) IsKnownBlock(id model.BlockID) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	_, ok, err := db.fetchBlockByID(id)
	return ok, err
}

// IsKnownTransaction returns whether a transaction with the given id was
// applied and has not expired.
func (db *ChainDB) IsKnownTransaction(id model.TransactionID) bool {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.state.TransactionsByID.Has(id)
}

// Account returns the account with the given name.
func (db *ChainDB) Account(name string) (model.Account, bool) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	_, account, ok := db.state.Account(name)
	return account, ok
}

// Producer returns the producer owned by the given account.
func (db *ChainDB) Producer(owner string) (model.Producer, bool) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	_, producer, ok := db.state.Producer(owner)
	return producer, ok
}

// SlotTime returns the start time of slot slotNum after the head block, or
// zero for slot zero.
func (db *ChainDB) SlotTime(slotNum uint32) int64 {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.slotTime(slotNum)
}

// SlotAtTime returns the slot after the head block that contains when, or
// zero if when is before the first of them.
func (db *ChainDB) SlotAtTime(when int64) uint32 {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.slotAtTime(when)
}

// ScheduledProducer returns the producer of slot slotNum after the head
// block.
func (db *ChainDB) ScheduledProducer(slotNum uint32) string {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.scheduledProducer(slotNum)
}

// ProducerParticipationRate returns the share of the last 128 slots that
// were filled, in basis points.
func (db *ChainDB) ProducerParticipationRate() uint32 {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.participationRate()
}

// PendingTransactions returns copies of the pending transactions in the
// order they were received.
func (db *ChainDB) PendingTransactions() []*model.SignedTransaction {
	db.lock.RLock()
	defer db.lock.RUnlock()
	pending := make([]*model.SignedTransaction, len(db.pendingTransactions))
	for i, tx := range db.pendingTransactions {
		clone := tx.Clone()
		pending[i] = &clone
	}
	return pending
}
