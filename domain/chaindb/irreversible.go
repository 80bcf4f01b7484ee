package chaindb

import (
	"github.com/futurepia/futurepia-sub000/domain/chainconfig"
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
)

// updateLastIrreversibleBlock advances the last irreversible block to the
// newest block confirmed by enough scheduled producers. It never moves it
// back.
func (db *ChainDB) updateLastIrreversibleBlock() {
	dgp := db.state.DynamicGlobalProperties()

	var newLastIrreversibleBlockNum uint32
	if dgp.HeadBlockNumber < db.params.FirstVotingBlock {
		if dgp.HeadBlockNumber > uint32(db.params.NumProducers) {
			newLastIrreversibleBlockNum = dgp.HeadBlockNumber - uint32(db.params.NumProducers)
		}
	} else {
		schedule := db.state.ProducerSchedule()
		confirmed := make([]uint32, 0, schedule.NumScheduledProducers)
		for _, name := range schedule.CurrentShuffledProducers[:schedule.NumScheduledProducers] {
			_, producer, ok := db.state.Producer(name)
			if !ok {
				continue
			}
			confirmed = append(confirmed, producer.LastConfirmedBlockNum)
		}
		if len(confirmed) == 0 {
			return
		}
		offset := (chainconfig.OneHundredPercent - int(db.params.IrreversibleThreshold)) *
			len(confirmed) / chainconfig.OneHundredPercent
		newLastIrreversibleBlockNum = quickselect(confirmed, offset)
	}

	// Blocks popped back to a fork point take their undoable last
	// irreversible block with them, but what was committed stays so.
	if db.irreversibleBlockNum < dgp.HeadBlockNumber && newLastIrreversibleBlockNum < db.irreversibleBlockNum {
		newLastIrreversibleBlockNum = db.irreversibleBlockNum
	}
	if newLastIrreversibleBlockNum <= dgp.LastIrreversibleBlockNum {
		return
	}
	db.state.ModifyDynamicGlobalProperties(func(dgp *model.DynamicGlobalProperties) {
		dgp.LastIrreversibleBlockNum = newLastIrreversibleBlockNum
	})
}

// commitIrreversible writes the blocks that became irreversible to the block
// log and drops their undo history. It runs after the session of the block
// that moved the last irreversible block was pushed.
func (db *ChainDB) commitIrreversible(flags BehaviorFlags) error {
	dgp := db.state.DynamicGlobalProperties()
	lastIrreversibleBlockNum := dgp.LastIrreversibleBlockNum

	if !flags.has(BFSkipBlockLog) {
		logHeadNum := db.blockLog.HeadNum()
		for blockNum := logHeadNum + 1; blockNum <= lastIrreversibleBlockNum; blockNum++ {
			item, ok := db.forkDB.FetchBlockOnMainBranchByNumber(blockNum)
			if !ok {
				return ruleerrors.NewErrBlockLogIO(errors.Errorf(
					"irreversible block %d is missing from the fork database", blockNum))
			}
			_, err := db.blockLog.Append(item.Block)
			if err != nil {
				return err
			}
			db.sendNotification(NTIrreversibleBlock, &IrreversibleBlockNotificationData{Block: item.Block})
		}
		if lastIrreversibleBlockNum > logHeadNum {
			err := db.blockLog.Flush()
			if err != nil {
				return err
			}
		}
	}

	if lastIrreversibleBlockNum > db.irreversibleBlockNum {
		db.irreversibleBlockNum = lastIrreversibleBlockNum
	}
	db.state.Store.Commit(int64(lastIrreversibleBlockNum))
	db.forkDB.SetMaxSize(dgp.HeadBlockNumber - lastIrreversibleBlockNum + 1)
	return nil
}

// lastIrreversibleBlockNum must be called with the chain lock held.
func (db *ChainDB) lastIrreversibleBlockNum() uint32 {
	return max(db.state.DynamicGlobalProperties().LastIrreversibleBlockNum, db.irreversibleBlockNum)
}
