package chaindb

import (
	"github.com/futurepia/futurepia-sub000/domain/consensus/forkdb"
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
)

// PushBlock adds block to the chain. The block is linked into the fork
// database and, if it makes a branch longer than the current one, the
// chain switches to that branch. A block that only builds a branch of the
// same length or shorter is kept without being applied.
//
// The returned boolean indicates whether the chain switched to another
// branch.
func (db *ChainDB) PushBlock(block *model.SignedBlock, flags BehaviorFlags) (switchedFork bool, err error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	err = db.checkHalted()
	if err != nil {
		return false, err
	}

	switchedFork, err = db.pushBlock(block, flags)
	if err != nil {
		db.metrics.blocksRejected.Inc()
		db.haltOnFatal(err)
		return false, err
	}
	db.metrics.blocksPushed.Inc()
	db.updateHeadMetrics()
	return switchedFork, nil
}

// pushBlock sets the pending transactions aside, pushes block, and
// re-applies the transactions of popped blocks and then the pending
// transactions on top of the new head.
func (db *ChainDB) pushBlock(block *model.SignedBlock, flags BehaviorFlags) (bool, error) {
	pending := db.clearPending()

	switchedFork, err := db.pushBlockToChain(block, flags)
	if err != nil && ruleerrors.IsFatal(err) {
		return false, err
	}
	db.restorePending(pending)
	return switchedFork, err
}

func (db *ChainDB) pushBlockToChain(block *model.SignedBlock, flags BehaviorFlags) (bool, error) {
	if flags.has(BFSkipForkDB) {
		err := db.applyBlockInSession(block, flags)
		if err != nil {
			return false, err
		}
		// The fork database still records the chain, since irreversible
		// blocks are written to the block log from it.
		_, err = db.forkDB.PushBlock(block)
		if err != nil {
			log.Warnf("Block %s was applied without the fork database and cannot be linked into it: %s",
				block.ID(), err)
		}
		return false, nil
	}

	newHead, err := db.forkDB.PushBlock(block)
	if err != nil {
		return false, err
	}

	headID := db.state.HeadBlockID()
	if newHead.Previous != headID {
		if newHead.Num > db.state.HeadBlockNum() {
			err := db.switchFork(newHead, flags)
			if err != nil {
				return false, err
			}
			return true, nil
		}
		if newHead.ID != headID {
			log.Debugf("Block %s does not extend the head %s, keeping it in the fork database",
				block.ID(), headID)
		}
		return false, nil
	}

	err = db.applyItem(newHead, flags)
	if err != nil {
		db.forkDB.Remove(newHead.ID)
		db.resetForkDBHead()
		return false, err
	}
	return false, nil
}

// applyItem applies a fork database block on top of the head in its own
// undo session and makes it the fork database head.
func (db *ChainDB) applyItem(item *forkdb.Item, flags BehaviorFlags) error {
	err := db.applyBlockInSession(item.Block, flags)
	if err != nil {
		return err
	}
	db.forkDB.SetHead(item)
	return nil
}

// applyBlockInSession applies block in a new undo session, which is kept as
// the undo state of the block on success.
func (db *ChainDB) applyBlockInSession(block *model.SignedBlock, flags BehaviorFlags) error {
	session := db.state.Store.StartUndoSession(true)
	defer session.RollbackUnlessClosed()

	err := db.applyBlock(block, flags)
	if err != nil {
		db.dropQueuedNotifications()
		return err
	}
	session.Push()
	db.sendQueuedNotifications()
	return db.commitIrreversible(flags)
}

// resetForkDBHead points the fork database head back at the chain head.
func (db *ChainDB) resetForkDBHead() {
	item, ok := db.forkDB.FetchBlock(db.state.HeadBlockID())
	if !ok {
		db.forkDB.SetHead(nil)
		return
	}
	db.forkDB.SetHead(item)
}

// switchFork moves the chain to the branch ending at newHead. If a block of
// the new branch fails, the failing block and its descendants are dropped,
// the old branch is restored, and the error of the failing block is
// returned.
func (db *ChainDB) switchFork(newHead *forkdb.Item, flags BehaviorFlags) error {
	oldHeadID := db.state.HeadBlockID()
	newBranch, oldBranch, err := db.fetchBranches(newHead, oldHeadID)
	if err != nil {
		db.resetForkDBHead()
		return err
	}
	ancestor := newBranch[len(newBranch)-1].Previous
	log.Infof("Switching from head %s to fork %s at block %d, %d blocks back",
		oldHeadID, newHead.ID, newHead.Num, len(oldBranch))

	for db.state.HeadBlockID() != ancestor {
		err := db.popBlock()
		if err != nil {
			return errors.Wrapf(ruleerrors.ErrForkRestoreFailed, "popping back to %s: %s", ancestor, err)
		}
	}

	for i := len(newBranch) - 1; i >= 0; i-- {
		err := db.applyItem(newBranch[i], flags)
		if err == nil {
			continue
		}
		if ruleerrors.IsFatal(err) {
			return err
		}
		log.Warnf("Block %s of the new fork is invalid, restoring the previous branch: %s", newBranch[i].ID, err)
		for j := i; j >= 0; j-- {
			db.forkDB.Remove(newBranch[j].ID)
		}
		restoreErr := db.restoreBranch(ancestor, oldHeadID, oldBranch, flags)
		if restoreErr != nil {
			return errors.Wrapf(ruleerrors.ErrForkRestoreFailed, "%s (after the new fork failed with %s)",
				restoreErr, err)
		}
		return err
	}

	db.metrics.forkSwitches.Inc()
	db.sendNotification(NTForkSwitched, &ForkSwitchedNotificationData{
		OldHead:      oldHeadID,
		NewHead:      newHead.ID,
		PoppedBlocks: len(oldBranch),
	})
	return nil
}

// fetchBranches returns the branches from newHead and oldHeadID back to
// their common ancestor, tip first. The empty chain has no head block in
// the fork database, so the new branch is followed back to it directly.
func (db *ChainDB) fetchBranches(newHead *forkdb.Item, oldHeadID model.BlockID) (
	newBranch, oldBranch []*forkdb.Item, err error) {

	if db.state.HeadBlockNum() > 0 {
		return db.forkDB.FetchBranchFrom(newHead.ID, oldHeadID)
	}
	item := newHead
	for {
		newBranch = append(newBranch, item)
		if item.Previous == oldHeadID {
			return newBranch, nil, nil
		}
		previous, ok := db.forkDB.FetchBlock(item.Previous)
		if !ok {
			return nil, nil, errors.Errorf("branch of %s does not reach the genesis state", newHead.ID)
		}
		item = previous
	}
}

// restoreBranch pops back to ancestor and re-applies oldBranch, which is
// ordered tip first.
func (db *ChainDB) restoreBranch(ancestor, oldHeadID model.BlockID, oldBranch []*forkdb.Item,
	flags BehaviorFlags) error {

	for db.state.HeadBlockID() != ancestor {
		err := db.popBlock()
		if err != nil {
			return err
		}
	}
	for i := len(oldBranch) - 1; i >= 0; i-- {
		err := db.applyItem(oldBranch[i], flags)
		if err != nil {
			return errors.Wrapf(err, "re-applying block %s", oldBranch[i].ID)
		}
	}
	if db.state.HeadBlockID() != oldHeadID {
		return errors.Errorf("restored head %s, expected %s", db.state.HeadBlockID(), oldHeadID)
	}
	return nil
}

// popBlock undoes the head block and keeps its transactions to be
// re-applied as pending transactions.
func (db *ChainDB) popBlock() error {
	dgp := db.state.DynamicGlobalProperties()
	if dgp.HeadBlockNumber <= db.lastIrreversibleBlockNum() {
		return errors.Errorf("cannot pop irreversible block %d", dgp.HeadBlockNumber)
	}
	headItem, ok := db.forkDB.FetchBlock(dgp.HeadBlockID)
	if !ok {
		return errors.Errorf("head block %s is not in the fork database", dgp.HeadBlockID)
	}

	err := db.state.Store.Undo()
	if err != nil {
		return errors.Wrapf(err, "popping block %d", dgp.HeadBlockNumber)
	}
	previous, ok := db.forkDB.FetchBlock(headItem.Previous)
	if !ok {
		previous = nil
	}
	db.forkDB.SetHead(previous)

	popped := make([]*model.SignedTransaction, len(headItem.Block.Transactions))
	for i := range headItem.Block.Transactions {
		tx := headItem.Block.Transactions[i].Clone()
		popped[i] = &tx
	}
	db.poppedTransactions = append(popped, db.poppedTransactions...)
	log.Debugf("Popped block %d %s", dgp.HeadBlockNumber, dgp.HeadBlockID)
	return nil
}

// clearPending rolls back the pending state and returns the pending
// transactions.
func (db *ChainDB) clearPending() []*model.SignedTransaction {
	pending := db.pendingTransactions
	db.pendingTransactions = nil
	if db.pendingSession != nil {
		db.pendingSession.Rollback()
		db.pendingSession = nil
	}
	return pending
}

// restorePending re-applies the transactions of popped blocks and then
// pending, dropping those that no longer apply.
func (db *ChainDB) restorePending(pending []*model.SignedTransaction) {
	popped := db.poppedTransactions
	db.poppedTransactions = nil

	dropped := 0
	for _, txs := range [][]*model.SignedTransaction{popped, pending} {
		for _, tx := range txs {
			if db.state.TransactionsByID.Has(tx.ID()) {
				continue
			}
			err := db.pushTransaction(tx, BFNone)
			if err != nil {
				log.Debugf("Dropping pending transaction %s: %s", tx.ID(), err)
				dropped++
			}
		}
	}
	if dropped > 0 {
		log.Debugf("Dropped %d pending transactions that no longer apply", dropped)
	}
}
