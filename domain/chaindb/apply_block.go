package chaindb

import (
	"github.com/futurepia/futurepia-sub000/domain/consensus/evaluators"
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/objectstore"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/futurepia/futurepia-sub000/domain/consensus/state"
	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/signing"
	"github.com/pkg/errors"
)

// applyBlock applies block on top of the head. It must run inside an undo
// session owned by the caller: on error the store may hold a partial
// application, which the caller rolls back.
func (db *ChainDB) applyBlock(block *model.SignedBlock, flags BehaviorFlags) error {
	blockNum := block.Num()
	blockID := block.ID()

	if checkpoint, ok := db.params.Checkpoints[blockNum]; ok && checkpoint != blockID {
		return errors.Wrapf(ruleerrors.ErrCheckpointMismatch, "block %d is %s, checkpoint is %s",
			blockNum, blockID, checkpoint)
	}
	if blockNum <= db.params.LastCheckpoint() {
		flags |= BFTrustedBlock
	}

	db.currentBlockNum = blockNum
	db.currentTransactionInBlock = 0

	if !flags.has(BFSkipMerkleCheck) {
		err := db.checkMerkleRoot(block, blockID)
		if err != nil {
			return err
		}
	}

	producerID, err := db.validateBlockHeader(block, flags)
	if err != nil {
		return err
	}

	if !flags.has(BFSkipBlockSizeCheck) {
		size := block.SerializedSize()
		maxSize := db.state.DynamicGlobalProperties().MaximumBlockSize
		if size > int(maxSize) {
			return errors.Wrapf(ruleerrors.ErrBlockTooBig, "block %d is %d bytes, the maximum is %d",
				blockNum, size, maxSize)
		}
	}

	db.state.ModifyDynamicGlobalProperties(func(dgp *model.DynamicGlobalProperties) {
		dgp.CurrentProducer = block.Producer
	})

	err = db.processHeaderExtensions(block, producerID)
	if err != nil {
		return err
	}
	producer := db.state.Producers.MustGet(producerID)
	currentVersion := db.state.HardforkProperties().CurrentHardforkVersion
	if producer.RunningVersion < currentVersion {
		return errors.Wrapf(ruleerrors.ErrProducerVersionTooOld, "producer %s runs %s, hardfork %s is active",
			producer.Owner, producer.RunningVersion, currentVersion)
	}

	for i := range block.Transactions {
		err := db.applyTransaction(&block.Transactions[i], flags)
		if err != nil {
			return ruleerrors.NewErrInvalidTransactionInBlock(i, err)
		}
		db.currentTransactionInBlock++
	}

	err = db.updateGlobalDynamicData(block, blockID, flags)
	if err != nil {
		return err
	}
	err = db.updateSigningProducer(producerID, block)
	if err != nil {
		return err
	}
	db.updateLastIrreversibleBlock()
	err = db.createBlockSummary(blockNum, blockID)
	if err != nil {
		return err
	}
	err = db.clearExpired()
	if err != nil {
		return err
	}
	db.updateProducerSchedule()

	for _, hook := range maintenanceHooks {
		err := hook.run(db, block)
		if err != nil {
			return errors.Wrapf(err, "running the %s maintenance hook", hook.name)
		}
	}

	err = db.processHardforks()
	if err != nil {
		return err
	}

	if !flags.has(BFSkipValidateInvariants) && !db.cfg.SkipInvariants {
		err := db.validateInvariants()
		if err != nil {
			return err
		}
	}

	db.queueNotification(NTBlockApplied, &BlockAppliedNotificationData{Block: block})
	return nil
}

func (db *ChainDB) checkMerkleRoot(block *model.SignedBlock, blockID model.BlockID) error {
	root := block.CalculateMerkleRoot()
	if root == block.TransactionMerkleRoot {
		return nil
	}
	if known, ok := db.params.KnownMerkleRoots[blockID]; ok && known == root {
		log.Debugf("Accepting the known merkle root mismatch of block %s", blockID)
		return nil
	}
	return errors.Wrapf(ruleerrors.ErrBadMerkleRoot, "block %s has merkle root %s, its transactions hash to %s",
		blockID, block.TransactionMerkleRoot, root)
}

// validateBlockHeader checks the header of block against the head and
// returns the id of its producer.
func (db *ChainDB) validateBlockHeader(block *model.SignedBlock, flags BehaviorFlags) (objectstore.ID, error) {
	dgp := db.state.DynamicGlobalProperties()
	if block.Previous != dgp.HeadBlockID {
		return 0, errors.Wrapf(ruleerrors.ErrUnexpectedPrevious, "block %d builds on %s, the head is %s",
			block.Num(), block.Previous, dgp.HeadBlockID)
	}
	if block.Timestamp <= dgp.Time {
		return 0, errors.Wrapf(ruleerrors.ErrTimeTooOld, "block time %d is not later than the head time %d",
			block.Timestamp, dgp.Time)
	}

	producerID, producer, ok := db.state.Producer(block.Producer)
	if !ok {
		return 0, errors.Wrapf(ruleerrors.ErrUnknownProducer, "block producer %s", block.Producer)
	}

	if !flags.has(BFSkipProducerSignature) &&
		!signing.VerifyBlockSignature(&block.SignedBlockHeader, db.params.ChainID, producer.SigningKey) {

		return 0, errors.Wrapf(ruleerrors.ErrBadBlockSignature, "block %d of %s", block.Num(), block.Producer)
	}

	if !flags.has(BFSkipProducerScheduleCheck) {
		slot := db.slotAtTime(block.Timestamp)
		if slot == 0 || db.slotTime(slot) != block.Timestamp {
			return 0, errors.Wrapf(ruleerrors.ErrTimeNotOnSlot, "block time %d", block.Timestamp)
		}
		scheduled := db.scheduledProducer(slot)
		if scheduled != block.Producer {
			return 0, errors.Wrapf(ruleerrors.ErrWrongProducer, "slot %d belongs to %s, block was produced by %s",
				slot, scheduled, block.Producer)
		}
	}
	return producerID, nil
}

// processHeaderExtensions records the running version and hardfork vote the
// producer reports in the header.
func (db *ChainDB) processHeaderExtensions(block *model.SignedBlock, producerID objectstore.ID) error {
	seen := make(map[model.HeaderExtensionType]struct{}, len(block.Extensions))
	for i := range block.Extensions {
		extension := &block.Extensions[i]
		extensionType := extension.Type()
		if _, ok := seen[extensionType]; ok {
			return errors.Wrapf(ruleerrors.ErrBadHeaderExtension, "duplicate extension of type %d", extensionType)
		}
		seen[extensionType] = struct{}{}

		var err error
		switch extensionType {
		case model.ExtRunningVersion:
			version := extension.RunningVersion.Version
			err = db.state.Producers.Modify(producerID, func(producer *model.Producer) {
				producer.RunningVersion = version
			})
		case model.ExtHardforkVote:
			vote := extension.HardforkVote
			if !db.isKnownHardforkVersion(vote.Version) {
				return errors.Wrapf(ruleerrors.ErrBadHeaderExtension, "vote for unknown hardfork version %s",
					vote.Version)
			}
			err = db.state.Producers.Modify(producerID, func(producer *model.Producer) {
				producer.HardforkVersionVote = vote.Version
				producer.HardforkTimeVote = vote.Time
			})
		default:
			return errors.Wrapf(ruleerrors.ErrBadHeaderExtension, "unknown extension type %d", extensionType)
		}
		if err != nil {
			return errors.Wrapf(err, "modifying producer %s", block.Producer)
		}
	}
	return nil
}

func (db *ChainDB) isKnownHardforkVersion(version model.Version) bool {
	for _, hardfork := range db.params.Hardforks {
		if hardfork.Version == version {
			return true
		}
	}
	return false
}

// updateGlobalDynamicData moves the head to block, recording the slots it
// skipped against their producers.
func (db *ChainDB) updateGlobalDynamicData(block *model.SignedBlock, blockID model.BlockID,
	flags BehaviorFlags) error {

	dgp := db.state.DynamicGlobalProperties()

	var missedBlocks uint32
	if slot := db.slotAtTime(block.Timestamp); slot > 0 {
		missedBlocks = slot - 1
	}
	for i := uint32(0); i < missedBlocks; i++ {
		err := db.recordMissedBlock(db.scheduledProducer(i+1), block.Producer, dgp.HeadBlockNumber)
		if err != nil {
			return err
		}
	}

	// Slots older than the bitmap are all empty after this many shifts.
	shifts := missedBlocks + 1
	if shifts > model.SlotBitmapSize+1 {
		shifts = model.SlotBitmapSize + 1
	}
	db.state.ModifyDynamicGlobalProperties(func(dgp *model.DynamicGlobalProperties) {
		for i := uint32(0); i < shifts; i++ {
			filled := i == 0
			if dgp.RecentSlotsFilled.Shift(filled) {
				dgp.ParticipationCount--
			}
			if filled {
				dgp.ParticipationCount++
			}
		}
		dgp.HeadBlockNumber = block.Num()
		dgp.HeadBlockID = blockID
		dgp.Time = block.Timestamp
		dgp.CurrentAslot += uint64(missedBlocks) + 1
	})

	if !flags.has(BFSkipUndoHistoryCheck) {
		dgp := db.state.DynamicGlobalProperties()
		if dgp.HeadBlockNumber-dgp.LastIrreversibleBlockNum >= db.params.MaxUndoHistory {
			return errors.Wrapf(ruleerrors.ErrUndoHistoryExceeded, "head %d, last irreversible block %d",
				dgp.HeadBlockNumber, dgp.LastIrreversibleBlockNum)
		}
	}
	return nil
}

// recordMissedBlock counts a missed slot against producer name, and shuts
// the producer down once it has not confirmed a block for a day.
func (db *ChainDB) recordMissedBlock(name, blockProducer string, headBlockNum uint32) error {
	if name == blockProducer {
		return nil
	}
	producerID, producer, ok := db.state.Producer(name)
	if !ok {
		return nil
	}
	shutdown := headBlockNum-producer.LastConfirmedBlockNum > db.params.BlocksPerDay &&
		!producer.SigningKey.IsZero()
	err := db.state.Producers.Modify(producerID, func(producer *model.Producer) {
		producer.TotalMissed++
		if shutdown {
			producer.SigningKey = model.PublicKey{}
		}
	})
	if err != nil {
		return errors.Wrapf(err, "modifying producer %s", name)
	}
	if shutdown {
		log.Infof("Shutting down producer %s, it has not produced a block since block %d",
			name, producer.LastConfirmedBlockNum)
		db.queueNotification(NTProducerShutdown, &ProducerShutdownNotificationData{
			Producer: name,
			BlockNum: headBlockNum + 1,
		})
	}
	return nil
}

func (db *ChainDB) updateSigningProducer(producerID objectstore.ID, block *model.SignedBlock) error {
	dgp := db.state.DynamicGlobalProperties()
	newAslot := dgp.CurrentAslot + uint64(db.slotAtTime(block.Timestamp))
	err := db.state.Producers.Modify(producerID, func(producer *model.Producer) {
		producer.LastAslot = newAslot
		producer.LastConfirmedBlockNum = dgp.HeadBlockNumber
	})
	return errors.Wrapf(err, "modifying producer %s", block.Producer)
}

func (db *ChainDB) createBlockSummary(blockNum uint32, blockID model.BlockID) error {
	err := db.state.BlockSummaries.Modify(state.BlockSummaryID(blockNum), func(summary *model.BlockSummary) {
		summary.BlockID = blockID
	})
	return errors.Wrapf(err, "writing the summary of block %d", blockNum)
}

// clearExpired forgets the transactions that can no longer be applied and
// returns the funds of expired escrows.
func (db *ChainDB) clearExpired() error {
	now := db.state.HeadBlockTime()
	for _, id := range db.state.TransactionsByExpiration.CollectLessThan(now) {
		err := db.state.Transactions.Remove(id)
		if err != nil {
			return errors.Wrapf(err, "removing expired transaction %d", id)
		}
	}
	return evaluators.ExpireEscrows(db.state, now)
}
