package chaindb

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/objectstore"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/signing"
	"github.com/pkg/errors"
)

// GenerateBlock produces, signs and pushes the block of producer for the
// slot at time when. The block holds as many pending transactions as fit,
// in the order they were received. Pending transactions that do not fit
// stay pending for a later block.
func (db *ChainDB) GenerateBlock(when int64, producer string, signingKey *btcec.PrivateKey,
	flags BehaviorFlags) (*model.SignedBlock, error) {

	db.lock.Lock()
	defer db.lock.Unlock()

	err := db.checkHalted()
	if err != nil {
		return nil, err
	}
	block, err := db.generateBlock(when, producer, signingKey, flags)
	if err != nil {
		db.haltOnFatal(err)
		return nil, err
	}
	db.metrics.blocksGenerated.Inc()
	db.metrics.blocksPushed.Inc()
	db.updateHeadMetrics()
	return block, nil
}

func (db *ChainDB) generateBlock(when int64, producerName string, signingKey *btcec.PrivateKey,
	flags BehaviorFlags) (*model.SignedBlock, error) {

	slot := db.slotAtTime(when)
	if slot == 0 {
		return nil, errors.Wrapf(ruleerrors.ErrNotScheduled, "time %d is not after the head block time %d",
			when, db.state.HeadBlockTime())
	}
	scheduled := db.scheduledProducer(slot)
	if scheduled != producerName {
		return nil, errors.Wrapf(ruleerrors.ErrNotScheduled, "slot %d at time %d belongs to %s, not %s",
			slot, when, scheduled, producerName)
	}
	_, producer, ok := db.state.Producer(producerName)
	if !ok {
		return nil, errors.Wrapf(ruleerrors.ErrUnknownProducer, "%s", producerName)
	}
	if !flags.has(BFSkipProducerSignature) {
		if signingKey == nil || signing.PublicKey(signingKey) != producer.SigningKey {
			return nil, errors.Wrapf(ruleerrors.ErrWrongSigningKey, "producer %s signs with %s",
				producerName, producer.SigningKey)
		}
	}

	dgp := db.state.DynamicGlobalProperties()
	block := &model.SignedBlock{}
	block.Previous = dgp.HeadBlockID
	block.Timestamp = when
	block.Producer = producerName
	block.Extensions = db.headerExtensions(&producer)

	pending := db.clearPending()
	block.Transactions = db.selectTransactions(pending, block.SerializedSize(), int(dgp.MaximumBlockSize),
		when, flags)
	// pushBlock re-applies what is left pending on top of the new block.
	db.pendingTransactions = pending

	block.TransactionMerkleRoot = block.CalculateMerkleRoot()
	if signingKey != nil {
		err := signing.SignBlock(block, db.params.ChainID, signingKey)
		if err != nil {
			db.restorePending(db.clearPending())
			return nil, err
		}
	}

	_, err := db.pushBlock(block, flags)
	if err != nil {
		return nil, err
	}
	log.Debugf("Generated block %d %s with %d transactions", block.Num(), block.ID(), len(block.Transactions))
	return block, nil
}

// selectTransactions applies pending in order in a scratch session and
// returns those that apply and fit in a block of maxBlockSize bytes.
func (db *ChainDB) selectTransactions(pending []*model.SignedTransaction, emptyBlockSize, maxBlockSize int,
	when int64, flags BehaviorFlags) []model.SignedTransaction {

	session := db.state.Store.StartUndoSession(true)
	defer session.Rollback()

	var selected []model.SignedTransaction
	blockSize := emptyBlockSize
	postponed := 0
	for _, tx := range pending {
		if tx.Expiration < when {
			continue
		}
		txSize := tx.SerializedSize()
		if blockSize+txSize > maxBlockSize {
			postponed++
			continue
		}
		err := objectstore.WithSession(db.state.Store, func() error {
			return db.applyTransaction(tx, flags)
		})
		if err != nil {
			log.Debugf("Leaving transaction %s out of the block: %s", tx.ID(), err)
			continue
		}
		blockSize += txSize
		selected = append(selected, tx.Clone())
	}
	if postponed > 0 {
		log.Infof("Postponed %d transactions that do not fit in the block", postponed)
	}
	return selected
}

// headerExtensions reports the software version of producer and its vote
// for the next hardfork, when the chain does not know them yet.
func (db *ChainDB) headerExtensions(producer *model.Producer) []model.HeaderExtension {
	var extensions []model.HeaderExtension
	if producer.RunningVersion != db.params.BlockchainVersion {
		extensions = append(extensions, model.NewRunningVersionExtension(db.params.BlockchainVersion))
	}

	hfp := db.state.HardforkProperties()
	lastVersion := db.params.Hardforks[db.params.NumHardforks()].Version
	switch {
	case hfp.CurrentHardforkVersion < lastVersion:
		next := db.params.Hardforks[hfp.LastHardfork+1]
		if producer.HardforkVersionVote != next.Version || producer.HardforkTimeVote != next.Time {
			extensions = append(extensions, model.NewHardforkVoteExtension(next.Version, next.Time))
		}
	case hfp.CurrentHardforkVersion == lastVersion && producer.HardforkVersionVote > lastVersion:
		last := db.params.Hardforks[hfp.LastHardfork]
		extensions = append(extensions, model.NewHardforkVoteExtension(last.Version, last.Time))
	}
	return extensions
}
