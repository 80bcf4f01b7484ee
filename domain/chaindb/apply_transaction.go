package chaindb

import (
	"github.com/futurepia/futurepia-sub000/domain/consensus/authority"
	"github.com/futurepia/futurepia-sub000/domain/consensus/evaluators"
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/objectstore"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
)

// pendingSizeReserve is kept free of transactions in every block for the
// block header.
const pendingSizeReserve = 256

// PushTransaction validates tx against the pending state and adds it to the
// pending transactions, to be included in a later block.
func (db *ChainDB) PushTransaction(tx *model.SignedTransaction, flags BehaviorFlags) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	err := db.checkHalted()
	if err != nil {
		return err
	}
	err = db.pushTransaction(tx, flags)
	if err != nil {
		db.metrics.txsRejected.Inc()
		return err
	}
	db.metrics.txsAccepted.Inc()
	db.metrics.pendingTransactions.Set(float64(len(db.pendingTransactions)))
	return nil
}

func (db *ChainDB) pushTransaction(tx *model.SignedTransaction, flags BehaviorFlags) error {
	if !flags.has(BFSkipBlockSizeCheck) {
		size := tx.SerializedSize()
		maxBlockSize := int(db.state.DynamicGlobalProperties().MaximumBlockSize)
		if size > maxBlockSize-pendingSizeReserve || size > int(db.params.MaxTransactionSize) {
			return errors.Wrapf(ruleerrors.ErrTransactionTooBig, "transaction %s is %d bytes", tx.ID(), size)
		}
	}
	if db.cfg.MaxPendingTransactions > 0 && len(db.pendingTransactions) >= db.cfg.MaxPendingTransactions {
		return errors.Wrapf(ErrPendingLimit, "%d pending transactions", len(db.pendingTransactions))
	}

	if db.pendingSession == nil {
		db.pendingSession = db.state.Store.StartUndoSession(true)
	}

	err := objectstore.WithSession(db.state.Store, func() error {
		return db.applyTransaction(tx, flags)
	})
	if err != nil {
		return err
	}
	pending := tx.Clone()
	db.pendingTransactions = append(db.pendingTransactions, &pending)
	db.sendNotification(NTTransactionApplied, &TransactionAppliedNotificationData{Transaction: &pending})
	return nil
}

// applyTransaction applies tx to the current state, which is either a
// block being applied or the pending state.
func (db *ChainDB) applyTransaction(tx *model.SignedTransaction, flags BehaviorFlags) error {
	txID := tx.ID()

	if !flags.has(BFSkipValidate) {
		err := tx.Validate()
		if err != nil {
			return errors.Wrapf(ruleerrors.ErrInvalidTransaction, "transaction %s: %s", txID, err)
		}
	}

	if !flags.has(BFSkipTransactionDupeCheck) && db.state.TransactionsByID.Has(txID) {
		return errors.Wrapf(ruleerrors.ErrDuplicateTransaction, "transaction %s", txID)
	}

	if !flags.has(BFSkipTransactionSignatures) && !flags.has(BFSkipAuthorityCheck) {
		err := authority.VerifyTransaction(tx, db.params.ChainID, db.lookup, db.params.MaxSigCheckDepth)
		if err != nil {
			return errors.Wrapf(err, "transaction %s", txID)
		}
	}

	dgp := db.state.DynamicGlobalProperties()
	if dgp.HeadBlockNumber > 0 {
		if !flags.has(BFSkipTaposCheck) {
			summaryID := db.state.BlockSummary(uint32(tx.RefBlockNum))
			if tx.RefBlockPrefix != summaryID.Prefix() {
				return errors.Wrapf(ruleerrors.ErrTaposMismatch,
					"transaction %s references block %d with prefix %d, this chain has prefix %d",
					txID, tx.RefBlockNum, tx.RefBlockPrefix, summaryID.Prefix())
			}
		}

		now := dgp.Time
		if tx.Expiration > now+db.params.MaxTimeUntilExpiration {
			return errors.Wrapf(ruleerrors.ErrExpirationTooFar, "transaction %s expires at %d, head time is %d",
				txID, tx.Expiration, now)
		}
		if now >= tx.Expiration {
			return errors.Wrapf(ruleerrors.ErrExpiredTransaction, "transaction %s expired at %d, head time is %d",
				txID, tx.Expiration, now)
		}
	}

	if !flags.has(BFSkipTransactionDupeCheck) {
		_, err := db.state.Transactions.Create(func(_ objectstore.ID, row *model.TransactionObject) {
			row.TransactionID = txID
			row.Expiration = tx.Expiration
		})
		if err != nil {
			return errors.Wrapf(err, "recording transaction %s", txID)
		}
	}

	ctx := &evaluators.Context{
		State:  db.state,
		Params: db.params,
		Now:    dgp.Time,
	}
	return objectstore.WithSession(db.state.Store, func() error {
		for i := range tx.Operations {
			err := db.evaluators.Apply(ctx, &tx.Operations[i])
			if err != nil {
				if !ruleerrors.IsRuleError(err) {
					err = errors.Wrapf(ruleerrors.ErrOperationFailed, "%s", err)
				}
				return errors.Wrapf(err, "transaction %s operation #%d", txID, i)
			}
		}
		return nil
	})
}
