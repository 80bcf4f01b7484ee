package chaindb

import (
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/objectstore"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
)

// The hardforks with a state mutation of their own.
const (
	hardforkRewardFund         = 1
	hardforkPrecisionMigration = 2
)

// producerRewardFundName is the reward fund paying block producers.
const producerRewardFundName = "producer"

var hardforkMutations = map[uint32]func(db *ChainDB) error{
	hardforkRewardFund:         (*ChainDB).createRewardFund,
	hardforkPrecisionMigration: (*ChainDB).migratePrecision,
}

// processHardforks applies every hardfork that is due at the head block
// time, in order. Without producer voting a hardfork is due at its
// configured time; with voting it is due once the scheduled producers agreed
// on it and the agreed time passed.
func (db *ChainDB) processHardforks() error {
	hfp := db.state.HardforkProperties()
	now := db.state.HeadBlockTime()
	numHardforks := db.params.NumHardforks()

	if db.params.HardforkRequiredProducers == 0 {
		for hfp.LastHardfork < numHardforks && db.params.Hardforks[hfp.LastHardfork+1].Time <= now {
			err := db.applyHardfork(hfp.LastHardfork + 1)
			if err != nil {
				return err
			}
			hfp = db.state.HardforkProperties()
		}
		return nil
	}

	for db.params.Hardforks[hfp.LastHardfork].Version < hfp.NextHardfork && hfp.NextHardforkTime <= now {
		if hfp.LastHardfork >= numHardforks {
			return errors.Wrapf(ruleerrors.ErrUnknownHardfork, "producers agreed on version %s past hardfork %d",
				hfp.NextHardfork, hfp.LastHardfork)
		}
		err := db.applyHardfork(hfp.LastHardfork + 1)
		if err != nil {
			return err
		}
		hfp = db.state.HardforkProperties()
	}
	return nil
}

// applyHardfork applies hardfork number hardfork, which must follow the last
// applied one.
func (db *ChainDB) applyHardfork(hardfork uint32) error {
	hfp := db.state.HardforkProperties()
	if hardfork != hfp.LastHardfork+1 {
		return errors.Wrapf(ruleerrors.ErrHardforkOutOfOrder, "hardfork %d applied after hardfork %d",
			hardfork, hfp.LastHardfork)
	}
	if hardfork > db.params.NumHardforks() {
		return errors.Wrapf(ruleerrors.ErrUnknownHardfork, "hardfork %d", hardfork)
	}

	if mutate, ok := hardforkMutations[hardfork]; ok {
		err := mutate(db)
		if err != nil {
			return errors.Wrapf(err, "applying hardfork %d", hardfork)
		}
	}

	entry := db.params.Hardforks[hardfork]
	db.state.ModifyHardforkProperties(func(hfp *model.HardforkProperties) {
		hfp.ProcessedHardforks = append(hfp.ProcessedHardforks, entry.Time)
		hfp.LastHardfork = hardfork
		hfp.CurrentHardforkVersion = entry.Version
		if hfp.NextHardfork < entry.Version {
			hfp.NextHardfork = entry.Version
			hfp.NextHardforkTime = entry.Time
		}
	})

	log.Infof("Applied hardfork %d (version %s) at block %d", hardfork, entry.Version, db.state.HeadBlockNum())
	db.metrics.hardforksApplied.Inc()
	db.queueNotification(NTHardforkApplied, &HardforkAppliedNotificationData{
		Hardfork: hardfork,
		Version:  entry.Version,
	})
	return nil
}

// createRewardFund mints the producer reward fund.
func (db *ChainDB) createRewardFund() error {
	now := db.state.HeadBlockTime()
	initialBalance := db.params.RewardFundInitialBalance
	_, err := db.state.RewardFunds.Create(func(_ objectstore.ID, fund *model.RewardFund) {
		fund.Name = producerRewardFundName
		fund.Balance = initialBalance
		fund.RewardPerBlock = db.params.ProducerRewardPerBlock
		fund.LastUpdate = now
	})
	if err != nil {
		return errors.Wrap(err, "creating the producer reward fund")
	}
	db.state.ModifyDynamicGlobalProperties(func(dgp *model.DynamicGlobalProperties) {
		dgp.CurrentSupply += initialBalance
		dgp.VirtualSupply += initialBalance
	})
	return nil
}

// migratePrecision scales every amount of the chain state by the
// precision migration factor.
func (db *ChainDB) migratePrecision() error {
	factor := model.Amount(db.params.PrecisionMigrationFactor)

	var accountIDs []objectstore.ID
	db.state.Accounts.Each(func(id objectstore.ID, _ model.Account) bool {
		accountIDs = append(accountIDs, id)
		return true
	})
	for _, id := range accountIDs {
		err := db.state.Accounts.Modify(id, func(account *model.Account) {
			account.Balance *= factor
			account.EscrowBalance *= factor
		})
		if err != nil {
			return errors.Wrapf(err, "migrating account %d", id)
		}
	}

	var escrowIDs []objectstore.ID
	db.state.Escrows.Each(func(id objectstore.ID, _ model.Escrow) bool {
		escrowIDs = append(escrowIDs, id)
		return true
	})
	for _, id := range escrowIDs {
		err := db.state.Escrows.Modify(id, func(escrow *model.Escrow) {
			escrow.Balance *= factor
		})
		if err != nil {
			return errors.Wrapf(err, "migrating escrow %d", id)
		}
	}

	var fundIDs []objectstore.ID
	db.state.RewardFunds.Each(func(id objectstore.ID, _ model.RewardFund) bool {
		fundIDs = append(fundIDs, id)
		return true
	})
	for _, id := range fundIDs {
		err := db.state.RewardFunds.Modify(id, func(fund *model.RewardFund) {
			fund.Balance *= factor
			fund.RewardPerBlock *= factor
		})
		if err != nil {
			return errors.Wrapf(err, "migrating reward fund %d", id)
		}
	}

	db.state.ModifyDynamicGlobalProperties(func(dgp *model.DynamicGlobalProperties) {
		dgp.CurrentSupply *= factor
		dgp.VirtualSupply *= factor
	})
	log.Infof("Migrated %d accounts, %d escrows and %d reward funds to the new precision",
		len(accountIDs), len(escrowIDs), len(fundIDs))
	return nil
}
