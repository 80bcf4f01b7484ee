package chaindb

import (
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/pkg/errors"
)

// maintenanceHook is a chain state update that runs after every block.
type maintenanceHook struct {
	name string
	run  func(db *ChainDB, block *model.SignedBlock) error
}

// maintenanceHooks run in this order after every block.
var maintenanceHooks = []maintenanceHook{
	{name: "funds", run: (*ChainDB).processFunds},
	{name: "virtual supply", run: (*ChainDB).updateVirtualSupply},
}

// processFunds pays the block producer its reward from the producer reward
// fund, once the fund exists.
func (db *ChainDB) processFunds(block *model.SignedBlock) error {
	if !db.state.HasHardfork(hardforkRewardFund) {
		return nil
	}
	fundID, fund, ok := db.state.RewardFundsByName.Find(producerRewardFundName)
	if !ok {
		return nil
	}
	reward := fund.RewardPerBlock
	if fund.Balance < reward {
		reward = fund.Balance
	}
	if reward <= 0 {
		return nil
	}

	accountID, _, ok := db.state.Account(block.Producer)
	if !ok {
		return errors.Errorf("producer %s has no account", block.Producer)
	}
	now := db.state.HeadBlockTime()
	err := db.state.RewardFunds.Modify(fundID, func(fund *model.RewardFund) {
		fund.Balance -= reward
		fund.LastUpdate = now
	})
	if err != nil {
		return err
	}
	return db.state.Accounts.Modify(accountID, func(account *model.Account) {
		account.Balance += reward
	})
}

func (db *ChainDB) updateVirtualSupply(*model.SignedBlock) error {
	db.state.ModifyDynamicGlobalProperties(func(dgp *model.DynamicGlobalProperties) {
		dgp.VirtualSupply = dgp.CurrentSupply
	})
	return nil
}
