package chaindb

import (
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/objectstore"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
)

// ValidateInvariants checks that the chain state is consistent. A violation
// is fatal: the state can no longer be trusted.
func (db *ChainDB) ValidateInvariants() error {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.validateInvariants()
}

func (db *ChainDB) validateInvariants() error {
	dgp := db.state.DynamicGlobalProperties()
	hfp := db.state.HardforkProperties()

	if dgp.LastIrreversibleBlockNum > dgp.HeadBlockNumber {
		return errors.Wrapf(ruleerrors.ErrInvariantViolated, "last irreversible block %d is above head %d",
			dgp.LastIrreversibleBlockNum, dgp.HeadBlockNumber)
	}
	if len(hfp.ProcessedHardforks) != int(hfp.LastHardfork)+1 {
		return errors.Wrapf(ruleerrors.ErrInvariantViolated, "%d processed hardforks for last hardfork %d",
			len(hfp.ProcessedHardforks), hfp.LastHardfork)
	}
	if int(dgp.ParticipationCount) != dgp.RecentSlotsFilled.PopCount() {
		return errors.Wrapf(ruleerrors.ErrInvariantViolated, "participation count %d, %d recent slots filled",
			dgp.ParticipationCount, dgp.RecentSlotsFilled.PopCount())
	}
	if dgp.VirtualSupply != dgp.CurrentSupply {
		return errors.Wrapf(ruleerrors.ErrInvariantViolated, "virtual supply %d, current supply %d",
			dgp.VirtualSupply, dgp.CurrentSupply)
	}

	var total model.Amount
	escrowBalances := make(map[string]model.Amount)
	db.state.Escrows.Each(func(_ objectstore.ID, escrow model.Escrow) bool {
		total += escrow.Balance
		escrowBalances[escrow.From] += escrow.Balance
		return true
	})
	db.state.RewardFunds.Each(func(_ objectstore.ID, fund model.RewardFund) bool {
		total += fund.Balance
		return true
	})

	votesByAccount := make(map[string]uint16)
	votesByProducer := make(map[string]uint64)
	db.state.ProducerVotes.Each(func(_ objectstore.ID, vote model.ProducerVote) bool {
		votesByAccount[vote.Account]++
		votesByProducer[vote.Producer]++
		return true
	})

	var err error
	db.state.Accounts.Each(func(_ objectstore.ID, account model.Account) bool {
		total += account.Balance
		if account.EscrowBalance != escrowBalances[account.Name] {
			err = errors.Wrapf(ruleerrors.ErrInvariantViolated, "account %s has escrow balance %d, its escrows hold %d",
				account.Name, account.EscrowBalance, escrowBalances[account.Name])
			return false
		}
		if account.ProducersVotedFor != votesByAccount[account.Name] {
			err = errors.Wrapf(ruleerrors.ErrInvariantViolated, "account %s votes for %d producers, has %d votes",
				account.Name, account.ProducersVotedFor, votesByAccount[account.Name])
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	if total != dgp.CurrentSupply {
		return errors.Wrapf(ruleerrors.ErrInvariantViolated, "balances add up to %d, current supply is %d",
			total, dgp.CurrentSupply)
	}

	db.state.Producers.Each(func(_ objectstore.ID, producer model.Producer) bool {
		if producer.Votes != votesByProducer[producer.Owner] {
			err = errors.Wrapf(ruleerrors.ErrInvariantViolated, "producer %s has %d votes, %d accounts vote for it",
				producer.Owner, producer.Votes, votesByProducer[producer.Owner])
			return false
		}
		return true
	})
	return err
}
