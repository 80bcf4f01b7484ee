package state

import (
	"bytes"

	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/objectstore"
	"github.com/pkg/errors"
)

// BlockSummaryRingSize is the number of block summaries kept. The summary
// of block n lives in slot n % BlockSummaryRingSize.
const BlockSummaryRingSize = 0x10000

const singletonID objectstore.ID = 0

// AccountProducerKey identifies the vote of an account for a producer.
type AccountProducerKey struct {
	Account  string
	Producer string
}

// EscrowKey identifies an escrow by its sender and sender-chosen id.
type EscrowKey struct {
	From     string
	EscrowID uint32
}

// ChainState is the complete state of the chain: every table and index the
// block and transaction appliers read and write. All of it lives in one
// object store, so one undo session covers all of it.
type ChainState struct {
	Store *objectstore.Store

	Accounts       *objectstore.Table[model.Account]
	AccountsByName *objectstore.Index[model.Account, string]

	Producers        *objectstore.Table[model.Producer]
	ProducersByOwner *objectstore.Index[model.Producer, string]
	ProducersByVotes *objectstore.Index[model.Producer, uint64]

	ProducerVotes                  *objectstore.Table[model.ProducerVote]
	ProducerVotesByAccountProducer *objectstore.Index[model.ProducerVote, AccountProducerKey]

	Transactions             *objectstore.Table[model.TransactionObject]
	TransactionsByID         *objectstore.Index[model.TransactionObject, model.TransactionID]
	TransactionsByExpiration *objectstore.Index[model.TransactionObject, int64]

	BlockSummaries *objectstore.Table[model.BlockSummary]

	Escrows             *objectstore.Table[model.Escrow]
	EscrowsByFromID     *objectstore.Index[model.Escrow, EscrowKey]
	EscrowsByExpiration *objectstore.Index[model.Escrow, int64]

	RewardFunds       *objectstore.Table[model.RewardFund]
	RewardFundsByName *objectstore.Index[model.RewardFund, string]

	dynamicGlobalProperties *objectstore.Table[model.DynamicGlobalProperties]
	hardforkProperties      *objectstore.Table[model.HardforkProperties]
	producerSchedule        *objectstore.Table[model.ProducerSchedule]
}

// New returns an empty chain state with all tables and indices created.
func New() *ChainState {
	store := objectstore.New()
	s := &ChainState{Store: store}

	s.Accounts = objectstore.NewTable[model.Account](store, "account")
	s.AccountsByName = objectstore.NewOrderedIndex(s.Accounts, "by-name", true,
		func(a *model.Account) string { return a.Name })

	s.Producers = objectstore.NewTable[model.Producer](store, "producer")
	s.ProducersByOwner = objectstore.NewOrderedIndex(s.Producers, "by-owner", true,
		func(p *model.Producer) string { return p.Owner })
	// Most votes first. Equal votes keep creation order.
	s.ProducersByVotes = objectstore.NewIndex(s.Producers, "by-votes", false,
		func(p *model.Producer) uint64 { return p.Votes },
		func(a, b uint64) bool { return a > b })

	s.ProducerVotes = objectstore.NewTable[model.ProducerVote](store, "producer-vote")
	s.ProducerVotesByAccountProducer = objectstore.NewIndex(s.ProducerVotes, "by-account-producer", true,
		func(v *model.ProducerVote) AccountProducerKey {
			return AccountProducerKey{Account: v.Account, Producer: v.Producer}
		},
		func(a, b AccountProducerKey) bool {
			if a.Account != b.Account {
				return a.Account < b.Account
			}
			return a.Producer < b.Producer
		})

	s.Transactions = objectstore.NewTable[model.TransactionObject](store, "transaction")
	s.TransactionsByID = objectstore.NewIndex(s.Transactions, "by-id", true,
		func(t *model.TransactionObject) model.TransactionID { return t.TransactionID },
		func(a, b model.TransactionID) bool { return bytes.Compare(a[:], b[:]) < 0 })
	s.TransactionsByExpiration = objectstore.NewOrderedIndex(s.Transactions, "by-expiration", false,
		func(t *model.TransactionObject) int64 { return t.Expiration })

	s.BlockSummaries = objectstore.NewTable[model.BlockSummary](store, "block-summary")

	s.Escrows = objectstore.NewTable[model.Escrow](store, "escrow")
	s.EscrowsByFromID = objectstore.NewIndex(s.Escrows, "by-from-id", true,
		func(e *model.Escrow) EscrowKey { return EscrowKey{From: e.From, EscrowID: e.EscrowID} },
		func(a, b EscrowKey) bool {
			if a.From != b.From {
				return a.From < b.From
			}
			return a.EscrowID < b.EscrowID
		})
	s.EscrowsByExpiration = objectstore.NewOrderedIndex(s.Escrows, "by-expiration", false,
		func(e *model.Escrow) int64 { return e.EscrowExpiration })

	s.RewardFunds = objectstore.NewTable[model.RewardFund](store, "reward-fund")
	s.RewardFundsByName = objectstore.NewOrderedIndex(s.RewardFunds, "by-name", true,
		func(f *model.RewardFund) string { return f.Name })

	s.dynamicGlobalProperties = objectstore.NewTable[model.DynamicGlobalProperties](store, "dynamic-global-properties")
	s.hardforkProperties = objectstore.NewTable[model.HardforkProperties](store, "hardfork-properties")
	s.producerSchedule = objectstore.NewTable[model.ProducerSchedule](store, "producer-schedule")

	return s
}

// IsInitialized returns whether the singletons exist.
func (s *ChainState) IsInitialized() bool {
	return s.dynamicGlobalProperties.Len() == 1
}

// InitSingletons creates the singletons with the given initial values.
func (s *ChainState) InitSingletons(dgp model.DynamicGlobalProperties, hfp model.HardforkProperties,
	schedule model.ProducerSchedule) error {

	if s.IsInitialized() {
		return errors.New("chain state singletons already exist")
	}
	_, err := s.dynamicGlobalProperties.Create(func(_ objectstore.ID, row *model.DynamicGlobalProperties) {
		*row = dgp
	})
	if err != nil {
		return err
	}
	_, err = s.hardforkProperties.Create(func(_ objectstore.ID, row *model.HardforkProperties) {
		*row = hfp.Clone()
	})
	if err != nil {
		return err
	}
	_, err = s.producerSchedule.Create(func(_ objectstore.ID, row *model.ProducerSchedule) {
		*row = schedule.Clone()
	})
	return err
}

// DynamicGlobalProperties returns the dynamic global properties.
func (s *ChainState) DynamicGlobalProperties() model.DynamicGlobalProperties {
	return s.dynamicGlobalProperties.MustGet(singletonID)
}

// ModifyDynamicGlobalProperties applies mutate to the dynamic global
// properties.
func (s *ChainState) ModifyDynamicGlobalProperties(mutate func(dgp *model.DynamicGlobalProperties)) {
	mustModifySingleton(s.dynamicGlobalProperties, mutate)
}

// HardforkProperties returns the hardfork properties.
func (s *ChainState) HardforkProperties() model.HardforkProperties {
	return s.hardforkProperties.MustGet(singletonID)
}

// ModifyHardforkProperties applies mutate to the hardfork properties.
func (s *ChainState) ModifyHardforkProperties(mutate func(hfp *model.HardforkProperties)) {
	mustModifySingleton(s.hardforkProperties, mutate)
}

// ProducerSchedule returns the producer schedule.
func (s *ChainState) ProducerSchedule() model.ProducerSchedule {
	return s.producerSchedule.MustGet(singletonID)
}

// ModifyProducerSchedule applies mutate to the producer schedule.
func (s *ChainState) ModifyProducerSchedule(mutate func(schedule *model.ProducerSchedule)) {
	mustModifySingleton(s.producerSchedule, mutate)
}

func mustModifySingleton[T objectstore.Row[T]](table *objectstore.Table[T], mutate func(row *T)) {
	// Singletons have no unique indices, so only a missing row can fail.
	err := table.Modify(singletonID, mutate)
	if err != nil {
		panic(errors.Wrapf(err, "singleton %s", table.Name()))
	}
}

// Account returns the account with the given name.
func (s *ChainState) Account(name string) (objectstore.ID, model.Account, bool) {
	return s.AccountsByName.Find(name)
}

// Producer returns the producer owned by the given account.
func (s *ChainState) Producer(owner string) (objectstore.ID, model.Producer, bool) {
	return s.ProducersByOwner.Find(owner)
}

// BlockSummaryID returns the ring slot of block blockNum.
func BlockSummaryID(blockNum uint32) objectstore.ID {
	return objectstore.ID(blockNum % BlockSummaryRingSize)
}

// BlockSummary returns the id of the last block stored in the ring slot of
// blockNum.
func (s *ChainState) BlockSummary(blockNum uint32) model.BlockID {
	return s.BlockSummaries.MustGet(BlockSummaryID(blockNum)).BlockID
}

// HeadBlockNum returns the number of the head block.
func (s *ChainState) HeadBlockNum() uint32 {
	return s.DynamicGlobalProperties().HeadBlockNumber
}

// HeadBlockTime returns the timestamp of the head block.
func (s *ChainState) HeadBlockTime() int64 {
	return s.DynamicGlobalProperties().Time
}

// HeadBlockID returns the id of the head block.
func (s *ChainState) HeadBlockID() model.BlockID {
	return s.DynamicGlobalProperties().HeadBlockID
}

// HasHardfork returns whether hardfork number hardfork was applied.
func (s *ChainState) HasHardfork(hardfork uint32) bool {
	return s.HardforkProperties().LastHardfork >= hardfork
}
