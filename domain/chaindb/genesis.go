package chaindb

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/futurepia/futurepia-sub000/domain/chainconfig"
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/objectstore"
	"github.com/futurepia/futurepia-sub000/domain/consensus/state"
	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/signing"
	"github.com/pkg/errors"
)

// GenesisKey returns the key of a genesis account or producer. Genesis keys
// are derived from the network's genesis key seed, so they are only secret
// as long as the seed is.
func GenesisKey(params *chainconfig.Params, name string) *btcec.PrivateKey {
	return signing.KeyFromSeed(params.GenesisKeySeed + "/" + name)
}

// initGenesis creates the state of the empty chain. It must run on an empty
// store without undo history.
func (db *ChainDB) initGenesis() error {
	params := db.params
	s := db.state

	createAccount := func(name string, balance model.Amount) error {
		key := signing.PublicKey(GenesisKey(params, name))
		_, err := s.Accounts.Create(func(_ objectstore.ID, account *model.Account) {
			account.Name = name
			account.Owner = model.NewKeyAuthority(key)
			account.Active = model.NewKeyAuthority(key)
			account.Posting = model.NewKeyAuthority(key)
			account.MemoKey = key
			account.Balance = balance
			account.Created = params.GenesisTime
			account.LastOwnerUpdate = params.GenesisTime
		})
		return errors.Wrapf(err, "creating genesis account %s", name)
	}

	err := createAccount(params.GenesisAccount, params.InitialSupply)
	if err != nil {
		return err
	}
	genesisVersion := params.Hardforks[0].Version
	for _, name := range params.GenesisProducers {
		err := createAccount(name, 0)
		if err != nil {
			return err
		}
		key := signing.PublicKey(GenesisKey(params, name))
		_, err = s.Producers.Create(func(_ objectstore.ID, producer *model.Producer) {
			producer.Owner = name
			producer.Created = params.GenesisTime
			producer.URL = "genesis"
			producer.SigningKey = key
			producer.RunningVersion = params.BlockchainVersion
			producer.HardforkVersionVote = genesisVersion
			producer.HardforkTimeVote = params.GenesisTime
			producer.MaximumBlockSize = params.InitialMaximumBlockSize
		})
		if err != nil {
			return errors.Wrapf(err, "creating genesis producer %s", name)
		}
	}

	for i := 0; i < state.BlockSummaryRingSize; i++ {
		_, err := s.BlockSummaries.Create(func(objectstore.ID, *model.BlockSummary) {})
		if err != nil {
			return errors.Wrap(err, "creating block summaries")
		}
	}

	err = s.InitSingletons(
		model.DynamicGlobalProperties{
			Time:             params.GenesisTime,
			CurrentProducer:  params.GenesisProducers[0],
			CurrentSupply:    params.InitialSupply,
			VirtualSupply:    params.InitialSupply,
			MaximumBlockSize: params.InitialMaximumBlockSize,
		},
		model.HardforkProperties{
			ProcessedHardforks:     []int64{params.GenesisTime},
			CurrentHardforkVersion: genesisVersion,
			NextHardfork:           genesisVersion,
			NextHardforkTime:       params.GenesisTime,
		},
		model.ProducerSchedule{
			CurrentShuffledProducers: append([]string(nil), params.GenesisProducers...),
			NumScheduledProducers:    uint8(len(params.GenesisProducers)),
			MedianMaximumBlockSize:   params.InitialMaximumBlockSize,
			MajorityVersion:          genesisVersion,
			NextShuffleBlockNum:      uint32(params.NumProducers),
		},
	)
	if err != nil {
		return err
	}
	log.Infof("Created the genesis state of %s with %d producers", params.Name, len(params.GenesisProducers))
	return nil
}
