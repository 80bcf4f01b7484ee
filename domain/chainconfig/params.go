// Copyright (c) 2014-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainconfig

import (
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/pkg/errors"
)

const (
	// OneHundredPercent is 100% in basis points.
	OneHundredPercent = 10000

	secondsPerDay = 24 * 60 * 60
)

// Hardfork is one entry of the hardfork table: the version a hardfork
// activates and the time, in unix seconds, at which it becomes due.
type Hardfork struct {
	Version model.Version
	Time    int64
}

// Params defines a network by its parameters. Every node on a network must
// run with the same parameters, since all of them affect consensus.
type Params struct {
	// Name defines a human-readable identifier for the network.
	Name string

	// ChainID separates signatures on this network from signatures on
	// other networks.
	ChainID model.ChainID

	// BlockchainVersion is the version of the consensus rules this
	// software implements. Producers report it in their blocks.
	BlockchainVersion model.Version

	// BlockInterval is the length of a slot in seconds.
	BlockInterval int64

	// NumProducers is the number of producers scheduled per round.
	NumProducers int

	// MaxProducerVotesPerAccount is the number of producers a single
	// account may vote for.
	MaxProducerVotesPerAccount uint16

	// MaxTimeUntilExpiration is how far in the future, in seconds, a
	// transaction may expire.
	MaxTimeUntilExpiration int64

	// IrreversibleThreshold is the share of scheduled producers, in basis
	// points, that must confirm a block for it to become irreversible.
	IrreversibleThreshold uint32

	// FirstVotingBlock is the first block at which irreversibility is
	// decided by producer confirmations instead of a fixed distance from
	// the head.
	FirstVotingBlock uint32

	// MaxUndoHistory is the largest allowed distance between the head and
	// the last irreversible block.
	MaxUndoHistory uint32

	// BlocksPerDay is the number of slots in a day. A producer that has not
	// confirmed a block for longer than that is shut down.
	BlocksPerDay uint32

	// InitialMaximumBlockSize is the maximum block size at genesis.
	InitialMaximumBlockSize uint32

	// MinBlockSizeLimit and MaxBlockSizeLimit bound the maximum block size
	// producers may propose.
	MinBlockSizeLimit uint32
	MaxBlockSizeLimit uint32

	// MaxTransactionSize is the size limit of a single transaction.
	MaxTransactionSize uint32

	// MaxSigCheckDepth is how deep account authorities may nest.
	MaxSigCheckDepth uint32

	// GenesisTime is the head block time of the empty chain.
	GenesisTime int64

	// GenesisAccount receives InitialSupply at genesis.
	GenesisAccount string
	InitialSupply  model.Amount

	// GenesisProducers are the producers of the first rounds. Their keys
	// are derived from GenesisKeySeed.
	GenesisProducers []string
	GenesisKeySeed   string

	// AccountCreationFee is the smallest fee an account creation may pay.
	AccountCreationFee model.Amount

	// Hardforks is the hardfork table. Hardforks[0] is the genesis state
	// and its time must equal GenesisTime.
	Hardforks []Hardfork

	// HardforkRequiredProducers is the number of scheduled producers that
	// must vote for a hardfork before it may activate. Zero activates
	// hardforks by time alone.
	HardforkRequiredProducers int

	// RewardFundInitialBalance is minted into the producer reward fund when
	// the reward fund hardfork activates.
	RewardFundInitialBalance model.Amount

	// ProducerRewardPerBlock is paid from the reward fund to the producer
	// of every block once the reward fund exists.
	ProducerRewardPerBlock model.Amount

	// PrecisionMigrationFactor multiplies every balance when the precision
	// migration hardfork activates.
	PrecisionMigrationFactor int64

	// Checkpoints pins block ids by block number. Blocks at or below the
	// last checkpoint skip most validation.
	Checkpoints map[uint32]model.BlockID

	// KnownMerkleRoots lists blocks whose header merkle root is known to
	// mismatch their transactions and is accepted anyway.
	KnownMerkleRoots map[model.BlockID]model.Hash
}

// NumHardforks returns the number of the last hardfork in the table.
func (p *Params) NumHardforks() uint32 {
	return uint32(len(p.Hardforks) - 1)
}

// LastCheckpoint returns the highest checkpointed block number, or zero.
func (p *Params) LastCheckpoint() uint32 {
	var last uint32
	for num := range p.Checkpoints {
		if num > last {
			last = num
		}
	}
	return last
}

// Validate checks that the parameters are consistent.
func (p *Params) Validate() error {
	if p.BlockInterval <= 0 {
		return errors.Errorf("%s: block interval must be positive", p.Name)
	}
	if p.NumProducers <= 0 || p.NumProducers > 255 {
		return errors.Errorf("%s: number of producers must be between 1 and 255", p.Name)
	}
	if len(p.GenesisProducers) == 0 {
		return errors.Errorf("%s: at least one genesis producer is required", p.Name)
	}
	if len(p.GenesisProducers) > p.NumProducers {
		return errors.Errorf("%s: %d genesis producers exceed the %d producers of a round",
			p.Name, len(p.GenesisProducers), p.NumProducers)
	}
	if p.IrreversibleThreshold == 0 || p.IrreversibleThreshold > OneHundredPercent {
		return errors.Errorf("%s: irreversible threshold must be in (0, %d]", p.Name, OneHundredPercent)
	}
	if len(p.Hardforks) == 0 || p.Hardforks[0].Time != p.GenesisTime {
		return errors.Errorf("%s: hardfork 0 must activate at genesis", p.Name)
	}
	for i := 1; i < len(p.Hardforks); i++ {
		if p.Hardforks[i].Version <= p.Hardforks[i-1].Version {
			return errors.Errorf("%s: hardfork %d does not increase the version", p.Name, i)
		}
		if p.Hardforks[i].Time < p.Hardforks[i-1].Time {
			return errors.Errorf("%s: hardfork %d activates before hardfork %d", p.Name, i, i-1)
		}
	}
	if p.HardforkRequiredProducers > p.NumProducers {
		return errors.Errorf("%s: hardforks require more votes than there are producers", p.Name)
	}
	if p.MinBlockSizeLimit > p.InitialMaximumBlockSize || p.InitialMaximumBlockSize > p.MaxBlockSizeLimit {
		return errors.Errorf("%s: initial maximum block size is out of the allowed range", p.Name)
	}
	if p.MaxTransactionSize == 0 || p.MaxTransactionSize > p.MinBlockSizeLimit {
		return errors.Errorf("%s: maximum transaction size must fit in the smallest block", p.Name)
	}
	if p.PrecisionMigrationFactor <= 0 {
		return errors.Errorf("%s: precision migration factor must be positive", p.Name)
	}
	if p.BlocksPerDay == 0 || p.MaxUndoHistory == 0 {
		return errors.Errorf("%s: blocks per day and max undo history must be positive", p.Name)
	}
	return nil
}

func genesisProducerNames(count int, prefix string) []string {
	names := make([]string, count)
	for i := range names {
		names[i] = prefix + string(rune('a'+i/10)) + string(rune('0'+i%10))
	}
	return names
}

const (
	mainnetGenesisTime  = 1609459200
	mainnetInterval     = 3
	testnetGenesisTime  = 1640995200
	simnetGenesisTime   = 1577836800
	defaultNumProducers = 21
)

// MainnetParams defines the network parameters for the main network.
var MainnetParams = Params{
	Name:                       "mainnet",
	ChainID:                    model.NewChainID("mainnet"),
	BlockchainVersion:          model.NewVersion(0, 2, 0),
	BlockInterval:              mainnetInterval,
	NumProducers:               defaultNumProducers,
	MaxProducerVotesPerAccount: 30,
	MaxTimeUntilExpiration:     60 * 60,
	IrreversibleThreshold:      7500,
	FirstVotingBlock:           secondsPerDay / mainnetInterval,
	MaxUndoHistory:             10000,
	BlocksPerDay:               secondsPerDay / mainnetInterval,
	InitialMaximumBlockSize:    131072,
	MinBlockSizeLimit:          65536,
	MaxBlockSizeLimit:          2 * 1024 * 1024,
	MaxTransactionSize:         64 * 1024,
	MaxSigCheckDepth:           2,
	GenesisTime:                mainnetGenesisTime,
	GenesisAccount:             "genesis",
	InitialSupply:              1000000000000,
	GenesisProducers:           genesisProducerNames(defaultNumProducers, "init"),
	GenesisKeySeed:             "mainnet genesis producers",
	AccountCreationFee:         1000,
	Hardforks: []Hardfork{
		{Version: model.NewVersion(0, 0, 0), Time: mainnetGenesisTime},
		{Version: model.NewVersion(0, 1, 0), Time: mainnetGenesisTime + 7*secondsPerDay},
		{Version: model.NewVersion(0, 2, 0), Time: mainnetGenesisTime + 30*secondsPerDay},
	},
	HardforkRequiredProducers: 17,
	RewardFundInitialBalance:  100000000000,
	ProducerRewardPerBlock:    1000,
	PrecisionMigrationFactor:  1000,
	Checkpoints:               map[uint32]model.BlockID{},
	KnownMerkleRoots:          map[model.BlockID]model.Hash{},
}

// TestnetParams defines the network parameters for the test network.
var TestnetParams = Params{
	Name:                       "testnet",
	ChainID:                    model.NewChainID("testnet"),
	BlockchainVersion:          model.NewVersion(0, 2, 0),
	BlockInterval:              mainnetInterval,
	NumProducers:               defaultNumProducers,
	MaxProducerVotesPerAccount: 30,
	MaxTimeUntilExpiration:     60 * 60,
	IrreversibleThreshold:      7500,
	FirstVotingBlock:           100,
	MaxUndoHistory:             10000,
	BlocksPerDay:               secondsPerDay / mainnetInterval,
	InitialMaximumBlockSize:    131072,
	MinBlockSizeLimit:          65536,
	MaxBlockSizeLimit:          2 * 1024 * 1024,
	MaxTransactionSize:         64 * 1024,
	MaxSigCheckDepth:           2,
	GenesisTime:                testnetGenesisTime,
	GenesisAccount:             "genesis",
	InitialSupply:              1000000000000,
	GenesisProducers:           genesisProducerNames(defaultNumProducers, "test"),
	GenesisKeySeed:             "testnet genesis producers",
	AccountCreationFee:         10,
	Hardforks: []Hardfork{
		{Version: model.NewVersion(0, 0, 0), Time: testnetGenesisTime},
		{Version: model.NewVersion(0, 1, 0), Time: testnetGenesisTime + 60*60},
		{Version: model.NewVersion(0, 2, 0), Time: testnetGenesisTime + 2*60*60},
	},
	HardforkRequiredProducers: 15,
	RewardFundInitialBalance:  100000000000,
	ProducerRewardPerBlock:    1000,
	PrecisionMigrationFactor:  1000,
	Checkpoints:               map[uint32]model.BlockID{},
	KnownMerkleRoots:          map[model.BlockID]model.Hash{},
}

// SimnetParams defines the network parameters for the simulation test
// network. This network is similar to the normal test network except it is
// intended for private use within a group of individuals doing simulation
// testing: irreversibility is voted from the first block, hardforks
// activate by time alone, and days are short.
var SimnetParams = Params{
	Name:                       "simnet",
	ChainID:                    model.NewChainID("simnet"),
	BlockchainVersion:          model.NewVersion(0, 2, 0),
	BlockInterval:              mainnetInterval,
	NumProducers:               defaultNumProducers,
	MaxProducerVotesPerAccount: 30,
	MaxTimeUntilExpiration:     60 * 60,
	IrreversibleThreshold:      7500,
	FirstVotingBlock:           0,
	MaxUndoHistory:             1000,
	BlocksPerDay:               200,
	InitialMaximumBlockSize:    131072,
	MinBlockSizeLimit:          65536,
	MaxBlockSizeLimit:          2 * 1024 * 1024,
	MaxTransactionSize:         64 * 1024,
	MaxSigCheckDepth:           2,
	GenesisTime:                simnetGenesisTime,
	GenesisAccount:             "genesis",
	InitialSupply:              1000000000,
	GenesisProducers:           genesisProducerNames(defaultNumProducers, "sim"),
	GenesisKeySeed:             "simnet genesis producers",
	AccountCreationFee:         1,
	Hardforks: []Hardfork{
		{Version: model.NewVersion(0, 0, 0), Time: simnetGenesisTime},
		{Version: model.NewVersion(0, 1, 0), Time: simnetGenesisTime + 10*60},
		{Version: model.NewVersion(0, 2, 0), Time: simnetGenesisTime + 20*60},
	},
	HardforkRequiredProducers: 0,
	RewardFundInitialBalance:  1000000,
	ProducerRewardPerBlock:    10,
	PrecisionMigrationFactor:  1000,
	Checkpoints:               map[uint32]model.BlockID{},
	KnownMerkleRoots:          map[model.BlockID]model.Hash{},
}
