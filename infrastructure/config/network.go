package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/futurepia/futurepia-sub000/domain/chainconfig"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

// NetworkFlags holds the network configuration, that is which network is selected.
type NetworkFlags struct {
	Testnet            bool   `long:"testnet" description:"Use the test network"`
	Simnet             bool   `long:"simnet" description:"Use the simulation test network"`
	OverrideParamsFile string `long:"override-params-file" description:"Overrides chain params (allowed only on simnet)"`

	ActiveNetParams *chainconfig.Params
}

type overrideParamsConfig struct {
	BlockInterval             *int64  `json:"blockInterval"`
	MaxTimeUntilExpiration    *int64  `json:"maxTimeUntilExpiration"`
	IrreversibleThreshold     *uint32 `json:"irreversibleThreshold"`
	FirstVotingBlock          *uint32 `json:"firstVotingBlock"`
	MaxUndoHistory            *uint32 `json:"maxUndoHistory"`
	BlocksPerDay              *uint32 `json:"blocksPerDay"`
	InitialMaximumBlockSize   *uint32 `json:"initialMaximumBlockSize"`
	MaxTransactionSize        *uint32 `json:"maxTransactionSize"`
	GenesisTime               *int64  `json:"genesisTime"`
	HardforkRequiredProducers *int    `json:"hardforkRequiredProducers"`
}

// ResolveNetwork parses the network command line argument and sets ActiveNetParams accordingly.
// It returns error if more than one network was selected, nil otherwise.
func (networkFlags *NetworkFlags) ResolveNetwork(parser *flags.Parser) error {
	// Default value is main-net.
	networkFlags.ActiveNetParams = &chainconfig.MainnetParams
	// Multiple networks can't be selected simultaneously.
	numNets := 0
	if networkFlags.Testnet {
		numNets++
		networkFlags.ActiveNetParams = &chainconfig.TestnetParams
	}
	if networkFlags.Simnet {
		numNets++
		networkFlags.ActiveNetParams = &chainconfig.SimnetParams
	}
	if numNets > 1 {
		message := "Multiple networks parameters (testnet, simnet) cannot be used " +
			"together. Please choose only one network"
		err := errors.Errorf(message)
		fmt.Fprintln(os.Stderr, err)
		if parser != nil {
			parser.WriteHelp(os.Stderr)
		}
		return err
	}

	err := networkFlags.overrideParams()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	return nil
}

// NetParams returns the ActiveNetParams
func (networkFlags *NetworkFlags) NetParams() *chainconfig.Params {
	return networkFlags.ActiveNetParams
}

func (networkFlags *NetworkFlags) overrideParams() error {
	if networkFlags.OverrideParamsFile == "" {
		return nil
	}

	if !networkFlags.Simnet {
		return errors.Errorf("override-params-file is allowed only when using simnet")
	}

	overrideParamsFile, err := os.Open(networkFlags.OverrideParamsFile)
	if err != nil {
		return err
	}
	defer overrideParamsFile.Close()

	decoder := json.NewDecoder(overrideParamsFile)
	decoder.DisallowUnknownFields()
	config := &overrideParamsConfig{}
	err = decoder.Decode(config)
	if err != nil {
		return errors.Wrapf(err, "couldn't parse %s", networkFlags.OverrideParamsFile)
	}

	// The registered simnet params are shared, so work on a copy.
	params := *networkFlags.ActiveNetParams
	params.Hardforks = append([]chainconfig.Hardfork(nil), params.Hardforks...)

	if config.BlockInterval != nil {
		params.BlockInterval = *config.BlockInterval
	}
	if config.MaxTimeUntilExpiration != nil {
		params.MaxTimeUntilExpiration = *config.MaxTimeUntilExpiration
	}
	if config.IrreversibleThreshold != nil {
		params.IrreversibleThreshold = *config.IrreversibleThreshold
	}
	if config.FirstVotingBlock != nil {
		params.FirstVotingBlock = *config.FirstVotingBlock
	}
	if config.MaxUndoHistory != nil {
		params.MaxUndoHistory = *config.MaxUndoHistory
	}
	if config.BlocksPerDay != nil {
		params.BlocksPerDay = *config.BlocksPerDay
	}
	if config.InitialMaximumBlockSize != nil {
		params.InitialMaximumBlockSize = *config.InitialMaximumBlockSize
	}
	if config.MaxTransactionSize != nil {
		params.MaxTransactionSize = *config.MaxTransactionSize
	}
	if config.GenesisTime != nil {
		// Hardfork times are relative to genesis on simnet.
		shift := *config.GenesisTime - params.GenesisTime
		for i := range params.Hardforks {
			params.Hardforks[i].Time += shift
		}
		params.GenesisTime = *config.GenesisTime
	}
	if config.HardforkRequiredProducers != nil {
		params.HardforkRequiredProducers = *config.HardforkRequiredProducers
	}

	err = params.Validate()
	if err != nil {
		return err
	}
	networkFlags.ActiveNetParams = &params
	return nil
}
