package main

import (
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

type configFlags struct {
	Mnemonic string `long:"mnemonic" description:"Print the public key of an existing mnemonic instead of generating one"`
	Seed     string `long:"seed" description:"Print the public key of a --producer-key seed instead of generating a mnemonic"`
}

func parseConfig(args []string) (*configFlags, error) {
	cfg := &configFlags{}
	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	_, err := parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}

	if cfg.Mnemonic != "" && cfg.Seed != "" {
		return nil, errors.New("--mnemonic and --seed cannot be used together")
	}

	return cfg, nil
}
