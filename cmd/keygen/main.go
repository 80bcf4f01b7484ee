package main

import (
	"fmt"
	"io"
	"os"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/signing"
)

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		os.Exit(1)
	}

	err = run(cfg, os.Stdout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(cfg *configFlags, out io.Writer) error {
	var privateKey *btcec.PrivateKey
	switch {
	case cfg.Seed != "":
		privateKey = signing.KeyFromSeed(cfg.Seed)
	default:
		mnemonic := cfg.Mnemonic
		if mnemonic == "" {
			var err error
			mnemonic, err = signing.NewMnemonic()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Mnemonic (pass it to chaind with --producer-mnemonic and keep it secret):\n%s\n\n",
				mnemonic)
		}
		var err error
		privateKey, err = signing.KeyFromMnemonic(mnemonic, "")
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "Producer signing key: %s\n", signing.PublicKey(privateKey))
	return nil
}
