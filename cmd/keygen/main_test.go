package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/signing"
)

func TestRun(t *testing.T) {
	mnemonic, err := signing.NewMnemonic()
	if err != nil {
		t.Fatalf("TestRun: %s", err)
	}
	mnemonicKey, err := signing.KeyFromMnemonic(mnemonic, "")
	if err != nil {
		t.Fatalf("TestRun: %s", err)
	}

	tests := []struct {
		name        string
		cfg         *configFlags
		expectedKey string
	}{
		{
			name:        "seed",
			cfg:         &configFlags{Seed: "secret"},
			expectedKey: signing.PublicKey(signing.KeyFromSeed("secret")).String(),
		},
		{
			name:        "existing mnemonic",
			cfg:         &configFlags{Mnemonic: mnemonic},
			expectedKey: signing.PublicKey(mnemonicKey).String(),
		},
	}
	for _, test := range tests {
		out := &bytes.Buffer{}
		err := run(test.cfg, out)
		if err != nil {
			t.Fatalf("TestRun: %s: %+v", test.name, err)
		}
		if strings.TrimSpace(out.String()) != "Producer signing key: "+test.expectedKey {
			t.Fatalf("TestRun: %s: unexpected output %q", test.name, out.String())
		}
	}

	// A generated mnemonic is printed along with its key.
	out := &bytes.Buffer{}
	err = run(&configFlags{}, out)
	if err != nil {
		t.Fatalf("TestRun: %+v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("TestRun: unexpected output %q", out.String())
	}
	generatedKey, err := signing.KeyFromMnemonic(lines[1], "")
	if err != nil {
		t.Fatalf("TestRun: printed mnemonic is invalid: %s", err)
	}
	if lines[3] != "Producer signing key: "+signing.PublicKey(generatedKey).String() {
		t.Fatalf("TestRun: printed key does not match the printed mnemonic")
	}

	err = run(&configFlags{Mnemonic: "not a mnemonic"}, &bytes.Buffer{})
	if err == nil {
		t.Fatalf("TestRun: expected an error for an invalid mnemonic")
	}
}

func TestParseConfig(t *testing.T) {
	_, err := parseConfig([]string{"--mnemonic", "a", "--seed", "b"})
	if err == nil {
		t.Fatalf("TestParseConfig: expected an error")
	}
	cfg, err := parseConfig([]string{"--seed", "b"})
	if err != nil || cfg.Seed != "b" {
		t.Fatalf("TestParseConfig: unexpected result %+v (%v)", cfg, err)
	}
}
