package authority

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/signing"
	"github.com/pkg/errors"
)

type mapLookup map[string][3]model.Authority

func (m mapLookup) Authority(account string, level model.AuthorityLevel) (model.Authority, bool) {
	authorities, ok := m[account]
	if !ok {
		return model.Authority{}, false
	}
	return authorities[level], true
}

type testKeys struct {
	owner, active, posting *btcec.PrivateKey
}

func newTestKeys(name string) testKeys {
	return testKeys{
		owner:   signing.KeyFromSeed(name + "/owner"),
		active:  signing.KeyFromSeed(name + "/active"),
		posting: signing.KeyFromSeed(name + "/posting"),
	}
}

func (k testKeys) authorities() [3]model.Authority {
	return [3]model.Authority{
		model.AuthorityOwner:   model.NewKeyAuthority(signing.PublicKey(k.owner)),
		model.AuthorityActive:  model.NewKeyAuthority(signing.PublicKey(k.active)),
		model.AuthorityPosting: model.NewKeyAuthority(signing.PublicKey(k.posting)),
	}
}

var chainID = model.NewChainID("simnet")

func signedTransaction(t *testing.T, body model.OperationBody, keys ...*btcec.PrivateKey) *model.SignedTransaction {
	tx := &model.SignedTransaction{Transaction: model.Transaction{
		Expiration: 100,
		Operations: []model.Operation{model.NewOperation(body)},
	}}
	for _, key := range keys {
		if err := signing.SignTransaction(tx, chainID, key); err != nil {
			t.Fatalf("SignTransaction: %s", err)
		}
	}
	return tx
}

func TestVerifyTransaction(t *testing.T) {
	alice := newTestKeys("alice")
	bob := newTestKeys("bob")
	lookup := mapLookup{
		"alice": alice.authorities(),
		"bob":   bob.authorities(),
	}
	// carol's active authority is bob's active authority.
	carolAuthorities := newTestKeys("carol").authorities()
	carolAuthorities[model.AuthorityActive] = model.Authority{
		WeightThreshold: 1,
		AccountAuths:    []model.AccountWeight{{Account: "bob", Weight: 1}},
	}
	lookup["carol"] = carolAuthorities

	transfer := func(from string) model.OperationBody {
		return &model.TransferOperation{From: from, To: "dave", Amount: 1}
	}
	tests := []struct {
		name        string
		tx          *model.SignedTransaction
		expectedErr error
	}{
		{"active key", signedTransaction(t, transfer("alice"), alice.active), nil},
		{"owner satisfies active", signedTransaction(t, transfer("alice"), alice.owner), nil},
		{"posting does not satisfy active", signedTransaction(t, transfer("alice"), alice.posting),
			ruleerrors.ErrMissingAuthority},
		{"unsigned", signedTransaction(t, transfer("alice")), ruleerrors.ErrMissingAuthority},
		{"irrelevant signature", signedTransaction(t, transfer("alice"), alice.active, bob.active),
			ruleerrors.ErrIrrelevantSignature},
		{"account authority", signedTransaction(t, transfer("carol"), bob.active), nil},
		{"unknown account", signedTransaction(t, transfer("erin"), alice.active),
			ruleerrors.ErrMissingAuthority},
		{"owner change needs owner", signedTransaction(t, &model.AccountUpdateOperation{
			Account: "alice",
			Owner:   model.NewKeyAuthority(signing.PublicKey(bob.owner)),
		}, alice.active), ruleerrors.ErrMissingAuthority},
		{"owner change with owner", signedTransaction(t, &model.AccountUpdateOperation{
			Account: "alice",
			Owner:   model.NewKeyAuthority(signing.PublicKey(bob.owner)),
		}, alice.owner), nil},
		{"posting", signedTransaction(t, &model.CustomOperation{
			RequiredPostingAuths: []string{"alice"}, Data: []byte("{}"),
		}, alice.posting), nil},
		{"active satisfies posting", signedTransaction(t, &model.CustomOperation{
			RequiredPostingAuths: []string{"alice"}, Data: []byte("{}"),
		}, alice.active), nil},
		{"posting mixed with active", signedTransaction(t, &model.CustomOperation{
			RequiredAuths: []string{"bob"}, RequiredPostingAuths: []string{"alice"},
		}, alice.posting, bob.active), ruleerrors.ErrMissingAuthority},
	}
	for _, test := range tests {
		err := VerifyTransaction(test.tx, chainID, lookup, 2)
		if test.expectedErr == nil {
			if err != nil {
				t.Fatalf("TestVerifyTransaction: %s: unexpected error: %s", test.name, err)
			}
			continue
		}
		if !errors.Is(err, test.expectedErr) {
			t.Fatalf("TestVerifyTransaction: %s: expected %s, got %v", test.name, test.expectedErr, err)
		}
	}
}

func TestVerifySignatures(t *testing.T) {
	alice := newTestKeys("alice")
	tx := signedTransaction(t, &model.TransferOperation{From: "alice", To: "bob", Amount: 1}, alice.active)

	tampered := *tx
	tampered.Signatures = append([]model.TransactionSignature(nil), tx.Signatures...)
	tampered.Signatures[0].Key = signing.PublicKey(alice.owner)
	if _, err := VerifySignatures(&tampered, chainID); !errors.Is(err, ruleerrors.ErrBadTransactionSignature) {
		t.Fatalf("TestVerifySignatures: expected ErrBadTransactionSignature for a wrong key, got %v", err)
	}

	duplicated := *tx
	duplicated.Signatures = append([]model.TransactionSignature(nil), tx.Signatures[0], tx.Signatures[0])
	if _, err := VerifySignatures(&duplicated, chainID); !errors.Is(err, ruleerrors.ErrBadTransactionSignature) {
		t.Fatalf("TestVerifySignatures: expected ErrBadTransactionSignature for a duplicate key, got %v", err)
	}
}

func TestMaxDepth(t *testing.T) {
	alice := newTestKeys("alice")
	lookup := mapLookup{"alice": alice.authorities()}
	previous := "alice"
	for _, name := range []string{"bob", "carol", "dave"} {
		authorities := newTestKeys(name).authorities()
		authorities[model.AuthorityActive] = model.Authority{
			WeightThreshold: 1,
			AccountAuths:    []model.AccountWeight{{Account: previous, Weight: 1}},
		}
		lookup[name] = authorities
		previous = name
	}

	transfer := func(from string) model.OperationBody {
		return &model.TransferOperation{From: from, To: "erin", Amount: 1}
	}
	// carol -> bob -> alice is two levels deep.
	if err := VerifyTransaction(signedTransaction(t, transfer("carol"), alice.active), chainID, lookup, 2); err != nil {
		t.Fatalf("TestMaxDepth: two levels deep: unexpected error: %s", err)
	}
	err := VerifyTransaction(signedTransaction(t, transfer("dave"), alice.active), chainID, lookup, 2)
	if !errors.Is(err, ruleerrors.ErrMissingAuthority) {
		t.Fatalf("TestMaxDepth: three levels deep: expected ErrMissingAuthority, got %v", err)
	}
}
