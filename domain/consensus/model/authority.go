package model

import (
	"github.com/pkg/errors"
)

// AuthorityLevel names one of the three authorities of an account.
type AuthorityLevel uint8

// The authority levels, from the most to the least powerful.
const (
	AuthorityOwner AuthorityLevel = iota
	AuthorityActive
	AuthorityPosting
)

func (l AuthorityLevel) String() string {
	switch l {
	case AuthorityOwner:
		return "owner"
	case AuthorityActive:
		return "active"
	case AuthorityPosting:
		return "posting"
	}
	return "unknown"
}

// AccountWeight grants the authority of another account a weight.
type AccountWeight struct {
	Account string
	Weight  uint16
}

// KeyWeight grants a public key a weight.
type KeyWeight struct {
	Key    PublicKey
	Weight uint16
}

// Authority is satisfied once the weights of the keys that signed and of
// the accounts whose own active authority is satisfied add up to at least
// WeightThreshold.
type Authority struct {
	WeightThreshold uint32
	AccountAuths    []AccountWeight
	KeyAuths        []KeyWeight
}

// NewKeyAuthority returns an authority satisfied by a single key.
func NewKeyAuthority(key PublicKey) Authority {
	return Authority{
		WeightThreshold: 1,
		KeyAuths:        []KeyWeight{{Key: key, Weight: 1}},
	}
}

// IsZero returns whether the authority is unset. Update operations use an
// unset authority to mean "unchanged".
func (a *Authority) IsZero() bool {
	return a.WeightThreshold == 0 && len(a.AccountAuths) == 0 && len(a.KeyAuths) == 0
}

// IsImpossible returns whether the weights of all entries together cannot
// reach the threshold.
func (a *Authority) IsImpossible() bool {
	var total uint64
	for _, accountAuth := range a.AccountAuths {
		total += uint64(accountAuth.Weight)
	}
	for _, keyAuth := range a.KeyAuths {
		total += uint64(keyAuth.Weight)
	}
	return total < uint64(a.WeightThreshold)
}

// Validate checks that the authority is well formed and satisfiable.
func (a *Authority) Validate() error {
	if a.WeightThreshold == 0 {
		return errors.New("authority weight threshold must be positive")
	}
	seenAccounts := make(map[string]struct{}, len(a.AccountAuths))
	for _, accountAuth := range a.AccountAuths {
		err := ValidateAccountName(accountAuth.Account)
		if err != nil {
			return err
		}
		if _, ok := seenAccounts[accountAuth.Account]; ok {
			return errors.Errorf("account %s appears twice in authority", accountAuth.Account)
		}
		seenAccounts[accountAuth.Account] = struct{}{}
	}
	seenKeys := make(map[PublicKey]struct{}, len(a.KeyAuths))
	for _, keyAuth := range a.KeyAuths {
		if keyAuth.Key.IsZero() {
			return errors.New("authority contains the zero key")
		}
		if _, ok := seenKeys[keyAuth.Key]; ok {
			return errors.Errorf("key %s appears twice in authority", keyAuth.Key)
		}
		seenKeys[keyAuth.Key] = struct{}{}
	}
	if a.IsImpossible() {
		return errors.New("authority threshold cannot be reached")
	}
	return nil
}

// Clone returns a deep copy of the authority.
func (a Authority) Clone() Authority {
	clone := Authority{WeightThreshold: a.WeightThreshold}
	if a.AccountAuths != nil {
		clone.AccountAuths = append([]AccountWeight(nil), a.AccountAuths...)
	}
	if a.KeyAuths != nil {
		clone.KeyAuths = append([]KeyWeight(nil), a.KeyAuths...)
	}
	return clone
}
