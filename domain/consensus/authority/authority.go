package authority

import (
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/futurepia/futurepia-sub000/domain/consensus/state"
	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/signing"
	"github.com/pkg/errors"
)

// Lookup returns the authority of the given level of an account.
type Lookup interface {
	Authority(account string, level model.AuthorityLevel) (model.Authority, bool)
}

type stateLookup struct {
	chainState *state.ChainState
}

// NewStateLookup returns a Lookup reading account authorities from
// chainState.
func NewStateLookup(chainState *state.ChainState) Lookup {
	return &stateLookup{chainState: chainState}
}

func (l *stateLookup) Authority(account string, level model.AuthorityLevel) (model.Authority, bool) {
	_, row, ok := l.chainState.Account(account)
	if !ok {
		return model.Authority{}, false
	}
	return row.Authority(level), true
}

// signState tracks which keys signed and which accounts are already known
// to approve, and which of the keys turned out to be needed.
type signState struct {
	lookup     Lookup
	level      model.AuthorityLevel
	maxDepth   uint32
	signedKeys map[model.PublicKey]bool
	approvedBy map[string]struct{}
}

func newSignState(keys []model.PublicKey, lookup Lookup, level model.AuthorityLevel, maxDepth uint32) *signState {
	signedKeys := make(map[model.PublicKey]bool, len(keys))
	for _, key := range keys {
		signedKeys[key] = false
	}
	return &signState{
		lookup:     lookup,
		level:      level,
		maxDepth:   maxDepth,
		signedKeys: signedKeys,
		approvedBy: make(map[string]struct{}),
	}
}

func (s *signState) signedBy(key model.PublicKey) bool {
	_, ok := s.signedKeys[key]
	if ok {
		s.signedKeys[key] = true
	}
	return ok
}

func (s *signState) checkAccount(account string, level model.AuthorityLevel) bool {
	authority, ok := s.lookup.Authority(account, level)
	if !ok {
		return false
	}
	return s.checkAuthority(&authority, 0)
}

// checkAuthority returns whether the signed keys satisfy authority,
// following account authorities up to maxDepth levels deep. Nested account
// authorities are checked at the level the state was created with.
func (s *signState) checkAuthority(authority *model.Authority, depth uint32) bool {
	var totalWeight uint64
	threshold := uint64(authority.WeightThreshold)
	for _, keyAuth := range authority.KeyAuths {
		if s.signedBy(keyAuth.Key) {
			totalWeight += uint64(keyAuth.Weight)
			if totalWeight >= threshold {
				return true
			}
		}
	}
	for _, accountAuth := range authority.AccountAuths {
		if _, ok := s.approvedBy[accountAuth.Account]; !ok {
			if depth == s.maxDepth {
				continue
			}
			nested, ok := s.lookup.Authority(accountAuth.Account, s.level)
			if !ok || !s.checkAuthority(&nested, depth+1) {
				continue
			}
			s.approvedBy[accountAuth.Account] = struct{}{}
		}
		totalWeight += uint64(accountAuth.Weight)
		if totalWeight >= threshold {
			return true
		}
	}
	return totalWeight >= threshold
}

func (s *signState) hasUnusedSignatures() bool {
	for _, used := range s.signedKeys {
		if !used {
			return true
		}
	}
	return false
}

// VerifySignatures checks that every signature of tx verifies against the
// key it names and returns the signing keys.
func VerifySignatures(tx *model.SignedTransaction, chainID model.ChainID) ([]model.PublicKey, error) {
	digest := tx.SigningDigest(chainID)
	keys := make([]model.PublicKey, 0, len(tx.Signatures))
	seen := make(map[model.PublicKey]struct{}, len(tx.Signatures))
	for i, signature := range tx.Signatures {
		if _, ok := seen[signature.Key]; ok {
			return nil, errors.Wrapf(ruleerrors.ErrBadTransactionSignature,
				"key %s signed twice", signature.Key)
		}
		seen[signature.Key] = struct{}{}
		if !signing.Verify(signature.Key, digest, signature.Signature) {
			return nil, errors.Wrapf(ruleerrors.ErrBadTransactionSignature,
				"signature #%d by %s does not verify", i, signature.Key)
		}
		keys = append(keys, signature.Key)
	}
	return keys, nil
}

// VerifyAuthority checks that keys satisfy every required authority, and
// that every key was needed for that.
//
// A posting authority may also be satisfied by the active or owner
// authority, and an active authority by the owner authority. Posting
// authorities cannot be combined with other authorities in one
// transaction.
func VerifyAuthority(keys []model.PublicKey, required *model.RequiredAuthorities, lookup Lookup,
	maxDepth uint32) error {

	if len(required.Posting) > 0 {
		if len(required.Active) > 0 || len(required.Owner) > 0 {
			return errors.Wrap(ruleerrors.ErrMissingAuthority,
				"posting authorities cannot be combined with active or owner authorities")
		}
		s := newSignState(keys, lookup, model.AuthorityPosting, maxDepth)
		for _, account := range required.Sorted(model.AuthorityPosting) {
			if !s.checkAccount(account, model.AuthorityPosting) &&
				!s.checkAccount(account, model.AuthorityActive) &&
				!s.checkAccount(account, model.AuthorityOwner) {
				return errors.Wrapf(ruleerrors.ErrMissingAuthority, "missing posting authority of %s", account)
			}
		}
		if s.hasUnusedSignatures() {
			return errors.WithStack(ruleerrors.ErrIrrelevantSignature)
		}
		return nil
	}

	s := newSignState(keys, lookup, model.AuthorityActive, maxDepth)
	for _, account := range required.Sorted(model.AuthorityActive) {
		if !s.checkAccount(account, model.AuthorityActive) &&
			!s.checkAccount(account, model.AuthorityOwner) {
			return errors.Wrapf(ruleerrors.ErrMissingAuthority, "missing active authority of %s", account)
		}
	}
	for _, account := range required.Sorted(model.AuthorityOwner) {
		if !s.checkAccount(account, model.AuthorityOwner) {
			return errors.Wrapf(ruleerrors.ErrMissingAuthority, "missing owner authority of %s", account)
		}
	}
	if s.hasUnusedSignatures() {
		return errors.WithStack(ruleerrors.ErrIrrelevantSignature)
	}
	return nil
}

// VerifyTransaction verifies the signatures of tx and checks that they
// satisfy the authorities its operations require.
func VerifyTransaction(tx *model.SignedTransaction, chainID model.ChainID, lookup Lookup, maxDepth uint32) error {
	keys, err := VerifySignatures(tx, chainID)
	if err != nil {
		return err
	}
	return VerifyAuthority(keys, tx.RequiredAuthorities(), lookup, maxDepth)
}
