package evaluators

import (
	"github.com/futurepia/futurepia-sub000/domain/chainconfig"
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/objectstore"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/futurepia/futurepia-sub000/domain/consensus/state"
	"github.com/pkg/errors"
)

// Context is what an evaluator may read and write while applying an
// operation.
type Context struct {
	State  *state.ChainState
	Params *chainconfig.Params

	// Now is the head block time the operation is evaluated at.
	Now int64
}

// Evaluator applies operations of one type to the chain state.
type Evaluator interface {
	Type() model.OperationType
	Apply(ctx *Context, body model.OperationBody) error
}

// Registry dispatches operations to the evaluator of their type. It
// cannot be changed once created.
type Registry struct {
	evaluators [model.NumOperationTypes]Evaluator
}

// NewRegistry returns a registry of the given evaluators. Every operation
// type must have exactly one evaluator.
func NewRegistry(evaluators ...Evaluator) (*Registry, error) {
	r := &Registry{}
	for _, evaluator := range evaluators {
		opType := evaluator.Type()
		if opType >= model.NumOperationTypes {
			return nil, errors.Errorf("evaluator for unknown operation type %d", opType)
		}
		if r.evaluators[opType] != nil {
			return nil, errors.Errorf("duplicate evaluator for %s", opType)
		}
		r.evaluators[opType] = evaluator
	}
	for opType, evaluator := range r.evaluators {
		if evaluator == nil {
			return nil, errors.Errorf("no evaluator for %s", model.OperationType(opType))
		}
	}
	return r, nil
}

// NewDefaultRegistry returns a registry of the evaluators of every
// operation this chain supports.
func NewDefaultRegistry() *Registry {
	r, err := NewRegistry(
		accountCreateEvaluator{},
		accountUpdateEvaluator{},
		transferEvaluator{},
		producerUpdateEvaluator{},
		producerVoteEvaluator{},
		escrowTransferEvaluator{},
		escrowReleaseEvaluator{},
		customEvaluator{},
	)
	if err != nil {
		panic(err)
	}
	return r
}

// Apply applies op to ctx.State. A failed operation may leave partial
// changes behind, so the caller must apply it inside an undo session.
func (r *Registry) Apply(ctx *Context, op *model.Operation) error {
	body, err := op.Body()
	if err != nil {
		return errors.Wrapf(ruleerrors.ErrUnknownOperation, "%s", err)
	}
	opType := body.Type()
	if opType >= model.NumOperationTypes {
		return errors.Wrapf(ruleerrors.ErrUnknownOperation, "operation type %d", opType)
	}
	log.Tracef("Applying %s", opType)
	return r.evaluators[opType].Apply(ctx, body)
}

func findAccount(s *state.ChainState, name string) (objectstore.ID, model.Account, error) {
	id, account, ok := s.Account(name)
	if !ok {
		return 0, model.Account{}, errors.Wrapf(ruleerrors.ErrUnknownAccount, "account %s", name)
	}
	return id, account, nil
}

func modifyAccount(s *state.ChainState, id objectstore.ID, mutate func(account *model.Account)) error {
	err := s.Accounts.Modify(id, mutate)
	if err != nil {
		return errors.Wrapf(err, "modifying account %d", id)
	}
	return nil
}

func addBalance(s *state.ChainState, id objectstore.ID, amount model.Amount) error {
	return modifyAccount(s, id, func(account *model.Account) {
		account.Balance += amount
	})
}

func checkBalance(account *model.Account, amount model.Amount) error {
	if account.Balance < amount {
		return errors.Wrapf(ruleerrors.ErrInsufficientFunds, "account %s has %d, needs %d",
			account.Name, account.Balance, amount)
	}
	return nil
}

// checkAuthorityAccounts checks that every account an authority delegates
// to exists.
func checkAuthorityAccounts(s *state.ChainState, authority *model.Authority) error {
	for _, accountAuth := range authority.AccountAuths {
		if !s.AccountsByName.Has(accountAuth.Account) {
			return errors.Wrapf(ruleerrors.ErrUnknownAccount, "authority delegates to account %s",
				accountAuth.Account)
		}
	}
	return nil
}

type customEvaluator struct{}

func (customEvaluator) Type() model.OperationType { return model.OpCustom }

// Apply does nothing: the chain only checks the authorities of custom
// operations.
func (customEvaluator) Apply(*Context, model.OperationBody) error {
	return nil
}
