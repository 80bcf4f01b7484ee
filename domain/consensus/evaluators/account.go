package evaluators

import (
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/objectstore"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
)

type accountCreateEvaluator struct{}

func (accountCreateEvaluator) Type() model.OperationType { return model.OpAccountCreate }

func (accountCreateEvaluator) Apply(ctx *Context, body model.OperationBody) error {
	op := body.(*model.AccountCreateOperation)
	s := ctx.State

	if op.Fee < ctx.Params.AccountCreationFee {
		return errors.Wrapf(ruleerrors.ErrInvalidOperation, "account creation fee %d is below %d",
			op.Fee, ctx.Params.AccountCreationFee)
	}
	creatorID, creator, err := findAccount(s, op.Creator)
	if err != nil {
		return err
	}
	err = checkBalance(&creator, op.Fee)
	if err != nil {
		return err
	}
	if s.AccountsByName.Has(op.NewAccountName) {
		return errors.Wrapf(ruleerrors.ErrAccountExists, "account %s", op.NewAccountName)
	}
	for _, authority := range []*model.Authority{&op.Owner, &op.Active, &op.Posting} {
		err := checkAuthorityAccounts(s, authority)
		if err != nil {
			return err
		}
	}

	err = addBalance(s, creatorID, -op.Fee)
	if err != nil {
		return err
	}
	_, err = s.Accounts.Create(func(_ objectstore.ID, account *model.Account) {
		account.Name = op.NewAccountName
		account.Owner = op.Owner.Clone()
		account.Active = op.Active.Clone()
		account.Posting = op.Posting.Clone()
		account.MemoKey = op.MemoKey
		account.Balance = op.Fee
		account.Created = ctx.Now
		account.LastOwnerUpdate = ctx.Now
		account.JSONMetadata = op.JSONMetadata
	})
	if err != nil {
		return errors.Wrapf(err, "creating account %s", op.NewAccountName)
	}
	log.Debugf("Account %s created by %s", op.NewAccountName, op.Creator)
	return nil
}

type accountUpdateEvaluator struct{}

func (accountUpdateEvaluator) Type() model.OperationType { return model.OpAccountUpdate }

func (accountUpdateEvaluator) Apply(ctx *Context, body model.OperationBody) error {
	op := body.(*model.AccountUpdateOperation)
	s := ctx.State

	id, _, err := findAccount(s, op.Account)
	if err != nil {
		return err
	}
	for _, authority := range []*model.Authority{&op.Owner, &op.Active, &op.Posting} {
		err := checkAuthorityAccounts(s, authority)
		if err != nil {
			return err
		}
	}
	return modifyAccount(s, id, func(account *model.Account) {
		if !op.Owner.IsZero() {
			account.Owner = op.Owner.Clone()
			account.LastOwnerUpdate = ctx.Now
		}
		if !op.Active.IsZero() {
			account.Active = op.Active.Clone()
		}
		if !op.Posting.IsZero() {
			account.Posting = op.Posting.Clone()
		}
		if !op.MemoKey.IsZero() {
			account.MemoKey = op.MemoKey
		}
		if op.JSONMetadata != "" {
			account.JSONMetadata = op.JSONMetadata
		}
	})
}

type transferEvaluator struct{}

func (transferEvaluator) Type() model.OperationType { return model.OpTransfer }

func (transferEvaluator) Apply(ctx *Context, body model.OperationBody) error {
	op := body.(*model.TransferOperation)
	s := ctx.State

	fromID, from, err := findAccount(s, op.From)
	if err != nil {
		return err
	}
	toID, _, err := findAccount(s, op.To)
	if err != nil {
		return err
	}
	err = checkBalance(&from, op.Amount)
	if err != nil {
		return err
	}
	err = addBalance(s, fromID, -op.Amount)
	if err != nil {
		return err
	}
	return addBalance(s, toID, op.Amount)
}
