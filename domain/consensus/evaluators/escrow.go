package evaluators

import (
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/objectstore"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/futurepia/futurepia-sub000/domain/consensus/state"
	"github.com/pkg/errors"
)

type escrowTransferEvaluator struct{}

func (escrowTransferEvaluator) Type() model.OperationType { return model.OpEscrowTransfer }

func (escrowTransferEvaluator) Apply(ctx *Context, body model.OperationBody) error {
	op := body.(*model.EscrowTransferOperation)
	s := ctx.State

	if op.EscrowExpiration <= ctx.Now {
		return errors.Wrapf(ruleerrors.ErrEscrowExpired, "escrow expiration %d is not after %d",
			op.EscrowExpiration, ctx.Now)
	}
	fromID, from, err := findAccount(s, op.From)
	if err != nil {
		return err
	}
	if _, _, err := findAccount(s, op.To); err != nil {
		return err
	}
	agentID, _, err := findAccount(s, op.Agent)
	if err != nil {
		return err
	}
	key := state.EscrowKey{From: op.From, EscrowID: op.EscrowID}
	if s.EscrowsByFromID.Has(key) {
		return errors.Wrapf(ruleerrors.ErrInvalidOperation, "escrow %d of %s already exists",
			op.EscrowID, op.From)
	}
	err = checkBalance(&from, op.Amount+op.Fee)
	if err != nil {
		return err
	}

	err = modifyAccount(s, fromID, func(account *model.Account) {
		account.Balance -= op.Amount + op.Fee
		account.EscrowBalance += op.Amount
	})
	if err != nil {
		return err
	}
	err = addBalance(s, agentID, op.Fee)
	if err != nil {
		return err
	}
	_, err = s.Escrows.Create(func(_ objectstore.ID, escrow *model.Escrow) {
		escrow.EscrowID = op.EscrowID
		escrow.From = op.From
		escrow.To = op.To
		escrow.Agent = op.Agent
		escrow.Balance = op.Amount
		escrow.EscrowExpiration = op.EscrowExpiration
	})
	if err != nil {
		return errors.Wrapf(err, "creating escrow %d of %s", op.EscrowID, op.From)
	}
	return nil
}

type escrowReleaseEvaluator struct{}

func (escrowReleaseEvaluator) Type() model.OperationType { return model.OpEscrowRelease }

// Apply releases escrowed funds. The sender may only release to the
// receiver and the receiver only back to the sender. The agent may
// release to either.
func (escrowReleaseEvaluator) Apply(ctx *Context, body model.OperationBody) error {
	op := body.(*model.EscrowReleaseOperation)
	s := ctx.State

	escrowID, escrow, ok := s.EscrowsByFromID.Find(state.EscrowKey{From: op.From, EscrowID: op.EscrowID})
	if !ok {
		return errors.Wrapf(ruleerrors.ErrUnknownEscrow, "escrow %d of %s", op.EscrowID, op.From)
	}
	if escrow.To != op.To || escrow.Agent != op.Agent {
		return errors.Wrapf(ruleerrors.ErrInvalidOperation, "escrow %d of %s is between %s and %s via %s",
			op.EscrowID, op.From, escrow.From, escrow.To, escrow.Agent)
	}
	switch op.Who {
	case escrow.From:
		if op.Receiver != escrow.To {
			return errors.Wrapf(ruleerrors.ErrInvalidOperation, "%s can only release to %s",
				op.Who, escrow.To)
		}
	case escrow.To:
		if op.Receiver != escrow.From {
			return errors.Wrapf(ruleerrors.ErrInvalidOperation, "%s can only release to %s",
				op.Who, escrow.From)
		}
	}
	if op.Amount > escrow.Balance {
		return errors.Wrapf(ruleerrors.ErrInsufficientFunds, "escrow %d of %s holds %d, release of %d",
			op.EscrowID, op.From, escrow.Balance, op.Amount)
	}

	fromID, _, err := findAccount(s, escrow.From)
	if err != nil {
		return err
	}
	receiverID, _, err := findAccount(s, op.Receiver)
	if err != nil {
		return err
	}
	err = modifyAccount(s, fromID, func(account *model.Account) {
		account.EscrowBalance -= op.Amount
	})
	if err != nil {
		return err
	}
	err = addBalance(s, receiverID, op.Amount)
	if err != nil {
		return err
	}
	if op.Amount == escrow.Balance {
		return errors.Wrapf(s.Escrows.Remove(escrowID), "removing escrow %d of %s", op.EscrowID, op.From)
	}
	err = s.Escrows.Modify(escrowID, func(escrow *model.Escrow) {
		escrow.Balance -= op.Amount
	})
	return errors.Wrapf(err, "modifying escrow %d of %s", op.EscrowID, op.From)
}

// ExpireEscrows returns the funds of every escrow that expired at or before
// now to its sender.
func ExpireEscrows(s *state.ChainState, now int64) error {
	for _, id := range s.EscrowsByExpiration.CollectLessThan(now + 1) {
		escrow := s.Escrows.MustGet(id)
		fromID, _, err := findAccount(s, escrow.From)
		if err != nil {
			return err
		}
		err = modifyAccount(s, fromID, func(account *model.Account) {
			account.EscrowBalance -= escrow.Balance
			account.Balance += escrow.Balance
		})
		if err != nil {
			return err
		}
		err = s.Escrows.Remove(id)
		if err != nil {
			return errors.Wrapf(err, "removing escrow %d of %s", escrow.EscrowID, escrow.From)
		}
		log.Debugf("Escrow %d of %s expired, %d returned", escrow.EscrowID, escrow.From, escrow.Balance)
	}
	return nil
}
