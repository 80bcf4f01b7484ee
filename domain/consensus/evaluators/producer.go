package evaluators

import (
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/objectstore"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/futurepia/futurepia-sub000/domain/consensus/state"
	"github.com/pkg/errors"
)

type producerUpdateEvaluator struct{}

func (producerUpdateEvaluator) Type() model.OperationType { return model.OpProducerUpdate }

func (producerUpdateEvaluator) Apply(ctx *Context, body model.OperationBody) error {
	op := body.(*model.ProducerUpdateOperation)
	s := ctx.State

	if op.MaximumBlockSize < ctx.Params.MinBlockSizeLimit || op.MaximumBlockSize > ctx.Params.MaxBlockSizeLimit {
		return errors.Wrapf(ruleerrors.ErrInvalidOperation,
			"proposed maximum block size %d is outside [%d, %d]",
			op.MaximumBlockSize, ctx.Params.MinBlockSizeLimit, ctx.Params.MaxBlockSizeLimit)
	}
	_, _, err := findAccount(s, op.Owner)
	if err != nil {
		return err
	}

	id, _, exists := s.Producer(op.Owner)
	if exists {
		err = s.Producers.Modify(id, func(producer *model.Producer) {
			producer.URL = op.URL
			producer.SigningKey = op.SigningKey
			producer.MaximumBlockSize = op.MaximumBlockSize
		})
		if err != nil {
			return errors.Wrapf(err, "modifying producer %s", op.Owner)
		}
		return nil
	}
	_, err = s.Producers.Create(func(_ objectstore.ID, producer *model.Producer) {
		producer.Owner = op.Owner
		producer.Created = ctx.Now
		producer.URL = op.URL
		producer.SigningKey = op.SigningKey
		producer.MaximumBlockSize = op.MaximumBlockSize
		producer.HardforkTimeVote = ctx.Params.GenesisTime
	})
	if err != nil {
		return errors.Wrapf(err, "creating producer %s", op.Owner)
	}
	log.Debugf("Producer %s registered", op.Owner)
	return nil
}

type producerVoteEvaluator struct{}

func (producerVoteEvaluator) Type() model.OperationType { return model.OpProducerVote }

func (producerVoteEvaluator) Apply(ctx *Context, body model.OperationBody) error {
	op := body.(*model.ProducerVoteOperation)
	s := ctx.State

	accountID, account, err := findAccount(s, op.Account)
	if err != nil {
		return err
	}
	producerID, _, ok := s.Producer(op.Producer)
	if !ok {
		return errors.Wrapf(ruleerrors.ErrUnknownProducer, "producer %s", op.Producer)
	}
	voteID, _, voted := s.ProducerVotesByAccountProducer.Find(
		state.AccountProducerKey{Account: op.Account, Producer: op.Producer})

	if op.Approve {
		if voted {
			return errors.Wrapf(ruleerrors.ErrInvalidOperation, "%s already votes for %s",
				op.Account, op.Producer)
		}
		if account.ProducersVotedFor >= ctx.Params.MaxProducerVotesPerAccount {
			return errors.Wrapf(ruleerrors.ErrTooManyProducerVotes, "%s already votes for %d producers",
				op.Account, account.ProducersVotedFor)
		}
		_, err = s.ProducerVotes.Create(func(_ objectstore.ID, vote *model.ProducerVote) {
			vote.Account = op.Account
			vote.Producer = op.Producer
		})
		if err != nil {
			return errors.Wrapf(err, "creating vote of %s for %s", op.Account, op.Producer)
		}
		return adjustVotes(s, accountID, producerID, 1)
	}

	if !voted {
		return errors.Wrapf(ruleerrors.ErrInvalidOperation, "%s does not vote for %s",
			op.Account, op.Producer)
	}
	err = s.ProducerVotes.Remove(voteID)
	if err != nil {
		return errors.Wrapf(err, "removing vote of %s for %s", op.Account, op.Producer)
	}
	return adjustVotes(s, accountID, producerID, -1)
}

func adjustVotes(s *state.ChainState, accountID, producerID objectstore.ID, delta int) error {
	err := modifyAccount(s, accountID, func(account *model.Account) {
		account.ProducersVotedFor = uint16(int(account.ProducersVotedFor) + delta)
	})
	if err != nil {
		return err
	}
	err = s.Producers.Modify(producerID, func(producer *model.Producer) {
		producer.Votes = uint64(int64(producer.Votes) + int64(delta))
	})
	if err != nil {
		return errors.Wrapf(err, "modifying producer %d", producerID)
	}
	return nil
}
