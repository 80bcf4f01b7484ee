package model

import (
	"github.com/near/borsh-go"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// OperationType tags the variant held by an Operation.
type OperationType uint8

// The operation types. The values are part of the serialized form of
// operations and must never be reordered.
const (
	OpAccountCreate OperationType = iota
	OpAccountUpdate
	OpTransfer
	OpProducerUpdate
	OpProducerVote
	OpEscrowTransfer
	OpEscrowRelease
	OpCustom

	// NumOperationTypes is the number of operation types.
	NumOperationTypes
)

var operationTypeNames = [NumOperationTypes]string{
	OpAccountCreate:  "account_create",
	OpAccountUpdate:  "account_update",
	OpTransfer:       "transfer",
	OpProducerUpdate: "producer_update",
	OpProducerVote:   "producer_vote",
	OpEscrowTransfer: "escrow_transfer",
	OpEscrowRelease:  "escrow_release",
	OpCustom:         "custom",
}

func (t OperationType) String() string {
	if t >= NumOperationTypes {
		return "unknown"
	}
	return operationTypeNames[t]
}

// OperationBody is implemented by every operation variant.
type OperationBody interface {
	Type() OperationType
	Validate() error
	CollectAuthorities(required *RequiredAuthorities)
}

// Operation is the closed union of every operation a transaction can carry.
// Exactly the field selected by Kind is meaningful; it is the only one that
// is serialized.
type Operation struct {
	Kind           borsh.Enum `borsh_enum:"true"`
	AccountCreate  AccountCreateOperation
	AccountUpdate  AccountUpdateOperation
	Transfer       TransferOperation
	ProducerUpdate ProducerUpdateOperation
	ProducerVote   ProducerVoteOperation
	EscrowTransfer EscrowTransferOperation
	EscrowRelease  EscrowReleaseOperation
	Custom         CustomOperation
}

// NewOperation wraps body in an Operation.
func NewOperation(body OperationBody) Operation {
	op := Operation{Kind: borsh.Enum(body.Type())}
	switch body := body.(type) {
	case *AccountCreateOperation:
		op.AccountCreate = *body
	case *AccountUpdateOperation:
		op.AccountUpdate = *body
	case *TransferOperation:
		op.Transfer = *body
	case *ProducerUpdateOperation:
		op.ProducerUpdate = *body
	case *ProducerVoteOperation:
		op.ProducerVote = *body
	case *EscrowTransferOperation:
		op.EscrowTransfer = *body
	case *EscrowReleaseOperation:
		op.EscrowRelease = *body
	case *CustomOperation:
		op.Custom = *body
	default:
		panic(errors.Errorf("unexpected operation body %T", body))
	}
	return op
}

// Type returns the variant tag of the operation.
func (op *Operation) Type() OperationType {
	return OperationType(op.Kind)
}

// Body returns the variant held by the operation, or an error for an
// unknown tag.
func (op *Operation) Body() (OperationBody, error) {
	switch op.Type() {
	case OpAccountCreate:
		return &op.AccountCreate, nil
	case OpAccountUpdate:
		return &op.AccountUpdate, nil
	case OpTransfer:
		return &op.Transfer, nil
	case OpProducerUpdate:
		return &op.ProducerUpdate, nil
	case OpProducerVote:
		return &op.ProducerVote, nil
	case OpEscrowTransfer:
		return &op.EscrowTransfer, nil
	case OpEscrowRelease:
		return &op.EscrowRelease, nil
	case OpCustom:
		return &op.Custom, nil
	}
	return nil, errors.Errorf("unknown operation type %d", op.Kind)
}

// Validate checks the operation without looking at chain state.
func (op *Operation) Validate() error {
	body, err := op.Body()
	if err != nil {
		return err
	}
	return body.Validate()
}

// RequiredAuthorities is the set of account authorities an operation or a
// transaction must be signed with.
type RequiredAuthorities struct {
	Owner   map[string]struct{}
	Active  map[string]struct{}
	Posting map[string]struct{}
}

// NewRequiredAuthorities returns an empty set.
func NewRequiredAuthorities() *RequiredAuthorities {
	return &RequiredAuthorities{
		Owner:   make(map[string]struct{}),
		Active:  make(map[string]struct{}),
		Posting: make(map[string]struct{}),
	}
}

// Add requires the given authority of account.
func (r *RequiredAuthorities) Add(level AuthorityLevel, account string) {
	switch level {
	case AuthorityOwner:
		r.Owner[account] = struct{}{}
	case AuthorityActive:
		r.Active[account] = struct{}{}
	case AuthorityPosting:
		r.Posting[account] = struct{}{}
	}
}

// Sorted returns the accounts requiring the given authority level, in
// lexicographic order.
func (r *RequiredAuthorities) Sorted(level AuthorityLevel) []string {
	var set map[string]struct{}
	switch level {
	case AuthorityOwner:
		set = r.Owner
	case AuthorityActive:
		set = r.Active
	case AuthorityPosting:
		set = r.Posting
	}
	accounts := maps.Keys(set)
	slices.Sort(accounts)
	return accounts
}

// IsEmpty returns whether nothing is required.
func (r *RequiredAuthorities) IsEmpty() bool {
	return len(r.Owner) == 0 && len(r.Active) == 0 && len(r.Posting) == 0
}
