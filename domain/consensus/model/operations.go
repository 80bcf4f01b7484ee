package model

import (
	"github.com/pkg/errors"
)

const (
	// MaxMemoSize is the size limit of a transfer memo.
	MaxMemoSize = 2048

	// MaxURLLength is the size limit of a producer url.
	MaxURLLength = 2048

	// MaxJSONMetadataSize is the size limit of account json metadata.
	MaxJSONMetadataSize = 8192

	// MaxCustomDataSize is the size limit of a custom operation payload.
	MaxCustomDataSize = 8192
)

// Amount is a quantity of the native token in its smallest unit.
type Amount int64

// AccountCreateOperation creates an account. The fee moves from the
// creator to the new account.
type AccountCreateOperation struct {
	Creator        string
	NewAccountName string
	Fee            Amount
	Owner          Authority
	Active         Authority
	Posting        Authority
	MemoKey        PublicKey
	JSONMetadata   string
}

// Type implements OperationBody.
func (op *AccountCreateOperation) Type() OperationType { return OpAccountCreate }

// Validate implements OperationBody.
func (op *AccountCreateOperation) Validate() error {
	err := ValidateAccountName(op.Creator)
	if err != nil {
		return err
	}
	err = ValidateAccountName(op.NewAccountName)
	if err != nil {
		return err
	}
	if op.Fee < 0 {
		return errors.Errorf("account creation fee %d is negative", op.Fee)
	}
	for _, authority := range []*Authority{&op.Owner, &op.Active, &op.Posting} {
		err = authority.Validate()
		if err != nil {
			return err
		}
	}
	if len(op.JSONMetadata) > MaxJSONMetadataSize {
		return errors.Errorf("json metadata is longer than %d bytes", MaxJSONMetadataSize)
	}
	return nil
}

// CollectAuthorities implements OperationBody.
func (op *AccountCreateOperation) CollectAuthorities(required *RequiredAuthorities) {
	required.Add(AuthorityActive, op.Creator)
}

// AccountUpdateOperation replaces some of the authorities of an account.
// An unset authority is left unchanged. Changing the owner authority
// requires the owner authority.
type AccountUpdateOperation struct {
	Account      string
	Owner        Authority
	Active       Authority
	Posting      Authority
	MemoKey      PublicKey
	JSONMetadata string
}

// Type implements OperationBody.
func (op *AccountUpdateOperation) Type() OperationType { return OpAccountUpdate }

// Validate implements OperationBody.
func (op *AccountUpdateOperation) Validate() error {
	err := ValidateAccountName(op.Account)
	if err != nil {
		return err
	}
	for _, authority := range []*Authority{&op.Owner, &op.Active, &op.Posting} {
		if authority.IsZero() {
			continue
		}
		err = authority.Validate()
		if err != nil {
			return err
		}
	}
	if len(op.JSONMetadata) > MaxJSONMetadataSize {
		return errors.Errorf("json metadata is longer than %d bytes", MaxJSONMetadataSize)
	}
	return nil
}

// CollectAuthorities implements OperationBody.
func (op *AccountUpdateOperation) CollectAuthorities(required *RequiredAuthorities) {
	if !op.Owner.IsZero() {
		required.Add(AuthorityOwner, op.Account)
		return
	}
	required.Add(AuthorityActive, op.Account)
}

// TransferOperation moves Amount from From to To.
type TransferOperation struct {
	From   string
	To     string
	Amount Amount
	Memo   string
}

// Type implements OperationBody.
func (op *TransferOperation) Type() OperationType { return OpTransfer }

// Validate implements OperationBody.
func (op *TransferOperation) Validate() error {
	err := ValidateAccountName(op.From)
	if err != nil {
		return err
	}
	err = ValidateAccountName(op.To)
	if err != nil {
		return err
	}
	if op.Amount <= 0 {
		return errors.Errorf("transfer amount %d must be positive", op.Amount)
	}
	if len(op.Memo) > MaxMemoSize {
		return errors.Errorf("memo is longer than %d bytes", MaxMemoSize)
	}
	return nil
}

// CollectAuthorities implements OperationBody.
func (op *TransferOperation) CollectAuthorities(required *RequiredAuthorities) {
	required.Add(AuthorityActive, op.From)
}

// ProducerUpdateOperation registers Owner as a block producer or updates
// its properties. A zero SigningKey stops the producer from being
// scheduled.
type ProducerUpdateOperation struct {
	Owner            string
	URL              string
	SigningKey       PublicKey
	MaximumBlockSize uint32
}

// Type implements OperationBody.
func (op *ProducerUpdateOperation) Type() OperationType { return OpProducerUpdate }

// Validate implements OperationBody.
func (op *ProducerUpdateOperation) Validate() error {
	err := ValidateAccountName(op.Owner)
	if err != nil {
		return err
	}
	if len(op.URL) == 0 {
		return errors.New("producer url must not be empty")
	}
	if len(op.URL) > MaxURLLength {
		return errors.Errorf("producer url is longer than %d bytes", MaxURLLength)
	}
	if op.MaximumBlockSize == 0 {
		return errors.New("producer maximum block size must be positive")
	}
	return nil
}

// CollectAuthorities implements OperationBody.
func (op *ProducerUpdateOperation) CollectAuthorities(required *RequiredAuthorities) {
	required.Add(AuthorityActive, op.Owner)
}

// ProducerVoteOperation adds or removes the vote of Account for Producer.
type ProducerVoteOperation struct {
	Account  string
	Producer string
	Approve  bool
}

// Type implements OperationBody.
func (op *ProducerVoteOperation) Type() OperationType { return OpProducerVote }

// Validate implements OperationBody.
func (op *ProducerVoteOperation) Validate() error {
	err := ValidateAccountName(op.Account)
	if err != nil {
		return err
	}
	return ValidateAccountName(op.Producer)
}

// CollectAuthorities implements OperationBody.
func (op *ProducerVoteOperation) CollectAuthorities(required *RequiredAuthorities) {
	required.Add(AuthorityActive, op.Account)
}

// EscrowTransferOperation locks Amount of From in an escrow released to To
// by From, To or Agent. Fee is paid to Agent up front. Funds that are
// still locked at EscrowExpiration return to From.
type EscrowTransferOperation struct {
	From             string
	To               string
	Agent            string
	EscrowID         uint32
	Amount           Amount
	Fee              Amount
	EscrowExpiration int64
	JSONMetadata     string
}

// Type implements OperationBody.
func (op *EscrowTransferOperation) Type() OperationType { return OpEscrowTransfer }

// Validate implements OperationBody.
func (op *EscrowTransferOperation) Validate() error {
	for _, name := range []string{op.From, op.To, op.Agent} {
		err := ValidateAccountName(name)
		if err != nil {
			return err
		}
	}
	if op.Agent == op.From || op.Agent == op.To {
		return errors.New("escrow agent must differ from both parties")
	}
	if op.Amount <= 0 {
		return errors.Errorf("escrow amount %d must be positive", op.Amount)
	}
	if op.Fee < 0 {
		return errors.Errorf("escrow fee %d is negative", op.Fee)
	}
	if op.EscrowExpiration <= 0 {
		return errors.New("escrow expiration must be set")
	}
	if len(op.JSONMetadata) > MaxJSONMetadataSize {
		return errors.Errorf("json metadata is longer than %d bytes", MaxJSONMetadataSize)
	}
	return nil
}

// CollectAuthorities implements OperationBody.
func (op *EscrowTransferOperation) CollectAuthorities(required *RequiredAuthorities) {
	required.Add(AuthorityActive, op.From)
}

// EscrowReleaseOperation releases Amount of the escrow (From, EscrowID) to
// Receiver. Who is the party releasing the funds.
type EscrowReleaseOperation struct {
	From     string
	To       string
	Agent    string
	Who      string
	Receiver string
	EscrowID uint32
	Amount   Amount
}

// Type implements OperationBody.
func (op *EscrowReleaseOperation) Type() OperationType { return OpEscrowRelease }

// Validate implements OperationBody.
func (op *EscrowReleaseOperation) Validate() error {
	for _, name := range []string{op.From, op.To, op.Agent, op.Who, op.Receiver} {
		err := ValidateAccountName(name)
		if err != nil {
			return err
		}
	}
	if op.Who != op.From && op.Who != op.To && op.Who != op.Agent {
		return errors.New("escrow can only be released by one of its parties")
	}
	if op.Receiver != op.From && op.Receiver != op.To {
		return errors.New("escrow funds can only be released to the sender or the receiver")
	}
	if op.Amount <= 0 {
		return errors.Errorf("escrow release amount %d must be positive", op.Amount)
	}
	return nil
}

// CollectAuthorities implements OperationBody.
func (op *EscrowReleaseOperation) CollectAuthorities(required *RequiredAuthorities) {
	required.Add(AuthorityActive, op.Who)
}

// CustomOperation carries an application payload the chain does not
// interpret beyond its authorities.
type CustomOperation struct {
	RequiredAuths        []string
	RequiredPostingAuths []string
	ID                   uint16
	Data                 []byte
}

// Type implements OperationBody.
func (op *CustomOperation) Type() OperationType { return OpCustom }

// Validate implements OperationBody.
func (op *CustomOperation) Validate() error {
	if len(op.RequiredAuths)+len(op.RequiredPostingAuths) == 0 {
		return errors.New("custom operation requires at least one authority")
	}
	for _, names := range [][]string{op.RequiredAuths, op.RequiredPostingAuths} {
		for _, name := range names {
			err := ValidateAccountName(name)
			if err != nil {
				return err
			}
		}
	}
	if len(op.Data) > MaxCustomDataSize {
		return errors.Errorf("custom data is longer than %d bytes", MaxCustomDataSize)
	}
	return nil
}

// CollectAuthorities implements OperationBody.
func (op *CustomOperation) CollectAuthorities(required *RequiredAuthorities) {
	for _, name := range op.RequiredAuths {
		required.Add(AuthorityActive, name)
	}
	for _, name := range op.RequiredPostingAuths {
		required.Add(AuthorityPosting, name)
	}
}
