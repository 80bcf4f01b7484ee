package model

import "math/bits"

// Account is the chain state of an account.
type Account struct {
	Name              string
	Owner             Authority
	Active            Authority
	Posting           Authority
	MemoKey           PublicKey
	Balance           Amount
	EscrowBalance     Amount
	ProducersVotedFor uint16
	Created           int64
	LastOwnerUpdate   int64
	JSONMetadata      string
}

// Clone returns a deep copy of the account.
func (a Account) Clone() Account {
	a.Owner = a.Owner.Clone()
	a.Active = a.Active.Clone()
	a.Posting = a.Posting.Clone()
	return a
}

// Authority returns the authority of the given level.
func (a *Account) Authority(level AuthorityLevel) Authority {
	switch level {
	case AuthorityOwner:
		return a.Owner
	case AuthorityActive:
		return a.Active
	default:
		return a.Posting
	}
}

// Producer is the chain state of a block producer.
type Producer struct {
	Owner                 string
	Created               int64
	URL                   string
	SigningKey            PublicKey
	Votes                 uint64
	TotalMissed           uint32
	LastAslot             uint64
	LastConfirmedBlockNum uint32
	RunningVersion        Version
	HardforkVersionVote   Version
	HardforkTimeVote      int64
	MaximumBlockSize      uint32
}

// Clone returns a copy of the producer.
func (p Producer) Clone() Producer { return p }

// ProducerVote records that Account votes for Producer.
type ProducerVote struct {
	Account  string
	Producer string
}

// Clone returns a copy of the vote.
func (v ProducerVote) Clone() ProducerVote { return v }

// TransactionObject remembers an applied transaction until it expires, so
// it cannot be applied twice.
type TransactionObject struct {
	TransactionID TransactionID
	Expiration    int64
}

// Clone returns a copy of the transaction object.
func (t TransactionObject) Clone() TransactionObject { return t }

// BlockSummary holds the id of the last block whose number maps to its
// ring slot.
type BlockSummary struct {
	BlockID BlockID
}

// Clone returns a copy of the summary.
func (s BlockSummary) Clone() BlockSummary { return s }

// Escrow is funds of From locked until released to From or To.
type Escrow struct {
	EscrowID         uint32
	From             string
	To               string
	Agent            string
	Balance          Amount
	EscrowExpiration int64
}

// Clone returns a copy of the escrow.
func (e Escrow) Clone() Escrow { return e }

// RewardFund pays producers for every block they produce.
type RewardFund struct {
	Name           string
	Balance        Amount
	RewardPerBlock Amount
	LastUpdate     int64
}

// Clone returns a copy of the reward fund.
func (f RewardFund) Clone() RewardFund { return f }

// SlotBitmap is a 128-bit shift register recording which of the most
// recent slots were filled. Bit 0 of Lo is the latest slot.
type SlotBitmap struct {
	Hi uint64
	Lo uint64
}

// SlotBitmapSize is the number of slots a SlotBitmap tracks.
const SlotBitmapSize = 128

// Shift shifts the bitmap left by one slot, recording whether the new
// slot was filled. It returns whether the slot shifted out was filled.
func (b *SlotBitmap) Shift(filled bool) (evicted bool) {
	evicted = b.Hi&(1<<63) != 0
	b.Hi = b.Hi<<1 | b.Lo>>63
	b.Lo <<= 1
	if filled {
		b.Lo |= 1
	}
	return evicted
}

// PopCount returns the number of filled slots.
func (b SlotBitmap) PopCount() int {
	return bits.OnesCount64(b.Hi) + bits.OnesCount64(b.Lo)
}

// DynamicGlobalProperties is the chain state updated by every block.
type DynamicGlobalProperties struct {
	HeadBlockNumber          uint32
	HeadBlockID              BlockID
	Time                     int64
	CurrentProducer          string
	CurrentSupply            Amount
	VirtualSupply            Amount
	RecentSlotsFilled        SlotBitmap
	ParticipationCount       uint8
	CurrentAslot             uint64
	LastIrreversibleBlockNum uint32
	MaximumBlockSize         uint32
}

// Clone returns a copy of the properties.
func (p DynamicGlobalProperties) Clone() DynamicGlobalProperties { return p }

// HardforkProperties is the state of the hardfork state machine.
// ProcessedHardforks[i] is the activation time of hardfork i.
type HardforkProperties struct {
	ProcessedHardforks     []int64
	LastHardfork           uint32
	CurrentHardforkVersion Version
	NextHardfork           Version
	NextHardforkTime       int64
}

// Clone returns a deep copy of the properties.
func (p HardforkProperties) Clone() HardforkProperties {
	p.ProcessedHardforks = append([]int64(nil), p.ProcessedHardforks...)
	return p
}

// ProducerSchedule is the shuffled producer rotation of the current round.
type ProducerSchedule struct {
	CurrentShuffledProducers []string
	NumScheduledProducers    uint8
	MedianMaximumBlockSize   uint32
	MajorityVersion          Version
	NextShuffleBlockNum      uint32
}

// Clone returns a deep copy of the schedule.
func (s ProducerSchedule) Clone() ProducerSchedule {
	s.CurrentShuffledProducers = append([]string(nil), s.CurrentShuffledProducers...)
	return s
}
