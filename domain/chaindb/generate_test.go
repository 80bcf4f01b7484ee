package chaindb

import (
	"testing"

	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
)

func TestGenerateBlockChecks(t *testing.T) {
	params := SimnetParamsForTest()
	db, teardown := newTestChain(t, "TestGenerateBlockChecks", params)
	defer teardown()

	generateBlocks(t, "TestGenerateBlockChecks", db, 1)

	tests := []struct {
		name        string
		when        int64
		producer    string
		keyOf       string
		expectedErr error
	}{
		{
			name:        "not after the head",
			when:        db.HeadBlockTime(),
			producer:    db.ScheduledProducer(1),
			keyOf:       db.ScheduledProducer(1),
			expectedErr: ruleerrors.ErrNotScheduled,
		},
		{
			name:        "another producer's slot",
			when:        db.SlotTime(1),
			producer:    db.ScheduledProducer(2),
			keyOf:       db.ScheduledProducer(2),
			expectedErr: ruleerrors.ErrNotScheduled,
		},
		{
			name:        "wrong signing key",
			when:        db.SlotTime(1),
			producer:    db.ScheduledProducer(1),
			keyOf:       params.GenesisAccount,
			expectedErr: ruleerrors.ErrWrongSigningKey,
		},
	}
	for _, test := range tests {
		_, err := db.GenerateBlock(test.when, test.producer, GenesisKey(params, test.keyOf), BFNone)
		if !errors.Is(err, test.expectedErr) {
			t.Errorf("TestGenerateBlockChecks: %s: expected %s, got %v", test.name, test.expectedErr, err)
		}
	}
	if db.HeadBlockNum() != 1 {
		t.Fatalf("TestGenerateBlockChecks: head moved to %d", db.HeadBlockNum())
	}
}

func TestGenerateBlockPostponesTransactions(t *testing.T) {
	params := SimnetParamsForTest()
	db, teardown := newTestChain(t, "TestGenerateBlockPostponesTransactions", params)
	defer teardown()

	generateBlocks(t, "TestGenerateBlockPostponesTransactions", db, 1)

	// Two of these fit in a block, the third does not.
	opsPerTransaction := int(params.InitialMaximumBlockSize) / 5 * 2 / model.MaxMemoSize
	var pushed []*model.SignedTransaction
	for i := 0; i < 3; i++ {
		tx := largeTransferForTest(t, db, "sima9", opsPerTransaction, i)
		err := db.PushTransaction(tx, BFNone)
		if err != nil {
			t.Fatalf("TestGenerateBlockPostponesTransactions: transaction %d: %+v", i, err)
		}
		pushed = append(pushed, tx)
	}

	block, err := GenerateBlockForTest(db, 1)
	if err != nil {
		t.Fatalf("TestGenerateBlockPostponesTransactions: %+v", err)
	}
	if len(block.Transactions) != 2 {
		t.Fatalf("TestGenerateBlockPostponesTransactions: block holds %d transactions, want 2",
			len(block.Transactions))
	}
	for i := range block.Transactions {
		if block.Transactions[i].ID() != pushed[i].ID() {
			t.Fatalf("TestGenerateBlockPostponesTransactions: transaction %d of the block is out of order", i)
		}
	}
	if block.SerializedSize() > int(params.InitialMaximumBlockSize) {
		t.Fatalf("TestGenerateBlockPostponesTransactions: block is %d bytes", block.SerializedSize())
	}

	small, err := TransferForTest(db, "sima9", 1, 60)
	if err != nil {
		t.Fatalf("TestGenerateBlockPostponesTransactions: %s", err)
	}
	err = db.PushTransaction(small, BFNone)
	if err != nil {
		t.Fatalf("TestGenerateBlockPostponesTransactions: %+v", err)
	}

	pending := db.PendingTransactions()
	if len(pending) != 2 || pending[0].ID() != pushed[2].ID() || pending[1].ID() != small.ID() {
		t.Fatalf("TestGenerateBlockPostponesTransactions: pending transactions are not in arrival order")
	}

	block, err = GenerateBlockForTest(db, 1)
	if err != nil {
		t.Fatalf("TestGenerateBlockPostponesTransactions: %+v", err)
	}
	if len(block.Transactions) != 2 || block.Transactions[0].ID() != pushed[2].ID() ||
		block.Transactions[1].ID() != small.ID() {

		t.Fatalf("TestGenerateBlockPostponesTransactions: postponed transaction was not included first")
	}
}

func TestGenerateBlockHeaderExtensions(t *testing.T) {
	params := SimnetParamsForTest()
	db, teardown := newTestChain(t, "TestGenerateBlockHeaderExtensions", params)
	defer teardown()

	block, err := GenerateBlockForTest(db, 1)
	if err != nil {
		t.Fatalf("TestGenerateBlockHeaderExtensions: %+v", err)
	}
	if len(block.Extensions) != 1 || block.Extensions[0].Type() != model.ExtHardforkVote {
		t.Fatalf("TestGenerateBlockHeaderExtensions: expected a single hardfork vote, got %d extensions",
			len(block.Extensions))
	}
	producer, _ := db.Producer(block.Producer)
	if producer.HardforkVersionVote != params.Hardforks[1].Version ||
		producer.HardforkTimeVote != params.Hardforks[1].Time {

		t.Fatalf("TestGenerateBlockHeaderExtensions: producer votes for %s at %d, want %s at %d",
			producer.HardforkVersionVote, producer.HardforkTimeVote,
			params.Hardforks[1].Version, params.Hardforks[1].Time)
	}

	// A producer that already voted does not vote again.
	db.lock.Lock()
	extensions := db.headerExtensions(&producer)
	db.lock.Unlock()
	if len(extensions) != 0 {
		t.Fatalf("TestGenerateBlockHeaderExtensions: %d extensions for a producer that voted", len(extensions))
	}

	// A producer running older software reports its version.
	producer.RunningVersion = params.Hardforks[1].Version
	db.lock.Lock()
	extensions = db.headerExtensions(&producer)
	db.lock.Unlock()
	if len(extensions) != 1 || extensions[0].Type() != model.ExtRunningVersion {
		t.Fatalf("TestGenerateBlockHeaderExtensions: expected a running version extension, got %d extensions",
			len(extensions))
	}
}
