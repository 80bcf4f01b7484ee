package app

import (
	"testing"
	"time"

	"github.com/futurepia/futurepia-sub000/domain/chaindb"
	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/signing"
)

func setupProducer(t *testing.T, testName string) (*chaindb.ChainDB, *blockProducer, func()) {
	params := chaindb.SimnetParamsForTest()
	chain, teardown, err := chaindb.ChainSetup(testName, chaindb.Config{Params: params})
	if err != nil {
		t.Fatalf("%s: Failed to setup chain instance: %v", testName, err)
	}
	producers := make(map[string]struct{}, len(params.GenesisProducers))
	for _, name := range params.GenesisProducers {
		producers[name] = struct{}{}
	}
	producer := &blockProducer{
		chain:                 chain,
		producers:             producers,
		requiredParticipation: defaultTestParticipation,
		onHalt:                func() {},
	}
	return chain, producer, teardown
}

const defaultTestParticipation = 3300

func TestMaybeProduceBlock(t *testing.T) {
	chain, producer, teardown := setupProducer(t, "TestMaybeProduceBlock")
	defer teardown()

	slotTime := func(slot uint32) time.Time { return time.Unix(chain.SlotTime(slot), 0) }

	// The simnet genesis is long past, so the chain looks stale.
	condition, err := producer.maybeProduceBlock(time.Now())
	if err != nil || condition != notSynced {
		t.Fatalf("TestMaybeProduceBlock: expected %s, got %s (%v)", notSynced, condition, err)
	}

	condition, err = producer.maybeProduceBlock(slotTime(1))
	if err != nil || condition != produced {
		t.Fatalf("TestMaybeProduceBlock: expected %s, got %s (%+v)", produced, condition, err)
	}
	if chain.HeadBlockNum() != 1 || !producer.productionEnabled {
		t.Fatalf("TestMaybeProduceBlock: head is %d after producing", chain.HeadBlockNum())
	}

	tests := []struct {
		name     string
		now      time.Time
		setup    func()
		expected productionCondition
	}{
		{
			name:     "head block time",
			now:      time.Unix(chain.HeadBlockTime(), 0),
			expected: notTimeYet,
		},
		{
			name:     "late wake up",
			now:      slotTime(1).Add(700 * time.Millisecond),
			expected: lag,
		},
		{
			name:     "early wake up",
			now:      slotTime(1).Add(-400 * time.Millisecond),
			setup:    func() { producer.producers = map[string]struct{}{chain.ScheduledProducer(2): {}} },
			expected: notMyTurn,
		},
		{
			name: "foreign key",
			now:  slotTime(1),
			setup: func() {
				producer.producers = map[string]struct{}{chain.ScheduledProducer(1): {}}
				producer.signingKey = signing.KeyFromSeed("not a producer")
			},
			expected: noPrivateKey,
		},
	}
	for _, test := range tests {
		if test.setup != nil {
			test.setup()
		}
		condition, err := producer.maybeProduceBlock(test.now)
		if err != nil || condition != test.expected {
			t.Errorf("TestMaybeProduceBlock: %s: expected %s, got %s (%v)", test.name, test.expected, condition, err)
		}
	}
	if chain.HeadBlockNum() != 1 {
		t.Fatalf("TestMaybeProduceBlock: head moved to %d without producing", chain.HeadBlockNum())
	}
}

func TestMaybeProduceBlockLowParticipation(t *testing.T) {
	chain, producer, teardown := setupProducer(t, "TestMaybeProduceBlockLowParticipation")
	defer teardown()

	// Filling every other slot halves the participation.
	for chain.HeadBlockNum() < 130 {
		_, err := chaindb.GenerateBlockForTest(chain, 2)
		if err != nil {
			t.Fatalf("TestMaybeProduceBlockLowParticipation: %+v", err)
		}
	}
	producer.productionEnabled = true
	producer.requiredParticipation = 6000
	condition, err := producer.maybeProduceBlock(time.Unix(chain.SlotTime(1), 0))
	if err != nil || condition != lowParticipation {
		t.Fatalf("TestMaybeProduceBlockLowParticipation: expected %s with participation %d, got %s (%v)",
			lowParticipation, chain.ProducerParticipationRate(), condition, err)
	}

	producer.requiredParticipation = defaultTestParticipation
	condition, err = producer.maybeProduceBlock(time.Unix(chain.SlotTime(1), 0))
	if err != nil || condition != produced {
		t.Fatalf("TestMaybeProduceBlockLowParticipation: expected %s, got %s (%+v)", produced, condition, err)
	}
}

func TestUntilNextAttempt(t *testing.T) {
	base := time.Unix(1000, 0)
	tests := []struct {
		now      time.Time
		expected time.Duration
	}{
		{now: base, expected: time.Second},
		{now: base.Add(250 * time.Millisecond), expected: 750 * time.Millisecond},
		{now: base.Add(960 * time.Millisecond), expected: 1040 * time.Millisecond},
	}
	for _, test := range tests {
		got := untilNextAttempt(test.now)
		if got != test.expected {
			t.Errorf("TestUntilNextAttempt: at %s got %s, want %s", test.now, got, test.expected)
		}
	}
}

func TestBlockProducerStartStop(t *testing.T) {
	_, producer, teardown := setupProducer(t, "TestBlockProducerStartStop")
	defer teardown()

	producer.start()
	done := make(chan struct{})
	go func() {
		producer.stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("TestBlockProducerStartStop: stop did not return")
	}
	// Starting again after a stop schedules nothing.
	producer.scheduleProductionLoop()
	if producer.timer != nil && producer.timer.Stop() {
		t.Fatalf("TestBlockProducerStartStop: production was scheduled after stop")
	}
}
