package state

import (
	"testing"

	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/objectstore"
)

func TestSingletonsAndUndo(t *testing.T) {
	s := New()
	if s.IsInitialized() {
		t.Fatalf("TestSingletonsAndUndo: new state is initialized")
	}
	err := s.InitSingletons(
		model.DynamicGlobalProperties{Time: 100},
		model.HardforkProperties{ProcessedHardforks: []int64{100}},
		model.ProducerSchedule{CurrentShuffledProducers: []string{"alice"}, NumScheduledProducers: 1},
	)
	if err != nil {
		t.Fatalf("TestSingletonsAndUndo: InitSingletons: %s", err)
	}
	if err := s.InitSingletons(model.DynamicGlobalProperties{}, model.HardforkProperties{}, model.ProducerSchedule{}); err == nil {
		t.Fatalf("TestSingletonsAndUndo: singletons were created twice")
	}

	session := s.Store.StartUndoSession(true)
	s.ModifyDynamicGlobalProperties(func(dgp *model.DynamicGlobalProperties) { dgp.HeadBlockNumber = 5 })
	s.ModifyHardforkProperties(func(hfp *model.HardforkProperties) {
		hfp.ProcessedHardforks = append(hfp.ProcessedHardforks, 200)
		hfp.LastHardfork = 1
	})
	if s.HeadBlockNum() != 5 || !s.HasHardfork(1) {
		t.Fatalf("TestSingletonsAndUndo: modifications are not visible")
	}
	session.Rollback()

	if s.HeadBlockNum() != 0 || s.HasHardfork(1) {
		t.Fatalf("TestSingletonsAndUndo: rollback did not restore the singletons")
	}
	if len(s.HardforkProperties().ProcessedHardforks) != 1 {
		t.Fatalf("TestSingletonsAndUndo: rollback did not restore processed hardforks")
	}
}

func TestProducersByVotesOrder(t *testing.T) {
	s := New()
	for _, producer := range []model.Producer{
		{Owner: "carol", Votes: 5},
		{Owner: "alice", Votes: 10},
		{Owner: "bob", Votes: 5},
	} {
		producer := producer
		_, err := s.Producers.Create(func(_ objectstore.ID, p *model.Producer) { *p = producer })
		if err != nil {
			t.Fatalf("TestProducersByVotesOrder: Create: %s", err)
		}
	}

	var order []string
	s.ProducersByVotes.Ascend(func(_ objectstore.ID, p model.Producer) bool {
		order = append(order, p.Owner)
		return true
	})
	expected := []string{"alice", "carol", "bob"}
	for i := range expected {
		if order[i] != expected[i] {
			t.Fatalf("TestProducersByVotesOrder: expected %v, got %v", expected, order)
		}
	}
}

func TestBlockSummaryID(t *testing.T) {
	if BlockSummaryID(5) != 5 || BlockSummaryID(BlockSummaryRingSize+5) != 5 {
		t.Fatalf("TestBlockSummaryID: block numbers do not wrap around the ring")
	}
}
