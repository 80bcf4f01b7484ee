package chaindb

import (
	"fmt"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"pgregory.net/rapid"
)

// TestDeterministicReplication produces random chains, with missed slots
// and transfers, and checks that a second node pushing the same blocks
// ends in the same state.
func TestDeterministicReplication(t *testing.T) {
	params := SimnetParamsForTest()
	run := 0
	rapid.Check(t, func(rt *rapid.T) {
		run++
		producer, teardownProducer, err := ChainSetup(fmt.Sprintf("TestDeterministicReplication-p%d", run),
			Config{Params: params})
		if err != nil {
			rt.Fatalf("%s", err)
		}
		defer teardownProducer()
		follower, teardownFollower, err := ChainSetup(fmt.Sprintf("TestDeterministicReplication-f%d", run),
			Config{Params: params})
		if err != nil {
			rt.Fatalf("%s", err)
		}
		defer teardownFollower()

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		var blocks []*model.SignedBlock
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(rt, "transfer") {
				to := params.GenesisProducers[rapid.IntRange(0, len(params.GenesisProducers)-1).Draw(rt, "to")]
				amount := model.Amount(rapid.Int64Range(1, 1000).Draw(rt, "amount"))
				tx, err := TransferForTest(producer, to, amount, 60)
				if err != nil {
					rt.Fatalf("%s", err)
				}
				// Duplicates are rejected, which is fine.
				_ = producer.PushTransaction(tx, BFNone)
			}
			slot := uint32(rapid.IntRange(1, 4).Draw(rt, "slot"))
			block, err := GenerateBlockForTest(producer, slot)
			if err != nil {
				rt.Fatalf("generating block %d: %+v", i+1, err)
			}
			blocks = append(blocks, block)
		}

		for _, block := range blocks {
			_, err := follower.PushBlock(block, BFNone)
			if err != nil {
				rt.Fatalf("pushing block %d: %+v", block.Num(), err)
			}
		}

		if follower.HeadBlockID() != producer.HeadBlockID() {
			rt.Fatalf("follower head %s, producer head %s", follower.HeadBlockID(), producer.HeadBlockID())
		}
		producerDGP := producer.DynamicGlobalProperties()
		followerDGP := follower.DynamicGlobalProperties()
		if spew.Sdump(producerDGP) != spew.Sdump(followerDGP) {
			rt.Fatalf("global properties differ:\n%s\n%s", spew.Sdump(producerDGP), spew.Sdump(followerDGP))
		}
		for _, name := range append([]string{params.GenesisAccount}, params.GenesisProducers...) {
			a, _ := producer.Account(name)
			b, _ := follower.Account(name)
			if a.Balance != b.Balance {
				rt.Fatalf("account %s has %d on the producer and %d on the follower", name, a.Balance, b.Balance)
			}
		}
		err = follower.ValidateInvariants()
		if err != nil {
			rt.Fatalf("%s", err)
		}
	})
}
