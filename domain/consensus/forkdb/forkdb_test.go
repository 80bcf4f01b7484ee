package forkdb

import (
	"testing"

	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
)

func newBlock(previous model.BlockID, producer string) *model.SignedBlock {
	block := &model.SignedBlock{}
	block.Previous = previous
	block.Timestamp = int64(previous.Num()+1) * 3
	block.Producer = producer
	return block
}

// buildBranch returns length blocks extending previous.
func buildBranch(previous model.BlockID, length int, producer string) []*model.SignedBlock {
	blocks := make([]*model.SignedBlock, length)
	for i := range blocks {
		blocks[i] = newBlock(previous, producer)
		previous = blocks[i].ID()
	}
	return blocks
}

func pushAll(t *testing.T, db *ForkDB, blocks []*model.SignedBlock) {
	for _, block := range blocks {
		_, err := db.PushBlock(block)
		if err != nil {
			t.Fatalf("PushBlock %d: %s", block.Num(), err)
		}
	}
}

func TestPushBlockHead(t *testing.T) {
	db := New()
	mainBranch := buildBranch(model.BlockID{}, 5, "alice")
	pushAll(t, db, mainBranch)
	if db.Head().ID != mainBranch[4].ID() {
		t.Fatalf("TestPushBlockHead: expected head %s, got %s", mainBranch[4].ID(), db.Head().ID)
	}

	// A competing branch of equal length does not move the head.
	fork := buildBranch(mainBranch[1].ID(), 3, "bob")
	pushAll(t, db, fork)
	if db.Head().ID != mainBranch[4].ID() {
		t.Fatalf("TestPushBlockHead: head moved to an equally long branch")
	}
	if len(db.FetchBlockByNumber(4)) != 2 {
		t.Fatalf("TestPushBlockHead: expected 2 blocks at height 4, got %d", len(db.FetchBlockByNumber(4)))
	}

	longer := buildBranch(fork[2].ID(), 1, "bob")
	head, err := db.PushBlock(longer[0])
	if err != nil {
		t.Fatalf("TestPushBlockHead: %s", err)
	}
	if head.ID != longer[0].ID() {
		t.Fatalf("TestPushBlockHead: head did not move to the longer branch")
	}

	// Pushing a known block again changes nothing.
	_, err = db.PushBlock(mainBranch[2])
	if err != nil {
		t.Fatalf("TestPushBlockHead: pushing a known block: %s", err)
	}
	if db.Len() != 9 {
		t.Fatalf("TestPushBlockHead: expected 9 blocks, got %d", db.Len())
	}
}

func TestUnlinkableBlock(t *testing.T) {
	db := New()
	blocks := buildBranch(model.BlockID{}, 4, "alice")
	pushAll(t, db, blocks[:1])

	_, err := db.PushBlock(blocks[3])
	if !errors.Is(err, ruleerrors.ErrUnlinkableBlock) {
		t.Fatalf("TestUnlinkableBlock: expected ErrUnlinkableBlock, got %v", err)
	}
	_, err = db.PushBlock(blocks[2])
	if !errors.Is(err, ruleerrors.ErrUnlinkableBlock) {
		t.Fatalf("TestUnlinkableBlock: expected ErrUnlinkableBlock, got %v", err)
	}
	if db.IsKnown(blocks[2].ID()) {
		t.Fatalf("TestUnlinkableBlock: unlinked block is reported as known")
	}

	head, err := db.PushBlock(blocks[1])
	if err != nil {
		t.Fatalf("TestUnlinkableBlock: %s", err)
	}
	if head.ID != blocks[3].ID() {
		t.Fatalf("TestUnlinkableBlock: unlinked blocks were not linked, head is %d", head.Num)
	}
}

func TestFetchBranchFrom(t *testing.T) {
	db := New()
	trunk := buildBranch(model.BlockID{}, 3, "alice")
	first := buildBranch(trunk[2].ID(), 2, "alice")
	second := buildBranch(trunk[2].ID(), 3, "bob")
	pushAll(t, db, trunk)
	pushAll(t, db, first)
	pushAll(t, db, second)

	firstBranch, secondBranch, err := db.FetchBranchFrom(first[1].ID(), second[2].ID())
	if err != nil {
		t.Fatalf("TestFetchBranchFrom: %s", err)
	}
	if len(firstBranch) != 2 || len(secondBranch) != 3 {
		t.Fatalf("TestFetchBranchFrom: unexpected branch lengths %d and %d", len(firstBranch), len(secondBranch))
	}
	if firstBranch[0].ID != first[1].ID() || secondBranch[2].ID != second[0].ID() {
		t.Fatalf("TestFetchBranchFrom: branches are not ordered tip first")
	}
	if firstBranch[1].Previous != trunk[2].ID() || secondBranch[2].Previous != trunk[2].ID() {
		t.Fatalf("TestFetchBranchFrom: branches do not end at the common ancestor")
	}

	item, ok := db.FetchBlockOnMainBranchByNumber(4)
	if !ok || item.ID != second[0].ID() {
		t.Fatalf("TestFetchBranchFrom: unexpected main branch block at height 4")
	}
}

func TestSetMaxSize(t *testing.T) {
	db := New()
	blocks := buildBranch(model.BlockID{}, 10, "alice")
	pushAll(t, db, blocks)

	db.SetMaxSize(3)
	if db.Len() != 4 {
		t.Fatalf("TestSetMaxSize: expected 4 blocks, got %d", db.Len())
	}
	if db.IsKnown(blocks[5].ID()) || !db.IsKnown(blocks[6].ID()) {
		t.Fatalf("TestSetMaxSize: wrong blocks pruned")
	}

	tooOld := newBlock(blocks[5].ID(), "bob")
	_, err := db.PushBlock(tooOld)
	if !errors.Is(err, ruleerrors.ErrBlockTooOld) {
		t.Fatalf("TestSetMaxSize: expected ErrBlockTooOld, got %v", err)
	}
}

func TestRemoveAndSetHead(t *testing.T) {
	db := New()
	blocks := buildBranch(model.BlockID{}, 3, "alice")
	pushAll(t, db, blocks)

	previousHead, _ := db.FetchBlock(blocks[1].ID())
	db.Remove(blocks[2].ID())
	db.SetHead(previousHead)
	if db.IsKnown(blocks[2].ID()) || db.Head().ID != blocks[1].ID() {
		t.Fatalf("TestRemoveAndSetHead: block was not removed")
	}
	if len(db.FetchBlockByNumber(3)) != 0 {
		t.Fatalf("TestRemoveAndSetHead: removed block is still indexed by number")
	}

	db.StartBlock(blocks[2])
	if db.Len() != 1 || db.Head().ID != blocks[2].ID() {
		t.Fatalf("TestRemoveAndSetHead: StartBlock did not reset the fork database")
	}
}
