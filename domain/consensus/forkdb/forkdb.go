package forkdb

import (
	"bytes"

	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/google/btree"
	"github.com/pkg/errors"
)

// DefaultMaxSize is the window the fork database keeps until the chain
// tells it the distance to the last irreversible block.
const DefaultMaxSize = 1024

// Item is a block in the fork database. Items are immutable once pushed.
type Item struct {
	ID       model.BlockID
	Previous model.BlockID
	Num      uint32
	Block    *model.SignedBlock
}

func newItem(block *model.SignedBlock) *Item {
	return &Item{
		ID:       block.ID(),
		Previous: block.Previous,
		Num:      block.Num(),
		Block:    block,
	}
}

func itemLess(a, b *Item) bool {
	if a.Num != b.Num {
		return a.Num < b.Num
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// ForkDB is an in-memory tree of the recent blocks of every known branch.
// Blocks whose previous block is unknown wait in a separate unlinked pool
// until it arrives.
//
// ForkDB is NOT safe for concurrent access.
type ForkDB struct {
	index    map[model.BlockID]*Item
	byNum    *btree.BTreeG[*Item]
	unlinked *btree.BTreeG[*Item]
	head     *Item
	maxSize  uint32
}

// New returns an empty fork database.
func New() *ForkDB {
	return &ForkDB{
		index:    make(map[model.BlockID]*Item),
		byNum:    btree.NewG(8, itemLess),
		unlinked: btree.NewG(8, itemLess),
		maxSize:  DefaultMaxSize,
	}
}

// Reset removes every block.
func (db *ForkDB) Reset() {
	db.index = make(map[model.BlockID]*Item)
	db.byNum.Clear(false)
	db.unlinked.Clear(false)
	db.head = nil
}

// StartBlock resets the fork database to hold only block.
func (db *ForkDB) StartBlock(block *model.SignedBlock) *Item {
	db.Reset()
	item := newItem(block)
	db.insert(item)
	db.head = item
	return item
}

// Head returns the block at the tip of the longest branch, or nil if the
// fork database is empty.
func (db *ForkDB) Head() *Item {
	return db.head
}

// PushBlock adds block and every unlinked block that now links to it, and
// returns the new head. The head only moves to a strictly higher block, so
// of two branches of equal length the first one seen stays the head.
func (db *ForkDB) PushBlock(block *model.SignedBlock) (*Item, error) {
	item := newItem(block)
	err := db.push(item)
	if err != nil {
		if errors.Is(err, ruleerrors.ErrUnlinkableBlock) {
			db.unlinked.ReplaceOrInsert(item)
			log.Debugf("Block %s is unlinkable, keeping it until %s arrives", item.ID, item.Previous)
		}
		return nil, err
	}
	db.pushUnlinkedChildren(item)
	return db.head, nil
}

func (db *ForkDB) push(item *Item) error {
	if db.head != nil {
		if db.head.Num > db.maxSize && item.Num <= db.head.Num-db.maxSize {
			return errors.Wrapf(ruleerrors.ErrBlockTooOld, "block %d is more than %d blocks behind head %d",
				item.Num, db.maxSize, db.head.Num)
		}
		if _, ok := db.index[item.Previous]; !ok {
			return errors.Wrapf(ruleerrors.ErrUnlinkableBlock, "previous block %s of block %s is unknown",
				item.Previous, item.ID)
		}
	}
	if _, ok := db.index[item.ID]; ok {
		return nil
	}
	db.insert(item)
	if db.head == nil || item.Num > db.head.Num {
		db.head = item
	}
	return nil
}

func (db *ForkDB) insert(item *Item) {
	db.index[item.ID] = item
	db.byNum.ReplaceOrInsert(item)
}

func (db *ForkDB) pushUnlinkedChildren(parent *Item) {
	var children []*Item
	db.unlinked.AscendGreaterOrEqual(&Item{Num: parent.Num + 1}, func(item *Item) bool {
		if item.Num > parent.Num+1 {
			return false
		}
		if item.Previous == parent.ID {
			children = append(children, item)
		}
		return true
	})
	for _, child := range children {
		db.unlinked.Delete(child)
		err := db.push(child)
		if err != nil {
			log.Debugf("Dropping unlinked block %s: %s", child.ID, err)
			continue
		}
		db.pushUnlinkedChildren(child)
	}
}

// IsKnown returns whether block id is linked into the fork database.
func (db *ForkDB) IsKnown(id model.BlockID) bool {
	_, ok := db.index[id]
	return ok
}

// FetchBlock returns the linked block with the given id.
func (db *ForkDB) FetchBlock(id model.BlockID) (*Item, bool) {
	item, ok := db.index[id]
	return item, ok
}

// FetchBlockByNumber returns every linked block at height num.
func (db *ForkDB) FetchBlockByNumber(num uint32) []*Item {
	var items []*Item
	db.byNum.AscendGreaterOrEqual(&Item{Num: num}, func(item *Item) bool {
		if item.Num != num {
			return false
		}
		items = append(items, item)
		return true
	})
	return items
}

// FetchBlockOnMainBranchByNumber returns the block at height num on the
// branch ending at the head.
func (db *ForkDB) FetchBlockOnMainBranchByNumber(num uint32) (*Item, bool) {
	item := db.head
	for item != nil && item.Num > num {
		item = db.index[item.Previous]
	}
	if item == nil || item.Num != num {
		return nil, false
	}
	return item, true
}

// FetchBranchFrom walks back from first and second to their common
// ancestor. Each returned branch starts at its tip and ends at the block
// right after the ancestor, which is not included.
func (db *ForkDB) FetchBranchFrom(first, second model.BlockID) (firstBranch, secondBranch []*Item, err error) {
	firstItem, ok := db.index[first]
	if !ok {
		return nil, nil, errors.Errorf("block %s is not in the fork database", first)
	}
	secondItem, ok := db.index[second]
	if !ok {
		return nil, nil, errors.Errorf("block %s is not in the fork database", second)
	}

	for firstItem.Num > secondItem.Num {
		firstBranch = append(firstBranch, firstItem)
		firstItem, ok = db.index[firstItem.Previous]
		if !ok {
			return nil, nil, errors.Errorf("branch of %s leaves the fork database", first)
		}
	}
	for secondItem.Num > firstItem.Num {
		secondBranch = append(secondBranch, secondItem)
		secondItem, ok = db.index[secondItem.Previous]
		if !ok {
			return nil, nil, errors.Errorf("branch of %s leaves the fork database", second)
		}
	}
	for firstItem.ID != secondItem.ID {
		firstBranch = append(firstBranch, firstItem)
		secondBranch = append(secondBranch, secondItem)
		firstItem, ok = db.index[firstItem.Previous]
		if !ok {
			return nil, nil, errors.Errorf("branches of %s and %s have no common ancestor", first, second)
		}
		secondItem, ok = db.index[secondItem.Previous]
		if !ok {
			return nil, nil, errors.Errorf("branches of %s and %s have no common ancestor", first, second)
		}
	}
	return firstBranch, secondBranch, nil
}

// SetHead moves the head to item.
func (db *ForkDB) SetHead(item *Item) {
	db.head = item
}

// Remove removes block id. Its descendants are not removed.
func (db *ForkDB) Remove(id model.BlockID) {
	item, ok := db.index[id]
	if !ok {
		return
	}
	delete(db.index, id)
	db.byNum.Delete(item)
}

// SetMaxSize sets how many blocks below the head the fork database keeps
// and drops the blocks below that window.
func (db *ForkDB) SetMaxSize(maxSize uint32) {
	db.maxSize = maxSize
	if db.head == nil || db.head.Num <= maxSize {
		return
	}
	minNum := db.head.Num - maxSize
	for _, tree := range []*btree.BTreeG[*Item]{db.byNum, db.unlinked} {
		var expired []*Item
		tree.AscendLessThan(&Item{Num: minNum}, func(item *Item) bool {
			expired = append(expired, item)
			return true
		})
		for _, item := range expired {
			tree.Delete(item)
			if tree == db.byNum {
				delete(db.index, item.ID)
			}
		}
	}
}

// Len returns the number of linked blocks.
func (db *ForkDB) Len() int {
	return len(db.index)
}
