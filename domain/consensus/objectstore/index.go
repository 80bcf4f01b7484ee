package objectstore

import (
	"github.com/google/btree"
	"golang.org/x/exp/constraints"
)

type indexEntry[K any] struct {
	key K
	id  ID
}

// Index is a secondary index of a table, ordering rows by a key derived
// from them. Rows with equal keys are ordered by ID. A unique index rejects
// any mutation that would give two rows the same key.
type Index[T Row[T], K any] struct {
	table  *Table[T]
	name   string
	unique bool
	keyOf  func(row *T) K
	less   func(a, b K) bool
	tree   *btree.BTreeG[indexEntry[K]]
}

// NewIndex adds an index ordered by less to table. Indices must be added
// before the table has rows.
func NewIndex[T Row[T], K any](table *Table[T], name string, unique bool,
	keyOf func(row *T) K, less func(a, b K) bool) *Index[T, K] {

	index := &Index[T, K]{
		table:  table,
		name:   name,
		unique: unique,
		keyOf:  keyOf,
		less:   less,
	}
	index.tree = btree.NewG[indexEntry[K]](btreeDegree, index.entryLess)
	table.addIndex(index)
	return index
}

// NewOrderedIndex adds an index over a naturally ordered key to table.
func NewOrderedIndex[T Row[T], K constraints.Ordered](table *Table[T], name string, unique bool,
	keyOf func(row *T) K) *Index[T, K] {

	return NewIndex(table, name, unique, keyOf, func(a, b K) bool { return a < b })
}

func (x *Index[T, K]) entryLess(a, b indexEntry[K]) bool {
	if x.less(a.key, b.key) {
		return true
	}
	if x.less(b.key, a.key) {
		return false
	}
	return a.id < b.id
}

func (x *Index[T, K]) equal(a, b K) bool {
	return !x.less(a, b) && !x.less(b, a)
}

func (x *Index[T, K]) indexName() string {
	return x.name
}

func (x *Index[T, K]) conflicts(id ID, row *T) bool {
	if !x.unique {
		return false
	}
	key := x.keyOf(row)
	conflict := false
	x.tree.AscendGreaterOrEqual(indexEntry[K]{key: key}, func(entry indexEntry[K]) bool {
		if !x.equal(entry.key, key) {
			return false
		}
		if entry.id != id {
			conflict = true
			return false
		}
		return true
	})
	return conflict
}

func (x *Index[T, K]) insert(id ID, row *T) {
	x.tree.ReplaceOrInsert(indexEntry[K]{key: x.keyOf(row), id: id})
}

func (x *Index[T, K]) remove(id ID, row *T) {
	x.tree.Delete(indexEntry[K]{key: x.keyOf(row), id: id})
}

func (x *Index[T, K]) reset() {
	x.tree.Clear(false)
}

// Find returns the first row whose key equals key.
func (x *Index[T, K]) Find(key K) (ID, T, bool) {
	var foundID ID
	found := false
	x.tree.AscendGreaterOrEqual(indexEntry[K]{key: key}, func(entry indexEntry[K]) bool {
		if x.equal(entry.key, key) {
			foundID = entry.id
			found = true
		}
		return false
	})
	if !found {
		var zero T
		return 0, zero, false
	}
	row, ok := x.table.Get(foundID)
	return foundID, row, ok
}

// Has returns whether a row with the given key exists.
func (x *Index[T, K]) Has(key K) bool {
	_, _, found := x.Find(key)
	return found
}

// Ascend calls f for every row in key order until f returns false. f must
// not mutate the table.
func (x *Index[T, K]) Ascend(f func(id ID, row T) bool) {
	x.tree.Ascend(x.visitor(f))
}

// AscendFrom calls f for every row whose key is not less than key, in key
// order, until f returns false. f must not mutate the table.
func (x *Index[T, K]) AscendFrom(key K, f func(id ID, row T) bool) {
	x.tree.AscendGreaterOrEqual(indexEntry[K]{key: key}, x.visitor(f))
}

// AscendLessThan calls f for every row whose key is less than key, in key
// order, until f returns false. f must not mutate the table.
func (x *Index[T, K]) AscendLessThan(key K, f func(id ID, row T) bool) {
	x.tree.AscendLessThan(indexEntry[K]{key: key}, x.visitor(f))
}

// CollectLessThan returns the IDs of the rows whose key is less than key,
// in key order. Callers that remove rows while walking an index use it
// instead of AscendLessThan.
func (x *Index[T, K]) CollectLessThan(key K) []ID {
	var ids []ID
	x.tree.AscendLessThan(indexEntry[K]{key: key}, func(entry indexEntry[K]) bool {
		ids = append(ids, entry.id)
		return true
	})
	return ids
}

// Len returns the number of indexed rows.
func (x *Index[T, K]) Len() int {
	return x.tree.Len()
}

func (x *Index[T, K]) visitor(f func(id ID, row T) bool) btree.ItemIteratorG[indexEntry[K]] {
	return func(entry indexEntry[K]) bool {
		return f(entry.id, x.table.rows[entry.id].Clone())
	}
}
