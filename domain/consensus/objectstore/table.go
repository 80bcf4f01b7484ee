package objectstore

import (
	"github.com/google/btree"
	"github.com/pkg/errors"
)

const btreeDegree = 16

// Row is implemented by every type stored in a table. Clone must return a
// copy sharing no mutable memory with the receiver.
type Row[T any] interface {
	Clone() T
}

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("row not found")

// ErrUniqueViolation is returned when a mutation would give two rows the
// same key in a unique index.
var ErrUniqueViolation = errors.New("unique index violation")

type rowIndex[T any] interface {
	conflicts(id ID, row *T) bool
	insert(id ID, row *T)
	remove(id ID, row *T)
	reset()
	indexName() string
}

// Table is a collection of rows of one type, addressed by ID and optionally
// by secondary indices. All mutations are recorded in the undo history of
// the store the table belongs to.
//
// Rows are copied in and out of the table: values returned by the table
// may be freely modified by the caller.
type Table[T Row[T]] struct {
	store   *Store
	name    string
	rows    map[ID]T
	order   *btree.BTreeG[ID]
	nextID  ID
	indices []rowIndex[T]
}

// NewTable creates a table named name in store.
func NewTable[T Row[T]](store *Store, name string) *Table[T] {
	table := &Table[T]{
		store: store,
		name:  name,
		rows:  make(map[ID]T),
		order: btree.NewOrderedG[ID](btreeDegree),
	}
	store.register(table)
	return table
}

// Name returns the name of the table.
func (t *Table[T]) Name() string {
	return t.name
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	return len(t.rows)
}

// NextID returns the ID the next created row will get.
func (t *Table[T]) NextID() ID {
	return t.nextID
}

func (t *Table[T]) addIndex(index rowIndex[T]) {
	if len(t.rows) != 0 {
		panic(errors.Errorf("index %s added to non-empty table %s", index.indexName(), t.name))
	}
	t.indices = append(t.indices, index)
}

func (t *Table[T]) checkConflicts(id ID, row *T) error {
	for _, index := range t.indices {
		if index.conflicts(id, row) {
			return errors.Wrapf(ErrUniqueViolation, "table %s index %s", t.name, index.indexName())
		}
	}
	return nil
}

func (t *Table[T]) insert(id ID, row T) {
	t.rows[id] = row
	t.order.ReplaceOrInsert(id)
	for _, index := range t.indices {
		index.insert(id, &row)
	}
}

func (t *Table[T]) delete(id ID) {
	row := t.rows[id]
	for _, index := range t.indices {
		index.remove(id, &row)
	}
	delete(t.rows, id)
	t.order.Delete(id)
}

func (t *Table[T]) replace(id ID, row T) {
	t.delete(id)
	t.insert(id, row)
}

// Create adds a row initialized by init and returns its ID.
func (t *Table[T]) Create(init func(id ID, row *T)) (ID, error) {
	id := t.nextID
	var row T
	if init != nil {
		init(id, &row)
	}
	err := t.checkConflicts(id, &row)
	if err != nil {
		return 0, err
	}
	t.insert(id, row)
	t.nextID++
	t.store.recordUndo(func() {
		t.delete(id)
		t.nextID = id
	})
	return id, nil
}

// Get returns the row with the given ID.
func (t *Table[T]) Get(id ID) (T, bool) {
	row, ok := t.rows[id]
	if !ok {
		return row, false
	}
	return row.Clone(), true
}

// MustGet returns the row with the given ID and panics if it does not
// exist. It is meant for rows that exist by construction, such as
// singletons.
func (t *Table[T]) MustGet(id ID) T {
	row, ok := t.Get(id)
	if !ok {
		panic(errors.Errorf("row %d of table %s does not exist", id, t.name))
	}
	return row
}

// Modify applies mutate to a copy of the row with the given ID and stores
// the result. The row is left unchanged if the result violates a unique
// index.
func (t *Table[T]) Modify(id ID, mutate func(row *T)) error {
	old, ok := t.rows[id]
	if !ok {
		return errors.Wrapf(ErrNotFound, "table %s id %d", t.name, id)
	}
	updated := old.Clone()
	mutate(&updated)
	err := t.checkConflicts(id, &updated)
	if err != nil {
		return err
	}
	t.replace(id, updated)
	t.store.recordUndo(func() {
		t.replace(id, old)
	})
	return nil
}

// Remove deletes the row with the given ID.
func (t *Table[T]) Remove(id ID) error {
	old, ok := t.rows[id]
	if !ok {
		return errors.Wrapf(ErrNotFound, "table %s id %d", t.name, id)
	}
	t.delete(id)
	t.store.recordUndo(func() {
		t.insert(id, old)
	})
	return nil
}

// Each calls f for every row in ID order until f returns false. f must not
// mutate the table.
func (t *Table[T]) Each(f func(id ID, row T) bool) {
	t.order.Ascend(func(id ID) bool {
		return f(id, t.rows[id].Clone())
	})
}

func (t *Table[T]) reset() {
	t.rows = make(map[ID]T)
	t.order.Clear(false)
	t.nextID = 0
	for _, index := range t.indices {
		index.reset()
	}
}
