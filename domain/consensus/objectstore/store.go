package objectstore

import (
	"github.com/pkg/errors"
)

// ID identifies a row within its table. IDs are assigned in creation order
// and never reused while the row exists.
type ID uint64

// undoState holds the inverse of every mutation made since it was started.
// Inverses run in reverse order on rollback.
type undoState struct {
	revision int64
	undo     []func()
}

// Store is a set of tables sharing one undo history. Every mutation made
// while an undo session is open can be rolled back.
//
// Store is not safe for concurrent use.
type Store struct {
	tables     []storeTable
	tableNames map[string]struct{}
	stack      []*undoState
	revision   int64
}

// New returns an empty store.
func New() *Store {
	return &Store{tableNames: make(map[string]struct{})}
}

func (s *Store) register(table storeTable) {
	if _, ok := s.tableNames[table.Name()]; ok {
		panic(errors.Errorf("table %s is registered twice", table.Name()))
	}
	s.tableNames[table.Name()] = struct{}{}
	s.tables = append(s.tables, table)
}

func (s *Store) recordUndo(undo func()) {
	if len(s.stack) == 0 {
		return
	}
	top := s.stack[len(s.stack)-1]
	top.undo = append(top.undo, undo)
}

func (s *Store) top() *undoState {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

// Revision returns the revision of the newest undo state, or of the
// committed state when there is no undo history.
func (s *Store) Revision() int64 {
	return s.revision
}

// SetRevision sets the revision of the committed state. It fails if there
// is undo history.
func (s *Store) SetRevision(revision int64) error {
	if len(s.stack) != 0 {
		return errors.New("cannot set the revision of a store with undo history")
	}
	s.revision = revision
	return nil
}

// UndoDepth returns the number of undo states.
func (s *Store) UndoDepth() int {
	return len(s.stack)
}

// StartUndoSession starts a new undo state on top of the stack. A disabled
// session records nothing and all of its terminal calls are no-ops, so
// every mutation made under it is permanent.
func (s *Store) StartUndoSession(enabled bool) *Session {
	if !enabled {
		return &Session{store: s}
	}
	s.revision++
	state := &undoState{revision: s.revision}
	s.stack = append(s.stack, state)
	return &Session{store: s, state: state}
}

func (s *Store) rollbackTop() {
	state := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	for i := len(state.undo) - 1; i >= 0; i-- {
		state.undo[i]()
	}
	s.revision--
}

func (s *Store) squashTop() {
	state := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	if below := s.top(); below != nil {
		below.undo = append(below.undo, state.undo...)
	}
	s.revision--
}

// Undo rolls back the newest undo state.
func (s *Store) Undo() error {
	if len(s.stack) == 0 {
		return errors.New("no undo history")
	}
	s.rollbackTop()
	return nil
}

// UndoAll rolls back every undo state.
func (s *Store) UndoAll() {
	for len(s.stack) > 0 {
		s.rollbackTop()
	}
}

// Commit makes permanent every undo state with a revision up to and
// including revision.
func (s *Store) Commit(revision int64) {
	committed := 0
	for committed < len(s.stack) && s.stack[committed].revision <= revision {
		committed++
	}
	if committed == 0 {
		return
	}
	s.stack = append(s.stack[:0:0], s.stack[committed:]...)
}
