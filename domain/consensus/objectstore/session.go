package objectstore

import (
	"github.com/pkg/errors"
)

// Session is a handle on one undo state. Exactly one of Squash, Push and
// Rollback must be called on it, and sessions must be closed in the
// reverse order they were started. Callers that may return early should
// `defer session.RollbackUnlessClosed()`.
type Session struct {
	store  *Store
	state  *undoState
	closed bool
}

func (s *Session) close() {
	if s.closed {
		panic(errors.New("undo session is already closed"))
	}
	s.closed = true
	if s.state != nil && s.store.top() != s.state {
		panic(errors.New("undo sessions must be closed in the reverse order they were started"))
	}
}

// Squash merges the changes of the session into the enclosing session. If
// there is none, the changes become permanent.
func (s *Session) Squash() {
	s.close()
	if s.state == nil {
		return
	}
	s.store.squashTop()
}

// Push keeps the changes of the session as an undo state of its own, to be
// undone with Store.Undo or made permanent with Store.Commit.
func (s *Session) Push() {
	s.close()
}

// Rollback discards every change made since the session was started.
func (s *Session) Rollback() {
	s.close()
	if s.state == nil {
		return
	}
	s.store.rollbackTop()
}

// RollbackUnlessClosed rolls the session back unless it was already
// squashed, pushed or rolled back.
func (s *Session) RollbackUnlessClosed() {
	if s.closed {
		return
	}
	s.Rollback()
}

// IsClosed returns whether the session was squashed, pushed or rolled back.
func (s *Session) IsClosed() bool {
	return s.closed
}

// Revision returns the revision of the session's undo state, or zero for a
// disabled session.
func (s *Session) Revision() int64 {
	if s.state == nil {
		return 0
	}
	return s.state.revision
}

// WithSession runs f inside a new undo session. The session is squashed if f
// succeeds and rolled back otherwise, including when f panics.
func WithSession(store *Store, f func() error) error {
	session := store.StartUndoSession(true)
	defer session.RollbackUnlessClosed()

	err := f()
	if err != nil {
		return err
	}
	session.Squash()
	return nil
}
