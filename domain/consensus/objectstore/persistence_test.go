package objectstore

import (
	"os"
	"testing"

	"github.com/futurepia/futurepia-sub000/infrastructure/db/database/ldb"
)

func prepareDatabaseForTest(t *testing.T, testName string) (*ldb.LevelDB, func()) {
	path, err := os.MkdirTemp("", testName)
	if err != nil {
		t.Fatalf("%s: MkdirTemp unexpectedly failed: %s", testName, err)
	}
	db, err := ldb.NewLevelDB(path, 8)
	if err != nil {
		t.Fatalf("%s: NewLevelDB unexpectedly failed: %s", testName, err)
	}
	teardownFunc := func() {
		err = db.Close()
		if err != nil {
			t.Fatalf("%s: Close unexpectedly failed: %s", testName, err)
		}
		os.RemoveAll(path)
	}
	return db, teardownFunc
}

func TestFlushAndLoad(t *testing.T) {
	db, teardownFunc := prepareDatabaseForTest(t, "TestFlushAndLoad")
	defer teardownFunc()

	state := newTestState()
	state.create(t, "alice", 10)
	bob := state.create(t, "bob", 20)
	state.create(t, "carol", 30)
	if err := state.accounts.Remove(bob); err != nil {
		t.Fatalf("TestFlushAndLoad: Remove: %s", err)
	}
	if err := state.store.SetRevision(42); err != nil {
		t.Fatalf("TestFlushAndLoad: SetRevision: %s", err)
	}

	session := state.store.StartUndoSession(true)
	if err := state.store.Flush(db); err == nil {
		t.Fatalf("TestFlushAndLoad: Flush with undo history unexpectedly succeeded")
	}
	session.Rollback()

	if err := state.store.Flush(db); err != nil {
		t.Fatalf("TestFlushAndLoad: Flush: %s", err)
	}

	loaded := newTestState()
	found, err := loaded.store.Load(db)
	if err != nil {
		t.Fatalf("TestFlushAndLoad: Load: %s", err)
	}
	if !found {
		t.Fatalf("TestFlushAndLoad: snapshot not found")
	}
	if loaded.store.Revision() != 42 {
		t.Fatalf("TestFlushAndLoad: expected revision 42, got %d", loaded.store.Revision())
	}
	if !sameRows(snapshot(state), snapshot(loaded)) {
		t.Fatalf("TestFlushAndLoad: loaded rows differ from flushed rows")
	}
	if loaded.accounts.NextID() != 3 {
		t.Fatalf("TestFlushAndLoad: expected next id 3, got %d", loaded.accounts.NextID())
	}
	if loaded.balance(t, "carol") != 30 {
		t.Fatalf("TestFlushAndLoad: secondary index was not rebuilt")
	}

	if err := loaded.store.Wipe(db); err != nil {
		t.Fatalf("TestFlushAndLoad: Wipe: %s", err)
	}
	found, err = newTestState().store.Load(db)
	if err != nil {
		t.Fatalf("TestFlushAndLoad: Load after wipe: %s", err)
	}
	if found {
		t.Fatalf("TestFlushAndLoad: snapshot still present after wipe")
	}
}
