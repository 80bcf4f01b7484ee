package ldb

import (
	"fmt"
	"testing"

	"github.com/futurepia/futurepia-sub000/infrastructure/db/database"
)

func prepareDatabaseForTest(t *testing.T, testName string) (ldb *LevelDB, teardownFunc func()) {
	path := t.TempDir()
	ldb, err := NewLevelDB(path, 8)
	if err != nil {
		t.Fatalf("%s: NewLevelDB unexpectedly failed: %s", testName, err)
	}
	teardownFunc = func() {
		err = ldb.Close()
		if err != nil {
			t.Fatalf("%s: Close unexpectedly failed: %s", testName, err)
		}
	}
	return ldb, teardownFunc
}

func TestLevelDBSanity(t *testing.T) {
	ldb, teardownFunc := prepareDatabaseForTest(t, "TestLevelDBSanity")
	defer teardownFunc()

	key := database.MakeBucket([]byte("objects")).Key([]byte("key"))
	if _, err := ldb.Get(key); !database.IsNotFoundError(err) {
		t.Fatalf("TestLevelDBSanity: Get of a missing key returned %v, want ErrNotFound", err)
	}
	if err := ldb.Put(key, []byte("value")); err != nil {
		t.Fatalf("TestLevelDBSanity: Put unexpectedly failed: %s", err)
	}
	value, err := ldb.Get(key)
	if err != nil {
		t.Fatalf("TestLevelDBSanity: Get unexpectedly failed: %s", err)
	}
	if string(value) != "value" {
		t.Fatalf("TestLevelDBSanity: Get returned %q, want %q", value, "value")
	}
	if err := ldb.Delete(key); err != nil {
		t.Fatalf("TestLevelDBSanity: Delete unexpectedly failed: %s", err)
	}
	exists, err := ldb.Has(key)
	if err != nil {
		t.Fatalf("TestLevelDBSanity: Has unexpectedly failed: %s", err)
	}
	if exists {
		t.Fatalf("TestLevelDBSanity: key still exists after Delete")
	}
}

func TestTransactionCommitAndRollback(t *testing.T) {
	ldb, teardownFunc := prepareDatabaseForTest(t, "TestTransactionCommitAndRollback")
	defer teardownFunc()

	bucket := database.MakeBucket([]byte("tx"))
	rolledBack, err := ldb.Begin()
	if err != nil {
		t.Fatalf("TestTransactionCommitAndRollback: Begin unexpectedly failed: %s", err)
	}
	if err := rolledBack.Put(bucket.Key([]byte("a")), []byte("1")); err != nil {
		t.Fatalf("TestTransactionCommitAndRollback: Put unexpectedly failed: %s", err)
	}
	if err := rolledBack.RollbackUnlessClosed(); err != nil {
		t.Fatalf("TestTransactionCommitAndRollback: RollbackUnlessClosed unexpectedly failed: %s", err)
	}
	if exists, _ := ldb.Has(bucket.Key([]byte("a"))); exists {
		t.Fatalf("TestTransactionCommitAndRollback: rolled back write is visible")
	}

	committed, err := ldb.Begin()
	if err != nil {
		t.Fatalf("TestTransactionCommitAndRollback: Begin unexpectedly failed: %s", err)
	}
	defer committed.RollbackUnlessClosed()
	for i := 0; i < 3; i++ {
		if err := committed.Put(bucket.Key([]byte(fmt.Sprintf("key%d", i))), []byte{byte(i)}); err != nil {
			t.Fatalf("TestTransactionCommitAndRollback: Put unexpectedly failed: %s", err)
		}
	}
	if err := committed.Commit(); err != nil {
		t.Fatalf("TestTransactionCommitAndRollback: Commit unexpectedly failed: %s", err)
	}
	if err := committed.Commit(); err == nil {
		t.Fatalf("TestTransactionCommitAndRollback: second Commit unexpectedly succeeded")
	}

	cursor, err := ldb.Cursor(bucket)
	if err != nil {
		t.Fatalf("TestTransactionCommitAndRollback: Cursor unexpectedly failed: %s", err)
	}
	defer cursor.Close()
	count := 0
	for ok := cursor.First(); ok; ok = cursor.Next() {
		key, err := cursor.Key()
		if err != nil {
			t.Fatalf("TestTransactionCommitAndRollback: Key unexpectedly failed: %s", err)
		}
		if want := fmt.Sprintf("key%d", count); string(key.Suffix()) != want {
			t.Fatalf("TestTransactionCommitAndRollback: cursor key %q, want %q", key.Suffix(), want)
		}
		count++
	}
	if count != 3 {
		t.Fatalf("TestTransactionCommitAndRollback: cursor visited %d keys, want 3", count)
	}
}
