package objectstore

import (
	"encoding/binary"

	"github.com/futurepia/futurepia-sub000/infrastructure/db/database"
	"github.com/futurepia/futurepia-sub000/infrastructure/logger"
	"github.com/near/borsh-go"
	"github.com/pkg/errors"
)

var (
	objectsBucket = database.MakeBucket([]byte("objects"))
	rowsBucket    = objectsBucket.Bucket([]byte("rows"))
	nextIDBucket  = objectsBucket.Bucket([]byte("next-id"))
	revisionKey   = objectsBucket.Bucket([]byte("meta")).Key([]byte("revision"))
)

type storeTable interface {
	Name() string
	Len() int
	flush(accessor database.DataAccessor) error
	load(accessor database.DataAccessor) error
	reset()
}

func encodeID(id ID) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}

func decodeID(b []byte) (ID, error) {
	if len(b) != 8 {
		return 0, errors.Errorf("row id has length %d instead of 8", len(b))
	}
	return ID(binary.BigEndian.Uint64(b)), nil
}

func (t *Table[T]) flush(accessor database.DataAccessor) error {
	bucket := rowsBucket.Bucket([]byte(t.name))
	for id, row := range t.rows {
		serialized, err := borsh.Serialize(row)
		if err != nil {
			return errors.Wrapf(err, "failed serializing row %d of table %s", id, t.name)
		}
		err = accessor.Put(bucket.Key(encodeID(id)), serialized)
		if err != nil {
			return err
		}
	}
	return accessor.Put(nextIDBucket.Key([]byte(t.name)), encodeID(t.nextID))
}

func (t *Table[T]) load(accessor database.DataAccessor) error {
	t.reset()

	cursor, err := accessor.Cursor(rowsBucket.Bucket([]byte(t.name)))
	if err != nil {
		return err
	}
	defer cursor.Close()

	for cursor.Next() {
		key, err := cursor.Key()
		if err != nil {
			return err
		}
		id, err := decodeID(key.Suffix())
		if err != nil {
			return errors.Wrapf(err, "table %s", t.name)
		}
		value, err := cursor.Value()
		if err != nil {
			return err
		}
		var row T
		err = borsh.Deserialize(&row, value)
		if err != nil {
			return errors.Wrapf(err, "failed deserializing row %d of table %s", id, t.name)
		}
		t.insert(id, row)
	}

	nextID, err := accessor.Get(nextIDBucket.Key([]byte(t.name)))
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil
		}
		return err
	}
	t.nextID, err = decodeID(nextID)
	return err
}

func deleteBucket(dbTx database.Transaction, bucket *database.Bucket) error {
	cursor, err := dbTx.Cursor(bucket)
	if err != nil {
		return err
	}
	defer cursor.Close()

	for cursor.Next() {
		key, err := cursor.Key()
		if err != nil {
			return err
		}
		err = dbTx.Delete(key)
		if err != nil {
			return err
		}
	}
	return nil
}

// Flush replaces the snapshot in db with the current state of the store.
// The store must have no undo history: only committed state is written.
func (s *Store) Flush(db database.Database) error {
	onEnd := logger.LogAndMeasureExecutionTime(log, "objectstore.Flush")
	defer onEnd()

	if len(s.stack) != 0 {
		return errors.Errorf("cannot flush a store with %d undo states", len(s.stack))
	}

	dbTx, err := db.Begin()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	err = deleteBucket(dbTx, objectsBucket)
	if err != nil {
		return err
	}
	for _, table := range s.tables {
		err = table.flush(dbTx)
		if err != nil {
			return err
		}
	}
	err = dbTx.Put(revisionKey, encodeID(ID(s.revision)))
	if err != nil {
		return err
	}
	err = dbTx.Commit()
	if err != nil {
		return err
	}
	log.Debugf("Flushed %d tables at revision %d", len(s.tables), s.revision)
	return nil
}

// Load replaces the state of the store with the snapshot in db. It returns
// false, leaving the store empty, if db holds no snapshot.
func (s *Store) Load(db database.Database) (bool, error) {
	onEnd := logger.LogAndMeasureExecutionTime(log, "objectstore.Load")
	defer onEnd()

	s.stack = nil
	s.revision = 0
	for _, table := range s.tables {
		table.reset()
	}

	revision, err := db.Get(revisionKey)
	if err != nil {
		if database.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	decodedRevision, err := decodeID(revision)
	if err != nil {
		return false, err
	}

	for _, table := range s.tables {
		err = table.load(db)
		if err != nil {
			return false, err
		}
		log.Debugf("Loaded %d rows of table %s", table.Len(), table.Name())
	}
	s.revision = int64(decodedRevision)
	return true, nil
}

// Wipe empties the store and deletes its snapshot from db.
func (s *Store) Wipe(db database.Database) error {
	s.stack = nil
	s.revision = 0
	for _, table := range s.tables {
		table.reset()
	}

	dbTx, err := db.Begin()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	err = deleteBucket(dbTx, objectsBucket)
	if err != nil {
		return err
	}
	return dbTx.Commit()
}
