package database

// DataAccessor is the read/write surface shared by a database and its
// transactions.
type DataAccessor interface {
	// Put sets the value for the given key, overwriting any previous
	// value.
	Put(key *Key, value []byte) error

	// Get returns the value for the given key, or ErrNotFound.
	Get(key *Key) ([]byte, error)

	// Has returns whether the given key exists.
	Has(key *Key) (bool, error)

	// Delete removes the given key. Missing keys are not an error.
	Delete(key *Key) error

	// Cursor begins a new cursor over the given bucket.
	Cursor(bucket *Bucket) (Cursor, error)
}

// Database is a key-value store supporting atomic batched transactions.
type Database interface {
	DataAccessor

	// Begin begins a new transaction. Writes become visible only on
	// Commit.
	Begin() (Transaction, error)

	// Compact compacts the whole key space.
	Compact() error

	// Close closes the database.
	Close() error
}

// Transaction is a batch of writes applied atomically on Commit. Reads
// observe the database as of Begin, not the transaction's own writes.
type Transaction interface {
	DataAccessor

	// Commit applies the transaction's writes.
	Commit() error

	// Rollback discards the transaction's writes.
	Rollback() error

	// RollbackUnlessClosed rolls the transaction back unless it was
	// already committed or rolled back. Meant to be deferred.
	RollbackUnlessClosed() error
}

// Cursor iterates over the keys of a bucket in lexicographical order.
type Cursor interface {
	// Next moves the cursor to the next entry, returning false when
	// exhausted.
	Next() bool

	// First moves the cursor to the first entry, returning false if
	// there is none.
	First() bool

	// Seek moves the cursor to the first entry whose key is equal to or
	// greater than key. It returns ErrNotFound if there is none.
	Seek(key *Key) error

	// Key returns the key of the current entry.
	Key() (*Key, error)

	// Value returns the value of the current entry.
	Value() ([]byte, error)

	// Close releases the cursor.
	Close() error
}
