// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chaindb

import (
	"path/filepath"
	"sync"

	"github.com/futurepia/futurepia-sub000/domain/chainconfig"
	"github.com/futurepia/futurepia-sub000/domain/consensus/authority"
	"github.com/futurepia/futurepia-sub000/domain/consensus/blocklog"
	"github.com/futurepia/futurepia-sub000/domain/consensus/evaluators"
	"github.com/futurepia/futurepia-sub000/domain/consensus/forkdb"
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/objectstore"
	"github.com/futurepia/futurepia-sub000/domain/consensus/ruleerrors"
	"github.com/futurepia/futurepia-sub000/domain/consensus/state"
	"github.com/futurepia/futurepia-sub000/infrastructure/db/database"
	"github.com/futurepia/futurepia-sub000/infrastructure/db/database/ldb"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	stateDirectoryName    = "state"
	blockLogDirectoryName = "blocklog"

	defaultDatabaseCacheSizeMiB = 64
)

// ErrPendingLimit is returned by PushTransaction when the pending
// transactions are full.
var ErrPendingLimit = errors.New("too many pending transactions")

// Config is a descriptor which specifies the chain instance configuration.
type Config struct {
	// Params identifies which chain parameters the chain is associated
	// with.
	//
	// This field is required.
	Params *chainconfig.Params

	// DataDir is the directory holding the state database and the block
	// log.
	//
	// This field is required.
	DataDir string

	// DatabaseCacheSizeMiB is the size of the state database cache. Zero
	// selects a default.
	DatabaseCacheSizeMiB int

	// Evaluators dispatches operations. Nil selects every evaluator of
	// this chain.
	Evaluators *evaluators.Registry

	// MetricsRegisterer receives the chain metrics. Nil registers them
	// with a private registry.
	MetricsRegisterer prometheus.Registerer

	// Replay rebuilds the chain state from the block log instead of
	// loading the state snapshot.
	Replay bool

	// SkipInvariants disables the invariants check after every block.
	SkipInvariants bool

	// MaxPendingTransactions bounds the pending transactions. Zero means
	// no bound.
	MaxPendingTransactions int
}

// ChainDB turns a stream of candidate blocks into one canonical chain
// state. It resolves forks, applies blocks and transactions, keeps undo
// history back to the last irreversible block and writes irreversible
// blocks to the block log.
type ChainDB struct {
	cfg    *Config
	params *chainconfig.Params

	// lock protects everything below. Mutations take it for writing and
	// queries for reading.
	lock sync.RWMutex

	state      *state.ChainState
	forkDB     *forkdb.ForkDB
	blockLog   *blocklog.BlockLog
	databaseDB database.Database
	evaluators *evaluators.Registry
	lookup     authority.Lookup

	pendingSession      *objectstore.Session
	pendingTransactions []*model.SignedTransaction
	poppedTransactions  []*model.SignedTransaction

	currentBlockNum           uint32
	currentTransactionInBlock uint32

	// irreversibleBlockNum is the newest block written to the block log and
	// committed in the store. It lives outside the undoable state, so
	// popping blocks never takes it back.
	irreversibleBlockNum uint32

	notificationsLock   sync.RWMutex
	notifications       []NotificationCallback
	queuedNotifications []Notification

	metrics *chainMetrics

	// haltErr is the fatal error that stopped block processing, if any.
	haltErr error
	closed  bool
}

// New returns a ChainDB opened on cfg.DataDir. The chain state is loaded
// from its snapshot, or rebuilt from the block log when the snapshot is
// missing or does not match the log.
func New(cfg *Config) (*ChainDB, error) {
	if cfg.Params == nil {
		return nil, errors.New("chain config must specify chain params")
	}
	err := cfg.Params.Validate()
	if err != nil {
		return nil, err
	}

	registry := cfg.Evaluators
	if registry == nil {
		registry = evaluators.NewDefaultRegistry()
	}
	registerer := cfg.MetricsRegisterer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	metrics, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}

	cacheSize := cfg.DatabaseCacheSizeMiB
	if cacheSize == 0 {
		cacheSize = defaultDatabaseCacheSizeMiB
	}
	databaseDB, err := ldb.NewLevelDB(filepath.Join(cfg.DataDir, stateDirectoryName), cacheSize)
	if err != nil {
		return nil, err
	}
	blockLog, err := blocklog.Open(filepath.Join(cfg.DataDir, blockLogDirectoryName))
	if err != nil {
		databaseDB.Close()
		return nil, err
	}

	chainState := state.New()
	db := &ChainDB{
		cfg:        cfg,
		params:     cfg.Params,
		state:      chainState,
		forkDB:     forkdb.New(),
		blockLog:   blockLog,
		databaseDB: databaseDB,
		evaluators: registry,
		lookup:     authority.NewStateLookup(chainState),
		metrics:    metrics,
	}
	err = db.open()
	if err != nil {
		blockLog.Close()
		databaseDB.Close()
		return nil, err
	}
	db.updateHeadMetrics()
	return db, nil
}

// Close rolls back the pending transactions and every reversible block,
// stashes the reversible blocks, and writes the state snapshot.
func (db *ChainDB) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.closed {
		return errors.New("chain database is already closed")
	}
	db.closed = true

	err := db.saveState()
	blockLogErr := db.blockLog.Close()
	databaseErr := db.databaseDB.Close()
	switch {
	case err != nil:
		return err
	case blockLogErr != nil:
		return blockLogErr
	default:
		return databaseErr
	}
}

// Halted returns the fatal error that stopped block processing, or nil.
func (db *ChainDB) Halted() error {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.haltErr
}

// checkHalted must be called with the chain lock held.
func (db *ChainDB) checkHalted() error {
	if db.closed {
		return errors.New("chain database is closed")
	}
	if db.haltErr != nil {
		return errors.Wrapf(ruleerrors.ErrChainHalted, "%s", db.haltErr)
	}
	return nil
}

// haltOnFatal stops block processing if err is fatal.
func (db *ChainDB) haltOnFatal(err error) {
	if err == nil || !ruleerrors.IsFatal(err) || db.haltErr != nil {
		return
	}
	db.haltErr = err
	log.Criticalf("Block processing halted: %+v", err)
}

// Params returns the chain parameters.
func (db *ChainDB) Params() *chainconfig.Params {
	return db.params
}
