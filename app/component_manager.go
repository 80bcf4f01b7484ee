package app

import (
	"sync/atomic"

	"github.com/futurepia/futurepia-sub000/domain/chaindb"
	"github.com/futurepia/futurepia-sub000/infrastructure/config"
	"github.com/futurepia/futurepia-sub000/infrastructure/os/signal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ComponentManager is a wrapper for all the chaind services
type ComponentManager struct {
	cfg           *config.Config
	chain         *chaindb.ChainDB
	producer      *blockProducer
	metricsServer *metricsServer

	started, shutdown int32
}

// Start launches all the chaind services.
func (a *ComponentManager) Start() error {
	// Already started?
	if atomic.AddInt32(&a.started, 1) != 1 {
		return nil
	}

	log.Trace("Starting chaind")

	if a.metricsServer != nil {
		err := a.metricsServer.start()
		if err != nil {
			return err
		}
	}
	if a.producer != nil {
		a.producer.start()
	}
	return nil
}

// Stop gracefully shuts down all the chaind services.
func (a *ComponentManager) Stop() error {
	// Make sure this only happens once.
	if atomic.AddInt32(&a.shutdown, 1) != 1 {
		log.Infof("Chaind is already in the process of shutting down")
		return nil
	}

	log.Warnf("Chaind shutting down")

	if a.producer != nil {
		a.producer.stop()
	}
	if a.metricsServer != nil {
		err := a.metricsServer.stop()
		if err != nil {
			log.Errorf("Error stopping the metrics server: %+v", err)
		}
	}

	return a.chain.Close()
}

// Chain returns the chain database of the node.
func (a *ComponentManager) Chain() *chaindb.ChainDB {
	return a.chain
}

// NewComponentManager returns a new ComponentManager instance.
// Use Start() to begin all services within this ComponentManager
func NewComponentManager(cfg *config.Config) (*ComponentManager, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	chain, err := chaindb.New(&chaindb.Config{
		Params:                 cfg.NetParams(),
		DataDir:                cfg.DataDir,
		DatabaseCacheSizeMiB:   cfg.DatabaseCacheSizeMiB,
		MetricsRegisterer:      registry,
		Replay:                 cfg.Replay,
		SkipInvariants:         cfg.SkipInvariants,
		MaxPendingTransactions: cfg.MaxPendingTransactions,
	})
	if err != nil {
		return nil, err
	}
	chain.Subscribe(logNotification)

	log.Infof("Chain head is block %d (%s), last irreversible block is %d",
		chain.HeadBlockNum(), chain.HeadBlockID(), chain.LastIrreversibleBlockNum())

	var producer *blockProducer
	if len(cfg.Producers) > 0 {
		producer, err = newBlockProducer(cfg, chain, signal.RequestShutdown)
		if err != nil {
			chain.Close()
			return nil, err
		}
	}

	var server *metricsServer
	if cfg.MetricsListen != "" {
		server = newMetricsServer(cfg.MetricsListen, registry)
	}

	return &ComponentManager{
		cfg:           cfg,
		chain:         chain,
		producer:      producer,
		metricsServer: server,
	}, nil
}

// logNotification runs with the chain lock held, so it only logs.
func logNotification(notification *chaindb.Notification) {
	switch data := notification.Data.(type) {
	case *chaindb.BlockAppliedNotificationData:
		log.Debugf("Applied block %d (%s) produced by %s with %d transactions",
			data.Block.Num(), data.Block.ID(), data.Block.Producer, len(data.Block.Transactions))
	case *chaindb.IrreversibleBlockNotificationData:
		log.Tracef("Block %d is irreversible", data.Block.Num())
	case *chaindb.ForkSwitchedNotificationData:
		log.Infof("Switched fork from %s to %s, popping %d blocks", data.OldHead, data.NewHead, data.PoppedBlocks)
	case *chaindb.ProducerShutdownNotificationData:
		log.Warnf("Producer %s was shut down at block %d for missing blocks", data.Producer, data.BlockNum)
	case *chaindb.HardforkAppliedNotificationData:
		log.Infof("Hardfork %d applied, consensus version is now %s", data.Hardfork, data.Version)
	}
}
