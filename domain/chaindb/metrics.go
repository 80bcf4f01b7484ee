package chaindb

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

type chainMetrics struct {
	headBlockNum          prometheus.Gauge
	lastIrreversibleBlock prometheus.Gauge
	participationRate     prometheus.Gauge
	pendingTransactions   prometheus.Gauge

	blocksPushed     prometheus.Counter
	blocksRejected   prometheus.Counter
	forkSwitches     prometheus.Counter
	txsAccepted      prometheus.Counter
	txsRejected      prometheus.Counter
	blocksGenerated  prometheus.Counter
	hardforksApplied prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer) (*chainMetrics, error) {
	m := &chainMetrics{
		headBlockNum: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chain",
			Name:      "head_block_num",
			Help:      "number of the head block",
		}),
		lastIrreversibleBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chain",
			Name:      "last_irreversible_block_num",
			Help:      "number of the last irreversible block",
		}),
		participationRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chain",
			Name:      "participation_rate",
			Help:      "share of the last 128 slots that were filled, in basis points",
		}),
		pendingTransactions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chain",
			Name:      "pending_transactions",
			Help:      "number of transactions waiting to be included in a block",
		}),
		blocksPushed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chain",
			Name:      "blocks_pushed",
			Help:      "number of blocks accepted by push block",
		}),
		blocksRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chain",
			Name:      "blocks_rejected",
			Help:      "number of blocks rejected by push block",
		}),
		forkSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chain",
			Name:      "fork_switches",
			Help:      "number of times the head moved to another branch",
		}),
		txsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chain",
			Name:      "txs_accepted",
			Help:      "number of transactions accepted into the pending transactions",
		}),
		txsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chain",
			Name:      "txs_rejected",
			Help:      "number of transactions rejected by push transaction",
		}),
		blocksGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chain",
			Name:      "blocks_generated",
			Help:      "number of blocks produced locally",
		}),
		hardforksApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chain",
			Name:      "hardforks_applied",
			Help:      "number of hardforks applied",
		}),
	}
	for _, collector := range []prometheus.Collector{
		m.headBlockNum,
		m.lastIrreversibleBlock,
		m.participationRate,
		m.pendingTransactions,
		m.blocksPushed,
		m.blocksRejected,
		m.forkSwitches,
		m.txsAccepted,
		m.txsRejected,
		m.blocksGenerated,
		m.hardforksApplied,
	} {
		err := registerer.Register(collector)
		if err != nil {
			return nil, errors.Wrap(err, "registering chain metrics")
		}
	}
	return m, nil
}

// updateHeadMetrics must be called with the chain lock held.
func (db *ChainDB) updateHeadMetrics() {
	dgp := db.state.DynamicGlobalProperties()
	db.metrics.headBlockNum.Set(float64(dgp.HeadBlockNumber))
	db.metrics.lastIrreversibleBlock.Set(float64(db.lastIrreversibleBlockNum()))
	db.metrics.participationRate.Set(float64(db.participationRate()))
	db.metrics.pendingTransactions.Set(float64(len(db.pendingTransactions)))
}
