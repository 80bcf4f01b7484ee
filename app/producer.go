package app

import (
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/futurepia/futurepia-sub000/domain/chaindb"
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/signing"
	"github.com/futurepia/futurepia-sub000/infrastructure/config"
	"github.com/pkg/errors"
)

// maxProductionLag is how far from its slot time a block may still be
// produced.
const maxProductionLag = 500 * time.Millisecond

type productionCondition int

const (
	produced productionCondition = iota
	notSynced
	notMyTurn
	notTimeYet
	noPrivateKey
	lowParticipation
	lag
	exceptionProducing
)

var productionConditionStrings = map[productionCondition]string{
	produced:           "produced",
	notSynced:          "not synced",
	notMyTurn:          "not my turn",
	notTimeYet:         "not time yet",
	noPrivateKey:       "no private key",
	lowParticipation:   "low participation",
	lag:                "lag",
	exceptionProducing: "exception producing",
}

func (c productionCondition) String() string {
	return productionConditionStrings[c]
}

// blockProducer generates the blocks of the configured producers when
// their slots come up.
type blockProducer struct {
	chain                 *chaindb.ChainDB
	producers             map[string]struct{}
	signingKey            *btcec.PrivateKey
	requiredParticipation uint32
	productionEnabled     bool
	onHalt                func()

	timerLock sync.Mutex
	timer     *time.Timer
	stopped   bool
	wg        sync.WaitGroup
}

func newBlockProducer(cfg *config.Config, chain *chaindb.ChainDB, onHalt func()) (*blockProducer, error) {
	producers := make(map[string]struct{}, len(cfg.Producers))
	for _, name := range cfg.Producers {
		_, ok := chain.Producer(name)
		if !ok {
			return nil, errors.Errorf("producer %s does not exist", name)
		}
		producers[name] = struct{}{}
	}
	return &blockProducer{
		chain:                 chain,
		producers:             producers,
		signingKey:            cfg.SigningKey,
		requiredParticipation: cfg.RequiredParticipation,
		productionEnabled:     cfg.EnableProduction,
		onHalt:                onHalt,
	}, nil
}

func (p *blockProducer) start() {
	log.Infof("Producing blocks for %d producers", len(p.producers))
	p.scheduleProductionLoop()
}

func (p *blockProducer) stop() {
	p.timerLock.Lock()
	p.stopped = true
	if p.timer != nil && p.timer.Stop() {
		p.wg.Done()
	}
	p.timerLock.Unlock()
	p.wg.Wait()
}

func (p *blockProducer) scheduleProductionLoop() {
	p.timerLock.Lock()
	defer p.timerLock.Unlock()

	if p.stopped {
		return
	}
	p.wg.Add(1)
	p.timer = spawnAfter("blockProducer.productionLoop", untilNextAttempt(time.Now()), p.productionLoop)
}

func (p *blockProducer) productionLoop() {
	defer p.wg.Done()

	condition, err := p.maybeProduceBlock(time.Now())
	switch condition {
	case produced:
		log.Infof("Generated block %d with timestamp %d", p.chain.HeadBlockNum(), p.chain.HeadBlockTime())
	case notSynced:
		log.Debugf("Not producing block because production is disabled until we receive a recent block")
	case lowParticipation:
		log.Warnf("Not producing block because node appears to be on a minority fork with only %d "+
			"participation", p.chain.ProducerParticipationRate())
	case lag:
		log.Warnf("Not producing block because node didn't wake up within %s of the slot time", maxProductionLag)
	case noPrivateKey:
		log.Warnf("Not producing block because I don't have the private key of the scheduled producer")
	case exceptionProducing:
		log.Errorf("Error producing block: %+v", err)
		if p.chain.Halted() != nil {
			log.Criticalf("Chain halted, shutting down: %s", p.chain.Halted())
			p.onHalt()
			return
		}
	}

	p.scheduleProductionLoop()
}

// untilNextAttempt returns the time left until the next production
// attempt. Attempts happen on whole seconds, skipping one that is too
// close.
func untilNextAttempt(now time.Time) time.Duration {
	untilNextSecond := time.Second - time.Duration(now.Nanosecond())
	if untilNextSecond < 50*time.Millisecond {
		untilNextSecond += time.Second
	}
	return untilNextSecond
}

func (p *blockProducer) maybeProduceBlock(now time.Time) (productionCondition, error) {
	nowSeconds := now.Add(maxProductionLag).Unix()

	// Start producing once the chain is fresh, so that a node catching up
	// does not fork off on its own.
	if !p.productionEnabled {
		if p.chain.SlotTime(1) >= nowSeconds {
			p.productionEnabled = true
		} else {
			return notSynced, nil
		}
	}

	slot := p.chain.SlotAtTime(nowSeconds)
	if slot == 0 {
		return notTimeYet, nil
	}

	scheduled := p.chain.ScheduledProducer(slot)
	if _, ok := p.producers[scheduled]; !ok {
		return notMyTurn, nil
	}

	producer, ok := p.chain.Producer(scheduled)
	if !ok {
		return exceptionProducing, errors.Errorf("scheduled producer %s does not exist", scheduled)
	}
	signingKey := p.signingKeyOf(scheduled)
	if producer.SigningKey.IsZero() || signing.PublicKey(signingKey) != producer.SigningKey {
		return noPrivateKey, nil
	}

	// Participation is measured over the last model.SlotBitmapSize slots,
	// which a young chain does not have yet.
	if p.chain.HeadBlockNum() >= model.SlotBitmapSize &&
		p.chain.ProducerParticipationRate() < p.requiredParticipation {

		return lowParticipation, nil
	}

	scheduledTime := time.Unix(p.chain.SlotTime(slot), 0)
	if difference := scheduledTime.Sub(now); difference > maxProductionLag || difference < -maxProductionLag {
		return lag, nil
	}

	_, err := p.chain.GenerateBlock(scheduledTime.Unix(), scheduled, signingKey, chaindb.BFNone)
	if err != nil {
		return exceptionProducing, err
	}
	return produced, nil
}

// signingKeyOf returns the configured key, or the genesis key of name when
// no key was configured.
func (p *blockProducer) signingKeyOf(name string) *btcec.PrivateKey {
	if p.signingKey != nil {
		return p.signingKey
	}
	return chaindb.GenesisKey(p.chain.Params(), name)
}
