package chaindb

import (
	"github.com/futurepia/futurepia-sub000/domain/chainconfig"
	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"github.com/futurepia/futurepia-sub000/domain/consensus/objectstore"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// shuffleMultiplier is the xorshift multiplier of the schedule shuffle.
const shuffleMultiplier uint64 = 2685821657736338717

// slotTime returns the start time of slot slotNum after the head block.
// Slot 0 has no time.
func (db *ChainDB) slotTime(slotNum uint32) int64 {
	if slotNum == 0 {
		return 0
	}
	interval := db.params.BlockInterval
	dgp := db.state.DynamicGlobalProperties()
	if dgp.HeadBlockNumber == 0 {
		return db.params.GenesisTime + int64(slotNum)*interval
	}
	headSlotTime := (dgp.Time / interval) * interval
	return headSlotTime + int64(slotNum)*interval
}

// slotAtTime returns the slot after the head block that contains when, or
// zero if when is not later than the first of them.
func (db *ChainDB) slotAtTime(when int64) uint32 {
	firstSlotTime := db.slotTime(1)
	if when < firstSlotTime {
		return 0
	}
	return uint32((when-firstSlotTime)/db.params.BlockInterval) + 1
}

// scheduledProducer returns the producer of slot slotNum after the head
// block.
func (db *ChainDB) scheduledProducer(slotNum uint32) string {
	dgp := db.state.DynamicGlobalProperties()
	schedule := db.state.ProducerSchedule()
	aslot := dgp.CurrentAslot + uint64(slotNum)
	return schedule.CurrentShuffledProducers[aslot%uint64(schedule.NumScheduledProducers)]
}

// participationRate returns the share of the last 128 slots that were
// filled, in basis points.
func (db *ChainDB) participationRate() uint32 {
	dgp := db.state.DynamicGlobalProperties()
	return chainconfig.OneHundredPercent * uint32(dgp.ParticipationCount) / model.SlotBitmapSize
}

// updateProducerSchedule picks the producers of the next round. It runs at
// every round boundary.
func (db *ChainDB) updateProducerSchedule() {
	dgp := db.state.DynamicGlobalProperties()
	if dgp.HeadBlockNumber%uint32(db.params.NumProducers) != 0 {
		return
	}

	var active []model.Producer
	db.state.ProducersByVotes.Ascend(func(_ objectstore.ID, producer model.Producer) bool {
		if producer.SigningKey.IsZero() {
			return true
		}
		active = append(active, producer)
		return len(active) < db.params.NumProducers
	})
	if len(active) == 0 {
		log.Warnf("No producer has a signing key at block %d, keeping the current schedule",
			dgp.HeadBlockNumber)
		return
	}

	names := make([]string, len(active))
	for i, producer := range active {
		names[i] = producer.Owner
	}
	shuffleProducers(names, dgp.Time)

	sizes := make([]uint32, len(active))
	for i, producer := range active {
		sizes[i] = producer.MaximumBlockSize
	}
	medianSize := quickselect(sizes, len(sizes)/2)

	majorityVersion := db.majorityVersion(active)

	db.state.ModifyProducerSchedule(func(schedule *model.ProducerSchedule) {
		schedule.CurrentShuffledProducers = names
		schedule.NumScheduledProducers = uint8(len(names))
		schedule.MedianMaximumBlockSize = medianSize
		schedule.MajorityVersion = majorityVersion
		schedule.NextShuffleBlockNum = dgp.HeadBlockNumber + uint32(db.params.NumProducers)
	})
	db.state.ModifyDynamicGlobalProperties(func(dgp *model.DynamicGlobalProperties) {
		dgp.MaximumBlockSize = medianSize
	})

	if db.params.HardforkRequiredProducers > 0 {
		db.tallyHardforkVotes(active)
	}
	log.Debugf("New producer schedule at block %d: %v", dgp.HeadBlockNumber, names)
}

// shuffleProducers shuffles names in place, seeded by the head block time,
// so that every node computes the same order.
func shuffleProducers(names []string, now int64) {
	seed := uint64(now) << 32
	n := uint64(len(names))
	for i := uint64(0); i < n; i++ {
		k := seed + i*shuffleMultiplier
		k ^= k >> 12
		k ^= k << 25
		k ^= k >> 27
		k *= shuffleMultiplier

		j := i + k%(n-i)
		names[i], names[j] = names[j], names[i]
	}
}

// majorityVersion returns the highest running version that more than half
// of the producers run at least.
func (db *ChainDB) majorityVersion(producers []model.Producer) model.Version {
	versions := make([]model.Version, len(producers))
	for i, producer := range producers {
		versions[i] = producer.RunningVersion
	}
	slices.SortFunc(versions, func(a, b model.Version) int {
		switch {
		case a > b:
			return -1
		case a < b:
			return 1
		}
		return 0
	})
	majority := len(versions)/2 + 1
	return versions[majority-1]
}

type hardforkVote struct {
	version model.Version
	time    int64
}

// tallyHardforkVotes sets the next hardfork to the first vote that enough
// scheduled producers agree on.
func (db *ChainDB) tallyHardforkVotes(producers []model.Producer) {
	tally := make(map[hardforkVote]int)
	for _, producer := range producers {
		tally[hardforkVote{version: producer.HardforkVersionVote, time: producer.HardforkTimeVote}]++
	}
	votes := maps.Keys(tally)
	slices.SortFunc(votes, func(a, b hardforkVote) int {
		switch {
		case a.version < b.version:
			return -1
		case a.version > b.version:
			return 1
		case a.time < b.time:
			return -1
		case a.time > b.time:
			return 1
		}
		return 0
	})

	hfp := db.state.HardforkProperties()
	next := hardforkVote{version: hfp.CurrentHardforkVersion, time: hfp.NextHardforkTime}
	for _, vote := range votes {
		if tally[vote] >= db.params.HardforkRequiredProducers {
			next = vote
			break
		}
	}
	db.state.ModifyHardforkProperties(func(hfp *model.HardforkProperties) {
		hfp.NextHardfork = next.version
		hfp.NextHardforkTime = next.time
	})
}

// quickselect returns the element that would be at position n if values
// were sorted ascending. It reorders values.
func quickselect(values []uint32, n int) uint32 {
	low, high := 0, len(values)-1
	for low < high {
		pivot := values[low+(high-low)/2]
		i, j := low, high
		for i <= j {
			for values[i] < pivot {
				i++
			}
			for values[j] > pivot {
				j--
			}
			if i <= j {
				values[i], values[j] = values[j], values[i]
				i++
				j--
			}
		}
		switch {
		case n <= j:
			high = j
		case n >= i:
			low = i
		default:
			return values[n]
		}
	}
	return values[n]
}
