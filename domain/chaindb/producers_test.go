package chaindb

import (
	"sort"
	"testing"

	"github.com/futurepia/futurepia-sub000/domain/consensus/model"
	"pgregory.net/rapid"
)

func TestQuickselect(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		values := rapid.SliceOfN(rapid.Uint32Range(0, 50), 1, 40).Draw(t, "values")
		n := rapid.IntRange(0, len(values)-1).Draw(t, "n")

		sorted := append([]uint32(nil), values...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		got := quickselect(append([]uint32(nil), values...), n)
		if got != sorted[n] {
			t.Fatalf("quickselect(%v, %d) = %d, want %d", values, n, got, sorted[n])
		}
	})
}

func TestShuffleProducers(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(1, 30).Draw(t, "count")
		now := rapid.Int64Range(0, 1<<40).Draw(t, "now")
		names := make([]string, count)
		for i := range names {
			names[i] = string(rune('a'+i%26)) + string(rune('a'+i/26))
		}

		first := append([]string(nil), names...)
		shuffleProducers(first, now)
		second := append([]string(nil), names...)
		shuffleProducers(second, now)

		seen := make(map[string]bool, count)
		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("shuffle is not deterministic: %v and %v", first, second)
			}
			seen[first[i]] = true
		}
		if len(seen) != count {
			t.Fatalf("shuffle of %v is not a permutation: %v", names, first)
		}
	})
}

func TestUpdateProducerSchedule(t *testing.T) {
	params := SimnetParamsForTest()
	db, teardown := newTestChain(t, "TestUpdateProducerSchedule", params)
	defer teardown()

	generateBlocks(t, "TestUpdateProducerSchedule", db, params.NumProducers-1)
	before := db.ProducerSchedule()
	generateBlocks(t, "TestUpdateProducerSchedule", db, 1)
	after := db.ProducerSchedule()

	if after.NextShuffleBlockNum != uint32(2*params.NumProducers) {
		t.Fatalf("TestUpdateProducerSchedule: next shuffle at block %d, want %d",
			after.NextShuffleBlockNum, 2*params.NumProducers)
	}
	if int(after.NumScheduledProducers) != params.NumProducers {
		t.Fatalf("TestUpdateProducerSchedule: %d scheduled producers, want %d",
			after.NumScheduledProducers, params.NumProducers)
	}
	if after.MedianMaximumBlockSize != params.InitialMaximumBlockSize {
		t.Fatalf("TestUpdateProducerSchedule: median block size %d, want %d",
			after.MedianMaximumBlockSize, params.InitialMaximumBlockSize)
	}
	if after.MajorityVersion != params.BlockchainVersion {
		t.Fatalf("TestUpdateProducerSchedule: majority version %s, want %s",
			after.MajorityVersion, params.BlockchainVersion)
	}
	sortedBefore := append([]string(nil), before.CurrentShuffledProducers...)
	sortedAfter := append([]string(nil), after.CurrentShuffledProducers...)
	sort.Strings(sortedBefore)
	sort.Strings(sortedAfter)
	for i := range sortedBefore {
		if sortedBefore[i] != sortedAfter[i] {
			t.Fatalf("TestUpdateProducerSchedule: the new schedule has different producers: %v", sortedAfter)
		}
	}
}

func TestMajorityVersion(t *testing.T) {
	db := &ChainDB{}
	v1 := model.NewVersion(0, 1, 0)
	v2 := model.NewVersion(0, 2, 0)
	v3 := model.NewVersion(0, 3, 0)
	tests := []struct {
		versions []model.Version
		expected model.Version
	}{
		{versions: []model.Version{v1}, expected: v1},
		{versions: []model.Version{v1, v2, v3}, expected: v2},
		{versions: []model.Version{v3, v3, v1}, expected: v3},
		{versions: []model.Version{v1, v1, v3, v3}, expected: v1},
	}
	for i, test := range tests {
		producers := make([]model.Producer, len(test.versions))
		for j, version := range test.versions {
			producers[j].RunningVersion = version
		}
		got := db.majorityVersion(producers)
		if got != test.expected {
			t.Errorf("TestMajorityVersion: test %d: got %s, want %s", i, got, test.expected)
		}
	}
}

func TestProducerShutdown(t *testing.T) {
	params := SimnetParamsForTest()
	db, teardown := newTestChain(t, "TestProducerShutdown", params)
	defer teardown()

	victim := params.GenesisProducers[7]
	var shutdowns []*ProducerShutdownNotificationData
	db.Subscribe(func(n *Notification) {
		if n.Type == NTProducerShutdown {
			shutdowns = append(shutdowns, n.Data.(*ProducerShutdownNotificationData))
		}
	})

	target := params.BlocksPerDay + uint32(3*params.NumProducers)
	for db.HeadBlockNum() < target {
		slot := uint32(1)
		for db.ScheduledProducer(slot) == victim {
			slot++
		}
		_, err := GenerateBlockForTest(db, slot)
		if err != nil {
			t.Fatalf("TestProducerShutdown: at block %d: %+v", db.HeadBlockNum(), err)
		}
	}

	if len(shutdowns) != 1 {
		t.Fatalf("TestProducerShutdown: got %d shutdown notifications, want 1", len(shutdowns))
	}
	if shutdowns[0].Producer != victim || shutdowns[0].BlockNum <= params.BlocksPerDay {
		t.Fatalf("TestProducerShutdown: unexpected shutdown notification %+v", shutdowns[0])
	}
	producer, _ := db.Producer(victim)
	if !producer.SigningKey.IsZero() {
		t.Fatalf("TestProducerShutdown: producer %s still has a signing key", victim)
	}
	if producer.TotalMissed == 0 {
		t.Fatalf("TestProducerShutdown: producer %s has no missed blocks", victim)
	}
	schedule := db.ProducerSchedule()
	for _, name := range schedule.CurrentShuffledProducers[:schedule.NumScheduledProducers] {
		if name == victim {
			t.Fatalf("TestProducerShutdown: producer %s is still scheduled", victim)
		}
	}
	if int(schedule.NumScheduledProducers) != params.NumProducers-1 {
		t.Fatalf("TestProducerShutdown: %d scheduled producers, want %d",
			schedule.NumScheduledProducers, params.NumProducers-1)
	}
}
