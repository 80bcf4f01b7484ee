package app

import (
	"io/ioutil"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/futurepia/futurepia-sub000/domain/chaindb"
	"github.com/futurepia/futurepia-sub000/infrastructure/config"
)

func TestComponentManager(t *testing.T) {
	tmpDir, err := ioutil.TempDir("", "TestComponentManager")
	if err != nil {
		t.Fatalf("TestComponentManager: %s", err)
	}
	defer os.RemoveAll(tmpDir)

	params := chaindb.SimnetParamsForTest()
	cfg := &config.Config{
		Flags: &config.Flags{
			DataDir:       tmpDir,
			MetricsListen: "127.0.0.1:0",
			Producers:     params.GenesisProducers,
			NetworkFlags:  config.NetworkFlags{Simnet: true, ActiveNetParams: params},
		},
	}
	componentManager, err := NewComponentManager(cfg)
	if err != nil {
		t.Fatalf("TestComponentManager: %+v", err)
	}
	err = componentManager.Start()
	if err != nil {
		t.Fatalf("TestComponentManager: %+v", err)
	}

	response, err := http.Get("http://" + componentManager.metricsServer.address() + "/metrics")
	if err != nil {
		t.Fatalf("TestComponentManager: %s", err)
	}
	body, err := ioutil.ReadAll(response.Body)
	response.Body.Close()
	if err != nil {
		t.Fatalf("TestComponentManager: %s", err)
	}
	for _, metric := range []string{"chain_head_block_num", "go_goroutines"} {
		if !strings.Contains(string(body), metric) {
			t.Errorf("TestComponentManager: metric %s is not exported", metric)
		}
	}

	err = componentManager.Stop()
	if err != nil {
		t.Fatalf("TestComponentManager: %+v", err)
	}
	// Stopping twice is a no-op.
	err = componentManager.Stop()
	if err != nil {
		t.Fatalf("TestComponentManager: %+v", err)
	}

	// The chain state survives a restart.
	componentManager, err = NewComponentManager(cfg)
	if err != nil {
		t.Fatalf("TestComponentManager: reopening: %+v", err)
	}
	if componentManager.Chain().HeadBlockNum() != 0 {
		t.Fatalf("TestComponentManager: unexpected head %d", componentManager.Chain().HeadBlockNum())
	}
	err = componentManager.Stop()
	if err != nil {
		t.Fatalf("TestComponentManager: %+v", err)
	}
}

func TestNewComponentManagerUnknownProducer(t *testing.T) {
	tmpDir, err := ioutil.TempDir("", "TestNewComponentManagerUnknownProducer")
	if err != nil {
		t.Fatalf("TestNewComponentManagerUnknownProducer: %s", err)
	}
	defer os.RemoveAll(tmpDir)

	params := chaindb.SimnetParamsForTest()
	cfg := &config.Config{
		Flags: &config.Flags{
			DataDir:      tmpDir,
			Producers:    []string{"nobody"},
			NetworkFlags: config.NetworkFlags{Simnet: true, ActiveNetParams: params},
		},
	}
	_, err = NewComponentManager(cfg)
	if err == nil {
		t.Fatalf("TestNewComponentManagerUnknownProducer: expected an error")
	}

	// The chain database was closed, so it can be opened again.
	cfg.Producers = nil
	componentManager, err := NewComponentManager(cfg)
	if err != nil {
		t.Fatalf("TestNewComponentManagerUnknownProducer: %+v", err)
	}
	componentManager.Stop()
}
