package app

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func TestPrepareDataDir(t *testing.T) {
	tmpDir, err := ioutil.TempDir("", "TestPrepareDataDir")
	if err != nil {
		t.Fatalf("TestPrepareDataDir: %s", err)
	}
	defer os.RemoveAll(tmpDir)
	dataDir := filepath.Join(tmpDir, "simnet")

	err = prepareDataDir(dataDir)
	if err != nil {
		t.Fatalf("TestPrepareDataDir: fresh data directory: %+v", err)
	}
	exists, err := checkDataDirVersion(dataDir)
	if err != nil || !exists {
		t.Fatalf("TestPrepareDataDir: version file was not written (%v)", err)
	}
	err = prepareDataDir(dataDir)
	if err != nil {
		t.Fatalf("TestPrepareDataDir: reopening: %+v", err)
	}

	for _, content := range []string{"2", "garbage"} {
		err = ioutil.WriteFile(versionFilePath(dataDir), []byte(content), 0600)
		if err != nil {
			t.Fatalf("TestPrepareDataDir: %s", err)
		}
		err = prepareDataDir(dataDir)
		if err == nil {
			t.Errorf("TestPrepareDataDir: expected an error for version file %q", content)
		}
	}
}
