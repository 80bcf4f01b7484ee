package app

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// currentDataDirVersion is bumped whenever the state database or the block
// log change their layout.
const currentDataDirVersion = 1

const versionFileName = "version"

// prepareDataDir creates dataDir on first use and otherwise makes sure it
// was written by a compatible chaind.
func prepareDataDir(dataDir string) error {
	err := os.MkdirAll(dataDir, 0700)
	if err != nil {
		return errors.Wrapf(err, "failed creating data directory %s", dataDir)
	}

	exists, err := checkDataDirVersion(dataDir)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return createDataDirVersionFile(dataDir)
}

func checkDataDirVersion(dataDir string) (doesVersionFileExist bool, err error) {
	versionBytes, err := os.ReadFile(versionFilePath(dataDir))
	if err != nil {
		// A missing version file means a fresh data directory.
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}

	dataDirVersion, err := strconv.Atoi(strings.TrimSpace(string(versionBytes)))
	if err != nil {
		return true, errors.Wrapf(err, "malformed version file in %s", dataDir)
	}
	if dataDirVersion != currentDataDirVersion {
		return true, errors.Errorf("data directory %s has version %d, expected version %d -- run with a "+
			"fresh data directory to resync", dataDir, dataDirVersion, currentDataDirVersion)
	}
	return true, nil
}

func createDataDirVersionFile(dataDir string) error {
	versionString := strconv.Itoa(currentDataDirVersion)
	err := os.WriteFile(versionFilePath(dataDir), []byte(versionString), 0600)
	return errors.WithStack(err)
}

func versionFilePath(dataDir string) string {
	return filepath.Join(dataDir, versionFileName)
}
