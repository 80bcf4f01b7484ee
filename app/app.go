package app

import (
	"fmt"
	"os"

	"github.com/futurepia/futurepia-sub000/infrastructure/config"
	"github.com/futurepia/futurepia-sub000/infrastructure/logger"
	"github.com/futurepia/futurepia-sub000/infrastructure/os/signal"
	"github.com/futurepia/futurepia-sub000/util/panics"
	"github.com/futurepia/futurepia-sub000/util/profiling"
	"github.com/futurepia/futurepia-sub000/version"
	"github.com/pkg/errors"
)

type chaindApp struct {
	cfg *config.Config
}

// StartApp starts the chaind app, and blocks until it finishes running
func StartApp() error {
	// Get a channel that will be closed when a shutdown signal has been
	// triggered either from an OS signal such as SIGINT (Ctrl+C) or from
	// another subsystem such as a halted chain.
	interrupt := signal.InterruptListener()

	// Load configuration and parse command line. This function also
	// initializes logging and configures it accordingly.
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer logger.BackendLog.Close()
	defer panics.HandlePanic(log, "MAIN", nil)

	app := &chaindApp{cfg: cfg}
	return app.main(interrupt)
}

func (app *chaindApp) main(interrupt <-chan struct{}) error {
	// Show version at startup.
	log.Infof("Version %s", version.UserAgent(app.cfg.NetParams().Name, app.cfg.NetParams().BlockchainVersion))

	// Enable http profiling server if requested.
	if app.cfg.Profile != "" {
		profiling.Start(app.cfg.Profile, log)
	}

	err := prepareDataDir(app.cfg.DataDir)
	if err != nil {
		log.Errorf("%+v", err)
		return err
	}

	// Return now if an interrupt signal was triggered.
	if signal.InterruptRequested(interrupt) {
		return nil
	}

	componentManager, err := NewComponentManager(app.cfg)
	if err != nil {
		log.Errorf("Unable to start chaind: %+v", err)
		return err
	}
	defer func() {
		log.Infof("Gracefully shutting down chaind...")

		err := componentManager.Stop()
		if err != nil {
			log.Errorf("Error shutting down chaind: %+v", err)
		}
		log.Infof("Chaind shutdown complete")
	}()

	err = componentManager.Start()
	if err != nil {
		return errors.Wrap(err, "failed starting chaind")
	}

	<-interrupt
	return nil
}
