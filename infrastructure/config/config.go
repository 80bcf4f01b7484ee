// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/futurepia/futurepia-sub000/domain/chainconfig"
	"github.com/futurepia/futurepia-sub000/domain/consensus/utils/signing"
	"github.com/futurepia/futurepia-sub000/infrastructure/logger"
	"github.com/futurepia/futurepia-sub000/version"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

const (
	defaultConfigFilename        = "chaind.conf"
	defaultDataDirname           = "data"
	defaultLogLevel              = "info"
	defaultLogDirname            = "logs"
	defaultLogFilename           = "chaind.log"
	defaultErrLogFilename        = "chaind_err.log"
	defaultDatabaseCacheSizeMiB  = 64
	defaultMaxPendingTxs         = 10000
	defaultRequiredParticipation = 33 * chainconfig.OneHundredPercent / 100
)

var (
	// DefaultHomeDir is the default home directory for chaind.
	DefaultHomeDir = btcutil.AppDataDir("chaind", false)

	defaultConfigFile = filepath.Join(DefaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(DefaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(DefaultHomeDir, defaultLogDirname)
)

// Flags defines the configuration options for chaind.
//
// See loadConfig for details on the configuration load process.
type Flags struct {
	ShowVersion            bool     `short:"V" long:"version" no-ini:"true" description:"Display version information and exit"`
	ConfigFile             string   `short:"C" long:"configfile" no-ini:"true" description:"Path to configuration file"`
	DataDir                string   `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir                 string   `long:"logdir" description:"Directory to log output."`
	DebugLevel             string   `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	Profile                string   `long:"profile" description:"Enable HTTP profiling on given port -- NOTE port must be between 1024 and 65536"`
	MetricsListen          string   `long:"metricslisten" description:"Serve prometheus metrics on the given interface/port, e.g. 127.0.0.1:16510"`
	DatabaseCacheSizeMiB   int      `long:"dbcachesize" description:"Size of the state database cache in MiB"`
	Replay                 bool     `long:"replay" description:"Rebuild the chain state from the block log on startup"`
	SkipInvariants         bool     `long:"skip-invariants" description:"Do not check the chain state invariants after every block"`
	MaxPendingTransactions int      `long:"maxpendingtxs" description:"Max number of pending transactions to keep"`
	EnableProduction       bool     `long:"enable-production" description:"Produce blocks for the configured producers even when the chain looks stale"`
	Producers              []string `long:"producer" description:"Name of a producer to produce blocks for -- may be repeated"`
	ProducerKey            string   `long:"producer-key" default-mask:"-" description:"Seed of the producers' signing key"`
	ProducerMnemonic       string   `long:"producer-mnemonic" default-mask:"-" description:"Mnemonic of the producers' signing key, as printed by keygen"`
	RequiredParticipation  uint32   `long:"required-participation" description:"Producer participation, in basis points, below which blocks are not produced"`
	NetworkFlags
}

// Config defines the configuration options for chaind.
//
// See loadConfig for details on the configuration load process.
type Config struct {
	*Flags

	// SigningKey signs the blocks of the configured producers. It is nil
	// on simnet when no key was configured, in which case every genesis
	// producer signs with its genesis key.
	SigningKey *btcec.PrivateKey
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(DefaultHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but they variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

func defaultFlags() *Flags {
	return &Flags{
		ConfigFile:             defaultConfigFile,
		DebugLevel:             defaultLogLevel,
		DataDir:                defaultDataDir,
		LogDir:                 defaultLogDir,
		DatabaseCacheSizeMiB:   defaultDatabaseCacheSizeMiB,
		MaxPendingTransactions: defaultMaxPendingTxs,
		RequiredParticipation:  defaultRequiredParticipation,
	}
}

// LoadConfig initializes and parses the config using a config file and
// command line options, then starts logging.
//
// The configuration proceeds as follows:
// 	1) Start with a default config with sane settings
// 	2) Pre-parse the command line to check for an alternative config file
// 	3) Load configuration file overwriting defaults with any specified options
// 	4) Parse CLI options and overwrite/add any specified options
//
// The above results in chaind functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options. Command line options always take
// precedence.
func LoadConfig() (*Config, error) {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		return nil, err
	}

	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", logger.SupportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation. After log rotation has been initialized, the
	// logger variables may be used.
	logger.InitLog(filepath.Join(cfg.LogDir, defaultLogFilename), filepath.Join(cfg.LogDir, defaultErrLogFilename))

	// Parse, validate, and set debug log level(s).
	if err := logger.ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := errors.Errorf("LoadConfig: %s", err.Error())
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, err
	}

	return cfg, nil
}

func loadConfig(args []string) (*Config, error) {
	cfgFlags := defaultFlags()

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified. Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := *cfgFlags
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			return nil, err
		}
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version.Version())
		os.Exit(0)
	}

	// Load additional config from file.
	var configFileError error
	parser := flags.NewParser(cfgFlags, flags.Default)
	if _, err := os.Stat(preCfg.ConfigFile); os.IsNotExist(err) {
		err := createDefaultConfigFile(preCfg.ConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating a "+
				"default config file: %s\n", err)
		}
	}
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintf(os.Stderr, "Error parsing config "+
				"file: %s\n", err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	_, err = parser.ParseArgs(args)
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, err
	}

	cfg := &Config{Flags: cfgFlags}

	err = cfg.ResolveNetwork(parser)
	if err != nil {
		return nil, err
	}

	// Append the network type to the data directory so it is "namespaced"
	// per network. The state database and the block log are specific to a
	// network, so namespacing the data directory means they never mix.
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.DataDir = filepath.Join(cfg.DataDir, cfg.NetParams().Name)

	// Append the network type to the log directory so it is "namespaced"
	// per network in the same fashion as the data directory.
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.LogDir = filepath.Join(cfg.LogDir, cfg.NetParams().Name)

	err = cfg.validate()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, err
	}

	// Warn about missing config file only after all other configuration is
	// done. This prevents the warning on help messages and invalid
	// options. Note this should go directly before the return.
	if configFileError != nil {
		log.Warnf("%s", configFileError)
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	funcName := "loadConfig"

	// Validate profile port number
	if cfg.Profile != "" {
		profilePort, err := strconv.Atoi(cfg.Profile)
		if err != nil || profilePort < 1024 || profilePort > 65535 {
			return errors.Errorf("%s: The profile port must be between 1024 and 65535", funcName)
		}
	}

	if cfg.MetricsListen != "" {
		_, _, err := net.SplitHostPort(cfg.MetricsListen)
		if err != nil {
			return errors.Errorf("%s: invalid metrics listen address %s: %s", funcName, cfg.MetricsListen, err)
		}
	}

	if cfg.DatabaseCacheSizeMiB < 0 || cfg.MaxPendingTransactions < 0 {
		return errors.Errorf("%s: dbcachesize and maxpendingtxs cannot be negative", funcName)
	}

	if cfg.RequiredParticipation > chainconfig.OneHundredPercent {
		return errors.Errorf("%s: required participation cannot exceed %d", funcName, chainconfig.OneHundredPercent)
	}

	if cfg.ProducerKey != "" && cfg.ProducerMnemonic != "" {
		return errors.Errorf("%s: producer-key and producer-mnemonic cannot be used together", funcName)
	}
	switch {
	case cfg.ProducerKey != "":
		cfg.SigningKey = signing.KeyFromSeed(cfg.ProducerKey)
	case cfg.ProducerMnemonic != "":
		signingKey, err := signing.KeyFromMnemonic(cfg.ProducerMnemonic, "")
		if err != nil {
			return errors.Wrapf(err, "%s", funcName)
		}
		cfg.SigningKey = signingKey
	case len(cfg.Producers) > 0 && !cfg.Simnet:
		return errors.Errorf("%s: producing blocks requires producer-key or producer-mnemonic", funcName)
	}

	return nil
}

// createDefaultConfigFile writes every option, commented out, to
// destinationPath.
func createDefaultConfigFile(destinationPath string) error {
	// Create the destination directory if it does not exists
	err := os.MkdirAll(filepath.Dir(destinationPath), 0700)
	if err != nil {
		return err
	}

	// go-flags comments out only the options holding their zero value.
	parser := flags.NewParser(&Flags{}, flags.Default)
	return flags.NewIniParser(parser).WriteFile(destinationPath,
		flags.IniIncludeComments|flags.IniIncludeDefaults|flags.IniCommentDefaults)
}
