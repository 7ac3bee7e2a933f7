package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/shieldscan/internal/cfgutil"
	"github.com/jessevdk/go-flags"
)

const (
	defaultLogLevel       = "info"
	defaultLogFilename    = "scanbench.log"
	defaultBlocks         = 100
	defaultTxsPerBlock    = 50
	defaultOutputsPerTx   = 2
	defaultAccounts       = 3
	defaultAddrsPerAcct   = 4
	defaultHitRate        = 0.05
	defaultBatchThreshold = 250
	defaultReportInterval = 2 * time.Second
	defaultZip212Height   = 20
	defaultGracePeriodEnd = 40
)

var (
	scanbenchHomeDir = btcutil.AppDataDir("scanbench", false)
	defaultLogDir    = filepath.Join(scanbenchHomeDir, "logs")
)

type config struct {
	// Chain synthesis
	Blocks         int                 `long:"blocks" description:"Number of blocks to synthesize and scan"`
	TxsPerBlock    int                 `long:"txsperblock" description:"Shielded transactions per block"`
	OutputsPerTx   int                 `long:"outputspertx" description:"Shielded outputs per transaction"`
	Accounts       int                 `long:"accounts" description:"Number of wallet accounts, one incoming viewing key each"`
	AddrsPerAcct   int                 `long:"addrsperacct" description:"Diversified addresses paid to per account"`
	HitRate        float64             `long:"hitrate" description:"Fraction of outputs paid to the wallet"`
	MaxValue       *cfgutil.AmountFlag `long:"maxvalue" description:"Largest note value paid to the wallet"`
	Seed           uint64              `long:"seed" description:"Seed of the chain synthesizer"`
	Zip212Height   uint32              `long:"zip212height" description:"Height at which version 2 note plaintexts activate"`
	GracePeriodEnd uint32              `long:"graceperiodend" description:"Height from which version 1 note plaintexts are rejected"`

	// Scanner
	BatchThreshold int                   `long:"batchthreshold" description:"Outputs accumulated before a batch is submitted"`
	Workers        int                   `long:"workers" description:"Batch worker goroutines (0 for one per CPU)"`
	TrackUsage     bool                  `long:"trackusage" description:"Account the heap usage of running batches"`
	ReportInterval time.Duration         `long:"reportinterval" description:"Interval between progress reports"`
	MemLimit       *cfgutil.ByteSizeFlag `long:"memlimit" description:"Warn when the scanner may use more than this much heap, e.g. 64MiB (0 disables)"`

	// Logging
	LogDir     *cfgutil.ExplicitString `long:"logdir" description:"Directory to log output; logs only to stdout unless set"`
	DebugLevel string                  `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		homeDir := filepath.Dir(scanbenchHomeDir)
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows cmd.exe-style
	// %VARIABLE%, but they variables can still be expanded via POSIX-style
	// $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}

// defaultConfig returns the configuration used when no options are given.
func defaultConfig() config {
	return config{
		Blocks:         defaultBlocks,
		TxsPerBlock:    defaultTxsPerBlock,
		OutputsPerTx:   defaultOutputsPerTx,
		Accounts:       defaultAccounts,
		AddrsPerAcct:   defaultAddrsPerAcct,
		HitRate:        defaultHitRate,
		MaxValue:       cfgutil.NewAmountFlag(btcutil.SatoshiPerBitcoin),
		Seed:           1,
		Zip212Height:   defaultZip212Height,
		GracePeriodEnd: defaultGracePeriodEnd,
		BatchThreshold: defaultBatchThreshold,
		ReportInterval: defaultReportInterval,
		MemLimit:       cfgutil.NewByteSizeFlag(0),
		LogDir:         cfgutil.NewExplicitString(defaultLogDir),
		DebugLevel:     defaultLogLevel,
	}
}

// loadConfig parses args over the default configuration and validates the
// result.  Help requests are returned as a *flags.Error of type
// flags.ErrHelp.
func loadConfig(args []string) (*config, error) {
	cfg := defaultConfig()

	parser := flags.NewParser(&cfg, flags.Default)
	remaining, err := parser.ParseArgs(args)
	if err != nil {
		return nil, err
	}
	if len(remaining) > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", remaining)
	}

	switch {
	case cfg.Blocks < 1:
		return nil, fmt.Errorf("at least one block is required")
	case cfg.TxsPerBlock < 0:
		return nil, fmt.Errorf("invalid transactions per block: %d",
			cfg.TxsPerBlock)
	case cfg.OutputsPerTx < 0:
		return nil, fmt.Errorf("invalid outputs per transaction: %d",
			cfg.OutputsPerTx)
	case cfg.Accounts < 1:
		return nil, fmt.Errorf("at least one account is required")
	case cfg.AddrsPerAcct < 1:
		return nil, fmt.Errorf("at least one address per account " +
			"is required")
	case cfg.HitRate < 0 || cfg.HitRate > 1:
		return nil, fmt.Errorf("hit rate %v is not within [0, 1]",
			cfg.HitRate)
	case cfg.MaxValue.Amount < 1:
		return nil, fmt.Errorf("maximum note value must be positive")
	case cfg.GracePeriodEnd < cfg.Zip212Height:
		return nil, fmt.Errorf("grace period end %d precedes ZIP 212 "+
			"activation at %d", cfg.GracePeriodEnd,
			cfg.Zip212Height)
	case cfg.BatchThreshold < 1:
		return nil, fmt.Errorf("invalid batch threshold: %d",
			cfg.BatchThreshold)
	case cfg.Workers < 0:
		return nil, fmt.Errorf("invalid number of workers: %d",
			cfg.Workers)
	case cfg.ReportInterval <= 0:
		return nil, fmt.Errorf("report interval must be positive")
	}

	cfg.LogDir.Value = cleanAndExpandPath(cfg.LogDir.Value)

	return &cfg, nil
}
