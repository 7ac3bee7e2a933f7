// scanbench synthesizes a chain of shielded outputs, trial decrypts it with a
// batch runner and reports the notes found along with the scanner's heap
// usage.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/shieldscan/workpool"
	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/jessevdk/go-flags"
)

func main() {
	if err := scanMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// scanMain is the real main function.  It is necessary to work around the
// fact that deferred functions do not run when os.Exit() is called.
func scanMain() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil
		}
		return err
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		return nil
	}

	if cfg.LogDir.ExplicitlySet() {
		logFile := filepath.Join(cfg.LogDir.Value, defaultLogFilename)
		if err := initLogRotator(logFile); err != nil {
			return err
		}
		defer closeLogRotator()
	}
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return err
	}

	keys, err := deriveAccountKeys(cfg.Accounts)
	if err != nil {
		return err
	}
	gen, err := newChainGen(cfg, keys)
	if err != nil {
		return err
	}

	pool, err := workpool.New(&workpool.Config{NumWorkers: cfg.Workers})
	if err != nil {
		return err
	}
	if err := pool.Start(); err != nil {
		return err
	}
	defer pool.Stop()

	log.Infof("Scanning %d blocks of %d txs with %d outputs each for %d "+
		"accounts on %d workers", cfg.Blocks, cfg.TxsPerBlock,
		cfg.OutputsPerTx, cfg.Accounts, pool.NumWorkers())

	s := newScanner(cfg, keys, pool)
	defer s.runner.Close()

	summary, err := s.run(gen, interruptListener())
	if err != nil {
		return err
	}
	logSummary(summary)

	return summary.verify(gen.expected)
}

// logSummary logs the totals of a finished scan.
func logSummary(s *scanSummary) {
	rate := float64(s.outputs) / s.elapsed.Seconds()
	log.Infof("Scanned %d blocks, %d txs and %d outputs in %v (%s "+
		"outputs/s), peak usage %s", s.blocks, s.txs, s.outputs,
		s.elapsed, humanize.Comma(int64(rate)),
		humanize.Bytes(uint64(s.peakUsage)))

	accounts := make([]account, 0, len(s.balances))
	for acct := range s.balances {
		accounts = append(accounts, acct)
	}
	slices.Sort(accounts)

	var total btcutil.Amount
	for _, acct := range accounts {
		log.Infof("Account %d received %v", acct, s.balances[acct])
		total += s.balances[acct]
	}
	log.Infof("Found %d notes worth %v", len(s.found), total)

	log.Tracef("Found notes: %v", newLogClosure(func() string {
		return spew.Sdump(s.found)
	}))
}
