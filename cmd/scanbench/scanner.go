package main

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/shieldscan/noteenc"
	"github.com/btcsuite/shieldscan/scan"
	"github.com/btcsuite/shieldscan/workpool"
	"github.com/dustin/go-humanize"
	"github.com/lightningnetwork/lnd/ticker"
)

// scanSummary is the outcome of a scan.
type scanSummary struct {
	blocks  int
	txs     int
	outputs int

	// found holds every note the runner decrypted.
	found map[wire.OutPoint]scan.DecryptedNote[account]

	// balances sums the found note values per account.
	balances map[account]btcutil.Amount

	// peakUsage is the largest usage upper bound seen at a report.
	peakUsage int

	// interrupted is set when the scan stopped before the last block.
	interrupted bool

	elapsed time.Duration
}

// scanner feeds synthesized blocks through a batch runner.
type scanner struct {
	cfg    *config
	params noteenc.Params
	runner *scan.BatchRunner[account]

	summary scanSummary
}

// newTasks returns the task strategy selected by the config.
func newTasks(trackUsage bool,
	submitter workpool.Submitter) scan.Tasks[*scan.Batch[account]] {

	if trackUsage {
		return scan.NewWithUsage[*scan.Batch[account]](submitter)
	}
	return scan.NewUntracked[*scan.Batch[account]](submitter)
}

// newScanner creates a scanner for the account keys whose batches are run by
// submitter.
func newScanner(cfg *config, keys []*noteenc.IncomingViewingKey,
	submitter workpool.Submitter) *scanner {

	tasks := newTasks(cfg.TrackUsage, submitter)

	return &scanner{
		cfg: cfg,
		params: noteenc.Params{
			Zip212Height:   cfg.Zip212Height,
			GracePeriodEnd: cfg.GracePeriodEnd,
		},
		runner: scan.NewBatchRunner(
			cfg.BatchThreshold, accountKeys(keys), tasks,
		),
		summary: scanSummary{
			found: make(
				map[wire.OutPoint]scan.DecryptedNote[account],
			),
			balances: make(map[account]btcutil.Amount),
		},
	}
}

// addBlock queues every transaction of block and flushes the remainder so
// that the block can be collected.
func (s *scanner) addBlock(block *chainBlock) {
	zip212 := s.params.Zip212Enforcement(block.height)
	newDomain := func() *noteenc.Domain {
		return noteenc.NewDomain(zip212)
	}

	for i := range block.txs {
		tx := &block.txs[i]
		s.runner.AddOutputs(block.hash, tx.txid, newDomain, tx.outputs)
		s.summary.outputs += len(tx.outputs)
	}
	s.runner.Flush()

	s.summary.blocks++
	s.summary.txs += len(block.txs)
}

// collectBlock waits for the results of every transaction of block.
func (s *scanner) collectBlock(block *chainBlock) {
	var found int
	for i := range block.txs {
		results := s.runner.CollectResults(block.hash, block.txs[i].txid)
		for op, note := range results {
			s.summary.found[op] = note
			s.summary.balances[note.KeyTag] += note.Note.Value
			found++
		}
	}

	if found > 0 {
		log.Debugf("Found %d notes in block %d (%v)", found,
			block.height, block.hash)
	}
}

// report logs the progress of the scan and the heap usage of the runner.
func (s *scanner) report() {
	lower, upper := s.runner.DynamicUsageBounds()
	upperBytes := upper.UnwrapOr(lower)
	if upperBytes > s.summary.peakUsage {
		s.summary.peakUsage = upperBytes
	}

	log.Infof("Scanned %d blocks, %d outputs, %d notes found; runner "+
		"holds %d pending txs, usage %s to %s", s.summary.blocks,
		s.summary.outputs, len(s.summary.found), s.runner.NumPending(),
		humanize.Bytes(uint64(lower)), humanize.Bytes(uint64(upperBytes)))

	limit := s.cfg.MemLimit.Bytes
	if limit != 0 && uint64(upperBytes) > limit {
		log.Warnf("Scanner may use up to %s, above the limit of %s",
			humanize.Bytes(uint64(upperBytes)), humanize.IBytes(limit))
	}
}

// run scans the blocks produced by gen. Each block is added and flushed
// before the previous one is collected, so workers decrypt one block while
// the results of the last are gathered. Closing quit stops the scan after the
// blocks already added have been collected.
func (s *scanner) run(gen *chainGen,
	quit <-chan struct{}) (*scanSummary, error) {
	start := time.Now()

	t := ticker.New(s.cfg.ReportInterval)
	t.Resume()
	defer t.Stop()

	var prev *chainBlock
	for i := 0; i < s.cfg.Blocks; i++ {
		select {
		case <-quit:
			log.Infof("Scan interrupted after %d blocks", i)
			s.summary.interrupted = true
		default:
		}
		if s.summary.interrupted {
			break
		}

		block, err := gen.nextBlock()
		if err != nil {
			return nil, fmt.Errorf("unable to synthesize block: %w",
				err)
		}

		s.addBlock(block)
		if prev != nil {
			s.collectBlock(prev)
		}
		prev = block

		select {
		case <-t.Ticks():
			s.report()
		default:
		}
	}
	if prev != nil {
		s.collectBlock(prev)
	}
	s.report()

	s.summary.elapsed = time.Since(start)

	return &s.summary, nil
}

// verify compares the found notes against the notes the synthesizer paid to
// the wallet.
func (s *scanSummary) verify(expected map[wire.OutPoint]walletNote) error {
	var missing, wrong int
	for op, want := range expected {
		got, ok := s.found[op]
		switch {
		case !ok:
			missing++
		case got.KeyTag != want.account || got.Note.Value != want.value:
			wrong++
		}
	}
	unexpected := len(s.found) - (len(expected) - missing)

	if missing != 0 || wrong != 0 || unexpected != 0 {
		return fmt.Errorf("scan mismatch: %d notes missing, %d "+
			"misattributed, %d unexpected", missing, wrong,
			unexpected)
	}

	return nil
}
