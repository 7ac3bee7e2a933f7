package scan

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/shieldscan/noteenc"
	"github.com/btcsuite/shieldscan/workpool"
	"github.com/stretchr/testify/require"
)

// testBlock is the block tag used by most tests.
var testBlock = chainhash.Hash{0xbb}

// txid returns a distinct transaction hash for n.
func txid(n int) chainhash.Hash {
	return chainhash.DoubleHashH([]byte{byte(n >> 8), byte(n)})
}

// newTestKeys derives n incoming viewing keys. Their tags are their indexes.
func newTestKeys(t *testing.T, n int) []*noteenc.IncomingViewingKey {
	t.Helper()

	keys := make([]*noteenc.IncomingViewingKey, n)
	for i := range keys {
		ivk, err := noteenc.NewIncomingViewingKey([32]byte{0x01, byte(i)})
		require.NoError(t, err)
		keys[i] = ivk
	}

	return keys
}

// newStranger returns a key that is never handed to a runner.
func newStranger(t *testing.T) *noteenc.IncomingViewingKey {
	t.Helper()

	ivk, err := noteenc.NewIncomingViewingKey([32]byte{0xff})
	require.NoError(t, err)

	return ivk
}

// zip212On returns the domain used by every test output.
func zip212On() *noteenc.Domain {
	return noteenc.NewDomain(noteenc.Zip212On)
}

// payTo encrypts a note to ivk and returns the output along with the note
// expected to be recovered under tag.
func payTo(t *testing.T, ivk *noteenc.IncomingViewingKey, tag int,
	value btcutil.Amount) (noteenc.CompactOutput, DecryptedNote[int]) {

	t.Helper()

	addr, err := ivk.Address(noteenc.Diversifier{byte(value)})
	require.NoError(t, err)

	seed := []byte{byte(tag), byte(value >> 8), byte(value)}
	note := noteenc.Note{
		Value:    value,
		Rseed:    chainhash.HashH(seed),
		LeadByte: noteenc.LeadByteV2,
	}
	out, err := noteenc.Encrypt(addr, note)
	require.NoError(t, err)

	return out, DecryptedNote[int]{
		KeyTag:    tag,
		Recipient: addr,
		Note:      note,
	}
}

// newTestRunner creates a runner over keys tagged by their index.
func newTestRunner(threshold int, keys []*noteenc.IncomingViewingKey,
	tasks Tasks[*Batch[int]]) *BatchRunner[int] {

	return NewBatchRunner(threshold, slices.All(keys), tasks)
}

// captureSubmitter records submitted tasks so tests decide when they run.
type captureSubmitter struct {
	mu    sync.Mutex
	tasks []workpool.Task
}

// Submit records the task.
func (c *captureSubmitter) Submit(task workpool.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tasks = append(c.tasks, task)
}

// numSubmitted returns how many tasks were submitted so far.
func (c *captureSubmitter) numSubmitted() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.tasks)
}

// run runs the i-th submitted task.
func (c *captureSubmitter) run(i int) {
	c.mu.Lock()
	task := c.tasks[i]
	c.mu.Unlock()

	task.Run()
}

// newTestPool starts a worker pool that is stopped on cleanup.
func newTestPool(t *testing.T, numWorkers int) *workpool.Pool {
	t.Helper()

	p, err := workpool.New(&workpool.Config{NumWorkers: numWorkers})
	require.NoError(t, err)
	require.NoError(t, p.Start())
	t.Cleanup(func() {
		require.NoError(t, p.Stop())
	})

	return p
}

const (
	// defaultTimeout bounds waits on asynchronous work in tests.
	defaultTimeout = 5 * time.Second

	// pollInterval is the polling period used with require.Eventually.
	pollInterval = 10 * time.Millisecond
)
