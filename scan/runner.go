package scan

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"unsafe"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/shieldscan/noteenc"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// BatchRunner accumulates outputs into batches, runs full batches through a
// Tasks strategy and hands out the results per transaction.
type BatchRunner[A any] struct {
	batchSizeThreshold int

	// acc is the batch currently being accumulated.
	acc *Batch[A]

	// runningTasks submits batches and tracks the running ones.
	runningTasks Tasks[*Batch[A]]

	// pendingResults holds the receivers of transactions whose results
	// have not been collected yet.
	pendingResults map[ResultKey]*batchReceiver[A]
}

// NewBatchRunner creates a runner that tries every output against the given
// tagged keys. A batch is submitted as soon as it holds batchSizeThreshold
// outputs.
func NewBatchRunner[A any](batchSizeThreshold int,
	keys iter.Seq2[A, *noteenc.IncomingViewingKey],
	tasks Tasks[*Batch[A]]) *BatchRunner[A] {

	var (
		tags []A
		ivks []*noteenc.IncomingViewingKey
	)
	for tag, ivk := range keys {
		tags = append(tags, tag)
		ivks = append(ivks, ivk)
	}

	return &BatchRunner[A]{
		batchSizeThreshold: batchSizeThreshold,
		acc:                newBatch(tags, ivks),
		runningTasks:       tasks,
		pendingResults:     make(map[ResultKey]*batchReceiver[A]),
	}
}

// AddOutputs queues the outputs of a transaction for trial decryption.
//
// blockTag is the hash of the block that contains the transaction, or
// NoBlock if it was not seen in a block. newDomain is called once per
// output. If the accumulated batch reaches the threshold it is flushed.
//
// Registering the same block tag and txid again before collecting replaces
// the earlier registration; its results are discarded.
//
// Results are keyed by wire.OutPoint, so a transaction may have at most
// math.MaxUint32 outputs. AddOutputs panics otherwise.
func (r *BatchRunner[A]) AddOutputs(blockTag, txid chainhash.Hash,
	newDomain func() *noteenc.Domain, outputs []noteenc.CompactOutput) {

	checkOutputCount(len(outputs))

	replies := newReplyChannel[A](len(outputs))
	r.acc.addOutputs(newDomain, outputs, replies)

	key := ResultKey{BlockTag: blockTag, TxID: txid}
	if _, ok := r.pendingResults[key]; ok {
		log.Debugf("Replacing uncollected results of tx %v in block %v",
			txid, blockTag)
	}
	r.pendingResults[key] = &batchReceiver[A]{ch: replies}

	if r.acc.NumOutputs() >= r.batchSizeThreshold {
		r.Flush()
	}
}

// checkOutputCount panics if n outputs cannot all be indexed by the uint32
// index of a wire.OutPoint.
func checkOutputCount(n int) {
	if uint64(n) > math.MaxUint32 {
		panic(fmt.Sprintf("transaction has %d outputs, more than an "+
			"outpoint can index", n))
	}
}

// Flush submits the accumulated batch, if any. Later outputs are accumulated
// into a new batch for the same keys.
func (r *BatchRunner[A]) Flush() {
	if r.acc.isEmpty() {
		return
	}

	batch := r.acc
	r.acc = newBatch(slices.Clone(batch.tags), slices.Clone(batch.ivks))

	log.Tracef("Submitting batch of %d outputs", batch.NumOutputs())

	r.runningTasks.RunTask(batch)
}

// CollectResults returns the notes decrypted from the outputs of a
// transaction, keyed by outpoint. Outputs that no key decrypted are absent.
// A transaction that was never registered yields an empty map.
//
// The call blocks until the batch holding the transaction's outputs has
// finished, so that batch must have been flushed.
func (r *BatchRunner[A]) CollectResults(blockTag,
	txid chainhash.Hash) map[wire.OutPoint]DecryptedNote[A] {

	key := ResultKey{BlockTag: blockTag, TxID: txid}
	rx, ok := r.pendingResults[key]
	if !ok {
		// There are no pending results if the transaction had no
		// outputs of this runner's kind.
		return make(map[wire.OutPoint]DecryptedNote[A])
	}
	delete(r.pendingResults, key)

	return rx.collect(txid)
}

// NumPending returns the number of transactions awaiting collection.
func (r *BatchRunner[A]) NumPending() int {
	return len(r.pendingResults)
}

// NumAccumulated returns the number of outputs in the batch being
// accumulated.
func (r *BatchRunner[A]) NumAccumulated() int {
	return r.acc.NumOutputs()
}

// Close discards every uncollected result. Batches still running stop
// delivering results once they notice. Outputs that were never flushed are
// dropped.
func (r *BatchRunner[A]) Close() {
	for key, rx := range r.pendingResults {
		rx.drop()
		delete(r.pendingResults, key)
	}

	r.acc = newBatch(r.acc.tags, r.acc.ivks)
}

// pendingUsageBounds returns the bounds of the heap usage of the pending
// results map and its receivers.
func (r *BatchRunner[A]) pendingUsageBounds() (int, int) {
	var receivers int
	for _, rx := range r.pendingResults {
		receivers += rx.DynamicUsage()
	}

	entrySize := int(unsafe.Sizeof(ResultKey{})) + ptrSize
	lower, upper := mapUsageBounds(len(r.pendingResults), entrySize)

	return lower + receivers, upper + receivers
}

// DynamicUsage returns the approximate heap bytes held by the accumulating
// batch, the running batches and the pending results.
func (r *BatchRunner[A]) DynamicUsage() int {
	pending, _ := r.pendingUsageBounds()

	return r.acc.DynamicUsage() + r.runningTasks.DynamicUsage() + pending
}

// DynamicUsageBounds returns a lower and upper bound of DynamicUsage. Only
// the pending results map makes the two differ; the usage of running tasks
// is taken as exact.
func (r *BatchRunner[A]) DynamicUsageBounds() (int, fn.Option[int]) {
	running := r.runningTasks.DynamicUsage()
	acc := r.acc.DynamicUsage()
	lower, upper := r.pendingUsageBounds()

	return acc + running + lower, fn.Some(acc + running + upper)
}
