package scan

import (
	"errors"
	"sync/atomic"
	"unsafe"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// errReceiverDropped is returned when sending to a reply channel whose
// receiver has been discarded.
var errReceiverDropped = errors.New("result receiver dropped")

// replyChannel carries the decrypted notes of a single transaction from the
// batch that processes its outputs to the collecting caller.
//
// Every output of the transaction holds one replier. A replier sends at most
// once and is then released; the channel is buffered with one slot per
// replier so that sends never block, and it is closed when the last replier
// is released.
type replyChannel[A any] struct {
	items chan OutputIndex[DecryptedNote[A]]

	// live is the number of repliers not yet released.
	live atomic.Int64

	// dropped is set once nobody will ever read the channel.
	dropped atomic.Bool
}

// newReplyChannel creates a reply channel for numRepliers outputs. A channel
// without repliers is closed right away.
func newReplyChannel[A any](numRepliers int) *replyChannel[A] {
	c := &replyChannel[A]{
		items: make(chan OutputIndex[DecryptedNote[A]], numRepliers),
	}
	c.live.Store(int64(numRepliers))

	if numRepliers == 0 {
		close(c.items)
	}

	return c
}

// send delivers a result. It fails once the receiver has been dropped.
func (c *replyChannel[A]) send(item OutputIndex[DecryptedNote[A]]) error {
	if c.dropped.Load() {
		return errReceiverDropped
	}
	c.items <- item

	return nil
}

// release signals that one replier is done with the channel.
func (c *replyChannel[A]) release() {
	if c.live.Add(-1) == 0 {
		close(c.items)
	}
}

// outputReplier is the sending half of a reply channel held by one output.
type outputReplier[A any] OutputIndex[*replyChannel[A]]

// batchReceiver is the receiving half of a reply channel.
type batchReceiver[A any] struct {
	ch *replyChannel[A]
}

// drop marks the channel as abandoned so that pending sends fail.
func (r *batchReceiver[A]) drop() {
	r.ch.dropped.Store(true)
}

// collect drains the channel until it is closed, keying each result by its
// outpoint in txid.
func (r *batchReceiver[A]) collect(
	txid chainhash.Hash) map[wire.OutPoint]DecryptedNote[A] {

	results := make(map[wire.OutPoint]DecryptedNote[A])

	// The channel is closed once every output of the transaction has
	// either been delivered or found not to be ours, so the end of the
	// loop means complete knowledge of this transaction.
	for item := range r.ch.items {
		// AddOutputs rejects transactions whose indexes overflow.
		op := wire.OutPoint{Hash: txid, Index: uint32(item.OutputIndex)}
		results[op] = item.Value
	}

	return results
}

// DynamicUsage returns the size of the channel allocation. Go allocates the
// header and the whole buffer at once, so the cost does not depend on how
// many results are queued.
func (r *batchReceiver[A]) DynamicUsage() int {
	var item OutputIndex[DecryptedNote[A]]

	return int(unsafe.Sizeof(*r.ch)) + chanHeaderSize +
		cap(r.ch.items)*int(unsafe.Sizeof(item))
}
