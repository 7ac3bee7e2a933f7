// Package scan batches trial decryption of shielded outputs across many
// transactions and runs the batches on a worker pool.
//
// A BatchRunner accumulates the outputs of each registered transaction into
// the current Batch. Once the batch holds at least the configured number of
// outputs, or when Flush is called, it is handed to the pool and a fresh
// batch with the same keys takes its place. Every transaction gets its own
// reply channel; each of its outputs holds a replier that either delivers a
// DecryptedNote or is released without sending. CollectResults drains the
// channel of one transaction, blocking until every replier is released,
// which happens when the batch holding the outputs has finished running.
//
// The runner is not safe for concurrent use. It is meant to be driven by a
// single scanning goroutine while the batches themselves run in parallel.
package scan
