package scan

import (
	"fmt"
	"unsafe"

	"github.com/btcsuite/shieldscan/noteenc"
)

// Batch is a set of outputs to trial decrypt against a fixed set of keys.
type Batch[A any] struct {
	// tags and ivks are parallel: tags[i] identifies ivks[i].
	tags []A
	ivks []*noteenc.IncomingViewingKey

	// outputs and repliers are parallel as well. Each output is tried
	// under its own domain and answered through its own replier.
	outputs  []noteenc.DomainOutput
	repliers []outputReplier[A]
}

// newBatch creates an empty batch for the given keys. It panics if tags and
// ivks differ in length.
func newBatch[A any](tags []A, ivks []*noteenc.IncomingViewingKey) *Batch[A] {
	if len(tags) != len(ivks) {
		panic(fmt.Sprintf("batch has %d tags for %d keys", len(tags),
			len(ivks)))
	}

	return &Batch[A]{
		tags: tags,
		ivks: ivks,
	}
}

// isEmpty reports whether the batch has no outputs.
func (b *Batch[A]) isEmpty() bool {
	return len(b.outputs) == 0
}

// NumOutputs returns the number of outputs in the batch.
func (b *Batch[A]) NumOutputs() int {
	return len(b.outputs)
}

// addOutputs appends outputs to the batch. Every output gets a fresh domain
// from newDomain and a replier on replies tagged with its index.
func (b *Batch[A]) addOutputs(newDomain func() *noteenc.Domain,
	outputs []noteenc.CompactOutput, replies *replyChannel[A]) {

	for i := range outputs {
		b.outputs = append(b.outputs, noteenc.DomainOutput{
			Domain: newDomain(),
			Output: outputs[i],
		})
		b.repliers = append(b.repliers, outputReplier[A]{
			OutputIndex: i,
			Value:       replies,
		})
	}
}

// Run trial decrypts the batch and reports the results. A batch must only be
// run once.
func (b *Batch[A]) Run() {
	if len(b.outputs) != len(b.repliers) {
		panic(fmt.Sprintf("batch has %d outputs for %d repliers",
			len(b.outputs), len(b.repliers)))
	}

	results := noteenc.BatchTryCompactNoteDecryption(b.ivks, b.outputs)

	repliers := b.repliers
	b.outputs, b.repliers = nil, nil

	for i, replier := range repliers {
		// A replier released without sending tells the receiver
		// that this output is not ours.
		if results[i].IsNone() {
			replier.Value.release()
			continue
		}

		dec := results[i].UnsafeFromSome()
		err := replier.Value.send(OutputIndex[DecryptedNote[A]]{
			OutputIndex: replier.OutputIndex,
			Value: DecryptedNote[A]{
				KeyTag:    b.tags[dec.KeyIndex],
				Recipient: dec.Recipient,
				Note:      dec.Note,
			},
		})
		replier.Value.release()

		if err != nil {
			log.Debugf("Batch runner was dropped before batch " +
				"finished")

			for _, rest := range repliers[i+1:] {
				rest.Value.release()
			}
			return
		}
	}
}

// Discard releases every replier of a batch that will not be run, so that
// collecting its transactions finds no notes instead of blocking.
func (b *Batch[A]) Discard() {
	log.Debugf("Discarding batch of %d outputs", len(b.outputs))

	repliers := b.repliers
	b.outputs, b.repliers = nil, nil

	for _, replier := range repliers {
		replier.Value.release()
	}
}

// DynamicUsage returns the heap bytes held by the batch.
func (b *Batch[A]) DynamicUsage() int {
	domainSize := int(unsafe.Sizeof(noteenc.Domain{}))

	return sliceUsage(b.tags) + elementsUsage(b.tags) +
		sliceUsage(b.ivks) +
		sliceUsage(b.outputs) + len(b.outputs)*domainSize +
		sliceUsage(b.repliers)
}
