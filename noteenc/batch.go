package noteenc

import (
	"runtime"

	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/sync/errgroup"
)

// BatchTryCompactNoteDecryption trial decrypts every output against every
// key. The result has one entry per output, in input order; a Some entry
// carries the index into ivks of the first key that matched.
//
// Outputs are processed concurrently, bounded by GOMAXPROCS per call. Callers
// running several batches at once multiply that bound by their own
// parallelism.
func BatchTryCompactNoteDecryption(ivks []*IncomingViewingKey,
	outputs []DomainOutput) []fn.Option[Decryption] {

	results := make([]fn.Option[Decryption], len(outputs))
	if len(ivks) == 0 || len(outputs) == 0 {
		for i := range results {
			results[i] = fn.None[Decryption]()
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := range outputs {
		g.Go(func() error {
			out := &outputs[i]

			prepared, ok := prepareOutput(out.Domain, &out.Output)
			if !ok {
				results[i] = fn.None[Decryption]()
				return nil
			}
			results[i] = prepared.tryKeys(ivks)

			return nil
		})
	}

	// None of the workers return an error.
	_ = g.Wait()

	return results
}
