package scan

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/shieldscan/noteenc"
)

// NoBlock is the block tag for transactions that were not found in a block,
// such as mempool transactions.
var NoBlock chainhash.Hash

// DecryptedNote is a note recovered by trial decryption.
type DecryptedNote[A any] struct {
	// KeyTag is the tag of the incoming viewing key that decrypted the
	// note.
	KeyTag A

	// Recipient is the payment address the note was sent to.
	Recipient noteenc.PaymentAddress

	// Note is the recovered note.
	Note noteenc.Note
}

// OutputIndex correlates a value with the index of an output within its
// transaction.
type OutputIndex[V any] struct {
	// OutputIndex is the position of the output in the transaction.
	OutputIndex int

	// Value is the value for the output.
	Value V
}

// ResultKey identifies the pending results of one transaction.
type ResultKey struct {
	// BlockTag is the hash of the block the transaction was seen in, or
	// NoBlock.
	BlockTag chainhash.Hash

	// TxID is the transaction hash.
	TxID chainhash.Hash
}
