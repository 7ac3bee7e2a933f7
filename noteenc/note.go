package noteenc

import (
	"encoding/binary"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
)

const (
	// LeadByteV1 marks a plaintext whose rseed is the commitment
	// randomness itself.
	LeadByteV1 byte = 0x01

	// LeadByteV2 marks a plaintext whose rseed seeds both the commitment
	// randomness and the ephemeral secret key.
	LeadByteV2 byte = 0x02

	// CompactNoteSize is the size of the compact note plaintext: lead
	// byte, diversifier, value and rseed.
	CompactNoteSize = 1 + DiversifierSize + 8 + 32
)

// Note is the value and randomness recovered from a shielded output.
type Note struct {
	// Value is the amount carried by the note.
	Value btcutil.Amount

	// Rseed is either rcm (LeadByteV1) or the seed it is derived from
	// (LeadByteV2).
	Rseed [32]byte

	// LeadByte is the plaintext version byte.
	LeadByte byte
}

// rcm returns the note commitment randomness.
func (n *Note) rcm() btcec.ModNScalar {
	if n.LeadByte == LeadByteV1 {
		var s btcec.ModNScalar
		s.SetByteSlice(n.Rseed[:])
		return s
	}

	return hashToScalar(rcmTag, n.Rseed[:])
}

// esk returns the ephemeral secret key the sender used for this note.
func (n *Note) esk() btcec.ModNScalar {
	return hashToScalar(eskTag, []byte{n.LeadByte}, n.Rseed[:])
}

// commitment computes the note commitment cm for the note paid to addr.
func (n *Note) commitment(addr *PaymentAddress) [32]byte {
	var value [8]byte
	binary.LittleEndian.PutUint64(value[:], uint64(n.Value))

	rcm := n.rcm()
	rcmBytes := rcm.Bytes()

	return hashParts(
		noteCommitTag, addr.Diversifier[:], addr.PkD[:], value[:],
		rcmBytes[:],
	)
}

// compactPlaintext serializes the note for diversifier d.
func (n *Note) compactPlaintext(d Diversifier) [CompactNoteSize]byte {
	var pt [CompactNoteSize]byte
	pt[0] = n.LeadByte
	copy(pt[1:], d[:])
	binary.LittleEndian.PutUint64(pt[1+DiversifierSize:], uint64(n.Value))
	copy(pt[1+DiversifierSize+8:], n.Rseed[:])

	return pt
}

// parseCompactPlaintext is the inverse of compactPlaintext. It reports false
// for values that do not fit a btcutil.Amount.
func parseCompactPlaintext(pt *[CompactNoteSize]byte) (Note, Diversifier,
	bool) {

	var (
		note Note
		d    Diversifier
	)
	note.LeadByte = pt[0]
	copy(d[:], pt[1:1+DiversifierSize])

	value := binary.LittleEndian.Uint64(pt[1+DiversifierSize:])
	if value > uint64(btcutil.MaxSatoshi) {
		return note, d, false
	}
	note.Value = btcutil.Amount(value)
	copy(note.Rseed[:], pt[1+DiversifierSize+8:])

	return note, d, true
}
