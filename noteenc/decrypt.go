package noteenc

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/shieldscan/internal/zero"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Decryption is a successful trial decryption.
type Decryption struct {
	// Note is the recovered note.
	Note Note

	// Recipient is the payment address the note was sent to.
	Recipient PaymentAddress

	// KeyIndex is the position of the matching key in the slice of keys
	// that was tried.
	KeyIndex int
}

// preparedOutput caches the parsed ephemeral key so that it is decoded once
// no matter how many keys are tried against the output.
type preparedOutput struct {
	domain *Domain
	output *CompactOutput
	epk    btcec.JacobianPoint
}

// prepareOutput parses the output's ephemeral key. It reports false for
// outputs that no key can decrypt.
func prepareOutput(domain *Domain, output *CompactOutput) (*preparedOutput,
	bool) {

	epk, err := parsePoint(output.EphemeralKey)
	if err != nil {
		return nil, false
	}

	return &preparedOutput{
		domain: domain,
		output: output,
		epk:    epk,
	}, true
}

// tryKey attempts to decrypt the output with ivk.
func (p *preparedOutput) tryKey(ivk *IncomingViewingKey) (Note,
	PaymentAddress, bool) {

	var shared btcec.JacobianPoint
	btcec.ScalarMultNonConst(&ivk.scalar, &p.epk, &shared)

	key := kdf(&shared, &p.output.EphemeralKey)
	defer zero.Bytea32(&key)

	var pt [CompactNoteSize]byte
	defer zero.Bytes(pt[:])
	if err := applyKeystream(&key, pt[:], p.output.Ciphertext[:]); err != nil {
		return Note{}, PaymentAddress{}, false
	}

	if !p.domain.allowsLeadByte(pt[0]) {
		return Note{}, PaymentAddress{}, false
	}
	note, d, ok := parseCompactPlaintext(&pt)
	if !ok {
		return Note{}, PaymentAddress{}, false
	}

	gd, err := diversifiedBase(d)
	if err != nil {
		return Note{}, PaymentAddress{}, false
	}
	addr := PaymentAddress{
		Diversifier: d,
		PkD:         ivk.transmissionKey(&gd),
	}

	if note.commitment(&addr) != p.output.Cmu {
		return Note{}, PaymentAddress{}, false
	}

	// Version 2 plaintexts also commit to the ephemeral key.
	if note.LeadByte == LeadByteV2 {
		esk := note.esk()
		var epk btcec.JacobianPoint
		btcec.ScalarMultNonConst(&esk, &gd, &epk)
		zero.Scalar(&esk)

		if serializePoint(&epk) != p.output.EphemeralKey {
			return Note{}, PaymentAddress{}, false
		}
	}

	return note, addr, true
}

// tryKeys tries every key in order and returns the first match.
func (p *preparedOutput) tryKeys(
	ivks []*IncomingViewingKey) fn.Option[Decryption] {

	for i, ivk := range ivks {
		note, addr, ok := p.tryKey(ivk)
		if !ok {
			continue
		}

		return fn.Some(Decryption{
			Note:      note,
			Recipient: addr,
			KeyIndex:  i,
		})
	}

	return fn.None[Decryption]()
}

// TryCompactNoteDecryption attempts to decrypt a single output with a single
// key. The returned KeyIndex is always zero.
func TryCompactNoteDecryption(domain *Domain, ivk *IncomingViewingKey,
	output *CompactOutput) fn.Option[Decryption] {

	prepared, ok := prepareOutput(domain, output)
	if !ok {
		return fn.None[Decryption]()
	}

	return prepared.tryKeys([]*IncomingViewingKey{ivk})
}
