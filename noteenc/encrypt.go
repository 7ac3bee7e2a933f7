package noteenc

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/shieldscan/internal/zero"
	"golang.org/x/crypto/chacha20"
)

// ErrUnknownLeadByte is returned when encrypting a note with an unsupported
// plaintext version.
var ErrUnknownLeadByte = errors.New("unknown note plaintext lead byte")

// zeroNonce is used with every derived key; each key encrypts exactly one
// plaintext.
var zeroNonce [chacha20.NonceSize]byte

// kdf derives the symmetric key from the shared point and the ephemeral key.
// The shared point is cleared.
func kdf(shared *btcec.JacobianPoint, epk *[PointSize]byte) [32]byte {
	shared.ToAffine()
	x := shared.X.Bytes()
	key := hashParts(kdfTag, x[:], epk[:])

	zero.Bytea32(x)
	zero.Point(shared)

	return key
}

// applyKeystream XORs src with the ChaCha20 keystream of key into dst.
func applyKeystream(key *[32]byte, dst, src []byte) error {
	c, err := chacha20.NewUnauthenticatedCipher(key[:], zeroNonce[:])
	if err != nil {
		return err
	}
	c.XORKeyStream(dst, src)

	return nil
}

// Encrypt produces the compact output paying note to addr.
func Encrypt(addr PaymentAddress, note Note) (CompactOutput, error) {
	var out CompactOutput

	if note.LeadByte != LeadByteV1 && note.LeadByte != LeadByteV2 {
		return out, fmt.Errorf("%w: %#x", ErrUnknownLeadByte,
			note.LeadByte)
	}

	gd, err := diversifiedBase(addr.Diversifier)
	if err != nil {
		return out, err
	}
	pkd, err := parsePoint(addr.PkD)
	if err != nil {
		return out, fmt.Errorf("invalid transmission key: %w", err)
	}

	esk := note.esk()
	defer zero.Scalar(&esk)
	if esk.IsZero() {
		return out, ErrInvalidKey
	}

	var epk, shared btcec.JacobianPoint
	btcec.ScalarMultNonConst(&esk, &gd, &epk)
	btcec.ScalarMultNonConst(&esk, &pkd, &shared)
	out.EphemeralKey = serializePoint(&epk)

	key := kdf(&shared, &out.EphemeralKey)
	defer zero.Bytea32(&key)

	pt := note.compactPlaintext(addr.Diversifier)
	defer zero.Bytes(pt[:])
	if err := applyKeystream(&key, out.Ciphertext[:], pt[:]); err != nil {
		return out, err
	}
	out.Cmu = note.commitment(&addr)

	return out, nil
}
