package noteenc

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"golang.org/x/crypto/blake2b"
)

const (
	// DiversifierSize is the size of a serialized diversifier.
	DiversifierSize = 11

	// PointSize is the size of a compressed curve point.
	PointSize = 33
)

var (
	// ErrInvalidDiversifier is returned when a diversifier does not map
	// to a usable base point.
	ErrInvalidDiversifier = errors.New("invalid diversifier")

	// ErrInvalidKey is returned when key material reduces to zero.
	ErrInvalidKey = errors.New("invalid key material")
)

// Personalization tags keep the hash domains of the scheme apart.
var (
	ivkTag         = []byte("shieldscan:ivk")
	diversifierTag = []byte("shieldscan:gd")
	kdfTag         = []byte("shieldscan:kdf")
	noteCommitTag  = []byte("shieldscan:cm")
	rcmTag         = []byte("shieldscan:rcm")
	eskTag         = []byte("shieldscan:esk")
)

// hashToScalar hashes the tag and parts with BLAKE2b-256 and reduces the
// digest modulo the group order.
func hashToScalar(tag []byte, parts ...[]byte) btcec.ModNScalar {
	digest := hashParts(tag, parts...)

	var s btcec.ModNScalar
	s.SetByteSlice(digest[:])
	return s
}

// hashParts returns the BLAKE2b-256 digest of the tag followed by parts.
func hashParts(tag []byte, parts ...[]byte) [32]byte {
	// New256 only fails for keys longer than 64 bytes.
	h, _ := blake2b.New256(nil)
	h.Write(tag)
	for _, p := range parts {
		h.Write(p)
	}

	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}

// Diversifier selects one of the many payment addresses of a single
// incoming viewing key.
type Diversifier [DiversifierSize]byte

// diversifiedBase returns G_d for the diversifier.
func diversifiedBase(d Diversifier) (btcec.JacobianPoint, error) {
	var gd btcec.JacobianPoint

	s := hashToScalar(diversifierTag, d[:])
	if s.IsZero() {
		return gd, ErrInvalidDiversifier
	}
	btcec.ScalarBaseMultNonConst(&s, &gd)

	return gd, nil
}

// serializePoint returns the compressed encoding of p. The point is
// converted to affine coordinates in place.
func serializePoint(p *btcec.JacobianPoint) [PointSize]byte {
	p.ToAffine()

	var out [PointSize]byte
	copy(out[:], btcec.NewPublicKey(&p.X, &p.Y).SerializeCompressed())
	return out
}

// parsePoint decodes a compressed point.
func parsePoint(b [PointSize]byte) (btcec.JacobianPoint, error) {
	var p btcec.JacobianPoint

	pub, err := btcec.ParsePubKey(b[:])
	if err != nil {
		return p, err
	}
	pub.AsJacobian(&p)

	return p, nil
}

// PaymentAddress is a shielded address: a diversifier and the transmission
// key pk_d.
type PaymentAddress struct {
	Diversifier Diversifier
	PkD         [PointSize]byte
}

// String returns the hex encoding of the diversifier followed by pk_d.
func (a PaymentAddress) String() string {
	return hex.EncodeToString(a.Diversifier[:]) +
		hex.EncodeToString(a.PkD[:])
}

// IncomingViewingKey is the capability to detect and decrypt notes sent to
// any of its payment addresses. It is immutable once created and may be
// shared between goroutines.
type IncomingViewingKey struct {
	scalar btcec.ModNScalar
}

// NewIncomingViewingKey derives an incoming viewing key from a 32-byte seed.
func NewIncomingViewingKey(seed [32]byte) (*IncomingViewingKey, error) {
	s := hashToScalar(ivkTag, seed[:])
	if s.IsZero() {
		return nil, ErrInvalidKey
	}

	return &IncomingViewingKey{scalar: s}, nil
}

// Address returns the payment address for diversifier d.
func (k *IncomingViewingKey) Address(d Diversifier) (PaymentAddress, error) {
	gd, err := diversifiedBase(d)
	if err != nil {
		return PaymentAddress{}, fmt.Errorf("address for %x: %w", d, err)
	}

	return PaymentAddress{
		Diversifier: d,
		PkD:         k.transmissionKey(&gd),
	}, nil
}

// transmissionKey computes pk_d = ivk * G_d.
func (k *IncomingViewingKey) transmissionKey(
	gd *btcec.JacobianPoint) [PointSize]byte {

	var pkd btcec.JacobianPoint
	btcec.ScalarMultNonConst(&k.scalar, gd, &pkd)

	return serializePoint(&pkd)
}
