// Copyright (c) 2015 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package zero contains functions to clear secret scalars, curve points and
// derived symmetric keys from memory once a trial decryption is done with
// them.
package zero

import (
	"github.com/btcsuite/btcd/btcec/v2"
)

// Bytes sets all bytes in the passed slice to zero.
//
// Prefer Bytea32 for fixed size keys.
func Bytes(b []byte) {
	clear(b)
}

// Bytea32 clears the 32-byte array by filling it with the zero value.
// This is used to explicitly clear symmetric keys and shared secrets.
func Bytea32(b *[32]byte) {
	*b = [32]byte{}
}

// Scalar clears a secret scalar such as an ephemeral secret key.
func Scalar(s *btcec.ModNScalar) {
	s.Zero()
}

// Point clears the coordinates of a Diffie-Hellman shared point.
func Point(p *btcec.JacobianPoint) {
	p.X.Zero()
	p.Y.Zero()
	p.Z.Zero()
}
