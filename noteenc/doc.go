// Package noteenc implements compact note encryption for shielded outputs and
// the batched trial decryption used by the scanner.
//
// A payment address is a diversifier d together with a transmission key
// pk_d = ivk * G_d, where G_d = H(d) * G on secp256k1. The sender picks an
// ephemeral secret esk, publishes epk = esk * G_d, and both sides derive the
// symmetric key from the shared point esk * pk_d = ivk * epk. Only the
// 52-byte compact plaintext is encrypted; ownership is confirmed by
// recomputing the note commitment, and for version 2 notes the ephemeral
// key, from the decrypted plaintext.
package noteenc
