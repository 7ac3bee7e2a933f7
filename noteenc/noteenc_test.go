package noteenc

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"
)

// testKey derives a deterministic incoming viewing key from a single byte.
func testKey(t *testing.T, b byte) *IncomingViewingKey {
	t.Helper()

	ivk, err := NewIncomingViewingKey([32]byte{b})
	require.NoError(t, err)

	return ivk
}

// testOutput encrypts a note of the given value to ivk's address for
// diversifier d.
func testOutput(t *testing.T, ivk *IncomingViewingKey, d byte,
	value btcutil.Amount, lead byte) (CompactOutput, PaymentAddress, Note) {

	t.Helper()

	addr, err := ivk.Address(Diversifier{d})
	require.NoError(t, err)

	note := Note{
		Value:    value,
		Rseed:    [32]byte{d, byte(value), lead},
		LeadByte: lead,
	}
	out, err := Encrypt(addr, note)
	require.NoError(t, err)

	return out, addr, note
}

// TestEncryptDecryptRoundTrip ensures that a note encrypted to an address is
// recovered by the matching key for both plaintext versions.
func TestEncryptDecryptRoundTrip(t *testing.T) {
	t.Parallel()

	ivk := testKey(t, 1)

	tests := []struct {
		name string
		lead byte
	}{
		{name: "v1", lead: LeadByteV1},
		{name: "v2", lead: LeadByteV2},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, addr, note := testOutput(t, ivk, 7, 5000, test.lead)

			result := TryCompactNoteDecryption(
				NewDomain(Zip212GracePeriod), ivk, &out,
			)
			require.True(t, result.IsSome())

			dec := result.UnsafeFromSome()
			require.Equal(t, note, dec.Note)
			require.Equal(t, addr, dec.Recipient)
			require.Zero(t, dec.KeyIndex)
		})
	}
}

// TestDecryptWrongKey ensures a foreign key never decrypts an output.
func TestDecryptWrongKey(t *testing.T) {
	t.Parallel()

	owner := testKey(t, 1)
	other := testKey(t, 2)
	out, _, _ := testOutput(t, owner, 3, 100, LeadByteV2)

	result := TryCompactNoteDecryption(NewDomain(Zip212On), other, &out)
	require.True(t, result.IsNone())
}

// TestDomainLeadByteEnforcement checks which plaintext versions each
// enforcement rule accepts.
func TestDomainLeadByteEnforcement(t *testing.T) {
	t.Parallel()

	ivk := testKey(t, 9)
	v1, _, _ := testOutput(t, ivk, 1, 10, LeadByteV1)
	v2, _, _ := testOutput(t, ivk, 2, 20, LeadByteV2)

	tests := []struct {
		zip212 Zip212Enforcement
		v1Ok   bool
		v2Ok   bool
	}{
		{zip212: Zip212Off, v1Ok: true, v2Ok: false},
		{zip212: Zip212GracePeriod, v1Ok: true, v2Ok: true},
		{zip212: Zip212On, v1Ok: false, v2Ok: true},
	}
	for _, test := range tests {
		t.Run(test.zip212.String(), func(t *testing.T) {
			domain := NewDomain(test.zip212)
			require.Equal(t, test.zip212, domain.Zip212())

			got := TryCompactNoteDecryption(domain, ivk, &v1)
			require.Equal(t, test.v1Ok, got.IsSome())

			got = TryCompactNoteDecryption(domain, ivk, &v2)
			require.Equal(t, test.v2Ok, got.IsSome())
		})
	}
}

// TestDecryptTampered ensures that modifying any part of an output breaks
// decryption.
func TestDecryptTampered(t *testing.T) {
	t.Parallel()

	ivk := testKey(t, 4)
	domain := NewDomain(Zip212On)
	other, _, _ := testOutput(t, ivk, 99, 1, LeadByteV2)

	tests := []struct {
		name   string
		tamper func(o *CompactOutput)
	}{
		{
			name:   "commitment",
			tamper: func(o *CompactOutput) { o.Cmu[0] ^= 1 },
		},
		{
			name:   "ciphertext value",
			tamper: func(o *CompactOutput) { o.Ciphertext[13] ^= 1 },
		},
		{
			name: "ephemeral key replaced",
			tamper: func(o *CompactOutput) {
				o.EphemeralKey = other.EphemeralKey
			},
		},
		{
			name:   "ephemeral key garbage",
			tamper: func(o *CompactOutput) { o.EphemeralKey[0] = 0x05 },
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, _, _ := testOutput(t, ivk, 1, 1234, LeadByteV2)
			test.tamper(&out)

			got := TryCompactNoteDecryption(domain, ivk, &out)
			require.True(t, got.IsNone())
		})
	}
}

// TestEncryptUnknownLeadByte ensures only known plaintext versions are
// produced.
func TestEncryptUnknownLeadByte(t *testing.T) {
	t.Parallel()

	addr, err := testKey(t, 1).Address(Diversifier{1})
	require.NoError(t, err)

	_, err = Encrypt(addr, Note{Value: 1, LeadByte: 0x03})
	require.ErrorIs(t, err, ErrUnknownLeadByte)
}

// TestDiversifiedAddresses ensures that different diversifiers of one key
// give unlinkable addresses that all decrypt under that key.
func TestDiversifiedAddresses(t *testing.T) {
	t.Parallel()

	ivk := testKey(t, 5)
	domain := NewDomain(Zip212On)

	seen := make(map[string]struct{})
	for d := byte(0); d < 8; d++ {
		out, addr, _ := testOutput(t, ivk, d, 1, LeadByteV2)

		_, dup := seen[addr.String()]
		require.False(t, dup)
		seen[addr.String()] = struct{}{}

		got := TryCompactNoteDecryption(domain, ivk, &out)
		require.True(t, got.IsSome())
		require.Equal(t, addr, got.UnsafeFromSome().Recipient)
	}
}

// TestParamsZip212Enforcement checks the height based rule selection.
func TestParamsZip212Enforcement(t *testing.T) {
	t.Parallel()

	params := &Params{Zip212Height: 100, GracePeriodEnd: 200}

	require.Equal(t, Zip212Off, params.Zip212Enforcement(0))
	require.Equal(t, Zip212Off, params.Zip212Enforcement(99))
	require.Equal(t, Zip212GracePeriod, params.Zip212Enforcement(100))
	require.Equal(t, Zip212GracePeriod, params.Zip212Enforcement(199))
	require.Equal(t, Zip212On, params.Zip212Enforcement(200))
}
