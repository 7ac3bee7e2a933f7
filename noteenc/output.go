package noteenc

// CompactOutput is the fixed size part of a shielded output that is needed
// for trial decryption.
type CompactOutput struct {
	// EphemeralKey is the compressed epk = esk * G_d.
	EphemeralKey [PointSize]byte

	// Cmu is the note commitment.
	Cmu [32]byte

	// Ciphertext is the encrypted compact note plaintext.
	Ciphertext [CompactNoteSize]byte
}

// DomainOutput pairs an output with the domain it is decrypted under.
type DomainOutput struct {
	Domain *Domain
	Output CompactOutput
}
