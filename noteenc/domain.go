package noteenc

// Zip212Enforcement describes which plaintext versions are valid at a given
// height.
type Zip212Enforcement uint8

const (
	// Zip212Off accepts only version 1 plaintexts.
	Zip212Off Zip212Enforcement = iota

	// Zip212GracePeriod accepts both versions while senders upgrade.
	Zip212GracePeriod

	// Zip212On accepts only version 2 plaintexts.
	Zip212On
)

// String returns a human readable name of the enforcement rule.
func (z Zip212Enforcement) String() string {
	switch z {
	case Zip212Off:
		return "off"
	case Zip212GracePeriod:
		return "grace period"
	case Zip212On:
		return "on"
	default:
		return "unknown"
	}
}

// Params holds the activation heights that decide plaintext validity.
type Params struct {
	// Zip212Height is the first height at which version 2 plaintexts
	// are accepted.
	Zip212Height uint32

	// GracePeriodEnd is the first height at which version 1 plaintexts
	// are rejected.
	GracePeriodEnd uint32
}

// Zip212Enforcement returns the rule in force at height.
func (p *Params) Zip212Enforcement(height uint32) Zip212Enforcement {
	switch {
	case height < p.Zip212Height:
		return Zip212Off
	case height < p.GracePeriodEnd:
		return Zip212GracePeriod
	default:
		return Zip212On
	}
}

// Domain is the context needed to interpret a single output's ciphertext.
// A fresh Domain is used for every output.
type Domain struct {
	zip212 Zip212Enforcement
}

// NewDomain returns a domain enforcing the given rule.
func NewDomain(zip212 Zip212Enforcement) *Domain {
	return &Domain{zip212: zip212}
}

// Zip212 returns the enforcement rule of the domain.
func (d *Domain) Zip212() Zip212Enforcement {
	return d.zip212
}

// allowsLeadByte reports whether a plaintext version is valid here.
func (d *Domain) allowsLeadByte(lead byte) bool {
	switch lead {
	case LeadByteV1:
		return d.zip212 != Zip212On
	case LeadByteV2:
		return d.zip212 != Zip212Off
	default:
		return false
	}
}
