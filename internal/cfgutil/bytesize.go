package cfgutil

import (
	"github.com/dustin/go-humanize"
)

// ByteSizeFlag is a byte count that is read and written in human form, for
// example "64 MiB" or "1GB". A zero value means no size was given.
type ByteSizeFlag struct {
	Bytes uint64
}

// NewByteSizeFlag creates a ByteSizeFlag with a default size.
func NewByteSizeFlag(defaultValue uint64) *ByteSizeFlag {
	return &ByteSizeFlag{Bytes: defaultValue}
}

// MarshalFlag implements the flags.Marshaler interface.
func (b *ByteSizeFlag) MarshalFlag() (string, error) {
	if b.Bytes == 0 {
		return "0", nil
	}
	return humanize.IBytes(b.Bytes), nil
}

// UnmarshalFlag implements the flags.Unmarshaler interface.
func (b *ByteSizeFlag) UnmarshalFlag(value string) error {
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return err
	}
	b.Bytes = n

	return nil
}
