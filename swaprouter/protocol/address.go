package protocol

import (
	"bytes"
	"crypto/sha512"
	"encoding/base32"
	"encoding/binary"
	"fmt"
)

const (
	AddressLength  = 32
	checksumLength = 4
)

var addressEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Address is a 32-byte account key. Its text form is the base32 encoding of the key
// followed by the last 4 bytes of its SHA-512/256 digest.
type Address [AddressLength]byte

// ZeroAddress pads pool arrays and marks an unset pending manager.
var ZeroAddress Address

func (a Address) IsZero() bool {
	return a == ZeroAddress
}

func (a Address) String() string {
	sum := sha512.Sum512_256(a[:])
	buf := make([]byte, 0, AddressLength+checksumLength)
	buf = append(buf, a[:]...)
	buf = append(buf, sum[len(sum)-checksumLength:]...)
	return addressEncoding.EncodeToString(buf)
}

// ParseAddress decodes the text form and verifies the checksum.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw, err := addressEncoding.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("failed to decode address %q: %w", s, err)
	}
	if len(raw) != AddressLength+checksumLength {
		return a, fmt.Errorf("address %q has %d bytes, want %d", s, len(raw), AddressLength+checksumLength)
	}
	copy(a[:], raw[:AddressLength])
	sum := sha512.Sum512_256(a[:])
	if !bytes.Equal(raw[AddressLength:], sum[len(sum)-checksumLength:]) {
		return Address{}, fmt.Errorf("address %q has a bad checksum", s)
	}
	return a, nil
}

// AddressFromBytes copies a raw 32-byte key.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLength {
		return a, fmt.Errorf("%w: address must be %d bytes, got %d", ErrMalformedArgs, AddressLength, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// AppAddress is the account controlled by an application.
func AppAddress(appID uint64) Address {
	buf := make([]byte, 0, 13)
	buf = append(buf, "appID"...)
	buf = binary.BigEndian.AppendUint64(buf, appID)
	return Address(sha512.Sum512_256(buf))
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
