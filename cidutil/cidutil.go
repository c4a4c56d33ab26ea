// Package cidutil defines the content identifier used across the module:
// a 32-byte BLAKE3-256 digest rendered as base64url without padding.
package cidutil

import (
	"encoding/base64"
	"errors"

	"lukechampine.com/blake3"
)

// Size is the digest width in bytes.
const Size = 32

// EncodedLen is the length of the base64url rendering of a CID (no padding).
const EncodedLen = 43

// CID is a BLAKE3-256 digest of canonical bytes.
//
// The zero value is "undefined" and never matches the digest of real content.
type CID [Size]byte

var undef CID

// Sum computes the CID of data.
func Sum(data []byte) CID {
	return CID(blake3.Sum256(data))
}

// Defined reports whether c holds a digest (the zero value is reserved as undefined).
func (c CID) Defined() bool { return c != undef }

// String renders the CID as base64url without padding (43 characters).
func (c CID) String() string {
	return base64.RawURLEncoding.EncodeToString(c[:])
}

// Bytes returns the raw 32 digest bytes.
func (c CID) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, c[:])
	return out
}

var (
	ErrBadEncoding = errors.New("cidutil: invalid cid encoding")
	ErrBadLength   = errors.New("cidutil: invalid cid length")
)

// Parse decodes a base64url CID rendering.
func Parse(s string) (CID, error) {
	if len(s) != EncodedLen {
		return undef, ErrBadLength
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return undef, ErrBadEncoding
	}
	if len(b) != Size {
		return undef, ErrBadLength
	}
	var c CID
	copy(c[:], b)
	return c, nil
}

// FromBytes builds a CID from raw digest bytes.
func FromBytes(b []byte) (CID, error) {
	if len(b) != Size {
		return undef, ErrBadLength
	}
	var c CID
	copy(c[:], b)
	return c, nil
}
