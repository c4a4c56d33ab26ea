package storage

import "errors"

var (
	ErrNotFound    = errors.New("storage: not found")
	ErrInvalidCID  = errors.New("storage: invalid cid")
	ErrCIDMismatch = errors.New("storage: cid mismatch")
	ErrImmutable   = errors.New("storage: immutable object mismatch")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsIntegrityViolation reports whether err indicates stored bytes that do not
// match their CID, or an attempt to overwrite an immutable entry.
func IsIntegrityViolation(err error) bool {
	return errors.Is(err, ErrCIDMismatch) || errors.Is(err, ErrImmutable)
}
