package storage

import "github.com/danvoulez/rho-circles/cidutil"

// CAS is a minimal content-addressable storage interface.
//
// Contract:
// - Put MUST be idempotent and key bytes strictly by their BLAKE3 digest.
// - Stored objects MUST be immutable; entries never mutate and never delete.
// - Get MUST return ErrNotFound when the CID is absent.
// - Implementations MUST be safe for concurrent readers and writers.
type CAS interface {
	Put(bytes []byte) (cidutil.CID, error)
	Get(id cidutil.CID) ([]byte, error)
	Has(id cidutil.CID) bool
}
