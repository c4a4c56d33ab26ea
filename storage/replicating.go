package storage

import (
	"fmt"

	"github.com/danvoulez/rho-circles/cidutil"
)

// NamedCAS associates a CAS with a stable backend name.
//
// This is used for multi-backend orchestration where callers need to retain
// per-backend metadata (e.g., for reporting or auditing).
type NamedCAS struct {
	Name string
	CAS  CAS
}

// ReplicatingCAS writes to all configured backends.
//
// Reads fall back in order. Writes go to all backends and require all returned
// CIDs to match (otherwise ErrCIDMismatch is returned).
//
// Use PutAll when you need the per-backend CID mapping.
type ReplicatingCAS struct {
	Backends []NamedCAS
}

var _ CAS = ReplicatingCAS{}

// PutAll writes the same bytes to all backends.
//
// It returns the canonical CID (computed from bytes) and a map of backend
// name -> returned CID. If any backend returns a different CID,
// ErrCIDMismatch is returned.
func (r ReplicatingCAS) PutAll(bytes []byte) (cidutil.CID, map[string]cidutil.CID, error) {
	want := cidutil.Sum(bytes)
	if len(r.Backends) == 0 {
		return cidutil.CID{}, nil, fmt.Errorf("storage: ReplicatingCAS has no backends")
	}

	out := make(map[string]cidutil.CID, len(r.Backends))
	for _, b := range r.Backends {
		if b.CAS == nil {
			return cidutil.CID{}, nil, fmt.Errorf("storage: nil CAS for backend %q", b.Name)
		}
		got, err := b.CAS.Put(bytes)
		if err != nil {
			return cidutil.CID{}, nil, err
		}
		out[b.Name] = got
		if got != want {
			return cidutil.CID{}, out, ErrCIDMismatch
		}
	}
	return want, out, nil
}

func (r ReplicatingCAS) Put(bytes []byte) (cidutil.CID, error) {
	id, _, err := r.PutAll(bytes)
	return id, err
}

func (r ReplicatingCAS) Get(id cidutil.CID) ([]byte, error) {
	for _, b := range r.Backends {
		if b.CAS == nil {
			continue
		}
		out, err := b.CAS.Get(id)
		if err == nil {
			return out, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (r ReplicatingCAS) Has(id cidutil.CID) bool {
	for _, b := range r.Backends {
		if b.CAS != nil && b.CAS.Has(id) {
			return true
		}
	}
	return false
}
