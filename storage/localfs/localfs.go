// Package localfs is a filesystem-backed CAS adapter.
//
// The compute core itself never touches the filesystem; this adapter lives
// behind the storage.CAS boundary for callers that need persistence.
package localfs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"github.com/danvoulez/rho-circles/cidutil"
	"github.com/danvoulez/rho-circles/storage"
)

// CAS is a local filesystem-backed content-addressable store.
//
// Objects are stored immutably and keyed strictly by CID. This implementation
// is offline and deterministic: it never uses the network and never depends on
// wall-clock time.
type CAS struct {
	root string
}

var _ storage.CAS = (*CAS)(nil)

// New constructs a filesystem CAS rooted at root. The directory will be created if needed.
func New(root string) (*CAS, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &CAS{root: root}, nil
}

func (c *CAS) Put(b []byte) (cidutil.CID, error) {
	id := cidutil.Sum(b)

	path := c.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cidutil.CID{}, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := c.Get(id)
			if rerr != nil {
				// If the file exists but is unreadable or corrupted, treat as an immutability violation.
				return cidutil.CID{}, storage.ErrImmutable
			}
			if !bytes.Equal(existing, b) {
				return cidutil.CID{}, storage.ErrImmutable
			}
			return id, nil
		}
		return cidutil.CID{}, err
	}
	defer f.Close()

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cidutil.CID{}, err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cidutil.CID{}, err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return cidutil.CID{}, err
	}

	return id, nil
}

func (c *CAS) Get(id cidutil.CID) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	b, err := os.ReadFile(c.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if cidutil.Sum(b) != id {
		return nil, storage.ErrCIDMismatch
	}
	return b, nil
}

func (c *CAS) Has(id cidutil.CID) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(c.pathFor(id))
	return err == nil
}

func (c *CAS) pathFor(id cidutil.CID) string {
	s := id.String()
	return filepath.Join(c.root, s[:2], s)
}
