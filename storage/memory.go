package storage

import (
	"bytes"
	"sync"

	"github.com/danvoulez/rho-circles/cidutil"
)

// Memory is the process-local CAS: a keyed map behind a mutex.
//
// Writes of identical bytes from concurrent callers converge to the same CID:
// the first Put stores the bytes, and racing Puts of the same bytes find the
// stored copy and return its CID.
type Memory struct {
	mu sync.RWMutex
	m  map[cidutil.CID][]byte
}

var _ CAS = (*Memory)(nil)

// NewMemory returns an empty in-memory CAS.
func NewMemory() *Memory {
	return &Memory{m: make(map[cidutil.CID][]byte)}
}

func (s *Memory) Put(b []byte) (cidutil.CID, error) {
	id := cidutil.Sum(b)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.m[id]; ok {
		if !bytes.Equal(existing, b) {
			return cidutil.CID{}, ErrImmutable
		}
		return id, nil
	}
	stored := make([]byte, len(b))
	copy(stored, b)
	s.m[id] = stored
	return id, nil
}

func (s *Memory) Get(id cidutil.CID) ([]byte, error) {
	if !id.Defined() {
		return nil, ErrInvalidCID
	}
	s.mu.RLock()
	b, ok := s.m[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (s *Memory) Has(id cidutil.CID) bool {
	if !id.Defined() {
		return false
	}
	s.mu.RLock()
	_, ok := s.m[id]
	s.mu.RUnlock()
	return ok
}

// Len reports the number of stored entries.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
