// Package ledger keeps an append-only chain of receipts in CAS.
//
// Each entry is a canonical mapping {prev, rc} where prev is the CID of the
// previous entry (absent for the first). The head CID identifies the whole
// history; replaying the chain is deterministic.
package ledger

import (
	"errors"
	"sync"

	"github.com/danvoulez/rho-circles/canon"
	"github.com/danvoulez/rho-circles/cidutil"
	"github.com/danvoulez/rho-circles/receipt"
	"github.com/danvoulez/rho-circles/storage"
)

// Ledger is an append-only receipt log. The head pointer is the only mutable
// state; entries themselves are immutable CAS objects.
type Ledger struct {
	cas storage.CAS

	mu   sync.Mutex
	head cidutil.CID
}

// New returns an empty ledger writing into cas.
func New(cas storage.CAS) *Ledger {
	return &Ledger{cas: cas}
}

// Open returns a ledger resuming from an existing head entry.
func Open(cas storage.CAS, head cidutil.CID) (*Ledger, error) {
	if head.Defined() && !cas.Has(head) {
		return nil, storage.ErrNotFound
	}
	return &Ledger{cas: cas, head: head}, nil
}

// Head returns the CID of the newest entry; ok is false for an empty ledger.
func (l *Ledger) Head() (cidutil.CID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.head, l.head.Defined()
}

// Append stores rc as the new head entry and returns the entry CID.
func (l *Ledger) Append(rc *receipt.Receipt) (cidutil.CID, error) {
	if rc == nil {
		return cidutil.CID{}, errors.New("ledger: nil receipt")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := map[string]any{"rc": rc.Value()}
	if l.head.Defined() {
		entry["prev"] = l.head.String()
	}
	n, err := canon.Normalize(entry)
	if err != nil {
		return cidutil.CID{}, err
	}
	id, err := l.cas.Put(n.Canonical)
	if err != nil {
		return cidutil.CID{}, err
	}
	if id != n.CID {
		return cidutil.CID{}, storage.ErrCIDMismatch
	}
	l.head = id
	return id, nil
}

// Entry is one replayed ledger record.
type Entry struct {
	CID     cidutil.CID
	Receipt *receipt.Receipt
}

// Walk replays the chain from the head backwards, calling fn for each entry.
// Walking a ledger twice visits identical entries in identical order.
func (l *Ledger) Walk(fn func(Entry) error) error {
	l.mu.Lock()
	cursor := l.head
	l.mu.Unlock()

	for cursor.Defined() {
		b, err := l.cas.Get(cursor)
		if err != nil {
			return err
		}
		n, err := canon.ParseNormalized(b)
		if err != nil {
			return err
		}
		m, ok := n.Value.(map[string]any)
		if !ok {
			return errors.New("ledger: entry is not a mapping")
		}
		rc, err := receipt.FromValue(m["rc"])
		if err != nil {
			return err
		}
		if err := fn(Entry{CID: cursor, Receipt: rc}); err != nil {
			return err
		}

		prev, present := m["prev"]
		if !present {
			return nil
		}
		prevStr, ok := prev.(string)
		if !ok {
			return errors.New("ledger: prev must be a CID string")
		}
		if cursor, err = cidutil.Parse(prevStr); err != nil {
			return err
		}
	}
	return nil
}

// Len replays the chain and counts entries.
func (l *Ledger) Len() (int, error) {
	count := 0
	err := l.Walk(func(Entry) error {
		count++
		return nil
	})
	return count, err
}
