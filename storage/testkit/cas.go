// Package testkit provides a conformance suite that every CAS adapter must pass.
package testkit

import (
	"bytes"
	"sync"
	"testing"

	"github.com/danvoulez/rho-circles/cidutil"
	"github.com/danvoulez/rho-circles/storage"
)

// NewCAS constructs a fresh, empty CAS instance for a test.
// The returned CAS MUST be isolated from other tests.
type NewCAS func(t *testing.T) storage.CAS

func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		want := []byte("hello, rho storage")

		id, err := cas.Put(want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if wantID := cidutil.Sum(want); id != wantID {
			t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
		}

		got, err := cas.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
		if cidutil.Sum(got) != id {
			t.Fatalf("Get returned bytes not matching requested CID")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("same bytes")

		id1, err := cas.Put(b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := cas.Put(b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("missing")
		id := cidutil.Sum(b)

		if cas.Has(id) {
			t.Fatalf("Has returned true for missing CID")
		}
		if _, err := cas.Get(id); !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if _, err := cas.Put(b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !cas.Has(id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		cas := newCAS(t)
		var undef cidutil.CID
		if cas.Has(undef) {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := cas.Get(undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})

	t.Run("ConcurrentPutConverges", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("raced bytes")
		want := cidutil.Sum(b)

		const writers = 8
		var wg sync.WaitGroup
		ids := make([]cidutil.CID, writers)
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ids[i], errs[i] = cas.Put(b)
			}(i)
		}
		wg.Wait()

		for i := 0; i < writers; i++ {
			if errs[i] != nil {
				t.Fatalf("concurrent Put failed: %v", errs[i])
			}
			if ids[i] != want {
				t.Fatalf("concurrent Put diverged: %s vs %s", ids[i], want)
			}
		}
		got, err := cas.Get(want)
		if err != nil || !bytes.Equal(got, b) {
			t.Fatalf("bytes corrupted after concurrent Put: %v", err)
		}
	})
}
