package ledger

import (
	"testing"

	"github.com/danvoulez/rho-circles/policy"
	"github.com/danvoulez/rho-circles/receipt"
	"github.com/danvoulez/rho-circles/storage"
)

func testProof() policy.Proof {
	return policy.Proof{Algorithm: policy.AlgEd25519, PublicKey: []byte{1}, Signature: []byte{2}}
}

func emit(t *testing.T, v any) *receipt.Receipt {
	t.Helper()
	rc, err := receipt.Emit(v)
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}
	return rc
}

func TestAppendAndWalk(t *testing.T) {
	cas := storage.NewMemory()
	l := New(cas)

	if _, ok := l.Head(); ok {
		t.Fatalf("fresh ledger must have no head")
	}

	var heads []string
	for i := int64(0); i < 3; i++ {
		id, err := l.Append(emit(t, map[string]any{"seq": i}))
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		heads = append(heads, id.String())
	}

	head, ok := l.Head()
	if !ok || head.String() != heads[2] {
		t.Fatalf("head must be the newest entry")
	}

	// Walk visits newest-first.
	var seen []int64
	err := l.Walk(func(e Entry) error {
		body := e.Receipt.Body.(map[string]any)
		seen = append(seen, body["seq"].(int64))
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(seen) != 3 || seen[0] != 2 || seen[1] != 1 || seen[2] != 0 {
		t.Fatalf("walk order = %v, want [2 1 0]", seen)
	}
}

func TestChainIsDeterministic(t *testing.T) {
	build := func() string {
		l := New(storage.NewMemory())
		for i := int64(0); i < 3; i++ {
			if _, err := l.Append(emit(t, map[string]any{"seq": i})); err != nil {
				t.Fatalf("Append: %v", err)
			}
		}
		head, _ := l.Head()
		return head.String()
	}
	if build() != build() {
		t.Fatalf("identical appends must produce identical head CIDs")
	}
}

func TestOpenResumesChain(t *testing.T) {
	cas := storage.NewMemory()
	l := New(cas)
	if _, err := l.Append(emit(t, map[string]any{"n": int64(1)})); err != nil {
		t.Fatalf("Append: %v", err)
	}
	head, _ := l.Head()

	resumed, err := Open(cas, head)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := resumed.Append(emit(t, map[string]any{"n": int64(2)})); err != nil {
		t.Fatalf("Append after Open: %v", err)
	}
	count, err := resumed.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if count != 2 {
		t.Fatalf("resumed chain length = %d, want 2", count)
	}
}

func TestSignaturesDoNotForkTheChain(t *testing.T) {
	// Two receipts over the same body, one signed: the ledger entries differ
	// (signatures are stored) but the receipt identity inside is the same.
	cas := storage.NewMemory()
	l := New(cas)

	plain := emit(t, map[string]any{"same": "body"})
	signed := emit(t, map[string]any{"same": "body"})
	signed.Sign(testProof())

	if _, err := l.Append(plain); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := l.Append(signed); err != nil {
		t.Fatalf("Append: %v", err)
	}

	var ids []string
	err := l.Walk(func(e Entry) error {
		ids = append(ids, e.Receipt.Recibo.ContentCID.String())
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if ids[0] != ids[1] {
		t.Fatalf("content CIDs must agree regardless of signatures")
	}
}
