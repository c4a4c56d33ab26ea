package judge

import (
	"errors"
	"testing"

	"github.com/danvoulez/rho-circles/canon"
	"github.com/danvoulez/rho-circles/cidutil"
	"github.com/danvoulez/rho-circles/policy"
	"github.com/danvoulez/rho-circles/storage"
)

func store(t *testing.T, cas storage.CAS, v any) cidutil.CID {
	t.Helper()
	n, err := canon.Normalize(v)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	id, err := cas.Put(n.Canonical)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	return id
}

func openDoc() map[string]any {
	return map[string]any{"default": "true"}
}

func closedDoc() map[string]any {
	return map[string]any{"default": "false"}
}

func TestConsultRecordsExchange(t *testing.T) {
	cas := storage.NewMemory()
	promptCID := store(t, cas, map[string]any{"question": "is this canonical?"})
	policyCID := store(t, cas, openDoc())

	gw := GatewayFunc(func(prompt any) (any, error) {
		m := prompt.(map[string]any)
		return map[string]any{"answer": "yes", "echo": m["question"]}, nil
	})
	j := &Judge{CAS: cas, Gateway: gw}

	rc, err := j.Consult(promptCID, policyCID, "alice", nil)
	if err != nil {
		t.Fatalf("Consult: %v", err)
	}

	body := rc.Body.(map[string]any)
	if body["prompt_cid"] != promptCID.String() {
		t.Fatalf("receipt must bind the prompt CID")
	}
	respCIDStr := body["response_cid"].(string)
	respCID, err := cidutil.Parse(respCIDStr)
	if err != nil {
		t.Fatalf("Parse response CID: %v", err)
	}
	stored, err := cas.Get(respCID)
	if err != nil {
		t.Fatalf("response must be stored in CAS: %v", err)
	}
	n, err := canon.ParseNormalized(stored)
	if err != nil {
		t.Fatalf("ParseNormalized: %v", err)
	}
	if n.Value.(map[string]any)["answer"] != "yes" {
		t.Fatalf("stored response mismatch")
	}
}

func TestConsultDeniedByPolicy(t *testing.T) {
	cas := storage.NewMemory()
	promptCID := store(t, cas, map[string]any{"question": "?"})
	policyCID := store(t, cas, closedDoc())

	called := false
	j := &Judge{CAS: cas, Gateway: GatewayFunc(func(any) (any, error) {
		called = true
		return nil, nil
	})}

	_, err := j.Consult(promptCID, policyCID, "mallory", nil)
	if !policy.IsKind(err, policy.KindDenied) {
		t.Fatalf("got %v, want Denied", err)
	}
	if called {
		t.Fatalf("gateway must not run when the policy denies")
	}
}

func TestConsultGatewayFailure(t *testing.T) {
	cas := storage.NewMemory()
	promptCID := store(t, cas, map[string]any{"question": "?"})
	policyCID := store(t, cas, openDoc())

	boom := errors.New("upstream unavailable")
	j := &Judge{CAS: cas, Gateway: GatewayFunc(func(any) (any, error) { return nil, boom })}

	if _, err := j.Consult(promptCID, policyCID, "alice", nil); !errors.Is(err, boom) {
		t.Fatalf("gateway errors must propagate: %v", err)
	}
}

func TestConsultRejectsInadmissibleResponse(t *testing.T) {
	cas := storage.NewMemory()
	promptCID := store(t, cas, map[string]any{"question": "?"})
	policyCID := store(t, cas, openDoc())

	j := &Judge{CAS: cas, Gateway: GatewayFunc(func(any) (any, error) {
		return map[string]any{"score": 0.5}, nil
	})}

	if _, err := j.Consult(promptCID, policyCID, "alice", nil); !canon.IsKind(err, canon.KindNonIntegerNumber) {
		t.Fatalf("non-admitted gateway output must be rejected: %v", err)
	}
}

func TestConsultMissingPrompt(t *testing.T) {
	cas := storage.NewMemory()
	policyCID := store(t, cas, openDoc())
	missing := cidutil.Sum([]byte("absent prompt"))

	j := &Judge{CAS: cas, Gateway: GatewayFunc(func(any) (any, error) { return nil, nil })}
	if _, err := j.Consult(missing, policyCID, "alice", nil); !storage.IsNotFound(err) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
