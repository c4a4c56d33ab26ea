package vm

import (
	"testing"

	"github.com/danvoulez/rho-circles/canon"
	"github.com/danvoulez/rho-circles/chip"
	"github.com/danvoulez/rho-circles/cidutil"
	"github.com/danvoulez/rho-circles/policy"
	"github.com/danvoulez/rho-circles/rb"
	"github.com/danvoulez/rho-circles/storage"
)

type acceptAll map[string]bool

func (a acceptAll) Verify(p policy.Proof, payload cidutil.CID) bool { return a[p.Algorithm] }

func compileSpec(t *testing.T, cas storage.CAS, spec map[string]any) cidutil.CID {
	t.Helper()
	out, err := chip.Compile(spec, cas)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return out.RBCID
}

func echoSpec() map[string]any {
	return map[string]any{
		"chip":    "echo",
		"version": "1.0.0",
		"type":    "module",
		"inputs":  map[string]any{},
		"outputs": map[string]any{"result": "r0"},
		"wiring": []any{
			map[string]any{"op": "normalize", "in": []any{"@input"}, "out": "r0"},
		},
	}
}

func TestExecEchoEndToEnd(t *testing.T) {
	cas := storage.NewMemory()
	rbCID := compileSpec(t, cas, echoSpec())
	m := &Machine{CAS: cas}

	inputs := map[string]any{"z": int64(1), "a": int64(2)}
	res, err := m.Exec(rbCID, inputs)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}

	wantNorm, err := canon.Normalize(inputs)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if res.ContentCID != wantNorm.CID {
		t.Fatalf("content CID must equal the normalized-inputs CID")
	}
	if string(canon.Serialize(res.Body)) != `{"a":2,"z":1}` {
		t.Fatalf("body = %s", canon.Serialize(res.Body))
	}
}

func TestExecDeterministic(t *testing.T) {
	cas := storage.NewMemory()
	rbCID := compileSpec(t, cas, echoSpec())
	m := &Machine{CAS: cas}

	inputs := map[string]any{"b": int64(2), "a": int64(1), "drop": nil}
	r1, err := m.Exec(rbCID, inputs)
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	r2, err := m.Exec(rbCID, map[string]any{"a": int64(1), "b": int64(2)})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if r1.ContentCID != r2.ContentCID {
		t.Fatalf("equal canonical inputs must yield equal content CIDs")
	}

	// Repeated compilation also lands on the same bytecode.
	if again := compileSpec(t, cas, echoSpec()); again != rbCID {
		t.Fatalf("recompilation changed rb_cid")
	}
}

func TestExecMissingBytecode(t *testing.T) {
	m := &Machine{CAS: storage.NewMemory()}
	missing := cidutil.Sum([]byte("no bytecode"))
	if _, err := m.Exec(missing, nil); !storage.IsNotFound(err) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestExecRejectsNonCanonicalInput(t *testing.T) {
	cas := storage.NewMemory()
	rbCID := compileSpec(t, cas, echoSpec())
	m := &Machine{CAS: cas}

	if _, err := m.Exec(rbCID, map[string]any{"x": 1.25}); !canon.IsKind(err, canon.KindNonIntegerNumber) {
		t.Fatalf("got %v, want NonIntegerNumber", err)
	}
}

func TestExecRejectsCorruptBytecode(t *testing.T) {
	cas := storage.NewMemory()
	// Store garbage under its own digest; decode must fail, not execute.
	id, err := cas.Put([]byte("XY99 definitely not bytecode, padded well past the fixed header length"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	m := &Machine{CAS: cas}
	if _, err := m.Exec(id, nil); !rb.IsKind(err, rb.KindBadMagic) {
		t.Fatalf("got %v, want BadMagic", err)
	}
}

func TestValidateOpcodeInsideModule(t *testing.T) {
	cas := storage.NewMemory()

	// Store a schema for the instance slot to be checked against.
	schemaVal := map[string]any{
		"type":     "object",
		"required": []any{"name"},
	}
	n, err := canon.Normalize(schemaVal)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	schemaCID, err := cas.Put(n.Canonical)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	spec := map[string]any{
		"chip": "gate", "version": "1.0.0", "type": "module",
		"inputs":  map[string]any{"doc": map[string]any{}, "schema_cid": map[string]any{}},
		"outputs": map[string]any{"verdict": "checked"},
		"wiring": []any{
			map[string]any{"op": "validate", "in": []any{"@input.doc", "@input.schema_cid"}, "out": "checked"},
		},
	}
	rbCID := compileSpec(t, cas, spec)
	m := &Machine{CAS: cas}

	res, err := m.Exec(rbCID, map[string]any{
		"doc":        map[string]any{"name": "ok"},
		"schema_cid": schemaCID.String(),
	})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	body, ok := res.Body.(map[string]any)
	if !ok || body["valid"] != true {
		t.Fatalf("unexpected validate result: %s", canon.Serialize(res.Body))
	}

	res, err = m.Exec(rbCID, map[string]any{
		"doc":        map[string]any{"other": int64(1)},
		"schema_cid": schemaCID.String(),
	})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	body = res.Body.(map[string]any)
	if body["valid"] != false {
		t.Fatalf("expected invalid verdict")
	}
}

func TestPolicyEvalOpcode(t *testing.T) {
	cas := storage.NewMemory()
	spec := map[string]any{
		"chip": "authorize", "version": "1.0.0", "type": "module",
		"inputs":  map[string]any{"policy": map[string]any{}, "proofs": map[string]any{}},
		"outputs": map[string]any{"decision": "d"},
		"wiring": []any{
			map[string]any{"op": "policy.eval", "in": []any{"@input.policy", "@input.proofs"}, "out": "d"},
		},
	}
	rbCID := compileSpec(t, cas, spec)
	m := &Machine{CAS: cas, Verifier: acceptAll{policy.AlgEd25519: true}}

	proof := policy.Proof{Algorithm: policy.AlgEd25519, PublicKey: []byte{1}, Signature: []byte{2}}
	res, err := m.Exec(rbCID, map[string]any{
		"policy": "hybrid-or(ed25519, mldsa3)",
		"proofs": []any{proof.Value()},
	})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	body := res.Body.(map[string]any)
	if body["allow"] != true {
		t.Fatalf("expected allow, got %s", canon.Serialize(res.Body))
	}
	trace := body["trace"].([]any)
	if len(trace) != 1 {
		t.Fatalf("short-circuit must stop after the first true leaf: %s", canon.Serialize(trace))
	}
}

func TestCompileAndExecOpcodes(t *testing.T) {
	cas := storage.NewMemory()

	// A module that compiles a spec it receives, then a separate run that
	// executes the produced rb_cid: opcodes 5 and 6 driven from bytecode.
	compilerSpec := map[string]any{
		"chip": "compiler", "version": "1.0.0", "type": "module",
		"inputs":  map[string]any{"spec": map[string]any{}},
		"outputs": map[string]any{"compiled": "c"},
		"wiring": []any{
			map[string]any{"op": "compile", "in": []any{"@input.spec"}, "out": "c"},
		},
	}
	runnerSpec := map[string]any{
		"chip": "runner", "version": "1.0.0", "type": "module",
		"inputs":  map[string]any{"rb_cid": map[string]any{}, "payload": map[string]any{}},
		"outputs": map[string]any{"ran": "r"},
		"wiring": []any{
			map[string]any{"op": "exec", "in": []any{"@input.rb_cid", "@input.payload"}, "out": "r"},
		},
	}

	compilerRB := compileSpec(t, cas, compilerSpec)
	runnerRB := compileSpec(t, cas, runnerSpec)
	m := &Machine{CAS: cas}

	res, err := m.Exec(compilerRB, map[string]any{"spec": echoSpec()})
	if err != nil {
		t.Fatalf("Exec(compiler): %v", err)
	}
	compiled := res.Body.(map[string]any)
	rbCIDStr, ok := compiled["rb_cid"].(string)
	if !ok {
		t.Fatalf("compile opcode must return {rb_cid}: %s", canon.Serialize(res.Body))
	}

	payload := map[string]any{"k": "v"}
	res, err = m.Exec(runnerRB, map[string]any{"rb_cid": rbCIDStr, "payload": payload})
	if err != nil {
		t.Fatalf("Exec(runner): %v", err)
	}
	ran := res.Body.(map[string]any)
	wantNorm, _ := canon.Normalize(payload)
	if ran["content_cid"] != wantNorm.CID.String() {
		t.Fatalf("nested exec must echo the payload CID: %s", canon.Serialize(res.Body))
	}
}

func TestExecErrorCarriesOpIndex(t *testing.T) {
	cas := storage.NewMemory()
	spec := map[string]any{
		"chip": "gate", "version": "1.0.0", "type": "module",
		"inputs":  map[string]any{"doc": map[string]any{}, "schema_cid": map[string]any{}},
		"outputs": map[string]any{"verdict": "checked"},
		"wiring": []any{
			map[string]any{"op": "validate", "in": []any{"@input.doc", "@input.schema_cid"}, "out": "checked"},
		},
	}
	rbCID := compileSpec(t, cas, spec)
	m := &Machine{CAS: cas}

	// schema_cid slot holds a CID that is not in CAS.
	missing := cidutil.Sum([]byte("absent schema"))
	_, err := m.Exec(rbCID, map[string]any{
		"doc":        map[string]any{},
		"schema_cid": missing.String(),
	})
	execErr, ok := AsExecError(err)
	if !ok {
		t.Fatalf("got %v, want ExecError", err)
	}
	if execErr.OpIndex != 0 {
		t.Fatalf("OpIndex = %d, want 0", execErr.OpIndex)
	}
}

func TestTransistorExec(t *testing.T) {
	cas := storage.NewMemory()
	spec := map[string]any{
		"chip": "canonize", "version": "2.0.0", "type": "transistor", "op": "normalize",
		"inputs":  map[string]any{"value": map[string]any{}},
		"outputs": map[string]any{"result": "out"},
	}
	rbCID := compileSpec(t, cas, spec)
	m := &Machine{CAS: cas}

	res, err := m.Exec(rbCID, map[string]any{"value": map[string]any{"z": int64(1), "a": nil}})
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if string(canon.Serialize(res.Body)) != `{"z":1}` {
		t.Fatalf("body = %s", canon.Serialize(res.Body))
	}
}
