package chip

import (
	"bytes"
	"testing"

	"github.com/danvoulez/rho-circles/rb"
	"github.com/danvoulez/rho-circles/storage"
)

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

func TestCompileEcho(t *testing.T) {
	cas := storage.NewMemory()
	out, err := Compile(echoSpec(), cas)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !cas.Has(out.SpecCID) || !cas.Has(out.RBCID) {
		t.Fatalf("spec and bytecode must land in CAS")
	}

	program, err := rb.Decode(out.Bytecode)
	if err != nil {
		t.Fatalf("Decode of emitted bytecode: %v", err)
	}
	if program.SpecCID != out.SpecCID {
		t.Fatalf("bytecode must reference its originating spec CID")
	}
	if len(program.Ops) != 1 || program.Ops[0].Opcode != rb.OpNormalize {
		t.Fatalf("unexpected op stream: %+v", program.Ops)
	}
	if len(program.Outputs) != 1 || program.Outputs[0] != program.Ops[0].Out {
		t.Fatalf("declared output must be the normalize result register")
	}
}

func TestCompileDeterministic(t *testing.T) {
	a, err := Compile(echoSpec(), storage.NewMemory())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	b, err := Compile(echoSpec(), storage.NewMemory())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if a.RBCID != b.RBCID {
		t.Fatalf("independent compiles diverged: %s vs %s", a.RBCID, b.RBCID)
	}
	if !bytes.Equal(a.Bytecode, b.Bytecode) {
		t.Fatalf("bytecode bytes diverged")
	}
}

func TestCompileKeyOrderInsensitive(t *testing.T) {
	cas := storage.NewMemory()

	s1 := map[string]any{
		"chip": "probe", "version": "1.0.0", "type": "transistor", "op": "normalize",
		"inputs":  map[string]any{"value": map[string]any{}},
		"outputs": map[string]any{"result": "out"},
	}
	// Same spec assembled in a different key insertion order.
	s2 := map[string]any{
		"outputs": map[string]any{"result": "out"},
		"inputs":  map[string]any{"value": map[string]any{}},
		"op":      "normalize", "type": "transistor", "version": "1.0.0", "chip": "probe",
	}

	a, err := Compile(s1, cas)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	b, err := Compile(s2, cas)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if a.SpecCID != b.SpecCID || a.RBCID != b.RBCID {
		t.Fatalf("canonicalization must erase key-order differences")
	}
}

func TestCompileTransistorValidate(t *testing.T) {
	spec := map[string]any{
		"chip": "checker", "version": "0.1.0", "type": "transistor", "op": "validate",
		"inputs":  map[string]any{"value": map[string]any{}, "schema_cid": map[string]any{}},
		"outputs": map[string]any{"result": "out"},
	}
	out, err := Compile(spec, storage.NewMemory())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	program, err := rb.Decode(out.Bytecode)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	op := program.Ops[0]
	if op.Opcode != rb.OpValidate || len(op.Inputs) != 2 {
		t.Fatalf("unexpected op: %+v", op)
	}
	// Sorted slots: schema_cid -> reg 1, value -> reg 2.
	if op.Inputs[0] != 1 || op.Inputs[1] != 2 {
		t.Fatalf("slot registers = %v, want [1 2]", op.Inputs)
	}
}

func TestCompileTopoSortStable(t *testing.T) {
	// b depends on a; c is independent. The ready set is consulted
	// lexicographically after every emission: a first, then b (unblocked by
	// a and sorting before c), then c.
	spec := map[string]any{
		"chip": "pipeline", "version": "1.0.0", "type": "module",
		"inputs":  map[string]any{"x": map[string]any{}},
		"outputs": map[string]any{"result": "b"},
		"wiring": []any{
			map[string]any{"op": "normalize", "in": []any{"a"}, "out": "b"},
			map[string]any{"op": "normalize", "in": []any{"@input.x"}, "out": "c"},
			map[string]any{"op": "normalize", "in": []any{"@input"}, "out": "a"},
		},
	}
	out, err := Compile(spec, storage.NewMemory())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	program, err := rb.Decode(out.Bytecode)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(program.Ops) != 3 {
		t.Fatalf("expected three ops")
	}
	// Registers: 0=@input, 1=@input.x, then a->2, b->3, c->4.
	if program.Ops[0].Inputs[0] != 0 || program.Ops[0].Out != 2 {
		t.Fatalf("first op must be a(@input)->2, got %+v", program.Ops[0])
	}
	if program.Ops[1].Inputs[0] != 2 || program.Ops[1].Out != 3 {
		t.Fatalf("second op must be b(a)->3, got %+v", program.Ops[1])
	}
	if program.Ops[2].Inputs[0] != 1 || program.Ops[2].Out != 4 {
		t.Fatalf("third op must be c(@input.x)->4, got %+v", program.Ops[2])
	}
	if program.Outputs[0] != 3 {
		t.Fatalf("output must reference b's register")
	}
}

func TestCompileRejectsCycle(t *testing.T) {
	spec := map[string]any{
		"chip": "loop", "version": "1.0.0", "type": "module",
		"inputs":  map[string]any{},
		"outputs": map[string]any{"result": "a"},
		"wiring": []any{
			map[string]any{"op": "normalize", "in": []any{"b"}, "out": "a"},
			map[string]any{"op": "normalize", "in": []any{"a"}, "out": "b"},
		},
	}
	_, err := Compile(spec, storage.NewMemory())
	if !IsKind(err, KindWiringCycle) {
		t.Fatalf("got %v, want WiringCycle", err)
	}
}

func TestCompileRejectsUnknownOp(t *testing.T) {
	spec := map[string]any{
		"chip": "bad", "version": "1.0.0", "type": "module",
		"inputs":  map[string]any{},
		"outputs": map[string]any{"result": "a"},
		"wiring": []any{
			map[string]any{"op": "frobnicate", "in": []any{"@input"}, "out": "a"},
		},
	}
	_, err := Compile(spec, storage.NewMemory())
	if !IsKind(err, KindUnknownOpcode) {
		t.Fatalf("got %v, want UnknownOpcode", err)
	}
}

func TestCompileRejectsArityMismatch(t *testing.T) {
	spec := map[string]any{
		"chip": "bad", "version": "1.0.0", "type": "module",
		"inputs":  map[string]any{},
		"outputs": map[string]any{"result": "a"},
		"wiring": []any{
			map[string]any{"op": "validate", "in": []any{"@input"}, "out": "a"},
		},
	}
	_, err := Compile(spec, storage.NewMemory())
	if !IsKind(err, KindArityMismatch) {
		t.Fatalf("got %v, want ArityMismatch", err)
	}
}

func TestCompileRejectsSchemaViolation(t *testing.T) {
	spec := map[string]any{
		"chip": "Bad Name", "version": "1.0.0", "type": "module",
		"inputs":  map[string]any{},
		"outputs": map[string]any{"result": "a"},
		"wiring": []any{
			map[string]any{"op": "normalize", "in": []any{"@input"}, "out": "a"},
		},
	}
	_, err := Compile(spec, storage.NewMemory())
	if !IsKind(err, KindSchemaViolation) {
		t.Fatalf("got %v, want SchemaViolation", err)
	}
}

func TestCompileRejectsUnresolvedReference(t *testing.T) {
	spec := map[string]any{
		"chip": "dangling", "version": "1.0.0", "type": "module",
		"inputs":  map[string]any{},
		"outputs": map[string]any{"result": "a"},
		"wiring": []any{
			map[string]any{"op": "normalize", "in": []any{"ghost"}, "out": "a"},
		},
	}
	_, err := Compile(spec, storage.NewMemory())
	if !IsKind(err, KindSchemaViolation) {
		t.Fatalf("got %v, want SchemaViolation for unresolved reference", err)
	}
}

func TestCompileRejectsFloatInSpec(t *testing.T) {
	spec := echoSpec()
	spec["inputs"] = map[string]any{"x": 1.5}
	if _, err := Compile(spec, storage.NewMemory()); err == nil {
		t.Fatalf("floats in specs must be rejected by canonicalization")
	}
}

func TestSpecSchemaIsSelfAdmissible(t *testing.T) {
	cas := storage.NewMemory()
	id1, err := EnsureSpecSchema(cas)
	if err != nil {
		t.Fatalf("EnsureSpecSchema: %v", err)
	}
	id2, err := EnsureSpecSchema(cas)
	if err != nil {
		t.Fatalf("EnsureSpecSchema: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("schema must land on a stable CID")
	}
}
