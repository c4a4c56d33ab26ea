// Package vm executes RB bytecode on normalized inputs.
//
// The machine is a register file indexed exactly as the compiler lays it out:
// register 0 holds the whole normalized input, the next registers hold the
// declared input slots in sorted name order, and each operation writes one
// result register. Operations run in bytecode stream order — not dependency
// order — so traces are linear and reproducible.
package vm

import (
	"errors"
	"fmt"

	"github.com/danvoulez/rho-circles/canon"
	"github.com/danvoulez/rho-circles/chip"
	"github.com/danvoulez/rho-circles/cidutil"
	"github.com/danvoulez/rho-circles/policy"
	"github.com/danvoulez/rho-circles/rb"
	"github.com/danvoulez/rho-circles/schema"
	"github.com/danvoulez/rho-circles/storage"
)

// Machine executes bytecode against a CAS and a signature oracle.
//
// Machines are stateless between Exec calls and safe for concurrent use;
// the CAS discipline is the only shared state.
type Machine struct {
	CAS storage.CAS
	// Verifier backs the policy.eval opcode. A nil verifier rejects every
	// algorithm leaf.
	Verifier policy.Verifier
}

// Result is a completed execution: the normalized output value and the CID
// of its canonical bytes.
type Result struct {
	Body       any
	ContentCID cidutil.CID
}

// Value renders the result in the admitted value model, the form produced by
// the exec opcode.
func (r *Result) Value() any {
	return map[string]any{"body": r.Body, "content_cid": r.ContentCID.String()}
}

// Exec fetches bytecode by rbCID, normalizes inputs and runs the operation
// stream. The outcome is a pure function of (rbCID, inputs) and the CAS
// contents reachable from them.
func (m *Machine) Exec(rbCID cidutil.CID, inputs any) (*Result, error) {
	bytecode, err := m.CAS.Get(rbCID)
	if err != nil {
		return nil, err
	}
	program, err := rb.Decode(bytecode)
	if err != nil {
		return nil, err
	}

	normInputs, err := canon.NormalizeValue(inputs)
	if err != nil {
		return nil, err
	}

	regs, err := m.seedRegisters(program, normInputs)
	if err != nil {
		return nil, err
	}

	for i, op := range program.Ops {
		args := make([]any, len(op.Inputs))
		for j, ref := range op.Inputs {
			if int(ref) >= len(regs) {
				return nil, opError(i, fmt.Errorf("input register %d out of range", ref))
			}
			args[j] = regs[ref]
		}

		out, err := m.dispatch(op.Opcode, args)
		if err != nil {
			return nil, opError(i, err)
		}
		if int(op.Out) >= len(regs) {
			return nil, opError(i, fmt.Errorf("output register %d out of range", op.Out))
		}
		regs[op.Out] = out
	}

	body, err := m.assembleOutputs(program, regs)
	if err != nil {
		return nil, err
	}
	n, err := canon.Normalize(body)
	if err != nil {
		return nil, err
	}
	return &Result{Body: n.Value, ContentCID: n.CID}, nil
}

// seedRegisters sizes the register file and fills the input registers.
//
// Slot names are not carried in the bytecode; they come from the originating
// spec, which the bytecode references by CID and which must be reachable in
// the CAS (invariant: bytecode closure).
func (m *Machine) seedRegisters(program *rb.Program, normInputs any) ([]any, error) {
	specBytes, err := m.CAS.Get(program.SpecCID)
	if err != nil {
		return nil, err
	}
	ns, err := canon.ParseNormalized(specBytes)
	if err != nil {
		return nil, err
	}
	spec, err := chip.SpecFromValue(ns.Value)
	if err != nil {
		return nil, err
	}

	slots := chip.SlotNames(spec.Inputs)
	regs := make([]any, 1+len(slots)+len(program.Ops))
	regs[0] = normInputs

	inputMap, _ := normInputs.(map[string]any)
	for i, name := range slots {
		// Absent slots stay null; null elision makes absence and null identical.
		regs[i+1] = inputMap[name]
	}
	return regs, nil
}

func (m *Machine) assembleOutputs(program *rb.Program, regs []any) (any, error) {
	if len(program.Outputs) == 0 {
		return nil, errors.New("bytecode declares no outputs")
	}
	if len(program.Outputs) == 1 {
		ref := program.Outputs[0]
		if int(ref) >= len(regs) {
			return nil, fmt.Errorf("output register %d out of range", ref)
		}
		return regs[ref], nil
	}
	out := make([]any, len(program.Outputs))
	for i, ref := range program.Outputs {
		if int(ref) >= len(regs) {
			return nil, fmt.Errorf("output register %d out of range", ref)
		}
		out[i] = regs[ref]
	}
	return out, nil
}

// dispatch is the dense switch over the five base opcodes.
func (m *Machine) dispatch(opcode byte, args []any) (any, error) {
	switch opcode {
	case rb.OpNormalize:
		return canon.NormalizeValue(args[0])

	case rb.OpValidate:
		schemaCID, err := cidArg(args[1], "schema_cid")
		if err != nil {
			return nil, err
		}
		res, err := schema.Validate(args[0], schemaCID, m.CAS)
		if err != nil {
			return nil, err
		}
		return res.Value(), nil

	case rb.OpPolicyEval:
		expr, ok := args[0].(string)
		if !ok {
			return nil, errors.New("policy.eval expects a policy expression string")
		}
		proofs, err := policy.ProofsFromValue(args[1])
		if err != nil {
			return nil, err
		}
		// The payload bound to in-bytecode policy evaluation is the canonical
		// proof-set CID: the decision is then a pure function of its arguments.
		payload := cidutil.Sum(canon.Serialize(args[1]))
		p, err := policy.Parse(expr)
		if err != nil {
			return nil, err
		}
		return p.Eval(proofs, payload, m.Verifier).Value(), nil

	case rb.OpCompile:
		out, err := chip.Compile(args[0], m.CAS)
		if err != nil {
			return nil, err
		}
		return out.Value(), nil

	case rb.OpExec:
		rbCID, err := cidArg(args[0], "rb_cid")
		if err != nil {
			return nil, err
		}
		res, err := m.Exec(rbCID, args[1])
		if err != nil {
			return nil, err
		}
		return res.Value(), nil
	}
	return nil, fmt.Errorf("opcode %d outside 2..=6", opcode)
}

func cidArg(v any, name string) (cidutil.CID, error) {
	s, ok := v.(string)
	if !ok {
		return cidutil.CID{}, fmt.Errorf("%s must be a CID string", name)
	}
	id, err := cidutil.Parse(s)
	if err != nil {
		return cidutil.CID{}, fmt.Errorf("%s is not a valid CID: %w", name, err)
	}
	return id, nil
}
