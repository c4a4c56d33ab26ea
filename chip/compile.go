package chip

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danvoulez/rho-circles/canon"
	"github.com/danvoulez/rho-circles/cidutil"
	"github.com/danvoulez/rho-circles/rb"
	"github.com/danvoulez/rho-circles/schema"
	"github.com/danvoulez/rho-circles/storage"
)

// Output is the result of compiling a chip specification.
type Output struct {
	SpecCID  cidutil.CID
	RBCID    cidutil.CID
	Bytecode []byte
}

// Value renders the output in the admitted value model, the form produced by
// the compile opcode.
func (o *Output) Value() any {
	return map[string]any{"rb_cid": o.RBCID.String()}
}

// Compile canonicalizes a chip specification, validates it against the
// chip-spec schema, lowers it to RB bytecode and stores both spec and
// bytecode in cas.
//
// Identical specs always land on identical spec and rb CIDs.
func Compile(specValue any, cas storage.CAS) (*Output, error) {
	n, err := canon.Normalize(specValue)
	if err != nil {
		return nil, err
	}
	specCID, err := cas.Put(n.Canonical)
	if err != nil {
		return nil, err
	}

	schemaCID, err := EnsureSpecSchema(cas)
	if err != nil {
		return nil, err
	}
	res, err := schema.Validate(n.Value, schemaCID, cas)
	if err != nil {
		return nil, err
	}
	if !res.OK {
		first := res.Errors[0]
		return nil, newError(KindSchemaViolation, "RHO-CHIP-030", first.Path, first.Message)
	}

	spec, err := SpecFromValue(n.Value)
	if err != nil {
		return nil, err
	}

	program, err := lower(spec, specCID)
	if err != nil {
		return nil, err
	}
	bytecode, err := program.Encode()
	if err != nil {
		return nil, err
	}
	rbCID, err := cas.Put(bytecode)
	if err != nil {
		return nil, err
	}
	return &Output{SpecCID: specCID, RBCID: rbCID, Bytecode: bytecode}, nil
}

// lower translates a validated spec into an RB program.
//
// Register layout: register 0 holds the whole normalized input; registers
// 1..K hold the declared input slots in sorted name order; each emitted
// operation claims the next register for its output.
func lower(spec *Spec, specCID cidutil.CID) (*rb.Program, error) {
	slots := sortedSlotNames(spec.Inputs)
	slotReg := make(map[string]uint32, len(slots))
	for i, name := range slots {
		slotReg[name] = uint32(i + 1)
	}
	next := uint32(len(slots) + 1)

	program := &rb.Program{SpecCID: specCID}

	labelReg := make(map[string]uint32)
	resolveRef := func(ref, where string) (uint32, error) {
		if ref == InputRef {
			return 0, nil
		}
		if strings.HasPrefix(ref, InputRef+".") {
			slot := strings.TrimPrefix(ref, InputRef+".")
			reg, ok := slotReg[slot]
			if !ok {
				return 0, newError(KindSchemaViolation, "RHO-CHIP-031", where,
					fmt.Sprintf("unknown input slot %q", slot))
			}
			return reg, nil
		}
		reg, ok := labelReg[ref]
		if !ok {
			return 0, newError(KindSchemaViolation, "RHO-CHIP-032", where,
				fmt.Sprintf("unresolved register reference %q", ref))
		}
		return reg, nil
	}

	switch spec.Type {
	case TypeTransistor:
		code, arity, ok := OpcodeByName(spec.Op)
		if !ok {
			return nil, newError(KindUnknownOpcode, "RHO-CHIP-033", spec.Op,
				fmt.Sprintf("unknown base operation %q", spec.Op))
		}
		if len(slots) != arity {
			return nil, newError(KindArityMismatch, "RHO-CHIP-034", spec.Op,
				fmt.Sprintf("operation %q takes %d inputs, spec declares %d slots", spec.Op, arity, len(slots)))
		}
		inputs := make([]uint32, arity)
		for i := range inputs {
			inputs[i] = uint32(i + 1)
		}
		program.Ops = append(program.Ops, rb.Op{Opcode: code, Inputs: inputs, Out: next})
		program.Outputs = []uint32{next}
		return program, nil

	case TypeModule, TypeProduct:
		ordered, err := sortWiring(spec.Wiring)
		if err != nil {
			return nil, err
		}
		for _, op := range ordered {
			code, arity, ok := OpcodeByName(op.Op)
			if !ok {
				return nil, newError(KindUnknownOpcode, "RHO-CHIP-033", op.Out,
					fmt.Sprintf("unknown base operation %q", op.Op))
			}
			if len(op.In) != arity {
				return nil, newError(KindArityMismatch, "RHO-CHIP-034", op.Out,
					fmt.Sprintf("operation %q takes %d inputs, wiring supplies %d", op.Op, arity, len(op.In)))
			}
			inputs := make([]uint32, arity)
			for i, ref := range op.In {
				if inputs[i], err = resolveRef(ref, op.Out); err != nil {
					return nil, err
				}
			}
			program.Ops = append(program.Ops, rb.Op{Opcode: code, Inputs: inputs, Out: next})
			labelReg[op.Out] = next
			next++
		}

		if len(spec.Outputs) == 0 {
			return nil, newError(KindSchemaViolation, "RHO-CHIP-035", "$.outputs",
				"module chips must declare at least one output")
		}
		names := make([]string, 0, len(spec.Outputs))
		for name := range spec.Outputs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			reg, err := resolveRef(spec.Outputs[name], "$.outputs."+name)
			if err != nil {
				return nil, err
			}
			program.Outputs = append(program.Outputs, reg)
		}
		return program, nil
	}
	return nil, newError(KindSchemaViolation, "RHO-CHIP-009", "$.type",
		fmt.Sprintf("unknown chip type %q", spec.Type))
}

func sortedSlotNames(inputs map[string]any) []string {
	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SlotNames exposes the sorted input slot order used by the register layout.
func SlotNames(inputs map[string]any) []string { return sortedSlotNames(inputs) }
