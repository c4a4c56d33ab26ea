// Package chip compiles declarative chip specifications into content-addressed
// RB bytecode.
//
// A chip is either a transistor (one base operation), a module (a wiring of
// base operations), or a product (a packaged module). Compilation is
// deterministic: the spec is canonicalized first and operations are emitted in
// topologically sorted order with stable tie-breaking, so equal specs always
// produce byte-identical bytecode and equal rb_cids.
package chip

import (
	"fmt"

	"github.com/danvoulez/rho-circles/rb"
)

// Type discriminates chip specifications.
type Type string

const (
	TypeTransistor Type = "transistor"
	TypeModule     Type = "module"
	TypeProduct    Type = "product"
)

// InputRef is the wiring reference naming the whole normalized input value.
const InputRef = "@input"

// Operation is one wiring entry: a base operation name, positional input
// references and a single output label.
//
// Input references are either another operation's output label, InputRef for
// the whole input, or "@input.<slot>" for a declared top-level input slot.
type Operation struct {
	Op  string
	In  []string
	Out string
}

// Spec is the typed view of a chip specification mapping.
type Spec struct {
	Chip    string
	Version string
	Type    Type
	Op      string // transistors only
	Inputs  map[string]any
	Outputs map[string]string
	Wiring  []Operation
}

// opcodeInfo describes a base operation.
type opcodeInfo struct {
	code    byte
	inArity int
}

var opcodes = map[string]opcodeInfo{
	"normalize":   {rb.OpNormalize, 1},
	"validate":    {rb.OpValidate, 2},
	"policy.eval": {rb.OpPolicyEval, 2},
	"compile":     {rb.OpCompile, 1},
	"exec":        {rb.OpExec, 2},
}

// OpcodeByName resolves a base operation name.
func OpcodeByName(name string) (byte, int, bool) {
	info, ok := opcodes[name]
	return info.code, info.inArity, ok
}

// SpecFromValue builds the typed spec from a normalized spec mapping.
//
// The mapping is expected to have passed schema validation already; this
// conversion still defends against shape drift with structured errors.
func SpecFromValue(v any) (*Spec, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, newError(KindSchemaViolation, "RHO-CHIP-001", "$", "chip spec must be a mapping")
	}

	s := &Spec{}
	s.Chip, _ = m["chip"].(string)
	s.Version, _ = m["version"].(string)
	if ts, ok := m["type"].(string); ok {
		s.Type = Type(ts)
	}
	s.Op, _ = m["op"].(string)

	if in, ok := m["inputs"].(map[string]any); ok {
		s.Inputs = in
	} else {
		return nil, newError(KindSchemaViolation, "RHO-CHIP-002", "$.inputs", "inputs must be a mapping")
	}

	out, ok := m["outputs"].(map[string]any)
	if !ok {
		return nil, newError(KindSchemaViolation, "RHO-CHIP-003", "$.outputs", "outputs must be a mapping")
	}
	s.Outputs = make(map[string]string, len(out))
	for k, ov := range out {
		ref, ok := ov.(string)
		if !ok {
			return nil, newError(KindSchemaViolation, "RHO-CHIP-004", "$.outputs",
				fmt.Sprintf("output %q must name a register", k))
		}
		s.Outputs[k] = ref
	}

	if w, present := m["wiring"]; present {
		seq, ok := w.([]any)
		if !ok {
			return nil, newError(KindSchemaViolation, "RHO-CHIP-005", "$.wiring", "wiring must be a sequence")
		}
		s.Wiring = make([]Operation, 0, len(seq))
		for i, elem := range seq {
			op, err := operationFromValue(elem, i)
			if err != nil {
				return nil, err
			}
			s.Wiring = append(s.Wiring, op)
		}
	}

	switch s.Type {
	case TypeTransistor:
		if s.Op == "" {
			return nil, newError(KindSchemaViolation, "RHO-CHIP-006", "$.op",
				"transistor chips must name a base operation")
		}
		if len(s.Wiring) != 0 {
			return nil, newError(KindSchemaViolation, "RHO-CHIP-007", "$.wiring",
				"transistor chips carry no wiring")
		}
	case TypeModule, TypeProduct:
		if len(s.Wiring) == 0 {
			return nil, newError(KindSchemaViolation, "RHO-CHIP-008", "$.wiring",
				"module chips require wiring")
		}
	default:
		return nil, newError(KindSchemaViolation, "RHO-CHIP-009", "$.type",
			fmt.Sprintf("unknown chip type %q", s.Type))
	}
	return s, nil
}

func operationFromValue(v any, index int) (Operation, error) {
	where := fmt.Sprintf("$.wiring[%d]", index)
	m, ok := v.(map[string]any)
	if !ok {
		return Operation{}, newError(KindSchemaViolation, "RHO-CHIP-010", where, "wiring entry must be a mapping")
	}
	op := Operation{}
	if op.Op, ok = m["op"].(string); !ok || op.Op == "" {
		return Operation{}, newError(KindSchemaViolation, "RHO-CHIP-011", where, "wiring entry missing op")
	}
	if op.Out, ok = m["out"].(string); !ok || op.Out == "" {
		return Operation{}, newError(KindSchemaViolation, "RHO-CHIP-012", where, "wiring entry missing out")
	}
	in, ok := m["in"].([]any)
	if !ok {
		return Operation{}, newError(KindSchemaViolation, "RHO-CHIP-013", where, "wiring entry missing in")
	}
	op.In = make([]string, 0, len(in))
	for _, ref := range in {
		s, ok := ref.(string)
		if !ok || s == "" {
			return Operation{}, newError(KindSchemaViolation, "RHO-CHIP-014", where, "input references must be strings")
		}
		op.In = append(op.In, s)
	}
	return op, nil
}
