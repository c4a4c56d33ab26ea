package policy

import "github.com/danvoulez/rho-circles/cidutil"

// Verifier is the abstract signature oracle.
//
// The evaluator treats Verify as a pure function of (proof, payload); key
// management and the concrete algorithms live behind this boundary.
type Verifier interface {
	Verify(p Proof, payload cidutil.CID) bool
}

// TraceEntry records one leaf visit under short-circuit order.
type TraceEntry struct {
	Leaf    string
	Outcome bool
}

// Decision is the result of evaluating a policy over a proof set.
type Decision struct {
	Allow bool
	Trace []TraceEntry
}

// Value renders the decision in the admitted value model, the form produced
// by the policy.eval opcode.
func (d Decision) Value() any {
	trace := make([]any, len(d.Trace))
	for i, e := range d.Trace {
		trace[i] = map[string]any{"leaf": e.Leaf, "outcome": e.Outcome}
	}
	return map[string]any{"allow": d.Allow, "trace": trace}
}

// Eval evaluates the policy against the supplied proofs.
//
// Algorithm leaves are true iff the proof set contains a verifier-accepted
// proof of that algorithm, checked in proof order. Combinators short-circuit
// in syntactic order; the trace records exactly the leaves visited.
func (p *Policy) Eval(proofs []Proof, payload cidutil.CID, v Verifier) Decision {
	e := evaluator{proofs: proofs, payload: payload, verifier: v}
	allow := e.eval(p.root)
	return Decision{Allow: allow, Trace: e.trace}
}

// Eval parses src and evaluates it in one step.
func Eval(src string, proofs []Proof, payload cidutil.CID, v Verifier) (Decision, error) {
	p, err := Parse(src)
	if err != nil {
		return Decision{}, err
	}
	return p.Eval(proofs, payload, v), nil
}

type evaluator struct {
	proofs   []Proof
	payload  cidutil.CID
	verifier Verifier
	trace    []TraceEntry
}

func (e *evaluator) eval(n *node) bool {
	switch n.kind {
	case leafNode:
		out := e.leaf(n.leaf)
		e.trace = append(e.trace, TraceEntry{Leaf: n.leaf, Outcome: out})
		return out
	case andNode:
		for _, c := range n.children {
			if !e.eval(c) {
				return false
			}
		}
		return true
	case orNode:
		for _, c := range n.children {
			if e.eval(c) {
				return true
			}
		}
		return false
	}
	return false
}

func (e *evaluator) leaf(name string) bool {
	switch name {
	case "true":
		return true
	case "false":
		return false
	}
	if e.verifier == nil {
		return false
	}
	for _, p := range e.proofs {
		if p.Algorithm != name {
			continue
		}
		if e.verifier.Verify(p, e.payload) {
			return true
		}
	}
	return false
}
