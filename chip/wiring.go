package chip

import (
	"fmt"
	"sort"
	"strings"
)

// sortWiring orders operations topologically by data dependency.
//
// Ready operations are emitted lexicographically by output label, then by
// position in the normalized wiring sequence, so the emitted stream is a
// pure function of the canonical spec. Cycles are rejected.
func sortWiring(ops []Operation) ([]Operation, error) {
	byLabel := make(map[string]int, len(ops))
	for i, op := range ops {
		if strings.HasPrefix(op.Out, "@") {
			return nil, newError(KindSchemaViolation, "RHO-CHIP-020", op.Out,
				"output labels must not use the reserved '@' prefix")
		}
		if _, dup := byLabel[op.Out]; dup {
			return nil, newError(KindSchemaViolation, "RHO-CHIP-021", op.Out,
				"duplicate operation output label")
		}
		byLabel[op.Out] = i
	}

	// Dependency edges: op j -> op i when an input of i names the output of j.
	indeg := make([]int, len(ops))
	dependents := make([][]int, len(ops))
	for i, op := range ops {
		for _, ref := range op.In {
			if strings.HasPrefix(ref, "@") {
				continue // input slot, resolved against the register file
			}
			j, ok := byLabel[ref]
			if !ok {
				return nil, newError(KindSchemaViolation, "RHO-CHIP-022", op.Out,
					fmt.Sprintf("unresolved input reference %q", ref))
			}
			dependents[j] = append(dependents[j], i)
			indeg[i]++
		}
	}

	ready := make([]int, 0, len(ops))
	for i, d := range indeg {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	order := make([]Operation, 0, len(ops))
	for len(ready) > 0 {
		sort.Slice(ready, func(a, b int) bool {
			oa, ob := ops[ready[a]], ops[ready[b]]
			if oa.Out != ob.Out {
				return oa.Out < ob.Out
			}
			return ready[a] < ready[b]
		})
		next := ready[0]
		ready = ready[1:]

		order = append(order, ops[next])
		for _, dep := range dependents[next] {
			indeg[dep]--
			if indeg[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(ops) {
		// Deterministic cycle report: the lexicographically first blocked label.
		var blocked []string
		for i, d := range indeg {
			if d > 0 {
				blocked = append(blocked, ops[i].Out)
			}
		}
		sort.Strings(blocked)
		return nil, newError(KindWiringCycle, "RHO-CHIP-023", blocked[0],
			"wiring graph contains a cycle")
	}
	return order, nil
}
