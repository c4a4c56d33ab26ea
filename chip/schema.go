package chip

import (
	"github.com/danvoulez/rho-circles/canon"
	"github.com/danvoulez/rho-circles/cidutil"
	"github.com/danvoulez/rho-circles/storage"
)

// SpecSchema returns the chip-spec schema as a value. The schema itself lives
// in CAS like any other schema; see EnsureSpecSchema.
func SpecSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"chip", "version", "type", "inputs", "outputs"},
		"properties": map[string]any{
			"chip":    map[string]any{"type": "string", "pattern": "^[a-z][a-z0-9_.-]*$"},
			"version": map[string]any{"type": "string", "pattern": "^[0-9]+\\.[0-9]+\\.[0-9]+$"},
			"type":    map[string]any{"enum": []any{"transistor", "module", "product"}},
			"op":      map[string]any{"type": "string"},
			"inputs":  map[string]any{"type": "object"},
			"outputs": map[string]any{"type": "object"},
			"wiring": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []any{"op", "in", "out"},
					"properties": map[string]any{
						"op":  map[string]any{"type": "string"},
						"in":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
						"out": map[string]any{"type": "string"},
					},
					"additionalProperties": false,
				},
			},
		},
	}
}

// EnsureSpecSchema canonicalizes the chip-spec schema and stores it in cas,
// returning its CID. Idempotent: the schema always lands on the same CID.
func EnsureSpecSchema(cas storage.CAS) (cidutil.CID, error) {
	n, err := canon.Normalize(SpecSchema())
	if err != nil {
		return cidutil.CID{}, err
	}
	id, err := cas.Put(n.Canonical)
	if err != nil {
		return cidutil.CID{}, err
	}
	return id, nil
}
