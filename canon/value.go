// Package canon is the canonicalization choke point of the module.
//
// Every value entering the system passes through Normalize before validation,
// compilation, execution, or storage. Canonical bytes are the single source of
// truth: semantically equal values share byte-identical serializations and
// therefore equal CIDs.
//
// The admitted value model is the recursive variant
//
//	null | bool | i64 | string | sequence | mapping<string, ...>
//
// represented in Go as nil, bool, int64, string, []any and map[string]any.
// Normalize also accepts int and json.Number integer literals and converts
// them to int64. Floats, fractional literals and every other Go type are
// rejected.
package canon

import "github.com/danvoulez/rho-circles/cidutil"

// Normalized is the result of canonicalizing an admitted value.
type Normalized struct {
	// Value is the normalized tree: strings NFC-normalized, numbers int64,
	// null-valued mapping keys elided.
	Value any
	// Canonical is the unique byte serialization of Value.
	Canonical []byte
	// CID is the BLAKE3-256 digest of Canonical.
	CID cidutil.CID
}

// Base64 renders the canonical bytes as base64url without padding, the
// transport form used by outward callers.
func (n *Normalized) Base64() string {
	return encodeBase64URL(n.Canonical)
}

// Normalize admits v, rewrites it to normal form and serializes it.
//
// The result is a pure function of v: repeated calls return byte-identical
// Canonical slices and equal CIDs.
func Normalize(v any) (*Normalized, error) {
	nv, err := normalizeValue(v, "$")
	if err != nil {
		return nil, err
	}
	canonical := appendCanonical(nil, nv)
	return &Normalized{
		Value:     nv,
		Canonical: canonical,
		CID:       cidutil.Sum(canonical),
	}, nil
}

// NormalizeValue rewrites v to its normal form without serializing.
func NormalizeValue(v any) (any, error) {
	return normalizeValue(v, "$")
}
