package canon

import (
	"bytes"
	"encoding/json"
	"io"
)

// Parse decodes a single JSON document into the admitted value model.
//
// Numbers are kept as literals (json.Number) so that fractional and
// exponential forms are rejected later by Normalize with an exact path.
// Trailing content after the document is a parse error.
func Parse(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, wrapError(KindParse, "RHO-CANON-001", "$", "invalid JSON document", err)
	}
	if dec.More() {
		return nil, newError(KindParse, "RHO-CANON-001", "$", "trailing content after document")
	}
	// Decoder.Decode stops at the end of the value; reject trailing garbage
	// that More() does not classify as a JSON token.
	if _, err := dec.Token(); err != io.EOF {
		return nil, newError(KindParse, "RHO-CANON-001", "$", "trailing content after document")
	}
	return v, nil
}

// ParseNormalized parses data and normalizes the result in one step.
func ParseNormalized(data []byte) (*Normalized, error) {
	v, err := Parse(data)
	if err != nil {
		return nil, err
	}
	return Normalize(v)
}
