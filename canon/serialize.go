package canon

import (
	"encoding/base64"
	"strconv"
)

// appendCanonical serializes a normalized value to its unique byte form.
//
// Structural tokens carry no whitespace. Mapping keys are emitted in sorted
// order regardless of the in-memory representation, so serialization itself
// guarantees canonical output for any normalized tree.
func appendCanonical(dst []byte, v any) []byte {
	switch t := v.(type) {
	case nil:
		return append(dst, "null"...)
	case bool:
		if t {
			return append(dst, "true"...)
		}
		return append(dst, "false"...)
	case int64:
		return strconv.AppendInt(dst, t, 10)
	case string:
		return appendCanonicalString(dst, t)
	case []any:
		dst = append(dst, '[')
		for i, elem := range t {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendCanonical(dst, elem)
		}
		return append(dst, ']')
	case map[string]any:
		dst = append(dst, '{')
		for i, k := range sortedKeys(t) {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = appendCanonicalString(dst, k)
			dst = append(dst, ':')
			dst = appendCanonical(dst, t[k])
		}
		return append(dst, '}')
	default:
		// normalizeValue admits nothing else; reaching here is a programming error.
		panic("canon: serialize of non-normalized value")
	}
}

const hexDigits = "0123456789abcdef"

// appendCanonicalString writes a string with canonical minimal escaping:
// `\"`, `\\`, `\b`, `\f`, `\n`, `\r`, `\t`, and `\u00XX` for the remaining
// C0 controls. Printable non-ASCII is emitted as raw UTF-8.
func appendCanonicalString(dst []byte, s string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			dst = append(dst, '\\', '"')
		case c == '\\':
			dst = append(dst, '\\', '\\')
		case c == '\b':
			dst = append(dst, '\\', 'b')
		case c == '\f':
			dst = append(dst, '\\', 'f')
		case c == '\n':
			dst = append(dst, '\\', 'n')
		case c == '\r':
			dst = append(dst, '\\', 'r')
		case c == '\t':
			dst = append(dst, '\\', 't')
		case c < 0x20:
			dst = append(dst, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xf])
		default:
			dst = append(dst, c)
		}
	}
	return append(dst, '"')
}

// Serialize returns the canonical bytes of an already-normalized value.
//
// Callers that hold a Normalized should prefer its Canonical field; Serialize
// exists for values assembled from normalized parts.
func Serialize(v any) []byte {
	return appendCanonical(nil, v)
}

func encodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}
