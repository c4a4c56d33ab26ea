package canon

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeValue applies the canonical rewrite rules at every depth:
//
//  1. numbers must be signed 64-bit integers
//  2. strings (keys and values) are NFC-normalized
//  3. null-valued mapping keys are elided; nulls in sequences are preserved
//  4. mapping keys colliding after NFC are rejected
//
// path tracks the traversal for error reporting.
func normalizeValue(v any, path string) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return t, nil
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case json.Number:
		return normalizeNumber(t, path)
	case float64:
		// Even integral floats carry a fractional type tag and are rejected.
		return nil, newError(KindNonIntegerNumber, "RHO-CANON-002", path,
			"only i64 integers are admitted, no floats or exponential notation")
	case string:
		return norm.NFC.String(t), nil
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			ne, err := normalizeValue(elem, path+"["+strconv.Itoa(i)+"]")
			if err != nil {
				return nil, err
			}
			out[i] = ne
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			if elem == nil {
				continue
			}
			nk := norm.NFC.String(k)
			if _, dup := out[nk]; dup {
				return nil, newError(KindDuplicateKey, "RHO-CANON-003", joinKey(path, nk),
					"mapping keys collide after NFC normalization")
			}
			ne, err := normalizeValue(elem, joinKey(path, nk))
			if err != nil {
				return nil, err
			}
			out[nk] = ne
		}
		return out, nil
	default:
		return nil, newError(KindUnsupportedType, "RHO-CANON-004", path,
			"value type is not admitted")
	}
}

// normalizeNumber admits decimal integer literals representable as int64.
func normalizeNumber(n json.Number, path string) (any, error) {
	s := n.String()
	if strings.ContainsAny(s, ".eE") {
		return nil, newError(KindNonIntegerNumber, "RHO-CANON-002", path,
			"only i64 integers are admitted, no floats or exponential notation")
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, wrapError(KindNonIntegerNumber, "RHO-CANON-002", path,
			"number is not representable as i64", err)
	}
	return i, nil
}

// sortedKeys returns the keys of a normalized mapping in canonical order:
// lexicographic comparison of NFC UTF-8 byte sequences (Go string ordering).
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// joinKey extends a JSON path by a mapping key, quoting keys that are not
// plain identifiers.
func joinKey(path, key string) string {
	if isIdentifier(key) {
		return path + "." + key
	}
	return path + `["` + escapePathKey(key) + `"]`
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func escapePathKey(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
