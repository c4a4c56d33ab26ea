// Package schema validates canonical values against schemas fetched from CAS.
//
// The language is the JSON Schema subset needed for chip specifications:
// type, properties, required, items, additionalProperties, enum, const,
// minimum/maximum (integers only) and pattern. Error reports are
// deterministic: given equal canonical (value, schema) pairs the issue list is
// identical — same set, same order, discovered by a depth-first left-to-right
// traversal over sorted mapping keys.
package schema

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/danvoulez/rho-circles/canon"
	"github.com/danvoulez/rho-circles/cidutil"
	"github.com/danvoulez/rho-circles/storage"
)

// Issue is one validation finding, qualified by a JSON path into the instance.
type Issue struct {
	Path    string
	Message string
}

// Result is the outcome of validating one instance.
type Result struct {
	OK       bool
	Errors   []Issue
	Warnings []Issue
}

// Value renders the result in the admitted value model, the form produced by
// the validate opcode.
func (r *Result) Value() any {
	errs := make([]any, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = map[string]any{"path": e.Path, "message": e.Message}
	}
	warns := make([]any, len(r.Warnings))
	for i, w := range r.Warnings {
		warns[i] = map[string]any{"path": w.Path, "message": w.Message}
	}
	return map[string]any{
		"valid":    r.OK,
		"errors":   errs,
		"warnings": warns,
	}
}

// Validate normalizes v and checks it against the schema stored at schemaCID.
func Validate(v any, schemaCID cidutil.CID, cas storage.CAS) (*Result, error) {
	nv, err := canon.NormalizeValue(v)
	if err != nil {
		return nil, err
	}

	schemaBytes, err := cas.Get(schemaCID)
	if err != nil {
		return nil, wrapError(KindStorage, "RHO-SCHEMA-001", "$", "schema not found in CAS", err)
	}
	ns, err := canon.ParseNormalized(schemaBytes)
	if err != nil {
		return nil, wrapError(KindBadSchema, "RHO-SCHEMA-002", "$", "schema bytes are not canonical JSON", err)
	}
	return ValidateValue(nv, ns.Value)
}

// ValidateValue checks an already-normalized instance against a normalized
// schema value.
func ValidateValue(v any, schemaVal any) (*Result, error) {
	root, ok := schemaVal.(map[string]any)
	if !ok {
		return nil, newError(KindBadSchema, "RHO-SCHEMA-003", "$", "schema must be a mapping")
	}

	w := &walker{seenUnknown: map[string]bool{}}
	if err := w.validateNode(v, root, "$"); err != nil {
		return nil, err
	}

	res := &Result{
		OK:       len(w.errors) == 0,
		Errors:   w.errors,
		Warnings: w.warnings,
	}
	return res, nil
}

var knownKeywords = map[string]bool{
	"type":                 true,
	"properties":           true,
	"required":             true,
	"items":                true,
	"additionalProperties": true,
	"enum":                 true,
	"const":                true,
	"minimum":              true,
	"maximum":              true,
	"pattern":              true,
}

type walker struct {
	errors      []Issue
	warnings    []Issue
	seenUnknown map[string]bool
}

func (w *walker) fail(path, msg string) {
	w.errors = append(w.errors, Issue{Path: path, Message: msg})
}

// noteUnknown records an unknown keyword once, as a warning at the root path.
func (w *walker) noteUnknown(keyword string) {
	if w.seenUnknown[keyword] {
		return
	}
	w.seenUnknown[keyword] = true
	w.warnings = append(w.warnings, Issue{Path: "$", Message: fmt.Sprintf("unknown keyword %q ignored", keyword)})
}

func (w *walker) validateNode(v any, s map[string]any, path string) error {
	for _, k := range sortedKeys(s) {
		if !knownKeywords[k] {
			w.noteUnknown(k)
		}
	}

	if ts, present := s["type"]; present {
		name, ok := ts.(string)
		if !ok {
			return newError(KindBadSchema, "RHO-SCHEMA-004", path, "type keyword must be a string")
		}
		if !validTypeName(name) {
			return newError(KindBadSchema, "RHO-SCHEMA-005", path, fmt.Sprintf("unsupported type %q", name))
		}
		if got := typeName(v); got != name {
			w.fail(path, fmt.Sprintf("type mismatch: got %s, want %s", got, name))
			// Structure checks below would only cascade noise onto the wrong type.
			return nil
		}
	}

	if enum, present := s["enum"]; present {
		seq, ok := enum.([]any)
		if !ok || len(seq) == 0 {
			return newError(KindBadSchema, "RHO-SCHEMA-006", path, "enum keyword must be a non-empty sequence")
		}
		if !containsCanonical(seq, v) {
			w.fail(path, "value is not one of the enumerated values")
		}
	}

	if c, present := s["const"]; present {
		if !bytes.Equal(canon.Serialize(c), canon.Serialize(v)) {
			w.fail(path, "value does not equal the declared constant")
		}
	}

	if min, present := s["minimum"]; present {
		bound, ok := min.(int64)
		if !ok {
			return newError(KindBadSchema, "RHO-SCHEMA-007", path, "minimum must be an integer")
		}
		if i, isInt := v.(int64); isInt && i < bound {
			w.fail(path, fmt.Sprintf("value %d is below minimum %d", i, bound))
		}
	}

	if max, present := s["maximum"]; present {
		bound, ok := max.(int64)
		if !ok {
			return newError(KindBadSchema, "RHO-SCHEMA-007", path, "maximum must be an integer")
		}
		if i, isInt := v.(int64); isInt && i > bound {
			w.fail(path, fmt.Sprintf("value %d exceeds maximum %d", i, bound))
		}
	}

	if pat, present := s["pattern"]; present {
		expr, ok := pat.(string)
		if !ok {
			return newError(KindBadSchema, "RHO-SCHEMA-008", path, "pattern must be a string")
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return wrapError(KindBadSchema, "RHO-SCHEMA-009", path, "invalid pattern", err)
		}
		if str, isStr := v.(string); isStr && !re.MatchString(str) {
			w.fail(path, fmt.Sprintf("string does not match pattern %q", expr))
		}
	}

	switch t := v.(type) {
	case map[string]any:
		return w.validateMapping(t, s, path)
	case []any:
		return w.validateSequence(t, s, path)
	}
	return nil
}

func (w *walker) validateMapping(m map[string]any, s map[string]any, path string) error {
	var props map[string]any
	if p, present := s["properties"]; present {
		var ok bool
		props, ok = p.(map[string]any)
		if !ok {
			return newError(KindBadSchema, "RHO-SCHEMA-010", path, "properties must be a mapping")
		}
	}

	if req, present := s["required"]; present {
		names, ok := req.([]any)
		if !ok {
			return newError(KindBadSchema, "RHO-SCHEMA-011", path, "required must be a sequence")
		}
		for _, n := range names {
			name, ok := n.(string)
			if !ok {
				return newError(KindBadSchema, "RHO-SCHEMA-011", path, "required entries must be strings")
			}
			if _, found := m[name]; !found {
				w.fail(path, fmt.Sprintf("missing required property %q", name))
			}
		}
	}

	var addl any = nil
	addlPresent := false
	if a, present := s["additionalProperties"]; present {
		addl = a
		addlPresent = true
	}

	for _, k := range sortedKeys(m) {
		childPath := joinKey(path, k)
		if sub, found := props[k]; found {
			subSchema, ok := sub.(map[string]any)
			if !ok {
				return newError(KindBadSchema, "RHO-SCHEMA-012", childPath, "property schema must be a mapping")
			}
			if err := w.validateNode(m[k], subSchema, childPath); err != nil {
				return err
			}
			continue
		}
		if !addlPresent {
			continue
		}
		switch a := addl.(type) {
		case bool:
			if !a {
				w.fail(childPath, "unexpected additional property")
			}
		case map[string]any:
			if err := w.validateNode(m[k], a, childPath); err != nil {
				return err
			}
		default:
			return newError(KindBadSchema, "RHO-SCHEMA-013", path, "additionalProperties must be a boolean or a mapping")
		}
	}
	return nil
}

func (w *walker) validateSequence(seq []any, s map[string]any, path string) error {
	items, present := s["items"]
	if !present {
		return nil
	}
	itemSchema, ok := items.(map[string]any)
	if !ok {
		return newError(KindBadSchema, "RHO-SCHEMA-014", path, "items must be a mapping")
	}
	for i, elem := range seq {
		if err := w.validateNode(elem, itemSchema, path+"["+strconv.Itoa(i)+"]"); err != nil {
			return err
		}
	}
	return nil
}

func containsCanonical(seq []any, v any) bool {
	want := canon.Serialize(v)
	for _, candidate := range seq {
		if bytes.Equal(canon.Serialize(candidate), want) {
			return true
		}
	}
	return false
}

func validTypeName(s string) bool {
	switch s {
	case "null", "boolean", "integer", "string", "array", "object":
		return true
	}
	return false
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case int64:
		return "integer"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return "unknown"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// joinKey mirrors the canonicalizer's path construction.
func joinKey(path, key string) string {
	plain := key != ""
	for i := 0; i < len(key) && plain; i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				plain = false
			}
		default:
			plain = false
		}
	}
	if plain {
		return path + "." + key
	}
	quoted := ""
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '\\':
			quoted += `\\`
		case '"':
			quoted += `\"`
		default:
			quoted += string(key[i])
		}
	}
	return path + `["` + quoted + `"]`
}
