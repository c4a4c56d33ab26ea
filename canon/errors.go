package canon

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Error() strings are human-readable and may evolve.
type Kind string

const (
	KindParse            Kind = "Parse"
	KindNonIntegerNumber Kind = "NonIntegerNumber"
	KindDuplicateKey     Kind = "DuplicateKeyAfterNFC"
	KindUnsupportedType  Kind = "UnsupportedType"
)

// Error is the canonicalizer's structured error type.
//
// RuleID is a stable identifier (e.g., RHO-CANON-002) naming the violated
// rule. Path locates the offending node in JSON-path form ("$.users[2].name").
// Both are derived from the input only, never from process state.
type Error struct {
	Kind    Kind
	RuleID  string
	Path    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Path != "" {
		return e.Message + " at " + e.Path
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, ruleID, path, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Path: path, Message: msg}
}

func wrapError(kind Kind, ruleID, path, msg string, cause error) error {
	if cause == nil {
		return newError(kind, ruleID, path, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Path: path, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}

// Path returns the JSON path carried by a structured error, or "" if unknown.
func Path(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Path
}
