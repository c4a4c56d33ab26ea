package policy

import (
	"errors"
	"strconv"
)

type Kind string

const (
	KindParse  Kind = "Parse"
	KindDenied Kind = "Denied"
	KindProof  Kind = "Proof"
)

// Error is the policy package's structured error type.
//
// For parse errors, Offset is the zero-based character offset of the
// offending token in the policy source. For denials, Trace carries the
// short-circuit evaluation trace.
type Error struct {
	Kind    Kind
	RuleID  string
	Offset  int
	Message string
	Trace   []TraceEntry
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Kind == KindParse {
		return e.Message + " at offset " + strconv.Itoa(e.Offset)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func parseError(ruleID string, offset int, msg string) error {
	return &Error{Kind: KindParse, RuleID: ruleID, Offset: offset, Message: msg}
}

// Denied wraps a rejecting decision as an error carrying its trace.
func Denied(d Decision) error {
	return &Error{Kind: KindDenied, RuleID: "RHO-POLICY-100", Message: "policy denied", Trace: d.Trace}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// Offset returns the character offset carried by a parse error, or -1.
func Offset(err error) int {
	var e *Error
	if !errors.As(err, &e) || e.Kind != KindParse {
		return -1
	}
	return e.Offset
}
