package schema

import "errors"

// Kind categorizes validator infrastructure failures. Instance validation
// failures are not Go errors; they are reported in Result.
type Kind string

const (
	KindBadSchema Kind = "BadSchema"
	KindStorage   Kind = "Storage"
)

// Error is the validator's structured error type for failures that prevent
// validation from running at all (unreadable or malformed schemas).
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
