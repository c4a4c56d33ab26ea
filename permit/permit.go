// Package permit gates principal/action/resource requests with signature
// policies fetched from CAS.
//
// A policy document is a canonical mapping:
//
//	{"default": "<policy expr>", "grants": [{"principal", "action", "resource", "policy"}, ...]}
//
// Grants are consulted in sequence order; the first grant whose fields match
// the request (with "*" as a wildcard) supplies the policy expression. The
// payload bound to verification is the CID of the canonical request, so
// proofs commit to exactly what they authorize.
package permit

import (
	"errors"

	"github.com/danvoulez/rho-circles/canon"
	"github.com/danvoulez/rho-circles/cidutil"
	"github.com/danvoulez/rho-circles/policy"
	"github.com/danvoulez/rho-circles/storage"
)

// Request names what a caller wants to do.
type Request struct {
	Principal string
	Action    string
	Resource  string
}

// Value renders the request in the admitted value model; its canonical CID
// is the verification payload.
func (r Request) Value() any {
	return map[string]any{
		"principal": r.Principal,
		"action":    r.Action,
		"resource":  r.Resource,
	}
}

// PayloadCID returns the CID proofs must sign to authorize the request.
func (r Request) PayloadCID() (cidutil.CID, error) {
	n, err := canon.Normalize(r.Value())
	if err != nil {
		return cidutil.CID{}, err
	}
	return n.CID, nil
}

// Evaluate fetches the policy document at policyCID, selects the applicable
// expression and evaluates it over the supplied proofs.
func Evaluate(req Request, policyCID cidutil.CID, proofs []policy.Proof, v policy.Verifier, cas storage.CAS) (policy.Decision, error) {
	docBytes, err := cas.Get(policyCID)
	if err != nil {
		return policy.Decision{}, err
	}
	n, err := canon.ParseNormalized(docBytes)
	if err != nil {
		return policy.Decision{}, err
	}
	expr, err := selectExpr(n.Value, req)
	if err != nil {
		return policy.Decision{}, err
	}

	payload, err := req.PayloadCID()
	if err != nil {
		return policy.Decision{}, err
	}
	return policy.Eval(expr, proofs, payload, v)
}

// Allow is Evaluate collapsed to a yes/no with a denial error carrying the
// trace.
func Allow(req Request, policyCID cidutil.CID, proofs []policy.Proof, v policy.Verifier, cas storage.CAS) error {
	d, err := Evaluate(req, policyCID, proofs, v, cas)
	if err != nil {
		return err
	}
	if !d.Allow {
		return policy.Denied(d)
	}
	return nil
}

func selectExpr(doc any, req Request) (string, error) {
	m, ok := doc.(map[string]any)
	if !ok {
		return "", errors.New("permit: policy document must be a mapping")
	}

	if grants, present := m["grants"]; present {
		seq, ok := grants.([]any)
		if !ok {
			return "", errors.New("permit: grants must be a sequence")
		}
		for _, g := range seq {
			grant, ok := g.(map[string]any)
			if !ok {
				return "", errors.New("permit: grant must be a mapping")
			}
			if !fieldMatches(grant, "principal", req.Principal) ||
				!fieldMatches(grant, "action", req.Action) ||
				!fieldMatches(grant, "resource", req.Resource) {
				continue
			}
			expr, ok := grant["policy"].(string)
			if !ok {
				return "", errors.New("permit: grant missing policy expression")
			}
			return expr, nil
		}
	}

	if def, present := m["default"]; present {
		expr, ok := def.(string)
		if !ok {
			return "", errors.New("permit: default must be a policy expression")
		}
		return expr, nil
	}
	// Fail closed when nothing matches.
	return "false", nil
}

func fieldMatches(grant map[string]any, field, want string) bool {
	got, ok := grant[field].(string)
	if !ok {
		return false
	}
	return got == "*" || got == want
}
