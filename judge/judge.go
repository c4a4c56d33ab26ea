// Package judge is the designated external-call gateway.
//
// Everything else in the module is pure; this is the one place a blocking,
// caller-supplied collaborator is consulted. The gateway's answer is pulled
// straight back into the deterministic world: prompt and response are stored
// in CAS and the returned receipt binds their CIDs together.
package judge

import (
	"errors"

	"github.com/danvoulez/rho-circles/canon"
	"github.com/danvoulez/rho-circles/cidutil"
	"github.com/danvoulez/rho-circles/permit"
	"github.com/danvoulez/rho-circles/policy"
	"github.com/danvoulez/rho-circles/receipt"
	"github.com/danvoulez/rho-circles/storage"
)

// Gateway is the caller-supplied synchronous external function.
type Gateway interface {
	Call(prompt any) (any, error)
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(prompt any) (any, error)

func (f GatewayFunc) Call(prompt any) (any, error) { return f(prompt) }

// Judge consults a Gateway under a permit policy and records the exchange.
type Judge struct {
	CAS      storage.CAS
	Gateway  Gateway
	Verifier policy.Verifier
}

// Consult fetches the prompt at promptCID, checks the caller's proofs
// against the policy document at policyCID, invokes the gateway and emits a
// receipt binding prompt and response CIDs.
func (j *Judge) Consult(promptCID, policyCID cidutil.CID, principal string, proofs []policy.Proof) (*receipt.Receipt, error) {
	if j.Gateway == nil {
		return nil, errors.New("judge: no gateway configured")
	}

	promptBytes, err := j.CAS.Get(promptCID)
	if err != nil {
		return nil, err
	}
	prompt, err := canon.ParseNormalized(promptBytes)
	if err != nil {
		return nil, err
	}

	req := permit.Request{Principal: principal, Action: "judge.consult", Resource: promptCID.String()}
	if err := permit.Allow(req, policyCID, proofs, j.Verifier, j.CAS); err != nil {
		return nil, err
	}

	answer, err := j.Gateway.Call(prompt.Value)
	if err != nil {
		return nil, err
	}
	response, err := canon.Normalize(answer)
	if err != nil {
		return nil, err
	}
	responseCID, err := j.CAS.Put(response.Canonical)
	if err != nil {
		return nil, err
	}

	return receipt.Emit(map[string]any{
		"prompt_cid":   promptCID.String(),
		"policy_cid":   policyCID.String(),
		"response_cid": responseCID.String(),
		"response":     response.Value,
	})
}
