package policy

import (
	"encoding/base64"
	"fmt"
)

// Proof is a caller-supplied signature over a payload CID.
//
// The core never interprets the key or signature bytes; only the Verifier
// oracle does.
type Proof struct {
	Algorithm string
	PublicKey []byte
	Signature []byte
}

// Value renders the proof in the admitted value model, with key and
// signature bytes in standard base64.
func (p Proof) Value() any {
	return map[string]any{
		"algorithm":  p.Algorithm,
		"public_key": base64.StdEncoding.EncodeToString(p.PublicKey),
		"signature":  base64.StdEncoding.EncodeToString(p.Signature),
	}
}

// ProofFromValue decodes a proof from its value form.
func ProofFromValue(v any) (Proof, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return Proof{}, &Error{Kind: KindProof, RuleID: "RHO-POLICY-200", Message: "proof must be a mapping"}
	}
	alg, ok := m["algorithm"].(string)
	if !ok || alg == "" {
		return Proof{}, &Error{Kind: KindProof, RuleID: "RHO-POLICY-201", Message: "proof missing algorithm"}
	}
	pub, err := decodeB64Field(m, "public_key")
	if err != nil {
		return Proof{}, err
	}
	sig, err := decodeB64Field(m, "signature")
	if err != nil {
		return Proof{}, err
	}
	return Proof{Algorithm: alg, PublicKey: pub, Signature: sig}, nil
}

// ProofsFromValue decodes a sequence of proofs.
func ProofsFromValue(v any) ([]Proof, error) {
	seq, ok := v.([]any)
	if !ok {
		return nil, &Error{Kind: KindProof, RuleID: "RHO-POLICY-204", Message: "proofs must be a sequence"}
	}
	out := make([]Proof, 0, len(seq))
	for _, elem := range seq {
		p, err := ProofFromValue(elem)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func decodeB64Field(m map[string]any, field string) ([]byte, error) {
	s, ok := m[field].(string)
	if !ok {
		return nil, &Error{Kind: KindProof, RuleID: "RHO-POLICY-202",
			Message: fmt.Sprintf("proof missing %s", field)}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &Error{Kind: KindProof, RuleID: "RHO-POLICY-203",
			Message: fmt.Sprintf("proof %s is not valid base64", field), Cause: err}
	}
	return b, nil
}
