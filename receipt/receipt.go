// Package receipt emits signed computation records.
//
// A receipt binds a body to the CID of its canonical bytes; signatures live
// in a sibling field and are never hashed, so attaching or stripping proofs
// can never change a receipt's identity.
package receipt

import (
	"github.com/danvoulez/rho-circles/canon"
	"github.com/danvoulez/rho-circles/cidutil"
	"github.com/danvoulez/rho-circles/policy"
)

// Recibo is the receipt envelope: the body's content CID plus any proofs.
type Recibo struct {
	ContentCID cidutil.CID
	Signatures []policy.Proof
}

// Receipt is the terminal record of a computation.
type Receipt struct {
	Body   any
	Recibo Recibo
}

// Emit normalizes body and wraps it with its content CID and an empty
// signature set.
func Emit(body any) (*Receipt, error) {
	n, err := canon.Normalize(body)
	if err != nil {
		return nil, err
	}
	return &Receipt{
		Body:   n.Value,
		Recibo: Recibo{ContentCID: n.CID, Signatures: []policy.Proof{}},
	}, nil
}

// Sign appends a proof. The content CID is a function of Body alone and is
// never recomputed here.
func (r *Receipt) Sign(p policy.Proof) {
	r.Recibo.Signatures = append(r.Recibo.Signatures, p)
}

// Value renders the receipt in the admitted value model.
func (r *Receipt) Value() any {
	sigs := make([]any, len(r.Recibo.Signatures))
	for i, p := range r.Recibo.Signatures {
		sigs[i] = p.Value()
	}
	return map[string]any{
		"body": r.Body,
		"recibo": map[string]any{
			"content_cid": r.Recibo.ContentCID.String(),
			"signatures":  sigs,
		},
	}
}

// FromValue decodes a receipt from its value form and checks that the
// recorded content CID matches the body.
func FromValue(v any) (*Receipt, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, canonError("receipt must be a mapping")
	}
	rec, ok := m["recibo"].(map[string]any)
	if !ok {
		return nil, canonError("receipt missing recibo")
	}
	cidStr, ok := rec["content_cid"].(string)
	if !ok {
		return nil, canonError("recibo missing content_cid")
	}
	id, err := cidutil.Parse(cidStr)
	if err != nil {
		return nil, err
	}

	n, err := canon.Normalize(m["body"])
	if err != nil {
		return nil, err
	}
	if n.CID != id {
		return nil, canonError("recibo content_cid does not match body")
	}

	out := &Receipt{Body: n.Value, Recibo: Recibo{ContentCID: id, Signatures: []policy.Proof{}}}
	if sigs, present := rec["signatures"]; present {
		proofs, err := policy.ProofsFromValue(sigs)
		if err != nil {
			return nil, err
		}
		out.Recibo.Signatures = proofs
	}
	return out, nil
}

type receiptError string

func (e receiptError) Error() string { return string(e) }

func canonError(msg string) error { return receiptError("receipt: " + msg) }
