package keys

import (
	"crypto/ed25519"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"github.com/danvoulez/rho-circles/cidutil"
	"github.com/danvoulez/rho-circles/policy"
)

// Verifier checks ed25519 and mldsa3 proofs over hash(payload CID).
//
// It implements policy.Verifier. The zero value verifies with DefaultHashAlg.
type Verifier struct {
	// HashAlg selects the payload digest; empty means DefaultHashAlg.
	// It must match the algorithm the proofs were produced with.
	HashAlg string
}

var _ policy.Verifier = Verifier{}

func (v Verifier) Verify(p policy.Proof, payload cidutil.CID) bool {
	hashAlg := v.HashAlg
	if hashAlg == "" {
		hashAlg = DefaultHashAlg
	}
	digest, err := digestFor(hashAlg, payload.Bytes())
	if err != nil {
		return false
	}

	switch p.Algorithm {
	case policy.AlgEd25519:
		if len(p.PublicKey) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(p.PublicKey), digest, p.Signature)
	case policy.AlgMLDSA3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(p.PublicKey); err != nil {
			return false
		}
		return mode3.Verify(&pk, digest, p.Signature)
	default:
		return false
	}
}
