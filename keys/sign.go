package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"

	"github.com/danvoulez/rho-circles/cidutil"
	"github.com/danvoulez/rho-circles/policy"
)

// DefaultHashAlg is the digest applied to payload CIDs before signing.
const DefaultHashAlg = "sha256"

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha512":
		s := sha512.Sum512(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}

// SignEd25519 produces an ed25519 proof over hash(payload).
func SignEd25519(priv ed25519.PrivateKey, payload cidutil.CID, hashAlg string) (policy.Proof, error) {
	digest, err := digestFor(hashAlg, payload.Bytes())
	if err != nil {
		return policy.Proof{}, err
	}
	pub := priv.Public().(ed25519.PublicKey)
	return policy.Proof{
		Algorithm: policy.AlgEd25519,
		PublicKey: append([]byte(nil), pub...),
		Signature: ed25519.Sign(priv, digest),
	}, nil
}

// SignDilithium3 produces an mldsa3 proof over hash(payload).
func SignDilithium3(priv *mode3.PrivateKey, payload cidutil.CID, hashAlg string) (policy.Proof, error) {
	if priv == nil {
		return policy.Proof{}, fmt.Errorf("missing private key")
	}
	digest, err := digestFor(hashAlg, payload.Bytes())
	if err != nil {
		return policy.Proof{}, err
	}
	pub := priv.Public().(*mode3.PublicKey)
	pubBytes, err := pub.MarshalBinary()
	if err != nil {
		return policy.Proof{}, err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(priv, digest, sig)
	return policy.Proof{
		Algorithm: policy.AlgMLDSA3,
		PublicKey: pubBytes,
		Signature: sig,
	}, nil
}
