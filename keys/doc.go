// Package keys provides the concrete signature algorithms behind the policy
// package's Verifier oracle: ed25519 and dilithium3 (the "mldsa3" policy
// leaf), signing over a configurable digest of the payload CID.
//
// The compute core never touches key material; this package is the
// caller-side collaborator that produces and checks proofs.
package keys
