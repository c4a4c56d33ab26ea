package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// RenderPublicKey returns the printable key string "alg:" + base64(pubkey).
func RenderPublicKey(alg string, pub []byte) string {
	return alg + ":" + base64.StdEncoding.EncodeToString(pub)
}

// ParsePublicKey splits a printable key string into algorithm and raw bytes.
func ParsePublicKey(s string) (alg string, pub []byte, err error) {
	alg, enc, ok := strings.Cut(s, ":")
	if !ok || alg == "" {
		return "", nil, errors.New("invalid key encoding")
	}
	pub, err = base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return "", nil, fmt.Errorf("invalid key base64: %w", err)
	}
	return alg, pub, nil
}

// CheckRole validates a role label used in seed derivation.
func CheckRole(role string) error {
	if role == "" {
		return errors.New("role is required")
	}
	for _, r := range role {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		default:
			return fmt.Errorf("invalid role %q", role)
		}
	}
	return nil
}

// DeriveRoleSeed deterministically derives a role-specific Ed25519 seed from
// a root seed. Equal (rootSeed, role) pairs always yield equal seeds.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}

	digest, err := digestFor("sha256", deriveInput(rootSeed, role))
	if err != nil {
		return nil, err
	}
	if len(digest) < ed25519.SeedSize {
		return nil, errors.New("kdf output too short")
	}
	out := make([]byte, ed25519.SeedSize)
	copy(out, digest[:ed25519.SeedSize])
	return out, nil
}

func deriveInput(rootSeed []byte, role string) []byte {
	var b []byte
	b = append(b, rootSeed...)
	b = append(b, 0)
	b = append(b, "rho-circles-kms-v1"...)
	b = append(b, 0)
	b = append(b, "role:"...)
	b = append(b, role...)
	return b
}
