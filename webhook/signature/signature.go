package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// Supported algorithm names, matched case-insensitively
const (
	SHA1   = "sha1"
	SHA256 = "sha256"
)

/* Signer computes a keyed hash over a serialized payload and a shared
 * secret. One implementation owns exactly one hash family
 */
type Signer interface {
	// Algorithm returns the canonical lowercase algorithm name
	Algorithm() string
	// Sign produces the signature string in the form <algorithm>=<hex-digest>
	Sign(body []byte, secret string) (string, error)
	// Verify checks a signature using constant-time comparison
	Verify(body []byte, secret, signature string) (bool, error)
}

type hmacSigner struct {
	algorithm string
	newHash   func() hash.Hash
}

// NewSHA1 creates an HMAC-SHA1 signer
func NewSHA1() Signer {
	return &hmacSigner{algorithm: SHA1, newHash: sha1.New}
}

// NewSHA256 creates an HMAC-SHA256 signer
func NewSHA256() Signer {
	return &hmacSigner{algorithm: SHA256, newHash: sha256.New}
}

func (s *hmacSigner) Algorithm() string {
	return s.algorithm
}

func (s *hmacSigner) Sign(body []byte, secret string) (string, error) {
	if len(body) == 0 {
		return "", fmt.Errorf("body cannot be empty")
	}
	if secret == "" {
		return "", fmt.Errorf("secret cannot be empty")
	}

	mac := hmac.New(s.newHash, []byte(secret))
	mac.Write(body)

	return fmt.Sprintf("%s=%s", s.algorithm, hex.EncodeToString(mac.Sum(nil))), nil
}

func (s *hmacSigner) Verify(body []byte, secret, sig string) (bool, error) {
	expected, err := s.Sign(body, secret)
	if err != nil {
		return false, fmt.Errorf("calculating signature: %w", err)
	}

	// Accept both <alg>=<hex> and bare hex (query-string placement)
	candidate := sig
	if !strings.Contains(candidate, "=") {
		candidate = fmt.Sprintf("%s=%s", s.algorithm, candidate)
	}

	return subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1, nil
}

/* Registry resolves signers by algorithm name, case-insensitively
 * Deployments register the hash families they accept
 */
type Registry struct {
	signers map[string]Signer
}

// NewRegistry creates a registry with the given signers
func NewRegistry(signers ...Signer) *Registry {
	r := &Registry{signers: make(map[string]Signer)}
	for _, s := range signers {
		r.signers[s.Algorithm()] = s
	}
	return r
}

// DefaultRegistry creates a registry with SHA-1 and SHA-256 signers
func DefaultRegistry() *Registry {
	return NewRegistry(NewSHA1(), NewSHA256())
}

// Resolve returns the signer for an algorithm name
func (r *Registry) Resolve(algorithm string) (Signer, error) {
	s, ok := r.signers[strings.ToLower(algorithm)]
	if !ok {
		return nil, fmt.Errorf("unsupported algorithm: %s", algorithm)
	}
	return s, nil
}

/* ParseSignature splits a signature string into its algorithm tag and
 * hex digest. Used by receivers verifying inbound requests
 */
func ParseSignature(sig string) (algorithm, digest string, err error) {
	parts := strings.SplitN(sig, "=", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid signature format, expected 'algorithm=digest'")
	}
	return strings.ToLower(parts[0]), parts[1], nil
}
