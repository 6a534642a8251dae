// Package token generates and hashes the secret material used by the
// enrollment flow. Plaintext values exist only in memory between generation
// and the single response that carries them; only SHA-256 digests are stored.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	enrollmentTokenBytes = 32 // 256 bits
	accessKeyIDBytes     = 16
	secretBytes          = 32
)

// NewEnrollmentToken returns a fresh single-use enrollment token:
// 32 random bytes, base64url without padding (43 characters). The encoding
// survives URLs and JSON bodies without escaping.
func NewEnrollmentToken() (string, error) {
	return randomString(enrollmentTokenBytes)
}

// NewAccessKeyID returns the public half of an agent credential.
func NewAccessKeyID() (string, error) {
	return randomString(accessKeyIDBytes)
}

// NewSecret returns the private half of an agent credential.
func NewSecret() (string, error) {
	return randomString(secretBytes)
}

// Hash computes the SHA-256 digest of a plaintext token or secret. Lookups
// and comparisons always go through the digest, never the plaintext.
func Hash(plaintext string) []byte {
	sum := sha256.Sum256([]byte(plaintext))
	return sum[:]
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
