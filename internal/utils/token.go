package utils // package utils provides helpers for token and code generation

import (
	"crypto/hmac"     // HMAC keys the at-rest digest of session tokens
	"crypto/rand"     // secure random number generation
	"crypto/sha256"   // SHA-256 for session token digests
	"encoding/base64" // URL-safe encoding for bearer tokens
	"encoding/hex"    // hex encoding for digests
	"fmt"             // zero-padded code formatting
	"math/big"        // uniform draw for the verification code
)

// NewSessionToken returns an opaque, URL-safe bearer token built from 32
// bytes of cryptographically secure randomness.  Clients hold the raw token;
// only its digest is persisted.
func NewSessionToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewVerificationCode returns a zero-padded 6-digit code drawn uniformly
// from [0, 1000000) using a cryptographically secure source.
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashSessionToken returns the hex HMAC-SHA256 digest of a raw session
// token, keyed by the application secret.  Storing only the digest keeps a
// leaked sessions table from yielding usable bearer tokens.
func HashSessionToken(secret, raw string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
