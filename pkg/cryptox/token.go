package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// TokenSize256 is the entropy of invitation and reset links: 32 random
// bytes, 43 characters once encoded.
const TokenSize256 = 32

var tokenEncoding = base64.RawURLEncoding

// GenerateToken draws size bytes from crypto/rand. The result is unpadded
// base64url and can go into a query string without escaping.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return tokenEncoding.EncodeToString(raw), nil
}

// FingerprintToken hashes a raw token for storage and lookup. The database
// never sees the raw value.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return tokenEncoding.EncodeToString(sum[:])
}
