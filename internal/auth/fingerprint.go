package auth

import (
	"crypto/sha256"
	"encoding/base64"
)

// Fingerprint returns a short SHA-256 digest of a raw token so audit records
// can correlate requests without storing the token itself.
func Fingerprint(raw string) string {
	if raw == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:12])
}
