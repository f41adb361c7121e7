package auth

import (
	"crypto/subtle"

	"github.com/alexedwards/argon2id"
)

var params = &argon2id.Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// Hash produces an Argon2id hash with its parameters embedded.
func Hash(password string) (string, error) {
	return argon2id.CreateHash(password, params)
}

// Verify checks password against an Argon2id hash produced by Hash.
func Verify(password, encodedHash string) (bool, error) {
	return argon2id.ComparePasswordAndHash(password, encodedHash)
}

// EqualSecret compares two plain secrets in constant time.
func EqualSecret(given, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(expected)) == 1
}
