// Package cryptox wraps the key-derivation primitives used for stored
// credentials.
package cryptox

import (
	"crypto/sha512"
	"crypto/subtle"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KDFIterations is the PBKDF2 work factor for stored passwords.
	KDFIterations = 100_000
	// KDFKeyLength is the derived key length in bytes.
	KDFKeyLength = 64
)

// DeriveKey stretches password with salt using PBKDF2-HMAC-SHA512.
func DeriveKey(password []byte, salt []byte) []byte {
	return pbkdf2.Key(password, salt, KDFIterations, KDFKeyLength, sha512.New)
}

// Equal compares two byte slices in constant time for equal lengths.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// EqualString is Equal for strings, e.g. moderation tokens and shared secrets.
func EqualString(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
