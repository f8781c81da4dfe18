package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/memorialboard/internal/common"
	"github.com/dmitrijs2005/memorialboard/internal/cryptox"
)

// MinPasswordLength is the shortest password accepted for an approver.
const MinPasswordLength = 8

const saltSize = 16

// saltSource is the entropy source for password salts.
var saltSource io.Reader = rand.Reader

// HashPassword returns the stored form "hex(salt):hex(key)". The hex text of
// the salt, not its raw bytes, is the PBKDF2 salt input.
func HashPassword(password string) (string, error) {
	salt, err := common.ReadRandHexString(saltSource, saltSize)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := cryptox.DeriveKey([]byte(password), []byte(salt))
	return salt + ":" + hex.EncodeToString(key), nil
}

// VerifyPassword reports whether password matches stored. Malformed stored
// values never match.
func VerifyPassword(password, stored string) bool {
	salt, keyHex, ok := strings.Cut(stored, ":")
	if !ok || salt == "" || keyHex == "" {
		return false
	}

	want, err := hex.DecodeString(keyHex)
	if err != nil || len(want) != cryptox.KDFKeyLength {
		return false
	}

	return cryptox.Equal(cryptox.DeriveKey([]byte(password), []byte(salt)), want)
}

// ValidatePassword enforces the password policy.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return common.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	return nil
}
