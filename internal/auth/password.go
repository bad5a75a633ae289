package auth

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPIN hashes a plaintext PIN using bcrypt with DefaultCost.
func HashPIN(pin string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	return string(b), err
}

// IsHashed reports whether stored looks like a bcrypt hash rather than a
// PIN saved in plaintext before hashing was introduced.
func IsHashed(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$")
}

// CheckPIN compares a stored PIN (bcrypt hash or legacy plaintext) with a
// candidate. legacy is true when the match came from a plaintext row.
func CheckPIN(stored, pin string) (ok, legacy bool) {
	if IsHashed(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(pin)) == nil, false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(pin)) == 1, true
}
