package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	minTokenLength = 16
	generatedBytes = 32
)

var bcryptPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// ValidateToken checks minimal token requirements.
func ValidateToken(token string) error {
	if len(strings.TrimSpace(token)) < minTokenLength {
		return fmt.Errorf("token must be at least %d characters", minTokenLength)
	}
	return nil
}

// GenerateToken returns a random hex token.
func GenerateToken() (string, error) {
	b := make([]byte, generatedBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken hashes one plaintext token so it can be configured instead of the secret.
func HashToken(token string) (string, error) {
	if err := ValidateToken(token); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// IsHashed reports whether a configured token is a bcrypt hash.
func IsHashed(configured string) bool {
	for _, prefix := range bcryptPrefixes {
		if strings.HasPrefix(configured, prefix) {
			return true
		}
	}
	return false
}

// VerifyToken checks a presented token against a configured one, which may be
// plaintext or a bcrypt hash. An empty configuration never matches.
func VerifyToken(configured, candidate string) bool {
	configured = strings.TrimSpace(configured)
	if configured == "" || candidate == "" {
		return false
	}
	if IsHashed(configured) {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(candidate)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(candidate)) == 1
}
