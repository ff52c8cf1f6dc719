package store

import (
	"crypto/rand"
	"fmt"
	"strings"

	"docanchor/internal/models"
)

const (
	base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idHashLength   = 8
	idMaxAttempts  = 20

	anchorIDPrefix = "ar"
	revokeIDPrefix = "rv"
)

// GenerateID returns a new record ID using a two-letter prefix.
// It retries on collisions using the provided exists function.
func GenerateID(prefix string, exists func(string) (bool, error)) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("id prefix is required")
	}

	for i := 0; i < idMaxAttempts; i++ {
		hash, err := randomBase36(idHashLength)
		if err != nil {
			return "", err
		}
		id := fmt.Sprintf("%s-%s", prefix, hash)
		if exists == nil {
			return id, nil
		}
		ok, err := exists(id)
		if err != nil {
			return "", err
		}
		if !ok {
			return id, nil
		}
	}

	return "", fmt.Errorf("unable to generate unique id")
}

// GenerateRecordID returns an ar- id for anchor rows and an rv- id for revoke rows.
func GenerateRecordID(kind models.RecordKind, exists func(string) (bool, error)) (string, error) {
	switch kind {
	case models.RecordKindAnchor:
		return GenerateID(anchorIDPrefix, exists)
	case models.RecordKindRevoke:
		return GenerateID(revokeIDPrefix, exists)
	default:
		return "", fmt.Errorf("invalid record kind: %s", kind)
	}
}

// ValidRecordID reports whether id has the ar-/rv- shape GenerateRecordID produces.
func ValidRecordID(id string) bool {
	prefix, hash, ok := strings.Cut(id, "-")
	if !ok || (prefix != anchorIDPrefix && prefix != revokeIDPrefix) || len(hash) != idHashLength {
		return false
	}
	for _, r := range hash {
		if !strings.ContainsRune(base36Alphabet, r) {
			return false
		}
	}
	return true
}

func randomBase36(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, length)
	for i := 0; i < length; i++ {
		out[i] = base36Alphabet[int(b[i])%len(base36Alphabet)]
	}
	return string(out), nil
}
