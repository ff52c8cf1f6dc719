package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"regexp"
)

// Size is the length of a rendered fingerprint in hex characters.
const Size = sha256.Size * 2

// ErrInvalidInput is returned for empty buffers and malformed fingerprints.
var ErrInvalidInput = errors.New("invalid input")

var pattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Sum returns the lowercase hex SHA-256 digest of data.
func Sum(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty buffer", ErrInvalidInput)
	}
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:]), nil
}

// Reader streams r through the hash and returns the digest and the byte count.
// An empty stream is rejected the same way Sum rejects an empty buffer.
func Reader(r io.Reader) (string, int64, error) {
	if r == nil {
		return "", 0, fmt.Errorf("%w: reader is required", ErrInvalidInput)
	}
	h := sha256.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", n, err
	}
	if n == 0 {
		return "", 0, fmt.Errorf("%w: empty buffer", ErrInvalidInput)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// Validate reports whether s is a well-formed fingerprint.
func Validate(s string) error {
	if !pattern.MatchString(s) {
		return fmt.Errorf("%w: malformed fingerprint %q", ErrInvalidInput, s)
	}
	return nil
}
