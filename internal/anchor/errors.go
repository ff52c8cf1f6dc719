package anchor

import (
	"errors"
	"fmt"

	"docanchor/internal/fingerprint"
	"docanchor/internal/store"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrAnchorFailed means the anchor message was not committed and nothing was indexed.
	ErrAnchorFailed = errors.New("anchor failed")
	// ErrRevokeFailed means the revoke message was not committed and nothing was indexed.
	ErrRevokeFailed = errors.New("revoke failed")
	ErrNotAnchored  = errors.New("document is not anchored")
	// ErrUnauthorized means the anchor was submitted by another identity.
	ErrUnauthorized = errors.New("not authorized to revoke this document")
	// ErrAnchorUnconfirmed means the anchor message could not be read back from the ledger.
	ErrAnchorUnconfirmed = errors.New("anchor could not be confirmed on the ledger")
	ErrStoreUnavailable  = errors.New("index store unavailable")
)

// indexError maps an index failure onto the service taxonomy.
func indexError(op string, err error) error {
	switch {
	case errors.Is(err, store.ErrInvalidInput), errors.Is(err, fingerprint.ErrInvalidInput):
		return fmt.Errorf("%s: %w: %w", op, ErrInvalidInput, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
	}
}
