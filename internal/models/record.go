package models

import (
	"fmt"
	"strings"
	"time"
)

// RecordKind tags which channel flow produced an index row.
type RecordKind string

const (
	RecordKindAnchor RecordKind = "anchor"
	RecordKindRevoke RecordKind = "revoke"
)

var validRecordKinds = map[RecordKind]struct{}{
	RecordKindAnchor: {},
	RecordKindRevoke: {},
}

// AnchorRecord is one local index row pointing at a committed channel message.
// Anchor and revoke flows create separate rows that share DocumentHash.
type AnchorRecord struct {
	ID           string
	Kind         RecordKind
	DocumentHash string
	TopicID      string
	Sequence     uint64
	// Timestamp is the ledger consensus time when known (filled by reconciliation).
	Timestamp string
	CreatedAt time.Time
}

// AnchorSequence returns the anchor-channel sequence, or nil for revoke rows.
func (r AnchorRecord) AnchorSequence() *uint64 {
	if r.Kind != RecordKindAnchor {
		return nil
	}
	seq := r.Sequence
	return &seq
}

// RevokeSequence returns the revoke-channel sequence, or nil for anchor rows.
func (r AnchorRecord) RevokeSequence() *uint64 {
	if r.Kind != RecordKindRevoke {
		return nil
	}
	seq := r.Sequence
	return &seq
}

func ParseRecordKind(raw string) (RecordKind, error) {
	value := RecordKind(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("record kind is required")
	}
	if _, ok := validRecordKinds[value]; !ok {
		return "", fmt.Errorf("invalid record kind: %s", value)
	}
	return value, nil
}
