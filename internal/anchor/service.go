// Package anchor coordinates fingerprinting, ledger submission and the local
// record index for the anchor, revoke and verify flows.
package anchor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"docanchor/internal/fingerprint"
	"docanchor/internal/ledger"
	"docanchor/internal/models"
)

// Index is the subset of the record store the service needs.
type Index interface {
	InsertRecord(ctx context.Context, rec *models.AnchorRecord) (string, error)
	FindByHash(ctx context.Context, hash string, kind models.RecordKind) (*models.AnchorRecord, error)
	ListRecords(ctx context.Context) ([]models.AnchorRecord, error)
	ListByHash(ctx context.Context, hash string) ([]models.AnchorRecord, error)
	RecordExistsForSequence(ctx context.Context, topicID string, sequence uint64) (bool, error)
	DeleteRecord(ctx context.Context, id string) (int64, error)
}

// Channels names the two ledger channels the service writes to.
type Channels struct {
	Anchor ledger.ChannelID
	Revoke ledger.ChannelID
}

// Service runs the document flows. It holds no mutable state of its own and
// is safe for concurrent use when the ledger and index are.
type Service struct {
	ledger   ledger.Ledger
	index    Index
	channels Channels
	logger   *slog.Logger
}

// Result is returned by the anchor and revoke flows.
type Result struct {
	ID   string
	Hash string
}

// Status is the outcome of a verification.
type Status string

const (
	StatusGenuine Status = "genuine"
	StatusRevoked Status = "revoked"
	StatusInvalid Status = "invalid"
	StatusUnknown Status = "unknown"
)

// Verification reports what the ledger says about a fingerprint.
type Verification struct {
	Status       Status
	UploadedHash string
	// StoredHash is the payload read back from the ledger, when one was read.
	StoredHash string
	Timestamp  ledger.Timestamp
	RecordID   string
	Reason     string
}

// Genuine reports whether the content is anchored and not revoked.
func (v Verification) Genuine() bool {
	return v.Status == StatusGenuine
}

// NewService wires a service. Both channels are required.
func NewService(l ledger.Ledger, index Index, channels Channels, logger *slog.Logger) (*Service, error) {
	if l == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if index == nil {
		return nil, fmt.Errorf("index is required")
	}
	if strings.TrimSpace(string(channels.Anchor)) == "" {
		return nil, fmt.Errorf("anchor channel is required")
	}
	if strings.TrimSpace(string(channels.Revoke)) == "" {
		return nil, fmt.Errorf("revoke channel is required")
	}
	if channels.Anchor == channels.Revoke {
		return nil, fmt.Errorf("anchor and revoke channels must differ")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ledger:   l,
		index:    index,
		channels: channels,
		logger:   logger.With("component", "anchor"),
	}, nil
}

// Channels returns the configured channel ids.
func (s *Service) Channels() Channels {
	return s.channels
}

// Operator returns the identity that signs submissions.
func (s *Service) Operator() ledger.Identity {
	return s.ledger.Operator()
}

// Anchor commits the fingerprint of data to the anchor channel and indexes it.
// Nothing is indexed unless the ledger accepted the message.
func (s *Service) Anchor(ctx context.Context, data []byte) (Result, error) {
	hash, err := fingerprint.Sum(data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	seq, err := s.ledger.Submit(ctx, s.channels.Anchor, []byte(hash))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrAnchorFailed, err)
	}

	id, err := s.index.InsertRecord(ctx, &models.AnchorRecord{
		Kind:         models.RecordKindAnchor,
		DocumentHash: hash,
		TopicID:      string(s.channels.Anchor),
		Sequence:     uint64(seq),
	})
	if err != nil {
		// The message is committed; only reconciliation can restore the row.
		s.logger.Error("anchor committed but not indexed", "channel", s.channels.Anchor, "sequence", seq, "hash", hash, "error", err)
		return Result{}, indexError("index anchor", err)
	}

	s.logger.Info("document anchored", "id", id, "hash", hash, "channel", s.channels.Anchor, "sequence", seq)
	return Result{ID: id, Hash: hash}, nil
}

// Revoke commits the fingerprint of data to the revoke channel. The anchor
// message is read back from the ledger first: its payload must match and it
// must have been submitted by the current operator.
func (s *Service) Revoke(ctx context.Context, data []byte) (Result, error) {
	hash, err := fingerprint.Sum(data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	rec, err := s.index.FindByHash(ctx, hash, models.RecordKindAnchor)
	if err != nil {
		return Result{}, indexError("find anchor", err)
	}
	if rec == nil {
		return Result{}, ErrNotAnchored
	}

	msg, err := s.ledger.Retrieve(ctx, ledger.ChannelID(rec.TopicID), ledger.Sequence(rec.Sequence))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrAnchorUnconfirmed, err)
	}
	if !bytes.Equal(msg.Payload, []byte(hash)) {
		s.logger.Warn("anchor record does not match ledger", "id", rec.ID, "channel", rec.TopicID, "sequence", rec.Sequence)
		return Result{}, fmt.Errorf("%w: ledger message %s #%d holds a different fingerprint", ErrNotAnchored, rec.TopicID, rec.Sequence)
	}
	if operator := s.ledger.Operator(); msg.Submitter != operator {
		s.logger.Warn("revoke refused", "hash", hash, "anchored_by", msg.Submitter, "operator", operator)
		return Result{}, fmt.Errorf("%w: anchored by %s", ErrUnauthorized, msg.Submitter)
	}

	seq, err := s.ledger.Submit(ctx, s.channels.Revoke, []byte(hash))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrRevokeFailed, err)
	}

	id, err := s.index.InsertRecord(ctx, &models.AnchorRecord{
		Kind:         models.RecordKindRevoke,
		DocumentHash: hash,
		TopicID:      string(s.channels.Revoke),
		Sequence:     uint64(seq),
	})
	if err != nil {
		s.logger.Error("revoke committed but not indexed", "channel", s.channels.Revoke, "sequence", seq, "hash", hash, "error", err)
		return Result{}, indexError("index revoke", err)
	}

	s.logger.Info("document revoked", "id", id, "hash", hash, "channel", s.channels.Revoke, "sequence", seq)
	return Result{ID: id, Hash: hash}, nil
}

// Verify answers whether data is currently anchored and not revoked.
// Revocation is checked first so a later anchor never hides an earlier revoke.
// Ledger read failures become an invalid result; only index failures are errors.
func (s *Service) Verify(ctx context.Context, data []byte) (Verification, error) {
	hash, err := fingerprint.Sum(data)
	if err != nil {
		return Verification{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	result := Verification{UploadedHash: hash}

	revoke, err := s.index.FindByHash(ctx, hash, models.RecordKindRevoke)
	if err != nil {
		return Verification{}, indexError("find revoke", err)
	}
	if revoke != nil {
		msg, err := s.ledger.Retrieve(ctx, ledger.ChannelID(revoke.TopicID), ledger.Sequence(revoke.Sequence))
		if err != nil {
			s.logger.Warn("revoke message unreadable", "id", revoke.ID, "channel", revoke.TopicID, "sequence", revoke.Sequence, "error", err)
			result.Status = StatusInvalid
			result.RecordID = revoke.ID
			result.Reason = describeReadFailure("revocation", err)
			return result, nil
		}
		if bytes.Equal(msg.Payload, []byte(hash)) {
			result.Status = StatusRevoked
			result.StoredHash = string(msg.Payload)
			result.Timestamp = msg.ConsensusTimestamp
			result.RecordID = revoke.ID
			result.Reason = "document is revoked"
			return result, nil
		}
		s.logger.Warn("revoke record does not match ledger", "id", revoke.ID, "channel", revoke.TopicID, "sequence", revoke.Sequence)
	}

	anchored, err := s.index.FindByHash(ctx, hash, models.RecordKindAnchor)
	if err != nil {
		return Verification{}, indexError("find anchor", err)
	}
	if anchored == nil {
		result.Status = StatusUnknown
		result.Reason = "document was never anchored"
		return result, nil
	}
	result.RecordID = anchored.ID

	msg, err := s.ledger.Retrieve(ctx, ledger.ChannelID(anchored.TopicID), ledger.Sequence(anchored.Sequence))
	if err != nil {
		s.logger.Warn("anchor message unreadable", "id", anchored.ID, "channel", anchored.TopicID, "sequence", anchored.Sequence, "error", err)
		result.Status = StatusInvalid
		result.Reason = describeReadFailure("anchor", err)
		return result, nil
	}
	result.StoredHash = string(msg.Payload)
	if !bytes.Equal(msg.Payload, []byte(hash)) {
		result.Status = StatusInvalid
		result.Reason = "ledger message holds a different fingerprint"
		return result, nil
	}

	result.Status = StatusGenuine
	result.Timestamp = msg.ConsensusTimestamp
	return result, nil
}

func describeReadFailure(what string, err error) string {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return what + " message not found on the ledger"
	case errors.Is(err, ledger.ErrMalformedResponse):
		return what + " message could not be decoded"
	default:
		return what + " message could not be read"
	}
}

// List returns every index record, newest first.
func (s *Service) List(ctx context.Context) ([]models.AnchorRecord, error) {
	records, err := s.index.ListRecords(ctx)
	if err != nil {
		return nil, indexError("list records", err)
	}
	return records, nil
}

// History returns the anchor and revoke records indexed for one fingerprint,
// newest first.
func (s *Service) History(ctx context.Context, hash string) ([]models.AnchorRecord, error) {
	records, err := s.index.ListByHash(ctx, strings.ToLower(strings.TrimSpace(hash)))
	if err != nil {
		return nil, indexError("document history", err)
	}
	return records, nil
}

// Delete removes one index row. The ledger is not touched, so deleting a row
// never un-anchors or un-revokes a document.
func (s *Service) Delete(ctx context.Context, id string) (int64, error) {
	n, err := s.index.DeleteRecord(ctx, id)
	if err != nil {
		return 0, indexError("delete record", err)
	}
	if n > 0 {
		s.logger.Info("index record deleted", "id", id)
	}
	return n, nil
}

// CreateChannel provisions a new ledger channel.
func (s *Service) CreateChannel(ctx context.Context) (ledger.ChannelID, error) {
	id, err := s.ledger.CreateChannel(ctx)
	if err != nil {
		return "", err
	}
	s.logger.Info("channel created", "channel", id)
	return id, nil
}
