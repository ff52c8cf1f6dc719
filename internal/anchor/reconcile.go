package anchor

import (
	"context"
	"errors"
	"fmt"

	"docanchor/internal/fingerprint"
	"docanchor/internal/ledger"
	"docanchor/internal/models"
	"docanchor/internal/store"
)

// ChannelReport counts what reconciliation saw on one channel.
type ChannelReport struct {
	Channel  ledger.ChannelID
	Kind     models.RecordKind
	Scanned  int
	Inserted int
	Existing int
	// Ignored counts messages from other submitters or with a payload that is not a fingerprint.
	Ignored int
}

// ReconcileReport summarizes one reconciliation run.
type ReconcileReport struct {
	Channels []ChannelReport
}

// Inserted returns the number of rows restored across all channels.
func (r ReconcileReport) Inserted() int {
	total := 0
	for _, ch := range r.Channels {
		total += ch.Inserted
	}
	return total
}

// Reconcile scans both channels and indexes every operator message that has
// no row yet. Running it twice inserts nothing the second time.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	for _, target := range []struct {
		channel ledger.ChannelID
		kind    models.RecordKind
	}{
		{channel: s.channels.Anchor, kind: models.RecordKindAnchor},
		{channel: s.channels.Revoke, kind: models.RecordKindRevoke},
	} {
		ch, err := s.reconcileChannel(ctx, target.channel, target.kind)
		report.Channels = append(report.Channels, ch)
		if err != nil {
			return report, err
		}
	}
	s.logger.Info("reconcile finished", "inserted", report.Inserted())
	return report, nil
}

func (s *Service) reconcileChannel(ctx context.Context, channel ledger.ChannelID, kind models.RecordKind) (ChannelReport, error) {
	report := ChannelReport{Channel: channel, Kind: kind}
	operator := s.ledger.Operator()

	err := s.ledger.Scan(ctx, channel, 0, func(msg ledger.Message) error {
		report.Scanned++
		if msg.Submitter != operator {
			report.Ignored++
			return nil
		}
		hash := string(msg.Payload)
		if fingerprint.Validate(hash) != nil {
			report.Ignored++
			return nil
		}

		exists, err := s.index.RecordExistsForSequence(ctx, string(channel), uint64(msg.Sequence))
		if err != nil {
			return indexError("check sequence", err)
		}
		if exists {
			report.Existing++
			return nil
		}

		rec := &models.AnchorRecord{
			Kind:         kind,
			DocumentHash: hash,
			TopicID:      string(channel),
			Sequence:     uint64(msg.Sequence),
			Timestamp:    msg.ConsensusTimestamp.String(),
			CreatedAt:    msg.ConsensusTimestamp.Time(),
		}
		id, err := s.index.InsertRecord(ctx, rec)
		if errors.Is(err, store.ErrDuplicate) {
			report.Existing++
			return nil
		}
		if err != nil {
			return indexError("restore record", err)
		}
		report.Inserted++
		s.logger.Info("index record restored", "id", id, "kind", kind, "channel", channel, "sequence", msg.Sequence)
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("reconcile %s channel %s: %w", kind, channel, err)
	}
	return report, nil
}
