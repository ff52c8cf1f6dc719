package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"docanchor/internal/fingerprint"
	"docanchor/internal/models"
)

// ErrInvalidInput is returned for records that cannot be written or looked up.
var ErrInvalidInput = errors.New("invalid record")

const recordColumns = "id, kind, document_hash, topic_id, sequence_number, consensus_timestamp, created_at"

// Fixed width so lexical order on created_at matches time order.
const dbTimeLayout = "2006-01-02T15:04:05.000000000Z"

// StoreInfo summarizes the index for the info endpoint.
type StoreInfo struct {
	SchemaVersion int            `json:"schema_version"`
	TotalRecords  int            `json:"total_records"`
	RecordCounts  map[string]int `json:"record_counts"`
}

// RecordExists reports whether a record with the given id exists.
func (s *Store) RecordExists(id string) (bool, error) {
	var exists int
	err := s.db.QueryRow("SELECT 1 FROM anchor_records WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, unavailable(err)
	}
	return true, nil
}

// InsertRecord writes rec and returns its id, generating one when rec.ID is empty.
func (s *Store) InsertRecord(ctx context.Context, rec *models.AnchorRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("%w: record is required", ErrInvalidInput)
	}
	if err := fingerprint.Validate(rec.DocumentHash); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	kind, err := models.ParseRecordKind(string(rec.Kind))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if strings.TrimSpace(rec.TopicID) == "" {
		return "", fmt.Errorf("%w: topic id is required", ErrInvalidInput)
	}
	if rec.Sequence == 0 {
		return "", fmt.Errorf("%w: sequence number is required", ErrInvalidInput)
	}

	id := rec.ID
	if id == "" {
		id, err = GenerateRecordID(kind, s.RecordExists)
		if err != nil {
			return "", err
		}
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO anchor_records ("+recordColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, string(kind), rec.DocumentHash, rec.TopicID, int64(rec.Sequence), nullIfBlank(rec.Timestamp), formatDBTime(createdAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: %s #%d", ErrDuplicate, rec.TopicID, rec.Sequence)
		}
		return "", unavailable(err)
	}

	rec.ID = id
	rec.Kind = kind
	rec.CreatedAt = parseDBTimeOrZero(formatDBTime(createdAt))
	return id, nil
}

// FindByHash returns the most recent record of kind for hash, or nil when none exists.
func (s *Store) FindByHash(ctx context.Context, hash string, kind models.RecordKind) (*models.AnchorRecord, error) {
	if err := fingerprint.Validate(hash); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if _, err := models.ParseRecordKind(string(kind)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+recordColumns+" FROM anchor_records WHERE document_hash = ? AND kind = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		hash, string(kind),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable(err)
	}
	return rec, nil
}

// ListByHash returns every record for hash, newest first.
func (s *Store) ListByHash(ctx context.Context, hash string) ([]models.AnchorRecord, error) {
	if err := fingerprint.Validate(hash); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return s.queryRecords(ctx,
		"SELECT "+recordColumns+" FROM anchor_records WHERE document_hash = ? ORDER BY created_at DESC, rowid DESC",
		hash,
	)
}

// ListRecords returns every record in the index, newest first.
func (s *Store) ListRecords(ctx context.Context) ([]models.AnchorRecord, error) {
	return s.queryRecords(ctx, "SELECT "+recordColumns+" FROM anchor_records ORDER BY created_at DESC, rowid DESC")
}

// RecordExistsForSequence reports whether a channel message is already indexed.
func (s *Store) RecordExistsForSequence(ctx context.Context, topicID string, sequence uint64) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM anchor_records WHERE topic_id = ? AND sequence_number = ?",
		topicID, int64(sequence),
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, unavailable(err)
	}
	return true, nil
}

// DeleteRecord removes the record with the given id and returns the number of rows removed.
// The ledger is never touched.
func (s *Store) DeleteRecord(ctx context.Context, id string) (int64, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM anchor_records WHERE id = ?", id)
	if err != nil {
		return 0, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// StoreInfo returns the schema version and per-kind record counts.
func (s *Store) StoreInfo(ctx context.Context) (*StoreInfo, error) {
	info := &StoreInfo{RecordCounts: map[string]int{
		string(models.RecordKindAnchor): 0,
		string(models.RecordKindRevoke): 0,
	}}

	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&info.SchemaVersion); err != nil {
		return nil, unavailable(err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT kind, COUNT(*) FROM anchor_records GROUP BY kind")
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, unavailable(err)
		}
		info.RecordCounts[kind] = count
		info.TotalRecords += count
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return info, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]models.AnchorRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var records []models.AnchorRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.AnchorRecord, error) {
	var (
		rec       models.AnchorRecord
		kind      string
		sequence  int64
		timestamp sql.NullString
		createdAt string
	)
	if err := row.Scan(&rec.ID, &kind, &rec.DocumentHash, &rec.TopicID, &sequence, &timestamp, &createdAt); err != nil {
		return nil, err
	}
	rec.Kind = models.RecordKind(kind)
	rec.Sequence = uint64(sequence)
	if timestamp.Valid {
		rec.Timestamp = timestamp.String
	}
	parsed, err := parseDBTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at for %s: %w", rec.ID, err)
	}
	rec.CreatedAt = parsed
	return &rec, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullIfBlank(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func formatDBTime(t time.Time) string {
	return t.UTC().Format(dbTimeLayout)
}

func parseDBTime(value string) (time.Time, error) {
	t, err := time.Parse(dbTimeLayout, value)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

func parseDBTimeOrZero(value string) time.Time {
	t, _ := parseDBTime(value)
	return t
}
