package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docanchor/internal/fingerprint"
	"docanchor/internal/models"
)

// testStore creates a temporary store for testing.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func testHash(t *testing.T, content string) string {
	t.Helper()
	hash, err := fingerprint.Sum([]byte(content))
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	return hash
}

func insertRecord(t *testing.T, st *Store, kind models.RecordKind, hash, topic string, seq uint64, createdAt time.Time) string {
	t.Helper()
	id, err := st.InsertRecord(context.Background(), &models.AnchorRecord{
		Kind:         kind,
		DocumentHash: hash,
		TopicID:      topic,
		Sequence:     seq,
		CreatedAt:    createdAt,
	})
	if err != nil {
		t.Fatalf("insert %s record: %v", kind, err)
	}
	return id
}

func TestInsertAndFindByHash(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	hash := testHash(t, "hello")
	now := time.Now().UTC()

	id := insertRecord(t, st, models.RecordKindAnchor, hash, "0.0.1001", 7, now)
	if !strings.HasPrefix(id, "ar-") {
		t.Fatalf("expected ar- id, got %q", id)
	}

	got, err := st.FindByHash(ctx, hash, models.RecordKindAnchor)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil {
		t.Fatal("expected record, got nil")
	}
	if got.ID != id || got.TopicID != "0.0.1001" || got.Sequence != 7 {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.AnchorSequence() == nil || *got.AnchorSequence() != 7 {
		t.Fatalf("expected anchor sequence 7, got %v", got.AnchorSequence())
	}
	if got.RevokeSequence() != nil {
		t.Fatal("anchor record should not expose a revoke sequence")
	}

	revoked, err := st.FindByHash(ctx, hash, models.RecordKindRevoke)
	if err != nil {
		t.Fatalf("find revoke: %v", err)
	}
	if revoked != nil {
		t.Fatalf("expected no revoke record, got %+v", revoked)
	}
}

func TestFindByHashReturnsMostRecent(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	hash := testHash(t, "contract")
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	insertRecord(t, st, models.RecordKindAnchor, hash, "0.0.1001", 1, base)
	newest := insertRecord(t, st, models.RecordKindAnchor, hash, "0.0.1001", 2, base.Add(time.Hour))

	got, err := st.FindByHash(ctx, hash, models.RecordKindAnchor)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil || got.ID != newest {
		t.Fatalf("expected newest record %s, got %+v", newest, got)
	}
}

func TestFindByHashRejectsMalformedHash(t *testing.T) {
	st := testStore(t)
	// Closing first proves the check happens before any query.
	st.Close()

	for _, hash := range []string{"", "abc", strings.ToUpper(testHash(t, "x"))} {
		_, err := st.FindByHash(context.Background(), hash, models.RecordKindAnchor)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("hash %q: expected ErrInvalidInput, got %v", hash, err)
		}
		if !errors.Is(err, fingerprint.ErrInvalidInput) {
			t.Fatalf("hash %q: expected fingerprint.ErrInvalidInput in chain, got %v", hash, err)
		}
	}
}

func TestInsertRecordValidation(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	hash := testHash(t, "doc")

	tests := []struct {
		name string
		rec  *models.AnchorRecord
	}{
		{name: "nil", rec: nil},
		{name: "bad hash", rec: &models.AnchorRecord{Kind: models.RecordKindAnchor, DocumentHash: "nope", TopicID: "0.0.1", Sequence: 1}},
		{name: "bad kind", rec: &models.AnchorRecord{Kind: "other", DocumentHash: hash, TopicID: "0.0.1", Sequence: 1}},
		{name: "missing topic", rec: &models.AnchorRecord{Kind: models.RecordKindAnchor, DocumentHash: hash, Sequence: 1}},
		{name: "zero sequence", rec: &models.AnchorRecord{Kind: models.RecordKindAnchor, DocumentHash: hash, TopicID: "0.0.1"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := st.InsertRecord(ctx, tc.rec); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestInsertRecordDuplicateSequence(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	hash := testHash(t, "dup")

	insertRecord(t, st, models.RecordKindAnchor, hash, "0.0.1001", 3, time.Now())

	_, err := st.InsertRecord(ctx, &models.AnchorRecord{
		Kind:         models.RecordKindAnchor,
		DocumentHash: hash,
		TopicID:      "0.0.1001",
		Sequence:     3,
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// Same sequence on a different channel is a different message.
	insertRecord(t, st, models.RecordKindRevoke, hash, "0.0.1002", 3, time.Now())
}

func TestRecordExistsForSequence(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	insertRecord(t, st, models.RecordKindRevoke, testHash(t, "r"), "0.0.2002", 9, time.Now())

	ok, err := st.RecordExistsForSequence(ctx, "0.0.2002", 9)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !ok {
		t.Fatal("expected record to exist")
	}

	ok, err = st.RecordExistsForSequence(ctx, "0.0.2002", 10)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatal("expected no record for sequence 10")
	}
}

func TestListRecordsAndListByHash(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := testHash(t, "a")
	b := testHash(t, "b")

	insertRecord(t, st, models.RecordKindAnchor, a, "0.0.1001", 1, base)
	insertRecord(t, st, models.RecordKindAnchor, b, "0.0.1001", 2, base.Add(time.Minute))
	revokeID := insertRecord(t, st, models.RecordKindRevoke, a, "0.0.1002", 1, base.Add(2*time.Minute))

	all, err := st.ListRecords(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	if all[0].ID != revokeID {
		t.Fatalf("expected newest first, got %s", all[0].ID)
	}

	forA, err := st.ListByHash(ctx, a)
	if err != nil {
		t.Fatalf("list by hash: %v", err)
	}
	if len(forA) != 2 {
		t.Fatalf("expected 2 records for hash a, got %d", len(forA))
	}
	if forA[0].Kind != models.RecordKindRevoke || forA[1].Kind != models.RecordKindAnchor {
		t.Fatalf("unexpected kinds: %s, %s", forA[0].Kind, forA[1].Kind)
	}
}

func TestListRecordsEmpty(t *testing.T) {
	st := testStore(t)
	records, err := st.ListRecords(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty index, got %d", len(records))
	}
}

func TestDeleteRecord(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	id := insertRecord(t, st, models.RecordKindAnchor, testHash(t, "del"), "0.0.1001", 1, time.Now())

	n, err := st.DeleteRecord(ctx, id)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row removed, got %d", n)
	}

	n, err = st.DeleteRecord(ctx, id)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 rows removed, got %d", n)
	}

	if _, err := st.DeleteRecord(ctx, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank id, got %v", err)
	}
}

func TestTimestampPersisted(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	hash := testHash(t, "ts")

	_, err := st.InsertRecord(ctx, &models.AnchorRecord{
		Kind:         models.RecordKindAnchor,
		DocumentHash: hash,
		TopicID:      "0.0.1001",
		Sequence:     4,
		Timestamp:    "1700000000.123456789",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := st.FindByHash(ctx, hash, models.RecordKindAnchor)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Timestamp != "1700000000.123456789" {
		t.Fatalf("expected timestamp to round trip, got %q", got.Timestamp)
	}
}

func TestStoreInfo(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	insertRecord(t, st, models.RecordKindAnchor, testHash(t, "1"), "0.0.1001", 1, time.Now())
	insertRecord(t, st, models.RecordKindAnchor, testHash(t, "2"), "0.0.1001", 2, time.Now())
	insertRecord(t, st, models.RecordKindRevoke, testHash(t, "1"), "0.0.1002", 1, time.Now())

	info, err := st.StoreInfo(ctx)
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.SchemaVersion != latestVersion() {
		t.Fatalf("expected schema version %d, got %d", latestVersion(), info.SchemaVersion)
	}
	if info.TotalRecords != 3 {
		t.Fatalf("expected 3 records, got %d", info.TotalRecords)
	}
	if info.RecordCounts["anchor"] != 2 || info.RecordCounts["revoke"] != 1 {
		t.Fatalf("unexpected counts: %v", info.RecordCounts)
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	st := testStore(t)
	st.Close()

	if _, err := st.ListRecords(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
