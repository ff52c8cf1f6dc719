package models

import "testing"

func TestParseRecordKind(t *testing.T) {
	tests := []struct {
		raw     string
		want    RecordKind
		wantErr bool
	}{
		{raw: "anchor", want: RecordKindAnchor},
		{raw: " Revoke ", want: RecordKindRevoke},
		{raw: "", wantErr: true},
		{raw: "delete", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseRecordKind(tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tt.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parse %q: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Fatalf("expected %q, got %q", tt.want, got)
		}
	}
}

func TestRecordSequencesByKind(t *testing.T) {
	anchor := AnchorRecord{Kind: RecordKindAnchor, Sequence: 12}
	if anchor.AnchorSequence() == nil || *anchor.AnchorSequence() != 12 {
		t.Fatalf("expected anchor sequence 12, got %v", anchor.AnchorSequence())
	}
	if anchor.RevokeSequence() != nil {
		t.Fatal("anchor record must not expose a revoke sequence")
	}

	revoke := AnchorRecord{Kind: RecordKindRevoke, Sequence: 3}
	if revoke.RevokeSequence() == nil || *revoke.RevokeSequence() != 3 {
		t.Fatalf("expected revoke sequence 3, got %v", revoke.RevokeSequence())
	}
	if revoke.AnchorSequence() != nil {
		t.Fatal("revoke record must not expose an anchor sequence")
	}
}
