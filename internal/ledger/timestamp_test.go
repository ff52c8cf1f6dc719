package ledger

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Timestamp
		wantErr bool
	}{
		{name: "full nanos", raw: "1700000000.123456789", want: Timestamp{Seconds: 1700000000, Nanos: 123456789}},
		{name: "short fraction padded", raw: "1700000000.1", want: Timestamp{Seconds: 1700000000, Nanos: 100000000}},
		{name: "leading zero fraction", raw: "1700000000.000000001", want: Timestamp{Seconds: 1700000000, Nanos: 1}},
		{name: "nanosecond boundary", raw: "1700000000.999999999", want: Timestamp{Seconds: 1700000000, Nanos: 999999999}},
		{name: "seconds only", raw: "42", want: Timestamp{Seconds: 42}},
		{name: "empty", raw: "", wantErr: true},
		{name: "too many digits", raw: "1.1234567890", wantErr: true},
		{name: "negative", raw: "-1.5", wantErr: true},
		{name: "float exponent", raw: "1e9", wantErr: true},
		{name: "empty fraction", raw: "12.", wantErr: true},
		{name: "letters", raw: "abc.def", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %#v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := Timestamp{Seconds: 1700000000, Nanos: 5}
	if ts.String() != "1700000000.000000005" {
		t.Fatalf("unexpected string form %q", ts.String())
	}
	parsed, err := ParseTimestamp(ts.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != ts {
		t.Fatalf("expected %#v, got %#v", ts, parsed)
	}
	if got := ts.Time(); got.Nanosecond() != 5 || got.Unix() != 1700000000 {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestTimestampFormat(t *testing.T) {
	ts := TimestampFromTime(time.Date(2024, 3, 9, 16, 5, 7, 999999999, time.UTC))
	if got := ts.Format(); got != "2024-03-09 16:05:07" {
		t.Fatalf("unexpected display form %q", got)
	}
}
