package ledger

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const testHash = "f24968f8832933681380bb5f6712ccaa544ad38933e450eefea2bec83e0a9cf1"

func newTestMirror(t *testing.T, handler http.Handler) *MirrorReader {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	reader, err := NewMirrorReader(srv.URL+"/api/v1", MirrorOptions{RetryAttempts: 3, RetryBackoff: time.Millisecond})
	if err != nil {
		t.Fatalf("new mirror reader: %v", err)
	}
	return reader
}

func writeMirrorMessage(w http.ResponseWriter, seq int, payload, ts, payer string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"consensus_timestamp":%q,"message":%q,"payer_account_id":%q,"sequence_number":%d,"topic_id":"0.0.42"}`,
		ts, base64.StdEncoding.EncodeToString([]byte(payload)), payer, seq)
}

func TestMirrorRetrieve(t *testing.T) {
	reader := newTestMirror(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/topics/0.0.42/messages/7" {
			http.NotFound(w, r)
			return
		}
		writeMirrorMessage(w, 7, testHash, "1700000000.000000001", "0.0.1001")
	}))

	msg, err := reader.Retrieve(context.Background(), "0.0.42", 7)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if string(msg.Payload) != testHash {
		t.Fatalf("payload not decoded byte-for-byte: %q", msg.Payload)
	}
	if msg.Submitter != "0.0.1001" {
		t.Fatalf("unexpected submitter %q", msg.Submitter)
	}
	if msg.Sequence != 7 || msg.Channel != "0.0.42" {
		t.Fatalf("unexpected position %s/%d", msg.Channel, msg.Sequence)
	}
	if msg.ConsensusTimestamp != (Timestamp{Seconds: 1700000000, Nanos: 1}) {
		t.Fatalf("unexpected timestamp %#v", msg.ConsensusTimestamp)
	}
}

func TestMirrorRetrieveRetriesPropagationDelay(t *testing.T) {
	var calls atomic.Int32
	reader := newTestMirror(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.NotFound(w, r)
			return
		}
		writeMirrorMessage(w, 1, testHash, "1700000000.5", "0.0.1001")
	}))

	msg, err := reader.Retrieve(context.Background(), "0.0.42", 1)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if string(msg.Payload) != testHash {
		t.Fatalf("unexpected payload %q", msg.Payload)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestMirrorRetrieveErrors(t *testing.T) {
	t.Run("not found after retries", func(t *testing.T) {
		var calls atomic.Int32
		reader := newTestMirror(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			http.NotFound(w, r)
		}))
		_, err := reader.Retrieve(context.Background(), "0.0.42", 1)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if calls.Load() != 3 {
			t.Fatalf("expected bounded retries (3), got %d", calls.Load())
		}
	})

	t.Run("server error is unavailable", func(t *testing.T) {
		reader := newTestMirror(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		_, err := reader.Retrieve(context.Background(), "0.0.42", 1)
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("bad base64", func(t *testing.T) {
		reader := newTestMirror(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"consensus_timestamp":"1.1","message":"%%%","payer_account_id":"0.0.1"}`)
		}))
		_, err := reader.Retrieve(context.Background(), "0.0.42", 1)
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("expected ErrMalformedResponse, got %v", err)
		}
	})

	t.Run("bad timestamp", func(t *testing.T) {
		reader := newTestMirror(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeMirrorMessage(w, 1, testHash, "yesterday", "0.0.1001")
		}))
		_, err := reader.Retrieve(context.Background(), "0.0.42", 1)
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("expected ErrMalformedResponse, got %v", err)
		}
	})

	t.Run("bad json", func(t *testing.T) {
		reader := newTestMirror(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `not json`)
		}))
		_, err := reader.Retrieve(context.Background(), "0.0.42", 1)
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("expected ErrMalformedResponse, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		reader := newTestMirror(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := reader.Retrieve(ctx, "0.0.42", 1); err == nil {
			t.Fatal("expected error for cancelled context")
		}
	})
}

func TestMirrorScanFollowsNextLinks(t *testing.T) {
	reader := newTestMirror(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		msg := func(seq int) string {
			return fmt.Sprintf(`{"consensus_timestamp":"1700000000.%d","message":%q,"payer_account_id":"0.0.1001","sequence_number":%d,"topic_id":"0.0.42"}`,
				seq, base64.StdEncoding.EncodeToString([]byte(testHash)), seq)
		}
		switch r.URL.Query().Get("sequencenumber") {
		case "gt:0":
			fmt.Fprintf(w, `{"messages":[%s,%s],"links":{"next":"/api/v1/topics/0.0.42/messages?sequencenumber=gt:2&order=asc&limit=2"}}`, msg(1), msg(2))
		case "gt:2":
			fmt.Fprintf(w, `{"messages":[%s],"links":{"next":null}}`, msg(3))
		default:
			t.Errorf("unexpected query %q", r.URL.RawQuery)
			http.NotFound(w, r)
		}
	}))

	var seen []Sequence
	err := reader.Scan(context.Background(), "0.0.42", 0, func(m Message) error {
		seen = append(seen, m.Sequence)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Fatalf("unexpected sequences %v", seen)
	}
}

func TestMirrorURLForNetwork(t *testing.T) {
	got, err := MirrorURLForNetwork("Testnet")
	if err != nil {
		t.Fatalf("mirror url: %v", err)
	}
	if !strings.Contains(got, "testnet.mirrornode.hedera.com") {
		t.Fatalf("unexpected url %q", got)
	}
	if _, err := MirrorURLForNetwork("memory"); err == nil {
		t.Fatal("expected error for unknown network")
	}
}

func TestRetryWaitIsCapped(t *testing.T) {
	tests := []struct {
		base    time.Duration
		attempt int
		want    time.Duration
	}{
		{base: 500 * time.Millisecond, attempt: 1, want: 500 * time.Millisecond},
		{base: 500 * time.Millisecond, attempt: 3, want: 2 * time.Second},
		{base: 500 * time.Millisecond, attempt: 19, want: maxRetryBackoff},
		{base: 10 * time.Millisecond, attempt: 200, want: maxRetryBackoff},
		{base: time.Hour, attempt: 1, want: maxRetryBackoff},
		{base: 0, attempt: 4, want: 0},
	}
	for _, tc := range tests {
		if got := retryWait(tc.base, tc.attempt); got != tc.want {
			t.Fatalf("retryWait(%s, %d) = %s, want %s", tc.base, tc.attempt, got, tc.want)
		}
	}
}

func TestNewMirrorReaderBoundsAttempts(t *testing.T) {
	reader, err := NewMirrorReader("http://127.0.0.1:1/api/v1", MirrorOptions{RetryAttempts: 30})
	if err != nil {
		t.Fatalf("new mirror reader: %v", err)
	}
	if reader.attempts != MaxRetryAttempts {
		t.Fatalf("expected attempts capped at %d, got %d", MaxRetryAttempts, reader.attempts)
	}
}

func TestMirrorRetrieveDeadlineKeepsLastError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	t.Cleanup(srv.Close)
	reader, err := NewMirrorReader(srv.URL+"/api/v1", MirrorOptions{RetryAttempts: 30, RetryBackoff: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("new mirror reader: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err = reader.Retrieve(ctx, "0.0.42", 1)
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("retrieve outlived its context: %s", elapsed)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound in chain, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline in chain, got %v", err)
	}
	if calls.Load() < 2 {
		t.Fatalf("expected at least one retry, got %d calls", calls.Load())
	}
}
