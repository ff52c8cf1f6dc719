package ledger

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	nanosDigits = 9
	// DisplayLayout is the human form used in API responses.
	DisplayLayout = "2006-01-02 15:04:05"
)

// Timestamp is a consensus timestamp kept as fixed-point seconds and
// nanoseconds. It is never routed through floating point.
type Timestamp struct {
	Seconds int64
	Nanos   int32
}

// ParseTimestamp parses the mirror node "<seconds>.<nanos>" form. A fraction
// shorter than nine digits is right-padded, so "5.1" is 5s + 100000000ns.
func ParseTimestamp(raw string) (Timestamp, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Timestamp{}, fmt.Errorf("timestamp is empty")
	}
	secPart, nanoPart, hasFraction := strings.Cut(raw, ".")
	if !isDigits(secPart) {
		return Timestamp{}, fmt.Errorf("invalid timestamp seconds %q", raw)
	}
	seconds, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp seconds %q: %w", raw, err)
	}
	if !hasFraction {
		return Timestamp{Seconds: seconds}, nil
	}
	if nanoPart == "" || len(nanoPart) > nanosDigits || !isDigits(nanoPart) {
		return Timestamp{}, fmt.Errorf("invalid timestamp nanos %q", raw)
	}
	nanoPart += strings.Repeat("0", nanosDigits-len(nanoPart))
	nanos, err := strconv.ParseInt(nanoPart, 10, 32)
	if err != nil {
		return Timestamp{}, fmt.Errorf("invalid timestamp nanos %q: %w", raw, err)
	}
	return Timestamp{Seconds: seconds, Nanos: int32(nanos)}, nil
}

// TimestampFromTime converts t to a Timestamp.
func TimestampFromTime(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanos: int32(t.Nanosecond())}
}

// Time returns the timestamp as a UTC time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.Seconds, int64(t.Nanos)).UTC()
}

// IsZero reports whether t is unset.
func (t Timestamp) IsZero() bool {
	return t.Seconds == 0 && t.Nanos == 0
}

// String renders the canonical "<seconds>.<nanos>" form with nine fraction digits.
func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%09d", t.Seconds, t.Nanos)
}

// Format renders the timestamp in DisplayLayout, truncated to the second.
func (t Timestamp) Format() string {
	return t.Time().Format(DisplayLayout)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
