package ledger

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMirrorTimeout  = 10 * time.Second
	defaultRetryAttempts  = 4
	defaultRetryBackoff   = 500 * time.Millisecond
	maxRetryBackoff       = 10 * time.Second
	defaultScanPageSize   = 100
	maxMirrorResponseBody = 4 << 20
)

// MaxRetryAttempts bounds how many times one read is attempted.
const MaxRetryAttempts = 10

var mirrorBaseURLs = map[string]string{
	"mainnet":    "https://mainnet-public.mirrornode.hedera.com/api/v1",
	"testnet":    "https://testnet.mirrornode.hedera.com/api/v1",
	"previewnet": "https://previewnet.mirrornode.hedera.com/api/v1",
}

// MirrorURLForNetwork returns the public mirror node base URL for a named network.
func MirrorURLForNetwork(network string) (string, error) {
	base, ok := mirrorBaseURLs[strings.ToLower(strings.TrimSpace(network))]
	if !ok {
		return "", fmt.Errorf("no mirror node known for network %q", network)
	}
	return base, nil
}

// MirrorOptions tunes a MirrorReader.
type MirrorOptions struct {
	Timeout       time.Duration
	RetryAttempts int
	RetryBackoff  time.Duration
	PageSize      int
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// MirrorReader reads channel messages from a mirror node REST API.
type MirrorReader struct {
	baseURL  string
	http     *http.Client
	attempts int
	backoff  time.Duration
	pageSize int
	logger   *slog.Logger
}

var _ Reader = (*MirrorReader)(nil)

type mirrorMessage struct {
	ConsensusTimestamp string `json:"consensus_timestamp"`
	Message            string `json:"message"`
	PayerAccountID     string `json:"payer_account_id"`
	SequenceNumber     uint64 `json:"sequence_number"`
	TopicID            string `json:"topic_id"`
}

type mirrorPage struct {
	Messages []mirrorMessage `json:"messages"`
	Links    struct {
		Next *string `json:"next"`
	} `json:"links"`
}

// retryableError marks failures worth another attempt.
type retryableError struct {
	err error
}

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// NewMirrorReader creates a reader rooted at baseURL (for example
// https://testnet.mirrornode.hedera.com/api/v1).
func NewMirrorReader(baseURL string, opts MirrorOptions) (*MirrorReader, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("mirror url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid mirror url: %w", err)
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultMirrorTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	attempts := opts.RetryAttempts
	if attempts <= 0 {
		attempts = defaultRetryAttempts
	}
	attempts = min(attempts, MaxRetryAttempts)
	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultScanPageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &MirrorReader{
		baseURL:  baseURL,
		http:     client,
		attempts: attempts,
		backoff:  backoff,
		pageSize: pageSize,
		logger:   logger,
	}, nil
}

// Retrieve reads one message. Propagation delay (404), 5xx responses and
// network failures are retried with capped exponential backoff; the last error
// is returned once attempts are exhausted or ctx ends.
func (m *MirrorReader) Retrieve(ctx context.Context, channel ChannelID, seq Sequence) (Message, error) {
	endpoint := fmt.Sprintf("%s/topics/%s/messages/%d", m.baseURL, url.PathEscape(string(channel)), uint64(seq))

	var lastErr error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		var raw mirrorMessage
		err := m.getJSON(ctx, endpoint, &raw)
		if err == nil {
			msg, err := decodeMirrorMessage(channel, raw)
			if err == nil && msg.Sequence == 0 {
				msg.Sequence = seq
			}
			return msg, err
		}
		if ctx.Err() != nil && lastErr != nil {
			return Message{}, fmt.Errorf("%w: %w", lastErr, ctx.Err())
		}
		lastErr = err

		var retryable retryableError
		if !errors.As(err, &retryable) || attempt == m.attempts {
			break
		}
		wait := retryWait(m.backoff, attempt)
		m.logger.Debug("retrying mirror read", "channel", channel, "sequence", seq, "attempt", attempt, "wait", wait, "error", err)
		if err := sleepContext(ctx, wait); err != nil {
			return Message{}, fmt.Errorf("%w: %w", lastErr, err)
		}
	}
	return Message{}, lastErr
}

// Scan pages through the channel in ascending order starting after the given sequence.
func (m *MirrorReader) Scan(ctx context.Context, channel ChannelID, after Sequence, fn func(Message) error) error {
	query := url.Values{}
	query.Set("sequencenumber", "gt:"+after.String())
	query.Set("order", "asc")
	query.Set("limit", strconv.Itoa(m.pageSize))
	endpoint := fmt.Sprintf("%s/topics/%s/messages?%s", m.baseURL, url.PathEscape(string(channel)), query.Encode())

	for endpoint != "" {
		var page mirrorPage
		if err := m.getJSON(ctx, endpoint, &page); err != nil {
			return err
		}
		for _, raw := range page.Messages {
			msg, err := decodeMirrorMessage(channel, raw)
			if err != nil {
				return err
			}
			if err := fn(msg); err != nil {
				return err
			}
		}
		if page.Links.Next == nil || *page.Links.Next == "" || len(page.Messages) == 0 {
			return nil
		}
		next, err := m.resolve(*page.Links.Next)
		if err != nil {
			return fmt.Errorf("%w: next link: %v", ErrMalformedResponse, err)
		}
		endpoint = next
	}
	return nil
}

func (m *MirrorReader) resolve(ref string) (string, error) {
	base, err := url.Parse(m.baseURL)
	if err != nil {
		return "", err
	}
	next, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(next).String(), nil
}

func (m *MirrorReader) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := m.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return retryableError{err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return retryableError{err: fmt.Errorf("%w: %s", ErrNotFound, endpoint)}
	case resp.StatusCode >= 500:
		return retryableError{err: fmt.Errorf("%w: mirror returned %s", ErrUnavailable, resp.Status)}
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: mirror returned %s", ErrNotFound, resp.Status)
	}

	body := io.LimitReader(resp.Body, maxMirrorResponseBody)
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode json: %v", ErrMalformedResponse, err)
	}
	return nil
}

func decodeMirrorMessage(channel ChannelID, raw mirrorMessage) (Message, error) {
	payload, err := base64.StdEncoding.DecodeString(raw.Message)
	if err != nil {
		return Message{}, fmt.Errorf("%w: message is not base64: %v", ErrMalformedResponse, err)
	}
	ts, err := ParseTimestamp(raw.ConsensusTimestamp)
	if err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if strings.TrimSpace(raw.PayerAccountID) == "" {
		return Message{}, fmt.Errorf("%w: payer_account_id is missing", ErrMalformedResponse)
	}
	if raw.TopicID != "" {
		channel = ChannelID(raw.TopicID)
	}
	return Message{
		Channel:            channel,
		Sequence:           Sequence(raw.SequenceNumber),
		Payload:            payload,
		Submitter:          Identity(raw.PayerAccountID),
		ConsensusTimestamp: ts,
	}, nil
}

// retryWait is the pause after the given failed attempt (1-based).
func retryWait(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if base >= maxRetryBackoff {
		return maxRetryBackoff
	}
	wait := base
	for i := 1; i < attempt && wait < maxRetryBackoff; i++ {
		wait *= 2
	}
	return min(wait, maxRetryBackoff)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
