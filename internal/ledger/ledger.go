// Package ledger talks to the append-only consensus channels that hold
// document fingerprints. Writes go through an authenticated submitter and
// reads go through the public mirror node; both are explicit handles with
// their own lifecycle.
package ledger

import (
	"context"
	"errors"
	"strconv"
)

var (
	// ErrSubmissionFailed means no message was committed.
	ErrSubmissionFailed = errors.New("ledger submission failed")
	// ErrProvisioningFailed means no channel was created.
	ErrProvisioningFailed = errors.New("channel provisioning failed")
	// ErrNotFound means the message is not (yet) visible to the query layer.
	ErrNotFound = errors.New("ledger message not found")
	// ErrMalformedResponse means the query layer returned undecodable data.
	ErrMalformedResponse = errors.New("malformed ledger response")
	// ErrUnavailable means the query layer could not be reached.
	ErrUnavailable = errors.New("ledger query layer unavailable")
)

// ChannelID names one append-only channel (a consensus topic such as 0.0.1234).
type ChannelID string

// Sequence is the ledger-assigned, per-channel message number. It starts at 1.
type Sequence uint64

func (s Sequence) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// Identity is the account that paid for (submitted) a message.
type Identity string

// Message is one committed channel entry as seen through the query layer.
type Message struct {
	Channel            ChannelID
	Sequence           Sequence
	Payload            []byte
	Submitter          Identity
	ConsensusTimestamp Timestamp
}

// Submitter performs authenticated writes.
type Submitter interface {
	// Submit commits payload as a new message. A returned sequence means the
	// message is durably committed; an error means it is not. Calling Submit
	// twice creates two messages.
	Submit(ctx context.Context, channel ChannelID, payload []byte) (Sequence, error)
	CreateChannel(ctx context.Context) (ChannelID, error)
	Operator() Identity
	Close() error
}

// Reader performs unauthenticated reads.
type Reader interface {
	Retrieve(ctx context.Context, channel ChannelID, seq Sequence) (Message, error)
	// Scan calls fn for every visible message with a sequence greater than
	// after, in ascending order. An error from fn stops the scan.
	Scan(ctx context.Context, channel ChannelID, after Sequence, fn func(Message) error) error
}

// Ledger is the full channel surface used by the orchestrator.
type Ledger interface {
	Submitter
	Reader
}

// Client composes a submitter and a reader.
type Client struct {
	submitter Submitter
	reader    Reader
}

var _ Ledger = (*Client)(nil)

// NewClient returns a Client writing through submitter and reading through reader.
func NewClient(submitter Submitter, reader Reader) *Client {
	return &Client{submitter: submitter, reader: reader}
}

func (c *Client) Submit(ctx context.Context, channel ChannelID, payload []byte) (Sequence, error) {
	return c.submitter.Submit(ctx, channel, payload)
}

func (c *Client) CreateChannel(ctx context.Context) (ChannelID, error) {
	return c.submitter.CreateChannel(ctx)
}

func (c *Client) Operator() Identity {
	return c.submitter.Operator()
}

func (c *Client) Retrieve(ctx context.Context, channel ChannelID, seq Sequence) (Message, error) {
	return c.reader.Retrieve(ctx, channel, seq)
}

func (c *Client) Scan(ctx context.Context, channel ChannelID, after Sequence, fn func(Message) error) error {
	return c.reader.Scan(ctx, channel, after, fn)
}

// Close releases the submitter session.
func (c *Client) Close() error {
	if c == nil || c.submitter == nil {
		return nil
	}
	return c.submitter.Close()
}
