package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Memory is an in-process ledger with mirror semantics. Messages submitted
// while the ledger is held stay invisible to reads until Release, which
// models the delay between commit and query-layer visibility.
type Memory struct {
	mu        sync.Mutex
	operator  Identity
	channels  map[ChannelID][]memoryEntry
	nextTopic uint64
	held      bool
	submitErr error
	now       func() time.Time
}

type memoryEntry struct {
	msg     Message
	visible bool
}

var _ Ledger = (*Memory)(nil)

// NewMemory returns a ledger that submits as operator and already has the given channels.
func NewMemory(operator Identity, channels ...ChannelID) *Memory {
	m := &Memory{
		operator:  operator,
		channels:  map[ChannelID][]memoryEntry{},
		nextTopic: 1000,
		now:       time.Now,
	}
	for _, ch := range channels {
		m.channels[ch] = nil
	}
	return m
}

func (m *Memory) Submit(ctx context.Context, channel ChannelID, payload []byte) (Sequence, error) {
	return m.SubmitAs(ctx, m.operator, channel, payload)
}

// SubmitAs commits payload as if submitted by identity.
func (m *Memory) SubmitAs(ctx context.Context, identity Identity, channel ChannelID, payload []byte) (Sequence, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.submitErr != nil {
		return 0, fmt.Errorf("%w: %v", ErrSubmissionFailed, m.submitErr)
	}
	entries, ok := m.channels[channel]
	if !ok {
		return 0, fmt.Errorf("%w: unknown topic %s", ErrSubmissionFailed, channel)
	}
	seq := Sequence(len(entries) + 1)
	m.channels[channel] = append(entries, memoryEntry{
		msg: Message{
			Channel:            channel,
			Sequence:           seq,
			Payload:            append([]byte(nil), payload...),
			Submitter:          identity,
			ConsensusTimestamp: TimestampFromTime(m.now()),
		},
		visible: !m.held,
	})
	return seq, nil
}

func (m *Memory) CreateChannel(ctx context.Context) (ChannelID, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return "", fmt.Errorf("%w: %v", ErrProvisioningFailed, m.submitErr)
	}
	m.nextTopic++
	id := ChannelID(fmt.Sprintf("0.0.%d", m.nextTopic))
	m.channels[id] = nil
	return id, nil
}

func (m *Memory) Operator() Identity {
	return m.operator
}

func (m *Memory) Retrieve(ctx context.Context, channel ChannelID, seq Sequence) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := m.channels[channel]
	if seq == 0 || int(seq) > len(entries) || !entries[seq-1].visible {
		return Message{}, fmt.Errorf("%w: %s/%d", ErrNotFound, channel, seq)
	}
	return cloneMessage(entries[seq-1].msg), nil
}

func (m *Memory) Scan(ctx context.Context, channel ChannelID, after Sequence, fn func(Message) error) error {
	m.mu.Lock()
	var batch []Message
	for _, entry := range m.channels[channel] {
		if entry.msg.Sequence > after && entry.visible {
			batch = append(batch, cloneMessage(entry.msg))
		}
	}
	m.mu.Unlock()

	for _, msg := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Hold makes subsequently submitted messages invisible to reads.
func (m *Memory) Hold() {
	m.mu.Lock()
	m.held = true
	m.mu.Unlock()
}

// Release makes every held message visible.
func (m *Memory) Release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held = false
	for ch, entries := range m.channels {
		for i := range entries {
			entries[i].visible = true
		}
		m.channels[ch] = entries
	}
}

// FailSubmissions makes every write fail with err until called with nil.
func (m *Memory) FailSubmissions(err error) {
	m.mu.Lock()
	m.submitErr = err
	m.mu.Unlock()
}

// Overwrite replaces a committed payload. It exists to simulate an index
// pointing at a message whose content no longer matches.
func (m *Memory) Overwrite(channel ChannelID, seq Sequence, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entries := m.channels[channel]
	if seq == 0 || int(seq) > len(entries) {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, channel, seq)
	}
	entries[seq-1].msg.Payload = append([]byte(nil), payload...)
	return nil
}

// Len returns the number of committed messages on channel, visible or not.
func (m *Memory) Len(channel ChannelID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.channels[channel])
}

func cloneMessage(msg Message) Message {
	msg.Payload = append([]byte(nil), msg.Payload...)
	return msg
}
