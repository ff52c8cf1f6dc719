package ledger

import (
	"context"
	"fmt"
	"strings"

	hedera "github.com/hashgraph/hedera-sdk-go/v2"
)

// HederaConfig holds the operator credentials for consensus submissions.
type HederaConfig struct {
	Network           string
	AccountID         string
	PrivateKey        string
	MaxTransactionFee float64
}

// HederaSubmitter submits topic messages and creates topics as the configured operator.
type HederaSubmitter struct {
	client   *hedera.Client
	operator hedera.AccountID
	key      hedera.PrivateKey
}

var _ Submitter = (*HederaSubmitter)(nil)

// NewHederaSubmitter builds an operator client. The caller owns the returned
// handle and must Close it.
func NewHederaSubmitter(cfg HederaConfig) (*HederaSubmitter, error) {
	if strings.TrimSpace(cfg.AccountID) == "" {
		return nil, fmt.Errorf("operator account id is required")
	}
	if strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, fmt.Errorf("operator private key is required")
	}

	accountID, err := hedera.AccountIDFromString(strings.TrimSpace(cfg.AccountID))
	if err != nil {
		return nil, fmt.Errorf("parse operator account id: %w", err)
	}
	key, err := hedera.PrivateKeyFromString(strings.TrimSpace(cfg.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse operator private key: %w", err)
	}

	client, err := hedera.ClientForName(strings.ToLower(strings.TrimSpace(cfg.Network)))
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Network, err)
	}
	client.SetOperator(accountID, key)
	if cfg.MaxTransactionFee > 0 {
		if err := client.SetDefaultMaxTransactionFee(hedera.NewHbar(cfg.MaxTransactionFee)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("set max transaction fee: %w", err)
		}
	}

	return &HederaSubmitter{client: client, operator: accountID, key: key}, nil
}

// Submit sends payload to the topic and waits for the receipt. The SDK call
// is not cancellable once started, so ctx is only checked before submission;
// abandoning an in-flight transaction would misreport a commit as a failure.
func (h *HederaSubmitter) Submit(ctx context.Context, channel ChannelID, payload []byte) (Sequence, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	topicID, err := hedera.TopicIDFromString(string(channel))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid topic %q: %v", ErrSubmissionFailed, channel, err)
	}

	resp, err := hedera.NewTopicMessageSubmitTransaction().
		SetTopicID(topicID).
		SetMessage(payload).
		Execute(h.client)
	if err != nil {
		return 0, fmt.Errorf("%w: execute: %v", ErrSubmissionFailed, err)
	}
	receipt, err := resp.GetReceipt(h.client)
	if err != nil {
		return 0, fmt.Errorf("%w: receipt: %v", ErrSubmissionFailed, err)
	}
	if receipt.TopicSequenceNumber == 0 {
		return 0, fmt.Errorf("%w: receipt carried no sequence number", ErrSubmissionFailed)
	}
	return Sequence(receipt.TopicSequenceNumber), nil
}

// CreateChannel creates a topic whose submit key is the operator key, so only
// the operator can append to it.
func (h *HederaSubmitter) CreateChannel(ctx context.Context) (ChannelID, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvisioningFailed, err)
	}
	resp, err := hedera.NewTopicCreateTransaction().
		SetSubmitKey(h.key.PublicKey()).
		SetTopicMemo("docanchor").
		Execute(h.client)
	if err != nil {
		return "", fmt.Errorf("%w: execute: %v", ErrProvisioningFailed, err)
	}
	receipt, err := resp.GetReceipt(h.client)
	if err != nil {
		return "", fmt.Errorf("%w: receipt: %v", ErrProvisioningFailed, err)
	}
	if receipt.TopicID == nil {
		return "", fmt.Errorf("%w: receipt carried no topic id", ErrProvisioningFailed)
	}
	return ChannelID(receipt.TopicID.String()), nil
}

func (h *HederaSubmitter) Operator() Identity {
	return Identity(h.operator.String())
}

func (h *HederaSubmitter) Close() error {
	if h == nil || h.client == nil {
		return nil
	}
	return h.client.Close()
}
