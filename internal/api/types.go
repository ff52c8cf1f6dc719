package api

import "time"

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// DocumentResponse is returned by upload and revoke. A refused revoke carries
// only Error.
type DocumentResponse struct {
	ID    string `json:"id,omitempty"`
	Hash  string `json:"hash,omitempty"`
	Error string `json:"error,omitempty"`
}

// VerifyResponse is returned by verify. Revoked and invalid documents are
// reported through Error with a 200 status.
type VerifyResponse struct {
	VerifySuccess bool   `json:"verifySuccess,omitempty"`
	UploadedHash  string `json:"uploadedHash,omitempty"`
	StoredHash    string `json:"storedHash,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
	Status        string `json:"status,omitempty"`
	Error         string `json:"error,omitempty"`
}

// DocumentSummary is one index row in list output.
type DocumentSummary struct {
	ID                   string    `json:"id"`
	Kind                 string    `json:"kind"`
	DocumentHash         string    `json:"documentHash"`
	TopicID              string    `json:"topicId"`
	AnchorSequenceNumber *uint64   `json:"anchorSequenceNumber,omitempty"`
	RevokeSequenceNumber *uint64   `json:"revokeSequenceNumber,omitempty"`
	Timestamp            string    `json:"timestamp,omitempty"`
	CreatedAt            time.Time `json:"createdAt"`
}

// DeleteRequest identifies the index row to delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// InfoResponse describes the running service.
type InfoResponse struct {
	SchemaVersion int            `json:"schema_version"`
	Network       string         `json:"network"`
	Operator      string         `json:"operator"`
	AnchorTopicID string         `json:"anchor_topic_id"`
	RevokeTopicID string         `json:"revoke_topic_id"`
	TotalRecords  int            `json:"total_records"`
	RecordCounts  map[string]int `json:"record_counts"`
}

// ReconcileChannel reports reconciliation for one channel.
type ReconcileChannel struct {
	TopicID  string `json:"topic_id"`
	Kind     string `json:"kind"`
	Scanned  int    `json:"scanned"`
	Inserted int    `json:"inserted"`
	Existing int    `json:"existing"`
	Ignored  int    `json:"ignored"`
}

// ReconcileResponse is returned by the admin reconcile endpoint.
type ReconcileResponse struct {
	Inserted int                `json:"inserted"`
	Channels []ReconcileChannel `json:"channels"`
}

// TopicResponse is returned when a topic is provisioned.
type TopicResponse struct {
	TopicID string `json:"topicId"`
}
