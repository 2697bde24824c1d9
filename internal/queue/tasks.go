package queue

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TypeBlobCleanup retries deletion of a blob whose record is already gone.
const TypeBlobCleanup = "storage:blob_cleanup"

// QueueCleanup is the asynq queue cleanup tasks are placed on.
const QueueCleanup = "cleanup"

// BlobCleanupPayload is the payload for blob cleanup tasks.
type BlobCleanupPayload struct {
	Key         string `json:"key"`
	ThumbnailID string `json:"thumbnail_id,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Validate checks the payload can be processed.
func (p *BlobCleanupPayload) Validate() error {
	if p.Key == "" {
		return errors.New("blob key is required")
	}
	return nil
}

// Marshal serializes the payload to JSON.
func (p *BlobCleanupPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalBlobCleanupPayload deserializes and validates a payload.
func UnmarshalBlobCleanupPayload(data []byte) (*BlobCleanupPayload, error) {
	var payload BlobCleanupPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return &payload, nil
}
