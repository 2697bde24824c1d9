// Package events publishes thumbnail and account lifecycle events.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types double as AMQP routing keys.
const (
	TypeThumbnailCreated       = "thumbnail.created"
	TypeThumbnailDeleted       = "thumbnail.deleted"
	TypeThumbnailsPurged       = "thumbnails.purged"
	TypeAccountRegistered      = "account.registered"
	TypePasswordResetRequested = "account.password_reset_requested"
)

// Event is the envelope published for every lifecycle change.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Event struct {
	ID          uuid.UUID         `json:"id"`
	Type        string            `json:"type"`
	AccountID   uuid.UUID         `json:"account_id"`
	ThumbnailID *uuid.UUID        `json:"thumbnail_id,omitempty"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// New creates an event of type for accountID.
func New(eventType string, accountID uuid.UUID) *Event {
	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		AccountID:  accountID,
		OccurredAt: time.Now().UTC(),
	}
}

// WithThumbnail sets the thumbnail the event is about.
func (e *Event) WithThumbnail(id uuid.UUID) *Event {
	e.ThumbnailID = &id
	return e
}

// With adds an attribute.
func (e *Event) With(key, value string) *Event {
	if e.Attributes == nil {
		e.Attributes = make(map[string]string)
	}
	e.Attributes[key] = value
	return e
}

// Publisher delivers events to interested consumers.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, *Event) error { return nil }
