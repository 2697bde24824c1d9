package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSON(t *testing.T) {
	account := uuid.New()
	thumb := uuid.New()

	event := New(TypeThumbnailDeleted, account).
		WithThumbnail(thumb).
		With("image", "/uploads/thumbnails/1-a.png")

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "thumbnail.deleted", decoded["type"])
	assert.Equal(t, account.String(), decoded["account_id"])
	assert.Equal(t, thumb.String(), decoded["thumbnail_id"])
	assert.Equal(t, map[string]any{"image": "/uploads/thumbnails/1-a.png"}, decoded["attributes"])
}

func TestEventOmitsEmptyOptionals(t *testing.T) {
	data, err := json.Marshal(New(TypeAccountRegistered, uuid.New()))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "thumbnail_id")
	assert.NotContains(t, string(data), "attributes")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), New(TypeThumbnailCreated, uuid.New())))
}
