package models

import (
	"encoding/json"
	"testing"
	"time"

	dbmodels "github.com/ad-tracker/thumbnail-service-go/internal/db/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromThumbnail_JSONShape(t *testing.T) {
	owner := uuid.New()
	thumb := dbmodels.NewThumbnail(owner, "launch", "B", "/uploads/thumbnails/1-a.png", true)

	data, err := json.Marshal(FromThumbnail(thumb))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Len(t, got, 8)
	assert.Equal(t, owner.String(), got["user"])
	assert.Equal(t, "launch", got["videoName"])
	assert.Equal(t, "B", got["version"])
	assert.Equal(t, true, got["paid"])
	assert.Equal(t, "/uploads/thumbnails/1-a.png", got["image"])
	_, err = time.Parse(time.RFC3339Nano, got["createdAt"].(string))
	assert.NoError(t, err)
}

func TestThumbnailPatchRequest(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		immutable []string
		empty     bool
	}{
		{name: "mutable fields only", body: `{"videoName":"x","paid":false}`},
		{name: "empty object", body: `{}`, empty: true},
		{name: "owner change", body: `{"user":"someone"}`, immutable: []string{"user"}, empty: true},
		{name: "image and id", body: `{"id":"1","image":"/etc/passwd","version":"v2"}`, immutable: []string{"id", "image"}},
		{name: "explicit null still counts", body: `{"image":null}`, immutable: []string{"image"}, empty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req ThumbnailPatchRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			assert.Equal(t, tt.immutable, req.ImmutableFields())
			assert.Equal(t, tt.empty, req.Patch().IsEmpty())
		})
	}
}
