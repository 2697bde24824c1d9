package models

import (
	"time"

	"github.com/google/uuid"
)

// Thumbnail is the metadata row for one stored thumbnail blob. AccountID and
// Image never change after creation.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Thumbnail struct {
	ID        uuid.UUID `db:"id"`
	AccountID uuid.UUID `db:"account_id"`
	VideoName string    `db:"video_name"`
	Version   string    `db:"version"`
	Image     string    `db:"image"`
	Paid      bool      `db:"paid"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// NewThumbnail creates a Thumbnail owned by accountID referencing image.
func NewThumbnail(accountID uuid.UUID, videoName, version, image string, paid bool) *Thumbnail {
	now := time.Now().UTC()
	return &Thumbnail{
		ID:        uuid.New(),
		AccountID: accountID,
		VideoName: videoName,
		Version:   version,
		Image:     image,
		Paid:      paid,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ThumbnailPatch lists the mutable fields; nil means unchanged.
type ThumbnailPatch struct {
	VideoName *string
	Version   *string
	Paid      *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p ThumbnailPatch) IsEmpty() bool {
	return p.VideoName == nil && p.Version == nil && p.Paid == nil
}

// Apply copies the set fields onto t.
func (p ThumbnailPatch) Apply(t *Thumbnail) {
	if p.VideoName != nil {
		t.VideoName = *p.VideoName
	}
	if p.Version != nil {
		t.Version = *p.Version
	}
	if p.Paid != nil {
		t.Paid = *p.Paid
	}
}

// BlobRef identifies the blob of a deleted record so it can be cleaned up.
type BlobRef struct {
	ThumbnailID uuid.UUID
	Image       string
}
