package simpleartifact

import (
	"time"

	"github.com/google/uuid"
)

// Repository identifies the artifact repository an operation is scoped to.
// It is supplied by the host; the maintenance service never creates one.
type Repository struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Bucket is the per-repository namespace identifiers are resolved within.
// A bucket belongs to exactly one repository, which keeps identifier
// collisions across repositories from deleting the wrong entity.
type Bucket struct {
	ID           uuid.UUID `json:"id"`
	RepositoryID uuid.UUID `json:"repository_id"`
	Name         string    `json:"name"`
}

// Component represents a logical artifact version. A component exclusively
// owns its assets: deleting the component deletes all of them.
type Component struct {
	ID            uuid.UUID `json:"id"`
	BucketID      uuid.UUID `json:"bucket_id"`
	Name          string    `json:"name"`
	Version       string    `json:"version,omitempty"`
	Format        string    `json:"format,omitempty"`
	EntityVersion int       `json:"entity_version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Asset represents a single stored file's metadata. It references exactly
// one blob by backend name and object key; the blob itself lives in the
// external blob store.
type Asset struct {
	ID            uuid.UUID `json:"id"`
	BucketID      uuid.UUID `json:"bucket_id"`
	ComponentID   uuid.UUID `json:"component_id"`
	Path          string    `json:"path"`
	Blob          BlobRef   `json:"blob"`
	Size          int64     `json:"size,omitempty"`
	Checksum      string    `json:"checksum,omitempty"`
	EntityVersion int       `json:"entity_version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// BlobRef locates a blob in a named storage backend.
type BlobRef struct {
	StorageBackendName string `json:"storage_backend_name"`
	ObjectKey          string `json:"object_key"`
}
