package simpleartifact

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// SessionProvider opens store sessions. Exactly one session is active per
// logical maintenance operation; the batch path opens one session per chunk.
type SessionProvider interface {
	// Begin opens a session for a single-entity operation
	Begin(ctx context.Context) (StoreSession, error)

	// BeginBatch opens a session for one chunk of a bulk operation
	BeginBatch(ctx context.Context) (StoreSession, error)
}

// StoreSession is one transactional unit of work against the entity store.
// Reads observe the session's consistent view; mutations become visible to
// other sessions only on Commit.
//
// Sessions are passed explicitly into every store-facing call; there is no
// ambient transaction state.
type StoreSession interface {
	// FindBucket resolves the scoping bucket for a repository
	FindBucket(ctx context.Context, repositoryID uuid.UUID) (*Bucket, error)

	// FindComponent resolves a component within a bucket. Returns
	// ErrComponentNotFound when the id is unknown or already removed.
	FindComponent(ctx context.Context, id uuid.UUID, bucket *Bucket) (*Component, error)

	// FindAsset resolves an asset within a bucket. Returns ErrAssetNotFound
	// when the id is unknown or already removed.
	FindAsset(ctx context.Context, id uuid.UUID, bucket *Bucket) (*Asset, error)

	// ListComponentAssets returns the assets owned by a component
	ListComponentAssets(ctx context.Context, component *Component) ([]*Asset, error)

	// DeleteComponent removes the component record. Returns ErrConflict when
	// the record changed since it was resolved in this session.
	DeleteComponent(ctx context.Context, component *Component) error

	// DeleteAsset removes the asset record. Returns ErrConflict when the
	// record changed since it was resolved in this session.
	DeleteAsset(ctx context.Context, asset *Asset) error

	// Begin opens a nested sub-session (a savepoint). Rolling the
	// sub-session back discards only its own mutations; the enclosing
	// session stays usable.
	Begin(ctx context.Context) (StoreSession, error)

	// Commit makes the session's mutations durable (for a sub-session,
	// merges them into the parent)
	Commit(ctx context.Context) error

	// Rollback discards the session's mutations. Safe to call after Commit;
	// it is a no-op then.
	Rollback(ctx context.Context) error
}

// BlobStore defines the interface for blob storage backends. The
// maintenance engine only issues Delete requests; the rest of the contract
// is carried so the same backends serve ingestion paths.
type BlobStore interface {
	// Upload stores blob content under the given object key
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download retrieves blob content
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete requests removal of a blob
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for a stored blob
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// ObjectMeta contains metadata about a blob in storage
type ObjectMeta struct {
	Key       string
	Size      int64
	UpdatedAt time.Time
}

// Service is the maintenance contract exposed to callers: delete one
// component, delete one asset, delete many components.
type Service interface {
	// DeleteComponent removes a component and all its assets in one
	// transaction. An absent component is a silent success.
	DeleteComponent(ctx context.Context, req DeleteComponentRequest) error

	// DeleteAsset removes a single asset. An absent asset is a silent
	// success.
	DeleteAsset(ctx context.Context, req DeleteAssetRequest) error

	// DeleteComponents removes many components in fixed-size chunks, one
	// transaction per chunk. It returns the number of components actually
	// removed, which may be less than the number requested: absent ids and
	// per-item failures are skipped, and cancellation stops further work
	// without rolling back committed chunks.
	DeleteComponents(ctx context.Context, req DeleteComponentsRequest) (int64, error)
}
