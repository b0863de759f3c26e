package simpleartifact

import "github.com/google/uuid"

// Request DTOs

// DeleteComponentRequest contains parameters for deleting one component.
// DeleteBlobs controls whether blob deletion is requested from the storage
// backend for each removed asset; leaving it false orphans the blobs but
// never fails the deletion.
type DeleteComponentRequest struct {
	ComponentID uuid.UUID
	DeleteBlobs bool
}

// DeleteAssetRequest contains parameters for deleting one asset
type DeleteAssetRequest struct {
	AssetID    uuid.UUID
	DeleteBlob bool
}

// DeleteComponentsRequest contains parameters for a bulk component delete.
//
// Cancelled is polled at chunk and item boundaries; returning true stops
// new work without rolling back chunks already committed. A nil Cancelled
// never cancels. Callers wanting a timeout wire a time-based predicate (or
// cancel the request context, which is honored at the same poll points).
type DeleteComponentsRequest struct {
	ComponentIDs []uuid.UUID
	DeleteBlobs  bool
	BatchSize    int
	Cancelled    func() bool
}
