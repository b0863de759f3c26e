package simpleartifact

import (
	"context"

	"github.com/google/uuid"
)

// Cascade deletion. These run entirely inside the supplied session and
// never suppress store errors; absent entities are reported through the
// deleted flag instead. Blob deletion requests are returned to the caller
// to issue after the session commits, since a blob delete cannot be rolled
// back with the session.

// deleteComponentInSession removes a component and all its assets. It
// returns the blob references to request deletion for (empty unless
// deleteBlobs is set) and whether a component was actually removed.
func (s *service) deleteComponentInSession(ctx context.Context, sess StoreSession, componentID uuid.UUID, deleteBlobs bool) (blobs []BlobRef, deleted bool, err error) {
	bucket, err := sess.FindBucket(ctx, s.repository.ID)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	component, err := sess.FindComponent(ctx, componentID, bucket)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	assets, err := sess.ListComponentAssets(ctx, component)
	if err != nil {
		return nil, false, err
	}

	s.logger.Debug("deleting component",
		"component_id", component.ID,
		"name", component.Name,
		"version", component.Version,
		"assets", len(assets))

	for _, asset := range assets {
		if err := sess.DeleteAsset(ctx, asset); err != nil {
			return nil, false, err
		}
		if deleteBlobs {
			blobs = append(blobs, asset.Blob)
		}
	}

	if err := sess.DeleteComponent(ctx, component); err != nil {
		return nil, false, err
	}

	return blobs, true, nil
}

// deleteAssetInSession removes a single asset record. Same contract as
// deleteComponentInSession, for one asset.
func (s *service) deleteAssetInSession(ctx context.Context, sess StoreSession, assetID uuid.UUID, deleteBlob bool) (blobs []BlobRef, deleted bool, err error) {
	bucket, err := sess.FindBucket(ctx, s.repository.ID)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	asset, err := sess.FindAsset(ctx, assetID, bucket)
	if err != nil {
		if IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	s.logger.Debug("deleting asset", "asset_id", asset.ID, "path", asset.Path)

	if err := sess.DeleteAsset(ctx, asset); err != nil {
		return nil, false, err
	}

	if deleteBlob {
		blobs = append(blobs, asset.Blob)
	}

	return blobs, true, nil
}

// requestBlobDeletes issues delete requests to the storage backends for
// blobs whose metadata is already gone. Failures are logged, not returned:
// the metadata deletion has committed, and an orphaned blob is left for the
// blob store's own retention handling.
func (s *service) requestBlobDeletes(ctx context.Context, blobs []BlobRef) {
	for _, ref := range blobs {
		store, ok := s.blobStores[ref.StorageBackendName]
		if !ok {
			s.logger.Warn("leaving blob orphaned",
				"backend", ref.StorageBackendName,
				"object_key", ref.ObjectKey,
				"error", ErrStorageBackendNotFound)
			continue
		}
		if err := store.Delete(ctx, ref.ObjectKey); err != nil {
			s.logger.Warn("blob delete request failed, leaving blob orphaned",
				"backend", ref.StorageBackendName,
				"object_key", ref.ObjectKey,
				"error", err)
		}
	}
}
