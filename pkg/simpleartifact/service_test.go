package simpleartifact_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-artifact/pkg/simpleartifact"
	memoryrepo "github.com/tendant/simple-artifact/pkg/simpleartifact/repo/memory"
	memorystorage "github.com/tendant/simple-artifact/pkg/simpleartifact/storage/memory"
)

func TestServiceCreation(t *testing.T) {
	repository := simpleartifact.Repository{ID: uuid.New(), Name: "releases"}

	tests := []struct {
		name        string
		options     []simpleartifact.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []simpleartifact.Option{},
			expectError: true,
		},
		{
			name: "missing repository should fail",
			options: []simpleartifact.Option{
				simpleartifact.WithSessionProvider(memoryrepo.New()),
			},
			expectError: true,
		},
		{
			name: "with provider and repository should succeed",
			options: []simpleartifact.Option{
				simpleartifact.WithSessionProvider(memoryrepo.New()),
				simpleartifact.WithRepository(repository),
			},
			expectError: false,
		},
		{
			name: "with blob store should succeed",
			options: []simpleartifact.Option{
				simpleartifact.WithSessionProvider(memoryrepo.New()),
				simpleartifact.WithRepository(repository),
				simpleartifact.WithBlobStore("memory", memorystorage.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := simpleartifact.New(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, svc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, svc)
			}
		})
	}
}

// testStore bundles a service with the in-memory provider and blob store
// backing it, so tests can seed records and inspect what survives.
type testStore struct {
	provider   *memoryrepo.Provider
	blobs      *memorystorage.Backend
	svc        simpleartifact.Service
	repository simpleartifact.Repository
	bucket     simpleartifact.Bucket
}

func setupTestStore(t *testing.T, opts ...simpleartifact.Option) *testStore {
	t.Helper()

	ts := &testStore{
		provider:   memoryrepo.New(),
		blobs:      memorystorage.New(),
		repository: simpleartifact.Repository{ID: uuid.New(), Name: "releases"},
	}
	ts.bucket = simpleartifact.Bucket{
		ID:           uuid.New(),
		RepositoryID: ts.repository.ID,
		Name:         "releases",
	}

	ctx := context.Background()
	require.NoError(t, ts.provider.CreateBucket(ctx, &ts.bucket))

	options := append([]simpleartifact.Option{
		simpleartifact.WithSessionProvider(ts.provider),
		simpleartifact.WithRepository(ts.repository),
		simpleartifact.WithBlobStore("memory", ts.blobs),
	}, opts...)

	svc, err := simpleartifact.New(options...)
	require.NoError(t, err)
	require.NotNil(t, svc)
	ts.svc = svc

	return ts
}

// seedComponent creates a component with the given number of assets, each
// with a blob uploaded to the memory backend.
func (ts *testStore) seedComponent(t *testing.T, assetCount int) (*simpleartifact.Component, []*simpleartifact.Asset) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	component := &simpleartifact.Component{
		ID:        uuid.New(),
		BucketID:  ts.bucket.ID,
		Name:      fmt.Sprintf("lib-%s", uuid.NewString()[:8]),
		Version:   "1.0.0",
		Format:    "raw",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, ts.provider.CreateComponent(ctx, component))

	var assets []*simpleartifact.Asset
	for i := 0; i < assetCount; i++ {
		objectKey := fmt.Sprintf("%s/asset-%d", component.ID, i)
		require.NoError(t, ts.blobs.Upload(ctx, objectKey, strings.NewReader("blob data")))

		asset := &simpleartifact.Asset{
			ID:          uuid.New(),
			BucketID:    ts.bucket.ID,
			ComponentID: component.ID,
			Path:        fmt.Sprintf("%s/file-%d.bin", component.Name, i),
			Blob: simpleartifact.BlobRef{
				StorageBackendName: "memory",
				ObjectKey:          objectKey,
			},
			Size:      9,
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, ts.provider.CreateAsset(ctx, asset))
		assets = append(assets, asset)
	}

	return component, assets
}

func (ts *testStore) componentExists(t *testing.T, id uuid.UUID) bool {
	t.Helper()
	ctx := context.Background()

	sess, err := ts.provider.Begin(ctx)
	require.NoError(t, err)
	defer sess.Rollback(ctx)

	_, err = sess.FindComponent(ctx, id, &ts.bucket)
	if errors.Is(err, simpleartifact.ErrComponentNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func (ts *testStore) assetExists(t *testing.T, id uuid.UUID) bool {
	t.Helper()
	ctx := context.Background()

	sess, err := ts.provider.Begin(ctx)
	require.NoError(t, err)
	defer sess.Rollback(ctx)

	_, err = sess.FindAsset(ctx, id, &ts.bucket)
	if errors.Is(err, simpleartifact.ErrAssetNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func (ts *testStore) blobExists(t *testing.T, objectKey string) bool {
	t.Helper()
	_, err := ts.blobs.GetObjectMeta(context.Background(), objectKey)
	return err == nil
}

func TestDeleteComponent(t *testing.T) {
	ctx := context.Background()

	t.Run("cascade with blob deletion", func(t *testing.T) {
		ts := setupTestStore(t)
		component, assets := ts.seedComponent(t, 3)

		err := ts.svc.DeleteComponent(ctx, simpleartifact.DeleteComponentRequest{
			ComponentID: component.ID,
			DeleteBlobs: true,
		})
		require.NoError(t, err)

		assert.False(t, ts.componentExists(t, component.ID))
		for _, asset := range assets {
			assert.False(t, ts.assetExists(t, asset.ID))
			assert.False(t, ts.blobExists(t, asset.Blob.ObjectKey))
		}
	})

	t.Run("cascade without blob deletion leaves blobs", func(t *testing.T) {
		ts := setupTestStore(t)
		component, assets := ts.seedComponent(t, 2)

		err := ts.svc.DeleteComponent(ctx, simpleartifact.DeleteComponentRequest{
			ComponentID: component.ID,
		})
		require.NoError(t, err)

		assert.False(t, ts.componentExists(t, component.ID))
		for _, asset := range assets {
			assert.False(t, ts.assetExists(t, asset.ID))
			assert.True(t, ts.blobExists(t, asset.Blob.ObjectKey))
		}
	})

	t.Run("component without assets", func(t *testing.T) {
		ts := setupTestStore(t)
		component, _ := ts.seedComponent(t, 0)

		err := ts.svc.DeleteComponent(ctx, simpleartifact.DeleteComponentRequest{
			ComponentID: component.ID,
			DeleteBlobs: true,
		})
		require.NoError(t, err)
		assert.False(t, ts.componentExists(t, component.ID))
	})

	t.Run("deleting twice is a no-op the second time", func(t *testing.T) {
		ts := setupTestStore(t)
		component, _ := ts.seedComponent(t, 1)

		req := simpleartifact.DeleteComponentRequest{ComponentID: component.ID, DeleteBlobs: true}
		require.NoError(t, ts.svc.DeleteComponent(ctx, req))
		assert.NoError(t, ts.svc.DeleteComponent(ctx, req))
	})

	t.Run("unknown id is a silent success", func(t *testing.T) {
		ts := setupTestStore(t)

		err := ts.svc.DeleteComponent(ctx, simpleartifact.DeleteComponentRequest{
			ComponentID: uuid.New(),
		})
		assert.NoError(t, err)
	})

	t.Run("nil id is rejected", func(t *testing.T) {
		ts := setupTestStore(t)

		err := ts.svc.DeleteComponent(ctx, simpleartifact.DeleteComponentRequest{})
		assert.Error(t, err)

		var compErr *simpleartifact.ComponentError
		assert.ErrorAs(t, err, &compErr)
	})

	t.Run("hooks fire around a real deletion", func(t *testing.T) {
		var beforeCalled, afterCalled bool
		hooks := simpleartifact.Hooks{
			BeforeComponentDelete: []simpleartifact.BeforeComponentDeleteHook{
				func(ctx context.Context, componentID uuid.UUID) error {
					beforeCalled = true
					return nil
				},
			},
			AfterComponentDelete: []simpleartifact.AfterComponentDeleteHook{
				func(ctx context.Context, componentID uuid.UUID) {
					afterCalled = true
				},
			},
		}

		ts := setupTestStore(t, simpleartifact.WithHooks(hooks))
		component, _ := ts.seedComponent(t, 1)

		require.NoError(t, ts.svc.DeleteComponent(ctx, simpleartifact.DeleteComponentRequest{
			ComponentID: component.ID,
		}))
		assert.True(t, beforeCalled)
		assert.True(t, afterCalled)
	})

	t.Run("after hook skipped for absent component", func(t *testing.T) {
		var afterCalled bool
		hooks := simpleartifact.Hooks{
			AfterComponentDelete: []simpleartifact.AfterComponentDeleteHook{
				func(ctx context.Context, componentID uuid.UUID) {
					afterCalled = true
				},
			},
		}

		ts := setupTestStore(t, simpleartifact.WithHooks(hooks))

		require.NoError(t, ts.svc.DeleteComponent(ctx, simpleartifact.DeleteComponentRequest{
			ComponentID: uuid.New(),
		}))
		assert.False(t, afterCalled)
	})
}

func TestDeleteAsset(t *testing.T) {
	ctx := context.Background()

	t.Run("delete with blob", func(t *testing.T) {
		ts := setupTestStore(t)
		component, assets := ts.seedComponent(t, 2)

		err := ts.svc.DeleteAsset(ctx, simpleartifact.DeleteAssetRequest{
			AssetID:    assets[0].ID,
			DeleteBlob: true,
		})
		require.NoError(t, err)

		assert.False(t, ts.assetExists(t, assets[0].ID))
		assert.False(t, ts.blobExists(t, assets[0].Blob.ObjectKey))

		// The parent component and sibling asset are untouched
		assert.True(t, ts.componentExists(t, component.ID))
		assert.True(t, ts.assetExists(t, assets[1].ID))
		assert.True(t, ts.blobExists(t, assets[1].Blob.ObjectKey))
	})

	t.Run("delete without blob leaves blob", func(t *testing.T) {
		ts := setupTestStore(t)
		_, assets := ts.seedComponent(t, 1)

		err := ts.svc.DeleteAsset(ctx, simpleartifact.DeleteAssetRequest{
			AssetID: assets[0].ID,
		})
		require.NoError(t, err)

		assert.False(t, ts.assetExists(t, assets[0].ID))
		assert.True(t, ts.blobExists(t, assets[0].Blob.ObjectKey))
	})

	t.Run("deleting twice is a no-op the second time", func(t *testing.T) {
		ts := setupTestStore(t)
		_, assets := ts.seedComponent(t, 1)

		req := simpleartifact.DeleteAssetRequest{AssetID: assets[0].ID, DeleteBlob: true}
		require.NoError(t, ts.svc.DeleteAsset(ctx, req))
		assert.NoError(t, ts.svc.DeleteAsset(ctx, req))
	})

	t.Run("nil id is rejected", func(t *testing.T) {
		ts := setupTestStore(t)

		err := ts.svc.DeleteAsset(ctx, simpleartifact.DeleteAssetRequest{})
		assert.Error(t, err)

		var assetErr *simpleartifact.AssetError
		assert.ErrorAs(t, err, &assetErr)
	})
}
