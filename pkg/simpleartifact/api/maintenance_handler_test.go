package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
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

type handlerFixture struct {
	provider *memoryrepo.Provider
	blobs    *memorystorage.Backend
	bucket   simpleartifact.Bucket
	server   *httptest.Server
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	ctx := context.Background()

	f := &handlerFixture{
		provider: memoryrepo.New(),
		blobs:    memorystorage.New(),
	}

	repository := simpleartifact.Repository{ID: uuid.New(), Name: "releases"}
	f.bucket = simpleartifact.Bucket{
		ID:           uuid.New(),
		RepositoryID: repository.ID,
		Name:         "releases",
	}
	require.NoError(t, f.provider.CreateBucket(ctx, &f.bucket))

	svc, err := simpleartifact.New(
		simpleartifact.WithSessionProvider(f.provider),
		simpleartifact.WithRepository(repository),
		simpleartifact.WithBlobStore("memory", f.blobs),
	)
	require.NoError(t, err)

	handler := NewMaintenanceHandler(svc, 100)
	f.server = httptest.NewServer(handler.Routes())
	t.Cleanup(f.server.Close)

	return f
}

func (f *handlerFixture) seedComponent(t *testing.T, assetCount int) (*simpleartifact.Component, []*simpleartifact.Asset) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	component := &simpleartifact.Component{
		ID:        uuid.New(),
		BucketID:  f.bucket.ID,
		Name:      "demo-lib",
		Version:   "1.0.0",
		Format:    "raw",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.provider.CreateComponent(ctx, component))

	var assets []*simpleartifact.Asset
	for i := 0; i < assetCount; i++ {
		objectKey := fmt.Sprintf("%s/asset-%d", component.ID, i)
		require.NoError(t, f.blobs.Upload(ctx, objectKey, strings.NewReader("blob data")))

		asset := &simpleartifact.Asset{
			ID:          uuid.New(),
			BucketID:    f.bucket.ID,
			ComponentID: component.ID,
			Path:        fmt.Sprintf("demo-lib/file-%d.bin", i),
			Blob: simpleartifact.BlobRef{
				StorageBackendName: "memory",
				ObjectKey:          objectKey,
			},
			Size:      9,
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, f.provider.CreateAsset(ctx, asset))
		assets = append(assets, asset)
	}

	return component, assets
}

func (f *handlerFixture) doDelete(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, f.server.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func (f *handlerFixture) componentExists(t *testing.T, id uuid.UUID) bool {
	t.Helper()
	ctx := context.Background()

	sess, err := f.provider.Begin(ctx)
	require.NoError(t, err)
	defer sess.Rollback(ctx)

	_, err = sess.FindComponent(ctx, id, &f.bucket)
	return err == nil
}

func TestDeleteComponentEndpoint(t *testing.T) {
	t.Run("deletes component and returns 204", func(t *testing.T) {
		f := newHandlerFixture(t)
		component, _ := f.seedComponent(t, 2)

		resp := f.doDelete(t, "/components/"+component.ID.String())
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.False(t, f.componentExists(t, component.ID))
	})

	t.Run("delete_blobs query removes blobs", func(t *testing.T) {
		f := newHandlerFixture(t)
		component, assets := f.seedComponent(t, 1)

		resp := f.doDelete(t, "/components/"+component.ID.String()+"?delete_blobs=true")
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		_, err := f.blobs.GetObjectMeta(context.Background(), assets[0].Blob.ObjectKey)
		assert.Error(t, err)
	})

	t.Run("absent component still returns 204", func(t *testing.T) {
		f := newHandlerFixture(t)

		resp := f.doDelete(t, "/components/"+uuid.NewString())
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("invalid id returns 400", func(t *testing.T) {
		f := newHandlerFixture(t)

		resp := f.doDelete(t, "/components/not-a-uuid")
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDeleteAssetEndpoint(t *testing.T) {
	t.Run("deletes asset and returns 204", func(t *testing.T) {
		f := newHandlerFixture(t)
		component, assets := f.seedComponent(t, 2)

		resp := f.doDelete(t, "/assets/"+assets[0].ID.String()+"?delete_blob=true")
		defer resp.Body.Close()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.True(t, f.componentExists(t, component.ID))

		_, err := f.blobs.GetObjectMeta(context.Background(), assets[0].Blob.ObjectKey)
		assert.Error(t, err)
		_, err = f.blobs.GetObjectMeta(context.Background(), assets[1].Blob.ObjectKey)
		assert.NoError(t, err)
	})

	t.Run("invalid id returns 400", func(t *testing.T) {
		f := newHandlerFixture(t)

		resp := f.doDelete(t, "/assets/nope")
		defer resp.Body.Close()

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestBulkDeleteEndpoint(t *testing.T) {
	postBulk := func(t *testing.T, f *handlerFixture, body interface{}) *http.Response {
		t.Helper()
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		resp, err := http.Post(f.server.URL+"/components/bulk-delete", "application/json", bytes.NewReader(payload))
		require.NoError(t, err)
		return resp
	}

	t.Run("deletes requested components", func(t *testing.T) {
		f := newHandlerFixture(t)

		var ids []string
		for i := 0; i < 3; i++ {
			component, _ := f.seedComponent(t, 1)
			ids = append(ids, component.ID.String())
		}
		// One unknown id is silently skipped
		ids = append(ids, uuid.NewString())

		resp := postBulk(t, f, BulkDeleteRequest{ComponentIDs: ids, DeleteBlobs: true})
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var result BulkDeleteResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, int64(3), result.DeletedCount)
		assert.Equal(t, 4, result.RequestedCount)
	})

	t.Run("missing ids returns 400", func(t *testing.T) {
		f := newHandlerFixture(t)

		resp := postBulk(t, f, BulkDeleteRequest{})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid id returns 400", func(t *testing.T) {
		f := newHandlerFixture(t)

		resp := postBulk(t, f, BulkDeleteRequest{ComponentIDs: []string{"not-a-uuid"}})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid batch size returns 400", func(t *testing.T) {
		f := newHandlerFixture(t)

		resp := postBulk(t, f, BulkDeleteRequest{
			ComponentIDs: []string{uuid.NewString()},
			BatchSize:    -1,
		})
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid body returns 400", func(t *testing.T) {
		f := newHandlerFixture(t)

		resp, err := http.Post(f.server.URL+"/components/bulk-delete", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
