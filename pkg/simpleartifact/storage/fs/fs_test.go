package fs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSBackend(t *testing.T) {
	ctx := context.Background()

	baseDir := t.TempDir()
	backend, err := New(Config{BaseDir: baseDir})
	require.NoError(t, err)

	t.Run("Upload and Download", func(t *testing.T) {
		objectKey := "nested/dir/object.bin"
		content := "file blob content"

		err := backend.Upload(ctx, objectKey, strings.NewReader(content))
		require.NoError(t, err)

		reader, err := backend.Download(ctx, objectKey)
		require.NoError(t, err)
		defer reader.Close()

		data, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	})

	t.Run("GetObjectMeta", func(t *testing.T) {
		objectKey := "meta/object.bin"
		content := "12345"

		require.NoError(t, backend.Upload(ctx, objectKey, strings.NewReader(content)))

		meta, err := backend.GetObjectMeta(ctx, objectKey)
		require.NoError(t, err)
		assert.Equal(t, objectKey, meta.Key)
		assert.Equal(t, int64(len(content)), meta.Size)
		assert.False(t, meta.UpdatedAt.IsZero())
	})

	t.Run("Delete cleans up empty directories", func(t *testing.T) {
		objectKey := "cleanup/deep/object.bin"

		require.NoError(t, backend.Upload(ctx, objectKey, strings.NewReader("data")))
		require.NoError(t, backend.Delete(ctx, objectKey))

		_, err := backend.Download(ctx, objectKey)
		assert.Error(t, err)

		// The now-empty parent directories are gone, the base dir stays
		_, err = os.Stat(filepath.Join(baseDir, "cleanup"))
		assert.True(t, os.IsNotExist(err))
		_, err = os.Stat(baseDir)
		assert.NoError(t, err)
	})

	t.Run("Delete keeps non-empty directories", func(t *testing.T) {
		require.NoError(t, backend.Upload(ctx, "shared/a.bin", strings.NewReader("a")))
		require.NoError(t, backend.Upload(ctx, "shared/b.bin", strings.NewReader("b")))

		require.NoError(t, backend.Delete(ctx, "shared/a.bin"))

		_, err := os.Stat(filepath.Join(baseDir, "shared", "b.bin"))
		assert.NoError(t, err)
	})

	t.Run("ErrorCases", func(t *testing.T) {
		_, err := backend.Download(ctx, "missing.bin")
		assert.Error(t, err)

		err = backend.Delete(ctx, "missing.bin")
		assert.Error(t, err)

		_, err = backend.GetObjectMeta(ctx, "missing.bin")
		assert.Error(t, err)
	})
}

func TestFSBackendCreation(t *testing.T) {
	t.Run("missing base dir", func(t *testing.T) {
		_, err := New(Config{})
		assert.Error(t, err)
	})

	t.Run("creates base dir", func(t *testing.T) {
		baseDir := filepath.Join(t.TempDir(), "blobs")
		_, err := New(Config{BaseDir: baseDir})
		require.NoError(t, err)

		info, err := os.Stat(baseDir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}
