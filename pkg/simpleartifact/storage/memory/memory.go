package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/tendant/simple-artifact/pkg/simpleartifact"
)

// Backend is an in-memory implementation of the simpleartifact.BlobStore
// interface
type Backend struct {
	mu      sync.RWMutex
	blobs   map[string][]byte
	updated map[string]time.Time
}

// New creates a new in-memory storage backend
func New() *Backend {
	return &Backend{
		blobs:   make(map[string][]byte),
		updated: make(map[string]time.Time),
	}
}

// Upload stores blob content in memory
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.blobs[objectKey] = data
	b.updated[objectKey] = time.Now()
	return nil
}

// Download retrieves blob content from memory
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.blobs[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes a blob from memory
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.blobs[objectKey]; !exists {
		return errors.New("object not found")
	}

	delete(b.blobs, objectKey)
	delete(b.updated, objectKey)
	return nil
}

// GetObjectMeta retrieves metadata for a blob in memory
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*simpleartifact.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.blobs[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}

	return &simpleartifact.ObjectMeta{
		Key:       objectKey,
		Size:      int64(len(data)),
		UpdatedAt: b.updated[objectKey],
	}, nil
}
