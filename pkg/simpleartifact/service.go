package simpleartifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	sessions   SessionProvider
	blobStores map[string]BlobStore
	repository Repository
	hooks      Hooks
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithSessionProvider sets the store session provider for the service
func WithSessionProvider(provider SessionProvider) Option {
	return func(s *service) {
		s.sessions = provider
	}
}

// WithBlobStore adds a blob storage backend
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
	}
}

// WithRepository binds the service to the repository whose bucket scopes
// every lookup
func WithRepository(repository Repository) Option {
	return func(s *service) {
		s.repository = repository
	}
}

// WithHooks sets the lifecycle hooks for the service
func WithHooks(hooks Hooks) Option {
	return func(s *service) {
		s.hooks = hooks
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new maintenance service with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores: make(map[string]BlobStore),
		logger:     slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.sessions == nil {
		return nil, fmt.Errorf("session provider is required")
	}
	if s.repository.ID == uuid.Nil {
		return nil, fmt.Errorf("repository is required")
	}

	return s, nil
}

// DeleteComponent removes a component and every asset it owns within one
// store session. An absent component is a silent success.
func (s *service) DeleteComponent(ctx context.Context, req DeleteComponentRequest) error {
	if req.ComponentID == uuid.Nil {
		return &ComponentError{ComponentID: req.ComponentID, Op: "delete", Err: errors.New("component id is required")}
	}

	if err := s.hooks.executeBeforeComponentDelete(ctx, req.ComponentID); err != nil {
		return &ComponentError{ComponentID: req.ComponentID, Op: "delete", Err: err}
	}

	var blobs []BlobRef
	var deleted bool
	err := s.withSession(ctx, func(sess StoreSession) error {
		var err error
		blobs, deleted, err = s.deleteComponentInSession(ctx, sess, req.ComponentID, req.DeleteBlobs)
		return err
	})
	if err != nil {
		return &ComponentError{ComponentID: req.ComponentID, Op: "delete", Err: err}
	}

	if !deleted {
		return nil
	}

	s.requestBlobDeletes(ctx, blobs)
	s.hooks.executeAfterComponentDelete(ctx, req.ComponentID)

	return nil
}

// DeleteAsset removes a single asset within one store session. An absent
// asset is a silent success.
func (s *service) DeleteAsset(ctx context.Context, req DeleteAssetRequest) error {
	if req.AssetID == uuid.Nil {
		return &AssetError{AssetID: req.AssetID, Op: "delete", Err: errors.New("asset id is required")}
	}

	var blobs []BlobRef
	var deleted bool
	err := s.withSession(ctx, func(sess StoreSession) error {
		var err error
		blobs, deleted, err = s.deleteAssetInSession(ctx, sess, req.AssetID, req.DeleteBlob)
		return err
	})
	if err != nil {
		return &AssetError{AssetID: req.AssetID, Op: "delete", Err: err}
	}

	if !deleted {
		return nil
	}

	s.requestBlobDeletes(ctx, blobs)
	s.hooks.executeAfterAssetDelete(ctx, req.AssetID)

	return nil
}
