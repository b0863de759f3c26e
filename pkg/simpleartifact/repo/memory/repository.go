package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-artifact/pkg/simpleartifact"
)

// Provider implements simpleartifact.SessionProvider using in-memory
// storage. Sessions stage their deletions and apply them on commit;
// sub-sessions stage into child buffers that merge into the parent on
// commit and vanish on rollback. Useful for tests and for embedding
// without a database.
type Provider struct {
	mu         sync.RWMutex
	buckets    map[uuid.UUID]*simpleartifact.Bucket
	components map[uuid.UUID]*simpleartifact.Component
	assets     map[uuid.UUID]*simpleartifact.Asset
}

// New creates a new in-memory session provider
func New() *Provider {
	return &Provider{
		buckets:    make(map[uuid.UUID]*simpleartifact.Bucket),
		components: make(map[uuid.UUID]*simpleartifact.Component),
		assets:     make(map[uuid.UUID]*simpleartifact.Asset),
	}
}

// Begin opens a session for a single operation
func (p *Provider) Begin(ctx context.Context) (simpleartifact.StoreSession, error) {
	return p.newSession(), nil
}

// BeginBatch opens a session for one chunk of a bulk operation
func (p *Provider) BeginBatch(ctx context.Context) (simpleartifact.StoreSession, error) {
	return p.newSession(), nil
}

func (p *Provider) newSession() *session {
	return &session{
		provider:          p,
		deletedComponents: make(map[uuid.UUID]int),
		deletedAssets:     make(map[uuid.UUID]int),
	}
}

// Fixture operations. Records are created by ingestion paths outside the
// maintenance engine; these exist so embedders and tests can seed state.

// CreateBucket stores a bucket record
func (p *Provider) CreateBucket(ctx context.Context, bucket *simpleartifact.Bucket) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	bucketCopy := *bucket
	p.buckets[bucket.ID] = &bucketCopy
	return nil
}

// CreateComponent stores a component record
func (p *Provider) CreateComponent(ctx context.Context, component *simpleartifact.Component) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if component.EntityVersion == 0 {
		component.EntityVersion = 1
	}
	componentCopy := *component
	p.components[component.ID] = &componentCopy
	return nil
}

// CreateAsset stores an asset record
func (p *Provider) CreateAsset(ctx context.Context, asset *simpleartifact.Asset) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if asset.EntityVersion == 0 {
		asset.EntityVersion = 1
	}
	assetCopy := *asset
	p.assets[asset.ID] = &assetCopy
	return nil
}

// TouchComponent bumps a component's entity version, the way a concurrent
// writer would. A session that resolved the component before the touch
// gets simpleartifact.ErrConflict when it tries to delete it.
func (p *Provider) TouchComponent(ctx context.Context, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	component, exists := p.components[id]
	if !exists {
		return simpleartifact.ErrComponentNotFound
	}
	component.EntityVersion++
	return nil
}

// session is one unit of work against the provider's maps. Staged
// deletions record the entity version observed at staging time so the root
// commit can re-check it against the live row.
type session struct {
	provider          *Provider
	parent            *session
	closed            bool
	deletedComponents map[uuid.UUID]int
	deletedAssets     map[uuid.UUID]int
}

func (s *session) componentDeleted(id uuid.UUID) bool {
	for sess := s; sess != nil; sess = sess.parent {
		if _, ok := sess.deletedComponents[id]; ok {
			return true
		}
	}
	return false
}

func (s *session) assetDeleted(id uuid.UUID) bool {
	for sess := s; sess != nil; sess = sess.parent {
		if _, ok := sess.deletedAssets[id]; ok {
			return true
		}
	}
	return false
}

// FindBucket resolves the bucket scoping a repository's entities
func (s *session) FindBucket(ctx context.Context, repositoryID uuid.UUID) (*simpleartifact.Bucket, error) {
	if s.closed {
		return nil, simpleartifact.ErrSessionClosed
	}

	s.provider.mu.RLock()
	defer s.provider.mu.RUnlock()

	for _, bucket := range s.provider.buckets {
		if bucket.RepositoryID == repositoryID {
			bucketCopy := *bucket
			return &bucketCopy, nil
		}
	}
	return nil, simpleartifact.ErrBucketNotFound
}

// FindComponent resolves a component within a bucket
func (s *session) FindComponent(ctx context.Context, id uuid.UUID, bucket *simpleartifact.Bucket) (*simpleartifact.Component, error) {
	if s.closed {
		return nil, simpleartifact.ErrSessionClosed
	}
	if s.componentDeleted(id) {
		return nil, simpleartifact.ErrComponentNotFound
	}

	s.provider.mu.RLock()
	defer s.provider.mu.RUnlock()

	component, exists := s.provider.components[id]
	if !exists || component.BucketID != bucket.ID {
		return nil, simpleartifact.ErrComponentNotFound
	}

	componentCopy := *component
	return &componentCopy, nil
}

// FindAsset resolves an asset within a bucket
func (s *session) FindAsset(ctx context.Context, id uuid.UUID, bucket *simpleartifact.Bucket) (*simpleartifact.Asset, error) {
	if s.closed {
		return nil, simpleartifact.ErrSessionClosed
	}
	if s.assetDeleted(id) {
		return nil, simpleartifact.ErrAssetNotFound
	}

	s.provider.mu.RLock()
	defer s.provider.mu.RUnlock()

	asset, exists := s.provider.assets[id]
	if !exists || asset.BucketID != bucket.ID {
		return nil, simpleartifact.ErrAssetNotFound
	}

	assetCopy := *asset
	return &assetCopy, nil
}

// ListComponentAssets returns the assets owned by a component, ordered by
// path
func (s *session) ListComponentAssets(ctx context.Context, component *simpleartifact.Component) ([]*simpleartifact.Asset, error) {
	if s.closed {
		return nil, simpleartifact.ErrSessionClosed
	}

	s.provider.mu.RLock()
	defer s.provider.mu.RUnlock()

	var result []*simpleartifact.Asset
	for _, asset := range s.provider.assets {
		if asset.ComponentID == component.ID && !s.assetDeleted(asset.ID) {
			assetCopy := *asset
			result = append(result, &assetCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})

	return result, nil
}

// DeleteComponent stages removal of a component record
func (s *session) DeleteComponent(ctx context.Context, component *simpleartifact.Component) error {
	if s.closed {
		return simpleartifact.ErrSessionClosed
	}

	s.provider.mu.RLock()
	defer s.provider.mu.RUnlock()

	current, exists := s.provider.components[component.ID]
	if !exists || s.componentDeleted(component.ID) {
		return simpleartifact.ErrComponentNotFound
	}
	if current.EntityVersion != component.EntityVersion {
		return simpleartifact.ErrConflict
	}

	s.deletedComponents[component.ID] = component.EntityVersion
	return nil
}

// DeleteAsset stages removal of an asset record
func (s *session) DeleteAsset(ctx context.Context, asset *simpleartifact.Asset) error {
	if s.closed {
		return simpleartifact.ErrSessionClosed
	}

	s.provider.mu.RLock()
	defer s.provider.mu.RUnlock()

	current, exists := s.provider.assets[asset.ID]
	if !exists || s.assetDeleted(asset.ID) {
		return simpleartifact.ErrAssetNotFound
	}
	if current.EntityVersion != asset.EntityVersion {
		return simpleartifact.ErrConflict
	}

	s.deletedAssets[asset.ID] = asset.EntityVersion
	return nil
}

// Begin opens a sub-session staging into its own buffer
func (s *session) Begin(ctx context.Context) (simpleartifact.StoreSession, error) {
	if s.closed {
		return nil, simpleartifact.ErrSessionClosed
	}

	return &session{
		provider:          s.provider,
		parent:            s,
		deletedComponents: make(map[uuid.UUID]int),
		deletedAssets:     make(map[uuid.UUID]int),
	}, nil
}

// Commit applies the staged deletions: a sub-session merges them into its
// parent, the root session applies them to the provider's maps
func (s *session) Commit(ctx context.Context) error {
	if s.closed {
		return simpleartifact.ErrSessionClosed
	}
	s.closed = true

	if s.parent != nil {
		for id, version := range s.deletedComponents {
			s.parent.deletedComponents[id] = version
		}
		for id, version := range s.deletedAssets {
			s.parent.deletedAssets[id] = version
		}
		return nil
	}

	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()

	// Staged versions are re-checked against the live rows: a writer that
	// got in between staging and commit surfaces as a conflict instead of
	// being silently overridden, and nothing is applied.
	for id, version := range s.deletedComponents {
		if current, exists := s.provider.components[id]; exists && current.EntityVersion != version {
			return simpleartifact.ErrConflict
		}
	}
	for id, version := range s.deletedAssets {
		if current, exists := s.provider.assets[id]; exists && current.EntityVersion != version {
			return simpleartifact.ErrConflict
		}
	}

	for id := range s.deletedAssets {
		delete(s.provider.assets, id)
	}
	for id := range s.deletedComponents {
		delete(s.provider.components, id)
	}
	return nil
}

// Rollback discards the staged deletions. A no-op after Commit.
func (s *session) Rollback(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.deletedComponents = nil
	s.deletedAssets = nil
	return nil
}
