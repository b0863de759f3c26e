// Package postgres implements the store session capabilities on
// PostgreSQL via pgx. Sessions are pgx transactions; sub-sessions are
// savepoints. Expected schema:
//
//	artifact.bucket    (id, repository_id, name)
//	artifact.component (id, bucket_id, name, version, format, entity_version, created_at, updated_at)
//	artifact.asset     (id, bucket_id, component_id, path, storage_backend_name, object_key,
//	                    size, checksum, entity_version, created_at, updated_at)
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-artifact/pkg/simpleartifact"
)

// Provider implements simpleartifact.SessionProvider using a pgx
// connection pool
type Provider struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL session provider
func New(pool *pgxpool.Pool) *Provider {
	return &Provider{pool: pool}
}

// Begin opens a transaction for a single operation
func (p *Provider) Begin(ctx context.Context) (simpleartifact.StoreSession, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, mapError("begin", err)
	}
	return &session{tx: tx}, nil
}

// BeginBatch opens a transaction for one chunk of a bulk operation. Chunk
// transactions use the same isolation as single ones; the chunking itself
// is what keeps them short.
func (p *Provider) BeginBatch(ctx context.Context) (simpleartifact.StoreSession, error) {
	return p.Begin(ctx)
}

// mapError translates pgx failures into the engine's error taxonomy
func mapError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%s: %w", operation, simpleartifact.ErrConflict)
		default:
			if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" { // connection exceptions
				return fmt.Errorf("%s: %s: %w", operation, pgErr.Message, simpleartifact.ErrStoreUnavailable)
			}
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return fmt.Errorf("%s: %w", operation, simpleartifact.ErrStoreUnavailable)
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// session wraps one pgx transaction (or savepoint)
type session struct {
	tx pgx.Tx
}

func (s *session) FindBucket(ctx context.Context, repositoryID uuid.UUID) (*simpleartifact.Bucket, error) {
	query := `
        SELECT id, repository_id, name
        FROM artifact.bucket WHERE repository_id = $1`

	var bucket simpleartifact.Bucket
	err := s.tx.QueryRow(ctx, query, repositoryID).Scan(
		&bucket.ID, &bucket.RepositoryID, &bucket.Name)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleartifact.ErrBucketNotFound
		}
		return nil, mapError("find bucket", err)
	}

	return &bucket, nil
}

func (s *session) FindComponent(ctx context.Context, id uuid.UUID, bucket *simpleartifact.Bucket) (*simpleartifact.Component, error) {
	query := `
        SELECT id, bucket_id, name, version, format, entity_version, created_at, updated_at
        FROM artifact.component WHERE id = $1 AND bucket_id = $2`

	var component simpleartifact.Component
	err := s.tx.QueryRow(ctx, query, id, bucket.ID).Scan(
		&component.ID, &component.BucketID, &component.Name, &component.Version,
		&component.Format, &component.EntityVersion, &component.CreatedAt, &component.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleartifact.ErrComponentNotFound
		}
		return nil, mapError("find component", err)
	}

	return &component, nil
}

func (s *session) FindAsset(ctx context.Context, id uuid.UUID, bucket *simpleartifact.Bucket) (*simpleartifact.Asset, error) {
	query := `
        SELECT id, bucket_id, component_id, path, storage_backend_name, object_key,
               size, checksum, entity_version, created_at, updated_at
        FROM artifact.asset WHERE id = $1 AND bucket_id = $2`

	var asset simpleartifact.Asset
	err := s.tx.QueryRow(ctx, query, id, bucket.ID).Scan(
		&asset.ID, &asset.BucketID, &asset.ComponentID, &asset.Path,
		&asset.Blob.StorageBackendName, &asset.Blob.ObjectKey,
		&asset.Size, &asset.Checksum, &asset.EntityVersion, &asset.CreatedAt, &asset.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simpleartifact.ErrAssetNotFound
		}
		return nil, mapError("find asset", err)
	}

	return &asset, nil
}

func (s *session) ListComponentAssets(ctx context.Context, component *simpleartifact.Component) ([]*simpleartifact.Asset, error) {
	query := `
        SELECT id, bucket_id, component_id, path, storage_backend_name, object_key,
               size, checksum, entity_version, created_at, updated_at
        FROM artifact.asset WHERE component_id = $1
        ORDER BY path`

	rows, err := s.tx.Query(ctx, query, component.ID)
	if err != nil {
		return nil, mapError("list component assets", err)
	}
	defer rows.Close()

	var assets []*simpleartifact.Asset
	for rows.Next() {
		var asset simpleartifact.Asset
		if err := rows.Scan(
			&asset.ID, &asset.BucketID, &asset.ComponentID, &asset.Path,
			&asset.Blob.StorageBackendName, &asset.Blob.ObjectKey,
			&asset.Size, &asset.Checksum, &asset.EntityVersion, &asset.CreatedAt, &asset.UpdatedAt); err != nil {
			return nil, mapError("list component assets", err)
		}
		assets = append(assets, &asset)
	}

	return assets, rows.Err()
}

func (s *session) DeleteComponent(ctx context.Context, component *simpleartifact.Component) error {
	query := `DELETE FROM artifact.component WHERE id = $1 AND entity_version = $2`

	tag, err := s.tx.Exec(ctx, query, component.ID, component.EntityVersion)
	if err != nil {
		return mapError("delete component", err)
	}
	if tag.RowsAffected() == 0 {
		return s.explainMissedDelete(ctx, "artifact.component", component.ID, simpleartifact.ErrComponentNotFound)
	}

	return nil
}

func (s *session) DeleteAsset(ctx context.Context, asset *simpleartifact.Asset) error {
	query := `DELETE FROM artifact.asset WHERE id = $1 AND entity_version = $2`

	tag, err := s.tx.Exec(ctx, query, asset.ID, asset.EntityVersion)
	if err != nil {
		return mapError("delete asset", err)
	}
	if tag.RowsAffected() == 0 {
		return s.explainMissedDelete(ctx, "artifact.asset", asset.ID, simpleartifact.ErrAssetNotFound)
	}

	return nil
}

// explainMissedDelete distinguishes a row that vanished (not found) from
// one whose entity_version moved under us (conflict)
func (s *session) explainMissedDelete(ctx context.Context, table string, id uuid.UUID, notFound error) error {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := s.tx.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return mapError("delete", err)
	}
	if exists {
		return simpleartifact.ErrConflict
	}
	return notFound
}

// Begin opens a savepoint-scoped sub-session
func (s *session) Begin(ctx context.Context) (simpleartifact.StoreSession, error) {
	sub, err := s.tx.Begin(ctx)
	if err != nil {
		return nil, mapError("savepoint", err)
	}
	return &session{tx: sub}, nil
}

// Commit commits the transaction (or releases the savepoint)
func (s *session) Commit(ctx context.Context) error {
	if err := s.tx.Commit(ctx); err != nil {
		return mapError("commit", err)
	}
	return nil
}

// Rollback rolls the transaction back. A no-op after Commit.
func (s *session) Rollback(ctx context.Context) error {
	err := s.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return mapError("rollback", err)
	}
	return nil
}
