package simpleartifact

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrComponentNotFound indicates a component was not found in the
	// addressed bucket. Maintenance operations treat this as an already
	// deleted entity, not a failure.
	ErrComponentNotFound = errors.New("component not found")

	// ErrAssetNotFound indicates an asset was not found in the addressed
	// bucket. Treated the same way as ErrComponentNotFound.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrBucketNotFound indicates no bucket exists for the repository
	ErrBucketNotFound = errors.New("bucket not found")

	// ErrStorageBackendNotFound indicates a storage backend was not found
	ErrStorageBackendNotFound = errors.New("storage backend not found")

	// ErrConflict indicates the store detected a concurrent modification of
	// an entity the session was about to delete
	ErrConflict = errors.New("concurrent modification detected")

	// ErrStoreUnavailable indicates the store could not complete the
	// operation at all (connection loss, I/O failure)
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidBatchSize indicates a bulk delete was invoked with a batch
	// size below 1
	ErrInvalidBatchSize = errors.New("batch size must be at least 1")

	// ErrSessionClosed indicates an operation was attempted on a session
	// that has already been committed or rolled back
	ErrSessionClosed = errors.New("session already closed")
)

// ComponentError represents an error related to component maintenance
type ComponentError struct {
	ComponentID uuid.UUID
	Op          string
	Err         error
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("component operation %s failed for component %s: %v", e.Op, e.ComponentID, e.Err)
}

func (e *ComponentError) Unwrap() error {
	return e.Err
}

// AssetError represents an error related to asset maintenance
type AssetError struct {
	AssetID uuid.UUID
	Op      string
	Err     error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset operation %s failed for asset %s: %v", e.Op, e.AssetID, e.Err)
}

func (e *AssetError) Unwrap() error {
	return e.Err
}

// SessionError represents a failure opening or closing a store session
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s failed: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err resolves to one of the not-found
// sentinels. Callers deciding between "already deleted" and a real failure
// should use this rather than comparing sentinels directly.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrComponentNotFound) ||
		errors.Is(err, ErrAssetNotFound) ||
		errors.Is(err, ErrBucketNotFound)
}
