package simpleartifact

import (
	"context"

	"github.com/google/uuid"
)

// Hook system allows callers to react to deletion lifecycle events without
// the engine depending on them. All hooks default to no-ops.

// Hooks defines the available deletion lifecycle hooks
type Hooks struct {
	// Component lifecycle hooks
	BeforeComponentDelete []BeforeComponentDeleteHook
	AfterComponentDelete  []AfterComponentDeleteHook

	// Asset lifecycle hooks
	AfterAssetDelete []AfterAssetDeleteHook

	// AfterBatchDelete runs once after a bulk delete finishes, whether it
	// ran to completion or was cancelled early
	AfterBatchDelete []AfterBatchDeleteHook

	// OnItemError is the observability channel for per-item failures the
	// batch path isolates instead of returning
	OnItemError []ItemErrorHook
}

// BeforeComponentDeleteHook is called before a component is deleted
type BeforeComponentDeleteHook func(ctx context.Context, componentID uuid.UUID) error

// AfterComponentDeleteHook is called after a component deletion commits
type AfterComponentDeleteHook func(ctx context.Context, componentID uuid.UUID)

// AfterAssetDeleteHook is called after an asset deletion commits
type AfterAssetDeleteHook func(ctx context.Context, assetID uuid.UUID)

// AfterBatchDeleteHook is called once after a bulk delete with the final
// success count
type AfterBatchDeleteHook func(ctx context.Context, deleted int64)

// ItemErrorHook is called for each item failure isolated by the batch path
type ItemErrorHook func(ctx context.Context, componentID uuid.UUID, err error)

// Hook execution helpers

func (h *Hooks) executeBeforeComponentDelete(ctx context.Context, componentID uuid.UUID) error {
	for _, hook := range h.BeforeComponentDelete {
		if err := hook(ctx, componentID); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hooks) executeAfterComponentDelete(ctx context.Context, componentID uuid.UUID) {
	for _, hook := range h.AfterComponentDelete {
		hook(ctx, componentID)
	}
}

func (h *Hooks) executeAfterAssetDelete(ctx context.Context, assetID uuid.UUID) {
	for _, hook := range h.AfterAssetDelete {
		hook(ctx, assetID)
	}
}

func (h *Hooks) executeAfterBatchDelete(ctx context.Context, deleted int64) {
	for _, hook := range h.AfterBatchDelete {
		hook(ctx, deleted)
	}
}

func (h *Hooks) executeOnItemError(ctx context.Context, componentID uuid.UUID, err error) {
	for _, hook := range h.OnItemError {
		hook(ctx, componentID, err)
	}
}
