package simpleartifact

import (
	"context"

	"github.com/google/uuid"
)

// Batch orchestration. The id list is partitioned into fixed-size chunks,
// each processed in its own store session in input order. Cancellation is
// polled between chunks and between items; it stops new work but never
// rolls back chunks already committed. A failing item is isolated in a
// savepoint and skipped; a failing chunk is logged and the next chunk still
// opens a fresh session.

// itemResult is the typed outcome of one item's locate-then-delete attempt
type itemResult struct {
	deleted bool
	blobs   []BlobRef
	err     error
}

// DeleteComponents removes the requested components chunk by chunk and
// returns the number actually removed. Per-item failures are reported
// through the logger and the OnItemError hook, never through the return
// value: callers must treat the count as the source of truth.
func (s *service) DeleteComponents(ctx context.Context, req DeleteComponentsRequest) (int64, error) {
	if req.BatchSize < 1 {
		return 0, ErrInvalidBatchSize
	}

	cancelled := req.Cancelled
	if cancelled == nil {
		cancelled = func() bool { return false }
	}
	stop := func() bool { return ctx.Err() != nil || cancelled() }

	var total int64
	for start := 0; start < len(req.ComponentIDs); start += req.BatchSize {
		if stop() {
			break
		}

		end := min(start+req.BatchSize, len(req.ComponentIDs))
		count, blobs, err := s.deleteComponentChunk(ctx, req.ComponentIDs[start:end], req.DeleteBlobs, stop)
		if err != nil {
			// The next chunk still gets a fresh session: the failure may be
			// transient or scoped to this chunk's data.
			s.logger.Warn("component delete chunk failed",
				"chunk_size", end-start,
				"error", err)
			continue
		}

		total += count
		s.requestBlobDeletes(ctx, blobs)
	}

	s.hooks.executeAfterBatchDelete(ctx, total)

	return total, nil
}

// deleteComponentChunk processes one chunk inside one store session and
// returns the number of components removed by its commit, together with
// the blob delete requests to issue now that the chunk is durable.
func (s *service) deleteComponentChunk(ctx context.Context, ids []uuid.UUID, deleteBlobs bool, stop func() bool) (int64, []BlobRef, error) {
	sess, err := s.sessions.BeginBatch(ctx)
	if err != nil {
		return 0, nil, &SessionError{Op: "begin", Err: err}
	}

	committed := false
	defer func() {
		if !committed {
			_ = sess.Rollback(ctx)
		}
	}()

	var count int64
	var blobs []BlobRef
	for _, id := range ids {
		if stop() {
			break
		}

		res := s.deleteComponentItem(ctx, sess, id, deleteBlobs)
		if res.err != nil {
			s.logger.Debug("unable to delete component",
				"component_id", id,
				"error", res.err)
			s.hooks.executeOnItemError(ctx, id, res.err)
			continue
		}
		if res.deleted {
			count++
			blobs = append(blobs, res.blobs...)
		}
	}

	if err := sess.Commit(ctx); err != nil {
		return 0, nil, &SessionError{Op: "commit", Err: err}
	}
	committed = true

	return count, blobs, nil
}

// deleteComponentItem attempts the locate-then-cascade-delete sequence for
// one id inside a savepoint, so a failure leaves the chunk's other
// deletions intact.
func (s *service) deleteComponentItem(ctx context.Context, sess StoreSession, id uuid.UUID, deleteBlobs bool) itemResult {
	var res itemResult
	err := withItemScope(ctx, sess, func(sub StoreSession) error {
		blobs, deleted, err := s.deleteComponentInSession(ctx, sub, id, deleteBlobs)
		if err != nil {
			return err
		}
		res.blobs = blobs
		res.deleted = deleted
		return nil
	})
	if err != nil {
		return itemResult{err: err}
	}
	return res
}
