// Package simpleartifact provides transactional batch deletion for a
// content-addressed artifact store.
//
// The store holds components (logical artifact versions) that own assets
// (stored files), each referencing one blob in an external storage backend.
// The maintenance Service removes them with three guarantees:
//
//   - A component and all its assets are deleted in one store session:
//     readers never observe a half-deleted component.
//   - Bulk deletes are chunked, one session per chunk, so large requests
//     hold no long-lived transaction and stay responsive to cancellation.
//     Committed chunks stay committed when the caller cancels.
//   - A single bad or concurrently modified entity never aborts a bulk
//     operation; its failure is isolated in a savepoint, logged, and the
//     remaining items proceed.
//
// Absent entities are treated as already deleted. Blob deletion is opt-in
// per request; blob delete requests are issued only after the owning
// session commits, and a failed request orphans the blob rather than
// failing the committed deletion.
//
// Store access goes through the SessionProvider and StoreSession
// capabilities; see repo/postgres and repo/memory for implementations, and
// storage/{memory,fs,s3} for blob storage backends.
package simpleartifact
