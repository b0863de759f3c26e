package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-artifact/pkg/simpleartifact"
)

// maxComponentsPerRequest bounds one bulk-delete request body
const maxComponentsPerRequest = 10000

// MaintenanceHandler handles HTTP requests for artifact deletion
type MaintenanceHandler struct {
	service          simpleartifact.Service
	defaultBatchSize int
}

// NewMaintenanceHandler creates a new maintenance handler
func NewMaintenanceHandler(service simpleartifact.Service, defaultBatchSize int) *MaintenanceHandler {
	return &MaintenanceHandler{
		service:          service,
		defaultBatchSize: defaultBatchSize,
	}
}

// Routes returns the routes for maintenance operations
func (h *MaintenanceHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Delete("/components/{id}", h.DeleteComponent)
	r.Delete("/assets/{id}", h.DeleteAsset)
	r.Post("/components/bulk-delete", h.BulkDeleteComponents)

	return r
}

// BulkDeleteRequest is the request body for a bulk component delete
type BulkDeleteRequest struct {
	ComponentIDs   []string `json:"component_ids"`
	DeleteBlobs    bool     `json:"delete_blobs"`
	BatchSize      int      `json:"batch_size,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
}

// BulkDeleteResponse reports how many components were actually removed
type BulkDeleteResponse struct {
	DeletedCount   int64 `json:"deleted_count"`
	RequestedCount int   `json:"requested_count"`
}

// DeleteComponent deletes one component and all its assets
func (h *MaintenanceHandler) DeleteComponent(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid component ID", http.StatusBadRequest)
		return
	}

	err = h.service.DeleteComponent(r.Context(), simpleartifact.DeleteComponentRequest{
		ComponentID: id,
		DeleteBlobs: r.URL.Query().Get("delete_blobs") == "true",
	})
	if err != nil {
		if errors.Is(err, simpleartifact.ErrConflict) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Component deleted", "component_id", idStr)
	w.WriteHeader(http.StatusNoContent)
}

// DeleteAsset deletes one asset
func (h *MaintenanceHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "Invalid asset ID", http.StatusBadRequest)
		return
	}

	err = h.service.DeleteAsset(r.Context(), simpleartifact.DeleteAssetRequest{
		AssetID:    id,
		DeleteBlob: r.URL.Query().Get("delete_blob") == "true",
	})
	if err != nil {
		if errors.Is(err, simpleartifact.ErrConflict) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Asset deleted", "asset_id", idStr)
	w.WriteHeader(http.StatusNoContent)
}

// BulkDeleteComponents deletes many components in chunks and returns the
// count actually removed. Per-item failures are skipped, so the count may
// be lower than the number requested.
func (h *MaintenanceHandler) BulkDeleteComponents(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.ComponentIDs) == 0 {
		http.Error(w, "Missing required 'component_ids' field", http.StatusBadRequest)
		return
	}
	if len(req.ComponentIDs) > maxComponentsPerRequest {
		http.Error(w, "Too many component IDs requested", http.StatusBadRequest)
		return
	}

	ids := make([]uuid.UUID, 0, len(req.ComponentIDs))
	for _, idStr := range req.ComponentIDs {
		id, err := uuid.Parse(idStr)
		if err != nil {
			http.Error(w, "Invalid component ID: "+idStr, http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}

	batchSize := req.BatchSize
	if batchSize == 0 {
		batchSize = h.defaultBatchSize
	}

	var cancelled func() bool
	if req.TimeoutSeconds > 0 {
		deadline := time.Now().Add(time.Duration(req.TimeoutSeconds) * time.Second)
		cancelled = func() bool { return time.Now().After(deadline) }
	}

	count, err := h.service.DeleteComponents(r.Context(), simpleartifact.DeleteComponentsRequest{
		ComponentIDs: ids,
		DeleteBlobs:  req.DeleteBlobs,
		BatchSize:    batchSize,
		Cancelled:    cancelled,
	})
	if err != nil {
		if errors.Is(err, simpleartifact.ErrInvalidBatchSize) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Bulk delete finished", "requested", len(ids), "deleted", count)
	render.JSON(w, r, BulkDeleteResponse{
		DeletedCount:   count,
		RequestedCount: len(ids),
	})
}
