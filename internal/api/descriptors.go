package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Leanline-Systems/Gemba/internal/events"
	"github.com/Leanline-Systems/Gemba/internal/store"
)

type DescriptorsHandler struct {
	store  store.Store
	events events.Client
}

func NewDescriptorsHandler(s store.Store, ev events.Client) *DescriptorsHandler {
	return &DescriptorsHandler{store: s, events: ev}
}

type upsertDescriptorRequest struct {
	ID          string `json:"id,omitempty"`
	DimensionID string `json:"dimension_id"`
	Level       int    `json:"level"`
	Description string `json:"description"`
}

// Upsert handles PUT /api/v1/sectors/{id}/descriptors
func (h *DescriptorsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	sectorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid sector id"})
		return
	}

	var req upsertDescriptorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	dimensionID, err := uuid.Parse(req.DimensionID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dimension_id"})
		return
	}

	d := &store.MaturityDescriptor{
		SectorID:    sectorID,
		DimensionID: dimensionID,
		Level:       req.Level,
		Description: req.Description,
	}
	if req.ID != "" {
		id, err := uuid.Parse(req.ID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
			return
		}
		d.ID = id
	}

	if err := h.store.UpsertDescriptor(r.Context(), d); err != nil {
		writeStoreError(w, err)
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectDescriptorUpserted(d.ID.String()), events.DescriptorEvent{
			DescriptorID: d.ID.String(),
			SectorID:     d.SectorID.String(),
			DimensionID:  d.DimensionID.String(),
			Level:        d.Level,
		})
	}

	writeJSON(w, http.StatusOK, d)
}

// List handles GET /api/v1/sectors/{id}/descriptors
func (h *DescriptorsHandler) List(w http.ResponseWriter, r *http.Request) {
	sectorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid sector id"})
		return
	}

	descriptors, err := h.store.ListDescriptors(r.Context(), sectorID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if descriptors == nil {
		descriptors = []*store.MaturityDescriptor{}
	}
	writeJSON(w, http.StatusOK, descriptors)
}

// Template handles GET /api/v1/sectors/{id}/template
func (h *DescriptorsHandler) Template(w http.ResponseWriter, r *http.Request) {
	sectorID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid sector id"})
		return
	}

	dims, err := h.store.ListTemplate(r.Context(), sectorID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if dims == nil {
		dims = []*store.TemplateDimension{}
	}
	writeJSON(w, http.StatusOK, dims)
}

// Delete handles DELETE /api/v1/descriptors/{id}
func (h *DescriptorsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.store.SoftDeleteDescriptor(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectDescriptorDeleted(id.String()), events.DescriptorEvent{
			DescriptorID: id.String(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Restore handles POST /api/v1/descriptors/{id}/restore, where {id} is the
// original id of a previously deleted descriptor.
func (h *DescriptorsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	originalID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	d, err := h.store.RestoreDescriptor(r.Context(), originalID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectDescriptorRestored(d.ID.String()), events.DescriptorEvent{
			DescriptorID: d.ID.String(),
			SectorID:     d.SectorID.String(),
			DimensionID:  d.DimensionID.String(),
			Level:        d.Level,
		})
	}

	writeJSON(w, http.StatusCreated, d)
}
