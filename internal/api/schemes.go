package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Leanline-Systems/Gemba/internal/events"
	"github.com/Leanline-Systems/Gemba/internal/scoring"
	"github.com/Leanline-Systems/Gemba/internal/store"
)

type SchemesHandler struct {
	store         store.Store
	events        events.Client
	weightEpsilon float64
}

func NewSchemesHandler(s store.Store, ev events.Client, weightEpsilon float64) *SchemesHandler {
	return &SchemesHandler{store: s, events: ev, weightEpsilon: weightEpsilon}
}

type createSchemeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsDefault   bool   `json:"is_default"`
}

// Create handles POST /api/v1/schemes. New schemes start with equal
// weights over the active taxonomy; use PUT /schemes/{id}/weights to
// replace them.
func (h *SchemesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSchemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	scheme := &store.WeightingScheme{
		Name:        req.Name,
		Description: req.Description,
		IsDefault:   req.IsDefault,
	}
	if err := h.store.CreateScheme(r.Context(), scheme); err != nil {
		writeStoreError(w, err)
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectSchemeCreated(scheme.ID.String()), events.SchemeEvent{
			SchemeID:  scheme.ID.String(),
			Name:      scheme.Name,
			IsDefault: scheme.IsDefault,
		})
	}

	writeJSON(w, http.StatusCreated, scheme)
}

// List handles GET /api/v1/schemes
func (h *SchemesHandler) List(w http.ResponseWriter, r *http.Request) {
	schemes, err := h.store.ListSchemes(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if schemes == nil {
		schemes = []*store.WeightingScheme{}
	}
	writeJSON(w, http.StatusOK, schemes)
}

// GetDefault handles GET /api/v1/schemes/default
func (h *SchemesHandler) GetDefault(w http.ResponseWriter, r *http.Request) {
	scheme, err := h.store.GetDefaultScheme(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scheme)
}

// Get handles GET /api/v1/schemes/{id}
func (h *SchemesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	scheme, err := h.store.GetScheme(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scheme)
}

// Delete handles DELETE /api/v1/schemes/{id}
func (h *SchemesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.store.SoftDeleteScheme(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectSchemeDeleted(id.String()), events.SchemeEvent{
			SchemeID: id.String(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type categoryWeightPayload struct {
	Weight     float64            `json:"weight"`
	Dimensions map[string]float64 `json:"dimensions,omitempty"`
}

type setWeightsRequest struct {
	Weights map[string]categoryWeightPayload `json:"weights"`
}

// SetWeights handles PUT /api/v1/schemes/{id}/weights
func (h *SchemesHandler) SetWeights(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req setWeightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	weights := make(store.WeightMap, len(req.Weights))
	for catKey, payload := range req.Weights {
		catID, err := uuid.Parse(catKey)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category id " + catKey})
			return
		}
		spec := store.CategoryWeightSpec{
			Weight:     payload.Weight,
			Dimensions: make(map[uuid.UUID]float64, len(payload.Dimensions)),
		}
		for dimKey, weight := range payload.Dimensions {
			dimID, err := uuid.Parse(dimKey)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dimension id " + dimKey})
				return
			}
			spec.Dimensions[dimID] = weight
		}
		weights[catID] = spec
	}

	if err := h.store.SetWeights(r.Context(), id, weights, h.weightEpsilon); err != nil {
		writeStoreError(w, err)
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectSchemeWeightsApplied(id.String()), events.SchemeEvent{
			SchemeID: id.String(),
		})
	}

	scheme, err := h.store.GetScheme(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scheme)
}

// SetDefault handles POST /api/v1/schemes/{id}/default
func (h *SchemesHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.store.SetDefaultScheme(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectSchemeDefaultSet(id.String()), events.SchemeEvent{
			SchemeID:  id.String(),
			IsDefault: true,
		})
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "default set"})
}

// Mismatches handles GET /api/v1/schemes/{id}/mismatches?sector_id=...
// It reports the scheme's weight entries referencing dimensions absent
// from the sector's template. Informational: such a scheme is still
// usable, with reduced effective coverage.
func (h *SchemesHandler) Mismatches(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	sectorID, err := uuid.Parse(r.URL.Query().Get("sector_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sector_id query parameter required"})
		return
	}

	scheme, err := h.store.GetScheme(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	template, err := h.store.ResolveTemplate(r.Context(), sectorID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	mismatches := scoring.FindMismatches(scheme, template)
	if len(mismatches) > 0 {
		ids := make([]uuid.UUID, len(mismatches))
		for i, m := range mismatches {
			ids[i] = m.DimensionID
		}
		names, err := h.store.GetDimensionNames(r.Context(), ids)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		for i := range mismatches {
			mismatches[i].DimensionName = names[mismatches[i].DimensionID]
		}
	}
	if mismatches == nil {
		mismatches = []scoring.Mismatch{}
	}
	writeJSON(w, http.StatusOK, mismatches)
}
