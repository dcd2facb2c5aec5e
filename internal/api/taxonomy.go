package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Leanline-Systems/Gemba/internal/store"
)

type TaxonomyHandler struct {
	store store.Store
}

func NewTaxonomyHandler(s store.Store) *TaxonomyHandler {
	return &TaxonomyHandler{store: s}
}

type createNamedRequest struct {
	Name string `json:"name"`
}

// CreateSector handles POST /api/v1/sectors
func (h *TaxonomyHandler) CreateSector(w http.ResponseWriter, r *http.Request) {
	var req createNamedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	sector := &store.Sector{Name: req.Name}
	if err := h.store.CreateSector(r.Context(), sector); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sector)
}

// ListSectors handles GET /api/v1/sectors
func (h *TaxonomyHandler) ListSectors(w http.ResponseWriter, r *http.Request) {
	sectors, err := h.store.ListSectors(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if sectors == nil {
		sectors = []*store.Sector{}
	}
	writeJSON(w, http.StatusOK, sectors)
}

// DeleteSector handles DELETE /api/v1/sectors/{id}
func (h *TaxonomyHandler) DeleteSector(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if err := h.store.SoftDeleteSector(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// CreateCategory handles POST /api/v1/categories
func (h *TaxonomyHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createNamedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	category := &store.Category{Name: req.Name}
	if err := h.store.CreateCategory(r.Context(), category); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// ListCategories handles GET /api/v1/categories
func (h *TaxonomyHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if categories == nil {
		categories = []*store.Category{}
	}
	writeJSON(w, http.StatusOK, categories)
}

// DeleteCategory handles DELETE /api/v1/categories/{id}
func (h *TaxonomyHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if err := h.store.SoftDeleteCategory(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type createDimensionRequest struct {
	Name       string `json:"name"`
	CategoryID string `json:"category_id,omitempty"`
}

// CreateDimension handles POST /api/v1/dimensions
func (h *TaxonomyHandler) CreateDimension(w http.ResponseWriter, r *http.Request) {
	var req createDimensionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}

	dim := &store.Dimension{Name: req.Name}
	if req.CategoryID != "" {
		catID, err := uuid.Parse(req.CategoryID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid category_id"})
			return
		}
		dim.CategoryID = &catID
	}

	if err := h.store.CreateDimension(r.Context(), dim); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dim)
}

// ListDimensions handles GET /api/v1/dimensions
func (h *TaxonomyHandler) ListDimensions(w http.ResponseWriter, r *http.Request) {
	dims, err := h.store.ListDimensions(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if dims == nil {
		dims = []*store.Dimension{}
	}
	writeJSON(w, http.StatusOK, dims)
}

// DeleteDimension handles DELETE /api/v1/dimensions/{id}
func (h *TaxonomyHandler) DeleteDimension(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if err := h.store.SoftDeleteDimension(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type createCompanyRequest struct {
	Name       string `json:"name"`
	SectorID   string `json:"sector_id"`
	Department string `json:"department,omitempty"`
}

// CreateCompany handles POST /api/v1/companies
func (h *TaxonomyHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name required"})
		return
	}
	sectorID, err := uuid.Parse(req.SectorID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid sector_id"})
		return
	}

	company := &store.Company{Name: req.Name, SectorID: sectorID, Department: req.Department}
	if err := h.store.CreateCompany(r.Context(), company); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, company)
}
