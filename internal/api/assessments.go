package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Leanline-Systems/Gemba/internal/events"
	"github.com/Leanline-Systems/Gemba/internal/scoring"
	"github.com/Leanline-Systems/Gemba/internal/store"
)

type AssessmentsHandler struct {
	store  store.Store
	events events.Client
}

func NewAssessmentsHandler(s store.Store, ev events.Client) *AssessmentsHandler {
	return &AssessmentsHandler{store: s, events: ev}
}

// displayAssessment returns a shallow copy with the weighted score rounded
// to 2 decimal places. Stored values keep full precision.
func displayAssessment(a *store.Assessment) *store.Assessment {
	out := *a
	if a.WeightedAverageScore != nil {
		rounded := scoring.Round2(*a.WeightedAverageScore)
		out.WeightedAverageScore = &rounded
	}
	return &out
}

type createAssessmentRequest struct {
	CompanyID         string `json:"company_id"`
	Department        string `json:"department,omitempty"`
	WeightingSchemeID string `json:"weighting_scheme_id,omitempty"`
}

// Create handles POST /api/v1/assessments
func (h *AssessmentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid company_id"})
		return
	}

	a := &store.Assessment{
		CompanyID:  companyID,
		Department: req.Department,
		ExpertID:   r.Header.Get("X-Expert-ID"),
	}
	if req.WeightingSchemeID != "" {
		schemeID, err := uuid.Parse(req.WeightingSchemeID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid weighting_scheme_id"})
			return
		}
		a.WeightingSchemeID = &schemeID
	}

	if err := h.store.CreateAssessment(r.Context(), a); err != nil {
		writeStoreError(w, err)
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectAssessmentCreated(a.ID.String()), events.AssessmentStatusEvent{
			AssessmentID: a.ID.String(),
			Status:       string(a.Status),
		})
	}

	writeJSON(w, http.StatusCreated, a)
}

// List handles GET /api/v1/assessments
func (h *AssessmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := store.AssessmentFilter{
		ExpertID: r.URL.Query().Get("expert_id"),
	}
	if s := r.URL.Query().Get("company_id"); s != "" {
		companyID, err := uuid.Parse(s)
		if err == nil {
			filter.CompanyID = &companyID
		}
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := store.AssessmentStatus(s)
		filter.Status = &status
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			filter.Limit = n
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			filter.Offset = n
		}
	}

	assessments, err := h.store.ListAssessments(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]*store.Assessment, 0, len(assessments))
	for _, a := range assessments {
		out = append(out, displayAssessment(a))
	}
	writeJSON(w, http.StatusOK, out)
}

type assessmentResponse struct {
	*store.Assessment
	Scores []*store.Score `json:"scores"`
}

// Get handles GET /api/v1/assessments/{id}
func (h *AssessmentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	a, err := h.store.GetAssessment(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	scores, err := h.store.ListScores(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if scores == nil {
		scores = []*store.Score{}
	}
	writeJSON(w, http.StatusOK, assessmentResponse{Assessment: displayAssessment(a), Scores: scores})
}

type upsertScoreRequest struct {
	Level int    `json:"level"`
	Notes string `json:"notes,omitempty"`
}

// UpsertScore handles PUT /api/v1/assessments/{id}/scores/{dimensionID}.
// The derived weighted score is recomputed in the same transaction that
// writes the score.
func (h *AssessmentsHandler) UpsertScore(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	dimensionID, err := uuid.Parse(chi.URLParam(r, "dimensionID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid dimension id"})
		return
	}

	var req upsertScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	score := &store.Score{DimensionID: dimensionID, Level: req.Level, Notes: req.Notes}
	a, err := h.store.UpsertScore(r.Context(), id, score, scoring.StoreAggregate)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectAssessmentScored(a.ID.String()), events.AssessmentScoredEvent{
			AssessmentID:         a.ID.String(),
			CompanyID:            a.CompanyID.String(),
			WeightedAverageScore: a.WeightedAverageScore,
			CalculationUsed:      string(a.CalculationUsed),
		})
	}

	writeJSON(w, http.StatusOK, displayAssessment(a))
}

type assignSchemeRequest struct {
	WeightingSchemeID string `json:"weighting_scheme_id,omitempty"`
}

// AssignScheme handles POST /api/v1/assessments/{id}/scheme. An empty
// weighting_scheme_id clears the assignment and the score falls back to a
// raw average.
func (h *AssessmentsHandler) AssignScheme(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req assignSchemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var schemeID *uuid.UUID
	if req.WeightingSchemeID != "" {
		parsed, err := uuid.Parse(req.WeightingSchemeID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid weighting_scheme_id"})
			return
		}
		schemeID = &parsed
	}

	a, err := h.store.AssignScheme(r.Context(), id, schemeID, scoring.StoreAggregate)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if h.events != nil {
		_ = h.events.Publish(events.SubjectAssessmentScored(a.ID.String()), events.AssessmentScoredEvent{
			AssessmentID:         a.ID.String(),
			CompanyID:            a.CompanyID.String(),
			WeightedAverageScore: a.WeightedAverageScore,
			CalculationUsed:      string(a.CalculationUsed),
		})
	}

	writeJSON(w, http.StatusOK, displayAssessment(a))
}

// Submit handles POST /api/v1/assessments/{id}/submit
func (h *AssessmentsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, store.StatusSubmitted, events.SubjectAssessmentSubmitted)
}

// Review handles POST /api/v1/assessments/{id}/review
func (h *AssessmentsHandler) Review(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, store.StatusReviewed, events.SubjectAssessmentReviewed)
}

func (h *AssessmentsHandler) transition(w http.ResponseWriter, r *http.Request, next store.AssessmentStatus, subject func(string) string) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	a, err := h.store.TransitionAssessment(r.Context(), id, next)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if h.events != nil {
		_ = h.events.Publish(subject(a.ID.String()), events.AssessmentStatusEvent{
			AssessmentID: a.ID.String(),
			Status:       string(a.Status),
		})
	}

	writeJSON(w, http.StatusOK, displayAssessment(a))
}
