package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Leanline-Systems/Gemba/internal/store"
)

// mockStore is an in-memory Store with the same visible semantics as the
// Postgres implementation, minus transactions.
type mockStore struct {
	sectors     map[uuid.UUID]*store.Sector
	categories  map[uuid.UUID]*store.Category
	dimensions  map[uuid.UUID]*store.Dimension
	descriptors map[uuid.UUID]*store.MaturityDescriptor
	archived    map[uuid.UUID]*store.ArchivedDescriptor
	schemes     map[uuid.UUID]*store.WeightingScheme
	companies   map[uuid.UUID]*store.Company
	assessments map[uuid.UUID]*store.Assessment
	scores      map[uuid.UUID]map[uuid.UUID]*store.Score
}

func newMockStore() *mockStore {
	return &mockStore{
		sectors:     make(map[uuid.UUID]*store.Sector),
		categories:  make(map[uuid.UUID]*store.Category),
		dimensions:  make(map[uuid.UUID]*store.Dimension),
		descriptors: make(map[uuid.UUID]*store.MaturityDescriptor),
		archived:    make(map[uuid.UUID]*store.ArchivedDescriptor),
		schemes:     make(map[uuid.UUID]*store.WeightingScheme),
		companies:   make(map[uuid.UUID]*store.Company),
		assessments: make(map[uuid.UUID]*store.Assessment),
		scores:      make(map[uuid.UUID]map[uuid.UUID]*store.Score),
	}
}

// Taxonomy

func (m *mockStore) CreateSector(_ context.Context, s *store.Sector) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	m.sectors[s.ID] = s
	return nil
}

func (m *mockStore) ListSectors(_ context.Context) ([]*store.Sector, error) {
	var out []*store.Sector
	for _, s := range m.sectors {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockStore) SoftDeleteSector(_ context.Context, id uuid.UUID) error {
	if _, ok := m.sectors[id]; !ok {
		return &store.NotFoundError{Entity: "sector", ID: id}
	}
	delete(m.sectors, id)
	return nil
}

func (m *mockStore) CreateCategory(_ context.Context, c *store.Category) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	m.categories[c.ID] = c
	return nil
}

func (m *mockStore) ListCategories(_ context.Context) ([]*store.Category, error) {
	var out []*store.Category
	for _, c := range m.categories {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockStore) SoftDeleteCategory(_ context.Context, id uuid.UUID) error {
	if _, ok := m.categories[id]; !ok {
		return &store.NotFoundError{Entity: "category", ID: id}
	}
	delete(m.categories, id)
	return nil
}

func (m *mockStore) CreateDimension(_ context.Context, d *store.Dimension) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	m.dimensions[d.ID] = d
	return nil
}

func (m *mockStore) ListDimensions(_ context.Context) ([]*store.Dimension, error) {
	var out []*store.Dimension
	for _, d := range m.dimensions {
		out = append(out, d)
	}
	return out, nil
}

func (m *mockStore) SoftDeleteDimension(_ context.Context, id uuid.UUID) error {
	if _, ok := m.dimensions[id]; !ok {
		return &store.NotFoundError{Entity: "dimension", ID: id}
	}
	delete(m.dimensions, id)
	return nil
}

func (m *mockStore) GetDimensionNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string)
	for _, id := range ids {
		if d, ok := m.dimensions[id]; ok {
			out[id] = d.Name
		}
	}
	return out, nil
}

// Descriptors

func (m *mockStore) findSlot(sectorID, dimensionID uuid.UUID, level int) *store.MaturityDescriptor {
	for _, d := range m.descriptors {
		if d.SectorID == sectorID && d.DimensionID == dimensionID && d.Level == level {
			return d
		}
	}
	return nil
}

func (m *mockStore) UpsertDescriptor(_ context.Context, d *store.MaturityDescriptor) error {
	if d.Level < store.MinLevel || d.Level > store.MaxLevel {
		return store.Validationf("level %d out of range [%d,%d]", d.Level, store.MinLevel, store.MaxLevel)
	}
	if d.Description == "" {
		return store.Validationf("description required")
	}
	if _, ok := m.sectors[d.SectorID]; !ok {
		return &store.NotFoundError{Entity: "sector", ID: d.SectorID}
	}
	if _, ok := m.dimensions[d.DimensionID]; !ok {
		return &store.NotFoundError{Entity: "dimension", ID: d.DimensionID}
	}

	existing := m.findSlot(d.SectorID, d.DimensionID, d.Level)
	if existing == nil {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		d.CreatedAt = time.Now()
		d.UpdatedAt = d.CreatedAt
		m.descriptors[d.ID] = d
		return nil
	}
	if d.ID != uuid.Nil && d.ID != existing.ID {
		return &store.ConflictError{
			Entity:        "maturity descriptor",
			Constraint:    "slot already held by another descriptor",
			ConflictingID: existing.ID,
		}
	}
	existing.Description = d.Description
	existing.UpdatedAt = time.Now()
	*d = *existing
	return nil
}

func (m *mockStore) SoftDeleteDescriptor(_ context.Context, id uuid.UUID) error {
	d, ok := m.descriptors[id]
	if !ok {
		return &store.NotFoundError{Entity: "maturity descriptor", ID: id}
	}
	m.archived[id] = &store.ArchivedDescriptor{
		OriginalID:  id,
		SectorID:    d.SectorID,
		DimensionID: d.DimensionID,
		Level:       d.Level,
		Description: d.Description,
		DeletedAt:   time.Now(),
	}
	delete(m.descriptors, id)
	return nil
}

func (m *mockStore) RestoreDescriptor(_ context.Context, originalID uuid.UUID) (*store.MaturityDescriptor, error) {
	a, ok := m.archived[originalID]
	if !ok {
		return nil, &store.NotFoundError{Entity: "deleted descriptor", ID: originalID}
	}
	if existing := m.findSlot(a.SectorID, a.DimensionID, a.Level); existing != nil {
		return nil, &store.ConflictError{
			Entity:        "maturity descriptor",
			Constraint:    "slot was refilled after deletion",
			ConflictingID: existing.ID,
		}
	}
	d := &store.MaturityDescriptor{
		ID:          uuid.New(),
		SectorID:    a.SectorID,
		DimensionID: a.DimensionID,
		Level:       a.Level,
		Description: a.Description,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.descriptors[d.ID] = d
	delete(m.archived, originalID)
	return d, nil
}

func (m *mockStore) ListDescriptors(_ context.Context, sectorID uuid.UUID) ([]*store.MaturityDescriptor, error) {
	var out []*store.MaturityDescriptor
	for _, d := range m.descriptors {
		if d.SectorID == sectorID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DimensionID != out[j].DimensionID {
			return out[i].DimensionID.String() < out[j].DimensionID.String()
		}
		return out[i].Level < out[j].Level
	})
	return out, nil
}

func (m *mockStore) ResolveTemplate(_ context.Context, sectorID uuid.UUID) (map[uuid.UUID]bool, error) {
	template := make(map[uuid.UUID]bool)
	for _, d := range m.descriptors {
		if d.SectorID != sectorID {
			continue
		}
		if _, ok := m.dimensions[d.DimensionID]; ok {
			template[d.DimensionID] = true
		}
	}
	return template, nil
}

func (m *mockStore) ListTemplate(_ context.Context, sectorID uuid.UUID) ([]*store.TemplateDimension, error) {
	template, _ := m.ResolveTemplate(context.Background(), sectorID)
	var out []*store.TemplateDimension
	for dimID := range template {
		dim := m.dimensions[dimID]
		td := &store.TemplateDimension{DimensionID: dimID, Name: dim.Name, CategoryID: dim.CategoryID}
		if dim.CategoryID != nil {
			if cat, ok := m.categories[*dim.CategoryID]; ok {
				td.CategoryName = cat.Name
			}
		}
		out = append(out, td)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Weighting schemes

func (m *mockStore) CreateScheme(_ context.Context, s *store.WeightingScheme) error {
	for _, other := range m.schemes {
		if other.Name == s.Name {
			return &store.ConflictError{Entity: "weighting scheme", Constraint: "name already in use"}
		}
	}
	if s.IsDefault {
		for _, other := range m.schemes {
			other.IsDefault = false
		}
	}
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt

	var categoryIDs []uuid.UUID
	for id := range m.categories {
		categoryIDs = append(categoryIDs, id)
	}
	sort.Slice(categoryIDs, func(i, j int) bool { return categoryIDs[i].String() < categoryIDs[j].String() })
	if len(categoryIDs) > 0 {
		catWeight := 1.0 / float64(len(categoryIDs))
		for _, catID := range categoryIDs {
			cw := &store.CategoryWeight{ID: uuid.New(), SchemeID: s.ID, CategoryID: catID, Weight: catWeight}
			var dims []uuid.UUID
			for dimID, d := range m.dimensions {
				if d.CategoryID != nil && *d.CategoryID == catID {
					dims = append(dims, dimID)
				}
			}
			sort.Slice(dims, func(i, j int) bool { return dims[i].String() < dims[j].String() })
			if len(dims) > 0 {
				dimWeight := 1.0 / float64(len(dims))
				for _, dimID := range dims {
					cw.DimensionWeights = append(cw.DimensionWeights, &store.DimensionWeight{
						ID: uuid.New(), CategoryWeightID: cw.ID, DimensionID: dimID, Weight: dimWeight,
					})
				}
			}
			s.CategoryWeights = append(s.CategoryWeights, cw)
		}
	}

	m.schemes[s.ID] = s
	return nil
}

func (m *mockStore) GetScheme(_ context.Context, id uuid.UUID) (*store.WeightingScheme, error) {
	s, ok := m.schemes[id]
	if !ok {
		return nil, &store.NotFoundError{Entity: "weighting scheme", ID: id}
	}
	return s, nil
}

func (m *mockStore) GetDefaultScheme(_ context.Context) (*store.WeightingScheme, error) {
	for _, s := range m.schemes {
		if s.IsDefault {
			return s, nil
		}
	}
	return nil, &store.NotFoundError{Entity: "default weighting scheme"}
}

func (m *mockStore) ListSchemes(_ context.Context) ([]*store.WeightingScheme, error) {
	var out []*store.WeightingScheme
	for _, s := range m.schemes {
		out = append(out, s)
	}
	return out, nil
}

func (m *mockStore) SetWeights(_ context.Context, schemeID uuid.UUID, weights store.WeightMap, epsilon float64) error {
	if err := weights.Validate(epsilon); err != nil {
		return err
	}
	s, ok := m.schemes[schemeID]
	if !ok {
		return &store.NotFoundError{Entity: "weighting scheme", ID: schemeID}
	}
	for _, catID := range weights.SortedCategoryIDs() {
		if _, ok := m.categories[catID]; !ok {
			return store.Validationf("unknown or deleted category %s", catID)
		}
		for dimID := range weights[catID].Dimensions {
			d, ok := m.dimensions[dimID]
			if !ok {
				return store.Validationf("unknown or deleted dimension %s in category %s", dimID, catID)
			}
			if d.CategoryID == nil || *d.CategoryID != catID {
				return store.Validationf("dimension %s does not belong to category %s", dimID, catID)
			}
		}
	}

	s.CategoryWeights = nil
	for _, catID := range weights.SortedCategoryIDs() {
		spec := weights[catID]
		cw := &store.CategoryWeight{ID: uuid.New(), SchemeID: schemeID, CategoryID: catID, Weight: spec.Weight}
		var dimIDs []uuid.UUID
		for dimID := range spec.Dimensions {
			dimIDs = append(dimIDs, dimID)
		}
		sort.Slice(dimIDs, func(i, j int) bool { return dimIDs[i].String() < dimIDs[j].String() })
		for _, dimID := range dimIDs {
			cw.DimensionWeights = append(cw.DimensionWeights, &store.DimensionWeight{
				ID: uuid.New(), CategoryWeightID: cw.ID, DimensionID: dimID, Weight: spec.Dimensions[dimID],
			})
		}
		s.CategoryWeights = append(s.CategoryWeights, cw)
	}
	s.UpdatedAt = time.Now()
	return nil
}

func (m *mockStore) SetDefaultScheme(_ context.Context, id uuid.UUID) error {
	target, ok := m.schemes[id]
	if !ok {
		return &store.NotFoundError{Entity: "weighting scheme", ID: id}
	}
	for _, s := range m.schemes {
		s.IsDefault = false
	}
	target.IsDefault = true
	return nil
}

func (m *mockStore) SoftDeleteScheme(_ context.Context, id uuid.UUID) error {
	s, ok := m.schemes[id]
	if !ok {
		return &store.NotFoundError{Entity: "weighting scheme", ID: id}
	}
	if s.IsDefault {
		return &store.InvalidOperationError{Reason: "cannot delete the default weighting scheme"}
	}
	delete(m.schemes, id)
	return nil
}

// Companies

func (m *mockStore) CreateCompany(_ context.Context, c *store.Company) error {
	if _, ok := m.sectors[c.SectorID]; !ok {
		return &store.NotFoundError{Entity: "sector", ID: c.SectorID}
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.companies[c.ID] = c
	return nil
}

func (m *mockStore) GetCompanySector(_ context.Context, companyID uuid.UUID) (uuid.UUID, error) {
	c, ok := m.companies[companyID]
	if !ok {
		return uuid.Nil, &store.NotFoundError{Entity: "company", ID: companyID}
	}
	return c.SectorID, nil
}

// Assessments

func (m *mockStore) CreateAssessment(_ context.Context, a *store.Assessment) error {
	if a.ExpertID == "" {
		return store.Validationf("expert_id required")
	}
	if _, ok := m.companies[a.CompanyID]; !ok {
		return &store.NotFoundError{Entity: "company", ID: a.CompanyID}
	}
	if a.WeightingSchemeID != nil {
		if _, ok := m.schemes[*a.WeightingSchemeID]; !ok {
			return &store.NotFoundError{Entity: "weighting scheme", ID: *a.WeightingSchemeID}
		}
	}
	a.ID = uuid.New()
	a.Status = store.StatusDraft
	a.CalculationUsed = store.MethodNoScores
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.assessments[a.ID] = a
	m.scores[a.ID] = make(map[uuid.UUID]*store.Score)
	return nil
}

func (m *mockStore) GetAssessment(_ context.Context, id uuid.UUID) (*store.Assessment, error) {
	a, ok := m.assessments[id]
	if !ok {
		return nil, &store.NotFoundError{Entity: "assessment", ID: id}
	}
	return a, nil
}

func (m *mockStore) ListAssessments(_ context.Context, filter store.AssessmentFilter) ([]*store.Assessment, error) {
	var out []*store.Assessment
	for _, a := range m.assessments {
		if filter.CompanyID != nil && a.CompanyID != *filter.CompanyID {
			continue
		}
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.ExpertID != "" && a.ExpertID != filter.ExpertID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockStore) ListScores(_ context.Context, assessmentID uuid.UUID) ([]*store.Score, error) {
	var out []*store.Score
	for _, sc := range m.scores[assessmentID] {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DimensionID.String() < out[j].DimensionID.String() })
	return out, nil
}

func (m *mockStore) recompute(a *store.Assessment, aggregate store.AggregateFn) {
	if aggregate == nil {
		return
	}
	levels := make(map[uuid.UUID]int)
	for dimID, sc := range m.scores[a.ID] {
		levels[dimID] = sc.Level
	}
	var scheme *store.WeightingScheme
	if a.WeightingSchemeID != nil {
		scheme = m.schemes[*a.WeightingSchemeID]
	}
	sectorID := m.companies[a.CompanyID].SectorID
	template, _ := m.ResolveTemplate(context.Background(), sectorID)
	a.WeightedAverageScore, a.CalculationUsed = aggregate(levels, scheme, template)
	a.UpdatedAt = time.Now()
}

func (m *mockStore) UpsertScore(_ context.Context, assessmentID uuid.UUID, sc *store.Score, aggregate store.AggregateFn) (*store.Assessment, error) {
	if sc.Level < store.MinLevel || sc.Level > store.MaxLevel {
		return nil, store.Validationf("level %d out of range [%d,%d]", sc.Level, store.MinLevel, store.MaxLevel)
	}
	a, ok := m.assessments[assessmentID]
	if !ok {
		return nil, &store.NotFoundError{Entity: "assessment", ID: assessmentID}
	}
	if a.Status != store.StatusDraft {
		return nil, &store.InvalidOperationError{Reason: "scores are immutable once " + string(a.Status)}
	}
	sectorID := m.companies[a.CompanyID].SectorID
	template, _ := m.ResolveTemplate(context.Background(), sectorID)
	if !template[sc.DimensionID] {
		return nil, store.Validationf("dimension %s is not assessable for this sector", sc.DimensionID)
	}

	if existing, ok := m.scores[assessmentID][sc.DimensionID]; ok {
		existing.Level = sc.Level
		existing.Notes = sc.Notes
		existing.UpdatedAt = time.Now()
	} else {
		sc.ID = uuid.New()
		sc.AssessmentID = assessmentID
		sc.CreatedAt = time.Now()
		sc.UpdatedAt = sc.CreatedAt
		m.scores[assessmentID][sc.DimensionID] = sc
	}
	m.recompute(a, aggregate)
	return a, nil
}

func (m *mockStore) AssignScheme(_ context.Context, assessmentID uuid.UUID, schemeID *uuid.UUID, aggregate store.AggregateFn) (*store.Assessment, error) {
	a, ok := m.assessments[assessmentID]
	if !ok {
		return nil, &store.NotFoundError{Entity: "assessment", ID: assessmentID}
	}
	if a.Status == store.StatusReviewed {
		return nil, &store.InvalidOperationError{Reason: "cannot reassign scheme on a reviewed assessment"}
	}
	if schemeID != nil {
		if _, ok := m.schemes[*schemeID]; !ok {
			return nil, &store.NotFoundError{Entity: "weighting scheme", ID: *schemeID}
		}
	}
	a.WeightingSchemeID = schemeID
	m.recompute(a, aggregate)
	return a, nil
}

func (m *mockStore) TransitionAssessment(_ context.Context, id uuid.UUID, next store.AssessmentStatus) (*store.Assessment, error) {
	a, ok := m.assessments[id]
	if !ok {
		return nil, &store.NotFoundError{Entity: "assessment", ID: id}
	}
	valid := (a.Status == store.StatusDraft && next == store.StatusSubmitted) ||
		(a.Status == store.StatusSubmitted && next == store.StatusReviewed)
	if !valid {
		return nil, &store.InvalidOperationError{Reason: "cannot transition from " + string(a.Status) + " to " + string(next)}
	}
	a.Status = next
	a.UpdatedAt = time.Now()
	return a, nil
}

func (m *mockStore) Close() error { return nil }

func setupTestRouter() (http.Handler, *mockStore) {
	ms := newMockStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(ms, nil, 0.01, "test-token", logger)
	return router, ms
}

// Seed helpers insert taxonomy directly, bypassing the API.

func (m *mockStore) seedSector(name string) uuid.UUID {
	s := &store.Sector{Name: name}
	_ = m.CreateSector(context.Background(), s)
	return s.ID
}

func (m *mockStore) seedCategory(name string) uuid.UUID {
	c := &store.Category{Name: name}
	_ = m.CreateCategory(context.Background(), c)
	return c.ID
}

func (m *mockStore) seedDimension(name string, categoryID *uuid.UUID) uuid.UUID {
	d := &store.Dimension{Name: name, CategoryID: categoryID}
	_ = m.CreateDimension(context.Background(), d)
	return d.ID
}

func (m *mockStore) seedDescriptor(sectorID, dimensionID uuid.UUID, level int, text string) uuid.UUID {
	d := &store.MaturityDescriptor{SectorID: sectorID, DimensionID: dimensionID, Level: level, Description: text}
	_ = m.UpsertDescriptor(context.Background(), d)
	return d.ID
}

func (m *mockStore) seedCompany(name string, sectorID uuid.UUID) uuid.UUID {
	c := &store.Company{Name: name, SectorID: sectorID}
	_ = m.CreateCompany(context.Background(), c)
	return c.ID
}

func adminRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer test-token")
	req.Header.Set("Content-Type", "application/json")
	return req
}

func expertRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("X-Expert-ID", "expert-1")
	req.Header.Set("Content-Type", "application/json")
	return req
}
