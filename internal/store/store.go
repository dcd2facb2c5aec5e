package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AssessmentStatus string

const (
	StatusDraft     AssessmentStatus = "draft"
	StatusSubmitted AssessmentStatus = "submitted"
	StatusReviewed  AssessmentStatus = "reviewed"
)

type CalculationMethod string

const (
	MethodWeighted   CalculationMethod = "weighted"
	MethodRawAverage CalculationMethod = "raw_average"
	MethodNoScores   CalculationMethod = "no_scores"
)

// MinLevel and MaxLevel bound the maturity scale for descriptors and scores.
const (
	MinLevel = 1
	MaxLevel = 5
)

type Sector struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Category struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Dimension is a single scorable axis. CategoryID is nullable to allow
// transitional states while a taxonomy is being reorganized.
type Dimension struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// MaturityDescriptor defines what a given level means for a dimension
// within a sector. At most one active descriptor exists per
// (sector, dimension, level).
type MaturityDescriptor struct {
	ID          uuid.UUID `json:"id"`
	SectorID    uuid.UUID `json:"sector_id"`
	DimensionID uuid.UUID `json:"dimension_id"`
	Level       int       `json:"level"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ArchivedDescriptor is the archive-side record of a soft-deleted
// descriptor, keyed by the original descriptor id so it can be restored.
type ArchivedDescriptor struct {
	OriginalID  uuid.UUID `json:"original_id"`
	SectorID    uuid.UUID `json:"sector_id"`
	DimensionID uuid.UUID `json:"dimension_id"`
	Level       int       `json:"level"`
	Description string    `json:"description"`
	DeletedAt   time.Time `json:"deleted_at"`
}

// TemplateDimension is a template entry enriched with display names.
type TemplateDimension struct {
	DimensionID  uuid.UUID  `json:"dimension_id"`
	Name         string     `json:"name"`
	CategoryID   *uuid.UUID `json:"category_id,omitempty"`
	CategoryName string     `json:"category_name,omitempty"`
}

type WeightingScheme struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	IsDefault       bool              `json:"is_default"`
	CategoryWeights []*CategoryWeight `json:"category_weights,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type CategoryWeight struct {
	ID               uuid.UUID          `json:"id"`
	SchemeID         uuid.UUID          `json:"scheme_id"`
	CategoryID       uuid.UUID          `json:"category_id"`
	Weight           float64            `json:"weight"`
	DimensionWeights []*DimensionWeight `json:"dimension_weights,omitempty"`
}

type DimensionWeight struct {
	ID               uuid.UUID `json:"id"`
	CategoryWeightID uuid.UUID `json:"category_weight_id"`
	DimensionID      uuid.UUID `json:"dimension_id"`
	Weight           float64   `json:"weight"`
}

// WeightMap is the write-side shape for SetWeights: category id → weight
// plus that category's dimension weights.
type WeightMap map[uuid.UUID]CategoryWeightSpec

type CategoryWeightSpec struct {
	Weight     float64               `json:"weight"`
	Dimensions map[uuid.UUID]float64 `json:"dimensions"`
}

type Company struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	SectorID   uuid.UUID `json:"sector_id"`
	Department string    `json:"department,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Assessment struct {
	ID                   uuid.UUID         `json:"id"`
	CompanyID            uuid.UUID         `json:"company_id"`
	Department           string            `json:"department,omitempty"`
	ExpertID             string            `json:"expert_id"`
	Status               AssessmentStatus  `json:"status"`
	WeightingSchemeID    *uuid.UUID        `json:"weighting_scheme_id,omitempty"`
	WeightedAverageScore *float64          `json:"weighted_average_score,omitempty"`
	CalculationUsed      CalculationMethod `json:"calculation_used"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

type Score struct {
	ID           uuid.UUID `json:"id"`
	AssessmentID uuid.UUID `json:"assessment_id"`
	DimensionID  uuid.UUID `json:"dimension_id"`
	Level        int       `json:"level"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type AssessmentFilter struct {
	CompanyID *uuid.UUID
	Status    *AssessmentStatus
	ExpertID  string
	Limit     int
	Offset    int
}

// AggregateFn reduces raw per-dimension levels plus an optional weighting
// scheme into a single value and the calculation method used. The store
// calls it inside the transaction that persists the derived fields so the
// stored score never drifts from the stored inputs.
type AggregateFn func(scores map[uuid.UUID]int, scheme *WeightingScheme, template map[uuid.UUID]bool) (*float64, CalculationMethod)

type Store interface {
	// Taxonomy
	CreateSector(ctx context.Context, s *Sector) error
	ListSectors(ctx context.Context) ([]*Sector, error)
	SoftDeleteSector(ctx context.Context, id uuid.UUID) error

	CreateCategory(ctx context.Context, c *Category) error
	ListCategories(ctx context.Context) ([]*Category, error)
	SoftDeleteCategory(ctx context.Context, id uuid.UUID) error

	CreateDimension(ctx context.Context, d *Dimension) error
	ListDimensions(ctx context.Context) ([]*Dimension, error)
	SoftDeleteDimension(ctx context.Context, id uuid.UUID) error
	GetDimensionNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)

	// Descriptors
	UpsertDescriptor(ctx context.Context, d *MaturityDescriptor) error
	SoftDeleteDescriptor(ctx context.Context, id uuid.UUID) error
	RestoreDescriptor(ctx context.Context, originalID uuid.UUID) (*MaturityDescriptor, error)
	ListDescriptors(ctx context.Context, sectorID uuid.UUID) ([]*MaturityDescriptor, error)

	// Template resolution
	ResolveTemplate(ctx context.Context, sectorID uuid.UUID) (map[uuid.UUID]bool, error)
	ListTemplate(ctx context.Context, sectorID uuid.UUID) ([]*TemplateDimension, error)

	// Weighting schemes
	CreateScheme(ctx context.Context, s *WeightingScheme) error
	GetScheme(ctx context.Context, id uuid.UUID) (*WeightingScheme, error)
	GetDefaultScheme(ctx context.Context) (*WeightingScheme, error)
	ListSchemes(ctx context.Context) ([]*WeightingScheme, error)
	SetWeights(ctx context.Context, schemeID uuid.UUID, weights WeightMap, epsilon float64) error
	SetDefaultScheme(ctx context.Context, id uuid.UUID) error
	SoftDeleteScheme(ctx context.Context, id uuid.UUID) error

	// Companies
	CreateCompany(ctx context.Context, c *Company) error
	GetCompanySector(ctx context.Context, companyID uuid.UUID) (uuid.UUID, error)

	// Assessments
	CreateAssessment(ctx context.Context, a *Assessment) error
	GetAssessment(ctx context.Context, id uuid.UUID) (*Assessment, error)
	ListAssessments(ctx context.Context, filter AssessmentFilter) ([]*Assessment, error)
	ListScores(ctx context.Context, assessmentID uuid.UUID) ([]*Score, error)
	UpsertScore(ctx context.Context, assessmentID uuid.UUID, s *Score, aggregate AggregateFn) (*Assessment, error)
	AssignScheme(ctx context.Context, assessmentID uuid.UUID, schemeID *uuid.UUID, aggregate AggregateFn) (*Assessment, error)
	TransitionAssessment(ctx context.Context, id uuid.UUID, next AssessmentStatus) (*Assessment, error)

	Close() error
}
