package events

type DescriptorEvent struct {
	DescriptorID string `json:"descriptor_id"`
	SectorID     string `json:"sector_id"`
	DimensionID  string `json:"dimension_id"`
	Level        int    `json:"level"`
}

type SchemeEvent struct {
	SchemeID  string `json:"scheme_id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

type AssessmentScoredEvent struct {
	AssessmentID         string   `json:"assessment_id"`
	CompanyID            string   `json:"company_id"`
	WeightedAverageScore *float64 `json:"weighted_average_score"`
	CalculationUsed      string   `json:"calculation_used"`
}

type AssessmentStatusEvent struct {
	AssessmentID string `json:"assessment_id"`
	Status       string `json:"status"`
}
