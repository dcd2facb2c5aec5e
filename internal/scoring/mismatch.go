package scoring

import (
	"sort"

	"github.com/google/uuid"

	"github.com/Leanline-Systems/Gemba/internal/store"
)

// Mismatch is a dimension a scheme references that is absent from a
// sector's template. DimensionName is filled in by callers with access to
// the taxonomy.
type Mismatch struct {
	DimensionID   uuid.UUID `json:"dimension_id"`
	DimensionName string    `json:"dimension_name,omitempty"`
}

// FindMismatches returns the scheme's referenced dimensions that are not
// in the template, deduplicated and ordered by id. A scheme with
// mismatches is still usable for scoring; the aggregator simply never
// sees scores for those dimensions.
func FindMismatches(scheme *store.WeightingScheme, template map[uuid.UUID]bool) []Mismatch {
	if scheme == nil {
		return nil
	}
	seen := make(map[uuid.UUID]bool)
	var mismatches []Mismatch
	for _, cw := range scheme.CategoryWeights {
		for _, dw := range cw.DimensionWeights {
			if template[dw.DimensionID] || seen[dw.DimensionID] {
				continue
			}
			seen[dw.DimensionID] = true
			mismatches = append(mismatches, Mismatch{DimensionID: dw.DimensionID})
		}
	}
	sort.Slice(mismatches, func(i, j int) bool {
		return mismatches[i].DimensionID.String() < mismatches[j].DimensionID.String()
	})
	return mismatches
}
