package store

import (
	"math"
	"sort"

	"github.com/google/uuid"
)

// Validate runs the pure structural checks on a weight map: at least one
// category, every weight in [0,1], category weights summing to 1 within
// epsilon, and each category's dimension weights likewise. Referential
// checks against the live taxonomy are the store's job.
func (w WeightMap) Validate(epsilon float64) error {
	if len(w) == 0 {
		return Validationf("at least one category weight required")
	}

	var catSum float64
	for _, spec := range w {
		if spec.Weight < 0 || spec.Weight > 1 {
			return Validationf("category weight %.4f out of range [0,1]", spec.Weight)
		}
		catSum += spec.Weight
	}
	if math.Abs(catSum-1.0) > epsilon {
		return Validationf("category weights must sum to 1: sum is %.2f, expected 1.00", catSum)
	}

	for _, catID := range w.SortedCategoryIDs() {
		spec := w[catID]
		if len(spec.Dimensions) == 0 {
			continue
		}
		var dimSum float64
		for _, dw := range spec.Dimensions {
			if dw < 0 || dw > 1 {
				return Validationf("dimension weight %.4f out of range [0,1] in category %s", dw, catID)
			}
			dimSum += dw
		}
		if math.Abs(dimSum-1.0) > epsilon {
			return Validationf("dimension weights in category %s sum to %.2f, expected 1.00", catID, dimSum)
		}
	}
	return nil
}

// SortedCategoryIDs returns the map's category ids in a stable order so
// validation errors and writes are deterministic.
func (w WeightMap) SortedCategoryIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(w))
	for id := range w {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}
