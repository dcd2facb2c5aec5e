// Package scoring reduces raw per-dimension maturity levels into a single
// weighted organizational score. Everything here is pure: functions
// operate on already-fetched snapshots and never touch storage.
package scoring

import (
	"math"

	"github.com/google/uuid"

	"github.com/Leanline-Systems/Gemba/internal/store"
)

// Result is the output of a reduction. Value is nil only when Method is
// no_scores.
type Result struct {
	Value  *float64                `json:"value"`
	Method store.CalculationMethod `json:"method"`
}

// Aggregate reduces scores against an optional weighting scheme and a
// sector template. It is total: every input produces a Result with an
// explicit method, never an error.
//
// Scores outside the template are dropped before anything else. Categories
// with no scored dimension are excluded from the outer sum and their
// weight renormalized away, so a partial assessment is never penalized by
// phantom zeros. With no scheme, or a scheme whose references miss the
// scored set entirely, the result falls back to the plain mean.
func Aggregate(scores map[uuid.UUID]int, scheme *store.WeightingScheme, template map[uuid.UUID]bool) Result {
	filtered := make(map[uuid.UUID]float64, len(scores))
	for dimID, level := range scores {
		if template[dimID] {
			filtered[dimID] = float64(level)
		}
	}
	if len(filtered) == 0 {
		return Result{Method: store.MethodNoScores}
	}

	if scheme == nil || len(scheme.CategoryWeights) == 0 {
		v := mean(filtered)
		return Result{Value: &v, Method: store.MethodRawAverage}
	}

	var outerWeight, outerAcc float64
	covered := 0
	for _, cw := range scheme.CategoryWeights {
		var dimWeight, dimAcc float64
		for _, dw := range cw.DimensionWeights {
			if level, ok := filtered[dw.DimensionID]; ok {
				dimWeight += dw.Weight
				dimAcc += dw.Weight * level
			}
		}
		if dimWeight == 0 {
			// No scored dimension under this category; it contributes
			// nothing and its weight is not counted in the denominator.
			continue
		}
		categoryScore := dimAcc / dimWeight
		outerWeight += cw.Weight
		outerAcc += cw.Weight * categoryScore
		covered++
	}

	if covered == 0 || outerWeight == 0 {
		// Scheme is structurally unusable for this score set.
		v := mean(filtered)
		return Result{Value: &v, Method: store.MethodRawAverage}
	}

	v := outerAcc / outerWeight
	return Result{Value: &v, Method: store.MethodWeighted}
}

// StoreAggregate adapts Aggregate to the store's AggregateFn callback.
func StoreAggregate(scores map[uuid.UUID]int, scheme *store.WeightingScheme, template map[uuid.UUID]bool) (*float64, store.CalculationMethod) {
	r := Aggregate(scores, scheme, template)
	return r.Value, r.Method
}

// Round2 rounds to 2 decimal places for display. Stored values keep full
// precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func mean(values map[uuid.UUID]float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
