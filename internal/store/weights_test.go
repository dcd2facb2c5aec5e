package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func spec(weight float64, dims map[uuid.UUID]float64) CategoryWeightSpec {
	return CategoryWeightSpec{Weight: weight, Dimensions: dims}
}

func TestWeightMapValidate_Empty(t *testing.T) {
	err := WeightMap{}.Validate(0.01)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestWeightMapValidate_Valid(t *testing.T) {
	d1, d2 := uuid.New(), uuid.New()
	w := WeightMap{
		uuid.New(): spec(0.6, map[uuid.UUID]float64{d1: 0.7, d2: 0.3}),
		uuid.New(): spec(0.4, nil),
	}
	if err := w.Validate(0.01); err != nil {
		t.Fatalf("expected valid, got %v", err)
	}
}

func TestWeightMapValidate_WithinEpsilon(t *testing.T) {
	w := WeightMap{
		uuid.New(): spec(0.33, nil),
		uuid.New(): spec(0.33, nil),
		uuid.New(): spec(0.33, nil),
	}
	if err := w.Validate(0.01); err != nil {
		t.Fatalf("sum 0.99 should pass with epsilon 0.01, got %v", err)
	}
	if err := w.Validate(0.001); err == nil {
		t.Fatal("sum 0.99 should fail with epsilon 0.001")
	}
}

func TestWeightMapValidate_CategorySumOff(t *testing.T) {
	w := WeightMap{
		uuid.New(): spec(0.6, nil),
		uuid.New(): spec(0.6, nil),
	}
	err := w.Validate(0.01)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "category weights must sum to 1") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestWeightMapValidate_DimensionSumOff(t *testing.T) {
	d1, d2 := uuid.New(), uuid.New()
	w := WeightMap{
		uuid.New(): spec(1.0, map[uuid.UUID]float64{d1: 0.5, d2: 0.3}),
	}
	err := w.Validate(0.01)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "dimension weights in category") {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestWeightMapValidate_OutOfRange(t *testing.T) {
	w := WeightMap{
		uuid.New(): spec(1.5, nil),
		uuid.New(): spec(-0.5, nil),
	}
	if err := w.Validate(0.01); err == nil {
		t.Fatal("expected error for weight outside [0,1]")
	}
}

func TestSortedCategoryIDs_Stable(t *testing.T) {
	w := WeightMap{}
	for i := 0; i < 10; i++ {
		w[uuid.New()] = spec(0.1, nil)
	}
	first := w.SortedCategoryIDs()
	for i := 0; i < 5; i++ {
		again := w.SortedCategoryIDs()
		for j := range first {
			if first[j] != again[j] {
				t.Fatal("ordering is not stable")
			}
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i-1].String() >= first[i].String() {
			t.Fatal("ids are not sorted")
		}
	}
}

func TestErrorMessages(t *testing.T) {
	conflictID := uuid.New()
	ce := &ConflictError{Entity: "maturity descriptor", Constraint: "slot occupied", ConflictingID: conflictID}
	if !strings.Contains(ce.Error(), conflictID.String()) {
		t.Errorf("conflict error should carry the conflicting id: %v", ce)
	}

	nf := &NotFoundError{Entity: "weighting scheme", ID: uuid.New()}
	if !strings.Contains(nf.Error(), "not found") {
		t.Errorf("unexpected message: %v", nf)
	}
}
