package grades

import (
	"errors"
	"testing"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/models"
)

func f(v float64) *float64 { return &v }

func TestAverage(t *testing.T) {
	tests := []struct {
		name string
		in   models.GradeDetail
		want *float64
	}{
		{"no marks", models.GradeDetail{}, nil},
		{"regular only", models.GradeDetail{Regular: []float64{8, 9}}, f(8.5)},
		{"weighted", models.GradeDetail{Regular: []float64{7, 8}, Midterm: f(6), Final: f(9)}, f(7.7)},
		{"final only", models.GradeDetail{Final: f(7.25)}, f(7.3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Average(tt.in)
			switch {
			case tt.want == nil && got != nil:
				t.Fatalf("expected nil, got %v", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Fatalf("got %v, want %v", got, *tt.want)
			}
		})
	}
}

func TestRecomputeRejectsOutOfRange(t *testing.T) {
	_, err := Recompute(models.GradeRecord{"Toán": {Regular: []float64{11}}})
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	_, err = Recompute(models.GradeRecord{"Văn": {Final: f(-1)}})
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestRecomputeOverridesClientAverage(t *testing.T) {
	out, err := Recompute(models.GradeRecord{"Anh": {Regular: []float64{10}, Average: f(2)}})
	if err != nil {
		t.Fatal(err)
	}
	if got := out["Anh"].Average; got == nil || *got != 10 {
		t.Fatalf("average = %v, want 10", got)
	}
}
