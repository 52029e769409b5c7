// Package grades computes weighted subject averages for the grade tracker.
package grades

import (
	"fmt"
	"math"
	"strings"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/models"
)

const (
	RegularWeight = 1
	MidtermWeight = 2
	FinalWeight   = 3

	MinMark = 0.0
	MaxMark = 10.0
)

// Average weighs regular marks 1, the midterm 2 and the final 3, rounded to
// one decimal. It returns nil when no mark has been entered.
func Average(d models.GradeDetail) *float64 {
	var sum, weight float64
	for _, m := range d.Regular {
		sum += m * RegularWeight
		weight += RegularWeight
	}
	if d.Midterm != nil {
		sum += *d.Midterm * MidtermWeight
		weight += MidtermWeight
	}
	if d.Final != nil {
		sum += *d.Final * FinalWeight
		weight += FinalWeight
	}
	if weight == 0 {
		return nil
	}
	avg := math.Round(sum/weight*10) / 10
	return &avg
}

// Validate rejects marks outside 0..10.
func Validate(subject string, d models.GradeDetail) error {
	check := func(label string, v float64) error {
		if math.IsNaN(v) || v < MinMark || v > MaxMark {
			return fmt.Errorf("%w: %s %s mark %v is outside %v..%v", apperr.ErrInvalidArgument, subject, label, v, MinMark, MaxMark)
		}
		return nil
	}
	for _, m := range d.Regular {
		if err := check("regular", m); err != nil {
			return err
		}
	}
	if d.Midterm != nil {
		if err := check("midterm", *d.Midterm); err != nil {
			return err
		}
	}
	if d.Final != nil {
		if err := check("final", *d.Final); err != nil {
			return err
		}
	}
	return nil
}

// Recompute validates every subject and returns a copy with fresh averages.
// Client-supplied averages are ignored.
func Recompute(r models.GradeRecord) (models.GradeRecord, error) {
	out := make(models.GradeRecord, len(r))
	for subject, d := range r {
		subject = strings.TrimSpace(subject)
		if subject == "" {
			return nil, fmt.Errorf("%w: empty subject name", apperr.ErrInvalidArgument)
		}
		if err := Validate(subject, d); err != nil {
			return nil, err
		}
		d.Regular = append([]float64(nil), d.Regular...)
		d.Average = Average(d)
		out[subject] = d
	}
	return out, nil
}
