package analyzer

import (
	"errors"
	"fmt"
	"math"
)

// ErrScoring marks a dimension result that violates the extractor contract.
var ErrScoring = errors.New("analyzer: invalid scoring input")

// Weights are the per-dimension factors of the total score. They must be
// non-negative and sum to 1.
type Weights struct {
	Typography float64 `yaml:"typography" json:"typography"`
	Color      float64 `yaml:"color" json:"color"`
	Layout     float64 `yaml:"layout" json:"layout"`
}

// DefaultWeights returns the standard 0.4/0.3/0.3 weighting.
func DefaultWeights() Weights {
	return Weights{Typography: 0.4, Color: 0.3, Layout: 0.3}
}

const weightTolerance = 1e-9

// Validate checks that w is usable.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Typography, w.Color, w.Layout} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: weight %v", ErrScoring, v)
		}
	}
	if sum := w.Typography + w.Color + w.Layout; math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %v", ErrScoring, sum)
	}
	return nil
}

// Score combines three dimension results into a breakdown. Out-of-range
// scores are rejected, never clamped.
func Score(w Weights, t, c, l DimensionResult) (ScoreBreakdown, error) {
	if err := w.Validate(); err != nil {
		return ScoreBreakdown{}, err
	}
	for _, chk := range []struct {
		r    DimensionResult
		want Dimension
	}{{t, Typography}, {c, Color}, {l, Layout}} {
		if chk.r.Dimension != chk.want {
			return ScoreBreakdown{}, fmt.Errorf("%w: got %q result in %s slot", ErrScoring, chk.r.Dimension, chk.want)
		}
		if chk.r.Score < 0 || chk.r.Score > 100 {
			return ScoreBreakdown{}, fmt.Errorf("%w: %s score %d out of range", ErrScoring, chk.want, chk.r.Score)
		}
	}
	total := math.Round(float64(t.Score)*w.Typography + float64(c.Score)*w.Color + float64(l.Score)*w.Layout)
	return ScoreBreakdown{
		Total:      int(total),
		Typography: t.Score,
		Color:      c.Score,
		Layout:     l.Score,
	}, nil
}
