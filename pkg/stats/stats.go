// Package stats summarizes the value distribution of a volume for reports.
package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"niiviewer/internal/models"
)

// Summary holds descriptive statistics of a volume buffer
type Summary struct {
	// Count is the number of voxels
	Count int

	// NonZero is the fraction of voxels with a value other than zero
	NonZero float64

	// Min, Max, Mean and StdDev describe the value distribution
	Min, Max     float64
	Mean, StdDev float64

	// Quantiles maps probabilities (0-1) to empirical quantiles
	Quantiles map[float64]float64
}

// DefaultProbabilities are the quantiles reported by Summarize
var DefaultProbabilities = []float64{0.05, 0.5, 0.95, 0.99}

// Summarize computes a Summary of vol. Unlike the display threshold this uses
// every voxel, so it is exact but slower on large volumes.
func Summarize(vol *models.Volume, probs ...float64) Summary {
	if vol == nil || len(vol.Data) == 0 {
		return Summary{}
	}
	if len(probs) == 0 {
		probs = DefaultProbabilities
	}

	values := make([]float64, len(vol.Data))
	nonZero := 0
	for i, v := range vol.Data {
		values[i] = float64(v)
		if v != 0 {
			nonZero++
		}
	}

	s := Summary{
		Count:     len(values),
		NonZero:   float64(nonZero) / float64(len(values)),
		Min:       floats.Min(values),
		Max:       floats.Max(values),
		Quantiles: make(map[float64]float64, len(probs)),
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)

	sort.Float64s(values)
	for _, p := range probs {
		s.Quantiles[p] = stat.Quantile(p, stat.Empirical, values, nil)
	}
	return s
}

// String renders the summary in the CLI report format
func (s Summary) String() string {
	out := fmt.Sprintf("voxels=%d nonzero=%.1f%% min=%.4g max=%.4g mean=%.4g sd=%.4g",
		s.Count, 100*s.NonZero, s.Min, s.Max, s.Mean, s.StdDev)

	probs := make([]float64, 0, len(s.Quantiles))
	for p := range s.Quantiles {
		probs = append(probs, p)
	}
	sort.Float64s(probs)
	for _, p := range probs {
		out += fmt.Sprintf(" q%g=%.4g", 100*p, s.Quantiles[p])
	}
	return out
}
