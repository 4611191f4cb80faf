// Package threshold derives the overlay visibility cutoff.
package threshold

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"niiviewer/internal/models"
)

// Mode selects how the cutoff is derived
type Mode int

const (
	// Percentile uses an order statistic of the overlay values
	Percentile Mode = iota

	// Value uses the parameter literally
	Value
)

// MaxSamples bounds the number of voxels sorted for a percentile. Larger
// buffers are strided, so the result is an approximation on big volumes.
const MaxSamples = 200000

// DefaultPercentile is used when a percentile parameter cannot be parsed
const DefaultPercentile = 95.0

// ParseMode accepts "value" or "pctl"/"percentile"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "value":
		return Value, nil
	case "pctl", "percentile":
		return Percentile, nil
	}
	return 0, fmt.Errorf("invalid threshold mode: %s (must be value or pctl)", s)
}

func (m Mode) String() string {
	if m == Value {
		return "value"
	}
	return "pctl"
}

// Spec is a threshold rule. Param holds the raw user text so that an
// unparsable entry can fall back the way the mode prescribes.
type Spec struct {
	Mode  Mode
	Param string
}

// ValueSpec returns a literal-value rule
func ValueSpec(v float64) Spec {
	return Spec{Mode: Value, Param: strconv.FormatFloat(v, 'f', -1, 64)}
}

// PercentileSpec returns a percentile rule
func PercentileSpec(p float64) Spec {
	return Spec{Mode: Percentile, Param: strconv.FormatFloat(p, 'f', -1, 64)}
}

// Cutoff is a derived threshold. Defined is false when no overlay is present.
type Cutoff struct {
	Value   float64
	Defined bool
}

// Pass reports whether an overlay value is visible under the cutoff
func (c Cutoff) Pass(v float64) bool {
	if !c.Defined {
		return v > 0
	}
	return v >= c.Value
}

func parseParam(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Resolve computes the cutoff for data under spec without caching
func Resolve(data []float32, spec Spec) float64 {
	if spec.Mode == Value {
		v, ok := parseParam(spec.Param)
		if !ok || math.IsInf(v, 0) {
			return 0
		}
		return v
	}

	// An explicit 0 is the minimum, not a request for the default.
	p, ok := parseParam(spec.Param)
	if !ok {
		p = DefaultPercentile
	}
	return PercentileOf(data, math.Max(0, math.Min(100, p)))
}

// PercentileOf returns the p-th order statistic (p in [0,100]) of data,
// taking every ceil(len/MaxSamples)-th element. The index is
// floor(p/100*(n-1)) into the sorted sample. Empty data yields 0.
func PercentileOf(data []float32, p float64) float64 {
	if len(data) == 0 {
		return 0
	}
	step := (len(data) + MaxSamples - 1) / MaxSamples
	if step < 1 {
		step = 1
	}

	samples := make([]float64, 0, (len(data)+step-1)/step)
	for i := 0; i < len(data); i += step {
		samples = append(samples, float64(data[i]))
	}
	sort.Float64s(samples)

	k := int(math.Floor(p / 100 * float64(len(samples)-1)))
	return samples[models.ClampInt(k, 0, len(samples)-1)]
}

// Engine caches the cutoff against the overlay it was computed for and the
// spec. A new overlay or spec triggers exactly one recomputation.
type Engine struct {
	overlay      *models.Volume
	spec         Spec
	cutoff       Cutoff
	valid        bool
	computations int
}

// NewEngine creates an empty engine
func NewEngine() *Engine {
	return &Engine{}
}

// Cutoff returns the cutoff for overlay under spec, recomputing only when
// either changed since the previous call. A nil overlay is undefined.
func (e *Engine) Cutoff(overlay *models.Volume, spec Spec) Cutoff {
	if overlay == nil {
		return Cutoff{}
	}
	if e.valid && e.overlay == overlay && e.spec == spec {
		return e.cutoff
	}

	e.overlay = overlay
	e.spec = spec
	e.cutoff = Cutoff{Value: Resolve(overlay.Data, spec), Defined: true}
	e.valid = true
	e.computations++
	return e.cutoff
}

// Computations returns how many times the cutoff has been recomputed
func (e *Engine) Computations() int {
	return e.computations
}
