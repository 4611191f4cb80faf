// Package coords converts between voxel indices and millimetre coordinates.
//
// Volumes on the canonical MNI 2mm grid (91x109x91, 2mm isotropic) use the
// published origin so coordinates reproduce exactly. Any other grid is mapped
// relative to its geometric centre. In both regimes x runs right-to-left
// (index 0 is the most positive x) while y and z increase with the index.
package coords

import (
	"math"
	"strconv"

	"niiviewer/internal/models"
)

// Canonical grid parameters
var (
	CanonicalDims = models.Dims{NX: 91, NY: 109, NZ: 91}

	// CanonicalOrigin is the coordinate of voxel (0, 0, 0) in mm
	CanonicalOrigin = [3]float64{90, -126, -72}
)

const (
	canonicalStep    = 2.0
	spacingTolerance = 1e-3
)

// axisSign gives the index-to-coordinate direction per axis
var axisSign = [3]float64{-1, 1, 1}

// Mapper maps indices to coordinates for one volume geometry
type Mapper struct {
	dims      models.Dims
	spacing   models.Spacing
	canonical bool
}

// New returns a Mapper for the given geometry
func New(dims models.Dims, spacing models.Spacing) Mapper {
	return Mapper{
		dims:      dims,
		spacing:   spacing,
		canonical: IsCanonical(dims, spacing),
	}
}

// IsCanonical reports whether dims and spacing match the MNI 2mm grid
func IsCanonical(dims models.Dims, spacing models.Spacing) bool {
	if dims != CanonicalDims {
		return false
	}
	for _, a := range models.Axes {
		if math.Abs(spacing.Along(a)-canonicalStep) >= spacingTolerance {
			return false
		}
	}
	return true
}

// IsCanonical reports whether the mapper uses the canonical regime
func (m Mapper) IsCanonical() bool {
	return m.canonical
}

// Dims returns the geometry the mapper was built for
func (m Mapper) Dims() models.Dims {
	return m.dims
}

// IndexToCoord converts a voxel index along axis to mm
func (m Mapper) IndexToCoord(axis models.Axis, index int) float64 {
	if !axis.Valid() {
		return 0
	}
	i := float64(index)
	sign := axisSign[axis]
	if m.canonical {
		return CanonicalOrigin[axis] + sign*canonicalStep*i
	}
	center := float64(m.dims.Extent(axis) / 2)
	return sign * (i - center) * m.spacing.Along(axis)
}

// CoordToIndex converts mm along axis to the nearest voxel index, clamped to
// the volume. Halves round up.
func (m Mapper) CoordToIndex(axis models.Axis, coord float64) int {
	if !axis.Valid() {
		return 0
	}
	n := m.dims.Extent(axis)
	sign := axisSign[axis]

	var v float64
	if m.canonical {
		v = sign * (coord - CanonicalOrigin[axis]) / canonicalStep
	} else {
		step := m.spacing.Along(axis)
		if step == 0 {
			step = 1
		}
		v = sign*(coord/step) + float64(n/2)
	}
	if math.IsNaN(v) {
		return models.ClampInt(n/2, 0, n-1)
	}
	v = math.Floor(v + 0.5)
	if v < 0 {
		return 0
	}
	if v > float64(n-1) {
		return models.ClampInt(n-1, 0, n-1)
	}
	return int(v)
}

// Coords returns the three coordinates of a cursor in mm
func (m Mapper) Coords(c models.Cursor) [3]float64 {
	var out [3]float64
	for _, a := range models.Axes {
		out[a] = m.IndexToCoord(a, c.Get(a))
	}
	return out
}

// Text returns the display strings for the three coordinates of a cursor
func (m Mapper) Text(c models.Cursor) [3]string {
	var out [3]string
	for i, v := range m.Coords(c) {
		out[i] = Format(v)
	}
	return out
}

// Format renders a coordinate with the shortest exact decimal form
func Format(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
