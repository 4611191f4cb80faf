package coords

import (
	"math"
	"testing"

	"niiviewer/internal/models"
)

func canonicalMapper() Mapper {
	return New(CanonicalDims, models.Spacing{X: 2, Y: 2, Z: 2})
}

// TestCanonicalDetection verifies the canonical regime triggers only on the exact grid
func TestCanonicalDetection(t *testing.T) {
	tests := []struct {
		name    string
		dims    models.Dims
		spacing models.Spacing
		want    bool
	}{
		{"mni 2mm", CanonicalDims, models.Spacing{X: 2, Y: 2, Z: 2}, true},
		{"within tolerance", CanonicalDims, models.Spacing{X: 2.0005, Y: 2, Z: 1.9995}, true},
		{"1mm spacing", CanonicalDims, models.Spacing{X: 1, Y: 1, Z: 1}, false},
		{"other dims", models.Dims{NX: 91, NY: 109, NZ: 90}, models.Spacing{X: 2, Y: 2, Z: 2}, false},
	}
	for _, tt := range tests {
		if got := New(tt.dims, tt.spacing).IsCanonical(); got != tt.want {
			t.Errorf("%s: expected canonical=%v, got %v", tt.name, tt.want, got)
		}
	}
}

// TestCanonicalAnchors verifies the published origin convention
func TestCanonicalAnchors(t *testing.T) {
	m := canonicalMapper()

	checks := []struct {
		axis  models.Axis
		index int
		want  float64
	}{
		{models.AxisX, 0, 90},
		{models.AxisX, 90, -90},
		{models.AxisX, 45, 0},
		{models.AxisY, 0, -126},
		{models.AxisY, 63, 0},
		{models.AxisZ, 0, -72},
		{models.AxisZ, 36, 0},
	}
	for _, c := range checks {
		if got := m.IndexToCoord(c.axis, c.index); got != c.want {
			t.Errorf("IndexToCoord(%s, %d): expected %v, got %v", c.axis, c.index, c.want, got)
		}
	}
}

// TestCanonicalRoundTrip verifies exact inversion on the canonical grid
func TestCanonicalRoundTrip(t *testing.T) {
	m := canonicalMapper()
	for _, axis := range models.Axes {
		for i := 0; i < CanonicalDims.Extent(axis); i++ {
			if got := m.CoordToIndex(axis, m.IndexToCoord(axis, i)); got != i {
				t.Errorf("Axis %s index %d round-tripped to %d", axis, i, got)
			}
		}
	}
}

// TestGenericRoundTrip verifies inversion within one voxel on arbitrary grids
func TestGenericRoundTrip(t *testing.T) {
	geometries := []struct {
		dims    models.Dims
		spacing models.Spacing
	}{
		{models.Dims{NX: 64, NY: 64, NZ: 40}, models.Spacing{X: 3, Y: 3, Z: 3.5}},
		{models.Dims{NX: 7, NY: 10, NZ: 1}, models.Spacing{X: 0.7, Y: 1.3, Z: 5}},
		{models.Dims{NX: 182, NY: 218, NZ: 182}, models.Spacing{X: 1, Y: 1, Z: 1}},
	}

	for _, g := range geometries {
		m := New(g.dims, g.spacing)
		if m.IsCanonical() {
			t.Fatalf("Geometry %s unexpectedly canonical", g.dims)
		}
		for _, axis := range models.Axes {
			for i := 0; i < g.dims.Extent(axis); i++ {
				got := m.CoordToIndex(axis, m.IndexToCoord(axis, i))
				if d := got - i; d < -1 || d > 1 {
					t.Errorf("%s axis %s index %d round-tripped to %d", g.dims, axis, i, got)
				}
			}
		}
	}
}

// TestGenericConvention verifies centre origin and x inversion
func TestGenericConvention(t *testing.T) {
	m := New(models.Dims{NX: 10, NY: 10, NZ: 10}, models.Spacing{X: 1.5, Y: 2, Z: 3})

	if got := m.IndexToCoord(models.AxisX, 5); got != 0 {
		t.Errorf("Expected centre x to be 0, got %v", got)
	}
	if got := m.IndexToCoord(models.AxisX, 7); got != -3 {
		t.Errorf("Expected x index 7 at -3mm, got %v", got)
	}
	if got := m.IndexToCoord(models.AxisY, 7); got != 4 {
		t.Errorf("Expected y index 7 at 4mm, got %v", got)
	}
	if got := m.IndexToCoord(models.AxisZ, 0); got != -15 {
		t.Errorf("Expected z index 0 at -15mm, got %v", got)
	}
}

// TestCoordToIndexClamps verifies out-of-volume coordinates clamp to the edge
func TestCoordToIndexClamps(t *testing.T) {
	m := canonicalMapper()
	if got := m.CoordToIndex(models.AxisX, 500); got != 0 {
		t.Errorf("Expected clamp to 0, got %d", got)
	}
	if got := m.CoordToIndex(models.AxisX, -500); got != 90 {
		t.Errorf("Expected clamp to 90, got %d", got)
	}
	if got := m.CoordToIndex(models.AxisY, math.NaN()); got != 54 {
		t.Errorf("Expected NaN to map to centre 54, got %d", got)
	}

	g := New(models.Dims{NX: 4, NY: 4, NZ: 4}, models.Spacing{X: 1, Y: 1, Z: 1})
	if got := g.CoordToIndex(models.AxisZ, 100); got != 3 {
		t.Errorf("Expected clamp to 3, got %d", got)
	}
}

// TestRoundHalfUp verifies ties round toward the larger index
func TestRoundHalfUp(t *testing.T) {
	m := canonicalMapper()
	// y = -125 lies halfway between index 0 and 1
	if got := m.CoordToIndex(models.AxisY, -125); got != 1 {
		t.Errorf("Expected 1, got %d", got)
	}
	// x = 89 gives v = 0.5
	if got := m.CoordToIndex(models.AxisX, 89); got != 1 {
		t.Errorf("Expected 1, got %d", got)
	}
}

// TestText verifies display formatting
func TestText(t *testing.T) {
	m := canonicalMapper()
	text := m.Text(models.Center(CanonicalDims))
	want := [3]string{"0", "-18", "18"}
	if text != want {
		t.Errorf("Expected %v, got %v", want, text)
	}

	if got := Format(-1.5); got != "-1.5" {
		t.Errorf("Expected -1.5, got %s", got)
	}
	if got := Format(math.Copysign(0, -1)); got != "0" {
		t.Errorf("Expected 0 for negative zero, got %s", got)
	}
}
