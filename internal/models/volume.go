package models

import (
	"fmt"
	"strings"
)

// Axis identifies one of the three volume axes
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Axes lists the three axes in index order
var Axes = [3]Axis{AxisX, AxisY, AxisZ}

// ParseAxis converts "x", "y" or "z" (any case) to an Axis
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("invalid axis: %s (must be x, y, or z)", s)
}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	}
	return fmt.Sprintf("axis(%d)", int(a))
}

// Valid reports whether a is one of X, Y or Z
func (a Axis) Valid() bool {
	return a >= AxisX && a <= AxisZ
}

// Dims holds the voxel extents of a volume
type Dims struct {
	NX, NY, NZ int
}

// Len returns the number of voxels NX*NY*NZ
func (d Dims) Len() int {
	return d.NX * d.NY * d.NZ
}

// Valid reports whether every extent is positive
func (d Dims) Valid() bool {
	return d.NX > 0 && d.NY > 0 && d.NZ > 0
}

// Extent returns the number of voxels along axis
func (d Dims) Extent(axis Axis) int {
	switch axis {
	case AxisX:
		return d.NX
	case AxisY:
		return d.NY
	case AxisZ:
		return d.NZ
	}
	return 0
}

func (d Dims) String() string {
	return fmt.Sprintf("%dx%dx%d", d.NX, d.NY, d.NZ)
}

// Spacing is the physical size of a voxel in mm. Values are always absolute;
// the sign of the stored pixdim is orientation metadata and is dropped.
type Spacing struct {
	X, Y, Z float64
}

// Along returns the spacing for axis
func (s Spacing) Along(axis Axis) float64 {
	switch axis {
	case AxisX:
		return s.X
	case AxisY:
		return s.Y
	case AxisZ:
		return s.Z
	}
	return 0
}

// Volume represents a decoded 3D scalar volume
type Volume struct {
	// Dims are the voxel extents
	Dims Dims

	// Spacing is the physical voxel size in mm
	Spacing Spacing

	// Data is the voxel buffer of length Dims.Len(), addressed
	// Data[x + y*NX + z*NX*NY]
	Data []float32

	// Min and Max are the observed value range of Data
	Min, Max float32

	// Datatype is the element type tag the volume was decoded from
	Datatype int16
}

// Index returns the flat buffer offset of voxel (x, y, z)
func (v *Volume) Index(x, y, z int) int {
	return x + y*v.Dims.NX + z*v.Dims.NX*v.Dims.NY
}

// At returns the value of voxel (x, y, z)
func (v *Volume) At(x, y, z int) float32 {
	return v.Data[v.Index(x, y, z)]
}

// Cursor is the selected voxel driving the three orthogonal planes
type Cursor struct {
	X, Y, Z int
}

// Center returns the cursor at floor(dim/2) on every axis
func Center(d Dims) Cursor {
	return Cursor{X: d.NX / 2, Y: d.NY / 2, Z: d.NZ / 2}
}

// Get returns the index along axis
func (c Cursor) Get(axis Axis) int {
	switch axis {
	case AxisX:
		return c.X
	case AxisY:
		return c.Y
	case AxisZ:
		return c.Z
	}
	return 0
}

// With returns a copy of c with the index along axis replaced
func (c Cursor) With(axis Axis, v int) Cursor {
	switch axis {
	case AxisX:
		c.X = v
	case AxisY:
		c.Y = v
	case AxisZ:
		c.Z = v
	}
	return c
}

// Clamp limits every index to [0, dim-1]
func (c Cursor) Clamp(d Dims) Cursor {
	return Cursor{
		X: ClampInt(c.X, 0, d.NX-1),
		Y: ClampInt(c.Y, 0, d.NY-1),
		Z: ClampInt(c.Z, 0, d.NZ-1),
	}
}

// RenderSpec controls how the overlay is blended onto the background
type RenderSpec struct {
	// Opacity is the overlay blend factor in [0, 1]
	Opacity float64 `yaml:"opacity"`

	// PositiveOnly hides overlay voxels whose raw value is <= 0
	PositiveOnly bool `yaml:"positiveOnly"`

	// UseAbsolute compares |value| against the cutoff
	UseAbsolute bool `yaml:"useAbsolute"`
}

// ClampInt limits v to [lo, hi]
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
