package nifti

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// Datatype is the NIfTI-1 element type code stored at header offset 70
type Datatype int16

// Element types understood by the decoder. Any other code is read as Float32.
const (
	Uint8   Datatype = 2
	Int16   Datatype = 4
	Int32   Datatype = 8
	Float32 Datatype = 16
	Float64 Datatype = 64
	Int8    Datatype = 256
	Uint16  Datatype = 512
	Uint32  Datatype = 768
)

// Size returns the element width in bytes. Unknown codes report the Float32
// width, matching the decode fallback.
func (d Datatype) Size() int {
	switch d {
	case Uint8, Int8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 4
}

// Known reports whether d has a dedicated decode routine
func (d Datatype) Known() bool {
	switch d {
	case Uint8, Int16, Int32, Float32, Float64, Int8, Uint16, Uint32:
		return true
	}
	return false
}

func (d Datatype) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int8:
		return "int8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	}
	return fmt.Sprintf("datatype(%d)", int16(d))
}

// decodeElements converts n raw elements to float32. Float types are narrowed
// as is; integer types are rescaled into [0,1] by their own min/max.
//
// Unknown codes take the Float32 path. Genuinely foreign encodings will be
// misread as floats.
func decodeElements(dt Datatype, raw []byte, order binary.ByteOrder, n int) []float32 {
	switch dt {
	case Uint8:
		return rescale(readAll(raw, n, 1, func(b []byte) uint8 { return b[0] }))
	case Int8:
		return rescale(readAll(raw, n, 1, func(b []byte) int8 { return int8(b[0]) }))
	case Int16:
		return rescale(readAll(raw, n, 2, func(b []byte) int16 { return int16(order.Uint16(b)) }))
	case Uint16:
		return rescale(readAll(raw, n, 2, order.Uint16))
	case Int32:
		return rescale(readAll(raw, n, 4, func(b []byte) int32 { return int32(order.Uint32(b)) }))
	case Uint32:
		return rescale(readAll(raw, n, 4, order.Uint32))
	case Float64:
		return narrow(readAll(raw, n, 8, func(b []byte) float64 {
			return math.Float64frombits(order.Uint64(b))
		}))
	default:
		return narrow(readAll(raw, n, 4, func(b []byte) float32 {
			return math.Float32frombits(order.Uint32(b))
		}))
	}
}

// readAll slices raw into n elements of the given width
func readAll[T any](raw []byte, n, size int, at func([]byte) T) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = at(raw[i*size : (i+1)*size])
	}
	return out
}

// rescale maps integer samples linearly onto [0,1] using the observed range.
// A constant buffer (zero range) divides by 1.
func rescale[T constraints.Integer](vals []T) []float32 {
	out := make([]float32, len(vals))
	if len(vals) == 0 {
		return out
	}
	mn, mx := vals[0], vals[0]
	for _, v := range vals {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	rng := float64(mx) - float64(mn)
	if rng == 0 {
		rng = 1
	}
	lo := float64(mn)
	for i, v := range vals {
		out[i] = float32((float64(v) - lo) / rng)
	}
	return out
}

func narrow[T constraints.Float](vals []T) []float32 {
	out := make([]float32, len(vals))
	for i, v := range vals {
		out[i] = float32(v)
	}
	return out
}

// encodeElements is the inverse of decodeElements without the integer
// rescale: values are converted to dt directly.
func encodeElements(dt Datatype, data []float32, order binary.ByteOrder) []byte {
	size := dt.Size()
	out := make([]byte, len(data)*size)
	for i, v := range data {
		b := out[i*size : (i+1)*size]
		switch dt {
		case Uint8:
			b[0] = uint8(v)
		case Int8:
			b[0] = byte(int8(v))
		case Int16:
			order.PutUint16(b, uint16(int16(v)))
		case Uint16:
			order.PutUint16(b, uint16(v))
		case Int32:
			order.PutUint32(b, uint32(int32(v)))
		case Uint32:
			order.PutUint32(b, uint32(v))
		case Float64:
			order.PutUint64(b, math.Float64bits(float64(v)))
		default:
			order.PutUint32(b, math.Float32bits(v))
		}
	}
	return out
}
