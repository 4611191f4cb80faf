// Package nifti decodes and encodes the minimal single-file NIfTI-1 subset
// used by the viewer: a 348-byte header followed by a 3D element buffer,
// optionally gzip-compressed. Affine transforms, intensity scaling and
// detached header/image pairs are not supported.
package nifti

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"niiviewer/internal/models"
)

const (
	headerSize     = 348
	minVoxOffset   = 352
	offsetDim      = 40
	offsetDatatype = 70
	offsetBitpix   = 72
	offsetPixdim   = 76
	offsetVoxOff   = 108
	offsetMagic    = 344
)

var (
	// ErrCompressedFormat is returned when the input looks compressed but
	// cannot be decompressed
	ErrCompressedFormat = errors.New("compressed format not recognized")

	// ErrNotValidContainer is returned for anything that is not a complete
	// single-file NIfTI-1 volume
	ErrNotValidContainer = errors.New("not a NIfTI file")

	// ErrMissingDimensions is returned when any spatial extent is not positive
	ErrMissingDimensions = errors.New("invalid dims")
)

// Header holds the fields of a NIfTI-1 header the viewer reads
type Header struct {
	Dims      models.Dims
	Spacing   models.Spacing
	Datatype  Datatype
	Bitpix    int16
	VoxOffset int
	ByteOrder binary.ByteOrder
}

// IsCompressed reports whether data starts with the gzip magic bytes
func IsCompressed(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

// MaxDecompressedSize bounds the gunzipped size of a volume. It is well above
// a 1mm float64 whole-brain volume (about 60 MB).
var MaxDecompressedSize int64 = 1 << 30

// Decompress gunzips data, failing if the output exceeds MaxDecompressedSize
func Decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressedFormat, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, MaxDecompressedSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressedFormat, err)
	}
	if int64(len(out)) > MaxDecompressedSize {
		return nil, fmt.Errorf("%w: decompressed size exceeds %d bytes", ErrCompressedFormat, MaxDecompressedSize)
	}
	return out, nil
}

// IsNIfTI reports whether data carries a single-file NIfTI-1 header
func IsNIfTI(data []byte) bool {
	_, ok := byteOrder(data)
	return ok && bytes.Equal(data[offsetMagic:offsetMagic+4], []byte("n+1\x00"))
}

// byteOrder detects endianness from sizeof_hdr, which must read as 348
func byteOrder(data []byte) (binary.ByteOrder, bool) {
	if len(data) < headerSize {
		return nil, false
	}
	if binary.LittleEndian.Uint32(data) == headerSize {
		return binary.LittleEndian, true
	}
	if binary.BigEndian.Uint32(data) == headerSize {
		return binary.BigEndian, true
	}
	return nil, false
}

// ReadHeader parses the header of an uncompressed NIfTI-1 file
func ReadHeader(data []byte) (*Header, error) {
	order, ok := byteOrder(data)
	if !ok {
		return nil, fmt.Errorf("%w: bad header size", ErrNotValidContainer)
	}
	if !IsNIfTI(data) {
		return nil, fmt.Errorf("%w: missing n+1 magic", ErrNotValidContainer)
	}

	dim := func(i int) int {
		return int(int16(order.Uint16(data[offsetDim+2*i:])))
	}
	pixdim := func(i int) float64 {
		v := math.Abs(float64(math.Float32frombits(order.Uint32(data[offsetPixdim+4*i:]))))
		if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 1
		}
		return v
	}

	h := &Header{
		Dims:      models.Dims{NX: dim(1), NY: dim(2), NZ: dim(3)},
		Spacing:   models.Spacing{X: pixdim(1), Y: pixdim(2), Z: pixdim(3)},
		Datatype:  Datatype(int16(order.Uint16(data[offsetDatatype:]))),
		Bitpix:    int16(order.Uint16(data[offsetBitpix:])),
		ByteOrder: order,
	}
	if !h.Dims.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrMissingDimensions, h.Dims)
	}

	// Offsets below the header end are tolerated; anything past the end of
	// the data cannot point at the image.
	voxOffset := float64(math.Float32frombits(order.Uint32(data[offsetVoxOff:])))
	if math.IsNaN(voxOffset) || voxOffset > float64(len(data)) {
		return nil, fmt.Errorf("%w: vox_offset %v beyond %d bytes", ErrNotValidContainer, voxOffset, len(data))
	}
	h.VoxOffset = minVoxOffset
	if voxOffset > minVoxOffset {
		h.VoxOffset = int(voxOffset)
	}
	return h, nil
}

// Decode turns raw or gzip-compressed NIfTI-1 bytes into a Volume. Integer
// element types are normalized into [0,1]; floating types keep their values.
func Decode(data []byte) (*models.Volume, error) {
	if IsCompressed(data) {
		var err error
		if data, err = Decompress(data); err != nil {
			return nil, err
		}
	}

	h, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}

	need := int64(h.Dims.NX) * int64(h.Dims.NY) * int64(h.Dims.NZ) * int64(h.Datatype.Size())
	if h.VoxOffset > len(data) || need > int64(len(data)-h.VoxOffset) {
		return nil, fmt.Errorf("%w: truncated image data (need %d bytes at offset %d, have %d)",
			ErrNotValidContainer, need, h.VoxOffset, len(data))
	}
	n := h.Dims.Len()

	buf := decodeElements(h.Datatype, data[h.VoxOffset:h.VoxOffset+int(need)], h.ByteOrder, n)
	mn, mx := minMax(buf)

	return &models.Volume{
		Dims:     h.Dims,
		Spacing:  h.Spacing,
		Data:     buf,
		Min:      mn,
		Max:      mx,
		Datatype: int16(h.Datatype),
	}, nil
}

// minMax returns the observed range of data in one pass
func minMax(data []float32) (mn, mx float32) {
	if len(data) == 0 {
		return 0, 0
	}
	mn, mx = data[0], data[0]
	for _, v := range data {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	return mn, mx
}
