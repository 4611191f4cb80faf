package nifti

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"niiviewer/internal/models"
)

// Encode writes vol as a little-endian single-file NIfTI-1 image with element
// type dt. Values are converted to dt as stored; integer types are not
// rescaled back from [0,1]. When compress is set the output is gzipped.
func Encode(w io.Writer, vol *models.Volume, dt Datatype, compress bool) error {
	if vol == nil || !vol.Dims.Valid() {
		return fmt.Errorf("%w: nothing to encode", ErrMissingDimensions)
	}
	if len(vol.Data) != vol.Dims.Len() {
		return fmt.Errorf("buffer length %d does not match dims %s", len(vol.Data), vol.Dims)
	}
	if vol.Dims.NX > math.MaxInt16 || vol.Dims.NY > math.MaxInt16 || vol.Dims.NZ > math.MaxInt16 {
		return fmt.Errorf("dims %s exceed the NIfTI-1 limit of %d", vol.Dims, math.MaxInt16)
	}
	if !dt.Known() {
		return fmt.Errorf("unsupported datatype: %s", dt)
	}

	order := binary.LittleEndian
	hdr := make([]byte, minVoxOffset)
	order.PutUint32(hdr, headerSize)

	dims := [8]int16{3, int16(vol.Dims.NX), int16(vol.Dims.NY), int16(vol.Dims.NZ), 1, 1, 1, 1}
	for i, d := range dims {
		order.PutUint16(hdr[offsetDim+2*i:], uint16(d))
	}
	order.PutUint16(hdr[offsetDatatype:], uint16(dt))
	order.PutUint16(hdr[offsetBitpix:], uint16(8*dt.Size()))

	pix := [8]float32{1, float32(vol.Spacing.X), float32(vol.Spacing.Y), float32(vol.Spacing.Z), 1, 1, 1, 1}
	for i, p := range pix {
		order.PutUint32(hdr[offsetPixdim+4*i:], math.Float32bits(p))
	}
	order.PutUint32(hdr[offsetVoxOff:], math.Float32bits(minVoxOffset))
	copy(hdr[offsetMagic:], "n+1\x00")

	out := w
	var zw *gzip.Writer
	if compress {
		zw = gzip.NewWriter(w)
		out = zw
	}

	if _, err := out.Write(hdr); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := out.Write(encodeElements(dt, vol.Data, order)); err != nil {
		return fmt.Errorf("failed to write image data: %w", err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return fmt.Errorf("failed to finish gzip stream: %w", err)
		}
	}
	return nil
}
