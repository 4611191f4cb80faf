package visualization

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	"niiviewer/internal/models"
)

// Scale enlarges img by an integer factor with nearest-neighbour sampling so
// voxels stay crisp. Factors below 2 return img unchanged.
func Scale(img image.Image, factor int) image.Image {
	if factor < 2 {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// SavePNG writes img to filename as PNG, scaled by factor
func SavePNG(img image.Image, filename string, factor int) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := png.Encode(file, Scale(img, factor)); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filename, err)
	}
	return file.Close()
}

// SaveSliceSequence renders and saves every slice along axis into outputDir.
// The crosshair follows the view cursor on each slice.
func (c *Compositor) SaveSliceSequence(view ViewState, axis models.Axis, outputDir string, factor int) error {
	if !axis.Valid() {
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for pos := 0; pos < view.Dims.Extent(axis); pos++ {
		img, err := c.Render(view, axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := SavePNG(img, filename, factor); err != nil {
			return err
		}
	}

	return nil
}
