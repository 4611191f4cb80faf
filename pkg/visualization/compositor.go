package visualization

import (
	"fmt"
	"image"
	"image/color"

	"niiviewer/internal/models"
	"niiviewer/pkg/threshold"
)

// XPositiveOnRight mirrors the horizontal source axis of the axial and coronal
// planes so that positive x (index 0 side inverted) is drawn on the right.
// It is a fixed display convention shared by rendering and click mapping.
const XPositiveOnRight = true

var (
	// AccentColor is blended onto background pixels that pass the threshold
	AccentColor = color.RGBA{R: 255, G: 0, B: 0, A: 255}

	// CrosshairColor is drawn over the cursor position
	CrosshairColor = color.RGBA{R: 0x7c, G: 0x9d, B: 0x7c, A: 255}
)

// ViewState is the view aggregate shared by the controller and compositor.
// Volumes whose dims differ from Dims are ignored during rendering.
type ViewState struct {
	// Dims is the established geometry of the view
	Dims models.Dims

	// Background is the anatomical reference, may be nil
	Background *models.Volume

	// Overlay is the statistical map, may be nil
	Overlay *models.Volume

	// Cursor positions the crosshair
	Cursor models.Cursor

	// Cutoff is the overlay visibility threshold
	Cutoff threshold.Cutoff

	// Render controls overlay blending
	Render models.RenderSpec
}

// compatible reports whether vol can be drawn in this view
func (s ViewState) compatible(vol *models.Volume) bool {
	return vol != nil && vol.Dims == s.Dims && len(vol.Data) == s.Dims.Len()
}

// BackgroundUsable reports whether the background takes part in rendering
func (s ViewState) BackgroundUsable() bool {
	return s.compatible(s.Background)
}

// OverlayUsable reports whether the overlay takes part in rendering
func (s ViewState) OverlayUsable() bool {
	return s.compatible(s.Overlay)
}

// PlaneSize returns the raster width and height for a plane orthogonal to axis
func PlaneSize(d models.Dims, axis models.Axis) (w, h int) {
	switch axis {
	case models.AxisZ:
		return d.NX, d.NY
	case models.AxisY:
		return d.NX, d.NZ
	case models.AxisX:
		return d.NY, d.NZ
	}
	return 0, 0
}

// PlaneAxes returns the volume axes that vary along the raster columns and rows
func PlaneAxes(axis models.Axis) (horizontal, vertical models.Axis) {
	switch axis {
	case models.AxisZ:
		return models.AxisX, models.AxisY
	case models.AxisY:
		return models.AxisX, models.AxisZ
	default:
		return models.AxisY, models.AxisZ
	}
}

// mirrored reports whether the plane's columns are drawn right-to-left
func mirrored(axis models.Axis) bool {
	return XPositiveOnRight && axis != models.AxisX
}

// ColumnToIndex maps a raster column to the voxel index along the plane's
// horizontal axis. The mapping is its own inverse.
func ColumnToIndex(d models.Dims, axis models.Axis, col int) int {
	if mirrored(axis) {
		w, _ := PlaneSize(d, axis)
		return w - 1 - col
	}
	return col
}

// RowToIndex maps a raster row (top-down) to the voxel index along the
// plane's vertical axis. The mapping is its own inverse.
func RowToIndex(d models.Dims, axis models.Axis, row int) int {
	_, h := PlaneSize(d, axis)
	return h - 1 - row
}

// Compositor renders the three orthogonal planes of a view
type Compositor struct{}

// NewCompositor creates a compositor
func NewCompositor() *Compositor {
	return &Compositor{}
}

// Render composites the plane orthogonal to axis at slice index into an RGBA
// raster and draws the crosshair. Missing or incompatible volumes are
// skipped; only an invalid axis or index is an error.
func (c *Compositor) Render(view ViewState, axis models.Axis, index int) (*image.RGBA, error) {
	if !axis.Valid() {
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}
	if !view.Dims.Valid() {
		return nil, fmt.Errorf("view has no dimensions")
	}
	if index < 0 || index >= view.Dims.Extent(axis) {
		return nil, fmt.Errorf("position %d exceeds %s extent %d", index, axis, view.Dims.Extent(axis))
	}

	w, h := PlaneSize(view.Dims, axis)
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	var bg, ov *models.Volume
	if view.BackgroundUsable() {
		bg = view.Background
	}
	if view.OverlayUsable() {
		ov = view.Overlay
	}

	bgMin, bgRange := 0.0, 1.0
	if bg != nil {
		bgMin = float64(bg.Min)
		if r := float64(bg.Max) - bgMin; r != 0 {
			bgRange = r
		}
	}

	alpha := clamp01(view.Render.Opacity)
	offset := voxelOffset(view.Dims, axis, index)

	for row := 0; row < h; row++ {
		srcY := RowToIndex(view.Dims, axis, row)
		for col := 0; col < w; col++ {
			i := offset(ColumnToIndex(view.Dims, axis, col), srcY)
			p := img.PixOffset(col, row)

			var gray uint8
			if bg != nil {
				g := clamp01((float64(bg.Data[i]) - bgMin) / bgRange)
				gray = uint8(g * 255)
			}
			px := img.Pix[p : p+4 : p+4]
			px[0], px[1], px[2], px[3] = gray, gray, gray, 255

			if ov != nil && overlayPasses(float64(ov.Data[i]), view) {
				px[0] = blend(px[0], AccentColor.R, alpha)
				px[1] = blend(px[1], AccentColor.G, alpha)
				px[2] = blend(px[2], AccentColor.B, alpha)
			}
		}
	}

	drawCrosshair(img, view, axis)
	return img, nil
}

// RenderAll renders the axial, coronal and sagittal planes through the cursor
func (c *Compositor) RenderAll(view ViewState) (axial, coronal, sagittal *image.RGBA, err error) {
	cur := view.Cursor.Clamp(view.Dims)
	if axial, err = c.Render(view, models.AxisZ, cur.Z); err != nil {
		return nil, nil, nil, err
	}
	if coronal, err = c.Render(view, models.AxisY, cur.Y); err != nil {
		return nil, nil, nil, err
	}
	if sagittal, err = c.Render(view, models.AxisX, cur.X); err != nil {
		return nil, nil, nil, err
	}
	return axial, coronal, sagittal, nil
}

// voxelOffset returns a function mapping in-plane (horizontal, vertical)
// voxel indices to the flat buffer offset
func voxelOffset(d models.Dims, axis models.Axis, index int) func(u, v int) int {
	nx, nxy := d.NX, d.NX*d.NY
	switch axis {
	case models.AxisZ:
		return func(u, v int) int { return u + v*nx + index*nxy }
	case models.AxisY:
		return func(u, v int) int { return u + index*nx + v*nxy }
	default:
		return func(u, v int) int { return index + u*nx + v*nxy }
	}
}

// overlayPasses applies the threshold and sign gating to one overlay value
func overlayPasses(raw float64, view ViewState) bool {
	eff := raw
	if view.Render.UseAbsolute && eff < 0 {
		eff = -eff
	}
	if view.Render.PositiveOnly && raw <= 0 {
		return false
	}
	return view.Cutoff.Pass(eff)
}

func blend(dst, accent uint8, alpha float64) uint8 {
	return uint8((1-alpha)*float64(dst) + alpha*float64(accent))
}

func clamp01(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// drawCrosshair draws a one-pixel vertical and horizontal line through the
// cursor on top of the plane content
func drawCrosshair(img *image.RGBA, view ViewState, axis models.Axis) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	horiz, vert := PlaneAxes(axis)

	col := models.ClampInt(ColumnToIndex(view.Dims, axis, view.Cursor.Get(horiz)), 0, w-1)
	row := RowToIndex(view.Dims, axis, models.ClampInt(view.Cursor.Get(vert), 0, h-1))

	for y := 0; y < h; y++ {
		img.SetRGBA(col, y, CrosshairColor)
	}
	for x := 0; x < w; x++ {
		img.SetRGBA(x, row, CrosshairColor)
	}
}
