// Package viewer owns the interactive view state: the Background and Overlay
// volume slots, the cursor and its coordinate text, and the redraw cycle.
//
// All state belongs to a single goroutine. Loads run concurrently but only
// post their results; the owner commits them through Poll or Wait, so no
// state is shared across goroutines and no locks are needed.
package viewer

import (
	"context"
	"image"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"

	"niiviewer/internal/models"
	"niiviewer/pkg/coords"
	"niiviewer/pkg/fetch"
	"niiviewer/pkg/nifti"
	"niiviewer/pkg/threshold"
	"niiviewer/pkg/visualization"
)

// State summarizes which volumes take part in rendering
type State int

const (
	NoVolume State = iota
	BackgroundOnly
	OverlayOnly
	BackgroundAndOverlay
)

func (s State) String() string {
	switch s {
	case BackgroundOnly:
		return "background only"
	case OverlayOnly:
		return "overlay only"
	case BackgroundAndOverlay:
		return "background and overlay"
	}
	return "no volume"
}

// Frame is one complete redraw of the three planes
type Frame struct {
	Axial    *image.RGBA
	Coronal  *image.RGBA
	Sagittal *image.RGBA
	Cursor   models.Cursor
	Coords   [3]string
	Cutoff   threshold.Cutoff
}

// Params configures a Controller
type Params struct {
	// Fetcher retrieves volume bytes
	Fetcher fetch.Fetcher

	// Decode turns bytes into a volume; defaults to nifti.Decode
	Decode func([]byte) (*models.Volume, error)

	// Render and Threshold are the initial display settings
	Render    models.RenderSpec
	Threshold threshold.Spec

	// OnRedraw receives every frame; may be nil
	OnRedraw func(Frame)

	// Logger receives load and discard notices; nil disables logging
	Logger *log.Logger
}

// Controller is the interaction state machine
type Controller struct {
	fetcher  fetch.Fetcher
	decode   func([]byte) (*models.Volume, error)
	onRedraw func(Frame)
	logger   *log.Logger

	background slot
	overlay    slot
	bgStarted  bool

	dims     models.Dims
	haveDims bool
	cursor   models.Cursor
	text     [3]string

	render    models.RenderSpec
	thrSpec   threshold.Spec
	engine    *threshold.Engine
	composite *visualization.Compositor

	completions chan completion
	done        chan struct{}
	closeOnce   sync.Once

	redraws int
	last    *Frame
}

// NewController creates a controller with no volumes
func NewController(params *Params) *Controller {
	decode := params.Decode
	if decode == nil {
		decode = nifti.Decode
	}
	return &Controller{
		fetcher:     params.Fetcher,
		decode:      decode,
		onRedraw:    params.OnRedraw,
		logger:      params.Logger,
		render:      params.Render,
		thrSpec:     params.Threshold,
		engine:      threshold.NewEngine(),
		composite:   visualization.NewCompositor(),
		completions: make(chan completion, 8),
		done:        make(chan struct{}),
	}
}

// LoadBackground starts the one background load of the controller's
// lifetime. It returns false if a background load was already started.
func (c *Controller) LoadBackground(ctx context.Context, ref string) bool {
	if c.bgStarted {
		return false
	}
	c.bgStarted = true
	c.start(ctx, BackgroundSlot, ref)
	return true
}

// LoadOverlay starts loading ref into the overlay slot, superseding any
// in-flight overlay load. An empty ref clears the slot.
func (c *Controller) LoadOverlay(ctx context.Context, ref string) {
	if ref == "" {
		hadOverlay := c.overlay.vol != nil || c.overlay.loading || c.overlay.err != nil
		c.overlay.clear()
		if hadOverlay {
			c.refreshText()
			c.redraw()
		}
		return
	}
	c.start(ctx, OverlaySlot, ref)
}

func (c *Controller) slot(kind SlotKind) *slot {
	if kind == OverlaySlot {
		return &c.overlay
	}
	return &c.background
}

// start launches a load; the goroutine only fetches, decodes and posts
func (c *Controller) start(ctx context.Context, kind SlotKind, ref string) {
	lctx, cancel := context.WithCancel(ctx)
	gen := c.slot(kind).begin(ref, cancel)
	c.logf("loading %s from %s", kind, ref)

	go func() {
		result := completion{kind: kind, gen: gen}
		data, err := c.fetcher.Fetch(lctx, ref)
		if err == nil {
			result.vol, result.err = c.decode(data)
		} else {
			result.err = err
		}

		select {
		case c.completions <- result:
		case <-c.done:
		}
	}()
}

// Poll commits every completion already delivered without blocking and
// returns how many were committed (stale results are not counted)
func (c *Controller) Poll() int {
	n := 0
	for {
		select {
		case comp := <-c.completions:
			if c.commit(comp) {
				n++
			}
		default:
			return n
		}
	}
}

// Wait blocks for the next completion and commits it. It reports whether the
// completion was current.
func (c *Controller) Wait(ctx context.Context) (bool, error) {
	select {
	case comp := <-c.completions:
		return c.commit(comp), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// WaitIdle commits completions until no slot has a load in flight
func (c *Controller) WaitIdle(ctx context.Context) error {
	for c.background.loading || c.overlay.loading {
		if _, err := c.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// commit applies a completion if its generation is still current
func (c *Controller) commit(comp completion) bool {
	s := c.slot(comp.kind)
	if comp.gen != s.gen {
		c.logf("discarding stale %s load (generation %d, current %d)", comp.kind, comp.gen, s.gen)
		return false
	}

	s.loading = false
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if comp.err != nil {
		s.vol = nil
		s.excluded = false
		s.err = comp.err
		c.logf("%s: %s", comp.kind, message(comp.err))
		c.refreshText()
		c.redraw()
		return true
	}

	s.vol = comp.vol
	s.err = nil
	if !c.haveDims {
		c.dims = comp.vol.Dims
		c.haveDims = true
		s.excluded = false
		c.cursor = models.Center(c.dims)
	} else {
		s.excluded = comp.vol.Dims != c.dims
		if s.excluded {
			c.logf("%s dims %s differ from %s; excluded from rendering", comp.kind, comp.vol.Dims, c.dims)
		}
	}
	c.refreshText()
	c.redraw()
	return true
}

// mapper uses the background spacing when available, else the overlay's
func (c *Controller) mapper() coords.Mapper {
	spacing := models.Spacing{X: 1, Y: 1, Z: 1}
	switch {
	case c.background.vol != nil && !c.background.excluded:
		spacing = c.background.vol.Spacing
	case c.overlay.vol != nil && !c.overlay.excluded:
		spacing = c.overlay.vol.Spacing
	}
	return coords.New(c.dims, spacing)
}

// refreshText re-derives the three coordinate fields from the cursor
func (c *Controller) refreshText() {
	if c.haveDims {
		c.text = c.mapper().Text(c.cursor)
	}
}

// setCursor clamps and stores cur, re-deriving the text fields. It reports
// whether the cursor changed.
func (c *Controller) setCursor(cur models.Cursor) bool {
	cur = cur.Clamp(c.dims)
	changed := cur != c.cursor
	c.cursor = cur
	c.refreshText()
	return changed
}

// PointerClick moves the cursor to the voxel under raster pixel (x, y) of the
// plane orthogonal to axis. Only the two in-plane indices change. Clicks
// outside the raster are ignored.
func (c *Controller) PointerClick(axis models.Axis, x, y int) bool {
	if !c.haveDims || !axis.Valid() {
		return false
	}
	w, h := visualization.PlaneSize(c.dims, axis)
	if x < 0 || x >= w || y < 0 || y >= h {
		return false
	}

	horiz, vert := visualization.PlaneAxes(axis)
	next := c.cursor.
		With(horiz, visualization.ColumnToIndex(c.dims, axis, x)).
		With(vert, visualization.RowToIndex(c.dims, axis, y))
	if c.setCursor(next) {
		c.redraw()
	}
	return true
}

// CoordinateEntry moves the cursor along axis to the voxel nearest the mm
// coordinate in text. Text that is not a finite number (including partial
// input such as "" or "-") is ignored.
func (c *Controller) CoordinateEntry(axis models.Axis, text string) bool {
	if !c.haveDims || !axis.Valid() {
		return false
	}
	v, ok := parseCoord(text)
	if !ok {
		return false
	}
	if c.setCursor(c.cursor.With(axis, c.mapper().CoordToIndex(axis, v))) {
		c.redraw()
	}
	return true
}

func parseCoord(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" || s == "-" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// SetRenderSpec updates blending and redraws if it changed
func (c *Controller) SetRenderSpec(r models.RenderSpec) {
	if r == c.render {
		return
	}
	c.render = r
	c.redraw()
}

// SetThresholdSpec updates the threshold rule and redraws if it changed
func (c *Controller) SetThresholdSpec(s threshold.Spec) {
	if s == c.thrSpec {
		return
	}
	c.thrSpec = s
	c.redraw()
}

// View returns the current view aggregate with its cutoff resolved
func (c *Controller) View() visualization.ViewState {
	view := visualization.ViewState{
		Dims:       c.dims,
		Background: c.background.vol,
		Cursor:     c.cursor,
		Render:     c.render,
	}
	if c.overlay.vol != nil && !c.overlay.excluded {
		view.Overlay = c.overlay.vol
	}
	view.Cutoff = c.engine.Cutoff(view.Overlay, c.thrSpec)
	return view
}

// redraw renders all three planes and hands the frame to the listener
func (c *Controller) redraw() {
	if !c.haveDims {
		return
	}
	view := c.View()
	axial, coronal, sagittal, err := c.composite.RenderAll(view)
	if err != nil {
		c.logf("redraw failed: %v", err)
		return
	}

	c.redraws++
	c.last = &Frame{
		Axial:    axial,
		Coronal:  coronal,
		Sagittal: sagittal,
		Cursor:   c.cursor,
		Coords:   c.text,
		Cutoff:   view.Cutoff,
	}
	if c.onRedraw != nil {
		c.onRedraw(*c.last)
	}
}

// Close cancels in-flight loads and releases their goroutines
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		for _, s := range []*slot{&c.background, &c.overlay} {
			if s.cancel != nil {
				s.cancel()
			}
		}
		close(c.done)
	})
}

// State reports which volumes currently take part in rendering
func (c *Controller) State() State {
	bg := c.background.vol != nil && !c.background.excluded
	ov := c.overlay.vol != nil && !c.overlay.excluded
	switch {
	case bg && ov:
		return BackgroundAndOverlay
	case bg:
		return BackgroundOnly
	case ov:
		return OverlayOnly
	}
	return NoVolume
}

// Background returns the background volume, nil until it has loaded
func (c *Controller) Background() *models.Volume {
	return c.background.vol
}

// Overlay returns the current overlay volume, including an excluded one
func (c *Controller) Overlay() *models.Volume {
	return c.overlay.vol
}

// Excluded reports whether the slot's volume is left out for mismatched dims
func (c *Controller) Excluded(kind SlotKind) bool {
	return c.slot(kind).excluded
}

// Loading reports whether the slot has a load in flight
func (c *Controller) Loading(kind SlotKind) bool {
	return c.slot(kind).loading
}

// SlotError returns the display message for a failed slot, or ""
func (c *Controller) SlotError(kind SlotKind) string {
	return message(c.slot(kind).err)
}

// Err returns the raw error of a failed slot
func (c *Controller) Err(kind SlotKind) error {
	return c.slot(kind).err
}

// Dims returns the established geometry and whether any volume has set it
func (c *Controller) Dims() (models.Dims, bool) {
	return c.dims, c.haveDims
}

// Cursor returns the current cursor
func (c *Controller) Cursor() models.Cursor {
	return c.cursor
}

// Coords returns the coordinate text fields for x, y and z
func (c *Controller) Coords() [3]string {
	return c.text
}

// DownloadRef returns the reference the current overlay was requested from
func (c *Controller) DownloadRef() string {
	return c.overlay.ref
}

// Cutoff returns the threshold that applies to the current overlay
func (c *Controller) Cutoff() threshold.Cutoff {
	return c.View().Cutoff
}

// ThresholdComputations returns how often the cutoff has been recomputed
func (c *Controller) ThresholdComputations() int {
	return c.engine.Computations()
}

// Redraws returns how many frames have been rendered
func (c *Controller) Redraws() int {
	return c.redraws
}

// LastFrame returns the most recent frame, or nil before the first redraw
func (c *Controller) LastFrame() *Frame {
	return c.last
}

func (c *Controller) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
