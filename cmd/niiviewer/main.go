package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"niiviewer/internal/models"
	"niiviewer/pkg/bookmarks"
	"niiviewer/pkg/config"
	"niiviewer/pkg/fetch"
	"niiviewer/pkg/nifti"
	"niiviewer/pkg/stats"
	"niiviewer/pkg/viewer"
	"niiviewer/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "niiviewer.yaml", "Configuration file")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	background := flag.String("background", "", "Background volume path or URL (overrides config)")
	overlay := flag.String("overlay", "", "Overlay volume path or URL; takes precedence over -query")
	query := flag.String("query", "", "Overlay map query (overrides config)")
	apiBase := flag.String("api", "", "Overlay map service base URL (overrides config)")
	thrMode := flag.String("threshold-mode", "", "Threshold mode: pctl or value (overrides config)")
	thrParam := flag.String("threshold", "", "Threshold parameter, raw text (overrides config)")
	opacity := flag.Float64("opacity", -1, "Overlay opacity 0-1 (overrides config)")
	xCoord := flag.String("x", "", "Move the cursor to this x coordinate in mm")
	yCoord := flag.String("y", "", "Move the cursor to this y coordinate in mm")
	zCoord := flag.String("z", "", "Move the cursor to this z coordinate in mm")
	click := flag.String("click", "", "Simulate a click as axis,x,y on a plane raster")
	outputDir := flag.String("output", "", "Directory for rendered planes (overrides config)")
	sequence := flag.String("sequence", "", "Also save every slice along this axis (x, y or z)")
	saveOverlay := flag.String("save-overlay", "", "Write the loaded overlay to this .nii or .nii.gz file")
	sortOrder := flag.String("bookmarks", "", "List bookmarks sorted by time, journal or year")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyOverrides(cfg, *background, *query, *apiBase, *thrMode, *thrParam, *opacity, *outputDir)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	spec, err := cfg.ThresholdSpec()
	if err != nil {
		log.Fatalf("Invalid threshold: %v", err)
	}
	if *thrParam != "" {
		// Raw text goes through unparsed so the mode's fallback applies
		spec.Param = *thrParam
	}

	fmt.Println("================================")
	fmt.Println("NIFTI SLICE VIEWER")
	fmt.Println("================================")

	var logger *log.Logger
	if cfg.Output.Verbose {
		logger = log.New(os.Stderr, "niiviewer: ", log.LstdFlags)
	}

	ctrl := viewer.NewController(&viewer.Params{
		Fetcher:   fetch.NewRouter(cfg.Timeout(), cfg.Viewer.DataRoot),
		Render:    cfg.Overlay,
		Threshold: spec,
		Logger:    logger,
	})
	defer ctrl.Close()

	overlayRef := *overlay
	if overlayRef == "" {
		overlayRef = cfg.Map.URL(cfg.Viewer.APIBase)
	}

	startTime := time.Now()
	if cfg.Viewer.BackgroundPath != "" {
		ctrl.LoadBackground(context.Background(), cfg.Viewer.BackgroundPath)
	}
	if overlayRef != "" {
		ctrl.LoadOverlay(context.Background(), overlayRef)
	}
	if err := ctrl.WaitIdle(context.Background()); err != nil {
		log.Fatalf("Loading interrupted: %v", err)
	}
	fmt.Printf("Volumes loaded in %.2f seconds\n", time.Since(startTime).Seconds())

	for _, kind := range []viewer.SlotKind{viewer.BackgroundSlot, viewer.OverlaySlot} {
		if msg := ctrl.SlotError(kind); msg != "" {
			fmt.Printf("%s: %s\n", kind, msg)
		}
		if ctrl.Excluded(kind) {
			fmt.Printf("%s: dimensions differ from the view, not shown\n", kind)
		}
	}

	dims, ok := ctrl.Dims()
	if !ok {
		log.Fatalf("No volume could be loaded")
	}

	for i, text := range []string{*xCoord, *yCoord, *zCoord} {
		if text != "" && !ctrl.CoordinateEntry(models.Axes[i], text) {
			log.Printf("Warning: ignoring %s coordinate %q", models.Axes[i], text)
		}
	}
	if *click != "" {
		if err := applyClick(ctrl, *click); err != nil {
			log.Printf("Warning: %v", err)
		}
	}

	cursor := ctrl.Cursor()
	text := ctrl.Coords()
	fmt.Printf("\nState: %s\n", ctrl.State())
	fmt.Printf("Dimensions: %s\n", dims)
	fmt.Printf("Cursor: voxel (%d, %d, %d) = (%s, %s, %s) mm\n",
		cursor.X, cursor.Y, cursor.Z, text[0], text[1], text[2])
	if cutoff := ctrl.Cutoff(); cutoff.Defined {
		fmt.Printf("Threshold cutoff: %.4g\n", cutoff.Value)
	}
	if ref := ctrl.DownloadRef(); ref != "" {
		fmt.Printf("Download: %s\n", ref)
	}

	fmt.Println("\nVolume statistics:")
	fmt.Println("==================")
	if bg := ctrl.Background(); bg != nil {
		fmt.Printf("Background: %s\n", stats.Summarize(bg))
	}
	if ov := ctrl.Overlay(); ov != nil {
		fmt.Printf("Overlay:    %s\n", stats.Summarize(ov))
	}

	if err := savePlanes(ctrl, cfg.Output.Dir, cfg.Output.Scale); err != nil {
		log.Fatalf("Failed to save planes: %v", err)
	}

	if *sequence != "" {
		axis, err := models.ParseAxis(*sequence)
		if err != nil {
			log.Fatalf("Invalid sequence axis: %v", err)
		}
		seqDir := filepath.Join(cfg.Output.Dir, axis.String())
		fmt.Printf("Saving %s-axis slices to: %s\n", axis, seqDir)
		if err := visualization.NewCompositor().SaveSliceSequence(ctrl.View(), axis, seqDir, cfg.Output.Scale); err != nil {
			log.Printf("Warning: Failed to save %s-axis slices: %v", axis, err)
		}
	}

	if *saveOverlay != "" {
		if err := writeOverlay(ctrl.Overlay(), *saveOverlay); err != nil {
			log.Fatalf("Failed to save overlay: %v", err)
		}
		fmt.Printf("Overlay saved to: %s\n", *saveOverlay)
	}

	if *sortOrder != "" {
		if err := listBookmarks(cfg.Output.BookmarksFile, bookmarks.Order(*sortOrder)); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
}

// applyOverrides copies non-empty flag values into the configuration
func applyOverrides(cfg *config.Config, background, query, apiBase, mode, param string, opacity float64, outputDir string) {
	if background != "" {
		cfg.Viewer.BackgroundPath = background
	}
	if query != "" {
		cfg.Map.Query = query
	}
	if apiBase != "" {
		cfg.Viewer.APIBase = apiBase
	}
	if mode != "" {
		cfg.Threshold.Mode = mode
	}
	if opacity >= 0 {
		cfg.Overlay.Opacity = opacity
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
}

// applyClick parses "axis,x,y" and forwards it to the controller
func applyClick(ctrl *viewer.Controller, spec string) error {
	parts := strings.Split(spec, ",")
	if len(parts) != 3 {
		return fmt.Errorf("click must be axis,x,y, got %q", spec)
	}
	axis, err := models.ParseAxis(parts[0])
	if err != nil {
		return err
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return fmt.Errorf("invalid click x: %w", err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return fmt.Errorf("invalid click y: %w", err)
	}
	if !ctrl.PointerClick(axis, x, y) {
		return fmt.Errorf("click (%d, %d) outside the %s plane", x, y, axis)
	}
	return nil
}

// savePlanes writes the last rendered frame as three PNGs
func savePlanes(ctrl *viewer.Controller, dir string, scale int) error {
	frame := ctrl.LastFrame()
	if frame == nil {
		return fmt.Errorf("nothing rendered")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	planes := []struct {
		name string
		img  *image.RGBA
	}{
		{"axial", frame.Axial},
		{"coronal", frame.Coronal},
		{"sagittal", frame.Sagittal},
	}

	fmt.Printf("\nSaving planes to: %s\n", dir)
	for _, p := range planes {
		if err := visualization.SavePNG(p.img, filepath.Join(dir, p.name+".png"), scale); err != nil {
			return err
		}
	}
	return nil
}

// writeOverlay exports the overlay as float32 NIfTI, gzipped for .gz names
func writeOverlay(vol *models.Volume, path string) error {
	if vol == nil {
		return fmt.Errorf("no overlay loaded")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := nifti.Encode(f, vol, nifti.Float32, strings.HasSuffix(path, ".gz")); err != nil {
		return err
	}
	return f.Close()
}

// listBookmarks prints the saved studies in the requested order
func listBookmarks(path string, order bookmarks.Order) error {
	if path == "" {
		return fmt.Errorf("no bookmarks file configured")
	}
	items, err := bookmarks.Load(path)
	if err != nil {
		return err
	}

	list := bookmarks.NewList(items, nil)
	fmt.Printf("\nBookmarks (%d, by %s):\n", list.Len(), order)
	for _, b := range list.Sorted(order) {
		fmt.Printf("- %s (%s %d)", b.DisplayTitle(), b.Journal, b.Year)
		if link := b.PubMedURL(); link != "" {
			fmt.Printf(" %s", link)
		}
		fmt.Println()
	}
	return nil
}
