// Package export turns a rendered frame into one flattened key image: it
// decides the output window, composites the bitmap with the normalized
// overlay and encodes the result.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/semaphore"

	"github.com/example/keyshot/internal/geom"
	"github.com/example/keyshot/internal/overlay"
)

// DefaultPadding is the margin added around auto-expanded windows.
const DefaultPadding = 5

// Metadata identifies the exported image.
type Metadata struct {
	StudyID  string `json:"studyId"`
	SeriesID string `json:"seriesId"`
	ImageID  string `json:"imageId"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Scene is everything one export reads. Bitmap and Overlay are live handles;
// the exporter works on its own copies.
type Scene struct {
	Bitmap   image.Image
	Overlay  *overlay.Overlay
	Geometry geom.DisplayGeometry
	// Extents are display-space bounds of the overlay content. When nil they
	// are estimated from the overlay itself.
	Extents  []geom.Rect
	Crop     *geom.Rect
	Metadata Metadata
}

// Options control the look and encoding of exports.
type Options struct {
	Padding    int
	Format     Format
	Style      overlay.Style
	Background color.Color
}

// DefaultOptions returns PNG output on black with the standard overlay style.
func DefaultOptions() Options {
	return Options{
		Padding:    DefaultPadding,
		Format:     FormatPNG,
		Style:      overlay.DefaultStyle(),
		Background: color.Black,
	}
}

// Result is a finished export.
type Result struct {
	Payload  []byte
	Format   Format
	Window   Window
	Metadata Metadata
	// Warning is set when the export degraded to bitmap only.
	Warning error
}

// Exporter runs one export at a time.
type Exporter struct {
	opts Options
	sem  *semaphore.Weighted
}

// NewExporter returns an Exporter using opts.
func NewExporter(opts Options) *Exporter {
	if opts.Format == "" {
		opts.Format = FormatPNG
	}
	if opts.Background == nil {
		opts.Background = color.Black
	}
	return &Exporter{opts: opts, sem: semaphore.NewWeighted(1)}
}

// Options returns the exporter's settings.
func (e *Exporter) Options() Options { return e.opts }

// Export produces the key image for s. A call made while another is running
// fails with ErrExportInFlight.
func (e *Exporter) Export(ctx context.Context, s Scene) (*Result, error) {
	if !e.sem.TryAcquire(1) {
		return nil, ErrExportInFlight
	}
	defer e.sem.Release(1)

	if s.Bitmap == nil {
		return nil, fmt.Errorf("%w: no bitmap", ErrSurfaceUnavailable)
	}
	if s.Overlay == nil {
		return nil, fmt.Errorf("%w: no overlay", ErrSurfaceUnavailable)
	}
	if !s.Geometry.Valid() {
		return nil, fmt.Errorf("export: %w", geom.ErrInvalidGeometry)
	}

	bitmap := imaging.Clone(s.Bitmap)
	live := s.Overlay.Clone()
	extents := s.Extents
	if extents == nil {
		extents = live.Extents()
	}

	win, err := OutputWindow(bitmap.Bounds(), s.Crop, s.Geometry, extents, e.opts.Padding)
	if err != nil {
		return nil, err
	}
	norm := overlay.Normalize(live, win.Native(), s.Geometry, e.opts.Style)

	img, warn := Compose(ctx, bitmap, norm, win, e.opts.Background)
	if warn != nil && !errors.Is(warn, ErrOverlayRasterization) {
		return nil, warn
	}
	if warn != nil {
		log.Printf("export: %v; writing bitmap only", warn)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, img, e.opts.Format); err != nil {
		return nil, err
	}
	md := s.Metadata
	md.Width, md.Height = win.W, win.H
	return &Result{
		Payload:  buf.Bytes(),
		Format:   e.opts.Format,
		Window:   win,
		Metadata: md,
		Warning:  warn,
	}, nil
}
