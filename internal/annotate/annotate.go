// Package annotate turns stored annotations into overlay elements for the
// current view. Output is in display space, so the overlay it builds lines up
// with the on-screen image at the frame's zoom.
package annotate

import (
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/example/keyshot/internal/annotation"
	"github.com/example/keyshot/internal/geom"
	"github.com/example/keyshot/internal/overlay"
)

var (
	// ErrUnknownKind is returned for annotation kinds no renderer handles.
	ErrUnknownKind = errors.New("unknown annotation kind")
	// ErrTooFewPoints is returned when an annotation lacks its anchor points.
	ErrTooFewPoints = errors.New("annotation has too few points")
)

// Two-pass paint: a dark outline under a light fill.
const (
	OutlineColor = "#000000"
	FillColor    = "#ffffff"
	// OutlineExtra is added to the base stroke width for the outline pass.
	OutlineExtra = 2
	// PreviewRadius is the dot drawn for an arrow that has only its tail.
	PreviewRadius = 3
	// ArrowheadID names the marker the arrow shafts reference.
	ArrowheadID = "arrowhead"
)

// Frame is the view an annotation is drawn for.
type Frame struct {
	ImageID   string
	Zoom      float64
	Transform geom.Transform
}

func (f Frame) zoom() float64 {
	if f.Zoom <= 0 || math.IsNaN(f.Zoom) {
		return 1
	}
	return f.Zoom
}

// Primitive is one drawable element and its display-space extent.
type Primitive struct {
	Element *overlay.Element
	Bounds  geom.Rect
}

// Renderer draws annotations. The store supplies the current text of text
// annotations and keeps their measured box sizes between frames.
type Renderer struct {
	store   annotation.Store
	measure measureFunc
}

// New returns a Renderer backed by store. store may be nil, in which case
// text is taken from the annotation and sizes are measured every frame.
func New(store annotation.Store) *Renderer {
	return &Renderer{store: store, measure: measureText}
}

// Render draws a into primitives for f.
func (r *Renderer) Render(a annotation.Annotation, f Frame) ([]Primitive, error) {
	switch a.Kind {
	case annotation.KindArrow:
		return r.renderArrow(a, f)
	case annotation.KindText:
		return r.renderText(a, f)
	}
	return nil, fmt.Errorf("%s: %w %q", a.ID, ErrUnknownKind, a.Kind)
}

// RenderOverlay builds the live overlay for list: a display-sized document
// holding every primitive in order, plus their extents. Annotations for other
// images and ones that fail to render are skipped.
func (r *Renderer) RenderOverlay(list []annotation.Annotation, f Frame) (*overlay.Overlay, []geom.Rect) {
	g := f.Transform.Geometry
	ov := overlay.New(g.DisplayWidth, g.DisplayHeight)
	ov.Append(arrowheadDefs())
	var extents []geom.Rect
	for _, a := range list {
		if a.ImageID != f.ImageID {
			log.Printf("annotate: skipping %s bound to image %q", a, a.ImageID)
			continue
		}
		prims, err := r.Render(a, f)
		if err != nil {
			log.Printf("annotate: %v", err)
			continue
		}
		for _, p := range prims {
			ov.Append(p.Element)
			if !p.Bounds.Empty() {
				extents = append(extents, p.Bounds)
			}
		}
	}
	return ov, extents
}

// arrowheadDefs declares the open arrowhead marker referenced by shafts so
// the live overlay is a complete SVG document on its own.
func arrowheadDefs() *overlay.Element {
	marker := overlay.NewElement("marker",
		"id", ArrowheadID,
		"viewBox", "0 0 10 10",
		"refX", "10", "refY", "5",
		"markerUnits", "strokeWidth",
		"markerWidth", "4", "markerHeight", "4",
		"orient", "auto",
	)
	marker.Append(overlay.NewElement("path", "d", "M 0 0 L 10 5 L 0 10", "fill", "none", "stroke", "context-stroke"))
	return overlay.NewElement("defs").Append(marker)
}

func withBounds(el *overlay.Element) Primitive {
	b, _ := overlay.Bounds(el)
	return Primitive{Element: el, Bounds: b}
}
