package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/keyshot/internal/annotation"
	"github.com/example/keyshot/internal/engine"
	"github.com/example/keyshot/internal/export"
	"github.com/example/keyshot/internal/geom"
)

// sceneFlags are the options shared by export and view: which image, which
// annotations, and how the viewer shows them.
type sceneFlags struct {
	image       string
	annotations string
	study       string
	series      string
	sop         string
	width       float64
	height      float64
	scale       float64
	zoom        float64
	panX, panY  float64
	window      float64
	level       float64
}

func (s *sceneFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.image, "image", "", "image file to show (PNG, JPEG, GIF, BMP, TIFF or WebP)")
	fs.StringVar(&s.annotations, "annotations", "", "JSON annotation document for the image")
	fs.StringVar(&s.study, "study", "", "study instance UID (overrides the annotation document)")
	fs.StringVar(&s.series, "series", "", "series instance UID (overrides the annotation document)")
	fs.StringVar(&s.sop, "sop", "", "SOP instance UID of the image (overrides the annotation document)")
	fs.Float64Var(&s.width, "width", 0, "display width in pixels (default: image width)")
	fs.Float64Var(&s.height, "height", 0, "display height in pixels (default: image height)")
	fs.Float64Var(&s.scale, "scale", 1, "native pixels per display pixel")
	fs.Float64Var(&s.zoom, "zoom", 1, "zoom about the view centre")
	fs.Float64Var(&s.panX, "pan-x", 0, "horizontal pan in native pixels")
	fs.Float64Var(&s.panY, "pan-y", 0, "vertical pan in native pixels")
	fs.Float64Var(&s.window, "window", 0, "window width for contrast (0 leaves intensities alone)")
	fs.Float64Var(&s.level, "level", 0, "window centre for contrast")
}

// load opens the image and annotations and returns an engine sized for the
// display. Annotations without a style of their own take base.
func (s *sceneFlags) load(base annotation.Style) (*engine.Engine, error) {
	meta := export.Metadata{}
	var doc *annotation.Document
	if s.annotations != "" {
		var err error
		if doc, err = annotation.Load(s.annotations); err != nil {
			return nil, err
		}
		meta = export.Metadata{StudyID: doc.StudyID, SeriesID: doc.SeriesID, ImageID: doc.ImageID}
	}
	if s.study != "" {
		meta.StudyID = s.study
	}
	if s.series != "" {
		meta.SeriesID = s.series
	}
	if s.sop != "" {
		meta.ImageID = s.sop
	}

	store := annotation.NewMemoryStore()
	if doc != nil {
		for _, a := range doc.Annotations {
			// Annotations of the document's image follow a -sop override.
			if a.ImageID == doc.ImageID {
				a.ImageID = meta.ImageID
			}
			a.Style = a.Style.Inherit(base)
			store.Put(a)
		}
	}
	if meta.ImageID == "" {
		if ids := store.ImageIDs(); len(ids) == 1 {
			meta.ImageID = ids[0]
		}
	}

	eng, err := engine.Load(s.image, store, meta)
	if err != nil {
		return nil, err
	}
	eng.SetPixelRatio(s.scale)
	eng.SetCamera(geom.Camera{Zoom: s.zoom, Pan: geom.Pt(s.panX, s.panY), Window: s.window, Level: s.level})
	return eng, nil
}

// displaySize returns the requested display size, defaulting to the image
// size divided by the pixel ratio.
func (s *sceneFlags) displaySize(imgW, imgH int) (float64, float64) {
	w, h := s.width, s.height
	scale := s.scale
	if scale <= 0 {
		scale = 1
	}
	if w <= 0 {
		w = float64(imgW) / scale
	}
	if h <= 0 {
		h = float64(imgH) / scale
	}
	return w, h
}

// parseRect reads "x,y,w,h".
func parseRect(s string) (geom.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geom.Rect{}, fmt.Errorf("crop %q: want x,y,w,h", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Rect{}, fmt.Errorf("crop %q: %w", s, err)
		}
		v[i] = f
	}
	return geom.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}
