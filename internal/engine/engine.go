// Package engine is a small software rendering engine: it fits a still image
// into a native-resolution surface under a camera, applies window/level and
// draws the annotations of the image as a display-space vector overlay.
package engine

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	_ "golang.org/x/image/webp"

	"github.com/example/keyshot/internal/annotate"
	"github.com/example/keyshot/internal/annotation"
	"github.com/example/keyshot/internal/export"
	"github.com/example/keyshot/internal/geom"
	"github.com/example/keyshot/internal/overlay"
)

// ErrNoSurface is returned before the engine has been given a size.
var ErrNoSurface = errors.New("engine: surface has no size")

// Engine renders one image. It is safe for concurrent use.
type Engine struct {
	mu sync.RWMutex

	source   image.Image
	world    geom.Rect
	camera   geom.Camera
	meta     export.Metadata
	store    annotation.Store
	renderer *annotate.Renderer

	// pixelRatio is native pixels per display pixel.
	pixelRatio       float64
	displayW         float64
	displayH         float64
	nativeW, nativeH int

	mapper  geom.AffineMapper
	leveled *image.NRGBA
	levelOf geom.Camera
	surface *image.RGBA
	extents []geom.Rect
}

// New returns an engine for src. meta.ImageID selects the annotations drawn
// from store.
func New(src image.Image, store annotation.Store, meta export.Metadata) *Engine {
	if store == nil {
		store = annotation.NewMemoryStore()
	}
	b := src.Bounds()
	e := &Engine{
		source:     src,
		world:      geom.Rect{X: float64(b.Min.X), Y: float64(b.Min.Y), W: float64(b.Dx()), H: float64(b.Dy())},
		meta:       meta,
		store:      store,
		renderer:   annotate.New(store),
		pixelRatio: 1,
	}
	e.invalidateLocked()
	return e
}

// Load opens an image file (PNG, JPEG, GIF, BMP, TIFF or WebP).
func Load(path string, store annotation.Store, meta export.Metadata) (*Engine, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return New(img, store, meta), nil
}

// Store returns the annotation store the engine draws from.
func (e *Engine) Store() annotation.Store { return e.store }

// ImageSize returns the size of the source image in pixels.
func (e *Engine) ImageSize() (int, int) {
	b := e.source.Bounds()
	return b.Dx(), b.Dy()
}

// SetPixelRatio sets how many native pixels back one display pixel.
func (e *Engine) SetPixelRatio(r float64) {
	if r <= 0 || math.IsNaN(r) {
		r = 1
	}
	e.mu.Lock()
	e.pixelRatio = r
	e.mu.Unlock()
	if w, h := e.DisplaySize(); w > 0 && h > 0 {
		e.Resize(w, h)
	}
}

// Resize sets the display size; the native surface follows the pixel ratio.
func (e *Engine) Resize(displayW, displayH float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.displayW, e.displayH = displayW, displayH
	e.nativeW = int(math.Round(displayW * e.pixelRatio))
	e.nativeH = int(math.Round(displayH * e.pixelRatio))
	e.invalidateLocked()
}

// DisplaySize returns the last size passed to Resize.
func (e *Engine) DisplaySize() (float64, float64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.displayW, e.displayH
}

// SurfaceSize returns the native surface size in pixels.
func (e *Engine) SurfaceSize() (int, int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.nativeW, e.nativeH
}

// SetCamera replaces the camera. Annotation geometry is untouched; only the
// next render changes.
func (e *Engine) SetCamera(c geom.Camera) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.camera = c
	e.invalidateLocked()
}

func (e *Engine) Camera() geom.Camera {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.camera
}

func (e *Engine) ImageID() string { return e.meta.ImageID }

func (e *Engine) Metadata() export.Metadata { return e.meta }

func (e *Engine) invalidateLocked() {
	e.surface = nil
	vp := geom.Viewport{Camera: e.camera, World: e.world, NativeWidth: e.nativeW, NativeHeight: e.nativeH}
	m, err := vp.Mapper()
	if err != nil {
		m = geom.AffineMapper{Forward: geom.Identity, Inverse: geom.Identity}
	}
	e.mapper = m
}

func (e *Engine) WorldToSurface(p geom.Point) geom.Point {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mapper.WorldToSurface(p)
}

func (e *Engine) SurfaceToWorld(p geom.Point) geom.Point {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.mapper.SurfaceToWorld(p)
}

// Transform returns the conversions for the current frame.
func (e *Engine) Transform() (geom.Transform, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.transformLocked()
}

func (e *Engine) transformLocked() (geom.Transform, error) {
	g, err := geom.NewDisplayGeometry(e.nativeW, e.nativeH, e.displayW, e.displayH)
	if err != nil {
		return geom.Transform{}, err
	}
	return geom.NewTransform(e.mapper, g)
}

// BitmapSurface renders the image into the native surface. The returned
// image is shared until the next camera or size change; callers that keep
// it across frames must copy it.
func (e *Engine) BitmapSurface() (*image.RGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.nativeW <= 0 || e.nativeH <= 0 {
		return nil, ErrNoSurface
	}
	if e.surface != nil {
		return e.surface, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, e.nativeW, e.nativeH))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
	src := e.leveledLocked()
	m := e.mapper.Forward
	s2d := f64.Aff3{m.A, m.B, m.C, m.D, m.E, m.F}
	xdraw.BiLinear.Transform(dst, s2d, src, src.Bounds(), xdraw.Over, nil)
	e.surface = dst
	return dst, nil
}

// leveledLocked returns the source with the camera's window/level applied,
// reusing the previous result while window and level are unchanged.
func (e *Engine) leveledLocked() image.Image {
	if e.camera.Window <= 0 {
		return e.source
	}
	if e.leveled != nil && e.levelOf.Window == e.camera.Window && e.levelOf.Level == e.camera.Level {
		return e.leveled
	}
	e.leveled = ApplyWindowLevel(e.source, e.camera.Window, e.camera.Level)
	e.levelOf = e.camera
	return e.leveled
}

// ApplyWindowLevel maps intensities in [level-window/2, level+window/2] onto
// the full 0..255 range, clamping outside it.
func ApplyWindowLevel(src image.Image, window, level float64) *image.NRGBA {
	lo := level - window/2
	lut := make([]uint8, 256)
	for i := range lut {
		v := (float64(i) - lo) / window * 255
		lut[i] = uint8(math.Max(0, math.Min(255, math.Round(v))))
	}
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

// VectorOverlay draws the image's annotations for the current frame.
func (e *Engine) VectorOverlay() (*overlay.Overlay, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tr, err := e.transformLocked()
	if err != nil {
		return nil, fmt.Errorf("vector overlay: %w", err)
	}
	f := annotate.Frame{ImageID: e.meta.ImageID, Zoom: e.camera.EffectiveZoom(), Transform: tr}
	ov, extents := e.renderer.RenderOverlay(e.store.ForImage(e.meta.ImageID), f)
	e.extents = extents
	return ov, nil
}

// OverlayExtents returns the display-space extents of the last overlay.
func (e *Engine) OverlayExtents() []geom.Rect {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]geom.Rect(nil), e.extents...)
}
