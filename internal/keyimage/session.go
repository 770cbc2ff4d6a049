// Package keyimage is the key-image editor session: it routes pointer events
// to the crop editor, runs exports against the rendering engine and hands the
// result to the uploader.
package keyimage

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"

	"github.com/example/keyshot/internal/cropedit"
	"github.com/example/keyshot/internal/export"
	"github.com/example/keyshot/internal/geom"
	"github.com/example/keyshot/internal/overlay"
)

// Engine is the rendering engine the session reads from.
type Engine interface {
	BitmapSurface() (*image.RGBA, error)
	VectorOverlay() (*overlay.Overlay, error)
	Camera() geom.Camera
	WorldToSurface(geom.Point) geom.Point
	SurfaceToWorld(geom.Point) geom.Point
	SurfaceSize() (int, int)
	ImageID() string
	Metadata() export.Metadata
}

// Resizer is implemented by engines that need the display size.
type Resizer interface {
	Resize(displayW, displayH float64)
}

// ExtentProvider is implemented by engines that know the bounds of the
// overlay they last produced.
type ExtentProvider interface {
	OverlayExtents() []geom.Rect
}

// Uploader ships a finished export.
type Uploader interface {
	Upload(ctx context.Context, res *export.Result) (map[string]any, error)
}

// ErrNoExport is returned by Upload before any export succeeded.
var ErrNoExport = errors.New("no export to upload")

// Session is one key-image editing session over an engine.
type Session struct {
	engine   Engine
	exporter *export.Exporter
	uploader Uploader
	editor   *cropedit.Editor

	mu       sync.Mutex
	geometry geom.DisplayGeometry
	last     *export.Result
	lastKey  frameKey
}

// frameKey is what an export depends on besides the bitmap pixels.
type frameKey struct {
	camera   geom.Camera
	geometry geom.DisplayGeometry
	crop     geom.Rect
	hasCrop  bool
	overlay  string
}

// New returns a session. uploader may be nil when uploads are not wanted.
func New(engine Engine, exporter *export.Exporter, uploader Uploader) *Session {
	if exporter == nil {
		exporter = export.NewExporter(export.DefaultOptions())
	}
	return &Session{
		engine:   engine,
		exporter: exporter,
		uploader: uploader,
		editor:   cropedit.New(0, 0),
	}
}

// Resize records a new display size. Geometry is recomputed from scratch;
// nothing from the previous frame is reused.
func (s *Session) Resize(displayW, displayH float64) error {
	if r, ok := s.engine.(Resizer); ok {
		r.Resize(displayW, displayH)
	}
	nw, nh := s.engine.SurfaceSize()
	g, err := geom.NewDisplayGeometry(nw, nh, displayW, displayH)
	if err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	s.mu.Lock()
	s.geometry = g
	s.mu.Unlock()
	s.editor.SetBounds(displayW, displayH)
	return nil
}

// Geometry returns the current display geometry.
func (s *Session) Geometry() geom.DisplayGeometry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geometry
}

// Transform returns the conversions for the current frame.
func (s *Session) Transform() (geom.Transform, error) {
	return geom.NewTransform(s.engine, s.Geometry())
}

// Crop editor events, in display space.

func (s *Session) PointerDown(x, y float64) { s.editor.PointerDown(geom.Pt(x, y)) }
func (s *Session) PointerMove(x, y float64) { s.editor.PointerMove(geom.Pt(x, y)) }
func (s *Session) PointerUp(x, y float64) { s.editor.PointerUp(geom.Pt(x, y)) }
func (s *Session) PointerLeave() { s.editor.PointerLeave() }

// Cursor returns the pointer shape to show at (x, y).
func (s *Session) Cursor(x, y float64) cropedit.Cursor { return s.editor.Cursor(geom.Pt(x, y)) }

// Crop returns the crop rectangle in display space, if one is set.
func (s *Session) Crop() (geom.Rect, bool) { return s.editor.Crop() }

// SetCrop sets the crop rectangle directly.
func (s *Session) SetCrop(r geom.Rect) error {
	if err := s.editor.SetCrop(r); err != nil {
		return fmt.Errorf("%w: %w", export.ErrInvalidCropGeometry, err)
	}
	return nil
}

// ClearCrop removes the crop rectangle.
func (s *Session) ClearCrop() { s.editor.Clear() }

// Editor exposes the crop editor for drawing its handles.
func (s *Session) Editor() *cropedit.Editor { return s.editor }

// StartExport renders the key image for the current frame and crop. A
// failure to draw the overlay is not fatal: the result carries a Warning.
func (s *Session) StartExport(ctx context.Context) (*export.Result, error) {
	bitmap, err := s.engine.BitmapSurface()
	if err != nil || bitmap == nil {
		return nil, fmt.Errorf("%w: bitmap: %v", export.ErrSurfaceUnavailable, err)
	}
	ov, err := s.engine.VectorOverlay()
	if err != nil || ov == nil {
		return nil, fmt.Errorf("%w: overlay: %v", export.ErrSurfaceUnavailable, err)
	}
	key := frameKey{camera: s.engine.Camera(), geometry: s.Geometry(), overlay: ov.String()}
	scene := export.Scene{
		Bitmap:   bitmap,
		Overlay:  ov,
		Geometry: s.Geometry(),
		Metadata: s.engine.Metadata(),
	}
	if ep, ok := s.engine.(ExtentProvider); ok {
		scene.Extents = ep.OverlayExtents()
	}
	if r, ok := s.editor.Crop(); ok && s.editor.State() == cropedit.Idle {
		scene.Crop = &r
		key.crop, key.hasCrop = r, true
	}
	res, err := s.exporter.Export(ctx, scene)
	if err != nil {
		return nil, err
	}
	if res.Warning != nil {
		log.Printf("keyimage: exported %s without overlay: %v", res.Metadata.ImageID, res.Warning)
	}
	s.mu.Lock()
	s.last, s.lastKey = res, key
	s.mu.Unlock()
	return res, nil
}

// Current reports whether the last export still matches what the engine and
// crop editor would produce now. It is false before the first export.
func (s *Session) Current() bool {
	s.mu.Lock()
	last, key := s.last, s.lastKey
	s.mu.Unlock()
	if last == nil {
		return false
	}
	ov, err := s.engine.VectorOverlay()
	if err != nil || ov == nil {
		return false
	}
	now := frameKey{camera: s.engine.Camera(), geometry: s.Geometry(), overlay: ov.String()}
	if r, ok := s.editor.Crop(); ok && s.editor.State() == cropedit.Idle {
		now.crop, now.hasCrop = r, true
	}
	return now == key
}

// LastResult returns the most recent successful export.
func (s *Session) LastResult() *export.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Upload sends the most recent export. The export is kept on failure so the
// caller can retry.
func (s *Session) Upload(ctx context.Context) (map[string]any, error) {
	if s.uploader == nil {
		return nil, errors.New("no uploader configured")
	}
	res := s.LastResult()
	if res == nil {
		return nil, ErrNoExport
	}
	return s.uploader.Upload(ctx, res)
}
