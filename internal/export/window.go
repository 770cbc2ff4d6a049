package export

import (
	"fmt"
	"image"
	"math"

	"github.com/example/keyshot/internal/cropedit"
	"github.com/example/keyshot/internal/geom"
)

// Window is the output image area in native pixels. X and Y may be negative
// when annotations reach past the top-left of the bitmap.
type Window struct {
	X, Y, W, H int
}

// Rect returns the window as an image rectangle in bitmap coordinates.
func (w Window) Rect() image.Rectangle {
	return image.Rect(w.X, w.Y, w.X+w.W, w.Y+w.H)
}

// Native returns the window as a native-space rectangle.
func (w Window) Native() geom.Rect {
	return geom.Rect{X: float64(w.X), Y: float64(w.Y), W: float64(w.W), H: float64(w.H)}
}

func (w Window) String() string {
	return fmt.Sprintf("%dx%d%+d%+d", w.W, w.H, w.X, w.Y)
}

func windowFromRect(r image.Rectangle) Window {
	return Window{X: r.Min.X, Y: r.Min.Y, W: r.Dx(), H: r.Dy()}
}

// OutputWindow decides which native pixels the exported image covers.
//
// With a crop (display space) the window is the crop scaled to native
// pixels, exactly, without padding. Without one it is the bitmap, unless the
// display-space extents reach past it on any side; then it grows to hold both
// the bitmap and every extent, plus padding on all four sides.
func OutputWindow(bitmap image.Rectangle, crop *geom.Rect, g geom.DisplayGeometry, extents []geom.Rect, padding int) (Window, error) {
	if !g.Valid() {
		return Window{}, fmt.Errorf("%w: %w", ErrInvalidCropGeometry, geom.ErrInvalidGeometry)
	}
	if crop != nil {
		return cropWindow(*crop, g)
	}
	native := make([]geom.Rect, 0, len(extents))
	for _, e := range extents {
		if e.Empty() {
			continue
		}
		native = append(native, g.RectToNative(e))
	}
	u, ok := geom.UnionAll(native)
	if !ok {
		return windowFromRect(bitmap), nil
	}
	ext := image.Rect(
		int(math.Floor(u.X)), int(math.Floor(u.Y)),
		int(math.Ceil(u.X+u.W)), int(math.Ceil(u.Y+u.H)),
	)
	if ext.In(bitmap) {
		return windowFromRect(bitmap), nil
	}
	if padding < 0 {
		padding = 0
	}
	grown := ext.Union(bitmap).Inset(-padding)
	return windowFromRect(grown), nil
}

func cropWindow(c geom.Rect, g geom.DisplayGeometry) (Window, error) {
	for _, v := range []float64{c.X, c.Y, c.W, c.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Window{}, fmt.Errorf("%w: %v", ErrInvalidCropGeometry, c)
		}
	}
	if c.W < cropedit.MinSize || c.H < cropedit.MinSize {
		return Window{}, fmt.Errorf("%w: %v is smaller than %d px", ErrInvalidCropGeometry, c, cropedit.MinSize)
	}
	n := g.RectToNative(c)
	w := Window{
		X: int(math.Round(n.X)),
		Y: int(math.Round(n.Y)),
		W: int(math.Round(n.W)),
		H: int(math.Round(n.H)),
	}
	if w.W <= 0 || w.H <= 0 {
		return Window{}, fmt.Errorf("%w: %v maps to %v", ErrInvalidCropGeometry, c, w)
	}
	return w, nil
}
