package geom

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGeometry is returned when a surface or display size is not positive.
var ErrInvalidGeometry = errors.New("invalid display geometry")

// DisplayGeometry relates the native bitmap grid to the display grid.
// Scale is native/display, so a display pixel covers Scale native pixels.
// Values are only built through NewDisplayGeometry so the sizes and both
// scale factors always come from the same resize.
type DisplayGeometry struct {
	NativeWidth, NativeHeight   int
	DisplayWidth, DisplayHeight float64
	ScaleX, ScaleY              float64
}

// NewDisplayGeometry derives the scale factors for a surface of
// nativeW x nativeH pixels presented at displayW x displayH.
func NewDisplayGeometry(nativeW, nativeH int, displayW, displayH float64) (DisplayGeometry, error) {
	if nativeW <= 0 || nativeH <= 0 {
		return DisplayGeometry{}, fmt.Errorf("%w: native size %dx%d", ErrInvalidGeometry, nativeW, nativeH)
	}
	if !(displayW > 0) || !(displayH > 0) || math.IsInf(displayW, 0) || math.IsInf(displayH, 0) {
		return DisplayGeometry{}, fmt.Errorf("%w: display size %gx%g", ErrInvalidGeometry, displayW, displayH)
	}
	return DisplayGeometry{
		NativeWidth:   nativeW,
		NativeHeight:  nativeH,
		DisplayWidth:  displayW,
		DisplayHeight: displayH,
		ScaleX:        float64(nativeW) / displayW,
		ScaleY:        float64(nativeH) / displayH,
	}, nil
}

// Valid reports whether g was produced by NewDisplayGeometry.
func (g DisplayGeometry) Valid() bool {
	return g.ScaleX > 0 && g.ScaleY > 0 && g.NativeWidth > 0 && g.NativeHeight > 0
}

// DisplayBounds is the full display frame.
func (g DisplayGeometry) DisplayBounds() Rect {
	return Rect{W: g.DisplayWidth, H: g.DisplayHeight}
}

// NativeBounds is the full native frame.
func (g DisplayGeometry) NativeBounds() Rect {
	return Rect{W: float64(g.NativeWidth), H: float64(g.NativeHeight)}
}

func (g DisplayGeometry) NativeToDisplay(p Point) Point {
	return Point{X: p.X / g.ScaleX, Y: p.Y / g.ScaleY}
}

func (g DisplayGeometry) DisplayToNative(p Point) Point {
	return Point{X: p.X * g.ScaleX, Y: p.Y * g.ScaleY}
}

// RectToNative scales a display-space rectangle into native space.
func (g DisplayGeometry) RectToNative(r Rect) Rect {
	return Rect{X: r.X * g.ScaleX, Y: r.Y * g.ScaleY, W: r.W * g.ScaleX, H: r.H * g.ScaleY}
}

// RectToDisplay scales a native-space rectangle into display space.
func (g DisplayGeometry) RectToDisplay(r Rect) Rect {
	return Rect{X: r.X / g.ScaleX, Y: r.Y / g.ScaleY, W: r.W / g.ScaleX, H: r.H / g.ScaleY}
}
