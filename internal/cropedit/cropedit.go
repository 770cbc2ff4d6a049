// Package cropedit is the direct-manipulation crop rectangle editor. It only
// produces a display-space rectangle; it never touches image or annotation
// data. Handlers are meant to run on the UI goroutine and are not reentrant.
package cropedit

import (
	"errors"
	"fmt"
	"math"

	"github.com/example/keyshot/internal/geom"
)

const (
	// HandleSize is the side of the square drawn for each resize handle.
	// A pointer within half of it from a handle point hits that handle.
	HandleSize = 8
	// MinSize is the smallest width or height a crop may have.
	MinSize = 10
)

// ErrInvalidCrop is returned by Validate for rectangles that cannot be used.
var ErrInvalidCrop = errors.New("invalid crop rectangle")

// State is the editor mode.
type State int

const (
	Idle State = iota
	Creating
	Moving
	Resizing
)

func (s State) String() string {
	switch s {
	case Creating:
		return "creating"
	case Moving:
		return "moving"
	case Resizing:
		return "resizing"
	}
	return "idle"
}

// Handle names a resize handle, in HandlePoints order after HandleNone.
type Handle int

const (
	HandleNone Handle = iota
	HandleTopLeft
	HandleTop
	HandleTopRight
	HandleRight
	HandleBottomRight
	HandleBottom
	HandleBottomLeft
	HandleLeft
)

// corner reports whether h is one of the four corner handles.
func (h Handle) corner() bool {
	switch h {
	case HandleTopLeft, HandleTopRight, HandleBottomRight, HandleBottomLeft:
		return true
	}
	return false
}

// edges reports which edges of the rectangle h moves.
func (h Handle) edges() (left, top, right, bottom bool) {
	switch h {
	case HandleTopLeft:
		return true, true, false, false
	case HandleTop:
		return false, true, false, false
	case HandleTopRight:
		return false, true, true, false
	case HandleRight:
		return false, false, true, false
	case HandleBottomRight:
		return false, false, true, true
	case HandleBottom:
		return false, false, false, true
	case HandleBottomLeft:
		return true, false, false, true
	case HandleLeft:
		return true, false, false, false
	}
	return
}

// Cursor is the pointer shape the host should show.
type Cursor string

const (
	CursorDefault   Cursor = "default"
	CursorCrosshair Cursor = "crosshair"
	CursorMove      Cursor = "move"
	CursorNWSE      Cursor = "nwse-resize"
	CursorNESW      Cursor = "nesw-resize"
	CursorNS        Cursor = "ns-resize"
	CursorEW        Cursor = "ew-resize"
)

func (h Handle) cursor() Cursor {
	switch h {
	case HandleTopLeft, HandleBottomRight:
		return CursorNWSE
	case HandleTopRight, HandleBottomLeft:
		return CursorNESW
	case HandleTop, HandleBottom:
		return CursorNS
	case HandleLeft, HandleRight:
		return CursorEW
	}
	return CursorDefault
}

// HandlePoints returns the centre of every handle of r, indexed like Handle
// minus one: tl, t, tr, r, br, b, bl, l.
func HandlePoints(r geom.Rect) [8]geom.Point {
	c := r.Center()
	lo, hi := r.Min(), r.Max()
	return [8]geom.Point{
		{X: lo.X, Y: lo.Y},
		{X: c.X, Y: lo.Y},
		{X: hi.X, Y: lo.Y},
		{X: hi.X, Y: c.Y},
		{X: hi.X, Y: hi.Y},
		{X: c.X, Y: hi.Y},
		{X: lo.X, Y: hi.Y},
		{X: lo.X, Y: c.Y},
	}
}

// HandleRects returns the squares drawn for each handle of r.
func HandleRects(r geom.Rect) [8]geom.Rect {
	var out [8]geom.Rect
	for i, p := range HandlePoints(r) {
		out[i] = geom.Rect{X: p.X - HandleSize/2, Y: p.Y - HandleSize/2, W: HandleSize, H: HandleSize}
	}
	return out
}

// drag is the state held between pointer-down and pointer-up.
type drag struct {
	state    State
	handle   Handle
	start    geom.Point
	original geom.Rect
}

// Editor holds the crop rectangle and the drag in progress.
type Editor struct {
	bounds  geom.Rect
	crop    geom.Rect
	hasCrop bool
	drag    *drag
}

// New returns an editor for a display surface of w x h.
func New(w, h float64) *Editor {
	e := &Editor{}
	e.SetBounds(w, h)
	return e
}

// SetBounds updates the surface size. An existing rectangle is pulled back
// inside, or dropped if it no longer fits.
func (e *Editor) SetBounds(w, h float64) {
	e.bounds = geom.Rect{W: math.Max(w, 0), H: math.Max(h, 0)}
	if !e.hasCrop {
		return
	}
	r, err := Validate(e.crop, e.bounds.W, e.bounds.H)
	if err != nil {
		e.Clear()
		return
	}
	e.crop = r
}

// Bounds returns the surface rectangle.
func (e *Editor) Bounds() geom.Rect { return e.bounds }

// State returns the current mode.
func (e *Editor) State() State {
	if e.drag == nil {
		return Idle
	}
	return e.drag.state
}

// Crop returns the rectangle, if any. While creating, the rectangle being
// dragged out is returned.
func (e *Editor) Crop() (geom.Rect, bool) {
	return e.crop, e.hasCrop
}

// SetCrop replaces the rectangle with r after validating it.
func (e *Editor) SetCrop(r geom.Rect) error {
	v, err := Validate(r, e.bounds.W, e.bounds.H)
	if err != nil {
		return err
	}
	e.crop, e.hasCrop, e.drag = v, true, nil
	return nil
}

// Clear drops the rectangle and any drag.
func (e *Editor) Clear() {
	e.crop, e.hasCrop, e.drag = geom.Rect{}, false, nil
}

// HitTest returns the handle under p, or HandleNone. Corners win over edges.
func (e *Editor) HitTest(p geom.Point) Handle {
	if !e.hasCrop {
		return HandleNone
	}
	pts := HandlePoints(e.crop)
	tol := float64(HandleSize) / 2
	hit := func(i int) bool {
		return math.Abs(p.X-pts[i].X) <= tol && math.Abs(p.Y-pts[i].Y) <= tol
	}
	for i := range pts {
		if h := Handle(i + 1); h.corner() && hit(i) {
			return h
		}
	}
	for i := range pts {
		if h := Handle(i + 1); !h.corner() && hit(i) {
			return h
		}
	}
	return HandleNone
}

// Cursor returns the pointer shape for p. During a drag the shape of the
// drag wins.
func (e *Editor) Cursor(p geom.Point) Cursor {
	if d := e.drag; d != nil {
		switch d.state {
		case Moving:
			return CursorMove
		case Resizing:
			return d.handle.cursor()
		}
		return CursorCrosshair
	}
	if h := e.HitTest(p); h != HandleNone {
		return h.cursor()
	}
	if e.hasCrop && e.crop.Contains(p) {
		return CursorMove
	}
	return CursorCrosshair
}

// PointerDown starts a drag at p.
func (e *Editor) PointerDown(p geom.Point) {
	if h := e.HitTest(p); h != HandleNone {
		e.drag = &drag{state: Resizing, handle: h, start: p, original: e.crop}
		return
	}
	if e.hasCrop && e.crop.Contains(p) {
		e.drag = &drag{state: Moving, start: p, original: e.crop}
		return
	}
	// Outside: the old rectangle is gone for good.
	start := clampPoint(p, e.bounds)
	e.crop = geom.Rect{X: start.X, Y: start.Y}
	e.hasCrop = true
	e.drag = &drag{state: Creating, start: start}
}

// PointerMove updates the drag in progress.
func (e *Editor) PointerMove(p geom.Point) {
	d := e.drag
	if d == nil {
		return
	}
	switch d.state {
	case Creating:
		e.crop = geom.RectFromPoints(d.start, clampPoint(p, e.bounds))
	case Moving:
		e.crop = e.moved(d, p)
	case Resizing:
		e.crop = e.resized(d, p)
	}
}

// PointerUp finishes the drag at p.
func (e *Editor) PointerUp(p geom.Point) {
	if e.drag == nil {
		return
	}
	e.PointerMove(p)
	e.commit()
}

// PointerLeave commits a drag in progress at its last position.
func (e *Editor) PointerLeave() {
	if e.drag == nil {
		return
	}
	e.commit()
}

func (e *Editor) commit() {
	d := e.drag
	e.drag = nil
	if d.state == Creating && (e.crop.W < MinSize || e.crop.H < MinSize) {
		e.crop, e.hasCrop = geom.Rect{}, false
	}
}

func (e *Editor) moved(d *drag, p geom.Point) geom.Rect {
	r := d.original.Translate(p.Sub(d.start))
	r.X = clamp(r.X, e.bounds.X, e.bounds.X+e.bounds.W-r.W)
	r.Y = clamp(r.Y, e.bounds.Y, e.bounds.Y+e.bounds.H-r.H)
	return r
}

// resized applies the handle's edge moves to the original rectangle. An axis
// whose new size would fall under MinSize keeps its current extent while the
// other axis still follows the pointer.
func (e *Editor) resized(d *drag, p geom.Point) geom.Rect {
	delta := p.Sub(d.start)
	o := d.original
	left, top, right, bottom := d.handle.edges()
	x0, x1 := o.X, o.X+o.W
	y0, y1 := o.Y, o.Y+o.H
	if left {
		x0 += delta.X
	}
	if right {
		x1 += delta.X
	}
	if top {
		y0 += delta.Y
	}
	if bottom {
		y1 += delta.Y
	}
	cur := e.crop
	if x1-x0 >= MinSize {
		cur.X, cur.W = x0, x1-x0
	}
	if y1-y0 >= MinSize {
		cur.Y, cur.H = y0, y1-y0
	}
	return cur
}

// Validate normalizes r, clamps it inside a w x h surface and rejects it if
// it is then smaller than MinSize on either axis.
func Validate(r geom.Rect, w, h float64) (geom.Rect, error) {
	for _, v := range []float64{r.X, r.Y, r.W, r.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return geom.Rect{}, fmt.Errorf("%w: %v", ErrInvalidCrop, r)
		}
	}
	b := geom.Rect{W: w, H: h}
	c := r.Normalize().Intersect(b)
	if c.W < MinSize || c.H < MinSize {
		return geom.Rect{}, fmt.Errorf("%w: %v smaller than %d px inside %gx%g", ErrInvalidCrop, r, MinSize, w, h)
	}
	return c, nil
}

func clampPoint(p geom.Point, b geom.Rect) geom.Point {
	return geom.Point{
		X: clamp(p.X, b.X, b.X+b.W),
		Y: clamp(p.Y, b.Y, b.Y+b.H),
	}
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}
