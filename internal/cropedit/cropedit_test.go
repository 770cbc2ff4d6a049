package cropedit

import (
	"errors"
	"testing"

	"github.com/example/keyshot/internal/geom"
)

func pt(x, y float64) geom.Point { return geom.Point{X: x, Y: y} }

func dragTo(e *Editor, from, to geom.Point) {
	e.PointerDown(from)
	e.PointerMove(to)
	e.PointerUp(to)
}

func mustCrop(t *testing.T, e *Editor) geom.Rect {
	t.Helper()
	r, ok := e.Crop()
	if !ok {
		t.Fatal("expected a crop rectangle")
	}
	return r
}

func checkInvariants(t *testing.T, e *Editor) {
	t.Helper()
	r, ok := e.Crop()
	if !ok {
		return
	}
	if r.W < MinSize || r.H < MinSize {
		t.Fatalf("crop %v smaller than %d", r, MinSize)
	}
}

func TestCreateClampsToBounds(t *testing.T) {
	e := New(800, 600)
	e.PointerDown(pt(700, 500))
	if e.State() != Creating {
		t.Fatalf("state = %v", e.State())
	}
	e.PointerMove(pt(900, 700))
	e.PointerUp(pt(900, 700))
	if got := mustCrop(t, e); got != (geom.Rect{X: 700, Y: 500, W: 100, H: 100}) {
		t.Fatalf("crop = %v", got)
	}
	if e.State() != Idle {
		t.Fatalf("state after release = %v", e.State())
	}
}

func TestCreateBackwardsDrag(t *testing.T) {
	e := New(800, 600)
	dragTo(e, pt(300, 300), pt(100, 200))
	if got := mustCrop(t, e); got != (geom.Rect{X: 100, Y: 200, W: 200, H: 100}) {
		t.Fatalf("crop = %v", got)
	}
}

func TestTinyCreationIsDropped(t *testing.T) {
	e := New(800, 600)
	dragTo(e, pt(10, 10), pt(15, 100))
	if _, ok := e.Crop(); ok {
		t.Fatal("creation under MinSize must not leave a rectangle")
	}
}

func TestOutsidePressDiscardsOldRectangle(t *testing.T) {
	e := New(800, 600)
	dragTo(e, pt(100, 100), pt(300, 250))
	dragTo(e, pt(500, 400), pt(600, 500))
	if got := mustCrop(t, e); got != (geom.Rect{X: 500, Y: 400, W: 100, H: 100}) {
		t.Fatalf("crop = %v, want only the new drag", got)
	}
}

func TestMoveStaysInsideBounds(t *testing.T) {
	e := New(800, 600)
	if err := e.SetCrop(geom.Rect{X: 100, Y: 100, W: 200, H: 150}); err != nil {
		t.Fatal(err)
	}
	e.PointerDown(pt(200, 175))
	if e.State() != Moving {
		t.Fatalf("state = %v", e.State())
	}
	for _, p := range []geom.Point{pt(2000, 175), pt(-900, -900), pt(750, 590)} {
		e.PointerMove(p)
		r := mustCrop(t, e)
		if !r.Within(e.Bounds()) || r.W != 200 || r.H != 150 {
			t.Fatalf("after move to %v crop = %v", p, r)
		}
	}
	e.PointerUp(pt(750, 590))
	if got := mustCrop(t, e); got != (geom.Rect{X: 600, Y: 450, W: 200, H: 150}) {
		t.Fatalf("crop = %v", got)
	}
	checkInvariants(t, e)
}

func TestResizeRejectsAxisBelowMinimum(t *testing.T) {
	e := New(800, 600)
	if err := e.SetCrop(geom.Rect{X: 100, Y: 100, W: 200, H: 150}); err != nil {
		t.Fatal(err)
	}
	e.PointerDown(pt(300, 250))
	if e.State() != Resizing {
		t.Fatalf("state = %v", e.State())
	}
	// x would collapse, y keeps following the pointer.
	e.PointerMove(pt(105, 280))
	r := mustCrop(t, e)
	if r.W != 200 || r.X != 100 {
		t.Fatalf("x axis should be rejected, got %v", r)
	}
	if r.H != 180 {
		t.Fatalf("y axis should update, got %v", r)
	}
	e.PointerUp(pt(105, 280))
	checkInvariants(t, e)
}

func TestResizeEdgeHandleMovesOneEdge(t *testing.T) {
	e := New(800, 600)
	if err := e.SetCrop(geom.Rect{X: 100, Y: 100, W: 200, H: 150}); err != nil {
		t.Fatal(err)
	}
	dragTo(e, pt(100, 175), pt(50, 400))
	if got := mustCrop(t, e); got != (geom.Rect{X: 50, Y: 100, W: 250, H: 150}) {
		t.Fatalf("crop = %v", got)
	}
}

func TestCornerWinsOverEdge(t *testing.T) {
	e := New(800, 600)
	// A small crop puts the top edge midpoint within reach of the corner.
	if err := e.SetCrop(geom.Rect{X: 100, Y: 100, W: 10, H: 10}); err != nil {
		t.Fatal(err)
	}
	if h := e.HitTest(pt(102, 100)); h != HandleTopLeft {
		t.Fatalf("hit = %v", h)
	}
}

func TestCursorFeedback(t *testing.T) {
	e := New(800, 600)
	if c := e.Cursor(pt(10, 10)); c != CursorCrosshair {
		t.Fatalf("no crop cursor = %v", c)
	}
	if err := e.SetCrop(geom.Rect{X: 100, Y: 100, W: 200, H: 150}); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		p    geom.Point
		want Cursor
	}{
		{pt(100, 100), CursorNWSE},
		{pt(300, 250), CursorNWSE},
		{pt(300, 100), CursorNESW},
		{pt(100, 250), CursorNESW},
		{pt(200, 100), CursorNS},
		{pt(200, 250), CursorNS},
		{pt(100, 175), CursorEW},
		{pt(300, 175), CursorEW},
		{pt(200, 175), CursorMove},
		{pt(500, 500), CursorCrosshair},
	}
	for _, c := range cases {
		if got := e.Cursor(c.p); got != c.want {
			t.Errorf("Cursor(%v) = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestPointerLeaveCommits(t *testing.T) {
	e := New(800, 600)
	e.PointerDown(pt(10, 10))
	e.PointerMove(pt(110, 60))
	e.PointerLeave()
	if e.State() != Idle {
		t.Fatalf("state = %v", e.State())
	}
	if got := mustCrop(t, e); got != (geom.Rect{X: 10, Y: 10, W: 100, H: 50}) {
		t.Fatalf("crop = %v", got)
	}
	e.PointerMove(pt(400, 400))
	if got := mustCrop(t, e); got.W != 100 {
		t.Fatal("move after leave must not change the crop")
	}
}

func TestValidate(t *testing.T) {
	r, err := Validate(geom.Rect{X: 790, Y: -20, W: -100, H: 100}, 800, 600)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if r != (geom.Rect{X: 690, Y: 0, W: 100, H: 80}) {
		t.Fatalf("Validate = %v", r)
	}
	if _, err := Validate(geom.Rect{X: 795, Y: 0, W: 50, H: 50}, 800, 600); !errors.Is(err, ErrInvalidCrop) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetBoundsDropsCropThatNoLongerFits(t *testing.T) {
	e := New(800, 600)
	if err := e.SetCrop(geom.Rect{X: 700, Y: 500, W: 100, H: 100}); err != nil {
		t.Fatal(err)
	}
	e.SetBounds(400, 300)
	if _, ok := e.Crop(); ok {
		t.Fatal("crop outside the new bounds should be dropped")
	}
}
