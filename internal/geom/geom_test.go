package geom

import (
	"errors"
	"math"
	"testing"
)

func TestNewDisplayGeometryScales(t *testing.T) {
	g, err := NewDisplayGeometry(1600, 1200, 800, 600)
	if err != nil {
		t.Fatalf("NewDisplayGeometry: %v", err)
	}
	if g.ScaleX != 2 || g.ScaleY != 2 {
		t.Fatalf("unexpected scale %gx%g", g.ScaleX, g.ScaleY)
	}
	got := g.RectToNative(Rect{X: 100, Y: 100, W: 200, H: 150})
	if want := (Rect{X: 200, Y: 200, W: 400, H: 300}); got != want {
		t.Fatalf("RectToNative = %v, want %v", got, want)
	}
}

func TestNewDisplayGeometryRejectsZero(t *testing.T) {
	cases := []struct {
		nw, nh int
		dw, dh float64
	}{
		{0, 10, 10, 10},
		{10, 10, 0, 10},
		{10, 10, 10, -1},
		{10, 10, math.NaN(), 10},
	}
	for _, c := range cases {
		if _, err := NewDisplayGeometry(c.nw, c.nh, c.dw, c.dh); !errors.Is(err, ErrInvalidGeometry) {
			t.Errorf("NewDisplayGeometry(%d,%d,%g,%g) err = %v", c.nw, c.nh, c.dw, c.dh, err)
		}
	}
}

func TestWorldDisplayRoundTrip(t *testing.T) {
	displays := [][2]float64{{800, 600}, {640, 480}, {333, 777}, {1920, 1080}}
	cameras := []Camera{
		{},
		{Zoom: 2.5, Pan: Pt(13, -40)},
		{Zoom: 0.3, Pan: Pt(-200, 7.5)},
	}
	points := []Point{{0, 0}, {255.5, 12}, {-40, 700}, {1e3, 1e3}}
	for _, d := range displays {
		g, err := NewDisplayGeometry(1600, 1200, d[0], d[1])
		if err != nil {
			t.Fatalf("geometry: %v", err)
		}
		for _, cam := range cameras {
			vp := Viewport{Camera: cam, World: Rect{W: 512, H: 512}, NativeWidth: 1600, NativeHeight: 1200}
			m, err := vp.Mapper()
			if err != nil {
				t.Fatalf("mapper: %v", err)
			}
			tr, err := NewTransform(m, g)
			if err != nil {
				t.Fatalf("transform: %v", err)
			}
			for _, p := range points {
				back := tr.DisplayToWorld(tr.WorldToDisplay(p))
				if !back.Near(p, 0.5) {
					t.Errorf("round trip %v -> %v (display %v, camera %+v)", p, back, d, cam)
				}
			}
		}
	}
}

func TestViewportCentresWorld(t *testing.T) {
	vp := Viewport{World: Rect{W: 512, H: 256}, NativeWidth: 1024, NativeHeight: 1024}
	got := vp.Affine().Apply(Pt(256, 128))
	if !got.Near(Pt(512, 512), 1e-9) {
		t.Fatalf("centre maps to %v", got)
	}
	zoomed := Viewport{Camera: Camera{Zoom: 2}, World: vp.World, NativeWidth: 1024, NativeHeight: 1024}
	corner := zoomed.Affine().Apply(Pt(0, 0))
	if !corner.Near(Pt(512-512*2, 512-256*2), 1e-9) {
		t.Fatalf("zoom about centre gave %v", corner)
	}
}

func TestAffineInvertSingular(t *testing.T) {
	if _, err := (Affine{}).Invert(); err == nil {
		t.Fatal("expected singular map to fail")
	}
}

func TestUnionAll(t *testing.T) {
	u, ok := UnionAll([]Rect{{X: -30, Y: 10, W: 10, H: 10}, {X: 500, Y: 0, W: 40, H: 5}})
	if !ok {
		t.Fatal("expected union")
	}
	if want := (Rect{X: -30, Y: 0, W: 570, H: 20}); u != want {
		t.Fatalf("UnionAll = %v, want %v", u, want)
	}
	if _, ok := UnionAll(nil); ok {
		t.Fatal("empty input should report !ok")
	}
}

func TestRectNormalizeAndContains(t *testing.T) {
	r := Rect{X: 10, Y: 10, W: -5, H: -5}.Normalize()
	if r != (Rect{X: 5, Y: 5, W: 5, H: 5}) {
		t.Fatalf("Normalize = %v", r)
	}
	if !r.Contains(Pt(10, 10)) || r.Contains(Pt(11, 10)) {
		t.Fatalf("Contains misreports edges for %v", r)
	}
}
