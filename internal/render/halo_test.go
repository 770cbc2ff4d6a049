package render

import (
	"image"
	"image/color"
	"testing"
)

func TestApplyHaloDarkensNeighbours(t *testing.T) {
	layer := image.NewRGBA(image.Rect(0, 0, 9, 9))
	white := color.RGBA{255, 255, 255, 255}
	layer.SetRGBA(4, 4, white)

	out := ApplyHalo(layer, DefaultHaloOptions())
	if !out.Bounds().Eq(layer.Bounds()) {
		t.Fatalf("bounds changed: %v", out.Bounds())
	}
	if got := out.RGBAAt(4, 4); got != white {
		t.Fatalf("stroke pixel overwritten: %+v", got)
	}
	n := out.RGBAAt(5, 4)
	if n.A == 0 {
		t.Fatal("expected halo alpha next to the stroke")
	}
	if n.R != 0 || n.G != 0 || n.B != 0 {
		t.Fatalf("halo should be black, got %+v", n)
	}
	if far := out.RGBAAt(0, 0); far.A != 0 {
		t.Fatalf("halo leaked to the corner: %+v", far)
	}
}

func TestApplyHaloZeroOpacityReturnsLayer(t *testing.T) {
	layer := image.NewRGBA(image.Rect(0, 0, 4, 4))
	if out := ApplyHalo(layer, HaloOptions{Spread: 2, Radius: 2}); out != layer {
		t.Fatal("expected the input layer when opacity is zero")
	}
}

func TestDilateGraySpreadsMaximum(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 5, 5))
	g.SetGray(2, 2, color.Gray{Y: 200})
	d := dilateGray(g, 1)
	for y := 1; y <= 3; y++ {
		for x := 1; x <= 3; x++ {
			if d.GrayAt(x, y).Y != 200 {
				t.Fatalf("pixel (%d,%d) = %d", x, y, d.GrayAt(x, y).Y)
			}
		}
	}
	if d.GrayAt(0, 0).Y != 0 {
		t.Fatal("dilation reached beyond its radius")
	}
}

func TestBlurGraySpreadsAlpha(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 5, 1))
	g.SetGray(2, 0, color.Gray{Y: 255})
	b := blurGray(g, 1)
	if b.GrayAt(1, 0).Y == 0 || b.GrayAt(3, 0).Y == 0 {
		t.Fatal("expected blur to reach neighbours")
	}
	if b.GrayAt(0, 0).Y != 0 {
		t.Fatal("blur reached beyond its radius")
	}
}
