package render

import (
	"image"
	"image/color"
	"image/draw"
)

// HaloOptions configures the dark fringe drawn around overlay strokes and
// text so they read over bright and dark pixels alike.
type HaloOptions struct {
	// Spread grows the covered area by this many pixels before blurring.
	Spread int
	// Radius is the box blur radius applied to the grown mask.
	Radius  int
	Color   color.RGBA
	Opacity float64
}

// DefaultHaloOptions approximates two stacked 0.5px black drop shadows.
func DefaultHaloOptions() HaloOptions {
	return HaloOptions{
		Spread:  1,
		Radius:  1,
		Color:   color.RGBA{A: 255},
		Opacity: 1,
	}
}

// ApplyHalo returns a copy of layer with a halo painted underneath every
// non-transparent pixel. The result has the same bounds as layer.
func ApplyHalo(layer *image.RGBA, opts HaloOptions) *image.RGBA {
	if layer == nil {
		return nil
	}
	b := layer.Bounds()
	if b.Empty() || opts.Opacity <= 0 {
		return layer
	}
	opacity := opts.Opacity
	if opacity > 1 {
		opacity = 1
	}

	mask := image.NewGray(b.Sub(b.Min))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			a := layer.RGBAAt(x, y).A
			if a == 0 {
				continue
			}
			mask.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: a})
		}
	}
	mask = blurGray(dilateGray(mask, opts.Spread), opts.Radius)

	out := image.NewRGBA(b)
	col := opts.Color
	col.A = uint8(float64(col.A)*opacity + 0.5)
	if col.A > 0 {
		draw.DrawMask(out, b, image.NewUniform(col), image.Point{}, mask, image.Point{}, draw.Over)
	}
	draw.Draw(out, b, layer, b.Min, draw.Over)
	return out
}

// dilateGray replaces every pixel by the maximum within a square of the
// given radius.
func dilateGray(src *image.Gray, radius int) *image.Gray {
	if radius <= 0 {
		return src
	}
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	tmp := image.NewGray(bounds)
	dst := image.NewGray(bounds)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var m uint8
			for k := max(0, x-radius); k <= min(w-1, x+radius); k++ {
				m = max(m, src.Pix[y*src.Stride+k])
			}
			tmp.Pix[y*tmp.Stride+x] = m
		}
	}
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			var m uint8
			for k := max(0, y-radius); k <= min(h-1, y+radius); k++ {
				m = max(m, tmp.Pix[k*tmp.Stride+x])
			}
			dst.Pix[y*dst.Stride+x] = m
		}
	}
	return dst
}

func blurGray(src *image.Gray, radius int) *image.Gray {
	if radius <= 0 {
		out := image.NewGray(src.Bounds())
		copy(out.Pix, src.Pix)
		return out
	}
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	tmp := image.NewGray(bounds)
	dst := image.NewGray(bounds)

	for y := 0; y < h; y++ {
		rowStart := y * src.Stride
		tmpStart := y * tmp.Stride
		prefix := make([]int, w+1)
		for x := 0; x < w; x++ {
			prefix[x+1] = prefix[x] + int(src.Pix[rowStart+x])
		}
		for x := 0; x < w; x++ {
			x0 := max(0, x-radius)
			x1 := min(w-1, x+radius)
			tmp.Pix[tmpStart+x] = uint8((prefix[x1+1] - prefix[x0]) / (x1 - x0 + 1))
		}
	}

	for x := 0; x < w; x++ {
		prefix := make([]int, h+1)
		for y := 0; y < h; y++ {
			prefix[y+1] = prefix[y] + int(tmp.Pix[y*tmp.Stride+x])
		}
		for y := 0; y < h; y++ {
			y0 := max(0, y-radius)
			y1 := min(h-1, y+radius)
			dst.Pix[y*dst.Stride+x] = uint8((prefix[y1+1] - prefix[y0]) / (y1 - y0 + 1))
		}
	}

	return dst
}
