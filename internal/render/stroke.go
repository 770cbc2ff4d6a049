package render

import (
	"image"
	"image/color"
	"math"
)

func setThickPixel(img *image.RGBA, x, y, thick int, col color.Color) {
	r := thick / 2
	for dx := -r; dx <= r; dx++ {
		for dy := -r; dy <= r; dy++ {
			px := x + dx
			py := y + dy
			if image.Pt(px, py).In(img.Bounds()) {
				img.Set(px, py, col)
			}
		}
	}
}

// Line draws a Bresenham line of the given thickness.
func Line(img *image.RGBA, x0, y0, x1, y1 int, col color.Color, thick int) {
	dx := math.Abs(float64(x1 - x0))
	dy := math.Abs(float64(y1 - y0))
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		setThickPixel(img, x0, y0, thick, col)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Rect outlines rect.
func Rect(img *image.RGBA, rect image.Rectangle, col color.Color, thick int) {
	Line(img, rect.Min.X, rect.Min.Y, rect.Max.X-1, rect.Min.Y, col, thick)
	Line(img, rect.Max.X-1, rect.Min.Y, rect.Max.X-1, rect.Max.Y-1, col, thick)
	Line(img, rect.Max.X-1, rect.Max.Y-1, rect.Min.X, rect.Max.Y-1, col, thick)
	Line(img, rect.Min.X, rect.Max.Y-1, rect.Min.X, rect.Min.Y, col, thick)
}

// DashedRect outlines rect with alternating c1/c2 dashes of length dash.
func DashedRect(img *image.RGBA, rect image.Rectangle, dash int, c1, c2 color.Color) {
	if dash <= 0 {
		dash = 4
	}
	step := func(i int) color.Color {
		if (i/dash)%2 == 0 {
			return c1
		}
		return c2
	}
	i := 0
	for x := rect.Min.X; x < rect.Max.X; x++ {
		img.Set(x, rect.Min.Y, step(i))
		i++
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		img.Set(rect.Max.X-1, y, step(i))
		i++
	}
	for x := rect.Max.X - 1; x >= rect.Min.X; x-- {
		img.Set(x, rect.Max.Y-1, step(i))
		i++
	}
	for y := rect.Max.Y - 1; y >= rect.Min.Y; y-- {
		img.Set(rect.Min.X, y, step(i))
		i++
	}
}
