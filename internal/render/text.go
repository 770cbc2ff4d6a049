// Package render holds the pixel-level helpers shared by the overlay
// rasterizer and the viewer: text faces, halos and simple strokes.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

var (
	fontOnce sync.Once
	fontErr  error
	regular  *sfnt.Font

	faces sync.Map // map[float64]font.Face
)

func loadFont() {
	regular, fontErr = opentype.Parse(goregular.TTF)
}

// FaceForSize returns a Go regular face at size pixels. Faces are cached
// per size, rounded to a hundredth.
func FaceForSize(size float64) (font.Face, error) {
	fontOnce.Do(loadFont)
	if fontErr != nil {
		return nil, fmt.Errorf("parse font: %w", fontErr)
	}
	if size <= 0 || math.IsNaN(size) {
		return nil, fmt.Errorf("invalid font size %g", size)
	}
	size = math.Round(size*100) / 100
	if face, ok := faces.Load(size); ok {
		return face.(font.Face), nil
	}
	face, err := opentype.NewFace(regular, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, err
	}
	actual, _ := faces.LoadOrStore(size, face)
	return actual.(font.Face), nil
}

// Metrics describes a measured line of text in pixels.
type Metrics struct {
	Width    float64
	Ascent   float64
	Descent  float64
	Height   float64
	Baseline float64
}

// MeasureText returns the extent of text rendered at size.
func MeasureText(text string, size float64) (Metrics, error) {
	face, err := FaceForSize(size)
	if err != nil {
		return Metrics{}, err
	}
	drawer := &font.Drawer{Face: face}
	m := face.Metrics()
	ascent := fixedToFloat(m.Ascent)
	descent := fixedToFloat(m.Descent)
	return Metrics{
		Width:    fixedToFloat(drawer.MeasureString(text)),
		Ascent:   ascent,
		Descent:  descent,
		Height:   ascent + descent,
		Baseline: ascent,
	}, nil
}

// DrawText renders text with its baseline origin at (x, y).
func DrawText(dst draw.Image, x, y float64, text string, col color.Color, size float64) error {
	face, err := FaceForSize(size)
	if err != nil {
		return err
	}
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.Point26_6{X: floatToFixed(x), Y: floatToFixed(y)},
	}
	drawer.DrawString(text)
	return nil
}

// DrawTextOutlined draws text in outline colour at every offset within
// width pixels, then draws the fill on top.
func DrawTextOutlined(dst draw.Image, x, y float64, text string, fill, outline color.Color, size, width float64) error {
	r := int(math.Ceil(width))
	for dy := -r; dy <= r && width > 0; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx == 0 && dy == 0 || float64(dx*dx+dy*dy) > width*width {
				continue
			}
			if err := DrawText(dst, x+float64(dx), y+float64(dy), text, outline, size); err != nil {
				return err
			}
		}
	}
	return DrawText(dst, x, y, text, fill, size)
}

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }
