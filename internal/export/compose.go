package export

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/example/keyshot/internal/overlay"
)

// Compose draws the window of bitmap and the normalized overlay into a new
// image of the window size. Areas of the window outside the bitmap are filled
// with bg. When the overlay cannot be drawn, the bitmap-only image is
// returned together with an error wrapping ErrOverlayRasterization.
func Compose(ctx context.Context, bitmap image.Image, ov *overlay.Overlay, win Window, bg color.Color) (*image.RGBA, error) {
	if win.W <= 0 || win.H <= 0 {
		return nil, fmt.Errorf("%w: empty output window %v", ErrInvalidCropGeometry, win)
	}
	if bg == nil {
		bg = color.Black
	}
	out := image.NewRGBA(image.Rect(0, 0, win.W, win.H))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	rect := win.Rect()
	src := rect.Intersect(bitmap.Bounds())
	if !src.Empty() {
		draw.Draw(out, src.Sub(rect.Min), bitmap, src.Min, draw.Src)
	}

	if ov == nil || ov.Empty() {
		return out, nil
	}
	layer, err := overlay.Rasterize(ctx, ov)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return out, fmt.Errorf("%w: %v", ErrOverlayRasterization, err)
	}
	draw.Draw(out, out.Bounds(), layer, layer.Bounds().Min, draw.Over)
	return out, nil
}
