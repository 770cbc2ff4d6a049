package appstate

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log"
	"math"
	"time"

	xdraw "golang.org/x/image/draw"

	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"

	"github.com/example/keyshot/internal/cropedit"
	"github.com/example/keyshot/internal/geom"
	"github.com/example/keyshot/internal/overlay"
	"github.com/example/keyshot/internal/render"
	"github.com/example/keyshot/internal/theme"
)

// StatusHeight is the height of the status bar below the image.
const StatusHeight = 24

const (
	statusHeight   = StatusHeight
	statusTextSize = 13
	// frameDropThreshold caps how many in-flight frames a new paint may
	// cancel before one is allowed to finish.
	frameDropThreshold = 10
	messageDuration    = 3 * time.Second
)

// KeyShortcut is one key binding.
type KeyShortcut struct {
	Rune      rune
	Code      key.Code
	Modifiers key.Modifiers
}

// KeyboardShortcuts lists the bindings of an action.
type KeyboardShortcuts interface {
	KeyboardShortcuts() []KeyShortcut
}

type shortcutList []KeyShortcut

func (s shortcutList) KeyboardShortcuts() []KeyShortcut { return []KeyShortcut(s) }

// paintState is a snapshot of everything one frame draws.
type paintState struct {
	width, height int
	theme         *theme.Theme

	bitmap  *image.RGBA
	overlay *overlay.Overlay

	crop     geom.Rect
	hasCrop  bool
	creating bool

	status       string
	message      string
	warning      bool
	messageUntil time.Time
}

// viewSize is the part of the window showing the image.
func viewSize(width, height int) (int, int) {
	return width, max(height-statusHeight, 1)
}

func drawFrame(ctx context.Context, s screen.Screen, w screen.Window, st paintState) {
	b, err := s.NewBuffer(image.Point{st.width, st.height})
	if err != nil {
		log.Printf("new buffer: %v", err)
		return
	}
	defer b.Release()

	if err := compose(ctx, b.RGBA(), st); err != nil {
		return
	}
	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}

// compose paints st into dst. It stops early, returning the context error,
// when the frame has been superseded.
func compose(ctx context.Context, dst *image.RGBA, st paintState) error {
	th := st.theme
	if th == nil {
		th = theme.Default()
	}
	vw, vh := viewSize(st.width, st.height)
	view := image.Rect(0, 0, vw, vh)
	draw.Draw(dst, dst.Bounds(), image.NewUniform(th.Background), image.Point{}, draw.Src)

	if st.bitmap != nil {
		// The surface may be supersampled; it always covers the whole view.
		xdraw.ApproxBiLinear.Scale(dst, view, st.bitmap, st.bitmap.Bounds(), draw.Src, nil)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if st.overlay != nil && !st.overlay.Empty() {
		layer, err := overlay.Rasterize(ctx, st.overlay)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("viewer overlay: %v", err)
		} else {
			draw.Draw(dst, view, layer, image.Point{}, draw.Over)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if st.hasCrop {
		drawCrop(dst, view, st.crop, !st.creating, th)
	}

	drawStatus(dst, st, th)
	return ctx.Err()
}

func toImageRect(r geom.Rect) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)), int(math.Round(r.Y)),
		int(math.Round(r.X+r.W)), int(math.Round(r.Y+r.H)),
	)
}

// drawCrop shades the view outside the crop and outlines it, with resize
// handles once the rectangle exists.
func drawCrop(dst *image.RGBA, view image.Rectangle, crop geom.Rect, handles bool, th *theme.Theme) {
	r := toImageRect(crop).Intersect(view)
	if r.Empty() {
		return
	}
	shade := image.NewUniform(th.CropShade)
	for _, s := range []image.Rectangle{
		image.Rect(view.Min.X, view.Min.Y, view.Max.X, r.Min.Y),
		image.Rect(view.Min.X, r.Max.Y, view.Max.X, view.Max.Y),
		image.Rect(view.Min.X, r.Min.Y, r.Min.X, r.Max.Y),
		image.Rect(r.Max.X, r.Min.Y, view.Max.X, r.Max.Y),
	} {
		if !s.Empty() {
			draw.Draw(dst, s, shade, image.Point{}, draw.Over)
		}
	}
	render.DashedRect(dst, r, 4, th.CropBorder, th.CropBorderAlt)
	if !handles {
		return
	}
	fill := image.NewUniform(th.HandleFill)
	for _, h := range cropedit.HandleRects(crop) {
		hr := toImageRect(h)
		draw.Draw(dst, hr, fill, image.Point{}, draw.Src)
		render.Rect(dst, hr, th.HandleBorder, 1)
	}
}

func drawStatus(dst *image.RGBA, st paintState, th *theme.Theme) {
	bar := image.Rect(0, st.height-statusHeight, st.width, st.height)
	draw.Draw(dst, bar, image.NewUniform(th.StatusBackground), image.Point{}, draw.Src)

	text, col := st.status, th.StatusText
	if st.message != "" && time.Now().Before(st.messageUntil) {
		text = st.message
		if st.warning {
			col = th.StatusWarning
		}
	}
	if text == "" {
		return
	}
	m, err := render.MeasureText(text, statusTextSize)
	if err != nil {
		log.Printf("status text: %v", err)
		return
	}
	y := float64(bar.Min.Y) + (statusHeight-m.Height)/2 + m.Baseline
	if err := render.DrawText(dst, 6, y, text, col, statusTextSize); err != nil {
		log.Printf("status text: %v", err)
	}
}

// statusLine summarises the camera for the status bar.
func statusLine(c geom.Camera, crop geom.Rect, hasCrop bool) string {
	s := fmt.Sprintf("zoom %.0f%%", c.EffectiveZoom()*100)
	if c.Window > 0 {
		s += fmt.Sprintf("  W %.0f L %.0f", c.Window, c.Level)
	}
	if hasCrop {
		s += fmt.Sprintf("  crop %.0fx%.0f", crop.W, crop.H)
	}
	return s + "  [Enter] export  [U] upload  [Ctrl+C] copy  [Esc] clear"
}
