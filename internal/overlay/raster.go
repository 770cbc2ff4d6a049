package overlay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"math"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/example/keyshot/internal/geom"
	"github.com/example/keyshot/internal/render"
)

// ErrNoSize is returned when an overlay has no pixel size to draw into.
var ErrNoSize = errors.New("overlay has no output size")

// vectorNames are the elements handed to the SVG rasterizer. Everything else
// is either drawn separately (text) or has no paint of its own.
var vectorNames = map[string]bool{
	"g": true, "line": true, "polyline": true, "polygon": true,
	"path": true, "rect": true, "circle": true, "ellipse": true,
}

// Rasterize draws o into a transparent RGBA image of o.Width x o.Height
// pixels, mapping the overlay frame onto the full image. Shapes go through
// the SVG rasterizer, text is drawn with the Go font on top, and elements
// carrying a drop-shadow filter receive a dark halo.
func Rasterize(ctx context.Context, o *Overlay) (img *image.RGBA, err error) {
	w := int(math.Round(o.Width))
	h := int(math.Round(o.Height))
	if w <= 0 || h <= 0 {
		return nil, ErrNoSize
	}
	img = image.NewRGBA(image.Rect(0, 0, w, h))
	if o.Empty() {
		return img, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shapes, texts, halo, err := prepare(o)
	if err != nil {
		return nil, err
	}
	if len(shapes.Children) > 0 {
		if err := drawShapes(shapes, img); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sy := o.Height / o.Frame().H
	for _, l := range texts {
		if err := drawTextLine(img, o, l, sy); err != nil {
			return nil, err
		}
	}
	if halo {
		img = render.ApplyHalo(img, render.DefaultHaloOptions())
	}
	return img, nil
}

// numericAttrs must parse as numbers wherever they appear.
var numericAttrs = []string{"x1", "y1", "x2", "y2", "cx", "cy", "r", "rx", "ry", "x", "y", "width", "height", "stroke-width"}

func validate(e *Element) error {
	for _, name := range numericAttrs {
		v, ok := e.Get(name)
		if !ok {
			continue
		}
		if _, err := parseLength(v); err != nil {
			return fmt.Errorf("malformed <%s> %s=%q", e.Name, name, v)
		}
	}
	if e.Name == "polyline" || e.Name == "polygon" {
		if _, err := parsePoints(e.Attr("points")); err != nil {
			return fmt.Errorf("malformed <%s> points=%q", e.Name, e.Attr("points"))
		}
	}
	return nil
}

// prepare splits o into a vector-only copy with markers expanded, and the
// text runs to draw afterwards.
func prepare(o *Overlay) (*Overlay, []textLine, bool, error) {
	shapes := &Overlay{Width: o.Width, Height: o.Height, PreserveAspectRatio: o.PreserveAspectRatio}
	vb := o.Frame()
	shapes.ViewBox = &vb
	var (
		texts  []textLine
		halo   bool
		badErr error
	)
	var visit func(src *Element) *Element
	visit = func(src *Element) *Element {
		if err := validate(src); err != nil && badErr == nil {
			badErr = err
		}
		if strings.Contains(src.Attr("filter"), "drop-shadow") {
			halo = true
		}
		if src.Name == "text" {
			texts = append(texts, textLines(src)...)
			return nil
		}
		if !vectorNames[src.Name] {
			if !nonDrawable[src.Name] {
				log.Printf("overlay: skipping unsupported element <%s>", src.Name)
			}
			return nil
		}
		dst := &Element{Name: src.Name}
		for _, a := range src.Attrs {
			if a.Name == "filter" || strings.HasPrefix(a.Name, "marker-") || strings.HasPrefix(a.Name, "data-") {
				continue
			}
			dst.Attrs = append(dst.Attrs, a)
		}
		for _, c := range src.Children {
			if n := visit(c); n != nil {
				dst.Children = append(dst.Children, n)
			}
		}
		if src.Name == "line" && src.HasMarker() {
			g := &Element{Name: "g"}
			g.Append(dst)
			g.Append(expandMarkers(src, dst)...)
			return g
		}
		return dst
	}
	for _, c := range o.Children {
		if n := visit(c); n != nil {
			shapes.Children = append(shapes.Children, n)
		}
	}
	return shapes, texts, halo, badErr
}

// expandMarkers turns marker-start/marker-end on a line into explicit open
// arrowheads styled like the shaft.
func expandMarkers(src, shaft *Element) []*Element {
	x1, _ := src.Float("x1")
	y1, _ := src.Float("y1")
	x2, _ := src.Float("x2")
	y2, _ := src.Float("y2")
	a := geom.Point{X: x1, Y: y1}
	b := geom.Point{X: x2, Y: y2}
	sw := strokeWidth(src)
	var heads []*Element
	add := func(tail, tip geom.Point) {
		l, r := ArrowHead(tail, tip, sw)
		head := &Element{Name: "polyline"}
		for _, at := range shaft.Attrs {
			switch at.Name {
			case "x1", "y1", "x2", "y2":
				continue
			}
			head.Attrs = append(head.Attrs, at)
		}
		head.Set("points", formatPoints([]geom.Point{l, tip, r}))
		head.Set("fill", "none")
		head.Set("stroke-linejoin", "round")
		head.Set("stroke-linecap", "round")
		heads = append(heads, head)
	}
	if v := src.Attr("marker-end"); v != "" && v != "none" {
		add(a, b)
	}
	if v := src.Attr("marker-start"); v != "" && v != "none" {
		add(b, a)
	}
	return heads
}

func drawShapes(shapes *Overlay, img *image.RGBA) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rasterize overlay: %v", r)
		}
	}()
	var buf bytes.Buffer
	if err := shapes.Marshal(&buf); err != nil {
		return fmt.Errorf("serialize overlay: %w", err)
	}
	icon, err := oksvg.ReadIconStream(&buf, oksvg.StrictErrorMode)
	if err != nil {
		return fmt.Errorf("decode overlay: %w", err)
	}
	b := img.Bounds()
	// The frame origin is in user units, so translate before scaling.
	vb := shapes.Frame()
	if vb.W <= 0 || vb.H <= 0 {
		return ErrNoSize
	}
	icon.Transform = rasterx.Identity.
		Scale(float64(b.Dx())/vb.W, float64(b.Dy())/vb.H).
		Translate(-vb.X, -vb.Y)
	scanner := rasterx.NewScannerGV(b.Dx(), b.Dy(), img, b)
	raster := rasterx.NewDasher(b.Dx(), b.Dy(), scanner)
	icon.Draw(raster, 1.0)
	return nil
}

func drawTextLine(img *image.RGBA, o *Overlay, l textLine, scale float64) error {
	fill, ok, err := ParseColor(l.attr("fill", "#000000"))
	if err != nil {
		return fmt.Errorf("text fill: %w", err)
	}
	if !ok {
		return nil
	}
	size := l.size * scale
	if size <= 0 {
		return nil
	}
	m, err := render.MeasureText(l.text, size)
	if err != nil {
		return err
	}
	origin := o.UserToPixel(geom.Point{X: l.x, Y: l.y})
	switch l.anchor {
	case "middle":
		origin.X -= m.Width / 2
	case "end":
		origin.X -= m.Width
	}
	outline, hasOutline, err := ParseColor(l.attr("stroke", "none"))
	if err != nil {
		return fmt.Errorf("text stroke: %w", err)
	}
	if hasOutline {
		sw, _ := parseLength(l.attr("stroke-width", "1"))
		return render.DrawTextOutlined(img, origin.X, origin.Y, l.text, fill, outline, size, sw*scale)
	}
	return render.DrawText(img, origin.X, origin.Y, l.text, fill, size)
}
