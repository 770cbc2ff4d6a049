package overlay

import (
	"math"
	"strings"

	"github.com/example/keyshot/internal/geom"
	"github.com/example/keyshot/internal/render"
)

// ArrowHead returns the two barb points of an open arrowhead at tip for a
// shaft coming from tail and drawn with the given stroke width.
func ArrowHead(tail, tip geom.Point, width float64) (left, right geom.Point) {
	angle := math.Atan2(tip.Y-tail.Y, tip.X-tail.X)
	size := 6 + 2*width
	a1 := angle + math.Pi/6
	a2 := angle - math.Pi/6
	left = geom.Point{X: tip.X - math.Cos(a1)*size, Y: tip.Y - math.Sin(a1)*size}
	right = geom.Point{X: tip.X - math.Cos(a2)*size, Y: tip.Y - math.Sin(a2)*size}
	return left, right
}

// Bounds estimates the user-space extent of e, stroke included. Transforms
// are not applied; the renderers never emit them.
func Bounds(e *Element) (geom.Rect, bool) {
	sw := strokeWidth(e)
	switch e.Name {
	case "line":
		x1, _ := e.Float("x1")
		y1, _ := e.Float("y1")
		x2, _ := e.Float("x2")
		y2, _ := e.Float("y2")
		pts := []geom.Point{{X: x1, Y: y1}, {X: x2, Y: y2}}
		if e.Has("marker-end") {
			l, r := ArrowHead(pts[0], pts[1], sw)
			pts = append(pts, l, r)
		}
		if e.Has("marker-start") {
			l, r := ArrowHead(pts[1], pts[0], sw)
			pts = append(pts, l, r)
		}
		return geom.RectFromPoints(pts...).Inset(-sw / 2), true
	case "polyline", "polygon":
		pts, err := parsePoints(e.Attr("points"))
		if err != nil || len(pts) == 0 {
			return geom.Rect{}, false
		}
		return geom.RectFromPoints(pts...).Inset(-sw / 2), true
	case "rect":
		x, _ := e.Float("x")
		y, _ := e.Float("y")
		w, okW := e.Float("width")
		h, okH := e.Float("height")
		if !okW || !okH {
			return geom.Rect{}, false
		}
		return geom.Rect{X: x, Y: y, W: w, H: h}.Inset(-sw / 2), true
	case "circle":
		cx, _ := e.Float("cx")
		cy, _ := e.Float("cy")
		r, ok := e.Float("r")
		if !ok {
			return geom.Rect{}, false
		}
		return geom.Rect{X: cx - r, Y: cy - r, W: 2 * r, H: 2 * r}.Inset(-sw / 2), true
	case "ellipse":
		cx, _ := e.Float("cx")
		cy, _ := e.Float("cy")
		rx, okX := e.Float("rx")
		ry, okY := e.Float("ry")
		if !okX || !okY {
			return geom.Rect{}, false
		}
		return geom.Rect{X: cx - rx, Y: cy - ry, W: 2 * rx, H: 2 * ry}.Inset(-sw / 2), true
	case "text":
		return textBounds(e)
	case "g":
		var rects []geom.Rect
		for _, c := range e.Children {
			if r, ok := Bounds(c); ok {
				rects = append(rects, r)
			}
		}
		return geom.UnionAll(rects)
	}
	return geom.Rect{}, false
}

// Extents returns the bounds of every top-level element that has any.
func (o *Overlay) Extents() []geom.Rect {
	var out []geom.Rect
	for _, c := range o.Children {
		if r, ok := Bounds(c); ok {
			out = append(out, r)
		}
	}
	return out
}

func strokeWidth(e *Element) float64 {
	if s, ok := e.Get("stroke"); ok && s == "none" {
		return 0
	}
	if w, ok := e.Float("stroke-width"); ok {
		return w
	}
	if e.Name == "line" || e.Name == "polyline" || e.Has("stroke") {
		return 1
	}
	return 0
}

// FontSize returns the element's font size in user units. em sizes are
// relative to a 16 unit default.
func FontSize(e *Element) float64 {
	v, ok := e.Get("font-size")
	if !ok {
		return 16
	}
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, "em") {
		f, err := parseLength(strings.TrimSuffix(v, "em"))
		if err == nil && f > 0 {
			return f * 16
		}
		return 16
	}
	f, err := parseLength(v)
	if err != nil || f <= 0 {
		return 16
	}
	return f
}

// textLine is one run of text with its anchor resolved.
type textLine struct {
	el     *Element
	parent *Element
	x, y   float64
	text   string
	size   float64
	anchor string
}

func textLines(e *Element) []textLine {
	x, _ := e.Float("x")
	y, _ := e.Float("y")
	base := textLine{el: e, x: x, y: y, size: FontSize(e), anchor: e.Attr("text-anchor")}
	var out []textLine
	if s := strings.TrimSpace(e.Text); s != "" {
		l := base
		l.text = s
		out = append(out, l)
	}
	for _, c := range e.Children {
		if c.Name != "tspan" {
			continue
		}
		l := base
		l.el = c
		l.parent = e
		if v, ok := c.Float("x"); ok {
			l.x = v
		}
		if v, ok := c.Float("y"); ok {
			l.y = v
		}
		if v, ok := c.Float("dy"); ok {
			l.y += v
		}
		if c.Has("font-size") {
			l.size = FontSize(c)
		}
		if a := c.Attr("text-anchor"); a != "" {
			l.anchor = a
		}
		l.text = strings.TrimSpace(c.Text)
		if l.text != "" {
			out = append(out, l)
		}
	}
	return out
}

// attr looks name up on the run and then on its enclosing text element.
func (l textLine) attr(name, def string) string {
	if v, ok := l.el.Get(name); ok {
		return v
	}
	if l.parent != nil {
		if v, ok := l.parent.Get(name); ok {
			return v
		}
	}
	return def
}

// left returns the x of the line's left edge for a measured width.
func (l textLine) left(width float64) float64 {
	switch l.anchor {
	case "middle":
		return l.x - width/2
	case "end":
		return l.x - width
	}
	return l.x
}

func textBounds(e *Element) (geom.Rect, bool) {
	var rects []geom.Rect
	for _, l := range textLines(e) {
		m, err := render.MeasureText(l.text, l.size)
		if err != nil {
			continue
		}
		rects = append(rects, geom.Rect{X: l.left(m.Width), Y: l.y - m.Ascent, W: m.Width, H: m.Height})
	}
	return geom.UnionAll(rects)
}
