package overlay

import (
	"math"
	"strconv"
	"strings"

	"github.com/example/keyshot/internal/geom"
)

// Style is the fixed export look every overlay is flattened to.
type Style struct {
	Stroke      string
	StrokeWidth float64
	TextFill    string
	// Filter is written on every painted element; the rasterizer turns a
	// drop-shadow filter into a dark halo.
	Filter string
	// FontScale multiplies text sizes. Values <= 0 leave sizes alone.
	FontScale float64
}

// DefaultStyle returns white 2px strokes, white text, a thin black halo and
// a 1.8x font boost.
func DefaultStyle() Style {
	return Style{
		Stroke:      "#ffffff",
		StrokeWidth: 2,
		TextFill:    "#ffffff",
		Filter:      "drop-shadow(0 0 0.5px #000000) drop-shadow(0 0 0.5px #000000)",
		FontScale:   1.8,
	}
}

// Interactive-only roles are dropped from exports.
const (
	RoleAttr    = "data-role"
	RoleHandle  = "handle"
	RolePreview = "preview"
)

var shapeNames = map[string]bool{
	"line": true, "polyline": true, "polygon": true, "path": true,
	"rect": true, "circle": true, "ellipse": true,
}

// Normalize builds an export-ready copy of live for the native-space output
// window. live is never modified. When nothing drawable remains, the result
// is an Empty overlay of the window size.
func Normalize(live *Overlay, window geom.Rect, g geom.DisplayGeometry, st Style) *Overlay {
	out := live.Clone()
	if out == nil {
		out = New(g.DisplayWidth, g.DisplayHeight)
	}
	out.Children = stripInteractive(out.Children)
	out.Children = suppressLeaders(out.Children)
	for _, c := range out.Children {
		c.Walk(func(e *Element) { applyStyle(e, st) })
	}
	reproject(out, window, g)
	if out.Empty() {
		out.Children = nil
	}
	return out
}

func stripInteractive(children []*Element) []*Element {
	kept := children[:0]
	for _, c := range children {
		switch c.Attr(RoleAttr) {
		case RoleHandle, RolePreview:
			continue
		}
		c.Children = stripInteractive(c.Children)
		kept = append(kept, c)
	}
	return kept
}

func containsText(e *Element) bool {
	for _, c := range e.Children {
		if c.Name == "text" || containsText(c) {
			return true
		}
	}
	return false
}

func isLeaderCandidate(e *Element) bool {
	return e.Name == "line" && !e.HasMarker()
}

// suppressLeaders removes callout leader lines around text groups: up to
// three plain lines directly before a group holding text, and the first
// plain line after it (other groups in between are skipped). A line with a
// marker is an arrow shaft; it is kept and ends the backward walk.
func suppressLeaders(children []*Element) []*Element {
	drop := make(map[int]bool)
	for i, el := range children {
		if el.Name != "g" || !containsText(el) {
			continue
		}
		for j, n := i-1, 0; j >= 0 && n < 3; j, n = j-1, n+1 {
			if !isLeaderCandidate(children[j]) {
				break
			}
			drop[j] = true
		}
		for j := i + 1; j < len(children); j++ {
			next := children[j]
			if next.Name == "g" {
				continue
			}
			if isLeaderCandidate(next) {
				drop[j] = true
			}
			break
		}
	}
	kept := make([]*Element, 0, len(children))
	for i, c := range children {
		if drop[i] {
			continue
		}
		if c.Name == "g" {
			c.Children = suppressLeaders(c.Children)
		}
		kept = append(kept, c)
	}
	return kept
}

func applyStyle(e *Element, st Style) {
	inlineStyle(e)
	switch {
	case shapeNames[e.Name]:
		if e.Attr("stroke") != "none" || e.Name == "line" || e.Name == "polyline" {
			e.Set("stroke", st.Stroke)
			if st.StrokeWidth > 0 {
				e.SetFloat("stroke-width", st.StrokeWidth)
			}
		}
		e.Remove("stroke-dasharray")
		e.Remove("stroke-dashoffset")
		if f, ok := e.Get("fill"); ok && f != "none" {
			e.Set("fill", st.Stroke)
		}
		if e.Name == "line" || e.Name == "polyline" {
			e.Set("fill", "none")
		}
		if st.Filter != "" {
			e.Set("filter", st.Filter)
		}
	case e.Name == "text" || e.Name == "tspan":
		e.Set("fill", st.TextFill)
		e.Set("stroke", "none")
		e.Remove("stroke-width")
		if st.FontScale > 0 && (e.Name == "text" || e.Has("font-size")) {
			e.Set("font-size", scaleFont(e.Attr("font-size"), st.FontScale))
		}
		if st.Filter != "" && e.Name == "text" {
			e.Set("filter", st.Filter)
		}
	}
}

// scaleFont multiplies a font-size value, rounding to whole pixels. Values
// that cannot be read fall back to a relative size.
func scaleFont(v string, k float64) string {
	f, err := parseLength(v)
	if err != nil || f <= 0 {
		return formatFloat(k) + "em"
	}
	return strconv.Itoa(int(math.Round(f*k))) + "px"
}

// inlineStyle moves declarations from a style attribute onto presentation
// attributes so the forced scheme below has the last word.
func inlineStyle(e *Element) {
	s, ok := e.Get("style")
	if !ok {
		return
	}
	for _, decl := range strings.Split(s, ";") {
		k, v, found := strings.Cut(decl, ":")
		if !found {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k != "" {
			e.Set(k, v)
		}
	}
	e.Remove("style")
}

// reproject sets the overlay frame so that drawing it at the window's
// native size lands on the same image content. The window is converted
// from native to display space and then into the overlay's own user space.
func reproject(o *Overlay, window geom.Rect, g geom.DisplayGeometry) {
	d := g.RectToDisplay(window)
	lo := o.displayToUser(d.Min(), g)
	hi := o.displayToUser(d.Max(), g)
	o.ViewBox = &ViewBox{X: lo.X, Y: lo.Y, W: hi.X - lo.X, H: hi.Y - lo.Y}
	o.Width = window.W
	o.Height = window.H
	o.PreserveAspectRatio = "none"
}

// displayToUser maps a display point into user space using the overlay's
// current frame, where Width x Height spans the display size.
func (o *Overlay) displayToUser(p geom.Point, g geom.DisplayGeometry) geom.Point {
	f := o.Frame()
	if o.Width == 0 || o.Height == 0 {
		return p
	}
	// The live overlay covers the display frame, whatever its nominal size.
	sx := f.W / g.DisplayWidth
	sy := f.H / g.DisplayHeight
	return geom.Point{X: f.X + p.X*sx, Y: f.Y + p.Y*sy}
}
