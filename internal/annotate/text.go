package annotate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/example/keyshot/internal/annotation"
	"github.com/example/keyshot/internal/geom"
	"github.com/example/keyshot/internal/overlay"
	"github.com/example/keyshot/internal/render"
)

// LineSpacing multiplies the font height between lines of a text box.
const LineSpacing = 1.2

type measureFunc func(text string, size float64) (width, height float64, err error)

// measureText returns the box size of a possibly multi-line string.
func measureText(text string, size float64) (float64, float64, error) {
	lines := strings.Split(text, "\n")
	var width float64
	for _, l := range lines {
		m, err := render.MeasureText(l, size)
		if err != nil {
			return 0, 0, err
		}
		width = math.Max(width, m.Width)
	}
	return width, lineHeight(size) * float64(len(lines)), nil
}

func lineHeight(size float64) float64 {
	return size * LineSpacing
}

// textBox returns the display-space size of a's text at zoom, reusing the
// cached hint when it was measured for the same text and rounded zoom.
func (r *Renderer) textBox(id, text string, size, zoom float64) (float64, float64, error) {
	key := annotation.LayoutKey{Text: text, RoundedZoom: int(math.Round(zoom * 100))}
	if r.store != nil {
		if h, ok := r.store.Hint(id); ok && h.Key == key {
			return h.Width, h.Height, nil
		}
	}
	w, h, err := r.measure(text, size)
	if err != nil {
		return 0, 0, err
	}
	if r.store != nil {
		r.store.SetHint(id, annotation.LayoutHint{Key: key, Width: w, Height: h})
	}
	return w, h, nil
}

// renderText centres the text box on Points[0]. When Points[1] is set, a
// leader line runs from the box edge to that target and is emitted ahead of
// the text group.
func (r *Renderer) renderText(a annotation.Annotation, f Frame) ([]Primitive, error) {
	if len(a.Points) == 0 {
		return nil, fmt.Errorf("text %s: %w", a.ID, ErrTooFewPoints)
	}
	text := a.Text
	if r.store != nil {
		if t, ok := r.store.Text(a.ID); ok {
			text = t
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	zoom := f.zoom()
	st := a.Style.WithDefaults()
	size := st.FontSize * zoom
	w, h, err := r.textBox(a.ID, text, size, zoom)
	if err != nil {
		return nil, fmt.Errorf("text %s: %w", a.ID, err)
	}
	center := f.Transform.WorldToDisplay(a.Points[0])
	box := geom.Rect{X: center.X - w/2, Y: center.Y - h/2, W: w, H: h}

	var prims []Primitive
	if len(a.Points) > 1 {
		target := f.Transform.WorldToDisplay(a.Points[1])
		if !box.Contains(target) {
			from := edgePoint(box, target)
			width := st.LineWidth
			for _, pass := range []struct {
				color string
				width float64
			}{{OutlineColor, (width + OutlineExtra) * zoom}, {FillColor, width * zoom}} {
				leader := overlay.NewElement("line",
					"x1", coord(from.X), "y1", coord(from.Y),
					"x2", coord(target.X), "y2", coord(target.Y),
					"stroke", pass.color, "stroke-width", coord(pass.width),
					"stroke-linecap", "round",
				)
				prims = append(prims, withBounds(leader))
			}
		}
	}

	group := overlay.NewElement("g", "data-annotation-id", a.ID)
	lines := strings.Split(text, "\n")
	ascent := size
	if m, err := render.MeasureText("", size); err == nil {
		ascent = m.Ascent
	}
	lh := h / float64(len(lines))
	outlineWidth := OutlineExtra * zoom
	for _, pass := range []string{OutlineColor, FillColor} {
		for i, l := range lines {
			baseline := box.Y + float64(i)*lh + (lh-size)/2 + ascent
			t := &overlay.Element{Name: "text", Text: l}
			t.Set("x", coord(center.X))
			t.Set("y", coord(baseline))
			t.Set("font-size", coord(size)+"px")
			t.Set("font-family", "Go, sans-serif")
			t.Set("text-anchor", "middle")
			t.Set("fill", pass)
			if pass == OutlineColor {
				t.Set("stroke", OutlineColor)
				t.Set("stroke-width", coord(outlineWidth))
				t.Set("stroke-linejoin", "round")
			}
			group.Append(t)
		}
	}
	prims = append(prims, Primitive{Element: group, Bounds: box.Inset(-outlineWidth)})
	return prims, nil
}

// edgePoint returns where the ray from the box centre towards p leaves box.
func edgePoint(box geom.Rect, p geom.Point) geom.Point {
	c := box.Center()
	d := p.Sub(c)
	if d.X == 0 && d.Y == 0 {
		return c
	}
	t := math.Inf(1)
	if d.X != 0 {
		t = math.Min(t, (box.W/2)/math.Abs(d.X))
	}
	if d.Y != 0 {
		t = math.Min(t, (box.H/2)/math.Abs(d.Y))
	}
	if t > 1 {
		t = 1
	}
	return c.Add(d.Mul(t))
}

func coord(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}
