package annotate

import (
	"fmt"

	"github.com/example/keyshot/internal/annotation"
	"github.com/example/keyshot/internal/geom"
	"github.com/example/keyshot/internal/overlay"
)

// renderArrow draws Points[0] (tail) to Points[1] (tip) as an outlined shaft
// ending in the arrowhead marker. With only a tail it draws the preview dot.
func (r *Renderer) renderArrow(a annotation.Annotation, f Frame) ([]Primitive, error) {
	if len(a.Points) == 0 {
		return nil, fmt.Errorf("arrow %s: %w", a.ID, ErrTooFewPoints)
	}
	zoom := f.zoom()
	width := a.Style.WithDefaults().LineWidth
	tail := f.Transform.WorldToDisplay(a.Points[0])
	if len(a.Points) == 1 {
		dot := overlay.NewElement("circle",
			"cx", coord(tail.X), "cy", coord(tail.Y), "r", coord(PreviewRadius),
			"fill", FillColor, "stroke", OutlineColor, "stroke-width", "1",
			overlay.RoleAttr, overlay.RolePreview,
		)
		return []Primitive{withBounds(dot)}, nil
	}
	tip := f.Transform.WorldToDisplay(a.Points[1])
	outline := shaft(tail, tip, OutlineColor, (width+OutlineExtra)*zoom)
	fill := shaft(tail, tip, FillColor, width*zoom)
	if a.Preview {
		outline.Set(overlay.RoleAttr, overlay.RolePreview)
		fill.Set(overlay.RoleAttr, overlay.RolePreview)
	}
	return []Primitive{withBounds(outline), withBounds(fill)}, nil
}

func shaft(tail, tip geom.Point, stroke string, width float64) *overlay.Element {
	return overlay.NewElement("line",
		"x1", coord(tail.X), "y1", coord(tail.Y),
		"x2", coord(tip.X), "y2", coord(tip.Y),
		"stroke", stroke, "stroke-width", coord(width),
		"stroke-linecap", "round",
		"marker-end", "url(#"+ArrowheadID+")",
	)
}
