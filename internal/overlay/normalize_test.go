package overlay

import (
	"strings"
	"testing"

	"github.com/example/keyshot/internal/geom"
)

func mustGeometry(t *testing.T, nw, nh int, dw, dh float64) geom.DisplayGeometry {
	t.Helper()
	g, err := geom.NewDisplayGeometry(nw, nh, dw, dh)
	if err != nil {
		t.Fatalf("geometry: %v", err)
	}
	return g
}

func textGroup(label string) *Element {
	return NewElement("g").Append(&Element{Name: "text", Attrs: []Attr{{"x", "10"}, {"y", "20"}, {"font-size", "14px"}}, Text: label})
}

func names(children []*Element) string {
	var parts []string
	for _, c := range children {
		parts = append(parts, c.Name)
	}
	return strings.Join(parts, ",")
}

func TestNormalizeSuppressesLeaderLines(t *testing.T) {
	live := New(800, 600)
	live.Append(
		NewElement("line", "x1", "0", "y1", "0", "x2", "5", "y2", "5"),
		NewElement("line", "x1", "0", "y1", "0", "x2", "5", "y2", "5"),
		textGroup("note"),
		NewElement("line", "x1", "1", "y1", "1", "x2", "9", "y2", "9"),
		NewElement("circle", "cx", "3", "cy", "3", "r", "2"),
	)
	g := mustGeometry(t, 800, 600, 800, 600)
	out := Normalize(live, g.NativeBounds(), g, DefaultStyle())
	if got := names(out.Children); got != "g,circle" {
		t.Fatalf("children = %s", got)
	}
	if len(live.Children) != 5 {
		t.Fatalf("live overlay was modified: %s", names(live.Children))
	}
}

func TestNormalizeKeepsMarkedLinesNextToText(t *testing.T) {
	live := New(800, 600)
	shaft := NewElement("line", "x1", "0", "y1", "0", "x2", "50", "y2", "50", "marker-end", "url(#arrowhead)")
	leader := NewElement("line", "x1", "0", "y1", "0", "x2", "5", "y2", "5")
	after := NewElement("line", "x1", "0", "y1", "0", "x2", "5", "y2", "5", "marker-start", "url(#arrowhead)")
	live.Append(leader, shaft, textGroup("a"), after)
	g := mustGeometry(t, 800, 600, 800, 600)
	out := Normalize(live, g.NativeBounds(), g, DefaultStyle())
	if got := names(out.Children); got != "line,line,g,line" {
		t.Fatalf("children = %s", got)
	}
	if !out.Children[1].HasMarker() || !out.Children[3].HasMarker() {
		t.Fatal("arrow shafts must survive normalization")
	}
}

func TestNormalizeLimitsBackwardWalkToThree(t *testing.T) {
	live := New(100, 100)
	for i := 0; i < 4; i++ {
		live.Append(NewElement("line", "x1", "0", "y1", "0", "x2", "1", "y2", "1"))
	}
	live.Append(textGroup("x"))
	g := mustGeometry(t, 100, 100, 100, 100)
	out := Normalize(live, g.NativeBounds(), g, DefaultStyle())
	if got := names(out.Children); got != "line,g" {
		t.Fatalf("children = %s", got)
	}
}

func TestNormalizeForcesStyle(t *testing.T) {
	live := New(100, 100)
	live.Append(
		NewElement("line", "x1", "0", "y1", "0", "x2", "10", "y2", "10", "stroke", "#ff0000", "stroke-width", "7", "stroke-dasharray", "4 2"),
		NewElement("polygon", "points", "0,0 5,0 5,5", "stroke", "none", "fill", "yellow"),
		NewElement("g").Append(&Element{Name: "text", Attrs: []Attr{{"x", "1"}, {"y", "1"}, {"font-size", "10px"}, {"fill", "red"}, {"stroke", "black"}}, Text: "t"}),
		NewElement("path", "d", "M0 0 L5 5", "style", "stroke:#00ff00;stroke-width:9"),
	)
	g := mustGeometry(t, 100, 100, 100, 100)
	out := Normalize(live, g.NativeBounds(), g, DefaultStyle())

	line := out.Children[0]
	if line.Attr("stroke") != "#ffffff" || line.Attr("stroke-width") != "2" || line.Has("stroke-dasharray") {
		t.Fatalf("line attrs %+v", line.Attrs)
	}
	if !strings.Contains(line.Attr("filter"), "drop-shadow") {
		t.Fatalf("missing halo filter: %+v", line.Attrs)
	}
	poly := out.Children[1]
	if poly.Attr("stroke") != "none" || poly.Attr("fill") != "#ffffff" {
		t.Fatalf("polygon attrs %+v", poly.Attrs)
	}
	text := out.Children[2].Children[0]
	if text.Attr("fill") != "#ffffff" || text.Attr("stroke") != "none" || text.Attr("font-size") != "18px" {
		t.Fatalf("text attrs %+v", text.Attrs)
	}
	path := out.Children[3]
	if path.Has("style") || path.Attr("stroke") != "#ffffff" || path.Attr("stroke-width") != "2" {
		t.Fatalf("path attrs %+v", path.Attrs)
	}
}

func TestScaleFontFallback(t *testing.T) {
	if got := scaleFont("large", 1.8); got != "1.8em" {
		t.Fatalf("scaleFont = %q", got)
	}
	if got := scaleFont("14", 1.8); got != "25px" {
		t.Fatalf("scaleFont = %q", got)
	}
}

func TestNormalizeDropsInteractiveElements(t *testing.T) {
	live := New(100, 100)
	live.Append(
		NewElement("circle", "cx", "1", "cy", "1", "r", "3", RoleAttr, RolePreview),
		NewElement("g").Append(NewElement("rect", "x", "0", "y", "0", "width", "4", "height", "4", RoleAttr, RoleHandle)),
	)
	g := mustGeometry(t, 100, 100, 100, 100)
	out := Normalize(live, g.NativeBounds(), g, DefaultStyle())
	if !out.Empty() || len(out.Children) != 0 {
		t.Fatalf("expected empty overlay, got %s", names(out.Children))
	}
}

func TestNormalizeReprojectsToWindow(t *testing.T) {
	live := New(800, 600)
	live.Append(NewElement("line", "x1", "0", "y1", "0", "x2", "10", "y2", "10"))
	g := mustGeometry(t, 1600, 1200, 800, 600)
	window := geom.Rect{X: 200, Y: 200, W: 400, H: 300}
	out := Normalize(live, window, g, DefaultStyle())
	if out.Width != 400 || out.Height != 300 {
		t.Fatalf("size %gx%g", out.Width, out.Height)
	}
	if want := (ViewBox{X: 100, Y: 100, W: 200, H: 150}); out.ViewBox == nil || *out.ViewBox != want {
		t.Fatalf("viewBox = %v, want %v", out.ViewBox, want)
	}
	if out.PreserveAspectRatio != "none" {
		t.Fatalf("preserveAspectRatio = %q", out.PreserveAspectRatio)
	}
	// A display point maps onto the window-relative native pixel.
	px := out.UserToPixel(geom.Pt(150, 120))
	if !px.Near(geom.Pt(100, 40), 1e-9) {
		t.Fatalf("UserToPixel = %v", px)
	}
}

func TestNormalizeAutoExpandWindowNegativeOrigin(t *testing.T) {
	live := New(512, 512)
	live.Append(NewElement("line", "x1", "-30", "y1", "10", "x2", "540", "y2", "10"))
	g := mustGeometry(t, 512, 512, 512, 512)
	out := Normalize(live, geom.Rect{X: -50, Y: -20, W: 610, H: 552}, g, DefaultStyle())
	if want := (ViewBox{X: -50, Y: -20, W: 610, H: 552}); *out.ViewBox != want {
		t.Fatalf("viewBox = %v", *out.ViewBox)
	}
}
