// Package overlay models the vector annotation layer as a small SVG element
// tree, and turns a live overlay into an export-ready one.
package overlay

import (
	"math"
	"strconv"
	"strings"

	"github.com/example/keyshot/internal/geom"
)

// Attr is one presentation attribute. Order is preserved so serialized
// overlays are stable.
type Attr struct {
	Name, Value string
}

// Element is a node of the overlay tree.
type Element struct {
	Name     string
	Attrs    []Attr
	Children []*Element
	// Text holds character data for text and tspan elements.
	Text string
}

// NewElement builds an element from name/value pairs.
func NewElement(name string, kv ...string) *Element {
	e := &Element{Name: name}
	for i := 0; i+1 < len(kv); i += 2 {
		e.Set(kv[i], kv[i+1])
	}
	return e
}

// Get returns the attribute value and whether it is present.
func (e *Element) Get(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Attr returns the attribute value or "".
func (e *Element) Attr(name string) string {
	v, _ := e.Get(name)
	return v
}

// Has reports whether name is set.
func (e *Element) Has(name string) bool {
	_, ok := e.Get(name)
	return ok
}

// Set adds or replaces an attribute.
func (e *Element) Set(name, value string) {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs[i].Value = value
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
}

// SetFloat stores v with the shortest exact formatting.
func (e *Element) SetFloat(name string, v float64) {
	e.Set(name, formatFloat(v))
}

// Remove deletes name and reports whether it was present.
func (e *Element) Remove(name string) bool {
	for i, a := range e.Attrs {
		if a.Name == name {
			e.Attrs = append(e.Attrs[:i], e.Attrs[i+1:]...)
			return true
		}
	}
	return false
}

// Float parses a numeric attribute. A trailing "px" is accepted.
func (e *Element) Float(name string) (float64, bool) {
	v, ok := e.Get(name)
	if !ok {
		return 0, false
	}
	f, err := parseLength(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Append adds children and returns e.
func (e *Element) Append(children ...*Element) *Element {
	e.Children = append(e.Children, children...)
	return e
}

// Clone returns a deep copy of e.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	c := &Element{Name: e.Name, Text: e.Text}
	c.Attrs = append([]Attr(nil), e.Attrs...)
	if len(e.Children) > 0 {
		c.Children = make([]*Element, len(e.Children))
		for i, ch := range e.Children {
			c.Children[i] = ch.Clone()
		}
	}
	return c
}

// Walk calls fn for e and every descendant, depth first.
func (e *Element) Walk(fn func(*Element)) {
	fn(e)
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// HasMarker reports whether the element carries an arrowhead marker.
func (e *Element) HasMarker() bool {
	for _, name := range []string{"marker-start", "marker-mid", "marker-end"} {
		if v, ok := e.Get(name); ok && strings.TrimSpace(v) != "" && v != "none" {
			return true
		}
	}
	return false
}

// ViewBox maps overlay user units onto the output size.
type ViewBox struct {
	X, Y, W, H float64
}

func (v ViewBox) String() string {
	return strings.Join([]string{formatFloat(v.X), formatFloat(v.Y), formatFloat(v.W), formatFloat(v.H)}, " ")
}

// Overlay is the root of the vector layer. Width and Height are the output
// size in pixels; ViewBox, when set, gives the user-space window drawn into it.
type Overlay struct {
	Width, Height       float64
	ViewBox             *ViewBox
	PreserveAspectRatio string
	Children            []*Element
}

// New returns an empty overlay of the given display size.
func New(width, height float64) *Overlay {
	return &Overlay{Width: width, Height: height}
}

// Append adds top-level elements.
func (o *Overlay) Append(children ...*Element) {
	o.Children = append(o.Children, children...)
}

// Frame returns the user-space window, defaulting to 0 0 Width Height.
func (o *Overlay) Frame() ViewBox {
	if o.ViewBox != nil {
		return *o.ViewBox
	}
	return ViewBox{W: o.Width, H: o.Height}
}

// UserToPixel maps a user-space point onto the output pixel grid.
func (o *Overlay) UserToPixel(p geom.Point) geom.Point {
	f := o.Frame()
	if f.W == 0 || f.H == 0 {
		return p
	}
	return geom.Point{X: (p.X - f.X) * o.Width / f.W, Y: (p.Y - f.Y) * o.Height / f.H}
}

// PixelToUser is the inverse of UserToPixel.
func (o *Overlay) PixelToUser(p geom.Point) geom.Point {
	if o.Width == 0 || o.Height == 0 {
		return p
	}
	f := o.Frame()
	return geom.Point{X: f.X + p.X*f.W/o.Width, Y: f.Y + p.Y*f.H/o.Height}
}

// Clone returns a deep copy so the live overlay can keep changing.
func (o *Overlay) Clone() *Overlay {
	if o == nil {
		return nil
	}
	c := &Overlay{Width: o.Width, Height: o.Height, PreserveAspectRatio: o.PreserveAspectRatio}
	if o.ViewBox != nil {
		vb := *o.ViewBox
		c.ViewBox = &vb
	}
	for _, ch := range o.Children {
		c.Children = append(c.Children, ch.Clone())
	}
	return c
}

var nonDrawable = map[string]bool{
	"defs": true, "title": true, "desc": true, "metadata": true, "style": true, "marker": true,
}

// Empty reports whether nothing in the overlay would paint.
func (o *Overlay) Empty() bool {
	if o == nil {
		return true
	}
	for _, c := range o.Children {
		if drawable(c) {
			return false
		}
	}
	return true
}

func drawable(e *Element) bool {
	if nonDrawable[e.Name] {
		return false
	}
	if e.Name != "g" {
		return true
	}
	for _, c := range e.Children {
		if drawable(c) {
			return true
		}
	}
	return false
}

func formatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func parseLength(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "px")
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// parsePoints reads an SVG points list: "x1,y1 x2,y2 ...".
func parsePoints(s string) ([]geom.Point, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\n' || r == '\t' || r == '\r' })
	if len(fields)%2 != 0 {
		return nil, strconv.ErrSyntax
	}
	pts := make([]geom.Point, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		x, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, err
		}
		y, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return nil, err
		}
		pts = append(pts, geom.Point{X: x, Y: y})
	}
	return pts, nil
}

func formatPoints(pts []geom.Point) string {
	parts := make([]string, len(pts))
	for i, p := range pts {
		parts[i] = formatFloat(p.X) + "," + formatFloat(p.Y)
	}
	return strings.Join(parts, " ")
}
