// Package geom holds the coordinate model shared by the crop editor, the
// annotation renderers and the compositor.
//
// Four spaces are in play. World space is the physical image coordinate
// system. Native space is the pixel grid of the rendering surface. Display
// space is the presentation grid the user sees and points at. The vector
// overlay is authored in display space unless it has been re-projected for
// export.
package geom

import (
	"fmt"
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
)

// Point is a location in any of the coordinate spaces.
type Point struct {
	X, Y float64
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point { return Point{X: x, Y: y} }

func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Mul(k float64) Point { return Point{p.X * k, p.Y * k} }
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }
func (p Point) String() string { return fmt.Sprintf("(%g,%g)", p.X, p.Y) }
func (p Point) R2() r2.Point { return r2.Point{X: p.X, Y: p.Y} }
func (p Point) Near(q Point, eps float64) bool { return p.Dist(q) < eps }

// Rect is an axis-aligned rectangle given by its top-left corner and size.
type Rect struct {
	X, Y, W, H float64
}

// RectFromPoints returns the bounding box of the provided points.
func RectFromPoints(pts ...Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// FromR2 converts an r2.Rect into a Rect. Empty intervals yield a zero Rect.
func FromR2(r r2.Rect) Rect {
	if r.IsEmpty() {
		return Rect{}
	}
	return Rect{X: r.X.Lo, Y: r.Y.Lo, W: r.X.Length(), H: r.Y.Length()}
}

// R2 converts r into the r2 representation used for unions and containment.
func (r Rect) R2() r2.Rect {
	n := r.Normalize()
	return r2.Rect{
		X: r1.Interval{Lo: n.X, Hi: n.X + n.W},
		Y: r1.Interval{Lo: n.Y, Hi: n.Y + n.H},
	}
}

func (r Rect) Min() Point { return Point{r.X, r.Y} }
func (r Rect) Max() Point { return Point{r.X + r.W, r.Y + r.H} }
func (r Rect) Center() Point { return Point{r.X + r.W/2, r.Y + r.H/2} }
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

func (r Rect) String() string {
	return fmt.Sprintf("{x:%g y:%g w:%g h:%g}", r.X, r.Y, r.W, r.H)
}

// Normalize returns r with a non-negative width and height.
func (r Rect) Normalize() Rect {
	if r.W < 0 {
		r.X += r.W
		r.W = -r.W
	}
	if r.H < 0 {
		r.Y += r.H
		r.H = -r.H
	}
	return r
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return r.R2().ContainsPoint(p.R2())
}

// Translate returns r shifted by d.
func (r Rect) Translate(d Point) Rect {
	r.X += d.X
	r.Y += d.Y
	return r
}

// Inset shrinks r by d on every side; a negative d grows it.
func (r Rect) Inset(d float64) Rect {
	return Rect{X: r.X + d, Y: r.Y + d, W: r.W - 2*d, H: r.H - 2*d}
}

// Union returns the smallest rectangle containing r and s.
func (r Rect) Union(s Rect) Rect {
	return FromR2(r.R2().Union(s.R2()))
}

// Intersect returns the overlap of r and s, or a zero Rect when disjoint.
func (r Rect) Intersect(s Rect) Rect {
	return FromR2(r.R2().Intersection(s.R2()))
}

// Within reports whether r lies entirely inside bounds.
func (r Rect) Within(bounds Rect) bool {
	return bounds.R2().Contains(r.R2())
}

// UnionAll folds rects into one bounding box. ok is false when rects is empty.
func UnionAll(rects []Rect) (u Rect, ok bool) {
	acc := r2.EmptyRect()
	for _, r := range rects {
		acc = acc.Union(r.R2())
	}
	if acc.IsEmpty() {
		return Rect{}, false
	}
	return FromR2(acc), true
}
