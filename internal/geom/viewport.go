package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Camera is the viewport state owned by the rendering engine.
type Camera struct {
	// Zoom is a homothety about the viewport centre. Zero means 1.
	Zoom float64
	// Pan offsets the image in native pixels.
	Pan Point
	// Window and Level map stored intensities to display grey levels.
	// A zero Window leaves intensities untouched.
	Window, Level float64
}

// EffectiveZoom returns the zoom factor, treating non-positive values as 1.
func (c Camera) EffectiveZoom() float64 {
	if c.Zoom <= 0 || math.IsNaN(c.Zoom) {
		return 1
	}
	return c.Zoom
}

// Affine is a 2D affine map: x' = A*x + B*y + C, y' = D*x + E*y + F.
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Identity is the affine map that leaves points unchanged.
var Identity = Affine{A: 1, E: 1}

// Apply maps p through m.
func (m Affine) Apply(p Point) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.C,
		Y: m.D*p.X + m.E*p.Y + m.F,
	}
}

// Scale returns the mean linear scale factor of m.
func (m Affine) Scale() float64 {
	return math.Sqrt(math.Abs(m.A*m.E - m.B*m.D))
}

func (m Affine) dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m.A, m.B, m.C,
		m.D, m.E, m.F,
		0, 0, 1,
	})
}

// Invert returns the inverse map. Singular maps are reported as an error.
func (m Affine) Invert() (Affine, error) {
	var inv mat.Dense
	if err := inv.Inverse(m.dense()); err != nil {
		return Affine{}, fmt.Errorf("invert affine: %w", err)
	}
	return Affine{
		A: inv.At(0, 0), B: inv.At(0, 1), C: inv.At(0, 2),
		D: inv.At(1, 0), E: inv.At(1, 1), F: inv.At(1, 2),
	}, nil
}

// Then returns the map that applies m and then n.
func (m Affine) Then(n Affine) Affine {
	var out mat.Dense
	out.Mul(n.dense(), m.dense())
	return Affine{
		A: out.At(0, 0), B: out.At(0, 1), C: out.At(0, 2),
		D: out.At(1, 0), E: out.At(1, 1), F: out.At(1, 2),
	}
}

// Mapper converts between world space and the native surface.
type Mapper interface {
	WorldToSurface(Point) Point
	SurfaceToWorld(Point) Point
}

// Viewport describes how an image with the given world extent is fitted
// into a native surface.
type Viewport struct {
	Camera       Camera
	World        Rect
	NativeWidth  int
	NativeHeight int
}

// Affine returns the world to native map: the world extent is fitted into
// the surface, scaled by zoom about the surface centre and shifted by pan.
func (v Viewport) Affine() Affine {
	fit := 1.0
	if v.World.W > 0 && v.World.H > 0 {
		fit = math.Min(float64(v.NativeWidth)/v.World.W, float64(v.NativeHeight)/v.World.H)
	}
	s := fit * v.Camera.EffectiveZoom()
	wc := v.World.Center()
	nc := Point{X: float64(v.NativeWidth) / 2, Y: float64(v.NativeHeight) / 2}
	return Affine{
		A: s, C: nc.X - wc.X*s + v.Camera.Pan.X,
		E: s, F: nc.Y - wc.Y*s + v.Camera.Pan.Y,
	}
}

// Mapper returns a Mapper for v with the inverse precomputed.
func (v Viewport) Mapper() (AffineMapper, error) {
	fwd := v.Affine()
	inv, err := fwd.Invert()
	if err != nil {
		return AffineMapper{}, err
	}
	return AffineMapper{Forward: fwd, Inverse: inv}, nil
}

// AffineMapper is a Mapper backed by an affine map and its inverse.
type AffineMapper struct {
	Forward, Inverse Affine
}

func (m AffineMapper) WorldToSurface(p Point) Point { return m.Forward.Apply(p) }
func (m AffineMapper) SurfaceToWorld(p Point) Point { return m.Inverse.Apply(p) }
