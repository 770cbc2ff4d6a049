package geom

// Transform is a per-frame snapshot of every conversion the pipeline needs.
// It must be rebuilt after a resize; holding one across a resize mixes
// scale factors from two different frames.
type Transform struct {
	Surface  Mapper
	Geometry DisplayGeometry
}

// NewTransform pairs a surface mapper with a display geometry.
func NewTransform(surface Mapper, g DisplayGeometry) (Transform, error) {
	if !g.Valid() {
		return Transform{}, ErrInvalidGeometry
	}
	if surface == nil {
		surface = AffineMapper{Forward: Identity, Inverse: Identity}
	}
	return Transform{Surface: surface, Geometry: g}, nil
}

func (t Transform) WorldToNative(p Point) Point { return t.Surface.WorldToSurface(p) }
func (t Transform) NativeToWorld(p Point) Point { return t.Surface.SurfaceToWorld(p) }
func (t Transform) NativeToDisplay(p Point) Point { return t.Geometry.NativeToDisplay(p) }
func (t Transform) DisplayToNative(p Point) Point { return t.Geometry.DisplayToNative(p) }

// WorldToDisplay maps world space to native and then to display.
func (t Transform) WorldToDisplay(p Point) Point {
	return t.Geometry.NativeToDisplay(t.Surface.WorldToSurface(p))
}

// DisplayToWorld is the inverse of WorldToDisplay.
func (t Transform) DisplayToWorld(p Point) Point {
	return t.Surface.SurfaceToWorld(t.Geometry.DisplayToNative(p))
}
