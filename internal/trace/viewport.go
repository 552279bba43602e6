package trace

import (
	"autotrace/pkg/geometry"
)

// Viewport maps screen pixels (y down) onto map coordinates (y up).
type Viewport struct {
	toMap geometry.AffineTransform
	toPx  geometry.AffineTransform
}

// NewViewport creates a viewport whose top-left pixel shows origin and where
// one pixel spans unitsPerPixel map units.
func NewViewport(origin geometry.Point2D, unitsPerPixel float64) *Viewport {
	v := &Viewport{}
	v.set(geometry.AffineTransform{
		A: unitsPerPixel, TX: origin.X,
		D: -unitsPerPixel, TY: origin.Y,
	})
	return v
}

func (v *Viewport) set(t geometry.AffineTransform) {
	inv, ok := t.Inverse()
	if !ok {
		return
	}
	v.toMap = t
	v.toPx = inv
}

// ToMap converts a screen position into map coordinates.
func (v *Viewport) ToMap(screen geometry.Point2D) geometry.Point2D {
	return v.toMap.Apply(screen)
}

// ToScreen converts map coordinates into a screen position.
func (v *Viewport) ToScreen(p geometry.Point2D) geometry.Point2D {
	return v.toPx.Apply(p)
}

// UnitsPerPixel returns the map distance covered by one pixel.
func (v *Viewport) UnitsPerPixel() float64 {
	return v.toMap.ScaleFactor()
}

// Pan shifts the view by a screen distance.
func (v *Viewport) Pan(dx, dy float64) {
	v.set(v.toMap.Compose(geometry.Translation(-dx, -dy)))
}

// Zoom scales the view by factor around a screen position; factors above 1
// zoom in.
func (v *Viewport) Zoom(factor float64, around geometry.Point2D) {
	if factor <= 0 {
		return
	}
	s := 1 / factor
	t := geometry.Translation(around.X, around.Y).
		Compose(geometry.Scale(s, s)).
		Compose(geometry.Translation(-around.X, -around.Y))
	v.set(v.toMap.Compose(t))
}
