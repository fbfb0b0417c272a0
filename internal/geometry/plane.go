package geometry

import "math"

// Plane is an oriented plane through Point with a unit outward Normal.
type Plane struct {
	Point  Vec3
	Normal Vec3
}

// Line is an infinite line through Point along the unit vector Direction.
type Line struct {
	Point     Vec3
	Direction Vec3
}

// PlaneFromPoints builds the plane through a, b and c using the VMF winding:
// the points run clockwise when viewed from outside the brush, so the normal
// (c-a)×(b-a) points out of the solid.
//
// Postcondition: ok is false when two points coincide or all three are
// collinear. Collinearity is judged on the absolute area of the spanned
// parallelogram, so long thin faces are accepted.
func PlaneFromPoints(a, b, c Vec3) (p Plane, ok bool) {
	d1 := b.Sub(a)
	d2 := c.Sub(a)
	if d1.Length() < Epsilon || d2.Length() < Epsilon || c.Sub(b).Length() < Epsilon {
		return Plane{}, false
	}
	n := d2.Cross(d1)
	if n.Length() < Epsilon {
		return Plane{}, false
	}
	return Plane{Point: a, Normal: n.Normalize()}, true
}

// Degenerate reports whether a, b and c fail to define a plane.
func Degenerate(a, b, c Vec3) bool {
	_, ok := PlaneFromPoints(a, b, c)
	return !ok
}

// Flipped returns the plane with its normal reversed.
func (p Plane) Flipped() Plane {
	return Plane{Point: p.Point, Normal: p.Normal.Neg()}
}

// SignedDistance is positive in front of the plane (outside the brush).
func (p Plane) SignedDistance(q Vec3) float64 {
	return q.Sub(p.Point).Dot(p.Normal)
}

// IntersectPlane returns the line shared by p and o.
//
// Postcondition: ok is false when the planes are parallel or coincide.
func (p Plane) IntersectPlane(o Plane) (Line, bool) {
	perp := p.Normal.Cross(o.Normal)
	if perp.Length() < Epsilon {
		return Line{}, false
	}
	// X = a·N1 + b·N2 + c·perp satisfies both plane equations for any c;
	// solving for a and b collapses to the closed form below.
	d1 := p.Normal.Dot(p.Point)
	d2 := o.Normal.Dot(o.Point)
	point := p.Normal.Scale(d2).Sub(o.Normal.Scale(d1)).Cross(perp.Neg()).Scale(1 / perp.LengthSquared())
	return Line{Point: point, Direction: perp.Normalize()}, true
}

// IntersectLine returns the point where l crosses p.
//
// Postcondition: ok is false when l is parallel to p.
func (p Plane) IntersectLine(l Line) (Vec3, bool) {
	denom := p.Normal.Dot(l.Direction)
	if math.Abs(denom) < Epsilon {
		return Vec3{}, false
	}
	t := (p.Point.Dot(p.Normal) - l.Point.Dot(p.Normal)) / denom
	return l.Point.Add(l.Direction.Scale(t)), true
}
