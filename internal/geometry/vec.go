// Package geometry provides the vector and plane math used to validate VMF
// brushes and derive their convex hulls for mesh generation.
package geometry

import (
	"fmt"
	"math"
	"strconv"
)

// Epsilon is the tolerance below which lengths and distances are treated as zero.
const Epsilon = 0.0001

// Vec3 is a point or direction in map space.
type Vec3 struct {
	X, Y, Z float64
}

// V is shorthand for Vec3{x, y, z}.
func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (a Vec3) Add(b Vec3) Vec3        { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3        { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3   { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float64     { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Neg() Vec3              { return Vec3{-a.X, -a.Y, -a.Z} }
func (a Vec3) Length() float64        { return math.Sqrt(a.Dot(a)) }
func (a Vec3) LengthSquared() float64 { return a.Dot(a) }

// Cross returns the cross product a × b.
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// Normalize returns a unit vector in the direction of a, or the zero vector
// when a is shorter than Epsilon.
func (a Vec3) Normalize() Vec3 {
	l := a.Length()
	if l < Epsilon {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

// ApproxEqual reports whether a and b differ by less than tol on every axis.
func (a Vec3) ApproxEqual(b Vec3, tol float64) bool {
	return math.Abs(a.X-b.X) < tol && math.Abs(a.Y-b.Y) < tol && math.Abs(a.Z-b.Z) < tol
}

// String renders a as "x y z", the VMF origin syntax.
func (a Vec3) String() string {
	return fmt.Sprintf("%s %s %s", FormatFloat(a.X), FormatFloat(a.Y), FormatFloat(a.Z))
}

// Box is an axis-aligned bounding box. The zero Box is empty.
type Box struct {
	Min, Max Vec3
	valid    bool
}

// Empty reports whether b contains no points.
func (b Box) Empty() bool { return !b.valid }

// Extend returns b grown to include p.
func (b Box) Extend(p Vec3) Box {
	if !b.valid {
		return Box{Min: p, Max: p, valid: true}
	}
	b.Min = Vec3{math.Min(b.Min.X, p.X), math.Min(b.Min.Y, p.Y), math.Min(b.Min.Z, p.Z)}
	b.Max = Vec3{math.Max(b.Max.X, p.X), math.Max(b.Max.Y, p.Y), math.Max(b.Max.Z, p.Z)}
	return b
}

// Union returns the smallest box containing both b and o.
func (b Box) Union(o Box) Box {
	if !o.valid {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Size returns the extent of b on each axis.
func (b Box) Size() Vec3 {
	if !b.valid {
		return Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// FormatFloat renders f in the shortest form that reparses exactly,
// without exponent notation.
func FormatFloat(f float64) string {
	if f == 0 {
		return "0"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
