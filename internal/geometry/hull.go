package geometry

import (
	"math"
	"sort"
)

// HullTolerance is the distance within which a point counts as lying on a hull face.
// It is coarser than Epsilon because hull vertices come from chained intersections.
const HullTolerance = 0.01

// ConvexHull is the intersection of the half-spaces behind each plane.
type ConvexHull struct {
	Planes []Plane
}

// Face is one bounding polygon of a hull, wound counter-clockwise when
// viewed from outside.
type Face struct {
	// Plane is the index into ConvexHull.Planes that produced the face.
	Plane    int
	Normal   Vec3
	Vertices []Vec3
}

// SignedDistance is negative inside the hull, positive outside and zero on its surface.
func (h ConvexHull) SignedDistance(q Vec3) float64 {
	d := math.Inf(-1)
	for _, p := range h.Planes {
		d = math.Max(d, p.SignedDistance(q))
	}
	return d
}

// Vertices returns the distinct corners of the hull: every triple-plane
// intersection that lies on the hull surface.
func (h ConvexHull) Vertices() []Vec3 {
	var out []Vec3
	for i := range h.Planes {
		for j := 0; j < i; j++ {
			line, ok := h.Planes[i].IntersectPlane(h.Planes[j])
			if !ok {
				continue
			}
			for k := 0; k < j; k++ {
				pt, ok := h.Planes[k].IntersectLine(line)
				if !ok {
					continue
				}
				if math.Abs(h.SignedDistance(pt)) < HullTolerance {
					out = appendUnique(out, pt)
				}
			}
		}
	}
	return out
}

// Faces returns one polygon per plane that touches at least three hull vertices.
// Planes that only graze the hull on an edge or corner produce no face.
func (h ConvexHull) Faces() []Face {
	verts := h.Vertices()
	var faces []Face
	for i, p := range h.Planes {
		var on []Vec3
		for _, v := range verts {
			if math.Abs(p.SignedDistance(v)) < HullTolerance {
				on = append(on, v)
			}
		}
		if len(on) < 3 {
			continue
		}
		faces = append(faces, Face{Plane: i, Normal: p.Normal, Vertices: windAround(on, p.Normal)})
	}
	return faces
}

// Bounds returns the bounding box of the hull vertices.
func (h ConvexHull) Bounds() Box {
	var b Box
	for _, v := range h.Vertices() {
		b = b.Extend(v)
	}
	return b
}

// Closed reports whether the planes bound a finite volume: at least four faces
// and every plane contributes one.
func (h ConvexHull) Closed() bool {
	faces := h.Faces()
	return len(faces) >= 4 && len(faces) == len(h.Planes)
}

func appendUnique(pts []Vec3, p Vec3) []Vec3 {
	for _, q := range pts {
		if q.ApproxEqual(p, HullTolerance) {
			return pts
		}
	}
	return append(pts, p)
}

// windAround orders coplanar points counter-clockwise around normal.
func windAround(pts []Vec3, normal Vec3) []Vec3 {
	var centre Vec3
	for _, p := range pts {
		centre = centre.Add(p)
	}
	centre = centre.Scale(1 / float64(len(pts)))

	u := pts[0].Sub(centre).Normalize()
	if u.Length() < Epsilon {
		u = pts[1].Sub(centre).Normalize()
	}
	v := normal.Cross(u)

	out := append([]Vec3(nil), pts...)
	angle := func(p Vec3) float64 {
		d := p.Sub(centre)
		return math.Atan2(d.Dot(v), d.Dot(u))
	}
	sort.SliceStable(out, func(i, j int) bool { return angle(out[i]) < angle(out[j]) })
	return out
}
