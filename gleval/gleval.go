// Package gleval evaluates signed distance fields and ray marches them on the CPU.
package gleval

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// SDF3 implements a 3D signed distance field evaluated one point at a time on the CPU.
type SDF3 interface {
	// Distance returns the signed distance from p to the surface.
	// Negative inside, zero on the boundary and positive outside.
	Distance(p ms3.Vec) float32
}

// Normaler is implemented by SDFs with a closed form surface normal.
// SDFs that do not implement it get their normals estimated by [NormalCentralDiff].
type Normaler interface {
	// Normal returns the unit normal of the surface closest to p.
	Normal(p ms3.Vec) ms3.Vec
}

var (
	errNilSDF     = errors.New("nil SDF3")
	errNoSurfaces = errors.New("no surfaces to evaluate")
	errBadFocal   = errors.New("zero or negative camera focal length")
)

// NormalCentralDiff estimates the gradient of s at p using central differences
// along each axis with offset eps. The returned normal is not normalized (converted to unit length).
func NormalCentralDiff(s SDF3, p ms3.Vec, eps float32) ms3.Vec {
	var vecs = [3]ms3.Vec{{X: eps}, {Y: eps}, {Z: eps}}
	var n [3]float32
	for dim, h := range vecs {
		n[dim] = s.Distance(ms3.Add(p, h)) - s.Distance(ms3.Sub(p, h))
	}
	return ms3.Vec{X: n[0], Y: n[1], Z: n[2]}
}

// SurfaceNormal returns the unit normal of s at p, analytic if s implements [Normaler].
func SurfaceNormal(s SDF3, p ms3.Vec, eps float32) ms3.Vec {
	if n, ok := s.(Normaler); ok {
		return n.Normal(p)
	}
	return unit(NormalCentralDiff(s, p, eps))
}

// unit returns v scaled to unit length or the zero vector when v has no length.
func unit(v ms3.Vec) ms3.Vec {
	norm := ms3.Norm(v)
	if norm == 0 || math32.IsNaN(norm) {
		return ms3.Vec{}
	}
	return ms3.Scale(1/norm, v)
}

func clampf(v, Min, Max float32) float32 {
	if v < Min {
		return Min
	} else if v > Max {
		return Max
	}
	return v
}
