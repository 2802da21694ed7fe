package shaderpad

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/shaderpad/glbuild"
)

// Sphere is the set of points at Radius distance from Center.
type Sphere struct {
	center ms3.Vec
	r      float32
}

// NewSphere creates a sphere centered at center of radius r.
func NewSphere(center ms3.Vec, r float32) (*Sphere, error) {
	if !(r > 0) || math32.IsInf(r, 0) {
		return nil, fmt.Errorf("invalid sphere radius %v", r)
	}
	return &Sphere{center: center, r: r}, nil
}

func (s *Sphere) Center() ms3.Vec { return s.center }
func (s *Sphere) Radius() float32 { return s.r }

// Distance implements [gleval.SDF3]. It is exact.
func (s *Sphere) Distance(p ms3.Vec) float32 {
	return ms3.Norm(ms3.Sub(p, s.center)) - s.r
}

// Normal implements [gleval.Normaler].
func (s *Sphere) Normal(p ms3.Vec) ms3.Vec {
	return ms3.Unit(ms3.Sub(p, s.center))
}

func (s *Sphere) AppendShaderName(b []byte) []byte {
	return append(b, "sphere"...)
}

func (s *Sphere) AppendShaderBody(b []byte) []byte {
	b = append(b, "return length(p-"...)
	b = glbuild.AppendVec3(b, s.center)
	b = append(b, ")-"...)
	b = glbuild.AppendFloat(b, s.r)
	b = append(b, ';')
	return b
}

// AppendShaderNormal implements [glbuild.AnalyticNormal].
func (s *Sphere) AppendShaderNormal(b []byte, point string) []byte {
	b = append(b, point...)
	b = append(b, '-')
	return glbuild.AppendVec3(b, s.center)
}

func (s *Sphere) AppendText(b []byte) []byte {
	b = append(b, "sphere"...)
	return appendTextFloats(b, s.center.X, s.center.Y, s.center.Z, s.r)
}

// Torus is a ring of radius RingRadius lying on the XZ plane around Center, swept by
// a circle of radius TubeRadius. The vertical (Y) axis is the axis of revolution.
type Torus struct {
	center ms3.Vec
	ring   float32
	tube   float32
}

// NewTorus creates a torus centered at center. ringRadius is the distance from
// the center to the tube centerline and tubeRadius is the radius of the tube.
func NewTorus(center ms3.Vec, ringRadius, tubeRadius float32) (*Torus, error) {
	if !(tubeRadius > 0) || !(ringRadius > 0) || math32.IsInf(ringRadius, 0) || math32.IsInf(tubeRadius, 0) {
		return nil, fmt.Errorf("invalid torus radii ring=%v tube=%v", ringRadius, tubeRadius)
	}
	return &Torus{center: center, ring: ringRadius, tube: tubeRadius}, nil
}

func (t *Torus) Center() ms3.Vec     { return t.center }
func (t *Torus) RingRadius() float32 { return t.ring }
func (t *Torus) TubeRadius() float32 { return t.tube }

// Distance implements [gleval.SDF3]. It is exact. Torus does not implement
// [gleval.Normaler] so its normals are estimated numerically.
func (t *Torus) Distance(p ms3.Vec) float32 {
	p = ms3.Sub(p, t.center)
	q := ms2.Vec{X: math32.Hypot(p.X, p.Z) - t.ring, Y: p.Y}
	return ms2.Norm(q) - t.tube
}

func (t *Torus) AppendShaderName(b []byte) []byte {
	return append(b, "torus"...)
}

func (t *Torus) AppendShaderBody(b []byte) []byte {
	b = append(b, "return length(vec2(length((p-"...)
	b = glbuild.AppendVec3(b, t.center)
	b = append(b, ").xz)-"...)
	b = glbuild.AppendFloat(b, t.ring)
	b = append(b, ", (p-"...)
	b = glbuild.AppendVec3(b, t.center)
	b = append(b, ").y))-"...)
	b = glbuild.AppendFloat(b, t.tube)
	b = append(b, ';')
	return b
}

func (t *Torus) AppendText(b []byte) []byte {
	b = append(b, "torus"...)
	return appendTextFloats(b, t.center.X, t.center.Y, t.center.Z, t.ring, t.tube)
}
