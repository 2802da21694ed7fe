package gleval

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

const (
	// MarchIterations is the maximum amount of steps taken along a ray.
	MarchIterations = 500
	// MarchStep is the fixed distance, in units of ray direction length, advanced per step.
	MarchStep float32 = 0.01
	// NormalEpsilon is the central difference offset used to estimate normals.
	NormalEpsilon float32 = 0.001
)

// Camera is a pinhole camera orbiting the vertical axis as time passes.
// Orientation is a pure function of time: the position is rotated about Y by time radians.
type Camera struct {
	Position    ms3.Vec
	FocalLength float32
}

// RotateY rotates v about the vertical axis by angle radians.
// Matches the row-vector product v*R used by GLSL for a column-major Y rotation matrix.
func RotateY(v ms3.Vec, angle float32) ms3.Vec {
	s, c := math32.Sincos(angle)
	return ms3.Vec{
		X: v.X*c + v.Z*s,
		Y: v.Y,
		Z: -v.X*s + v.Z*c,
	}
}

// At returns the camera position at time seconds.
func (c Camera) At(time float32) ms3.Vec {
	return RotateY(c.Position, time)
}

// Ray returns the origin and direction of the ray through fragCoord.
// The viewport is one unit tall, resolution.X/resolution.Y wide and lies
// focal length units in front of the camera. The direction is the viewport point
// minus the camera position and is not normalized.
func (c Camera) Ray(fragCoord, resolution ms2.Vec, time float32) (origin, dir ms3.Vec) {
	uv := ms2.DivElem(fragCoord, resolution)
	a := resolution.X / resolution.Y
	origin = c.At(time)
	// lowerLeft = origin - (a/2, 0.5, -focal); viewport = lowerLeft + (a*u, v, 0).
	dir = ms3.Vec{
		X: a*uv.X - a/2,
		Y: uv.Y - 0.5,
		Z: c.FocalLength,
	}
	return origin, dir
}

// Evaluator ray marches a fixed, ordered set of surfaces and shades hits with a headlight.
// It holds no mutable state and is safe for concurrent use.
type Evaluator struct {
	cam      Camera
	surfaces []SDF3
}

// NewEvaluator returns an evaluator for the surfaces seen through cam.
// Surfaces are tested in the order given.
func NewEvaluator(cam Camera, surfaces ...SDF3) (*Evaluator, error) {
	if cam.FocalLength <= 0 {
		return nil, errBadFocal
	} else if len(surfaces) == 0 {
		return nil, errNoSurfaces
	}
	for _, s := range surfaces {
		if s == nil {
			return nil, errNilSDF
		}
	}
	return &Evaluator{
		cam:      cam,
		surfaces: append([]SDF3{}, surfaces...),
	}, nil
}

// Camera returns the evaluator's camera.
func (e *Evaluator) Camera() Camera { return e.cam }

// Evaluate returns the RGB color in [0,1] of the pixel at fragCoord, a bottom-left
// origin pixel coordinate (pixel centers at +0.5) on a resolution sized canvas, at time seconds.
func (e *Evaluator) Evaluate(fragCoord, resolution ms2.Vec, time float32) ms3.Vec {
	if resolution.X <= 0 || resolution.Y <= 0 {
		return ms3.Vec{}
	}
	origin, dir := e.cam.Ray(fragCoord, resolution, time)
	return e.March(origin, dir)
}

// March steps along the ray and returns the shaded color of the first hit or black on a miss.
func (e *Evaluator) March(origin, dir ms3.Vec) ms3.Vec {
	idx, p, ok := e.Hit(origin, dir)
	if !ok {
		return ms3.Vec{}
	}
	return shade(e.surfaces[idx], p, origin)
}

// Hit steps MarchIterations times by MarchStep along the ray. On each step the surfaces
// are tested in order and the first with non-positive distance is reported. There is
// no closest-hit resolution between surfaces on the same step.
func (e *Evaluator) Hit(origin, dir ms3.Vec) (surface int, p ms3.Vec, ok bool) {
	for i := 0; i < MarchIterations; i++ {
		p = ms3.Add(origin, ms3.Scale(MarchStep*float32(i), dir))
		for j, s := range e.surfaces {
			if s.Distance(p) <= 0 {
				return j, p, true
			}
		}
	}
	return -1, ms3.Vec{}, false
}

// shade lights p with a white light co-located with the camera.
func shade(s SDF3, p, camera ms3.Vec) ms3.Vec {
	n := SurfaceNormal(s, p, NormalEpsilon)
	lightDir := unit(ms3.Sub(camera, p))
	k := clampf(ms3.Dot(n, lightDir), 0, 1)
	return ms3.Vec{X: k, Y: k, Z: k}
}
