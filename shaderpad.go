// Package shaderpad models the ray marched scenes rendered by the shaderpad
// playground. A [Scene] can be evaluated on the CPU through [gleval] or turned
// into GLSL or Kage fragment programs through [glbuild].
package shaderpad

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/shaderpad/glbuild"
	"github.com/soypat/shaderpad/gleval"
)

// Surface is an implicit surface that can be evaluated on CPU, written as
// shader source and written as scene text.
type Surface interface {
	gleval.SDF3
	glbuild.Surface
	// AppendText appends the scene text line describing the surface, without newline.
	AppendText(b []byte) []byte
}

// Scene is an ordered sequence of surfaces seen through a camera orbiting the Y axis.
type Scene struct {
	Camera   gleval.Camera
	Surfaces []Surface
}

// DefaultCamera returns the camera 0.3 units behind the origin with a focal length of 1.
func DefaultCamera() gleval.Camera {
	return gleval.Camera{Position: ms3.Vec{Z: 0.3}, FocalLength: 1}
}

// DefaultScene returns a sphere of radius 0.3 at (-0.1,-0.2,2) followed by a torus
// at (0.4,0.3,2) with ring radius 0.3 and tube radius 0.1.
func DefaultScene() Scene {
	sphere, err := NewSphere(ms3.Vec{X: -0.1, Y: -0.2, Z: 2}, 0.3)
	if err != nil {
		panic(err)
	}
	torus, err := NewTorus(ms3.Vec{X: 0.4, Y: 0.3, Z: 2}, 0.3, 0.1)
	if err != nil {
		panic(err)
	}
	return Scene{
		Camera:   DefaultCamera(),
		Surfaces: []Surface{sphere, torus},
	}
}

// Evaluator returns a CPU evaluator of the scene.
func (s Scene) Evaluator() (*gleval.Evaluator, error) {
	sdfs := make([]gleval.SDF3, len(s.Surfaces))
	for i := range s.Surfaces {
		sdfs[i] = s.Surfaces[i]
	}
	return gleval.NewEvaluator(s.Camera, sdfs...)
}

func (s Scene) shaderScene() glbuild.Scene {
	surfaces := make([]glbuild.Surface, len(s.Surfaces))
	for i := range s.Surfaces {
		surfaces[i] = s.Surfaces[i]
	}
	return glbuild.Scene{
		Camera:      s.Camera.Position,
		FocalLength: s.Camera.FocalLength,
		Surfaces:    surfaces,
	}
}

// WriteGLSL writes the WebGL fragment program rendering the scene.
func (s Scene) WriteGLSL(w io.Writer) (int, error) {
	return glbuild.NewDefaultProgrammer().WriteFragmentGLSL(w, s.shaderScene())
}

// WriteKage writes the ebiten Kage fragment program rendering the scene.
func (s Scene) WriteKage(w io.Writer) (int, error) {
	return glbuild.NewDefaultProgrammer().WriteKage(w, s.shaderScene())
}

// WriteText writes the scene in the text format read by [ParseScene].
func (s Scene) WriteText(w io.Writer) (int, error) {
	b := []byte("# shaderpad scene\ncamera")
	p := s.Camera.Position
	b = appendTextFloats(b, p.X, p.Y, p.Z, s.Camera.FocalLength)
	b = append(b, '\n')
	for _, surf := range s.Surfaces {
		b = surf.AppendText(b)
		b = append(b, '\n')
	}
	return w.Write(b)
}

// ParseScene reads a scene from text. Each non-empty line not starting with '#' is one of:
//
//	camera x y z focal
//	sphere cx cy cz radius
//	torus cx cy cz ringRadius tubeRadius
//
// The camera line is optional and defaults to [DefaultCamera]. Surfaces keep the
// order in which they appear. All malformed lines are reported in the returned error.
func ParseScene(text string) (Scene, error) {
	scene := Scene{Camera: DefaultCamera()}
	var errs []error
	scanner := bufio.NewScanner(strings.NewReader(text))
	line := 0
	cameraSet := false
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		lineErr := func(format string, args ...any) {
			errs = append(errs, fmt.Errorf("line %d: "+format, append([]any{line}, args...)...))
		}
		args, err := parseFloats(fields[1:])
		if err != nil {
			lineErr("%s: %w", fields[0], err)
			continue
		}
		switch fields[0] {
		case "camera":
			if len(args) != 4 {
				lineErr("camera wants 4 numbers, got %d", len(args))
				continue
			} else if cameraSet {
				lineErr("camera redeclared")
				continue
			} else if args[3] <= 0 {
				lineErr("camera focal length must be positive")
				continue
			}
			cameraSet = true
			scene.Camera = gleval.Camera{
				Position:    ms3.Vec{X: args[0], Y: args[1], Z: args[2]},
				FocalLength: args[3],
			}
		case "sphere":
			if len(args) != 4 {
				lineErr("sphere wants 4 numbers, got %d", len(args))
				continue
			}
			s, err := NewSphere(ms3.Vec{X: args[0], Y: args[1], Z: args[2]}, args[3])
			if err != nil {
				lineErr("%w", err)
				continue
			}
			scene.Surfaces = append(scene.Surfaces, s)
		case "torus":
			if len(args) != 5 {
				lineErr("torus wants 5 numbers, got %d", len(args))
				continue
			}
			t, err := NewTorus(ms3.Vec{X: args[0], Y: args[1], Z: args[2]}, args[3], args[4])
			if err != nil {
				lineErr("%w", err)
				continue
			}
			scene.Surfaces = append(scene.Surfaces, t)
		default:
			lineErr("unknown directive %q", fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, err)
	}
	if len(scene.Surfaces) == 0 && len(errs) == 0 {
		errs = append(errs, errors.New("scene declares no surfaces"))
	}
	if len(errs) > 0 {
		return Scene{}, errors.Join(errs...)
	}
	return scene, nil
}

func parseFloats(fields []string) ([]float32, error) {
	vals := make([]float32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, err
		}
		vals[i] = float32(v)
	}
	return vals, nil
}

func appendTextFloats(b []byte, vals ...float32) []byte {
	for _, v := range vals {
		b = append(b, ' ')
		b = strconv.AppendFloat(b, float64(v), 'g', -1, 32)
	}
	return b
}
