package glbuild

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/soypat/geometry/ms3"
)

// Surface stores information for generating the signed distance function of
// an implicit surface in shader source code.
type Surface interface {
	// AppendShaderName appends the base name of the shader function to the buffer
	// and returns the result, i.e: "sphere". The [Programmer] makes it unique.
	AppendShaderName(b []byte) []byte
	// AppendShaderBody appends the body of the distance function of argument `p vec3`
	// to the buffer and returns the result. The body must be a single return statement
	// so it is valid both in GLSL and in Kage.
	AppendShaderBody(b []byte) []byte
}

// AnalyticNormal is implemented by surfaces with a closed form normal. Surfaces that
// do not implement it get their normal estimated by central differences in the shader.
type AnalyticNormal interface {
	// AppendShaderNormal appends an expression evaluating to the (not necessarily unit)
	// normal at the vec3 variable named point.
	AppendShaderNormal(b []byte, point string) []byte
}

// Scene is the shader-side description of a ray marched scene.
type Scene struct {
	Camera      ms3.Vec
	FocalLength float32
	// Surfaces are tested in order on every march step.
	Surfaces []Surface
}

// Uniform names shared by every generated program and by the backends drawing them.
const (
	UniformTime       = "u_time"
	UniformResolution = "u_resolution"
	UniformMouse      = "u_mouse"

	// Kage uniforms must be exported identifiers.
	KageUniformTime       = "Time"
	KageUniformResolution = "Resolution"
	KageUniformMouse      = "Mouse"
)

// VertexSource is the fixed pass-through vertex stage. Quad vertices are already in clip space
// so identity model/view matrices and a [-1,1] orthographic projection reproduce them.
const VertexSource = `attribute vec4 aVertexPosition;

uniform mat4 uModelMatrix;
uniform mat4 uViewMatrix;
uniform mat4 uProjectionMatrix;

void main() {
	gl_Position = uProjectionMatrix * uViewMatrix * uModelMatrix * aVertexPosition;
}
`

var (
	errNoSurfaces = errors.New("scene has no surfaces")
	errBadFocal   = errors.New("zero or negative focal length")
)

// Programmer implements shader generation logic for a [Scene].
type Programmer struct {
	scratch    []byte
	names      []string
	iterations int
	step       float32
	normalEps  float32
}

// NewDefaultProgrammer returns a Programmer marching 500 steps of 0.01 and estimating normals with a 0.001 offset.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		scratch:    make([]byte, 0, 1024),
		iterations: 500,
		step:       0.01,
		normalEps:  0.001,
	}
}

// SetMarch sets the amount of march iterations, the step size and the normal estimation offset.
func (p *Programmer) SetMarch(iterations int, step, normalEps float32) {
	if iterations < 1 || step <= 0 || normalEps <= 0 {
		panic("invalid march parameters")
	}
	p.iterations = iterations
	p.step = step
	p.normalEps = normalEps
}

// WriteFragmentGLSL writes a WebGL (GLSL ES 1.00) fragment program rendering the scene
// to w. The program reads the u_time, u_resolution and u_mouse uniforms.
func (p *Programmer) WriteFragmentGLSL(w io.Writer, scene Scene) (int, error) {
	err := p.nameSurfaces(scene)
	if err != nil {
		return 0, err
	}
	b := p.scratch[:0]
	b = append(b, "#ifdef GL_ES\nprecision mediump float;\n#endif\n\n"...)
	b = AppendDefineDecl(b, "ITERATIONS", strconv.Itoa(p.iterations))
	b = AppendDefineDecl(b, "STEP_SIZE", string(AppendFloat(nil, p.step)))
	b = AppendDefineDecl(b, "NORMAL_EPS", string(AppendFloat(nil, p.normalEps)))
	b = append(b, "\nuniform float "+UniformTime+";\nuniform vec2 "+UniformResolution+";\nuniform vec2 "+UniformMouse+";\n\n"...)
	b = append(b, "const "...)
	b = AppendVec3Decl(b, "cameraPosition", scene.Camera)
	b = append(b, "const "...)
	b = AppendFloatDecl(b, "focalLength", scene.FocalLength)
	b = append(b, `
vec3 rotateY(vec3 v, float angle) {
	float c = cos(angle);
	float s = sin(angle);
	return vec3(v.x*c + v.z*s, v.y, -v.x*s + v.z*c);
}

vec3 createRay() {
	vec2 uv = gl_FragCoord.xy / `+UniformResolution+`;
	float a = `+UniformResolution+`.x / `+UniformResolution+`.y;
	return vec3(a*uv.x - a/2.0, uv.y - 0.5, focalLength);
}

vec3 shade(vec3 normal, vec3 point, vec3 origin) {
	vec3 lightDir = normalize(origin - point);
	return vec3(1.0) * clamp(dot(normal, lightDir), 0.0, 1.0);
}

`...)
	for i, s := range scene.Surfaces {
		b = append(b, "float "...)
		b = append(b, p.names[i]...)
		b = append(b, "(vec3 p) {\n\t"...)
		b = s.AppendShaderBody(b)
		b = append(b, "\n}\n\n"...)
	}
	b = append(b, "vec3 rayMarch(vec3 origin, vec3 ray) {\n\tfor (int i = 0; i < ITERATIONS; ++i) {\n\t\tvec3 point = origin + STEP_SIZE * float(i) * ray;\n"...)
	for i, s := range scene.Surfaces {
		name := p.names[i]
		b = append(b, "\t\tif ("+name+"(point) <= 0.0) {\n"...)
		if an, ok := s.(AnalyticNormal); ok {
			b = append(b, "\t\t\treturn shade(normalize("...)
			b = an.AppendShaderNormal(b, "point")
			b = append(b, "), point, origin);\n"...)
		} else {
			b = append(b, "\t\t\tvec3 e = vec3(NORMAL_EPS, 0.0, 0.0);\n\t\t\tvec3 grad = "...)
			b = appendCentralDiff(b, name, "point", "e")
			b = append(b, ";\n\t\t\treturn shade(normalize(grad), point, origin);\n"...)
		}
		b = append(b, "\t\t}\n"...)
	}
	b = append(b, `	}
	return vec3(0.0);
}

void main() {
	vec3 origin = rotateY(cameraPosition, `+UniformTime+`);
	gl_FragColor = vec4(rayMarch(origin, createRay()), 1.0);
}
`...)
	p.scratch = b
	return w.Write(b)
}

// WriteKage writes an ebiten Kage fragment program rendering the scene to w. Kage
// pixels have a top-left origin so the fragment coordinate is flipped to match GLSL.
func (p *Programmer) WriteKage(w io.Writer, scene Scene) (int, error) {
	err := p.nameSurfaces(scene)
	if err != nil {
		return 0, err
	}
	b := p.scratch[:0]
	b = append(b, "//kage:unit pixels\n\npackage main\n\n"...)
	b = append(b, "var "+KageUniformTime+" float\nvar "+KageUniformResolution+" vec2\nvar "+KageUniformMouse+" vec2\n\n"...)
	b = append(b, `func rotateY(v vec3, angle float) vec3 {
	c := cos(angle)
	s := sin(angle)
	return vec3(v.x*c+v.z*s, v.y, -v.x*s+v.z*c)
}

func shade(normal vec3, point vec3, origin vec3) vec3 {
	k := clamp(dot(normal, normalize(origin-point)), 0.0, 1.0)
	return vec3(k)
}

`...)
	for i, s := range scene.Surfaces {
		b = append(b, "func "...)
		b = append(b, p.names[i]...)
		b = append(b, "(p vec3) float {\n\t"...)
		b = s.AppendShaderBody(b)
		b = append(b, "\n}\n\n"...)
	}
	b = append(b, "func rayMarch(origin vec3, ray vec3) vec3 {\n\tfor i := 0; i < "...)
	b = strconv.AppendInt(b, int64(p.iterations), 10)
	b = append(b, "; i++ {\n\t\tpoint := origin + "...)
	b = AppendFloat(b, p.step)
	b = append(b, "*float(i)*ray\n"...)
	for i, s := range scene.Surfaces {
		name := p.names[i]
		b = append(b, "\t\tif "+name+"(point) <= 0.0 {\n"...)
		if an, ok := s.(AnalyticNormal); ok {
			b = append(b, "\t\t\treturn shade(normalize("...)
			b = an.AppendShaderNormal(b, "point")
			b = append(b, "), point, origin)\n"...)
		} else {
			b = append(b, "\t\t\te := vec3("...)
			b = AppendFloat(b, p.normalEps)
			b = append(b, ", 0.0, 0.0)\n\t\t\tgrad := "...)
			b = appendCentralDiff(b, name, "point", "e")
			b = append(b, "\n\t\t\treturn shade(normalize(grad), point, origin)\n"...)
		}
		b = append(b, "\t\t}\n"...)
	}
	b = append(b, "\t}\n\treturn vec3(0.0)\n}\n\n"...)
	b = append(b, "func Fragment(dstPos vec4, srcPos vec2, color vec4) vec4 {\n"...)
	b = append(b, "\tres := "+KageUniformResolution+"\n\tuv := vec2(dstPos.x, res.y-dstPos.y) / res\n\ta := res.x / res.y\n"...)
	b = append(b, "\torigin := rotateY("...)
	b = appendVec3(b, scene.Camera)
	b = append(b, ", "+KageUniformTime+")\n\tray := vec3(a*uv.x-a/2.0, uv.y-0.5, "...)
	b = AppendFloat(b, scene.FocalLength)
	b = append(b, ")\n\treturn vec4(rayMarch(origin, ray), 1.0)\n}\n"...)
	p.scratch = b
	return w.Write(b)
}

// nameSurfaces validates the scene and gives every surface a unique function name.
func (p *Programmer) nameSurfaces(scene Scene) error {
	if len(scene.Surfaces) == 0 {
		return errNoSurfaces
	} else if scene.FocalLength <= 0 {
		return errBadFocal
	}
	p.names = p.names[:0]
	for i, s := range scene.Surfaces {
		if s == nil {
			return fmt.Errorf("nil surface at index %d", i)
		}
		name := s.AppendShaderName(p.scratch[:0])
		if len(name) == 0 {
			return fmt.Errorf("empty shader name for %T", s)
		}
		name = strconv.AppendInt(name, int64(i), 10)
		p.names = append(p.names, string(name))
	}
	return nil
}

// appendCentralDiff appends a vec3 gradient expression of fn at point using the vec3 offset variable e=(eps,0,0).
func appendCentralDiff(b []byte, fn, point, e string) []byte {
	b = append(b, "vec3("...)
	for i, swz := range [3]string{".xyy", ".yxy", ".yyx"} {
		b = append(b, fn+"("+point+"+"+e+swz+")-"+fn+"("+point+"-"+e+swz+")"...)
		if i != 2 {
			b = append(b, ", "...)
		}
	}
	return append(b, ')')
}

// TranslateDesktop rewrites WebGL style GLSL ES 1.00 source so that it compiles in
// an OpenGL 4.1 core profile context. Sources that already declare a #version are returned untouched.
func TranslateDesktop(src string, vertex bool) string {
	if strings.HasPrefix(strings.TrimSpace(src), "#version") {
		return src
	}
	var sb strings.Builder
	sb.WriteString("#version 410 core\n")
	if vertex {
		src = replaceWord(src, "attribute", "in")
		src = replaceWord(src, "varying", "out")
	} else {
		sb.WriteString("out vec4 pad_FragColor;\n")
		src = replaceWord(src, "varying", "in")
		src = replaceWord(src, "gl_FragColor", "pad_FragColor")
		src = replaceWord(src, "texture2D", "texture")
	}
	sb.WriteString(src)
	return sb.String()
}

// replaceWord replaces whole-identifier occurrences of old with new.
func replaceWord(src, old, new string) string {
	var sb strings.Builder
	for {
		idx := strings.Index(src, old)
		if idx < 0 {
			sb.WriteString(src)
			return sb.String()
		}
		end := idx + len(old)
		whole := (idx == 0 || !isIdentByte(src[idx-1])) && (end == len(src) || !isIdentByte(src[end]))
		sb.WriteString(src[:idx])
		if whole {
			sb.WriteString(new)
		} else {
			sb.WriteString(old)
		}
		src = src[end:]
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// AppendDefineDecl appends a preprocessor #define directive.
func AppendDefineDecl(b []byte, aliasToDefine, aliasReplace string) []byte {
	b = append(b, "#define "...)
	b = append(b, aliasToDefine...)
	b = append(b, ' ')
	b = append(b, aliasReplace...)
	b = append(b, '\n')
	return b
}

// AppendVec3Decl appends a GLSL vec3 variable declaration.
func AppendVec3Decl(b []byte, vec3Varname string, v ms3.Vec) []byte {
	b = append(b, "vec3 "...)
	b = append(b, vec3Varname...)
	b = append(b, " = "...)
	b = appendVec3(b, v)
	b = append(b, ';', '\n')
	return b
}

// AppendFloatDecl appends a GLSL float variable declaration.
func AppendFloatDecl(b []byte, floatVarname string, v float32) []byte {
	b = append(b, "float "...)
	b = append(b, floatVarname...)
	b = append(b, " = "...)
	b = AppendFloat(b, v)
	b = append(b, ';', '\n')
	return b
}

// AppendVec3 appends a vec3 constructor expression valid in GLSL and Kage.
func AppendVec3(b []byte, v ms3.Vec) []byte {
	return appendVec3(b, v)
}

func appendVec3(b []byte, v ms3.Vec) []byte {
	b = append(b, "vec3("...)
	arr := v.Array()
	b = AppendFloats(b, ',', arr[:]...)
	return append(b, ')')
}

// AppendFloat appends the shortest representation of v that is a floating point
// literal in GLSL and Kage, i.e: 2 is appended as "2.0".
func AppendFloat(b []byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'g', -1, 32)
	if bytes.IndexAny(b[start:], ".eEnN") < 0 {
		b = append(b, '.', '0')
	}
	return b
}

// AppendFloats appends floats separated by sep. A zero sep appends no separator.
func AppendFloats(b []byte, sep byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}
