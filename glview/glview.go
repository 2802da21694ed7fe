//go:build !tinygo && cgo

package glview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glgl/v4.1-core/glgl"
	"github.com/soypat/shaderpad/frame"
	"github.com/soypat/shaderpad/glbuild"
)

// quad is a full-screen triangle strip already in clip space.
var quad = [8]float32{
	-1, 1,
	1, 1,
	-1, -1,
	1, -1,
}

var keyCommands = map[glfw.Key]frame.Command{
	glfw.KeyF5: frame.CommandRecompile,
	glfw.KeyF6: frame.CommandSelectRandom,
	glfw.KeyF7: frame.CommandReset,
	glfw.KeyF8: frame.CommandSave,
}

// View is a GLFW window backend. It must be created and used from the main thread.
type View struct {
	cfg        Config
	window     *glfw.Window
	vao        uint32
	vbo        uint32
	projection mgl32.Mat4
	viewMat    mgl32.Mat4
	model      mgl32.Mat4
}

var _ frame.Backend = (*View)(nil)

// New opens the window, creates the GL context and uploads the static quad.
// Errors wrap [frame.ErrUnsupportedBackend] when no context can be obtained.
func New(cfg Config) (*View, error) {
	cfg.setDefaults()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("%w: %v", frame.ErrUnsupportedBackend, err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("%w: %v", frame.ErrUnsupportedBackend, err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("%w: %v", frame.ErrUnsupportedBackend, err)
	}
	glfw.SwapInterval(1)

	v := &View{
		cfg:        cfg,
		window:     window,
		projection: mgl32.Ortho(-1, 1, -1, 1, -1, 1),
		viewMat:    mgl32.Ident4(),
		model:      mgl32.Ident4(),
	}
	gl.GenVertexArrays(1, &v.vao)
	gl.BindVertexArray(v.vao)
	gl.GenBuffers(1, &v.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, v.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(quad), gl.Ptr(&quad[0]), gl.STATIC_DRAW)
	if err := glgl.Err(); err != nil {
		v.Close()
		return nil, fmt.Errorf("uploading quad: %w", err)
	}
	return v, nil
}

// Program is a linked GL program with its attribute and uniform locations.
// Locations of uniforms a program does not use are -1, which GL ignores.
type Program struct {
	prog      glgl.Program
	posAttrib int32
	proj      int32
	view      int32
	model     int32
	res       int32
	time      int32
	mouse     int32
}

// Release implements [frame.Program].
func (p *Program) Release() { p.prog.Delete() }

// Compile implements [frame.Backend]. source is a WebGL fragment program.
func (v *View) Compile(source string) (frame.Program, error) {
	vert := glbuild.TranslateDesktop(glbuild.VertexSource, true)
	frag := glbuild.TranslateDesktop(source, false)
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   vert + "\x00",
		Fragment: frag + "\x00",
	})
	if err != nil {
		return nil, classify(err)
	}
	p := &Program{
		prog:      prog,
		posAttrib: -1,
		proj:      uniformLocation(prog, "uProjectionMatrix"),
		view:      uniformLocation(prog, "uViewMatrix"),
		model:     uniformLocation(prog, "uModelMatrix"),
		res:       uniformLocation(prog, glbuild.UniformResolution),
		time:      uniformLocation(prog, glbuild.UniformTime),
		mouse:     uniformLocation(prog, glbuild.UniformMouse),
	}
	if attr, err := prog.AttribLocation("aVertexPosition\x00"); err == nil {
		p.posAttrib = int32(attr)
	}
	return p, nil
}

// Draw implements [frame.Backend].
func (v *View) Draw(prog frame.Program, u frame.Uniforms) error {
	p, ok := prog.(*Program)
	if !ok {
		return fmt.Errorf("glview cannot draw %T", prog)
	}
	gl.Viewport(0, 0, int32(u.Resolution.X), int32(u.Resolution.Y))
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)

	p.prog.Bind()
	gl.BindVertexArray(v.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, v.vbo)
	if p.posAttrib >= 0 {
		attr := uint32(p.posAttrib)
		gl.EnableVertexAttribArray(attr)
		gl.VertexAttribPointer(attr, 2, gl.FLOAT, false, 0, gl.PtrOffset(0))
	}
	gl.UniformMatrix4fv(p.proj, 1, false, &v.projection[0])
	gl.UniformMatrix4fv(p.view, 1, false, &v.viewMat[0])
	gl.UniformMatrix4fv(p.model, 1, false, &v.model[0])
	gl.Uniform2f(p.res, u.Resolution.X, u.Resolution.Y)
	gl.Uniform1f(p.time, u.Time)
	gl.Uniform2f(p.mouse, u.Mouse.X, u.Mouse.Y)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
	return glgl.Err()
}

// Size implements [frame.Backend] returning the framebuffer size.
func (v *View) Size() (width, height int) {
	return v.window.GetFramebufferSize()
}

// Run drives d once per display refresh until the window is closed or ctx is done.
func (v *View) Run(ctx context.Context, d *frame.Driver) error {
	v.window.SetCursorPosCallback(func(w *glfw.Window, x, y float64) {
		ww, wh := w.GetSize()
		fw, fh := w.GetFramebufferSize()
		d.SetPointer(frame.ScalePointer(
			ms2.Vec{X: float32(x), Y: float32(y)},
			ms2.Vec{X: float32(ww), Y: float32(wh)},
			ms2.Vec{X: float32(fw), Y: float32(fh)},
		))
	})
	v.window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		if key == glfw.KeyEscape {
			w.SetShouldClose(true)
			return
		}
		cmd, ok := keyCommands[key]
		if !ok {
			return
		}
		if err := d.Do(cmd); err != nil && v.cfg.Log != nil {
			v.cfg.Log.Printf("%v: %v", cmd, err)
		}
	})

	start := glfw.GetTime()
	var lastTitle time.Time
	for !v.window.ShouldClose() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		elapsed := time.Duration((glfw.GetTime() - start) * float64(time.Second))
		err := d.Tick(elapsed)
		if err != nil && v.cfg.Log != nil {
			v.cfg.Log.Println("frame:", err)
		}
		if time.Since(lastTitle) > 250*time.Millisecond {
			v.window.SetTitle(statusTitle(v.cfg.Title, d))
			lastTitle = time.Now()
		}
		v.window.SwapBuffers()
		glfw.PollEvents()
	}
	return nil
}

// Close releases the quad buffers, destroys the window and terminates GLFW.
func (v *View) Close() {
	gl.DeleteBuffers(1, &v.vbo)
	gl.DeleteVertexArrays(1, &v.vao)
	v.window.Destroy()
	glfw.Terminate()
}

func uniformLocation(prog glgl.Program, name string) int32 {
	loc, err := prog.UniformLocation(name + "\x00")
	if err != nil {
		return -1
	}
	return loc
}

// classify maps a glgl compilation error onto the frame error taxonomy.
func classify(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "link"):
		return &frame.LinkError{Log: msg}
	case strings.Contains(lower, "vertex"):
		return &frame.CompileError{Stage: "vertex", Log: msg}
	default:
		return &frame.CompileError{Stage: "fragment", Log: msg}
	}
}
