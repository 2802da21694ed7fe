// Package ebview is a [frame.Backend] drawing Kage programs in an ebiten window.
// Programs read the uniforms named by [glbuild.KageUniformTime], [glbuild.KageUniformResolution]
// and [glbuild.KageUniformMouse] and should be written in pixel units (//kage:unit pixels).
//
// Keys: F5 compiles the edited source, F6 selects a random catalog entry, F7 restores the
// active program's source, F8 exports the edited source and Escape quits.
package ebview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/shaderpad/frame"
	"github.com/soypat/shaderpad/glbuild"
)

// Config configures the window of a [View].
type Config struct {
	Width  int
	Height int
	Title  string
	// Overlay prints the frame uniforms and program status over the canvas.
	Overlay bool
	// Log receives frame errors. Nil is silent.
	Log *log.Logger
}

// View draws programs on the ebiten screen. Draw is only valid while ebiten
// is drawing a frame, i.e: from within [View.Run].
type View struct {
	cfg    Config
	width  int
	height int
	screen *ebiten.Image
}

var _ frame.Backend = (*View)(nil)

// New configures the ebiten window. The window opens on [View.Run].
func New(cfg Config) (*View, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid window size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Title == "" {
		cfg.Title = "shaderpad"
	}
	ebiten.SetWindowSize(cfg.Width, cfg.Height)
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	return &View{cfg: cfg, width: cfg.Width, height: cfg.Height}, nil
}

// Program is a compiled Kage shader.
type Program struct {
	shader *ebiten.Shader
}

// Release implements [frame.Program].
func (p *Program) Release() { p.shader.Dispose() }

// Compile implements [frame.Backend]. source is a Kage program.
func (v *View) Compile(source string) (frame.Program, error) {
	shader, err := ebiten.NewShader([]byte(source))
	if err != nil {
		return nil, &frame.CompileError{Stage: "kage", Log: err.Error()}
	}
	return &Program{shader: shader}, nil
}

// Draw implements [frame.Backend].
func (v *View) Draw(prog frame.Program, u frame.Uniforms) error {
	p, ok := prog.(*Program)
	if !ok {
		return fmt.Errorf("ebview cannot draw %T", prog)
	} else if v.screen == nil {
		return errors.New("ebview draw outside of frame")
	}
	v.screen.DrawRectShader(int(u.Resolution.X), int(u.Resolution.Y), p.shader, &ebiten.DrawRectShaderOptions{
		Uniforms: map[string]any{
			glbuild.KageUniformTime:       u.Time,
			glbuild.KageUniformResolution: []float32{u.Resolution.X, u.Resolution.Y},
			glbuild.KageUniformMouse:      []float32{u.Mouse.X, u.Mouse.Y},
		},
	})
	return nil
}

// Size implements [frame.Backend] returning the screen size in pixels.
func (v *View) Size() (width, height int) {
	return v.width, v.height
}

// Run drives d once per ebiten frame until the window is closed, Escape is pressed or ctx is done.
func (v *View) Run(ctx context.Context, d *frame.Driver) error {
	g := &game{v: v, d: d, ctx: ctx, start: time.Now()}
	err := ebiten.RunGame(g)
	if err != nil {
		return fmt.Errorf("run game: %w", err)
	}
	return ctx.Err()
}

var keyCommands = map[ebiten.Key]frame.Command{
	ebiten.KeyF5: frame.CommandRecompile,
	ebiten.KeyF6: frame.CommandSelectRandom,
	ebiten.KeyF7: frame.CommandReset,
	ebiten.KeyF8: frame.CommandSave,
}

// game adapts a [View] and its driver to [ebiten.Game].
type game struct {
	v     *View
	d     *frame.Driver
	ctx   context.Context
	start time.Time
}

func (g *game) Update() error {
	select {
	case <-g.ctx.Done():
		return ebiten.Termination
	default:
	}
	x, y := ebiten.CursorPosition()
	g.d.SetPointer(ms2.Vec{X: float32(x), Y: float32(y)})
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	for key, cmd := range keyCommands {
		if !inpututil.IsKeyJustPressed(key) {
			continue
		}
		if err := g.d.Do(cmd); err != nil {
			g.v.logf("%v: %v", cmd, err)
		}
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	g.v.screen = screen
	err := g.d.Tick(time.Since(g.start))
	g.v.screen = nil
	if err != nil {
		g.v.logf("frame: %v", err)
	}
	if g.v.cfg.Overlay {
		ebitenutil.DebugPrint(screen, g.d.LastUniforms().String()+"\n"+g.d.Status().String())
	}
}

// Layout keeps the screen at the window's size in device pixels so programs
// and pointer coordinates share one pixel space.
func (g *game) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	scale := ebiten.Monitor().DeviceScaleFactor()
	g.v.width = int(float64(outsideWidth) * scale)
	g.v.height = int(float64(outsideHeight) * scale)
	return g.v.width, g.v.height
}

func (v *View) logf(format string, args ...any) {
	if v.cfg.Log != nil {
		v.cfg.Log.Printf(format, args...)
	}
}
