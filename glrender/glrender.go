// Package glrender implements a software [frame.Backend] that rasterizes scene text
// programs on the CPU into an image.
package glrender

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"sync"

	"github.com/soypat/shaderpad"
	"github.com/soypat/shaderpad/frame"
)

// Config configures a [Renderer].
type Config struct {
	Width  int
	Height int
	// Workers bounds the goroutines rasterizing a frame. Zero uses GOMAXPROCS.
	Workers int
	// Overlay draws the frame's uniforms on the top-left corner of every frame.
	Overlay bool
}

// Renderer is a CPU rendering backend. Programs are compiled from scene text
// (see [shaderpad.ParseScene]) and drawn one pixel at a time.
type Renderer struct {
	workers int
	overlay bool

	mu     sync.Mutex
	width  int
	height int
	// front is the last finished frame. back is rendered into and swapped with front.
	front *image.RGBA
	back  *image.RGBA
}

var _ frame.Backend = (*Renderer)(nil)

// NewRenderer returns a Renderer drawing to a Width x Height canvas.
func NewRenderer(cfg Config) (*Renderer, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", cfg.Width, cfg.Height)
	} else if cfg.Workers < 0 {
		return nil, errors.New("negative worker count")
	}
	return &Renderer{
		workers: cfg.Workers,
		overlay: cfg.Overlay,
		width:   cfg.Width,
		height:  cfg.Height,
	}, nil
}

// Program is a CPU program drawn by [Renderer].
type Program struct {
	eval Evaluator
}

// NewProgram wraps an evaluator as a program drawable by [Renderer].
func NewProgram(eval Evaluator) *Program {
	return &Program{eval: eval}
}

// Release implements [frame.Program].
func (p *Program) Release() { p.eval = nil }

// Compile implements [frame.Backend] by parsing scene text.
// Malformed text yields a [*frame.CompileError] listing every offending line.
func (r *Renderer) Compile(source string) (frame.Program, error) {
	scene, err := shaderpad.ParseScene(source)
	if err != nil {
		return nil, &frame.CompileError{Stage: "scene", Log: err.Error()}
	}
	eval, err := scene.Evaluator()
	if err != nil {
		return nil, &frame.LinkError{Log: err.Error()}
	}
	return NewProgram(eval), nil
}

// Draw implements [frame.Backend]. The canvas is resized to u.Resolution before drawing.
// Frames are rendered off-screen and become visible through [Renderer.Image] once complete.
func (r *Renderer) Draw(prog frame.Program, u frame.Uniforms) error {
	p, ok := prog.(*Program)
	if !ok {
		return fmt.Errorf("glrender cannot draw %T", prog)
	} else if p.eval == nil {
		return errors.New("draw of released program")
	}
	w, h := int(u.Resolution.X), int(u.Resolution.Y)
	r.mu.Lock()
	img := r.back
	r.back = nil
	r.mu.Unlock()
	if img == nil || img.Bounds().Dx() != w || img.Bounds().Dy() != h {
		img = image.NewRGBA(image.Rect(0, 0, w, h))
	}
	err := RenderImage(img, p.eval, u.Time, r.workers)
	if err != nil {
		return err
	}
	if r.overlay {
		DrawOverlay(img, u.String())
	}
	r.mu.Lock()
	r.front, r.back = img, r.front
	r.mu.Unlock()
	return nil
}

// Size implements [frame.Backend].
func (r *Renderer) Size() (width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

// SetSize resizes the canvas. The new size is used from the next frame on.
func (r *Renderer) SetSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid canvas size %dx%d", width, height)
	}
	r.mu.Lock()
	r.width, r.height = width, height
	r.mu.Unlock()
	return nil
}

// Image returns the last drawn frame or nil if nothing was drawn yet.
// The image must not be modified. It is left untouched by the next Draw
// and is reused as the canvas of the Draw after that.
func (r *Renderer) Image() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.front
}

// WritePNG encodes the last drawn frame as PNG.
func (r *Renderer) WritePNG(w io.Writer) error {
	img := r.Image()
	if img == nil {
		return errors.New("no frame drawn")
	}
	return png.Encode(w, img)
}
