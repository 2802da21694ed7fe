// Package frame drives the per-frame rendering of a live-edited shader program.
//
// A [Driver] holds the active program and the edited source text. On each
// [Driver.Tick] it recompiles the edited source when it changed, keeps the
// last program that compiled when compilation fails, and draws the active
// program once with fresh [Uniforms].
package frame

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
)

// Program is a compiled program ready to be drawn by the [Backend] that compiled it.
type Program interface {
	// Release frees the resources held by the program. The program is not drawn after release.
	Release()
}

// Backend compiles and draws full-canvas programs.
type Backend interface {
	// Compile builds a program from source. Failures should be reported with
	// [*CompileError] or [*LinkError] carrying the backend's diagnostics.
	Compile(source string) (Program, error)
	// Draw issues one full-canvas draw of prog with the given uniforms.
	Draw(prog Program, u Uniforms) error
	// Size returns the live drawable size in backend pixels. It may change between frames.
	Size() (width, height int)
}

// Uniforms are the per-draw inputs to a program, constant across all pixels of one frame.
type Uniforms struct {
	// Resolution is the canvas size in pixels.
	Resolution ms2.Vec
	// Time is the elapsed time in seconds since the driver started.
	Time float32
	// Mouse is the last pointer position in backend pixels with a bottom-left origin.
	Mouse ms2.Vec
}

// String formats the uniforms the way they are displayed next to the canvas.
func (u Uniforms) String() string {
	return fmt.Sprintf("%dx%d mouse=(%.2f, %.2f) time=%.2f",
		int(u.Resolution.X), int(u.Resolution.Y), u.Mouse.X, u.Mouse.Y, u.Time)
}

// Status is the state of the driver's active program.
type Status uint8

const (
	// StatusNone means no program has compiled yet so nothing is drawn.
	StatusNone Status = iota
	// StatusActive means the last compilation succeeded and its program is drawn.
	StatusActive
	// StatusRejected means the last compilation failed. The prior active program, if any, is still drawn.
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusActive:
		return "active"
	case StatusRejected:
		return "rejected"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// ScalePointer maps a pointer position in displayed (client) coordinates to backing-store
// pixels by the ratio of backing size to displayed size. The origin stays top-left.
func ScalePointer(client, display, backing ms2.Vec) ms2.Vec {
	if display.X <= 0 || display.Y <= 0 {
		return client
	}
	return ms2.MulElem(client, ms2.DivElem(backing, display))
}
