// Package glview is a [frame.Backend] drawing programs on a GLFW window through OpenGL 4.1 core.
// Fragment programs are written in WebGL's GLSL ES 1.00 and translated with [glbuild.TranslateDesktop].
// Requires cgo; on other builds [New] returns [frame.ErrUnsupportedBackend].
//
// Keys: F5 compiles the edited source, F6 selects a random catalog entry, F7 restores the
// active program's source, F8 exports the edited source and Escape closes the window.
package glview

import (
	"log"

	"github.com/soypat/shaderpad/frame"
)

// Config configures the window of a [View].
type Config struct {
	Width  int
	Height int
	Title  string
	// Log receives frame errors. Nil is silent.
	Log *log.Logger
}

func (cfg *Config) setDefaults() {
	if cfg.Width <= 0 {
		cfg.Width = 800
	}
	if cfg.Height <= 0 {
		cfg.Height = 600
	}
	if cfg.Title == "" {
		cfg.Title = "shaderpad"
	}
}

func statusTitle(title string, d *frame.Driver) string {
	return title + "  " + d.LastUniforms().String() + "  [" + d.Status().String() + "]"
}
