//go:build tinygo || !cgo

package glview

import (
	"context"

	"github.com/soypat/shaderpad/frame"
)

// View is unavailable without cgo.
type View struct{}

// New returns [frame.ErrUnsupportedBackend] since GL windows require cgo.
func New(cfg Config) (*View, error) {
	return nil, frame.ErrUnsupportedBackend
}

func (v *View) Compile(source string) (frame.Program, error) {
	return nil, frame.ErrUnsupportedBackend
}

func (v *View) Draw(prog frame.Program, u frame.Uniforms) error {
	return frame.ErrUnsupportedBackend
}

func (v *View) Size() (width, height int) { return 0, 0 }

func (v *View) Run(ctx context.Context, d *frame.Driver) error {
	return frame.ErrUnsupportedBackend
}

func (v *View) Close() {}
