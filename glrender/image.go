package glrender

import (
	"errors"
	"image"
	"image/color"
	"runtime"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"
)

// Evaluator maps a pixel to a color. [gleval.Evaluator] implements it.
// Implementations must be safe for concurrent use.
type Evaluator interface {
	Evaluate(fragCoord, resolution ms2.Vec, time float32) ms3.Vec
}

// rowsPerTask is the height of the image band rasterized by a single goroutine.
const rowsPerTask = 8

// RenderImage evaluates eval once per pixel of img at time seconds. The resolution passed to
// eval is the image size and fragment coordinates have a bottom-left origin with pixel centers
// at +0.5. Bands of rows are evaluated concurrently by at most workers goroutines; zero workers
// uses GOMAXPROCS.
func RenderImage(img *image.RGBA, eval Evaluator, time float32, workers int) error {
	if img == nil || eval == nil {
		return errors.New("nil image or evaluator")
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	bb := img.Bounds()
	w, h := bb.Dx(), bb.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	res := ms2.Vec{X: float32(w), Y: float32(h)}
	var g errgroup.Group
	g.SetLimit(workers)
	for y0 := 0; y0 < h; y0 += rowsPerTask {
		y1 := min(y0+rowsPerTask, h)
		g.Go(func() error {
			for j := y0; j < y1; j++ {
				fragY := float32(h-1-j) + 0.5
				off := img.PixOffset(bb.Min.X, bb.Min.Y+j)
				for i := 0; i < w; i++ {
					c := eval.Evaluate(ms2.Vec{X: float32(i) + 0.5, Y: fragY}, res, time)
					rgba := toRGBA(c)
					copy(img.Pix[off:off+4], rgba[:])
					off += 4
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func toRGBA(c ms3.Vec) [4]uint8 {
	return [4]uint8{channel(c.X), channel(c.Y), channel(c.Z), 255}
}

func channel(v float32) uint8 {
	if !(v > 0) {
		return 0
	} else if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

var overlayColor = image.NewUniform(color.RGBA{R: 255, G: 220, B: 0, A: 255})

// DrawOverlay writes text on the top-left corner of img.
func DrawOverlay(img *image.RGBA, text string) {
	face := basicfont.Face7x13
	d := font.Drawer{
		Dst:  img,
		Src:  overlayColor,
		Face: face,
		Dot:  fixed.P(img.Bounds().Min.X+4, img.Bounds().Min.Y+face.Ascent+2),
	}
	d.DrawString(text)
}
