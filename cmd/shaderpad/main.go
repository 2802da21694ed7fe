// Command shaderpad draws a live-edited shader program. The program source is read from
// a file that is watched for edits, picked from a shader catalog, or generated from the
// built-in sphere and torus scene.
//
// Backends:
//   - cpu: scene text rasterized in software, frames written as PNG.
//   - gl: WebGL GLSL fragment programs on an OpenGL 4.1 window (requires cgo).
//   - ebiten: Kage programs on an ebiten window.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/soypat/shaderpad/catalog"
	"github.com/soypat/shaderpad/ebview"
	"github.com/soypat/shaderpad/frame"
	"github.com/soypat/shaderpad/glrender"
	"github.com/soypat/shaderpad/glview"
	"github.com/soypat/shaderpad/padaux"
)

func init() {
	runtime.LockOSThread()
}

type flags struct {
	backend  string
	width    int
	height   int
	source   string
	manifest string
	selected int
	auto     bool
	frames   int
	fps      float64
	out      string
	overlay  bool
	workers  int
	emit     string
	save     string
	poll     time.Duration
}

func main() {
	var f flags
	flag.StringVar(&f.backend, "backend", "cpu", "rendering backend: cpu, gl or ebiten")
	flag.IntVar(&f.width, "width", 800, "canvas width in pixels")
	flag.IntVar(&f.height, "height", 600, "canvas height in pixels")
	flag.StringVar(&f.source, "source", "", "program source file, watched for edits. Defaults to the built-in scene")
	flag.StringVar(&f.manifest, "manifest", "", "shader catalog manifest path or http(s) URL, i.e: "+catalog.DefaultManifest)
	flag.IntVar(&f.selected, "select", 0, "catalog entry loaded first. Negative loads a random entry")
	flag.BoolVar(&f.auto, "auto", true, "recompile on every edit of the source file")
	flag.IntVar(&f.frames, "frames", 1, "cpu backend: frames rendered before exiting. Zero renders until interrupted")
	flag.Float64Var(&f.fps, "fps", 30, "cpu backend: frames per second")
	flag.StringVar(&f.out, "out", "frame.png", "cpu backend: PNG output file")
	flag.BoolVar(&f.overlay, "overlay", false, "display frame uniforms over the canvas")
	flag.IntVar(&f.workers, "workers", 0, "cpu backend: rasterizing goroutines. Zero uses all CPUs")
	flag.StringVar(&f.emit, "emit", "", "print a generated source and exit: glsl, kage, scene or vertex")
	flag.StringVar(&f.save, "save", "", "write the edited source to this file on exit and on F8. F8 defaults to "+frame.SourceFilename)
	flag.DurationVar(&f.poll, "poll", 250*time.Millisecond, "source file polling interval")
	flag.Parse()

	if f.emit != "" {
		err := padaux.Emit(os.Stdout, f.emit)
		if err != nil {
			log.Fatal(err)
		}
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := run(ctx, f)
	if errors.Is(err, frame.ErrUnsupportedBackend) {
		log.Fatalf("backend %q: %v", f.backend, err)
	} else if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func run(ctx context.Context, f flags) error {
	logger := log.New(os.Stderr, "shaderpad: ", log.LstdFlags)
	cfg, err := padaux.Session(ctx, padaux.SessionConfig{
		Backend:       f.backend,
		SourceFile:    f.source,
		Manifest:      f.manifest,
		Selected:      f.selected,
		SaveFile:      f.save,
		AutoRecompile: f.auto,
		Log:           logger,
	})
	if err != nil {
		return err
	}
	switch f.backend {
	case "cpu":
		r, err := glrender.NewRenderer(glrender.Config{Width: f.width, Height: f.height, Workers: f.workers, Overlay: f.overlay})
		if err != nil {
			return err
		}
		d, err := frame.NewDriver(r, cfg)
		if err != nil {
			return err
		}
		defer d.Close()
		defer saveSource(d, f.save, logger)
		startEditor(ctx, d, f, logger)
		return runCPU(ctx, d, r, f, logger)

	case "gl":
		v, err := glview.New(glview.Config{Width: f.width, Height: f.height, Title: "shaderpad", Log: logger})
		if err != nil {
			return err
		}
		defer v.Close()
		d, err := frame.NewDriver(v, cfg)
		if err != nil {
			return err
		}
		defer d.Close()
		defer saveSource(d, f.save, logger)
		startEditor(ctx, d, f, logger)
		return v.Run(ctx, d)

	case "ebiten":
		v, err := ebview.New(ebview.Config{Width: f.width, Height: f.height, Title: "shaderpad", Overlay: f.overlay, Log: logger})
		if err != nil {
			return err
		}
		d, err := frame.NewDriver(v, cfg)
		if err != nil {
			return err
		}
		defer d.Close()
		defer saveSource(d, f.save, logger)
		startEditor(ctx, d, f, logger)
		return v.Run(ctx, d)
	}
	return fmt.Errorf("unknown backend %q", f.backend)
}

func runCPU(ctx context.Context, d *frame.Driver, r *glrender.Renderer, f flags, logger *log.Logger) error {
	if f.fps <= 0 {
		return errors.New("fps must be positive")
	}
	period := time.Duration(float64(time.Second) / f.fps)
	if f.frames <= 0 {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		err := d.Run(ctx, ticker.C)
		if werr := writeFrame(r, f.out, logger); werr != nil {
			return errors.Join(err, werr)
		}
		return err
	}
	for i := 0; i < f.frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := d.Tick(time.Duration(i) * period)
		if err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
	}
	return writeFrame(r, f.out, logger)
}

// writeFrame writes the last frame as PNG. Nothing is written when no program was ever drawn.
func writeFrame(r *glrender.Renderer, name string, logger *log.Logger) error {
	if r.Image() == nil {
		logger.Println("no program drawn, canvas left blank")
		return nil
	}
	fp, err := os.Create(name)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = r.WritePNG(fp)
	if err != nil {
		return err
	}
	return fp.Close()
}

func saveSource(d *frame.Driver, name string, logger *log.Logger) {
	if name == "" {
		return
	}
	fp, err := os.Create(name)
	if err != nil {
		logger.Println("save:", err)
		return
	}
	defer fp.Close()
	if _, err = d.WriteSource(fp); err != nil {
		logger.Println("save:", err)
	}
}
