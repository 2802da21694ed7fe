package frame

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/shaderpad/catalog"
)

// SourceFilename is the default file name under which edited sources are exported.
const SourceFilename = "fragment.glsl"

// Config configures a [Driver].
type Config struct {
	// Source is the initial program source. Ignored when a catalog entry is selected.
	Source string
	// Catalog lists the selectable programs. When Selected is a valid index the program
	// at that index is loaded into the editor and compiled first. A negative Selected
	// compiles Source and leaves the catalog selectable.
	Catalog  []catalog.Shader
	Selected int
	// AutoRecompile marks the source dirty on every edit. When false edits
	// are compiled only after an explicit [Driver.Recompile].
	AutoRecompile bool
	// Reporter receives compile and link diagnostics. Nil discards them.
	Reporter Reporter
	// Log receives errors from frames drawn by [Driver.Run]. Nil is silent.
	Log *log.Logger
	// OnReset receives the restored source after [CommandReset], i.e: to write it
	// back to the edited file. Nil only restores the driver's editor text.
	OnReset func(src string) error
	// Export receives the edited source on [CommandSave], i.e: to write it as
	// [SourceFilename]. Nil makes CommandSave fail.
	Export func(src string) error
}

// Driver owns the render loop state: the active program, the edited source and its dirty flag,
// and the last pointer position. Input methods may be called from any goroutine. Tick, Run and Close
// must be called from the goroutine that owns the backend.
type Driver struct {
	backend Backend
	rep     Reporter
	log     *log.Logger
	onReset func(string) error
	export  func(string) error

	mu       sync.Mutex
	edited   string
	lastGood string
	dirty    bool
	auto     bool
	pointer  ms2.Vec
	shaders  []catalog.Shader
	selected int
	status   Status
	last     Uniforms

	// active is only accessed by the render goroutine.
	active Program
}

// NewDriver creates a driver drawing through backend and compiles the initial source.
// A failed initial compilation is reported and leaves the canvas blank; it is not an error.
func NewDriver(backend Backend, cfg Config) (*Driver, error) {
	if backend == nil {
		return nil, errors.New("nil backend")
	}
	src := cfg.Source
	selected := -1
	if len(cfg.Catalog) > 0 && cfg.Selected >= 0 {
		if cfg.Selected >= len(cfg.Catalog) {
			return nil, fmt.Errorf("selected shader %d out of catalog range [0,%d)", cfg.Selected, len(cfg.Catalog))
		}
		selected = cfg.Selected
		src = cfg.Catalog[selected].Source
	}
	rep := cfg.Reporter
	if rep == nil {
		rep = nopReporter{}
	}
	d := &Driver{
		backend:  backend,
		rep:      rep,
		log:      cfg.Log,
		onReset:  cfg.OnReset,
		export:   cfg.Export,
		edited:   src,
		auto:     cfg.AutoRecompile,
		shaders:  append([]catalog.Shader{}, cfg.Catalog...),
		selected: selected,
	}
	d.compile(src)
	return d, nil
}

// Tick renders one frame at elapsed time since the loop started. If the edited source
// changed it is compiled first; on success the new program replaces the active one, on
// failure diagnostics are reported and the previous program keeps being drawn.
func (d *Driver) Tick(elapsed time.Duration) error {
	d.mu.Lock()
	dirty := d.dirty
	src := d.edited
	ptr := d.pointer
	d.dirty = false
	d.mu.Unlock()

	if dirty {
		d.compile(src)
	}
	w, h := d.backend.Size()
	u := Uniforms{
		Resolution: ms2.Vec{X: float32(w), Y: float32(h)},
		Time:       float32(elapsed.Seconds()),
		Mouse:      ms2.Vec{X: ptr.X, Y: float32(h) - ptr.Y},
	}
	d.mu.Lock()
	d.last = u
	d.mu.Unlock()
	if d.active == nil {
		return nil
	}
	return d.backend.Draw(d.active, u)
}

// Run calls Tick for every value received on ticks, with time measured from the first tick,
// until ctx is done or ticks is closed. Frame errors are logged and do not stop the loop.
func (d *Driver) Run(ctx context.Context, ticks <-chan time.Time) error {
	var start time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-ticks:
			if !ok {
				return nil
			}
			if start.IsZero() {
				start = t
			}
			err := d.Tick(t.Sub(start))
			if err != nil && d.log != nil {
				d.log.Println("frame:", err)
			}
		}
	}
}

// Close releases the active program. The driver draws nothing afterwards.
func (d *Driver) Close() {
	if d.active != nil {
		d.active.Release()
		d.active = nil
	}
	d.mu.Lock()
	d.status = StatusNone
	d.mu.Unlock()
}

func (d *Driver) compile(src string) {
	d.rep.Reset()
	prog, err := d.backend.Compile(src)
	if err == nil && prog == nil {
		err = errors.New("backend compiled nil program")
	}
	if err != nil {
		d.rep.Report(err)
		d.mu.Lock()
		d.status = StatusRejected
		d.mu.Unlock()
		return
	}
	old := d.active
	d.active = prog
	if old != nil {
		old.Release()
	}
	d.mu.Lock()
	d.lastGood = src
	d.status = StatusActive
	d.mu.Unlock()
}

// SetSource replaces the edited source text. It is marked for compilation on the
// next frame only when auto-recompile is enabled.
func (d *Driver) SetSource(src string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if src == d.edited {
		return
	}
	d.edited = src
	if d.auto {
		d.dirty = true
	}
}

// Recompile marks the edited source for compilation on the next frame.
func (d *Driver) Recompile() {
	d.mu.Lock()
	d.dirty = true
	d.mu.Unlock()
}

// SetAutoRecompile enables or disables compiling on every edit.
func (d *Driver) SetAutoRecompile(auto bool) {
	d.mu.Lock()
	d.auto = auto
	d.mu.Unlock()
}

// AutoRecompile reports whether edits are compiled automatically.
func (d *Driver) AutoRecompile() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.auto
}

// Source returns the edited source text.
func (d *Driver) Source() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.edited
}

// ActiveSource returns the source of the program being drawn, empty if none compiled yet.
func (d *Driver) ActiveSource() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastGood
}

// ResetSource restores the edited text to the source of the active program and returns it.
// Nothing is recompiled since the restored source is already active.
func (d *Driver) ResetSource() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.edited = d.lastGood
	d.dirty = false
	return d.edited
}

// WriteSource writes the edited source to w, i.e: to export it as [SourceFilename].
func (d *Driver) WriteSource(w io.Writer) (int, error) {
	return io.WriteString(w, d.Source())
}

// SetPointer records the pointer position in backend pixels with a top-left origin.
// The position is flipped to a bottom-left origin when passed to programs.
func (d *Driver) SetPointer(p ms2.Vec) {
	d.mu.Lock()
	d.pointer = p
	d.mu.Unlock()
}

// Catalog returns a copy of the selectable programs.
func (d *Driver) Catalog() []catalog.Shader {
	return append([]catalog.Shader{}, d.shaders...)
}

// Selected returns the index of the last selected catalog entry or -1 if none was selected.
func (d *Driver) Selected() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// Select replaces the edited source with catalog entry i and marks it for compilation.
func (d *Driver) Select(i int) error {
	if i < 0 || i >= len(d.shaders) {
		return fmt.Errorf("shader index %d out of catalog range [0,%d)", i, len(d.shaders))
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selected = i
	d.edited = d.shaders[i].Source
	d.dirty = true
	return nil
}

// SelectRandom selects a random catalog entry and returns its index. A nil rng uses the global source.
func (d *Driver) SelectRandom(rng *rand.Rand) (int, error) {
	if len(d.shaders) == 0 {
		return -1, errors.New("empty catalog")
	}
	var i int
	if rng != nil {
		i = rng.Intn(len(d.shaders))
	} else {
		i = rand.Intn(len(d.shaders))
	}
	return i, d.Select(i)
}

// Status returns the state of the active program.
func (d *Driver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// LastUniforms returns the uniforms of the last frame.
func (d *Driver) LastUniforms() Uniforms {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}
