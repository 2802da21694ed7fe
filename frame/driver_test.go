package frame_test

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/shaderpad/catalog"
	"github.com/soypat/shaderpad/frame"
)

// fakeBackend compiles any source not starting with "bad" and records draws.
type fakeBackend struct {
	w, h     int
	compiled []string
	draws    []drawCall
	released []string
}

type drawCall struct {
	src string
	u   frame.Uniforms
}

type fakeProgram struct {
	src string
	b   *fakeBackend
}

func (p *fakeProgram) Release() { p.b.released = append(p.b.released, p.src) }

func (b *fakeBackend) Compile(src string) (frame.Program, error) {
	b.compiled = append(b.compiled, src)
	if strings.HasPrefix(src, "bad") {
		return nil, &frame.CompileError{Stage: "fragment", Log: "syntax error in " + src}
	}
	return &fakeProgram{src: src, b: b}, nil
}

func (b *fakeBackend) Draw(prog frame.Program, u frame.Uniforms) error {
	b.draws = append(b.draws, drawCall{src: prog.(*fakeProgram).src, u: u})
	return nil
}

func (b *fakeBackend) Size() (int, int) { return b.w, b.h }

func (b *fakeBackend) lastDraw(t *testing.T) drawCall {
	t.Helper()
	if len(b.draws) == 0 {
		t.Fatal("nothing drawn")
	}
	return b.draws[len(b.draws)-1]
}

func newTestDriver(t *testing.T, src string, auto bool) (*frame.Driver, *fakeBackend, *frame.ErrorBox) {
	t.Helper()
	b := &fakeBackend{w: 800, h: 600}
	box := &frame.ErrorBox{}
	d, err := frame.NewDriver(b, frame.Config{Source: src, AutoRecompile: auto, Reporter: box})
	if err != nil {
		t.Fatal(err)
	}
	return d, b, box
}

func TestHotSwap(t *testing.T) {
	d, b, box := newTestDriver(t, "A", true)
	if d.Status() != frame.StatusActive {
		t.Fatalf("status %v after valid initial source", d.Status())
	}
	if err := d.Tick(0); err != nil {
		t.Fatal(err)
	}
	if got := b.lastDraw(t).src; got != "A" {
		t.Fatalf("drew %q, want A", got)
	}

	d.SetSource("bad B")
	d.Tick(time.Second)
	if got := b.lastDraw(t).src; got != "A" {
		t.Errorf("after failed compile drew %q, want last good A", got)
	}
	if d.Status() != frame.StatusRejected {
		t.Errorf("status %v, want rejected", d.Status())
	}
	if got := box.String(); got != "\nfragment shader compile: syntax error in bad B" {
		t.Errorf("error box %q", got)
	}
	if d.ActiveSource() != "A" || d.Source() != "bad B" {
		t.Errorf("active %q edited %q", d.ActiveSource(), d.Source())
	}

	d.SetSource("C")
	d.Tick(2 * time.Second)
	if got := b.lastDraw(t).src; got != "C" {
		t.Errorf("drew %q, want C", got)
	}
	if box.String() != "" {
		t.Errorf("error box not cleared on successful compile: %q", box.String())
	}
	if len(b.released) != 1 || b.released[0] != "A" {
		t.Errorf("released %v, want [A]", b.released)
	}
	want := []string{"A", "bad B", "C"}
	if strings.Join(b.compiled, ",") != strings.Join(want, ",") {
		t.Errorf("compiled %q, want %q", b.compiled, want)
	}
}

func TestFailedCompileNotRetried(t *testing.T) {
	d, b, _ := newTestDriver(t, "A", true)
	d.SetSource("bad")
	for i := 0; i < 3; i++ {
		d.Tick(0)
	}
	if len(b.compiled) != 2 {
		t.Errorf("compiled %d times, want 2: %q", len(b.compiled), b.compiled)
	}
	// Setting the same text does not mark it dirty.
	d.SetSource("bad")
	d.Tick(0)
	if len(b.compiled) != 2 {
		t.Errorf("unchanged source recompiled: %q", b.compiled)
	}
	d.Recompile()
	d.Tick(0)
	if len(b.compiled) != 3 {
		t.Errorf("explicit recompile ignored: %q", b.compiled)
	}
}

func TestInitialFailureBlank(t *testing.T) {
	d, b, box := newTestDriver(t, "bad start", true)
	if d.Status() != frame.StatusRejected {
		t.Errorf("status %v, want rejected", d.Status())
	}
	if err := d.Tick(0); err != nil {
		t.Fatal(err)
	}
	if len(b.draws) != 0 {
		t.Errorf("drew %d frames without a program", len(b.draws))
	}
	if !strings.Contains(box.String(), "bad start") {
		t.Errorf("initial failure not reported: %q", box.String())
	}
	if d.LastUniforms().Resolution != (ms2.Vec{X: 800, Y: 600}) {
		t.Error("uniforms not updated on blank frame")
	}
}

func TestResizeNextFrame(t *testing.T) {
	d, b, _ := newTestDriver(t, "A", true)
	d.Tick(0)
	if got := b.lastDraw(t).u.Resolution; got != (ms2.Vec{X: 800, Y: 600}) {
		t.Errorf("resolution %v", got)
	}
	b.w, b.h = 300, 300
	d.Tick(time.Second / 60)
	if got := b.lastDraw(t).u.Resolution; got != (ms2.Vec{X: 300, Y: 300}) {
		t.Errorf("resolution after resize %v, want 300x300", got)
	}
}

func TestUniforms(t *testing.T) {
	d, b, _ := newTestDriver(t, "A", true)
	d.SetPointer(ms2.Vec{X: 10, Y: 20})
	d.Tick(1500 * time.Millisecond)
	u := b.lastDraw(t).u
	if u.Mouse != (ms2.Vec{X: 10, Y: 580}) {
		t.Errorf("mouse %v, want Y flipped (10,580)", u.Mouse)
	}
	if u.Time != 1.5 {
		t.Errorf("time %v, want 1.5", u.Time)
	}
	if u != d.LastUniforms() {
		t.Errorf("last uniforms %v differ from drawn %v", d.LastUniforms(), u)
	}
	want := "800x600 mouse=(10.00, 580.00) time=1.50"
	if u.String() != want {
		t.Errorf("uniforms display %q, want %q", u.String(), want)
	}
}

func TestAutoRecompileGating(t *testing.T) {
	d, b, _ := newTestDriver(t, "A", false)
	d.SetSource("B")
	d.Tick(0)
	if got := b.lastDraw(t).src; got != "A" {
		t.Errorf("edit compiled without auto-recompile, drew %q", got)
	}
	d.Recompile()
	d.Tick(0)
	if got := b.lastDraw(t).src; got != "B" {
		t.Errorf("drew %q after recompile, want B", got)
	}
	d.SetAutoRecompile(true)
	if !d.AutoRecompile() {
		t.Fatal("auto-recompile not enabled")
	}
	d.SetSource("C")
	d.Tick(0)
	if got := b.lastDraw(t).src; got != "C" {
		t.Errorf("drew %q, want C", got)
	}
}

func TestResetAndWriteSource(t *testing.T) {
	d, _, _ := newTestDriver(t, "A", true)
	d.SetSource("bad edit")
	d.Tick(0)
	if got := d.ResetSource(); got != "A" {
		t.Errorf("reset returned %q, want A", got)
	}
	if d.Source() != "A" {
		t.Errorf("edited source %q after reset", d.Source())
	}
	d.SetSource("A2")
	var buf bytes.Buffer
	n, err := d.WriteSource(&buf)
	if err != nil || n != 2 || buf.String() != "A2" {
		t.Errorf("WriteSource wrote %q n=%d err=%v", buf.String(), n, err)
	}
}

func TestCatalogSelection(t *testing.T) {
	shaders := []catalog.Shader{
		{Entry: catalog.Entry{DisplayName: "zero", Path: "0.glsl"}, Source: "src0"},
		{Entry: catalog.Entry{DisplayName: "one", Path: "1.glsl"}, Source: "src1"},
		{Entry: catalog.Entry{DisplayName: "two", Path: "2.glsl"}, Source: "bad2"},
	}
	b := &fakeBackend{w: 10, h: 10}
	d, err := frame.NewDriver(b, frame.Config{Source: "ignored", Catalog: shaders, Selected: 1})
	if err != nil {
		t.Fatal(err)
	}
	if b.compiled[0] != "src1" || d.Selected() != 1 {
		t.Fatalf("initial compile %q selected %d", b.compiled[0], d.Selected())
	}
	if len(d.Catalog()) != 3 {
		t.Errorf("catalog length %d", len(d.Catalog()))
	}
	// Selection compiles regardless of auto-recompile.
	if err := d.Select(0); err != nil {
		t.Fatal(err)
	}
	d.Tick(0)
	if got := b.lastDraw(t).src; got != "src0" {
		t.Errorf("drew %q, want src0", got)
	}
	if err := d.Select(3); err == nil {
		t.Error("expected out of range error")
	}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		idx, err := d.SelectRandom(rng)
		if err != nil {
			t.Fatal(err)
		}
		if idx < 0 || idx >= len(shaders) || d.Source() != shaders[idx].Source || d.Selected() != idx {
			t.Fatalf("random selection %d left source %q", idx, d.Source())
		}
	}

	_, err = frame.NewDriver(b, frame.Config{Catalog: shaders, Selected: 5})
	if err == nil {
		t.Error("expected error for out of range initial selection")
	}
	empty, _ := frame.NewDriver(b, frame.Config{Source: "x"})
	if _, err := empty.SelectRandom(nil); err == nil {
		t.Error("expected error selecting from empty catalog")
	}
}

func TestSourceOverridesCatalog(t *testing.T) {
	shaders := []catalog.Shader{
		{Entry: catalog.Entry{DisplayName: "zero", Path: "0.glsl"}, Source: "src0"},
		{Entry: catalog.Entry{DisplayName: "one", Path: "1.glsl"}, Source: "src1"},
	}
	b := &fakeBackend{w: 10, h: 10}
	d, err := frame.NewDriver(b, frame.Config{Source: "file", Catalog: shaders, Selected: -1})
	if err != nil {
		t.Fatal(err)
	}
	if len(b.compiled) != 1 || b.compiled[0] != "file" {
		t.Fatalf("compiled %q, want only the given source", b.compiled)
	}
	if d.Selected() != -1 {
		t.Errorf("selected %d with no catalog entry loaded", d.Selected())
	}
	if d.ActiveSource() != "file" || d.Status() != frame.StatusActive {
		t.Errorf("active %q status %v", d.ActiveSource(), d.Status())
	}
	if err := d.Select(1); err != nil || d.Selected() != 1 {
		t.Errorf("catalog not selectable after override: %v", err)
	}
}

func TestCatalogCopy(t *testing.T) {
	shaders := []catalog.Shader{
		{Entry: catalog.Entry{DisplayName: "zero", Path: "0.glsl"}, Source: "src0"},
	}
	b := &fakeBackend{w: 10, h: 10}
	d, err := frame.NewDriver(b, frame.Config{Catalog: shaders})
	if err != nil {
		t.Fatal(err)
	}
	shaders[0].Source = "changed by caller"
	got := d.Catalog()
	got[0].Source = "changed by reader"
	if err := d.Select(0); err != nil {
		t.Fatal(err)
	}
	if d.Source() != "src0" {
		t.Errorf("catalog aliased outside the driver, source %q", d.Source())
	}
}

func TestDo(t *testing.T) {
	var reset, exported []string
	b := &fakeBackend{w: 10, h: 10}
	d, err := frame.NewDriver(b, frame.Config{
		Source:  "A",
		OnReset: func(src string) error { reset = append(reset, src); return nil },
		Export:  func(src string) error { exported = append(exported, src); return nil },
	})
	if err != nil {
		t.Fatal(err)
	}
	d.SetSource("B edited")
	if err := d.Do(frame.CommandSave); err != nil {
		t.Fatal(err)
	}
	if len(exported) != 1 || exported[0] != "B edited" {
		t.Errorf("exported %q, want edited text", exported)
	}
	if err := d.Do(frame.CommandReset); err != nil {
		t.Fatal(err)
	}
	if len(reset) != 1 || reset[0] != "A" || d.Source() != "A" {
		t.Errorf("reset wrote %q, editor has %q", reset, d.Source())
	}

	d.SetSource("C")
	if err := d.Do(frame.CommandRecompile); err != nil {
		t.Fatal(err)
	}
	d.Tick(0)
	if d.ActiveSource() != "C" {
		t.Errorf("recompile command left %q active", d.ActiveSource())
	}
	if err := d.Do(frame.CommandSelectRandom); err == nil {
		t.Error("expected error selecting from empty catalog")
	}
	if err := d.Do(frame.Command(200)); err == nil {
		t.Error("expected error for unknown command")
	}

	hookErr := errors.New("disk full")
	bare, _ := frame.NewDriver(b, frame.Config{Source: "A", OnReset: func(string) error { return hookErr }})
	if err := bare.Do(frame.CommandSave); err == nil {
		t.Error("expected error saving with no export destination")
	}
	bare.SetSource("dirty")
	if err := bare.Do(frame.CommandReset); !errors.Is(err, hookErr) {
		t.Errorf("got %v, want hook error", err)
	}
	if bare.Source() != "A" {
		t.Error("editor not restored when the reset hook fails")
	}
}

func TestCommandString(t *testing.T) {
	for cmd, want := range map[frame.Command]string{
		frame.CommandRecompile:    "recompile",
		frame.CommandSelectRandom: "select random",
		frame.CommandReset:        "reset",
		frame.CommandSave:         "save",
		frame.Command(9):          "Command(9)",
	} {
		if got := cmd.String(); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestRun(t *testing.T) {
	d, b, _ := newTestDriver(t, "A", true)
	ticks := make(chan time.Time, 3)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks <- start
	ticks <- start.Add(500 * time.Millisecond)
	ticks <- start.Add(time.Second)
	close(ticks)
	if err := d.Run(context.Background(), ticks); err != nil {
		t.Fatal(err)
	}
	if len(b.draws) != 3 {
		t.Fatalf("drew %d frames, want 3", len(b.draws))
	}
	for i, want := range []float32{0, 0.5, 1} {
		if b.draws[i].u.Time != want {
			t.Errorf("frame %d time %v, want %v", i, b.draws[i].u.Time, want)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := d.Run(ctx, make(chan time.Time))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context canceled", err)
	}
}

func TestClose(t *testing.T) {
	d, b, _ := newTestDriver(t, "A", true)
	d.Close()
	if len(b.released) != 1 || d.Status() != frame.StatusNone {
		t.Errorf("released %v status %v", b.released, d.Status())
	}
	d.Tick(0)
	if len(b.draws) != 0 {
		t.Error("drew after close")
	}
}

func TestNewDriverNilBackend(t *testing.T) {
	if _, err := frame.NewDriver(nil, frame.Config{}); err == nil {
		t.Error("expected error")
	}
}
