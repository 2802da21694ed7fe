package frame_test

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/shaderpad/frame"
)

func TestScalePointer(t *testing.T) {
	tests := []struct {
		client, display, backing, want ms2.Vec
	}{
		{client: ms2.Vec{X: 100, Y: 50}, display: ms2.Vec{X: 200, Y: 100}, backing: ms2.Vec{X: 400, Y: 200}, want: ms2.Vec{X: 200, Y: 100}},
		{client: ms2.Vec{X: 7, Y: 9}, display: ms2.Vec{X: 640, Y: 480}, backing: ms2.Vec{X: 640, Y: 480}, want: ms2.Vec{X: 7, Y: 9}},
		{client: ms2.Vec{X: 30, Y: 30}, display: ms2.Vec{X: 300, Y: 150}, backing: ms2.Vec{X: 150, Y: 300}, want: ms2.Vec{X: 15, Y: 60}},
		{client: ms2.Vec{X: 3, Y: 4}, display: ms2.Vec{}, backing: ms2.Vec{X: 10, Y: 10}, want: ms2.Vec{X: 3, Y: 4}},
	}
	for _, test := range tests {
		got := frame.ScalePointer(test.client, test.display, test.backing)
		if got != test.want {
			t.Errorf("ScalePointer(%v,%v,%v)=%v, want %v", test.client, test.display, test.backing, got, test.want)
		}
	}
}

func TestErrorBox(t *testing.T) {
	var box frame.ErrorBox
	box.Report(&frame.CompileError{Stage: "vertex", Log: "0:1: oops\n"})
	box.Report(&frame.LinkError{Log: "mismatch"})
	box.Report(nil)
	want := "\nvertex shader compile: 0:1: oops\nprogram link: mismatch"
	if box.String() != want {
		t.Errorf("got %q, want %q", box.String(), want)
	}
	box.Reset()
	if box.String() != "" {
		t.Error("reset did not clear")
	}
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	rep := frame.LogReporter{Logger: log.New(&buf, "", 0)}
	rep.Reset()
	rep.Report(errors.New("bad shader"))
	if buf.String() != "bad shader\n" {
		t.Errorf("logged %q", buf.String())
	}
}

func TestErrorTaxonomy(t *testing.T) {
	err := fmt.Errorf("compiling: %w", &frame.CompileError{Stage: "fragment", Log: "x"})
	var ce *frame.CompileError
	if !errors.As(err, &ce) || ce.Stage != "fragment" {
		t.Errorf("CompileError not recoverable from %v", err)
	}
	err = fmt.Errorf("init: %w", frame.ErrUnsupportedBackend)
	if !errors.Is(err, frame.ErrUnsupportedBackend) {
		t.Error("unsupported backend not detected")
	}
	if !strings.HasPrefix((&frame.LinkError{Log: "y"}).Error(), "program link") {
		t.Error("bad link error text")
	}
	for s, want := range map[frame.Status]string{frame.StatusNone: "none", frame.StatusActive: "active", frame.StatusRejected: "rejected"} {
		if s.String() != want {
			t.Errorf("status %d string %q", s, s.String())
		}
	}
}
