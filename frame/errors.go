package frame

import (
	"errors"
	"log"
	"strings"
	"sync"
)

// ErrUnsupportedBackend is returned by backend constructors when no rendering context can be obtained.
// It is fatal at startup and never retried.
var ErrUnsupportedBackend = errors.New("rendering backend not supported on this device")

// CompileError is a per-stage shader compilation failure.
type CompileError struct {
	// Stage is the failing shader stage, i.e: "vertex" or "fragment".
	Stage string
	// Log holds the backend's diagnostic text.
	Log string
}

func (e *CompileError) Error() string {
	return e.Stage + " shader compile: " + strings.TrimSpace(e.Log)
}

// LinkError is a program link failure.
type LinkError struct {
	Log string
}

func (e *LinkError) Error() string {
	return "program link: " + strings.TrimSpace(e.Log)
}

// Reporter receives human readable diagnostics of failed compilations.
type Reporter interface {
	// Reset clears previously reported diagnostics. It is called before each compile attempt.
	Reset()
	// Report displays err.
	Report(err error)
}

// ErrorBox accumulates newline separated diagnostics. It is safe for concurrent use.
// The zero value is ready to use.
type ErrorBox struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (eb *ErrorBox) Reset() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.buf.Reset()
}

func (eb *ErrorBox) Report(err error) {
	if err == nil {
		return
	}
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.buf.WriteByte('\n')
	eb.buf.WriteString(err.Error())
}

// String returns the accumulated diagnostics.
func (eb *ErrorBox) String() string {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return eb.buf.String()
}

// LogReporter prints diagnostics to a logger. A nil Logger uses the standard logger.
type LogReporter struct {
	Logger *log.Logger
}

// Reset is a no-op, logs are not retracted.
func (lr LogReporter) Reset() {}

func (lr LogReporter) Report(err error) {
	if err == nil {
		return
	}
	if lr.Logger == nil {
		log.Println(err)
		return
	}
	lr.Logger.Println(err)
}

type nopReporter struct{}

func (nopReporter) Reset()       {}
func (nopReporter) Report(error) {}
