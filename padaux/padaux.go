// Package padaux assembles the startup state of a shaderpad session: the initial
// program source, the shader catalog and the editor's file hooks.
package padaux

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soypat/shaderpad"
	"github.com/soypat/shaderpad/catalog"
	"github.com/soypat/shaderpad/frame"
	"github.com/soypat/shaderpad/glbuild"
)

// SessionConfig names the program sources of a session.
type SessionConfig struct {
	// Backend is one of "cpu", "gl" or "ebiten" and selects the built-in source language.
	Backend string
	// SourceFile is the edited program file. When set it is loaded first, even
	// when a catalog is available, and reset restores it on disk.
	SourceFile string
	// Manifest is a catalog manifest path or http(s) URL.
	Manifest string
	// Selected is the catalog entry loaded first. Negative picks a random entry.
	Selected int
	// SaveFile receives the edited source on [frame.CommandSave].
	// Empty uses [frame.SourceFilename].
	SaveFile      string
	AutoRecompile bool
	// Client fetches remote manifests. Nil uses a client with a 30 second timeout.
	Client *http.Client
	// Rand picks random catalog entries. Nil uses the global source.
	Rand *rand.Rand
	Log  *log.Logger
}

// Session returns the driver configuration of a session. Unreadable source files and
// catalogs are logged and leave the editor empty or the catalog unset: the session
// still starts. Only an unknown backend is an error.
func Session(ctx context.Context, cfg SessionConfig) (frame.Config, error) {
	logger := cfg.Log
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	lang, err := backendLanguage(cfg.Backend)
	if err != nil {
		return frame.Config{}, err
	}
	fc := frame.Config{
		Selected:      -1,
		AutoRecompile: cfg.AutoRecompile,
		Reporter:      frame.LogReporter{Logger: logger},
		Log:           logger,
		Export:        exportTo(cfg.SaveFile),
	}
	if cfg.Manifest != "" {
		shaders, err := LoadCatalog(ctx, cfg.Client, cfg.Manifest)
		if err != nil {
			logger.Println("catalog:", err)
		} else {
			fc.Catalog = shaders
			logger.Printf("loaded %d catalog shaders", len(fc.Catalog))
		}
	}

	switch {
	case cfg.SourceFile != "":
		b, err := os.ReadFile(cfg.SourceFile)
		if err != nil {
			logger.Println("source:", err)
		}
		fc.Source = string(b)
		fc.OnReset = exportTo(cfg.SourceFile)
	case len(fc.Catalog) > 0:
		fc.Selected = pick(cfg.Selected, len(fc.Catalog), cfg.Rand, logger)
	default:
		var buf bytes.Buffer
		if err := Emit(&buf, lang); err != nil {
			return frame.Config{}, err
		}
		fc.Source = buf.String()
	}
	return fc, nil
}

func pick(selected, n int, rng *rand.Rand, logger *log.Logger) int {
	if selected >= n {
		logger.Printf("catalog entry %d out of range [0,%d), loading entry 0", selected, n)
		return 0
	} else if selected >= 0 {
		return selected
	}
	if rng != nil {
		return rng.Intn(n)
	}
	return rand.Intn(n)
}

func exportTo(name string) func(string) error {
	if name == "" {
		name = frame.SourceFilename
	}
	return func(src string) error {
		return os.WriteFile(name, []byte(src), 0o644)
	}
}

func backendLanguage(backend string) (string, error) {
	switch backend {
	case "cpu":
		return "scene", nil
	case "gl":
		return "glsl", nil
	case "ebiten":
		return "kage", nil
	}
	return "", fmt.Errorf("unknown backend %q", backend)
}

// Emit writes the built-in scene as lang, one of "glsl", "kage" or "scene",
// or the shared vertex program when lang is "vertex".
func Emit(w io.Writer, lang string) error {
	scene := shaderpad.DefaultScene()
	var err error
	switch lang {
	case "glsl":
		_, err = scene.WriteGLSL(w)
	case "kage":
		_, err = scene.WriteKage(w)
	case "scene":
		_, err = scene.WriteText(w)
	case "vertex":
		_, err = io.WriteString(w, glbuild.VertexSource)
	default:
		err = fmt.Errorf("unknown source kind %q", lang)
	}
	return err
}

// LoadCatalog loads the catalog at manifest, fetched over HTTP when it is an
// http(s) URL and read from disk otherwise.
func LoadCatalog(ctx context.Context, client *http.Client, manifest string) ([]catalog.Shader, error) {
	if strings.HasPrefix(manifest, "http://") || strings.HasPrefix(manifest, "https://") {
		if client == nil {
			client = &http.Client{Timeout: 30 * time.Second}
		}
		return catalog.Fetch(ctx, client, manifest)
	}
	dir, name := filepath.Split(manifest)
	if dir == "" {
		dir = "."
	}
	return catalog.Load(os.DirFS(dir), name)
}
