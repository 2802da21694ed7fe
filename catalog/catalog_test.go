package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/soypat/shaderpad/catalog"
)

const manifest = `{"shaders": [
	{"displayName": "Ray marcher", "shortDescription": "sphere and torus", "path": "raymarch.glsl"},
	{"displayName": "Gradient", "shortDescription": "uv colors", "path": "sub/gradient.glsl"}
]}`

func TestLoad(t *testing.T) {
	fsys := fstest.MapFS{
		"shaders/shaders.json":           {Data: []byte(manifest)},
		"shaders/raymarch.glsl":          {Data: []byte("void main() {}")},
		"shaders/sub/gradient.glsl":      {Data: []byte("void main() { gl_FragColor = vec4(1.0); }")},
		"shaders/unreferenced/ignored.x": {Data: []byte("x")},
	}
	shaders, err := catalog.Load(fsys, "shaders/"+catalog.DefaultManifest)
	if err != nil {
		t.Fatal(err)
	}
	if len(shaders) != 2 {
		t.Fatalf("got %d shaders", len(shaders))
	}
	if shaders[0].String() != "Ray marcher: sphere and torus" {
		t.Errorf("option text %q", shaders[0].String())
	}
	if shaders[1].Source != "void main() { gl_FragColor = vec4(1.0); }" {
		t.Errorf("source %q", shaders[1].Source)
	}

	delete(fsys, "shaders/sub/gradient.glsl")
	_, err = catalog.Load(fsys, "shaders/shaders.json")
	var merr *catalog.ManifestError
	if !errors.As(err, &merr) || merr.Path != "shaders/sub/gradient.glsl" {
		t.Errorf("missing source error %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	for _, text := range []string{
		`{"shaders": []}`,
		`{"shaders": [{"displayName": "nopath"}]}`,
		`{"shaders": `,
	} {
		if _, err := catalog.Decode(strings.NewReader(text)); err == nil {
			t.Errorf("%q: expected error", text)
		}
	}
}

func TestFetch(t *testing.T) {
	var mu sync.Mutex
	requested := map[string]http.Header{}
	mux := http.NewServeMux()
	serve := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			requested[r.URL.Path] = r.Header.Clone()
			mu.Unlock()
			w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/pad/shaders.json", serve(manifest))
	mux.HandleFunc("/pad/raymarch.glsl", serve("RAY"))
	mux.HandleFunc("/pad/sub/gradient.glsl", serve("GRAD"))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	shaders, err := catalog.Fetch(context.Background(), srv.Client(), srv.URL+"/pad/shaders.json")
	if err != nil {
		t.Fatal(err)
	}
	if len(shaders) != 2 || shaders[0].Source != "RAY" || shaders[1].Source != "GRAD" {
		t.Fatalf("fetched %+v", shaders)
	}
	if len(requested) != 3 {
		t.Errorf("requested %d paths, want 3", len(requested))
	}
	for path, h := range requested {
		if h.Get("Pragma") != "no-cache" || h.Get("Cache-Control") != "no-cache" {
			t.Errorf("%s requested without cache bypass: %v", path, h)
		}
	}
}

func TestFetchMissingSource(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/shaders.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(manifest))
	})
	mux.HandleFunc("/raymarch.glsl", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("RAY"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := catalog.Fetch(context.Background(), srv.Client(), srv.URL+"/shaders.json")
	var merr *catalog.ManifestError
	if !errors.As(err, &merr) || !strings.HasSuffix(merr.Path, "/sub/gradient.glsl") {
		t.Errorf("got %v, want manifest error for missing source", err)
	}
}
