// Package catalog loads the list of selectable shader programs described by a
// JSON manifest of the form
//
//	{"shaders": [{"displayName": "...", "shortDescription": "...", "path": "..."}]}
//
// Every source is loaded up front, before rendering starts.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"path"

	"golang.org/x/sync/errgroup"
)

// DefaultManifest is the conventional manifest file name.
const DefaultManifest = "shaders.json"

// Manifest is the decoded shader list.
type Manifest struct {
	Shaders []Entry `json:"shaders"`
}

// Entry describes one shader of the catalog.
type Entry struct {
	DisplayName      string `json:"displayName"`
	ShortDescription string `json:"shortDescription"`
	// Path locates the source relative to the manifest.
	Path string `json:"path"`
}

// String returns the entry as shown in a selection list.
func (e Entry) String() string {
	return e.DisplayName + ": " + e.ShortDescription
}

// Shader is a catalog entry with its loaded source.
type Shader struct {
	Entry
	Source string
}

// ManifestError is returned when the manifest or one of its sources cannot be fetched or parsed.
type ManifestError struct {
	Path string
	Err  error
}

func (e *ManifestError) Error() string {
	return "catalog " + e.Path + ": " + e.Err.Error()
}

func (e *ManifestError) Unwrap() error { return e.Err }

var errEmptyManifest = errors.New("manifest lists no shaders")

// Decode reads and validates a manifest.
func Decode(r io.Reader) (Manifest, error) {
	var m Manifest
	err := json.NewDecoder(r).Decode(&m)
	if err != nil {
		return Manifest{}, err
	}
	if len(m.Shaders) == 0 {
		return Manifest{}, errEmptyManifest
	}
	for i, e := range m.Shaders {
		if e.Path == "" {
			return Manifest{}, fmt.Errorf("shader %d (%q) has no path", i, e.DisplayName)
		}
	}
	return m, nil
}

// Load reads the manifest at name from fsys and all the sources it lists.
// Source paths are relative to the manifest's directory.
func Load(fsys fs.FS, name string) ([]Shader, error) {
	fp, err := fsys.Open(name)
	if err != nil {
		return nil, &ManifestError{Path: name, Err: err}
	}
	m, err := Decode(fp)
	fp.Close()
	if err != nil {
		return nil, &ManifestError{Path: name, Err: err}
	}
	dir := path.Dir(name)
	shaders := make([]Shader, len(m.Shaders))
	for i, e := range m.Shaders {
		p := path.Join(dir, e.Path)
		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, &ManifestError{Path: p, Err: err}
		}
		shaders[i] = Shader{Entry: e, Source: string(src)}
	}
	return shaders, nil
}

// Fetch downloads the manifest at manifestURL bypassing caches, then downloads all the
// sources it lists concurrently. Relative source paths are resolved against manifestURL.
// A nil client uses [http.DefaultClient].
func Fetch(ctx context.Context, client *http.Client, manifestURL string) ([]Shader, error) {
	if client == nil {
		client = http.DefaultClient
	}
	base, err := url.Parse(manifestURL)
	if err != nil {
		return nil, &ManifestError{Path: manifestURL, Err: err}
	}
	body, err := get(ctx, client, base.String())
	if err != nil {
		return nil, &ManifestError{Path: manifestURL, Err: err}
	}
	defer body.Close()
	m, err := Decode(body)
	if err != nil {
		return nil, &ManifestError{Path: manifestURL, Err: err}
	}

	srcURLs := make([]string, len(m.Shaders))
	for i, e := range m.Shaders {
		ref, err := url.Parse(e.Path)
		if err != nil {
			return nil, &ManifestError{Path: e.Path, Err: err}
		}
		srcURLs[i] = base.ResolveReference(ref).String()
	}
	shaders := make([]Shader, len(m.Shaders))
	g, gctx := errgroup.WithContext(ctx)
	for i, e := range m.Shaders {
		srcURL := srcURLs[i]
		g.Go(func() error {
			rc, err := get(gctx, client, srcURL)
			if err != nil {
				return &ManifestError{Path: srcURL, Err: err}
			}
			defer rc.Close()
			src, err := io.ReadAll(rc)
			if err != nil {
				return &ManifestError{Path: srcURL, Err: err}
			}
			shaders[i] = Shader{Entry: e, Source: string(src)}
			return nil
		})
	}
	err = g.Wait()
	if err != nil {
		return nil, err
	}
	return shaders, nil
}

func get(ctx context.Context, client *http.Client, u string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	return resp.Body, nil
}
