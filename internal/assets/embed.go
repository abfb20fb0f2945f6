// Package assets serves the dashboard's static files embedded via go:embed.
// Each file is fingerprinted with a content hash at startup so templates can
// link to immutable URLs, and a file server maps hashed names back to files
// with appropriate cache headers.
package assets

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
	"sync"
	"time"
)

//go:embed static
var staticFS embed.FS

// hashPattern detects the content hashes URL inserts in filenames (e.g. ".3f9a1c0b.").
// The 8-char minimum matches the fingerprint length below.
var hashPattern = regexp.MustCompile(`\.[a-zA-Z0-9_-]{8,}\.`)

// fingerprintLen is the number of hex characters of the SHA-256 kept in names.
const fingerprintLen = 10

// Index maps logical asset names to fingerprinted names and back.
type Index struct {
	fsys     fs.FS
	hashed   map[string]string // "dashboard.css" -> "dashboard.3f9a1c0b2d.css"
	original map[string]string // reverse of hashed
}

var (
	defaultIndex     *Index
	defaultIndexOnce sync.Once
)

func init() {
	// Errors are ignored: these only fail if extension format is invalid,
	// and our literals are known-good.
	_ = mime.AddExtensionType(".woff2", "font/woff2")
	_ = mime.AddExtensionType(".map", "application/json")
}

// Default returns the index of the embedded static directory.
func Default() *Index {
	defaultIndexOnce.Do(func() {
		sub, err := fs.Sub(staticFS, "static")
		if err != nil {
			panic("assets: failed to create sub filesystem: " + err.Error())
		}
		idx, err := NewIndex(sub)
		if err != nil {
			panic("assets: " + err.Error())
		}
		defaultIndex = idx
	})
	return defaultIndex
}

// NewIndex fingerprints every regular file in fsys.
func NewIndex(fsys fs.FS) (*Index, error) {
	idx := &Index{
		fsys:     fsys,
		hashed:   make(map[string]string),
		original: make(map[string]string),
	}
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		sum := sha256.Sum256(data)
		name := fingerprint(p, hex.EncodeToString(sum[:])[:fingerprintLen])
		idx.hashed[p] = name
		idx.original[name] = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// fingerprint inserts hash before the extension: "js/app.js" -> "js/app.<hash>.js".
func fingerprint(p, hash string) string {
	ext := path.Ext(p)
	return strings.TrimSuffix(p, ext) + "." + hash + ext
}

// URL returns the public /static/ URL of an asset. Unknown names are
// returned unhashed so a missing file shows up as a 404, not a panic.
func (idx *Index) URL(name string) string {
	name = strings.TrimPrefix(name, "/")
	if h, ok := idx.hashed[name]; ok {
		return "/static/" + h
	}
	return "/static/" + name
}

// URL resolves name against the embedded index.
func URL(name string) string {
	return Default().URL(name)
}

// containsHash reports whether the given path contains a content hash
// (8+ characters between dots, e.g. "dashboard.a1b2c3d4e5.js").
func containsHash(p string) bool {
	return hashPattern.MatchString(p)
}

// mimeFromExt returns the MIME type for a file extension.
// Falls back to the Go standard library's MIME type database,
// then to "application/octet-stream" if unknown.
func mimeFromExt(ext string) string {
	switch ext {
	case ".js", ".mjs":
		return "application/javascript"
	case ".css":
		return "text/css; charset=utf-8"
	case ".woff2":
		return "font/woff2"
	case ".svg":
		return "image/svg+xml"
	case ".map":
		return "application/json"
	default:
		if ct := mime.TypeByExtension(ext); ct != "" {
			return ct
		}
		return "application/octet-stream"
	}
}

// FileServer serves assets by fingerprinted or plain name. Hashed names get
// immutable cache headers; plain names get no-cache.
// The handler expects paths relative to the static root (strip /static/ before calling).
func (idx *Index) FileServer() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		file := name
		immutable := false
		if orig, ok := idx.original[name]; ok {
			file = orig
			immutable = true
		} else if _, ok := idx.hashed[name]; !ok {
			http.NotFound(w, r)
			return
		}

		data, err := fs.ReadFile(idx.fsys, file)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		if ext := strings.ToLower(path.Ext(file)); ext != "" {
			w.Header().Set("Content-Type", mimeFromExt(ext))
		}
		if immutable && containsHash(name) {
			w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		} else {
			w.Header().Set("Cache-Control", "no-cache")
		}
		http.ServeContent(w, r, file, time.Time{}, bytes.NewReader(data))
	})
}

// FileServer serves the embedded static directory.
func FileServer() http.Handler {
	return Default().FileServer()
}
