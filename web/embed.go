// Package web embeds the live event dashboard (dist/) and provides an HTTP
// handler that serves it.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

const indexFile = "index.html"

// Handler serves the embedded dashboard. Mount it with http.StripPrefix.
//
// index.html is never cached so a redeploy reaches open dashboards on reload.
// Unknown paths without an extension fall back to index.html; unknown assets
// are 404.
func Handler() http.Handler {
	subFS, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
		if name == "" {
			name = indexFile
		}

		if _, err := fs.Stat(subFS, name); err != nil {
			if path.Ext(name) != "" {
				http.NotFound(w, r)
				return
			}
			name = indexFile
		}

		if name == indexFile {
			w.Header().Set("Cache-Control", "no-cache")
			http.ServeFileFS(w, r, subFS, indexFile)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=300")
		fileServer.ServeHTTP(w, r)
	})
}
