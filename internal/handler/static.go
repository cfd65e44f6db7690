package handler

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// Shell serves the browser shell from fsys. The worker script may control
// the whole origin and, like the page itself, is revalidated on every load
// so a new cache version is picked up. Unknown extensionless paths get
// index.html.
func Shell(fsys fs.FS) http.Handler {
	files := http.FileServerFS(fsys)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")

		switch {
		case name == "sw.js":
			w.Header().Set("Service-Worker-Allowed", "/")
			w.Header().Set("Cache-Control", "no-cache")
		case name == "" || name == "index.html":
			w.Header().Set("Cache-Control", "no-cache")
		default:
			if _, err := fs.Stat(fsys, name); err != nil && path.Ext(name) == "" {
				w.Header().Set("Cache-Control", "no-cache")
				http.ServeFileFS(w, r, fsys, "index.html")
				return
			}
		}
		files.ServeHTTP(w, r)
	})
}
