package server

import (
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

// handleSPA serves the built site from dir. Any path that is not a file
// gets index.html so client-side routes such as /payment-success resolve.
func handleSPA(dir string) http.HandlerFunc {
	root := os.DirFS(dir)
	fileServer := http.FileServerFS(root)

	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name != "" && name != "index.html" {
			if info, err := fs.Stat(root, name); err == nil && !info.IsDir() {
				// Hashed build output never changes under the same name.
				if strings.HasPrefix(name, "assets/") {
					w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
				}
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFileFS(w, r, root, "index.html")
	}
}
